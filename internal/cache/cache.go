package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/ppiankov/proptable/internal/model"
)

// Cache holds ranked mapping suggestions for unmapped names
type Cache interface {
	Get(key string) ([]model.Suggestion, bool)
	Set(key string, suggestions []model.Suggestion)
	Clear()
}

// SuggestionKey builds the cache key for a name. The registry version is part
// of the key, so a reload invalidates every earlier entry.
func SuggestionKey(version uint64, lang model.Language, name string) string {
	hash := sha256.Sum256([]byte(name))
	return fmt.Sprintf("proptable:v1:%d:%s:%s", version, lang, hex.EncodeToString(hash[:]))
}
