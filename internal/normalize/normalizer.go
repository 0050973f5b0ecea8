package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/ppiankov/proptable/internal/model"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Value patterns, tried in priority order
var (
	// "-20°C bis +60°C", "10 to 20 mm"
	rangePattern = regexp.MustCompile(`^([+-]?\d+(?:[.,]\d+)?)\s*(` + unitPattern + `)?\s+(?i:bis|to)\s+([+-]?\d+(?:[.,]\d+)?)\s*(` + unitPattern + `)?$`)

	// "50 kg", "2,5 mm²", "100"
	numberPattern = regexp.MustCompile(`^([+-]?\d+(?:[.,]\d+)?)\s*(` + unitPattern + `)?$`)

	// "1.000 Stück", "1,000 pcs": digit grouping reads the same as a decimal separator
	groupedPattern = regexp.MustCompile(`^[+-]?[1-9]\d{0,2}(?:[.,]\d{3})+(?:\D|$)`)
)

// unitPattern is a unit token. It starts with a letter or a unit symbol, so
// fractions like 1/2" stay text.
const unitPattern = `[\p{L}°%‰µ²³"']\S{0,7}`

// maxDigits is the longest digit run a float64 carries exactly; longer
// numbers (EAN, GTIN) stay text
const maxDigits = 15

// nameTrim lists the punctuation stripped from both ends of a raw name
const nameTrim = ":;,.·•*|–-_"

// Normalizer turns raw name/value/language triples into canonical properties.
// Synonym tables are fixed at construction.
type Normalizer struct {
	synonyms map[model.Language]map[string]string // folded raw name -> canonical name
}

// New creates a normalizer from the built-in synonym tables merged with extra
// entries (extra wins on conflicts)
func New(extra map[model.Language]map[string]string) *Normalizer {
	tables := defaultSynonyms()
	for lang, table := range extra {
		if tables[lang] == nil {
			tables[lang] = make(map[string]string)
		}
		for raw, canonical := range table {
			tables[lang][raw] = canonical
		}
	}

	n := &Normalizer{synonyms: make(map[model.Language]map[string]string, len(tables))}
	for lang, table := range tables {
		folded := make(map[string]string, len(table))
		for raw, canonical := range table {
			key := fold(cleanName(raw))
			if key == "" || strings.TrimSpace(canonical) == "" {
				continue
			}
			folded[key] = strings.TrimSpace(canonical)
		}
		n.synonyms[lang] = folded
	}
	return n
}

// Normalize canonicalizes one property. Structured values pass through unchanged,
// so normalizing an already normalized result returns it as is.
func (n *Normalizer) Normalize(name string, value model.Value, lang model.Language) (string, model.Value, string) {
	canonical := n.CanonicalName(name, lang)
	normalized := n.NormalizeValue(value)
	return canonical, normalized, normalized.Unit
}

// NormalizeRaw is Normalize for a raw text value
func (n *Normalizer) NormalizeRaw(name, raw string, lang model.Language) (string, model.Value, string) {
	return n.Normalize(name, model.StringValue(raw), lang)
}

// CanonicalName maps a raw name to its canonical name. Unknown names are
// returned trimmed and lower-cased.
func (n *Normalizer) CanonicalName(raw string, lang model.Language) string {
	cleaned := cleanName(raw)
	if cleaned == "" {
		return ""
	}
	if canonical, ok := n.synonyms[lang][fold(cleaned)]; ok {
		return canonical
	}
	return lower(cleaned, lang)
}

// HasSynonym reports whether the static or configured synonym tables cover raw
func (n *Normalizer) HasSynonym(raw string, lang model.Language) bool {
	_, ok := n.synonyms[lang][fold(cleanName(raw))]
	return ok
}

// CanonicalKey canonicalizes the name part of a property key
func (n *Normalizer) CanonicalKey(k model.PropertyKey) model.PropertyKey {
	return model.PropertyKey{Name: n.CanonicalName(k.Name, k.Language), Language: k.Language}
}

// NormalizeValue applies the typed extraction heuristics to a string value
func (n *Normalizer) NormalizeValue(v model.Value) model.Value {
	if v.Structured() {
		return v
	}

	text := strings.TrimSpace(v.Text)
	if groupedPattern.MatchString(text) {
		return model.StringValue(text)
	}

	if m := rangePattern.FindStringSubmatch(text); m != nil {
		low, errLow := parseNumber(m[1])
		high, errHigh := parseNumber(m[3])
		unit, ok := sharedUnit(m[2], m[4])
		if errLow == nil && errHigh == nil && ok {
			return model.RangeValue(low, high, unit)
		}
	}

	if m := numberPattern.FindStringSubmatch(text); m != nil {
		if num, err := parseNumber(m[1]); err == nil {
			return model.NumberValue(num, m[2])
		}
	}

	return model.StringValue(text)
}

// sharedUnit picks the unit of a range. A unit on only one bound applies to both;
// two different units mean the text is not a simple range.
func sharedUnit(low, high string) (string, bool) {
	switch {
	case low == "":
		return high, true
	case high == "":
		return low, true
	case low == high:
		return low, true
	default:
		return "", false
	}
}

func parseNumber(s string) (float64, error) {
	digits := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	if digits > maxDigits {
		return 0, fmt.Errorf("%s: more than %d digits", s, maxDigits)
	}
	return strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
}

// cleanName trims whitespace and punctuation from both ends and collapses inner spaces
func cleanName(s string) string {
	s = strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || strings.ContainsRune(nameTrim, r)
	})
	return strings.Join(strings.Fields(s), " ")
}

func fold(s string) string {
	return cases.Fold().String(s)
}

func lower(s string, lang model.Language) string {
	return cases.Lower(languageTag(lang)).String(s)
}

func languageTag(lang model.Language) language.Tag {
	switch lang {
	case model.LangDE:
		return language.German
	case model.LangEN:
		return language.English
	default:
		return language.Und
	}
}
