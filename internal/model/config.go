package model

import (
	"os"
	"path/filepath"
	"time"
)

// Config holds the complete proptable configuration
type Config struct {
	Store    StoreConfig                  `yaml:"store" mapstructure:"store"`
	Import   ImportConfig                 `yaml:"import" mapstructure:"import"`
	Export   ExportConfig                 `yaml:"export" mapstructure:"export"`
	Matching MatchingConfig               `yaml:"matching" mapstructure:"matching"`
	Synonyms map[string]map[string]string `yaml:"synonyms" mapstructure:"synonyms"` // language -> raw name -> canonical name
	Output   OutputConfig                 `yaml:"output" mapstructure:"output"`
}

// StoreConfig locates the property store
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"` // SQLite database file
}

// ImportConfig controls CSV import passes
type ImportConfig struct {
	Encoding            string  `yaml:"encoding" mapstructure:"encoding"`   // iso-8859-1, windows-1252, utf-8
	Separator           string  `yaml:"separator" mapstructure:"separator"` // Single character
	DetectNewProperties bool    `yaml:"detect_new_properties" mapstructure:"detect_new_properties"`
	Workers             int     `yaml:"workers" mapstructure:"workers"`
	RatePerSecond       float64 `yaml:"rate_per_second" mapstructure:"rate_per_second"` // 0 = unlimited
	Burst               int     `yaml:"burst" mapstructure:"burst"`
}

// ExportConfig controls CSV export passes
type ExportConfig struct {
	IncludeHTML    bool `yaml:"include_html" mapstructure:"include_html"`
	ApplyOverrides bool `yaml:"apply_overrides" mapstructure:"apply_overrides"`
}

// MatchingConfig controls the suggestion cache
type MatchingConfig struct {
	CacheTTL time.Duration `yaml:"cache_ttl" mapstructure:"cache_ttl"`
}

// OutputConfig controls console output
type OutputConfig struct {
	Verbose bool `yaml:"verbose" mapstructure:"verbose"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() Config {
	return Config{
		Store: StoreConfig{
			Path: defaultStorePath(),
		},
		Import: ImportConfig{
			Encoding:            "iso-8859-1",
			Separator:           ";",
			DetectNewProperties: true,
			Workers:             1,
			RatePerSecond:       0,
			Burst:               1,
		},
		Export: ExportConfig{
			IncludeHTML:    true,
			ApplyOverrides: true,
		},
		Matching: MatchingConfig{
			CacheTTL: 10 * time.Minute,
		},
		Synonyms: map[string]map[string]string{},
	}
}

// SynonymTables converts the configured synonyms into per-language tables,
// ignoring unknown languages
func (c Config) SynonymTables() map[Language]map[string]string {
	out := make(map[Language]map[string]string)
	for lang, table := range c.Synonyms {
		l := Language(lang)
		if !l.Valid() {
			continue
		}
		out[l] = table
	}
	return out
}

func defaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "proptable.db"
	}
	return filepath.Join(home, ".proptable", "proptable.db")
}
