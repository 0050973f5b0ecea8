package model

import (
	"sort"
	"strconv"
	"strings"
)

// Language identifies one of the two description languages
type Language string

const (
	LangDE Language = "de"
	LangEN Language = "en"
)

// Languages lists the supported description languages in import order
var Languages = []Language{LangDE, LangEN}

// Valid reports whether the language is one of the supported ones
func (l Language) Valid() bool {
	return l == LangDE || l == LangEN
}

// PropertyKey is the identity of a property: its canonical name within one language.
// It is comparable and is used directly as a map key everywhere.
type PropertyKey struct {
	Name     string   `json:"name" yaml:"name"`
	Language Language `json:"language" yaml:"language"`
}

// Key builds a PropertyKey
func Key(name string, lang Language) PropertyKey {
	return PropertyKey{Name: name, Language: lang}
}

func (k PropertyKey) String() string {
	return k.Name + "@" + string(k.Language)
}

// Less orders keys by name, then language
func (k PropertyKey) Less(o PropertyKey) bool {
	if k.Name != o.Name {
		return k.Name < o.Name
	}
	return k.Language < o.Language
}

// SortKeys sorts keys in place by name, then language
func SortKeys(keys []PropertyKey) {
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
}

// DataType tags the expected shape of a property's values
type DataType string

const (
	TypeString  DataType = "string"
	TypeNumber  DataType = "number"
	TypeBoolean DataType = "boolean"
	TypeRange   DataType = "range"
)

// PropertyDefinition is a curated canonical property
type PropertyDefinition struct {
	Key      PropertyKey `json:"key" yaml:"key"`
	DataType DataType    `json:"data_type" yaml:"data_type"`           // string, number, boolean, range
	Unit     string      `json:"unit,omitempty" yaml:"unit,omitempty"` // Expected unit, empty when unknown
}

// ConfirmedConfidence marks a human-confirmed mapping
const ConfirmedConfidence = 1.0

// PropertyMapping maps a raw property name to a canonical name within one language
type PropertyMapping struct {
	Original   string   `json:"original" yaml:"original"`
	Language   Language `json:"language" yaml:"language"`
	Standard   string   `json:"standard" yaml:"standard"`
	Confidence float64  `json:"confidence" yaml:"confidence"` // 1.0 = human-confirmed, lower = advisory
}

// Key returns the mapping identity (original name, language)
func (m PropertyMapping) Key() PropertyKey {
	return PropertyKey{Name: m.Original, Language: m.Language}
}

// Target returns the canonical key the mapping points to
func (m PropertyMapping) Target() PropertyKey {
	return PropertyKey{Name: m.Standard, Language: m.Language}
}

// Authoritative reports whether the mapping was confirmed by a human
func (m PropertyMapping) Authoritative() bool {
	return m.Confidence >= ConfirmedConfidence
}

// ValueKind classifies a normalized value
type ValueKind string

const (
	KindString ValueKind = "string"
	KindNumber ValueKind = "number"
	KindRange  ValueKind = "range"
)

// Value is a normalized property value. Text is set for string values,
// Number for numeric values, Min/Max for ranges. Unit is shared by both range bounds.
type Value struct {
	Kind   ValueKind `json:"kind" yaml:"kind"`
	Text   string    `json:"text,omitempty" yaml:"text,omitempty"`
	Number float64   `json:"number,omitempty" yaml:"number,omitempty"`
	Min    float64   `json:"min,omitempty" yaml:"min,omitempty"`
	Max    float64   `json:"max,omitempty" yaml:"max,omitempty"`
	Unit   string    `json:"unit,omitempty" yaml:"unit,omitempty"`
}

// StringValue wraps raw text as an unstructured value
func StringValue(s string) Value {
	return Value{Kind: KindString, Text: s}
}

// NumberValue builds a numeric value
func NumberValue(n float64, unit string) Value {
	return Value{Kind: KindNumber, Number: n, Unit: unit}
}

// RangeValue builds a bounded range value
func RangeValue(min, max float64, unit string) Value {
	return Value{Kind: KindRange, Min: min, Max: max, Unit: unit}
}

// Structured reports whether the value was already parsed into a typed shape
func (v Value) Structured() bool {
	return v.Kind == KindNumber || v.Kind == KindRange
}

// DataType returns the definition data type matching the value kind
func (v Value) DataType() DataType {
	switch v.Kind {
	case KindNumber:
		return TypeNumber
	case KindRange:
		return TypeRange
	default:
		return TypeString
	}
}

// Format renders the value with its unit in the conventions of the given language.
// The result normalizes back to the same structured value.
func (v Value) Format(lang Language) string {
	switch v.Kind {
	case KindNumber:
		return withUnit(formatNumber(v.Number, lang), v.Unit)
	case KindRange:
		connective := "to"
		if lang == LangDE {
			connective = "bis"
		}
		return withUnit(formatNumber(v.Min, lang), v.Unit) + " " + connective + " " + withUnit(formatNumber(v.Max, lang), v.Unit)
	default:
		return v.Text
	}
}

func withUnit(s, unit string) string {
	if unit == "" {
		return s
	}
	return s + " " + unit
}

func formatNumber(n float64, lang Language) string {
	s := strconv.FormatFloat(n, 'f', -1, 64)
	if lang == LangDE {
		s = strings.Replace(s, ".", ",", 1)
	}
	return s
}

// ExtractedProperty is one normalized property of an article from the latest import
type ExtractedProperty struct {
	ArticleID string      `json:"article_id" yaml:"article_id"`
	Key       PropertyKey `json:"key" yaml:"key"`
	Value     Value       `json:"value" yaml:"value"`
}

// Display renders the stored value and unit as a single string
func (p ExtractedProperty) Display() string {
	return p.Value.Format(p.Key.Language)
}

// OverrideScope is the level at which an override applies
type OverrideScope string

const (
	ScopeArticle  OverrideScope = "article"
	ScopeCategory OverrideScope = "category"
)

// Override replaces the value of one property for an article or a whole category
type Override struct {
	Scope    OverrideScope `json:"scope" yaml:"scope"`
	ScopeKey string        `json:"scope_key" yaml:"scope_key"` // Article id or category name
	Key      PropertyKey   `json:"key" yaml:"key"`
	Value    string        `json:"value" yaml:"value"`
}

// PropertyMap maps property identity to its final display value
type PropertyMap map[PropertyKey]string

// Clone returns an independent copy of the map
func (m PropertyMap) Clone() PropertyMap {
	out := make(PropertyMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Suggestion is an advisory canonical-name candidate for an unmapped raw name
type Suggestion struct {
	Name  string  `json:"name" yaml:"name"`
	Score float64 `json:"score" yaml:"score"`
}

// Article is one product row with its descriptions per language
type Article struct {
	ID           string              `json:"id" yaml:"id"`
	Name         string              `json:"name,omitempty" yaml:"name,omitempty"`
	Category     string              `json:"category,omitempty" yaml:"category,omitempty"`
	Descriptions map[Language]string `json:"descriptions,omitempty" yaml:"descriptions,omitempty"`
}
