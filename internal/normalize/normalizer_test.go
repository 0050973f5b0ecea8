package normalize

import (
	"testing"

	"github.com/ppiankov/proptable/internal/model"
)

func TestNormalizer_SynonymConvergence(t *testing.T) {
	n := New(nil)

	names := []string{"Farbe", "Farbe:", "FARBE", "  farbe : ", "Farbe."}
	for _, raw := range names {
		got := n.CanonicalName(raw, model.LangDE)
		if got != "color" {
			t.Errorf("CanonicalName(%q) = %q, expected %q", raw, got, "color")
		}
	}
}

func TestNormalizer_GermanUmlautSynonyms(t *testing.T) {
	n := New(nil)

	cases := map[string]string{
		"Max. Bündeldurchmesser":  "max_bundle_diameter",
		"MAX. BÜNDELDURCHMESSER":  "max_bundle_diameter",
		"Temperaturbeständigkeit": "temperature_resistance",
		"Nenngröße":               "nominal_size",
		"Werkstoff des Leiters":   "conductor_material",
	}

	for raw, expected := range cases {
		if got := n.CanonicalName(raw, model.LangDE); got != expected {
			t.Errorf("CanonicalName(%q) = %q, expected %q", raw, got, expected)
		}
	}
}

func TestNormalizer_EnglishSynonyms(t *testing.T) {
	n := New(nil)

	if got := n.CanonicalName("Colour", model.LangEN); got != "color" {
		t.Errorf("Expected colour -> color, got %q", got)
	}
	if got := n.CanonicalName("Tensile Strength:", model.LangEN); got != "tensile_strength" {
		t.Errorf("Expected tensile_strength, got %q", got)
	}
}

func TestNormalizer_SynonymsAreLanguageScoped(t *testing.T) {
	n := New(nil)

	// German label on an English description is not a known English synonym
	if got := n.CanonicalName("Farbe", model.LangEN); got != "farbe" {
		t.Errorf("Expected pass-through lower-case name, got %q", got)
	}
}

func TestNormalizer_UnknownNamePassesThrough(t *testing.T) {
	n := New(nil)

	got := n.CanonicalName("  Schutzart  ", model.LangDE)
	if got != "schutzart" {
		t.Errorf("Expected %q, got %q", "schutzart", got)
	}

	got = n.CanonicalName("Farbe (DE)", model.LangDE)
	if got != "farbe (de)" {
		t.Errorf("Expected %q, got %q", "farbe (de)", got)
	}
}

func TestNormalizer_ExtraSynonyms(t *testing.T) {
	n := New(map[model.Language]map[string]string{
		model.LangDE: {"Schutzart": "protection_class", "Farbe": "colour"},
	})

	if got := n.CanonicalName("schutzart", model.LangDE); got != "protection_class" {
		t.Errorf("Expected extra synonym, got %q", got)
	}
	if got := n.CanonicalName("Farbe", model.LangDE); got != "colour" {
		t.Errorf("Expected extra synonym to win over built-in, got %q", got)
	}
	// Built-in tables are copied, not mutated
	if got := New(nil).CanonicalName("Farbe", model.LangDE); got != "color" {
		t.Errorf("Expected built-in table untouched, got %q", got)
	}
}

func TestNormalizer_CanonicalNamesAreFixedPoints(t *testing.T) {
	n := New(nil)

	for _, lang := range model.Languages {
		for _, canonical := range n.synonyms[lang] {
			if got := n.CanonicalName(canonical, lang); got != canonical {
				t.Errorf("Canonical name %q (%s) renormalizes to %q", canonical, lang, got)
			}
		}
	}
}

func TestNormalizer_RangeExtraction(t *testing.T) {
	n := New(nil)

	_, v, unit := n.NormalizeRaw("Temperaturbeständigkeit", "-20°C bis +60°C", model.LangDE)

	if v.Kind != model.KindRange {
		t.Fatalf("Expected range, got %+v", v)
	}
	if v.Min != -20 || v.Max != 60 {
		t.Errorf("Expected {min: -20, max: 60}, got {min: %v, max: %v}", v.Min, v.Max)
	}
	if unit != "°C" {
		t.Errorf("Expected unit °C, got %q", unit)
	}
}

func TestNormalizer_EnglishRange(t *testing.T) {
	n := New(nil)

	v := n.NormalizeValue(model.StringValue("10 to 20 mm"))

	if v.Kind != model.KindRange || v.Min != 10 || v.Max != 20 || v.Unit != "mm" {
		t.Errorf("Expected 10..20 mm range, got %+v", v)
	}
}

func TestNormalizer_RangeWithMismatchedUnits(t *testing.T) {
	n := New(nil)

	v := n.NormalizeValue(model.StringValue("10 mm bis 2 m"))

	if v.Kind != model.KindString || v.Text != "10 mm bis 2 m" {
		t.Errorf("Expected string fallback, got %+v", v)
	}
}

func TestNormalizer_NumberWithUnit(t *testing.T) {
	n := New(nil)

	_, v, unit := n.NormalizeRaw("Zugkraft", "50 kg", model.LangDE)

	if v.Kind != model.KindNumber || v.Number != 50 {
		t.Errorf("Expected number 50, got %+v", v)
	}
	if unit != "kg" {
		t.Errorf("Expected unit kg, got %q", unit)
	}
}

func TestNormalizer_DecimalComma(t *testing.T) {
	n := New(nil)

	v := n.NormalizeValue(model.StringValue("2,5 mm²"))

	if v.Kind != model.KindNumber || v.Number != 2.5 || v.Unit != "mm²" {
		t.Errorf("Expected 2.5 mm², got %+v", v)
	}
}

func TestNormalizer_StringFallback(t *testing.T) {
	n := New(nil)

	inputs := []string{"Schwarz", "3 x 2,5 mm²", "UL, CSA", "ca. 50 kg"}
	for _, in := range inputs {
		v := n.NormalizeValue(model.StringValue("  " + in + " "))
		if v.Kind != model.KindString || v.Text != in {
			t.Errorf("NormalizeValue(%q) = %+v, expected trimmed string", in, v)
		}
	}
}

func TestNormalizer_Idempotence(t *testing.T) {
	n := New(nil)

	inputs := []struct {
		name  string
		value string
		lang  model.Language
	}{
		{"Farbe:", "Schwarz", model.LangDE},
		{"Zugkraft", "50 kg", model.LangDE},
		{"Temperaturbeständigkeit", "-20°C bis +60°C", model.LangDE},
		{"Length", "2,5 m", model.LangEN},
		{"Operating temperature", "-40 to 85 °C", model.LangEN},
		{"Schutzart", "IP68", model.LangDE},
		{"  Unknown Label ", "  some text ", model.LangEN},
		{"VPE", "100", model.LangDE},
	}

	for _, in := range inputs {
		name1, value1, unit1 := n.NormalizeRaw(in.name, in.value, in.lang)
		name2, value2, unit2 := n.Normalize(name1, value1, in.lang)

		if name1 != name2 || value1 != value2 || unit1 != unit2 {
			t.Errorf("Not idempotent for %q=%q: (%q, %+v, %q) vs (%q, %+v, %q)",
				in.name, in.value, name1, value1, unit1, name2, value2, unit2)
		}

		// The rendered form also normalizes back to the same structured value
		name3, value3, _ := n.NormalizeRaw(name1, value1.Format(in.lang), in.lang)
		if name3 != name1 || value3 != value1 {
			t.Errorf("Rendered form of %q=%q does not round-trip: %+v vs %+v", in.name, in.value, value3, value1)
		}
	}
}

func TestNormalizer_HasSynonym(t *testing.T) {
	n := New(nil)

	if !n.HasSynonym("FARBE:", model.LangDE) {
		t.Error("Expected Farbe to be covered")
	}
	if n.HasSynonym("Schutzart", model.LangDE) {
		t.Error("Expected Schutzart not to be covered")
	}
}

func TestNormalizer_AmbiguousNumbersStayText(t *testing.T) {
	n := New(nil)

	inputs := []string{
		"1.000 Stück",
		"1,000 pcs",
		"12.500",
		"1/2\"",
		"40123456789012345",
		"-20.000 bis 20.000 mm",
	}
	for _, in := range inputs {
		v := n.NormalizeValue(model.StringValue(in))
		if v.Kind != model.KindString || v.Text != in {
			t.Errorf("NormalizeValue(%q) = %+v, expected text kept", in, v)
		}
	}
}

func TestNormalizer_SmallDecimalsStillParse(t *testing.T) {
	n := New(nil)

	v := n.NormalizeValue(model.StringValue("0,125 mm"))
	if v.Kind != model.KindNumber || v.Number != 0.125 || v.Unit != "mm" {
		t.Errorf("Expected 0.125 mm, got %+v", v)
	}

	v = n.NormalizeValue(model.StringValue("123456789012345"))
	if v.Kind != model.KindNumber || v.Number != 123456789012345 {
		t.Errorf("Expected 15-digit number, got %+v", v)
	}
}
