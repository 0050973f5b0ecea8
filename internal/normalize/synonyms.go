package normalize

import "github.com/ppiankov/proptable/internal/model"

// germanSynonyms maps German property labels found in shop descriptions to canonical names
var germanSynonyms = map[string]string{
	"Farbe":                        "color",
	"Material":                     "material",
	"Werkstoff":                    "material",
	"Zugkraft":                     "tensile_strength",
	"Max. Bündeldurchmesser":       "max_bundle_diameter",
	"Min. Bündeldurchmesser":       "min_bundle_diameter",
	"Bündeldurchmesser":            "bundle_diameter",
	"Temperaturbeständigkeit":      "temperature_resistance",
	"Min. Installationstemperatur": "min_installation_temperature",
	"Zulassungen":                  "certifications",
	"Verpackungseinheit":           "packaging_unit",
	"VPE":                          "packaging_unit",
	"Isolationsmaterial":           "insulation_material",
	"Werkstoff des Leiters":        "conductor_material",
	"Leitermaterial":               "conductor_material",
	"Länge":                        "length",
	"Breite":                       "width",
	"Höhe":                         "height",
	"Gewicht":                      "weight",
	"Nenngröße":                    "nominal_size",
	"Kabelquerschnitt":             "cable_cross_section",
	"Querschnitt":                  "cable_cross_section",
}

// englishSynonyms maps English property labels to canonical names
var englishSynonyms = map[string]string{
	"Color":                         "color",
	"Colour":                        "color",
	"Material":                      "material",
	"Tensile strength":              "tensile_strength",
	"Loop tensile strength":         "tensile_strength",
	"Max. bundle diameter":          "max_bundle_diameter",
	"Min. bundle diameter":          "min_bundle_diameter",
	"Bundle diameter":               "bundle_diameter",
	"Temperature resistance":        "temperature_resistance",
	"Operating temperature":         "temperature_resistance",
	"Min. installation temperature": "min_installation_temperature",
	"Approvals":                     "certifications",
	"Certifications":                "certifications",
	"Packaging unit":                "packaging_unit",
	"Insulation material":           "insulation_material",
	"Conductor material":            "conductor_material",
	"Length":                        "length",
	"Width":                         "width",
	"Height":                        "height",
	"Weight":                        "weight",
	"Nominal size":                  "nominal_size",
	"Cable cross-section":           "cable_cross_section",
	"Cable cross section":           "cable_cross_section",
}

// defaultSynonyms returns fresh copies of the static tables
func defaultSynonyms() map[model.Language]map[string]string {
	out := map[model.Language]map[string]string{
		model.LangDE: make(map[string]string, len(germanSynonyms)),
		model.LangEN: make(map[string]string, len(englishSynonyms)),
	}
	for k, v := range germanSynonyms {
		out[model.LangDE][k] = v
	}
	for k, v := range englishSynonyms {
		out[model.LangEN][k] = v
	}
	return out
}
