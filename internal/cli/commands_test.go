package cli

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ppiankov/proptable/internal/csvio"
	"github.com/ppiankov/proptable/internal/model"
	"github.com/ppiankov/proptable/internal/store/sqlite"
)

const shopCSV = "p_model;p_category;p_name;p_desc.de\n" +
	"A1;ties;Kabelbinder;<table><tr><td>Farbton</td><td>Schwarz</td></tr><tr><td>Zugkraft</td><td>50 kg</td></tr></table>\n"

// runProptable executes the root command against a store in dir
func runProptable(t *testing.T, dir string, args ...string) {
	t.Helper()
	base := []string{"--config", filepath.Join(dir, "config.yaml"), "--store", filepath.Join(dir, "proptable.db")}
	rootCmd.SetArgs(append(base, args...))
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("proptable %s: %v", strings.Join(args, " "), err)
	}
}

func TestCommands_ConfirmImportOverrideExport(t *testing.T) {
	defer func() { overrideArticle, overrideCategory, reportPath = "", "", "" }()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("import:\n  encoding: utf-8\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	input := filepath.Join(dir, "artikel.csv")
	if err := os.WriteFile(input, []byte(shopCSV), 0o644); err != nil {
		t.Fatal(err)
	}
	output := filepath.Join(dir, "shop.csv")

	runProptable(t, dir, "map", "confirm", "Farbton", "Color", "--lang", "de")
	runProptable(t, dir, "define", "Gewicht", "--lang", "de", "--type", "number", "--unit", "kg")
	runProptable(t, dir, "import", input, "--report", filepath.Join(dir, "import.yaml"))
	runProptable(t, dir, "override", "set", "Zugkraft", "55 kg", "--category", "ties", "--lang", "de")
	overrideCategory = ""
	runProptable(t, dir, "export", output)

	if _, err := os.Stat(filepath.Join(dir, "import.yaml")); err != nil {
		t.Errorf("Expected import report: %v", err)
	}

	ctx := context.Background()
	st, err := sqlite.NewStore(ctx, filepath.Join(dir, "proptable.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	mappings, err := st.LoadMappings(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(mappings) != 1 || mappings[0].Standard != "color" {
		t.Errorf("Expected Farbton confirmed as color, got %+v", mappings)
	}

	defs, err := st.LoadDefinitions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defined := false
	for _, d := range defs {
		if d.Key == model.Key("weight", model.LangDE) && d.DataType == model.TypeNumber && d.Unit == "kg" {
			defined = true
		}
	}
	if !defined {
		t.Errorf("Expected weight@de defined as number in kg, got %+v", defs)
	}

	overrides, err := st.ListOverrides(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(overrides) != 1 || overrides[0].Key != model.Key("tensile_strength", model.LangDE) {
		t.Errorf("Expected canonical override key, got %+v", overrides)
	}

	raw, err := os.ReadFile(output)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected header and one row, got:\n%s", raw)
	}
	if !strings.HasPrefix(lines[0], csvio.ColumnPlaceholder+";") {
		t.Errorf("Expected %s as first column, got %q", csvio.ColumnPlaceholder, lines[0])
	}
	for _, col := range []string{"prop_color", "prop_tensile_strength"} {
		if !strings.Contains(lines[0], col) {
			t.Errorf("Expected column %s in %q", col, lines[0])
		}
	}
	if !strings.Contains(lines[1], "55 kg") || !strings.Contains(lines[1], "Schwarz") {
		t.Errorf("Expected overridden and mapped values in %q", lines[1])
	}
	if strings.Contains(lines[1], "50 kg") {
		t.Errorf("Extracted value leaked past the category override: %q", lines[1])
	}
}
