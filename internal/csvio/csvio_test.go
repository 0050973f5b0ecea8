package csvio

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/text/encoding/charmap"

	"github.com/ppiankov/proptable/internal/model"
	"github.com/ppiankov/proptable/internal/pipeline"
)

func latin1(t *testing.T, s string) []byte {
	t.Helper()
	b, err := charmap.ISO8859_1.NewEncoder().String(s)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return []byte(b)
}

func TestRead_Latin1ShopExport(t *testing.T) {
	input := "XTSOL;p_model;p_name;p_category;p_desc.de;p_desc.en\n" +
		`XTSOL;A1;Kabelbinder weiß;ties;"<table><tr><td>Farbe</td><td>Weiß</td></tr></table>";` + "\n" +
		"XTSOL;A2;Schelle;clamps;;<p>Color: grey</p>\n"

	res, err := Read(bytes.NewReader(latin1(t, input)), DefaultOptions())
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(res.Articles) != 2 {
		t.Fatalf("Expected 2 articles, got %d", len(res.Articles))
	}

	a := res.Articles[0]
	if a.ID != "A1" || a.Name != "Kabelbinder weiß" || a.Category != "ties" {
		t.Errorf("Unexpected article: %+v", a)
	}
	if a.Descriptions[model.LangDE] != "<table><tr><td>Farbe</td><td>Weiß</td></tr></table>" {
		t.Errorf("Unexpected German description: %q", a.Descriptions[model.LangDE])
	}
	if _, ok := a.Descriptions[model.LangEN]; ok {
		t.Error("Empty description must be omitted")
	}

	if res.Articles[1].Descriptions[model.LangEN] != "<p>Color: grey</p>" {
		t.Errorf("Unexpected English description: %+v", res.Articles[1].Descriptions)
	}
	if len(res.Diagnostics) != 0 {
		t.Errorf("Expected no diagnostics, got %v", res.Diagnostics)
	}
}

func TestRead_IDColumnPreference(t *testing.T) {
	input := "XTSOL;XTINR;category;p_desc.de\nXTSOL;4711;cables;<table></table>\n"

	res, err := Read(strings.NewReader(input), Options{Encoding: "utf-8"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Articles[0].ID != "4711" {
		t.Errorf("Expected XTINR id, got %q", res.Articles[0].ID)
	}
	if res.Articles[0].Category != "cables" {
		t.Errorf("Expected category fallback column, got %q", res.Articles[0].Category)
	}
}

func TestRead_HeaderErrors(t *testing.T) {
	_, err := Read(strings.NewReader("p_model;p_name\nA1;x\n"), Options{Encoding: "utf-8"})
	if !errors.Is(err, ErrNoDescriptions) {
		t.Errorf("Expected ErrNoDescriptions, got %v", err)
	}

	_, err = Read(strings.NewReader("XTSOL;p_desc.de\nXTSOL;x\n"), Options{Encoding: "utf-8"})
	if !errors.Is(err, ErrNoIDColumn) {
		t.Errorf("Expected ErrNoIDColumn, got %v", err)
	}

	_, err = Read(strings.NewReader(""), Options{Encoding: "utf-8"})
	if err == nil {
		t.Error("Expected error for empty input")
	}

	_, err = Read(strings.NewReader("a;b\n"), Options{Encoding: "ebcdic"})
	if err == nil {
		t.Error("Expected error for unsupported encoding")
	}

	_, err = Read(strings.NewReader("a;b\n"), Options{Separator: ";;"})
	if err == nil {
		t.Error("Expected error for multi-character separator")
	}
}

func TestRead_RowProblemsAreDiagnostics(t *testing.T) {
	input := "p_model;p_desc.de\n;<table></table>\nA2\n"

	res, err := Read(strings.NewReader(input), Options{Encoding: "utf-8"})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Articles) != 2 {
		t.Fatalf("Expected short rows to be kept, got %d", len(res.Articles))
	}
	if res.Articles[1].ID != "A2" || len(res.Articles[1].Descriptions) != 0 {
		t.Errorf("Unexpected short row: %+v", res.Articles[1])
	}
	if len(res.Diagnostics) != 1 || !strings.Contains(res.Diagnostics[0], "missing article id") {
		t.Errorf("Expected missing id diagnostic, got %v", res.Diagnostics)
	}
}

func TestRead_UTF8ByteOrderMark(t *testing.T) {
	input := "\ufeffp_model,p_desc.de\nA1,<table><tr><td>Länge</td><td>2 m</td></tr></table>\n"

	res, err := Read(strings.NewReader(input), Options{Encoding: "utf-8", Separator: ","})
	if err != nil {
		t.Fatalf("BOM must not hide the first column: %v", err)
	}
	if !strings.Contains(res.Articles[0].Descriptions[model.LangDE], "Länge") {
		t.Errorf("Unexpected description: %q", res.Articles[0].Descriptions[model.LangDE])
	}
}

func exportRows() []pipeline.ExportRow {
	color := model.Key("color", model.LangDE)
	colorEN := model.Key("color", model.LangEN)
	return []pipeline.ExportRow{
		{
			Article: model.Article{ID: "A1", Name: "Kabelbinder", Category: "ties"},
			Columns: map[string]string{"prop_color": "Weiß", "prop_color.en": "white"},
			HTML: map[model.Language]string{
				model.LangDE: pipeline.RenderTable(model.PropertyMap{color: "Weiß"}, []model.PropertyKey{color}, model.LangDE),
				model.LangEN: pipeline.RenderTable(model.PropertyMap{colorEN: "white"}, []model.PropertyKey{colorEN}, model.LangEN),
			},
		},
		{
			Article: model.Article{ID: "A2", Category: "clamps"},
			Columns: map[string]string{"prop_weight": "0,5 kg"},
		},
	}
}

func TestWrite_Layout(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, exportRows(), DefaultOptions()); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(decoded)), "\n")
	if len(lines) != 3 {
		t.Fatalf("Expected header and 2 rows, got %d lines", len(lines))
	}

	expectedHeader := "XTSOL;article_id;name;category;p_desc.de;p_desc.en;prop_color;prop_color.en;prop_weight"
	if lines[0] != expectedHeader {
		t.Errorf("Unexpected header:\n%s", lines[0])
	}
	if !strings.HasPrefix(lines[1], "XTSOL;A1;Kabelbinder;ties;<table><tr><td>color</td><td>Weiß</td></tr></table>;") {
		t.Errorf("Unexpected first row: %s", lines[1])
	}
	if lines[2] != "XTSOL;A2;;clamps;;;;;0,5 kg" {
		t.Errorf("Unexpected second row: %s", lines[2])
	}
}

func TestWrite_UnsupportedCharactersReplaced(t *testing.T) {
	rows := []pipeline.ExportRow{{
		Article: model.Article{ID: "A1"},
		Columns: map[string]string{"prop_price": "5 €"},
	}}

	var buf bytes.Buffer
	if err := Write(&buf, rows, DefaultOptions()); err != nil {
		t.Fatalf("Latin-1 export must not fail on unsupported characters: %v", err)
	}
	if bytes.Contains(buf.Bytes(), []byte("€")) {
		t.Error("Expected euro sign to be replaced")
	}

	buf.Reset()
	if err := Write(&buf, rows, Options{Encoding: "windows-1252"}); err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(buf.Bytes(), []byte{0x80}) {
		t.Error("Expected Windows-1252 euro sign")
	}
}

func TestWriteFile_ReadsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.csv")
	if err := WriteFile(path, exportRows(), DefaultOptions()); err != nil {
		t.Fatal(err)
	}

	res, err := ReadFile(path, DefaultOptions())
	if err != nil {
		t.Fatalf("Exported file must be importable: %v", err)
	}
	if len(res.Articles) != 2 {
		t.Fatalf("Expected 2 articles, got %d", len(res.Articles))
	}

	a := res.Articles[0]
	if a.ID != "A1" || a.Name != "Kabelbinder" || a.Category != "ties" {
		t.Errorf("Unexpected article: %+v", a)
	}
	if a.Descriptions[model.LangEN] != "<table><tr><td>color</td><td>white</td></tr></table>" {
		t.Errorf("Unexpected English description: %q", a.Descriptions[model.LangEN])
	}
}
