package csvio

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/ppiankov/proptable/internal/model"
	"github.com/ppiankov/proptable/internal/pipeline"
)

// Fixed export columns ahead of the property columns
var exportColumns = []string{ColumnPlaceholder, "article_id", "name", "category", ColumnDescDE, ColumnDescEN}

// WriteFile encodes export rows into a CSV file, replacing it
func WriteFile(path string, rows []pipeline.ExportRow, opts Options) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, closeErr)
		}
	}()

	return Write(f, rows, opts)
}

// Write encodes export rows. The first column is the constant XTSOL
// placeholder, property columns follow the fixed columns in name order.
// Characters the target charset cannot represent are replaced.
func Write(w io.Writer, rows []pipeline.ExportRow, opts Options) error {
	charset, err := Charset(opts.Encoding)
	if err != nil {
		return err
	}
	sep, err := opts.separator()
	if err != nil {
		return err
	}

	// Exports carry no byte order mark
	var encoder *encoding.Encoder
	if charset == unicode.UTF8BOM {
		encoder = unicode.UTF8.NewEncoder()
	} else {
		encoder = encoding.ReplaceUnsupported(charset.NewEncoder())
	}

	tw := transform.NewWriter(w, encoder)
	cw := csv.NewWriter(tw)
	cw.Comma = sep

	props := pipeline.Columns(rows)
	header := append(append([]string{}, exportColumns...), props...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, row := range rows {
		record := []string{
			ColumnPlaceholder,
			row.Article.ID,
			row.Article.Name,
			row.Article.Category,
			row.HTML[model.LangDE],
			row.HTML[model.LangEN],
		}
		for _, col := range props {
			record = append(record, row.Columns[col])
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write article %s: %w", row.Article.ID, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	return tw.Close()
}
