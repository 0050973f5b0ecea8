package csvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/transform"

	"github.com/ppiankov/proptable/internal/model"
)

// Column names recognized in shop exports
const (
	ColumnPlaceholder = "XTSOL" // Constant first column, never an article id
	ColumnDescDE      = "p_desc.de"
	ColumnDescEN      = "p_desc.en"
	ColumnName        = "p_name"
)

var (
	idColumns       = []string{"p_model", "article_id", "XTINR"}
	categoryColumns = []string{"p_category", "category"}
	nameColumns     = []string{ColumnName, "name"}
)

// ErrNoDescriptions is returned when a file has neither description column
var ErrNoDescriptions = errors.New("neither p_desc.de nor p_desc.en column found")

// ErrNoIDColumn is returned when no article id column can be identified
var ErrNoIDColumn = errors.New("could not identify article id column (p_model, article_id, XTINR)")

// ReadResult holds the articles of one file and the row-level problems found
type ReadResult struct {
	Articles    []model.Article
	Diagnostics []string
}

// ReadFile decodes an article CSV file from disk
func ReadFile(path string, opts Options) (*ReadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	return Read(f, opts)
}

// Read decodes articles from r. Short or malformed rows are reported as
// diagnostics and skipped; only an unreadable header is an error.
func Read(r io.Reader, opts Options) (*ReadResult, error) {
	charset, err := Charset(opts.Encoding)
	if err != nil {
		return nil, err
	}
	sep, err := opts.separator()
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(transform.NewReader(r, charset.NewDecoder()))
	cr.Comma = sep
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty file")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if _, dup := cols[name]; !dup {
			cols[name] = i
		}
	}

	descDE, hasDE := cols[ColumnDescDE]
	descEN, hasEN := cols[ColumnDescEN]
	if !hasDE && !hasEN {
		return nil, ErrNoDescriptions
	}

	idCol, ok := firstColumn(cols, idColumns)
	if !ok {
		return nil, ErrNoIDColumn
	}
	categoryCol, hasCategory := firstColumn(cols, categoryColumns)
	nameCol, hasName := firstColumn(cols, nameColumns)

	res := &ReadResult{}
	line := 1
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			res.Diagnostics = append(res.Diagnostics, fmt.Sprintf("line %d: %v", line, err))
			continue
		}

		a := model.Article{
			ID:           field(record, idCol, true),
			Descriptions: make(map[model.Language]string),
		}
		if hasName {
			a.Name = field(record, nameCol, true)
		}
		if hasCategory {
			a.Category = field(record, categoryCol, true)
		}
		if hasDE {
			if d := field(record, descDE, false); strings.TrimSpace(d) != "" {
				a.Descriptions[model.LangDE] = d
			}
		}
		if hasEN {
			if d := field(record, descEN, false); strings.TrimSpace(d) != "" {
				a.Descriptions[model.LangEN] = d
			}
		}

		if a.ID == "" {
			res.Diagnostics = append(res.Diagnostics, fmt.Sprintf("line %d: missing article id", line))
		}
		res.Articles = append(res.Articles, a)
	}

	return res, nil
}

func firstColumn(cols map[string]int, candidates []string) (int, bool) {
	for _, name := range candidates {
		if i, ok := cols[name]; ok {
			return i, true
		}
	}
	return 0, false
}

func field(record []string, i int, trim bool) string {
	if i >= len(record) {
		return ""
	}
	if trim {
		return strings.TrimSpace(record[i])
	}
	return record[i]
}
