package extract

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Source tells where a pair was found
type Source string

const (
	SourceTable Source = "table"
	SourceText  Source = "text"
)

// Pair is one raw property name/value found in a fragment
type Pair struct {
	Name   string
	Value  string
	Source Source
}

// Result is the ordered set of raw pairs extracted from one fragment.
// Names are unique; a repeated name keeps its first position and its last value.
type Result struct {
	Pairs       []Pair
	Diagnostics []string
}

// Map returns the pairs as a plain name -> value map
func (r Result) Map() map[string]string {
	out := make(map[string]string, len(r.Pairs))
	for _, p := range r.Pairs {
		out[p.Name] = p.Value
	}
	return out
}

// Names returns the raw names in document order
func (r Result) Names() []string {
	names := make([]string, len(r.Pairs))
	for i, p := range r.Pairs {
		names[i] = p.Name
	}
	return names
}

// TableExtractor pulls raw property pairs out of HTML description fragments
type TableExtractor struct {
	textPair  *regexp.Regexp
	maxWords  int
	tableHint *regexp.Regexp
	rowHint   *regexp.Regexp
}

// NewTableExtractor creates a new table extractor
func NewTableExtractor() *TableExtractor {
	return &TableExtractor{
		// "Name: value" on one line of free text
		textPair:  regexp.MustCompile(`^(\p{L}[\p{L}\p{N} .,/()'+&_-]{0,80}?)\s*:\s*(\S.*)$`),
		maxWords:  6,
		tableHint: regexp.MustCompile(`(?i)<table[\s>]`),
		rowHint:   regexp.MustCompile(`(?i)<tr[\s>]`),
	}
}

// Extract scans every table row (nested and sibling tables included) and then
// the free text outside tables. It never fails: problems are reported as diagnostics.
func (e *TableExtractor) Extract(fragment string) Result {
	var res Result

	if strings.TrimSpace(fragment) == "" {
		res.Diagnostics = append(res.Diagnostics, "empty fragment")
		return res
	}

	doc, err := e.parse(fragment)
	if err != nil {
		res.Diagnostics = append(res.Diagnostics, fmt.Sprintf("unparsable fragment: %v", err))
		return res
	}

	index := make(map[string]int)
	set := func(name, value string, source Source) {
		if i, ok := index[name]; ok {
			prev := res.Pairs[i]
			// Free text is a fallback and never replaces a table row
			if source == SourceText && prev.Source == SourceTable {
				return
			}
			if prev.Value != value {
				res.Diagnostics = append(res.Diagnostics,
					fmt.Sprintf("duplicate property %q: %q replaces %q", name, value, prev.Value))
			}
			res.Pairs[i] = Pair{Name: name, Value: value, Source: source}
			return
		}
		index[name] = len(res.Pairs)
		res.Pairs = append(res.Pairs, Pair{Name: name, Value: value, Source: source})
	}

	rows := findAll(doc, func(n *html.Node) bool { return isElement(n, "tr") })
	for _, row := range rows {
		cells := directCells(row)
		if len(cells) < 2 {
			continue
		}
		name := cleanName(cellText(cells[0]))
		value := cellText(cells[1])
		if name == "" || value == "" {
			continue
		}
		set(name, value, SourceTable)
	}

	for _, line := range freeTextLines(doc) {
		name, value, ok := e.matchTextPair(line)
		if !ok {
			continue
		}
		set(name, value, SourceText)
	}

	for _, pair := range emphasisPairs(doc) {
		name := cleanName(pair[0])
		if name == "" || len(strings.Fields(name)) > e.maxWords {
			continue
		}
		if _, seen := index[name]; seen {
			continue
		}
		set(name, pair[1], SourceText)
	}

	if len(res.Pairs) == 0 {
		res.Diagnostics = append(res.Diagnostics, "no properties found")
	}

	return res
}

// parse builds a node tree. Fragments holding bare rows without a <table>
// are parsed in table context, otherwise the HTML parser would drop the row markup.
func (e *TableExtractor) parse(fragment string) (*html.Node, error) {
	if e.rowHint.MatchString(fragment) && !e.tableHint.MatchString(fragment) {
		context := &html.Node{Type: html.ElementNode, Data: "table", DataAtom: atom.Table}
		nodes, err := html.ParseFragment(strings.NewReader(fragment), context)
		if err != nil {
			return nil, err
		}
		root := &html.Node{Type: html.DocumentNode}
		for _, n := range nodes {
			root.AppendChild(n)
		}
		return root, nil
	}
	return html.Parse(strings.NewReader(fragment))
}

func (e *TableExtractor) matchTextPair(line string) (string, string, bool) {
	m := e.textPair.FindStringSubmatch(line)
	if m == nil {
		return "", "", false
	}
	name := cleanName(m[1])
	value := strings.TrimSpace(m[2])
	if name == "" || value == "" || strings.HasPrefix(value, "//") {
		return "", "", false
	}
	if len(strings.Fields(name)) > e.maxWords {
		return "", "", false
	}
	return name, value, true
}

// cleanName strips surrounding whitespace and trailing colons from a raw name
func cleanName(s string) string {
	return strings.TrimSpace(strings.TrimRight(strings.TrimSpace(s), ":"))
}
