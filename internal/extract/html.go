package extract

import (
	"strings"

	"golang.org/x/net/html"
)

// findAll finds all nodes matching a predicate in document order
func findAll(n *html.Node, predicate func(*html.Node) bool) []*html.Node {
	var results []*html.Node

	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if predicate(node) {
			results = append(results, node)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(n)
	return results
}

// isElement checks the node is an element with one of the given tag names
func isElement(n *html.Node, tags ...string) bool {
	if n.Type != html.ElementNode {
		return false
	}
	for _, tag := range tags {
		if n.Data == tag {
			return true
		}
	}
	return false
}

// cellText extracts the visible text of a table cell, skipping nested tables
// (their rows are scanned on their own) and collapsing whitespace
func cellText(n *html.Node) string {
	var buf strings.Builder

	var walk func(*html.Node)
	walk = func(node *html.Node) {
		switch {
		case node.Type == html.TextNode:
			buf.WriteString(node.Data)
			return
		case isElement(node, "table", "script", "style"):
			return
		case isElement(node, "br"):
			buf.WriteString(" ")
			return
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c)
	}
	return collapseSpace(buf.String())
}

// directCells returns the td/th children of a row
func directCells(row *html.Node) []*html.Node {
	var cells []*html.Node
	for c := row.FirstChild; c != nil; c = c.NextSibling {
		if isElement(c, "td", "th") {
			cells = append(cells, c)
		}
	}
	return cells
}

// blockTags start a new line of free text
var blockTags = map[string]bool{
	"p": true, "div": true, "li": true, "ul": true, "ol": true, "dl": true,
	"dt": true, "dd": true, "h1": true, "h2": true, "h3": true, "h4": true,
	"h5": true, "h6": true, "section": true, "article": true, "blockquote": true,
	"pre": true, "hr": true, "body": true,
}

// freeTextLines collects text outside of tables, split at block boundaries and <br>
func freeTextLines(n *html.Node) []string {
	var lines []string
	var current strings.Builder

	flush := func() {
		line := collapseSpace(current.String())
		if line != "" {
			lines = append(lines, line)
		}
		current.Reset()
	}

	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			current.WriteString(node.Data)
			return
		}
		if node.Type == html.ElementNode {
			switch node.Data {
			case "table", "tr", "script", "style", "noscript", "head":
				flush()
				return
			case "br":
				flush()
				return
			}
			if blockTags[node.Data] {
				flush()
				defer flush()
			}
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(n)
	flush()
	return lines
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// emphasisPairs finds "<strong>Name</strong> value" pairs outside of tables
func emphasisPairs(n *html.Node) [][2]string {
	var pairs [][2]string
	for _, em := range findAll(n, func(n *html.Node) bool { return isElement(n, "strong", "b") }) {
		if insideTable(em) {
			continue
		}
		next := em.NextSibling
		if next == nil || next.Type != html.TextNode {
			continue
		}
		name := collapseSpace(cellText(em))
		value := collapseSpace(next.Data)
		if name == "" || value == "" {
			continue
		}
		pairs = append(pairs, [2]string{name, value})
	}
	return pairs
}

func insideTable(n *html.Node) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if isElement(p, "table", "tr") {
			return true
		}
	}
	return false
}
