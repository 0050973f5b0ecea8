package csvio

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// Options controls how article CSV files are read and written
type Options struct {
	Encoding  string // iso-8859-1, windows-1252 or utf-8
	Separator string // Single character, ";" when empty
}

// DefaultOptions matches the shop export format
func DefaultOptions() Options {
	return Options{Encoding: "iso-8859-1", Separator: ";"}
}

// Charset looks up a supported encoding by name
func Charset(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "iso-8859-1", "iso8859-1", "latin1", "latin-1":
		return charmap.ISO8859_1, nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252, nil
	case "utf-8", "utf8":
		// Strips a leading byte order mark on read
		return unicode.UTF8BOM, nil
	default:
		return nil, fmt.Errorf("unsupported encoding %q (use iso-8859-1, windows-1252 or utf-8)", name)
	}
}

func (o Options) separator() (rune, error) {
	if o.Separator == "" {
		return ';', nil
	}
	r, size := utf8.DecodeRuneInString(o.Separator)
	if size != len(o.Separator) || r == '"' || r == '\r' || r == '\n' {
		return 0, fmt.Errorf("invalid separator %q", o.Separator)
	}
	return r, nil
}
