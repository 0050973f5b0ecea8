package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/proptable/internal/csvio"
	"github.com/ppiankov/proptable/internal/model"
)

// addCSVFlags registers the flags shared by commands reading or writing CSV
func addCSVFlags(cmd *cobra.Command) {
	cmd.Flags().String("encoding", "", "CSV encoding: iso-8859-1, windows-1252 or utf-8 (default from config)")
	cmd.Flags().String("separator", "", "CSV field separator (default from config)")
}

// csvOptions merges the CSV flags over the configured import settings
func csvOptions(cmd *cobra.Command, cfg *model.Config) (csvio.Options, error) {
	opts := csvio.Options{Encoding: cfg.Import.Encoding, Separator: cfg.Import.Separator}
	if v, _ := cmd.Flags().GetString("encoding"); v != "" {
		opts.Encoding = v
	}
	if v, _ := cmd.Flags().GetString("separator"); v != "" {
		opts.Separator = v
	}
	if _, err := csvio.Charset(opts.Encoding); err != nil {
		return opts, err
	}
	return opts, nil
}

// parseLanguage validates a --lang value
func parseLanguage(s string) (model.Language, error) {
	lang := model.Language(strings.ToLower(strings.TrimSpace(s)))
	if !lang.Valid() {
		return "", fmt.Errorf("unsupported language %q (use de or en)", s)
	}
	return lang, nil
}

// printStructured writes v to w as yaml or json
func printStructured(w io.Writer, v any, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml", "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported format %q (use yaml or json)", format)
	}
}

// writeStructured writes v to path, choosing json or yaml by extension
func writeStructured(path string, v any) (err error) {
	format := "yaml"
	if strings.EqualFold(filepath.Ext(path), ".json") {
		format = "json"
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, closeErr)
		}
	}()

	return printStructured(f, v, format)
}
