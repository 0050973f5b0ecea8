package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/proptable/internal/csvio"
	"github.com/ppiankov/proptable/internal/model"
	"github.com/ppiankov/proptable/internal/store"
)

var (
	importTimeout time.Duration
	reportPath    string
)

// importCmd represents the import command
var importCmd = &cobra.Command{
	Use:   "import <file.csv>",
	Short: "Import articles and extract their properties",
	Long: `Import reads a shop export and for every article:
- Extracts the property tables of p_desc.de and p_desc.en
- Maps raw names through confirmed mappings and synonym tables
- Normalizes numbers, ranges and units
- Detects property names the registry does not know and registers them
- Stores the article and its properties, superseding earlier imports

New names get advisory mapping suggestions. Nothing is mapped until
confirmed with 'proptable map confirm'.

Example:
  proptable import artikel.csv
  proptable import artikel.csv --encoding utf-8 --separator ,
  proptable import artikel.csv --workers 4 --report import.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)

	addCSVFlags(importCmd)
	importCmd.Flags().Int("workers", 1, "number of concurrent store writers")
	importCmd.Flags().Float64("rate", 0, "max articles written per second (0 = unlimited)")
	importCmd.Flags().Bool("detect", true, "detect and register new property names")
	importCmd.Flags().DurationVar(&importTimeout, "timeout", 30*time.Minute, "total timeout for the import")
	importCmd.Flags().StringVar(&reportPath, "report", "", "write the full import report (.json or .yaml)")
}

func runImport(cmd *cobra.Command, args []string) error {
	file := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), importTimeout)
	defer cancel()

	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	opts, err := csvOptions(cmd, s.cfg)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("workers") {
		s.cfg.Import.Workers, _ = cmd.Flags().GetInt("workers")
		if s.cfg.Import.Workers <= 0 {
			s.cfg.Import.Workers = runtime.NumCPU()
		}
	}
	if cmd.Flags().Changed("rate") {
		s.cfg.Import.RatePerSecond, _ = cmd.Flags().GetFloat64("rate")
	}
	if cmd.Flags().Changed("detect") {
		s.cfg.Import.DetectNewProperties, _ = cmd.Flags().GetBool("detect")
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Proptable Import\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(os.Stderr, "  Encoding:     %s\n", opts.Encoding)
	fmt.Fprintf(os.Stderr, "  Store:        %s\n", s.store.Path())
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", s.cfg.Import.Workers)
	fmt.Fprintf(os.Stderr, "\n")

	read, err := csvio.ReadFile(file, opts)
	if err != nil {
		return fmt.Errorf("read %s: %w", file, err)
	}
	for _, d := range read.Diagnostics {
		fmt.Fprintf(os.Stderr, "⚠ %s\n", d)
	}
	fmt.Fprintf(os.Stderr, "✓ Loaded %d articles\n", len(read.Articles))

	report, importErr := s.pipeline.Importer(file).Import(ctx, read.Articles)
	if report != nil {
		printImportReport(report)
		if reportPath != "" {
			if err := writeStructured(reportPath, report); err != nil {
				fmt.Fprintf(os.Stderr, "✗ Failed to write report: %v\n", err)
			}
		}
	}

	if importErr != nil {
		if errors.Is(importErr, store.ErrUnavailable) {
			return fmt.Errorf("import aborted: %w", importErr)
		}
		return fmt.Errorf("import failed: %w", importErr)
	}
	return nil
}

func printImportReport(r *model.ImportReport) {
	if verbose {
		for _, d := range r.Diagnostics {
			fmt.Fprintf(os.Stderr, "⚠ %s\n", d)
		}
	}
	for _, o := range r.Outcomes {
		mark := "⚠"
		if o.Status == model.StatusFailed {
			mark = "✗"
		}
		if o.Status == model.StatusFailed || verbose {
			fmt.Fprintf(os.Stderr, "%s %s %s: %s\n", mark, o.Op, o.Target, o.Detail)
		}
	}

	if len(r.Suggestions) > 0 {
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "Mapping suggestions (advisory):\n")
		names := make([]string, 0, len(r.Suggestions))
		for name := range r.Suggestions {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			printSuggestions(name, r.Suggestions[name])
		}
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Import Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Run:          %s\n", r.RunID)
	fmt.Fprintf(os.Stderr, "  Articles:     %d\n", r.Articles)
	fmt.Fprintf(os.Stderr, "  Properties:   %d\n", r.Properties)
	fmt.Fprintf(os.Stderr, "  New names:    %d (%d registered)\n", len(r.NewProperties), r.Registered)
	fmt.Fprintf(os.Stderr, "  Diagnostics:  %d\n", len(r.Diagnostics))
	fmt.Fprintf(os.Stderr, "  Failures:     %d\n", r.Failures)
	if !r.FinishedAt.IsZero() {
		fmt.Fprintf(os.Stderr, "  Duration:     %v\n", r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
	}
	fmt.Fprintf(os.Stderr, "\n")
}

func printSuggestions(name string, suggestions []model.Suggestion) {
	if len(suggestions) == 0 {
		fmt.Fprintf(os.Stderr, "  %s: no candidates\n", name)
		return
	}
	fmt.Fprintf(os.Stderr, "  %s:", name)
	for _, s := range suggestions {
		fmt.Fprintf(os.Stderr, " %s (%.2f)", s.Name, s.Score)
	}
	fmt.Fprintf(os.Stderr, "\n")
}
