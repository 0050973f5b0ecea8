package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/proptable/internal/csvio"
)

var exportTimeout time.Duration

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export <file.csv>",
	Short: "Export resolved properties for the shop",
	Long: `Export resolves every stored article against its category and article
overrides and writes one row per article:
- XTSOL placeholder as the first column
- prop_<name> columns for German and prop_<name>.en for English values
- p_desc.de / p_desc.en regenerated as property tables (unless --html=false)

Example:
  proptable export shop.csv
  proptable export shop.csv --html=false --encoding utf-8`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	addCSVFlags(exportCmd)
	exportCmd.Flags().Bool("html", true, "regenerate p_desc.de / p_desc.en tables")
	exportCmd.Flags().Bool("overrides", true, "apply category and article overrides")
	exportCmd.Flags().DurationVar(&exportTimeout, "timeout", 10*time.Minute, "total timeout for the export")
}

func runExport(cmd *cobra.Command, args []string) error {
	file := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), exportTimeout)
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
	if cmd.Flags().Changed("html") {
		s.cfg.Export.IncludeHTML, _ = cmd.Flags().GetBool("html")
	}
	if cmd.Flags().Changed("overrides") {
		s.cfg.Export.ApplyOverrides, _ = cmd.Flags().GetBool("overrides")
	}

	rows, report, err := s.pipeline.Exporter().Export(ctx)
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}
	for _, o := range report.Outcomes {
		fmt.Fprintf(os.Stderr, "✗ %s %s: %s\n", o.Op, o.Target, o.Detail)
	}

	if err := csvio.WriteFile(file, rows, opts); err != nil {
		return fmt.Errorf("write %s: %w", file, err)
	}

	fmt.Fprintf(os.Stderr, "✓ Exported %d articles with %d property columns to %s\n", report.Articles, report.Columns, file)
	if report.Failures > 0 {
		fmt.Fprintf(os.Stderr, "⚠ %d articles failed and were skipped\n", report.Failures)
	}
	return nil
}
