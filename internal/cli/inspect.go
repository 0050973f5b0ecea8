package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/proptable/internal/csvio"
	"github.com/ppiankov/proptable/internal/model"
	"github.com/ppiankov/proptable/internal/pipeline"
)

var outputFormat string

// resolveCmd represents the resolve command
var resolveCmd = &cobra.Command{
	Use:   "resolve <article-id>",
	Short: "Show the resolved properties of one article",
	Long: `Resolve applies category and article overrides to the stored properties
of an article and prints each final value with the layer it came from.

Example:
  proptable resolve A1
  proptable resolve A1 --format json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		res, err := s.pipeline.ResolveArticle(ctx, args[0])
		if err != nil {
			return fmt.Errorf("resolve %s: %w", args[0], err)
		}
		return printStructured(os.Stdout, newResolvedView(res), outputFormat)
	},
}

// resolvedView is the printable form of a resolution
type resolvedView struct {
	Article    string             `json:"article" yaml:"article"`
	Category   string             `json:"category,omitempty" yaml:"category,omitempty"`
	Properties []resolvedProperty `json:"properties" yaml:"properties"`
}

type resolvedProperty struct {
	Name     string `json:"name" yaml:"name"`
	Language string `json:"language" yaml:"language"`
	Value    string `json:"value" yaml:"value"`
	Layer    string `json:"layer" yaml:"layer"` // base, category or article
}

func newResolvedView(res *pipeline.Resolution) resolvedView {
	view := resolvedView{Article: res.Article.ID, Category: res.Article.Category, Properties: []resolvedProperty{}}
	for _, k := range res.Keys() {
		view.Properties = append(view.Properties, resolvedProperty{
			Name:     k.Name,
			Language: string(k.Language),
			Value:    res.Properties[k],
			Layer:    string(res.Layers[k]),
		})
	}
	return view
}

// suggestCmd represents the suggest command
var suggestCmd = &cobra.Command{
	Use:   "suggest [file.csv]",
	Short: "Suggest canonical names for unmapped property names",
	Long: `Suggest lists advisory canonical-name candidates for every raw property
name that no confirmed mapping or synonym covers. Without a file, the
descriptions of the stored articles are scanned.

Suggestions are never applied. Confirm one with 'proptable map confirm'.

Example:
  proptable suggest artikel.csv
  proptable suggest --format json`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		var articles []model.Article
		if len(args) == 1 {
			opts, err := csvOptions(cmd, s.cfg)
			if err != nil {
				return err
			}
			read, err := csvio.ReadFile(args[0], opts)
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			articles = read.Articles
		} else {
			articles, err = s.store.Articles(ctx)
			if err != nil {
				return err
			}
		}

		suggestions := s.pipeline.Suggest(articles)
		if len(suggestions) == 0 {
			fmt.Fprintf(os.Stderr, "✓ Every property name is mapped\n")
			return nil
		}
		return printStructured(os.Stdout, suggestions, outputFormat)
	},
}

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:       "list <definitions|mappings|articles|runs>",
	Short:     "List registry and store contents",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"definitions", "mappings", "articles", "runs"},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		switch args[0] {
		case "definitions":
			fmt.Fprintln(w, "NAME\tLANG\tTYPE\tUNIT")
			for _, d := range s.pipeline.Registry().Definitions() {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", d.Key.Name, d.Key.Language, d.DataType, d.Unit)
			}
		case "mappings":
			fmt.Fprintln(w, "ORIGINAL\tLANG\tSTANDARD\tCONFIDENCE")
			for _, m := range s.pipeline.Registry().Mappings() {
				fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\n", m.Original, m.Language, m.Standard, m.Confidence)
			}
		case "articles":
			articles, err := s.store.Articles(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(w, "ID\tCATEGORY\tNAME")
			for _, a := range articles {
				fmt.Fprintf(w, "%s\t%s\t%s\n", a.ID, a.Category, a.Name)
			}
		case "runs":
			runs, err := s.store.Runs(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(w, "RUN\tSOURCE\tSTARTED\tARTICLES\tFAILURES")
			for _, r := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\n", r.ID, r.Source, r.StartedAt.Local().Format(time.DateTime), r.Articles, r.Failures)
			}
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(resolveCmd)
	resolveCmd.Flags().StringVar(&outputFormat, "format", "yaml", "output format: yaml or json")

	rootCmd.AddCommand(suggestCmd)
	addCSVFlags(suggestCmd)
	suggestCmd.Flags().StringVar(&outputFormat, "format", "yaml", "output format: yaml or json")

	rootCmd.AddCommand(listCmd)
}
