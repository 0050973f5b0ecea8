package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ppiankov/proptable/internal/model"
	"github.com/ppiankov/proptable/internal/store"
)

var (
	curateLang       string
	defineType       string
	defineUnit       string
	overrideArticle  string
	overrideCategory string
)

// mapCmd groups mapping curation
var mapCmd = &cobra.Command{
	Use:   "map",
	Short: "Curate raw-name mappings",
}

var mapConfirmCmd = &cobra.Command{
	Use:   "confirm <raw-name> <canonical-name>",
	Short: "Confirm that a raw property name means a canonical one",
	Long: `Confirm stores a human-confirmed mapping (confidence 1.0). Confirmed
mappings take precedence over synonym tables and are never replaced by
advisory suggestions.

Example:
  proptable map confirm "Farbe (DE)" color --lang de`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		lang, err := parseLanguage(curateLang)
		if err != nil {
			return err
		}

		ctx := context.Background()
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		m, err := s.pipeline.ConfirmMapping(ctx, args[0], lang, args[1])
		if err != nil {
			return err
		}
		fmt.Printf("✓ %s@%s -> %s (confidence %.1f)\n", m.Original, m.Language, m.Standard, m.Confidence)
		return nil
	},
}

// defineCmd represents the define command
var defineCmd = &cobra.Command{
	Use:   "define <canonical-name>",
	Short: "Create or update a property definition",
	Long: `Define upserts a canonical property with an explicit data type and unit.

Example:
  proptable define tensile_strength --lang de --type number --unit kg`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lang, err := parseLanguage(curateLang)
		if err != nil {
			return err
		}
		dataType := model.DataType(strings.ToLower(defineType))
		switch dataType {
		case model.TypeString, model.TypeNumber, model.TypeBoolean, model.TypeRange:
		default:
			return fmt.Errorf("unsupported type %q (use string, number, boolean or range)", defineType)
		}

		ctx := context.Background()
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		name := s.pipeline.CanonicalName(args[0], lang)
		if name == "" {
			return fmt.Errorf("canonical name must not be empty")
		}

		def := model.PropertyDefinition{Key: model.Key(name, lang), DataType: dataType, Unit: defineUnit}
		if err := s.store.UpsertDefinition(ctx, def); err != nil {
			return fmt.Errorf("define %s: %w", def.Key, err)
		}
		fmt.Printf("✓ Defined %s (%s", def.Key, def.DataType)
		if def.Unit != "" {
			fmt.Printf(", %s", def.Unit)
		}
		fmt.Printf(")\n")
		return nil
	},
}

// overrideCmd groups override curation
var overrideCmd = &cobra.Command{
	Use:   "override",
	Short: "Curate article and category overrides",
	Long: `Overrides replace extracted values at export. Article overrides win over
category overrides, which win over extracted values.

Property names may be given raw as they appear in the shop ("Zugkraft")
or canonical ("tensile_strength").`,
}

var overrideSetCmd = &cobra.Command{
	Use:   "set <property> <value>",
	Short: "Set an override",
	Long: `Example:
  proptable override set Zugkraft "55 kg" --category ties
  proptable override set color black --article A1 --lang en`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		scope, scopeKey, err := overrideScope()
		if err != nil {
			return err
		}
		lang, err := parseLanguage(curateLang)
		if err != nil {
			return err
		}

		ctx := context.Background()
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		o := model.Override{
			Scope:    scope,
			ScopeKey: scopeKey,
			Key:      s.pipeline.CanonicalKey(model.Key(args[0], lang)),
			Value:    args[1],
		}
		if o.Key.Name == "" {
			return fmt.Errorf("property name must not be empty")
		}
		if err := s.store.SetOverride(ctx, o); err != nil {
			return fmt.Errorf("set override: %w", err)
		}
		fmt.Printf("✓ %s %s: %s = %q\n", o.Scope, o.ScopeKey, o.Key, o.Value)
		return nil
	},
}

var overrideRmCmd = &cobra.Command{
	Use:   "rm <property>",
	Short: "Remove an override",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		scope, scopeKey, err := overrideScope()
		if err != nil {
			return err
		}
		lang, err := parseLanguage(curateLang)
		if err != nil {
			return err
		}

		ctx := context.Background()
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		key := s.pipeline.CanonicalKey(model.Key(args[0], lang))
		err = s.store.DeleteOverride(ctx, scope, scopeKey, key)
		if errors.Is(err, store.ErrNotFound) && key.Name != args[0] {
			// Stored before canonicalization
			err = s.store.DeleteOverride(ctx, scope, scopeKey, model.Key(args[0], lang))
		}
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("no %s override for %s on %s", scope, key, scopeKey)
		}
		if err != nil {
			return fmt.Errorf("remove override: %w", err)
		}
		fmt.Printf("✓ Removed %s override %s on %s\n", scope, key, scopeKey)
		return nil
	},
}

var overrideListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all overrides",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		overrides, err := s.store.ListOverrides(ctx)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "SCOPE\tTARGET\tPROPERTY\tVALUE")
		for _, o := range overrides {
			if overrideArticle != "" && (o.Scope != model.ScopeArticle || o.ScopeKey != overrideArticle) {
				continue
			}
			if overrideCategory != "" && (o.Scope != model.ScopeCategory || o.ScopeKey != overrideCategory) {
				continue
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", o.Scope, o.ScopeKey, o.Key, o.Value)
		}
		return w.Flush()
	},
}

// overrideScope picks the scope from --article or --category
func overrideScope() (model.OverrideScope, string, error) {
	switch {
	case overrideArticle != "" && overrideCategory != "":
		return "", "", fmt.Errorf("use either --article or --category, not both")
	case overrideArticle != "":
		return model.ScopeArticle, overrideArticle, nil
	case overrideCategory != "":
		return model.ScopeCategory, overrideCategory, nil
	default:
		return "", "", fmt.Errorf("one of --article or --category is required")
	}
}

func init() {
	rootCmd.AddCommand(mapCmd)
	mapCmd.AddCommand(mapConfirmCmd)
	mapConfirmCmd.Flags().StringVar(&curateLang, "lang", "de", "description language (de or en)")

	rootCmd.AddCommand(defineCmd)
	defineCmd.Flags().StringVar(&curateLang, "lang", "de", "description language (de or en)")
	defineCmd.Flags().StringVar(&defineType, "type", "string", "data type: string, number, boolean or range")
	defineCmd.Flags().StringVar(&defineUnit, "unit", "", "expected unit, e.g. kg or mm")

	rootCmd.AddCommand(overrideCmd)
	for _, c := range []*cobra.Command{overrideSetCmd, overrideRmCmd, overrideListCmd} {
		overrideCmd.AddCommand(c)
		c.Flags().StringVar(&overrideArticle, "article", "", "article id")
		c.Flags().StringVar(&overrideCategory, "category", "", "category name")
	}
	for _, c := range []*cobra.Command{overrideSetCmd, overrideRmCmd} {
		c.Flags().StringVar(&curateLang, "lang", "de", "description language (de or en)")
	}
}
