package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/proptable/internal/model"
	"github.com/ppiankov/proptable/internal/pipeline"
	"github.com/ppiankov/proptable/internal/store/sqlite"
)

// Version is set at build time
var Version = "v0.1.0"

var (
	cfgFile   string
	verbose   bool
	storePath string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "proptable",
	Short: "Proptable - product property extraction and override resolution",
	Long: `Proptable turns the HTML property tables embedded in bilingual product
descriptions into a canonical, typed property set.

It reconciles unseen property names against a curated registry, suggests
mappings for names it cannot place, and resolves per-article and
per-category overrides into the values written back to the shop export.

Suggestions are advisory. Nothing is mapped until an operator confirms it.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display the version number of proptable.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("proptable %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.proptable/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&storePath, "store", "", "SQLite store path (default: $HOME/.proptable/proptable.db)")

	// Bind flags to viper
	_ = viper.BindPFlag("output.verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("store.path", rootCmd.PersistentFlags().Lookup("store"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	setDefaults(model.DefaultConfig())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		viper.AddConfigPath(filepath.Join(home, ".proptable"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// Read in environment variables that match PROPTABLE_*, e.g. PROPTABLE_STORE_PATH
	viper.SetEnvPrefix("PROPTABLE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// setDefaults registers every key so environment variables can override it
func setDefaults(d model.Config) {
	viper.SetDefault("store.path", d.Store.Path)
	viper.SetDefault("import.encoding", d.Import.Encoding)
	viper.SetDefault("import.separator", d.Import.Separator)
	viper.SetDefault("import.detect_new_properties", d.Import.DetectNewProperties)
	viper.SetDefault("import.workers", d.Import.Workers)
	viper.SetDefault("import.rate_per_second", d.Import.RatePerSecond)
	viper.SetDefault("import.burst", d.Import.Burst)
	viper.SetDefault("export.include_html", d.Export.IncludeHTML)
	viper.SetDefault("export.apply_overrides", d.Export.ApplyOverrides)
	viper.SetDefault("matching.cache_ttl", d.Matching.CacheTTL)
	viper.SetDefault("output.verbose", d.Output.Verbose)
}

// loadConfig merges defaults, config file, environment and flags
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}
	if storePath != "" {
		cfg.Store.Path = storePath
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = model.DefaultConfig().Store.Path
	}
	return &cfg, nil
}

// stderrLogf is installed as the pipeline logger when --verbose is set
func stderrLogf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format, args...)
}

func logger(cfg *model.Config) pipeline.Logf {
	if verbose || cfg.Output.Verbose {
		return stderrLogf
	}
	return nil
}

// session is an opened store with a loaded pipeline
type session struct {
	cfg      *model.Config
	store    *sqlite.Store
	pipeline *pipeline.Pipeline
}

func (s *session) Close() {
	if err := s.store.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: closing store: %v\n", err)
	}
}

// openSession loads the configuration, opens the store and builds the pipeline
func openSession(ctx context.Context) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	st, err := sqlite.NewStore(ctx, cfg.Store.Path)
	if err != nil {
		return nil, err
	}

	logf := logger(cfg)
	logf.Printf("Store: %s\n", st.Path())

	p, err := pipeline.NewPipeline(ctx, cfg, st, logf)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	return &session{cfg: cfg, store: st, pipeline: p}, nil
}
