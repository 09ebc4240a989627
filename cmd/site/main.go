// Package main provides the site CLI entry point.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/subhylahiri/sitegen/internal/config"
	"github.com/subhylahiri/sitegen/internal/loader"
	"github.com/subhylahiri/sitegen/internal/site"
	"github.com/subhylahiri/sitegen/internal/storage"
	"github.com/subhylahiri/sitegen/internal/works"
)

// Version is set at build time via ldflags
var Version = "dev"

var (
	// humanOutput controls whether to use human-readable output
	humanOutput bool
	verbose     bool
	remote      bool

	logger = zap.NewNop()
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		// Print the error since we have SilenceErrors: true
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "site",
	Short: "Render navigation and publication lists into a static site",
	Long: `site renders the shared navigation bar, footer and the publication,
presentation and project lists of a static academic homepage.

Pages are plain HTML files listed in site.yml. Works and navigation tabs
come from JSON data files; each render inserts them into the pages after
their anchor elements. All commands output JSON by default.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = newLogger(verbose, humanOutput)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug messages")
	rootCmd.PersistentFlags().BoolVar(&remote, "remote", false, "Read data files from the deployed site (site_url)")
	rootCmd.Version = Version
}

// newLogger builds the stderr logger. Human output gets the console
// encoder, JSON output stays machine-readable.
func newLogger(debug, human bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	if human {
		cfg.Encoding = "console"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	return cfg.Build()
}

// getStartingDirectory returns the directory to start searching for a site.
// Checks the global config site_path first, then the current directory.
func getStartingDirectory() (string, int) {
	path, err := config.ValidateSitePath()
	if err != nil {
		return "", outputError(ExitConfigError, "%v", err)
	}
	if path != "" {
		return path, 0
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", outputError(ExitError, "getting current directory: %v", err)
	}
	return cwd, 0
}

// mustFindSite finds the site root, exits on error.
func mustFindSite() string {
	start, exitCode := getStartingDirectory()
	if exitCode != 0 {
		os.Exit(exitCode)
	}

	root, err := config.FindSite(start)
	if err != nil {
		fmt.Fprintln(os.Stderr, config.HelpfulConfigMessage())
		os.Exit(ExitConfigError)
	}
	return root
}

// mustLoadConfig loads and compiles configuration, exits on error.
func mustLoadConfig(root string) (*config.Config, config.Settings) {
	cfg, err := config.Load(root)
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %v", err)
	}
	settings, err := cfg.Compile()
	if err != nil {
		exitWithError(ExitConfigError, "invalid config: %v", err)
	}
	return cfg, settings
}

// mustLoader returns the data loader: the site directory, or the deployed
// site with --remote.
func mustLoader(root string, cfg *config.Config) loader.Loader {
	if !remote {
		return loader.NewFSLoader(os.DirFS(root))
	}
	if cfg.SiteURL == "" {
		exitWithError(ExitConfigError, "--remote needs site_url in %s or %s", config.ConfigFile, config.EnvSiteURL)
	}
	l, err := loader.NewHTTPLoader(cfg.SiteURL)
	if err != nil {
		exitWithError(ExitConfigError, "invalid site_url: %v", err)
	}
	return l
}

// mustRenderer builds a renderer over the site's data.
func mustRenderer(root string, cfg *config.Config, settings config.Settings) *site.Renderer {
	return site.New(cfg, settings, mustLoader(root, cfg), site.WithLogger(logger))
}

// mustLoadCatalog reads works.json as seen from the site root.
func mustLoadCatalog(ctx context.Context, root string, cfg *config.Config, settings config.Settings) *works.Catalog {
	cat, err := mustRenderer(root, cfg, settings).LoadCatalog(ctx, config.Page{Path: "index.html", Base: "/"})
	if err != nil {
		code := ExitError
		if errors.Is(err, loader.ErrDecode) {
			code = ExitDataError
		}
		exitWithError(code, "loading %s: %v", cfg.Data.Works, err)
	}
	return cat
}

// mustOpenIndex rebuilds the works index from a catalog, exits on error.
// The caller is responsible for calling Close() on the returned DB.
func mustOpenIndex(root string, cat *works.Catalog) *storage.DB {
	if err := os.MkdirAll(config.CachePath(root), 0755); err != nil {
		exitWithError(ExitError, "creating cache directory: %v", err)
	}
	db, err := storage.OpenDB(config.DBPath(root))
	if err != nil {
		exitWithError(ExitError, "opening index: %v", err)
	}
	if _, err := db.Rebuild(cat); err != nil {
		db.Close()
		exitWithError(ExitError, "rebuilding index: %v", err)
	}
	return db
}

// outputDir resolves the render output directory against the site root.
func outputDir(root, dir string) string {
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(root, dir)
}
