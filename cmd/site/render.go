package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/subhylahiri/sitegen/internal/config"
	"github.com/subhylahiri/sitegen/internal/site"
)

var (
	renderOut    string
	renderWatch  bool
	renderStrict bool
)

func init() {
	renderCmd.Flags().StringVarP(&renderOut, "out", "o", "", "Output directory (default: output in site.yml)")
	renderCmd.Flags().BoolVarP(&renderWatch, "watch", "w", false, "Re-render when pages, data or config change")
	renderCmd.Flags().BoolVar(&renderStrict, "strict", false, "Exit with an error if any section fails")
	rootCmd.AddCommand(renderCmd)
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render every configured page into the output directory",
	Long: `Render every page listed in site.yml into the output directory.

Each page gets the sections it asks for (nav, footer, publications,
presentations, projects). A section whose data cannot be loaded is logged
and skipped; the rest of the page is still rendered.

Examples:
  site render
  site render --out public
  site render --watch --human`,
	RunE: runRender,
}

// RenderResult is the response for the render command.
type RenderResult struct {
	Status string            `json:"status"`
	Output string            `json:"output"`
	Pages  []site.PageResult `json:"pages"`
}

func runRender(cmd *cobra.Command, args []string) error {
	root := mustFindSite()
	cfg, settings := mustLoadConfig(root)

	out := renderOut
	if out == "" {
		out = cfg.Output
	}
	out = outputDir(root, out)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	failed := renderOnce(ctx, root, out, cfg, settings)
	if !renderWatch {
		if failed && renderStrict {
			os.Exit(ExitDataError)
		}
		return nil
	}

	w, err := site.NewWatcher(root, out, logger)
	if err != nil {
		exitWithError(ExitError, "starting watcher: %v", err)
	}
	defer w.Close()

	logger.Info("watching for changes", zap.String("root", root))
	err = w.Run(ctx, func(ctx context.Context, paths []string) {
		logger.Info("change detected", zap.Strings("paths", paths))
		if reloadsConfig(root, paths) {
			reloaded, s, err := reloadConfig(root)
			if err != nil {
				logger.Error("config not reloaded", zap.Error(err))
				return
			}
			cfg, settings = reloaded, s
		}
		renderOnce(ctx, root, out, cfg, settings)
	})
	if err != nil && ctx.Err() == nil {
		exitWithError(ExitError, "watching: %v", err)
	}
	return nil
}

// renderOnce renders the whole site and reports it. It returns whether
// any section failed.
func renderOnce(ctx context.Context, root, out string, cfg *config.Config, settings config.Settings) bool {
	results, err := mustRenderer(root, cfg, settings).RenderSite(ctx, root, out)
	if err != nil {
		if errors.Is(err, site.ErrOutputIsSource) {
			exitWithError(ExitConfigError, "%v", err)
		}
		if renderWatch {
			logger.Error("render failed", zap.Error(err))
			return true
		}
		exitWithError(ExitError, "rendering: %v", err)
	}

	failed := false
	for _, r := range results {
		failed = failed || r.Failed()
	}

	status := "ok"
	if failed {
		status = "partial"
	}

	if humanOutput {
		for _, r := range results {
			printPageResult(r)
		}
		outputHuman("Rendered %d page%s into %s (%s)\n", len(results), plural(len(results)), out, status)
	} else {
		outputJSON(RenderResult{Status: status, Output: out, Pages: results})
	}
	return failed
}

func printPageResult(r site.PageResult) {
	outputHuman("%s\n", r.Path)
	for _, s := range r.Sections {
		if s.Error != "" {
			outputHuman("  %-13s skipped: %s\n", s.Section, s.Error)
			continue
		}
		outputHuman("  %-13s %d inserted\n", s.Section, s.Inserted)
	}
}

// reloadsConfig reports whether any changed path is site.yml or .env.
func reloadsConfig(root string, paths []string) bool {
	for _, p := range paths {
		if p == config.ConfigPath(root) || p == filepath.Join(root, config.EnvFile) {
			return true
		}
	}
	return false
}

func reloadConfig(root string) (*config.Config, config.Settings, error) {
	cfg, err := config.Load(root)
	if err != nil {
		return nil, config.Settings{}, err
	}
	settings, err := cfg.Compile()
	if err != nil {
		return nil, config.Settings{}, err
	}
	return cfg, settings, nil
}
