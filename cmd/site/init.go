package main

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/subhylahiri/sitegen/internal/config"
)

func init() {
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new site",
	Long: `Initialize a new site in the current directory.

Creates:
  site.yml           # Default config rendering nav and footer into index.html
  data/works.json    # Empty, unless it already exists
  data/nav.json      # Empty, unless it already exists
  .cache/            # Works index (gitignored)`,
	RunE: runInit,
}

// emptyData is written to data files that do not exist yet.
var emptyData = map[string]string{
	config.DefaultWorks: "{}\n",
	config.DefaultNav:   "[]\n",
}

func runInit(cmd *cobra.Command, args []string) error {
	root, err := os.Getwd()
	if err != nil {
		exitWithError(ExitError, "getting current directory: %v", err)
	}

	if config.IsSite(root) {
		exitWithError(ExitError, "directory already contains a %s", config.ConfigFile)
	}

	if err := os.MkdirAll(config.CachePath(root), 0755); err != nil {
		exitWithError(ExitError, "creating cache directory: %v", err)
	}
	for rel, content := range emptyData {
		if err := writeIfMissing(filepath.Join(root, filepath.FromSlash(rel)), content); err != nil {
			exitWithError(ExitError, "creating %s: %v", rel, err)
		}
	}

	cfg := &config.Config{
		Data: config.DataFiles{
			Works: config.DefaultWorks,
			Nav:   config.DefaultNav,
		},
		Pages: []config.Page{
			{Path: "index.html", Sections: config.DefaultSections},
		},
		Output: config.DefaultOutput,
	}
	if err := cfg.Save(root); err != nil {
		exitWithError(ExitError, "creating %s: %v", config.ConfigFile, err)
	}

	if humanOutput {
		outputHuman("Initialized site in %s\n", root)
	} else {
		outputJSON(StatusResponse{
			Status: "initialized",
			Path:   root,
		})
	}
	return nil
}

// writeIfMissing creates path with content, leaving an existing file alone.
func writeIfMissing(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if errors.Is(err, fs.ErrExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
