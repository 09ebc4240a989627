package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/subhylahiri/sitegen/internal/export"
	"github.com/subhylahiri/sitegen/internal/works"
)

var (
	exportBibtex bool
	exportKeys   string
	exportAppend string
)

func init() {
	exportCmd.Flags().BoolVar(&exportBibtex, "bibtex", false, "Export to BibTeX format")
	exportCmd.Flags().StringVar(&exportKeys, "keys", "", "Export only specified work ids (comma-separated)")
	exportCmd.Flags().StringVar(&exportAppend, "append", "", "Append entries missing from this .bib file instead of printing")
	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export papers to BibTeX format",
	Long: `Export articles, preprints and abstracts to BibTeX format.

A preprint that an article links through sameAs is exported as the
article's eprint field rather than as an entry of its own.

Examples:
  site export --bibtex
  site export --bibtex --keys synapse2019,capacity2021
  site export --bibtex --append papers.bib`,
	RunE: runExport,
}

// ExportResult is the response for export --append.
type ExportResult struct {
	Status   string   `json:"status"`
	Path     string   `json:"path"`
	Appended []string `json:"appended"`
	Skipped  int      `json:"skipped"`
}

func runExport(cmd *cobra.Command, args []string) error {
	if !exportBibtex {
		exitWithError(ExitError, "--bibtex flag is required")
	}

	root := mustFindSite()
	cfg, settings := mustLoadConfig(root)
	cat := mustLoadCatalog(cmd.Context(), root, cfg, settings)

	entries, err := export.FromCatalog(cat)
	if err != nil {
		code := ExitError
		if errors.Is(err, works.ErrIntegrity) {
			code = ExitDataError
		}
		exitWithError(code, "%v", err)
	}

	if exportKeys != "" {
		entries, err = selectEntries(entries, strings.Split(exportKeys, ","))
		if err != nil {
			exitWithError(ExitError, "%v", err)
		}
	}

	if exportAppend == "" {
		// BibTeX is always text output, never JSON
		outputHuman("%s", export.ToBibTeXList(entries))
		return nil
	}

	idx, err := export.ParseBibTeXFile(exportAppend)
	if err != nil {
		exitWithError(ExitError, "reading %s: %v", exportAppend, err)
	}
	missing := idx.Missing(entries)
	result := ExportResult{
		Status:   "ok",
		Path:     exportAppend,
		Appended: []string{},
		Skipped:  len(entries) - len(missing),
	}
	if len(missing) > 0 {
		if err := export.AppendToBibFile(exportAppend, export.ToBibTeXList(missing)); err != nil {
			exitWithError(ExitError, "writing %s: %v", exportAppend, err)
		}
		for _, e := range missing {
			result.Appended = append(result.Appended, e.Work.ID)
		}
	}

	if humanOutput {
		outputHuman("Appended %d entr%s to %s (%d already present)\n",
			len(result.Appended), pluralY(len(result.Appended)), exportAppend, result.Skipped)
	} else {
		outputJSON(result)
	}
	return nil
}

// selectEntries keeps the entries named by keys, in key order.
func selectEntries(entries []export.Entry, keys []string) ([]export.Entry, error) {
	byID := make(map[string]export.Entry, len(entries))
	for _, e := range entries {
		byID[e.Work.ID] = e
	}

	var out []export.Entry
	for _, key := range keys {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		e, ok := byID[key]
		if !ok {
			return nil, fmt.Errorf("unknown key: %s", key)
		}
		out = append(out, e)
	}
	return out, nil
}

func pluralY(n int) string {
	if n == 1 {
		return "y"
	}
	return "ies"
}
