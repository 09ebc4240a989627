package main

import (
	"bytes"
	"errors"

	"github.com/spf13/cobra"
	"golang.org/x/net/html"

	"github.com/subhylahiri/sitegen/internal/cite"
	"github.com/subhylahiri/sitegen/internal/render"
	"github.com/subhylahiri/sitegen/internal/works"
)

func init() {
	rootCmd.AddCommand(citeCmd)
}

var citeCmd = &cobra.Command{
	Use:   "cite <id>...",
	Short: "Print the citation of one or more papers",
	Long: `Print the citation a page would show for each paper id.

JSON output carries both the plain text and the HTML of each citation.
A preprint that is cited through its article is reported as suppressed.

Examples:
  site cite synapse2019
  site cite synapse2019 capacity2021 --human`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCite,
}

// CiteResult is one citation in the cite command's response.
type CiteResult struct {
	ID         string     `json:"id"`
	Kind       works.Kind `json:"type"`
	Text       string     `json:"text,omitempty"`
	HTML       string     `json:"html,omitempty"`
	Suppressed bool       `json:"suppressed,omitempty"`
}

func runCite(cmd *cobra.Command, args []string) error {
	root := mustFindSite()
	cfg, settings := mustLoadConfig(root)
	cat := mustLoadCatalog(cmd.Context(), root, cfg, settings)
	f := cite.NewFormatter(settings.Self, cat)

	results := make([]CiteResult, 0, len(args))
	for _, id := range args {
		w, ok := cat.Find(id)
		if !ok {
			exitWithError(ExitError, "unknown id: %s", id)
		}
		r, err := citeWork(f, w)
		if err != nil {
			code := ExitError
			if errors.Is(err, works.ErrIntegrity) {
				code = ExitDataError
			}
			exitWithError(code, "%v", err)
		}
		results = append(results, r)
	}

	if humanOutput {
		for _, r := range results {
			if r.Suppressed {
				outputHuman("%s: cited with its article\n", r.ID)
				continue
			}
			outputHuman("%s\n", r.Text)
		}
		return nil
	}

	outputJSON(results)
	return nil
}

// citeWork formats one paper. Slides and posters are rejected.
func citeWork(f *cite.Formatter, w works.Work) (CiteResult, error) {
	r := CiteResult{ID: w.ID, Kind: w.Kind}
	frags, err := f.Cite(w)
	if err != nil {
		return r, err
	}
	if frags == nil {
		r.Suppressed = true
		return r, nil
	}

	r.Text = cite.PlainText(frags)
	var buf bytes.Buffer
	for _, n := range render.Nodes(frags) {
		if err := html.Render(&buf, n); err != nil {
			return r, err
		}
	}
	r.HTML = buf.String()
	return r, nil
}
