package main

import (
	"errors"
	"net/url"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/subhylahiri/sitegen/internal/assets"
	"github.com/subhylahiri/sitegen/internal/config"
	"github.com/subhylahiri/sitegen/internal/linkcheck"
	"github.com/subhylahiri/sitegen/internal/loader"
	"github.com/subhylahiri/sitegen/internal/nav"
	"github.com/subhylahiri/sitegen/internal/works"
)

var (
	checkLinks bool
	checkFiles bool
)

func init() {
	checkCmd.Flags().BoolVar(&checkLinks, "links", false, "Also check that every work url resolves")
	checkCmd.Flags().BoolVar(&checkFiles, "files", false, "Also check hosted slide and poster files")
	rootCmd.AddCommand(checkCmd)
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify data file integrity",
	Long: `Verify the site's data files: duplicate or missing ids, missing urls,
months out of range, articles whose sameAs names no preprint, and
navigation tabs without ids.

Examples:
  site check
  site check --files
  site check --links --human`,
	RunE: runCheck,
}

// CheckResult is the response for the check command.
type CheckResult struct {
	Status   string       `json:"status"`
	Projects int          `json:"projects"`
	Works    int          `json:"works"`
	Tabs     int          `json:"tabs"`
	Links    int          `json:"links_checked,omitempty"`
	Files    int          `json:"files_checked,omitempty"`
	Issues   []CheckIssue `json:"issues"`
}

// CheckIssue represents a single issue found during check.
type CheckIssue struct {
	Type    string     `json:"type"`
	Project string     `json:"project,omitempty"`
	Kind    works.Kind `json:"work_type,omitempty"`
	ID      string     `json:"id,omitempty"`
	URL     string     `json:"url,omitempty"`
	Reason  string     `json:"reason"`
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	root := mustFindSite()
	cfg, settings := mustLoadConfig(root)
	cat := mustLoadCatalog(ctx, root, cfg, settings)

	result := CheckResult{Issues: []CheckIssue{}, Projects: len(cat.Projects)}
	for _, k := range cat.Types.Kinds() {
		result.Works += len(cat.Collect(k))
	}

	for _, p := range works.Validate(cat) {
		result.Issues = append(result.Issues, CheckIssue{
			Type:    "invalid_work",
			Project: p.Project,
			Kind:    p.Kind,
			ID:      p.ID,
			Reason:  p.Message,
		})
	}

	var tabs []nav.Tab
	err := loader.LoadJSON(ctx, mustLoader(root, cfg), "index.html", cfg.Data.Nav, &tabs)
	switch {
	case err != nil:
		result.Issues = append(result.Issues, CheckIssue{Type: "invalid_nav", Reason: err.Error()})
	default:
		result.Tabs = len(tabs)
		if err := nav.Validate(tabs); err != nil {
			result.Issues = append(result.Issues, CheckIssue{Type: "invalid_nav", Reason: err.Error()})
		}
	}

	for _, page := range cfg.Pages {
		if _, err := os.Stat(pageFile(root, page)); err != nil {
			result.Issues = append(result.Issues, CheckIssue{Type: "missing_page", URL: page.Path, Reason: err.Error()})
		}
	}

	if checkFiles {
		reports := assets.Check(root, cat)
		result.Files = len(reports)
		for _, r := range assets.Failed(reports) {
			issueType := "unreadable_file"
			if errors.Is(r.Err(), assets.ErrMissing) {
				issueType = "missing_file"
			}
			result.Issues = append(result.Issues, CheckIssue{
				Type:    issueType,
				Project: r.Project,
				Kind:    r.Kind,
				ID:      r.ID,
				URL:     r.Path,
				Reason:  r.Error,
			})
		}
	}

	if checkLinks {
		opts := []linkcheck.Option{
			linkcheck.WithRateLimit(cfg.LinkRate),
			linkcheck.WithLogger(logger),
		}
		if cfg.SiteURL != "" {
			siteURL, err := url.Parse(cfg.SiteURL)
			if err != nil {
				exitWithError(ExitConfigError, "invalid site_url: %v", err)
			}
			opts = append(opts, linkcheck.WithSiteURL(siteURL))
		}

		targets := linkcheck.Targets(cat)
		results, err := linkcheck.New(opts...).Check(ctx, targets)
		if err != nil {
			exitWithError(ExitError, "%v", err)
		}
		result.Links = len(results)
		for _, r := range linkcheck.Failed(results) {
			result.Issues = append(result.Issues, CheckIssue{
				Type:    "broken_link",
				Project: r.Project,
				Kind:    r.Kind,
				ID:      r.ID,
				URL:     r.URL,
				Reason:  r.Error,
			})
		}
	}

	result.Status = "ok"
	if len(result.Issues) > 0 {
		result.Status = "issues_found"
	}

	if humanOutput {
		printCheckResult(result)
	} else {
		outputJSON(result)
	}

	if len(result.Issues) > 0 {
		os.Exit(ExitDataError)
	}
	return nil
}

func pageFile(root string, page config.Page) string {
	return filepath.Join(root, filepath.FromSlash(page.Path))
}

func printCheckResult(r CheckResult) {
	outputHuman("Checked %d work%s in %d project%s, %d nav tab%s",
		r.Works, plural(r.Works), r.Projects, plural(r.Projects), r.Tabs, plural(r.Tabs))
	if r.Files > 0 {
		outputHuman(", %d hosted file%s", r.Files, plural(r.Files))
	}
	if r.Links > 0 {
		outputHuman(", %d link%s", r.Links, plural(r.Links))
	}
	outputHuman("\n")

	if len(r.Issues) == 0 {
		outputHuman("No issues found\n")
		return
	}

	outputHuman("\nFound %d issue%s:\n", len(r.Issues), plural(len(r.Issues)))
	for _, issue := range r.Issues {
		where := joinNonEmpty("/", issue.Project, string(issue.Kind), issue.ID)
		if where == "" {
			where = issue.URL
		}
		outputHuman("  %-16s %s: %s\n", issue.Type, where, truncateString(issue.Reason, CheckReasonMaxLen))
	}
}
