package main

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/subhylahiri/sitegen/internal/storage"
	"github.com/subhylahiri/sitegen/internal/works"
)

var (
	listTypes   []string
	listProject string
	listSince   int
	listQuery   string
	listLimit   int
)

func init() {
	listCmd.Flags().StringSliceVarP(&listTypes, "type", "t", nil, "Only these work types (repeatable or comma-separated)")
	listCmd.Flags().StringVar(&listProject, "project", "", "Only works of this project id")
	listCmd.Flags().IntVar(&listSince, "since", 0, "Only works from this year on")
	listCmd.Flags().StringVarP(&listQuery, "query", "q", "", "Full-text match on title and author")
	listCmd.Flags().IntVarP(&listLimit, "limit", "n", 0, "Maximum number of results (0 = all)")
	rootCmd.AddCommand(listCmd)
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List works newest first",
	Long: `List works from works.json, newest first.

Examples:
  site list
  site list --type article,preprint --since 2018
  site list --project synapses --human
  site list -q "Lahiri" -n 5`,
	RunE: runList,
}

func runList(cmd *cobra.Command, args []string) error {
	root := mustFindSite()
	cfg, settings := mustLoadConfig(root)
	cat := mustLoadCatalog(cmd.Context(), root, cfg, settings)

	filters := storage.Filters{
		Project: listProject,
		Since:   listSince,
		Query:   listQuery,
		Limit:   listLimit,
	}
	for _, name := range listTypes {
		k, err := works.ParseKind(name)
		if err != nil {
			exitWithError(ExitError, "%v", err)
		}
		filters.Kinds = append(filters.Kinds, k)
	}

	db := mustOpenIndex(root, cat)
	defer db.Close()

	entries, err := db.List(filters)
	if err != nil {
		exitWithError(ExitError, "listing works: %v", err)
	}

	if humanOutput {
		if len(entries) == 0 {
			outputHuman("No works found\n")
			return nil
		}
		for _, e := range entries {
			year := ""
			if e.Year > 0 {
				year = strconv.Itoa(e.Year)
			}
			outputHuman("%-4s  %-8s  %-20s  %s\n", year, e.Kind, e.ID, truncateString(e.Title, ListTitleMaxLen))
		}
		outputHuman("\n%d work%s\n", len(entries), plural(len(entries)))
		return nil
	}

	if entries == nil {
		entries = []storage.Entry{}
	}
	outputJSON(entries)
	return nil
}
