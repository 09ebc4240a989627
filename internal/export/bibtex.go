// Package export writes the site's papers in bibliography formats.
package export

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/subhylahiri/sitegen/internal/cite"
	"github.com/subhylahiri/sitegen/internal/works"
)

// Entry is one BibTeX record built from a paper, with the eprint of its
// linked preprint folded in.
type Entry struct {
	Work     works.Work
	Preprint *works.Work
}

var arxivPattern = regexp.MustCompile(`(?i)^arxiv:\s*(\S+)`)

// ToBibTeX converts an entry to BibTeX format.
func ToBibTeX(e Entry) string {
	w := e.Work
	entryType := determineEntryType(w)
	var b strings.Builder

	fmt.Fprintf(&b, "@%s{%s,\n", entryType, w.ID)

	if w.Author != "" {
		fmt.Fprintf(&b, "  author = {%s},\n", formatAuthors(w.Author))
	}
	fmt.Fprintf(&b, "  title = {%s},\n", escapeLatex(w.Title))

	switch entryType {
	case "article":
		writeJournal(&b, w.Ref)
	case "inproceedings":
		fmt.Fprintf(&b, "  booktitle = {%s},\n", escapeLatex(w.Ref))
	default:
		if w.Ref != "" {
			fmt.Fprintf(&b, "  howpublished = {%s},\n", escapeLatex(w.Ref))
		}
	}

	if w.Year > 0 {
		fmt.Fprintf(&b, "  year = {%d},\n", w.Year)
	}
	if w.Month > 0 {
		fmt.Fprintf(&b, "  month = {%d},\n", w.Month)
	}
	if doi := DOI(w.URL); doi != "" {
		fmt.Fprintf(&b, "  doi = {%s},\n", doi)
	}
	if w.URL != "" {
		fmt.Fprintf(&b, "  url = {%s},\n", w.URL)
	}

	eprint := w
	if e.Preprint != nil {
		eprint = *e.Preprint
	}
	if m := arxivPattern.FindStringSubmatch(eprint.Ref); m != nil {
		fmt.Fprintf(&b, "  eprint = {%s},\n", m[1])
		b.WriteString("  archiveprefix = {arXiv},\n")
	}

	if w.Kind == works.Abstract {
		b.WriteString("  note = {Abstract},\n")
	}

	b.WriteString("}\n")

	return b.String()
}

// writeJournal splits "<journal> <volume><pages>" into separate fields.
func writeJournal(b *strings.Builder, ref string) {
	parts, ok := cite.ExtractVolume(ref)
	if !ok {
		fmt.Fprintf(b, "  journal = {%s},\n", escapeLatex(ref))
		return
	}
	fmt.Fprintf(b, "  journal = {%s},\n", escapeLatex(strings.TrimSpace(parts.Prefix)))
	fmt.Fprintf(b, "  volume = {%s},\n", parts.Match)
	if pages := strings.Trim(parts.Suffix, " ,:;()"); pages != "" {
		fmt.Fprintf(b, "  pages = {%s},\n", escapeLatex(pages))
	}
}

// ToBibTeXList converts multiple entries to BibTeX format.
func ToBibTeXList(entries []Entry) string {
	var out []string
	for _, e := range entries {
		out = append(out, ToBibTeX(e))
	}
	return strings.Join(out, "\n")
}

// FromCatalog lists every paper of the catalog, newest first within each
// kind. A preprint cited through its article is exported as part of that
// article and not on its own. A broken link is reported like it is when
// rendering.
func FromCatalog(cat *works.Catalog) ([]Entry, error) {
	f := cite.NewFormatter(nil, cat)
	preprints := cat.Preprints()

	var entries []Entry
	for _, k := range cat.Types.Kinds() {
		if !k.IsPaper() {
			continue
		}
		papers := cat.Collect(k)
		works.SortReverseChronological(papers)

		for _, w := range papers {
			if f.Suppressed(w) {
				continue
			}
			e := Entry{Work: w}
			if k == works.Article && w.SameAs != "" {
				pre, ok := preprints[w.SameAs]
				if !ok {
					return nil, &cite.MissingPreprintError{Article: w.ID, Preprint: w.SameAs}
				}
				e.Preprint = &pre
			}
			entries = append(entries, e)
		}
	}
	return entries, nil
}

// determineEntryType returns the BibTeX entry type for a paper.
func determineEntryType(w works.Work) string {
	switch w.Kind {
	case works.Preprint, works.Abstract:
		return "misc"
	}

	ref := strings.ToLower(w.Ref)
	if strings.Contains(ref, "proceedings") ||
		strings.Contains(ref, "conference") ||
		strings.Contains(ref, "workshop") ||
		strings.Contains(ref, "symposium") {
		return "inproceedings"
	}

	return "article"
}

var authorSeparators = strings.NewReplacer(" & ", ",", " and ", ",")

// formatAuthors turns a display author list ("A. Bee, C. Dee and
// S. Lahiri") into BibTeX's "A. Bee and C. Dee and S. Lahiri".
func formatAuthors(authors string) string {
	var names []string
	for _, name := range strings.Split(authorSeparators.Replace(authors), ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, escapeLatex(name))
		}
	}
	return strings.Join(names, " and ")
}

// escapeLatex escapes special LaTeX characters.
func escapeLatex(s string) string {
	replacer := strings.NewReplacer(
		"&", `\&`,
		"%", `\%`,
		"$", `\$`,
		"#", `\#`,
		"_", `\_`,
		"{", `\{`,
		"}", `\}`,
		"~", `\textasciitilde{}`,
		"^", `\textasciicircum{}`,
	)
	return replacer.Replace(s)
}
