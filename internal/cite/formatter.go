package cite

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/subhylahiri/sitegen/internal/works"
)

// ErrMissingPreprint is returned when an article's sameAs names a
// preprint that does not exist.
var ErrMissingPreprint = fmt.Errorf("%w: linked preprint not found", works.ErrIntegrity)

// ErrNotPaper is returned when asked to cite slides or a poster.
var ErrNotPaper = errors.New("work is not a paper")

// MissingPreprintError identifies the article and the id it referenced.
type MissingPreprintError struct {
	Article  string
	Preprint string
}

func (e *MissingPreprintError) Error() string {
	return fmt.Sprintf("article %s: sameAs %q: no such preprint", e.Article, e.Preprint)
}

func (e *MissingPreprintError) Unwrap() error {
	return ErrMissingPreprint
}

// IsMissingPreprint reports whether err is a broken article → preprint link.
func IsMissingPreprint(err error) bool {
	return errors.Is(err, ErrMissingPreprint)
}

// Formatter builds citations for the papers of one catalog.
//
// Cross references run from article to preprint: an article's sameAs names
// the preprint it was published from. That preprint is then cited inside
// the article and left out of the standalone preprint list.
type Formatter struct {
	self      *regexp.Regexp
	preprints map[string]works.Work
	linked    map[string]bool
}

// NewFormatter creates a formatter. self matches the site owner's name in
// author lists; nil disables highlighting.
func NewFormatter(self *regexp.Regexp, cat *works.Catalog) *Formatter {
	f := &Formatter{
		self:      self,
		preprints: make(map[string]works.Work),
		linked:    make(map[string]bool),
	}
	if cat == nil {
		return f
	}
	f.preprints = cat.Preprints()
	if cat.Types.Has(works.Article) {
		for _, a := range cat.Collect(works.Article) {
			if a.SameAs != "" {
				f.linked[a.SameAs] = true
			}
		}
	}
	return f
}

// Suppressed reports whether a preprint is cited through its article
// instead of on its own.
func (f *Formatter) Suppressed(w works.Work) bool {
	return w.Kind == works.Preprint && f.linked[w.ID]
}

// Cite returns the fragments of one citation list entry. A nil slice with
// a nil error means the entry is suppressed.
func (f *Formatter) Cite(w works.Work) ([]Fragment, error) {
	switch w.Kind {
	case works.Article:
		return f.Article(w)
	case works.Preprint:
		if f.Suppressed(w) {
			return nil, nil
		}
		return f.citation(w, f.Eprint(w)), nil
	case works.Abstract:
		return f.citation(w, f.Eprint(w)), nil
	case works.Slides, works.Poster:
		return nil, fmt.Errorf("%w: %s %s", ErrNotPaper, w.Kind, w.ID)
	default:
		return nil, fmt.Errorf("%w: %q", works.ErrUnknownKind, w.Kind)
	}
}

// Article cites a journal article, appending its preprint when linked.
func (f *Formatter) Article(w works.Work) ([]Fragment, error) {
	frags := f.citation(w, f.Journal(w))
	if w.SameAs == "" {
		return frags, nil
	}

	pre, ok := f.preprints[w.SameAs]
	if !ok {
		return nil, &MissingPreprintError{Article: w.ID, Preprint: w.SameAs}
	}

	// insert before the final period
	last := frags[len(frags)-1]
	frags = append(frags[:len(frags)-1], Text(", "), Link(pre.URL, f.Eprint(pre)), last)
	return frags, nil
}

// citation assembles: author, title, link(reference, year), period.
func (f *Formatter) citation(w works.Work, ref Fragment) []Fragment {
	return []Fragment{
		f.Author(w),
		Text(" "),
		f.Title(w),
		Text(" "),
		Link(w.URL, ref, Text(" "), f.Year(w)),
		Text("."),
	}
}

// Author highlights the site owner's name within the author list.
func (f *Formatter) Author(w works.Work) Fragment {
	parts, ok := ExtractSpan(w.Author, f.self)
	return Span(ClassAuthor, pickPart(w.Author, ClassSelf, parts, ok)...)
}

// Title styles the paper title.
func (f *Formatter) Title(w works.Work) Fragment {
	return Span(ClassTitle, Text(w.Title))
}

// Journal styles a journal reference with its volume highlighted. A
// reference without a volume number is styled as an eprint.
func (f *Formatter) Journal(w works.Work) Fragment {
	parts, ok := ExtractVolume(w.Ref)
	if !ok {
		return f.Eprint(w)
	}
	return Span(ClassJournal, pickPart(w.Ref, ClassVolume, parts, ok)...)
}

// Eprint styles a reference as an eprint, unsplit.
func (f *Formatter) Eprint(w works.Work) Fragment {
	return Span(ClassEprint, Text(w.Ref))
}

// Year styles the publication year. An unknown year gives an empty span.
func (f *Formatter) Year(w works.Work) Fragment {
	if w.Year == 0 {
		return Span(ClassYear)
	}
	return Span(ClassYear, Text(strconv.Itoa(w.Year)))
}
