package works

import (
	"errors"
	"fmt"
)

// ErrIntegrity marks a problem in the data file itself.
var ErrIntegrity = errors.New("data integrity error")

// Problem is one integrity issue found by Validate.
type Problem struct {
	Project string `json:"project"`
	Kind    Kind   `json:"type"`
	ID      string `json:"id"`
	Message string `json:"message"`
}

func (p Problem) Error() string {
	return fmt.Sprintf("%s/%s/%s: %s", p.Project, p.Kind, p.ID, p.Message)
}

func (p Problem) Unwrap() error {
	return ErrIntegrity
}

// Validate checks the catalog for broken data: duplicate ids within a
// kind, missing ids or urls, months out of range, and articles whose
// sameAs names no preprint.
func Validate(c *Catalog) []Problem {
	var problems []Problem

	seen := make(map[Kind]map[string]string)
	for _, k := range c.Types.Kinds() {
		seen[k] = make(map[string]string)
	}

	for _, p := range c.Projects {
		for _, k := range c.Types.Kinds() {
			for _, w := range p.Works[k] {
				add := func(format string, args ...any) {
					problems = append(problems, Problem{
						Project: p.ID,
						Kind:    k,
						ID:      w.ID,
						Message: fmt.Sprintf(format, args...),
					})
				}

				if w.ID == "" {
					add("missing id")
				} else if other, dup := seen[k][w.ID]; dup {
					add("duplicate id (also in project %s)", other)
				} else {
					seen[k][w.ID] = p.ID
				}

				if w.URL == "" {
					add("missing url")
				}
				if w.Month < 0 || w.Month > 12 {
					add("month %d out of range", w.Month)
				}
			}
		}
	}

	if c.Types.Has(Article) {
		preprints := c.Preprints()
		for _, p := range c.Projects {
			for _, w := range p.Works[Article] {
				if w.SameAs == "" {
					continue
				}
				if _, ok := preprints[w.SameAs]; !ok {
					problems = append(problems, Problem{
						Project: p.ID,
						Kind:    Article,
						ID:      w.ID,
						Message: fmt.Sprintf("sameAs names unknown preprint %q", w.SameAs),
					})
				}
			}
		}
	}

	return problems
}
