package works

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Work is a linkable output of a project: a paper, slides or a poster.
// Paper-only fields are zero for slides and posters.
type Work struct {
	ID    string `json:"id"`
	Kind  Kind   `json:"type"`
	Title string `json:"title"`
	URL   string `json:"url"`

	// Bibliographic fields (articles, preprints, abstracts)
	Author string `json:"author,omitempty"`
	Ref    string `json:"ref,omitempty"`
	Year   int    `json:"year,omitempty"`
	Month  int    `json:"month,omitempty"` // 1-12, 0 if unknown
	SameAs string `json:"same_as,omitempty"`
}

// IsPaper reports whether the work carries bibliographic fields.
func (w Work) IsPaper() bool {
	return w.Kind.IsPaper()
}

// Link returns the URL a rendered link should point at.
// Papers link to their own url unmodified; slides and posters are hosted
// with the site and resolve against base.
func (w Work) Link(base string) string {
	if w.IsPaper() || base == "" || isAbsolute(w.URL) {
		return w.URL
	}
	return base + w.URL
}

// Description is the short text shown as a link tooltip.
func (w Work) Description() string {
	if !w.IsPaper() {
		return w.Title
	}
	return fmt.Sprintf("“%s”, %s (%d)", w.Title, w.Ref, w.Year)
}

func isAbsolute(u string) bool {
	parsed, err := url.Parse(u)
	return err == nil && parsed.Scheme != ""
}

// rawWork mirrors one entry of a works.json array.
type rawWork struct {
	ID     string      `json:"id"`
	URL    string      `json:"url"`
	Title  string      `json:"title"`
	Author string      `json:"author"`
	Ref    string      `json:"ref"`
	Year   FlexibleInt `json:"year"`
	Month  FlexibleInt `json:"month"`
	SameAs CrossRef    `json:"sameAs"`
}

func (r rawWork) toWork(kind Kind) Work {
	w := Work{
		ID:    r.ID,
		Kind:  kind,
		Title: r.Title,
		URL:   r.URL,
	}
	if kind.IsPaper() {
		w.Author = r.Author
		w.Ref = r.Ref
		w.Year = int(r.Year)
		w.Month = int(r.Month)
		w.SameAs = string(r.SameAs)
	}
	return w
}

// FlexibleInt unmarshals from a JSON number, numeric string or null.
// Null and empty strings decode to 0.
type FlexibleInt int

func (f *FlexibleInt) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = 0
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		i, err := strconv.Atoi(n.String())
		if err != nil {
			return fmt.Errorf("cannot unmarshal %s into FlexibleInt", string(data))
		}
		*f = FlexibleInt(i)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		s = strings.TrimSpace(s)
		if s == "" {
			*f = 0
			return nil
		}
		i, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("cannot unmarshal %q into FlexibleInt", s)
		}
		*f = FlexibleInt(i)
		return nil
	}

	return fmt.Errorf("cannot unmarshal %s into FlexibleInt", string(data))
}

// CrossRef is the id of a corresponding preprint. The data files write
// "no link" as false, null or an empty string.
type CrossRef string

func (c *CrossRef) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case "null", "false":
		*c = ""
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*c = CrossRef(s)
		return nil
	}

	return fmt.Errorf("cannot unmarshal %s into CrossRef", string(data))
}
