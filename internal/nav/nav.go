// Package nav builds the navigation bar and footer shared by every page.
package nav

import (
	"errors"
	"fmt"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/subhylahiri/sitegen/internal/render"
)

// Class names used by the site stylesheet.
const (
	ClassNav    = "nav"
	ClassHeader = "header"
	ClassActive = "active"
	ClassFooter = "footer"
)

var (
	// ErrNoHeader is returned when a page has no element of class "header".
	ErrNoHeader = errors.New("page has no header element")

	// ErrNoBody is returned when a page has no body element.
	ErrNoBody = errors.New("page has no body element")
)

// Tab is one entry of nav.json.
type Tab struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	URL      string `json:"url"`
	Internal bool   `json:"internal"`
}

// Href returns the tab's link, prefixed by base for pages of this site.
func (t Tab) Href(base string) string {
	if t.Internal {
		return base + t.URL
	}
	return t.URL
}

// Build inserts the navigation list before the page header and marks the
// tab whose id is activeID. An unknown activeID marks nothing.
func Build(doc *html.Node, tabs []Tab, activeID, base string) error {
	header := render.FindByClass(doc, ClassHeader)
	if header == nil {
		return ErrNoHeader
	}

	div := render.Element(atom.Div, ClassNav)
	ul := render.Element(atom.Ul, "")
	for _, t := range tabs {
		li := render.Element(atom.Li, "")
		if t.ID != "" {
			render.SetAttr(li, "id", t.ID)
		}
		if t.ID != "" && t.ID == activeID {
			render.SetClass(li, ClassActive)
		}
		li.AppendChild(render.Anchor(t.Href(base), render.TextNode(t.Name)))
		ul.AppendChild(li)
	}
	div.AppendChild(ul)

	render.InsertBefore(header, div)
	render.SetAttr(header, "style", "padding-top: 0em")
	return nil
}

// Footer holds the contact details shown at the bottom of every page.
type Footer struct {
	Author    string `yaml:"author"`
	Contact   string `yaml:"contact"`
	SourceURL string `yaml:"source_url"`
}

// AppendFooter adds the footer as the last child of the page body.
func AppendFooter(doc *html.Node, f Footer) error {
	body := render.FindByTag(doc, atom.Body)
	if body == nil {
		return ErrNoBody
	}

	address := render.Element(atom.Address, "")
	if f.Author != "" {
		address.AppendChild(render.TextNode(f.Author + ": "))
	}
	if f.Contact != "" {
		tt := render.Element(atom.Tt, "")
		tt.AppendChild(render.TextNode(f.Contact))
		address.AppendChild(tt)
		address.AppendChild(render.TextNode(". "))
	}
	if f.SourceURL != "" {
		address.AppendChild(render.Anchor(f.SourceURL, render.TextNode("[Source]")))
		address.AppendChild(render.TextNode("."))
	}

	div := render.Element(atom.Div, ClassFooter)
	div.AppendChild(address)
	body.AppendChild(div)
	return nil
}

// Validate reports duplicate or empty tab ids.
func Validate(tabs []Tab) error {
	seen := make(map[string]bool, len(tabs))
	for i, t := range tabs {
		if t.ID == "" {
			return fmt.Errorf("tab %d (%s): missing id", i, t.Name)
		}
		if seen[t.ID] {
			return fmt.Errorf("tab %d: duplicate id %q", i, t.ID)
		}
		seen[t.ID] = true
		if t.URL == "" {
			return fmt.Errorf("tab %q: missing url", t.ID)
		}
	}
	return nil
}
