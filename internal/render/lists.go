package render

import (
	"errors"
	"fmt"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/subhylahiri/sitegen/internal/cite"
	"github.com/subhylahiri/sitegen/internal/works"
)

// List classes, matching the site stylesheet.
const (
	ClassPapers       = "papers"
	ClassMaterials    = "materials"
	ClassProjectLinks = "project_links"
	ClassIcon         = "icon"
	ClassPresentation = "presentation"
	ClassProject      = "project"
)

// PaperKinds are the kinds listed on the publications page, each under
// an anchor named by Kind.Plural.
var PaperKinds = []works.Kind{works.Article, works.Preprint, works.Abstract}

// PresentationKinds are the kinds listed on the presentations page.
var PresentationKinds = []works.Kind{works.Slides, works.Poster}

// Options carries the settings shared by all list renderers.
type Options struct {
	// Base is prepended to the urls of works hosted with the site.
	Base string
}

// Publications inserts one reverse-chronological citation list per paper
// kind after the element whose id is the kind's plural ("articles",
// "preprints", "abstracts"). It returns the number of lists inserted.
//
// A kind with no anchor on the page or no citable entries is skipped. A
// broken citation aborts that kind's list and is reported; other kinds
// are still rendered.
func Publications(doc *html.Node, cat *works.Catalog, f *cite.Formatter) (int, error) {
	var errs []error
	inserted := 0

	for _, k := range PaperKinds {
		if !cat.Types.Has(k) {
			continue
		}
		anchor := FindByID(doc, k.Plural())
		if anchor == nil {
			continue
		}

		list, err := paperList(cat, f, k)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s list: %w", k, err))
			continue
		}
		if list == nil {
			continue
		}
		InsertAfter(anchor, list)
		inserted++
	}

	return inserted, errors.Join(errs...)
}

func paperList(cat *works.Catalog, f *cite.Formatter, k works.Kind) (*html.Node, error) {
	papers := cat.Collect(k)
	works.SortReverseChronological(papers)

	ul := Element(atom.Ul, ClassPapers)
	for _, p := range papers {
		frags, err := f.Cite(p)
		if err != nil {
			return nil, err
		}
		if frags == nil {
			continue
		}
		li := Element(atom.Li, string(k))
		appendAll(li, Nodes(frags))
		ul.AppendChild(li)
	}

	if ul.FirstChild == nil {
		return nil, nil
	}
	return ul, nil
}

// Presentations lists each project's slides and posters after the element
// whose id is the project id. The anchor's text becomes the project title.
func Presentations(doc *html.Node, cat *works.Catalog, opts Options) int {
	kinds := enabled(cat.Types, PresentationKinds)
	inserted := 0

	for _, p := range cat.Projects {
		anchor := FindByID(doc, p.ID)
		if anchor == nil || !p.HasAny(kinds...) {
			continue
		}

		ul := Element(atom.Ul, ClassMaterials)
		for _, k := range kinds {
			for _, w := range p.Of(k) {
				li := Element(atom.Li, string(k))
				li.AppendChild(Anchor(w.Link(opts.Base), TextNode(w.Title)))
				li.AppendChild(TextNode("."))
				ul.AppendChild(li)
			}
		}

		SetClass(anchor, ClassPresentation)
		SetText(anchor, p.Title)
		InsertAfter(anchor, ul)
		inserted++
	}

	return inserted
}

// ProjectLinks lists every work of each project as an icon link after the
// element whose id is the project id.
func ProjectLinks(doc *html.Node, cat *works.Catalog, opts Options) int {
	kinds := cat.Types.Kinds()
	inserted := 0

	for _, p := range cat.Projects {
		anchor := FindByID(doc, p.ID)
		if anchor == nil || !p.HasAny(kinds...) {
			continue
		}

		ul := Element(atom.Ul, ClassProjectLinks)
		for _, k := range kinds {
			for _, w := range p.Of(k) {
				a := Anchor(w.Link(opts.Base), TextNode(k.Label()))
				SetClass(a, ClassIcon)
				SetAttr(a, "title", w.Description())

				li := Element(atom.Li, string(k))
				li.AppendChild(a)
				ul.AppendChild(li)
			}
		}

		SetClass(anchor, ClassProject)
		InsertAfter(anchor, ul)
		inserted++
	}

	return inserted
}

func enabled(ts works.TypeSet, kinds []works.Kind) []works.Kind {
	var out []works.Kind
	for _, k := range kinds {
		if ts.Has(k) {
			out = append(out, k)
		}
	}
	return out
}
