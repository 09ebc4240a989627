// Package cite turns papers into citation fragment trees.
//
// The formatter is pure: it knows nothing about HTML documents. Package
// render converts fragments into nodes and inserts them into pages.
package cite

import (
	"strings"
)

// FragmentType distinguishes text, styled spans and links.
type FragmentType int

const (
	TextFragment FragmentType = iota
	SpanFragment
	LinkFragment
)

// Span classes used in citations.
const (
	ClassAuthor  = "author"
	ClassSelf    = "self"
	ClassTitle   = "title"
	ClassJournal = "journal"
	ClassVolume  = "volume"
	ClassEprint  = "eprint"
	ClassYear    = "year"
)

// Fragment is one node of a citation: plain text, a span with a class,
// or a hyperlink. Spans and links hold child fragments.
type Fragment struct {
	Type     FragmentType
	Text     string // TextFragment only
	Class    string // SpanFragment only
	Href     string // LinkFragment only
	Children []Fragment
}

// Text creates a plain text fragment.
func Text(s string) Fragment {
	return Fragment{Type: TextFragment, Text: s}
}

// Span creates a styled span around children.
func Span(class string, children ...Fragment) Fragment {
	return Fragment{Type: SpanFragment, Class: class, Children: children}
}

// Link creates a hyperlink around children.
func Link(href string, children ...Fragment) Fragment {
	return Fragment{Type: LinkFragment, Href: href, Children: children}
}

// PlainText flattens fragments to the text a reader would see.
func PlainText(frags []Fragment) string {
	var b strings.Builder
	writePlain(&b, frags)
	return b.String()
}

func writePlain(b *strings.Builder, frags []Fragment) {
	for _, f := range frags {
		if f.Type == TextFragment {
			b.WriteString(f.Text)
			continue
		}
		writePlain(b, f.Children)
	}
}

// Find returns the first fragment (depth first) with the given span class.
func Find(frags []Fragment, class string) (Fragment, bool) {
	for _, f := range frags {
		if f.Type == SpanFragment && f.Class == class {
			return f, true
		}
		if found, ok := Find(f.Children, class); ok {
			return found, true
		}
	}
	return Fragment{}, false
}
