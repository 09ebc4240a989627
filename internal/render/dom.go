// Package render inserts citation and work lists into parsed HTML pages.
package render

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/subhylahiri/sitegen/internal/cite"
)

// FindByID returns the first element with the given id attribute.
func FindByID(root *html.Node, id string) *html.Node {
	return findFirst(root, func(n *html.Node) bool {
		return Attr(n, "id") == id
	})
}

// FindByClass returns the first element carrying class.
func FindByClass(root *html.Node, class string) *html.Node {
	return findFirst(root, func(n *html.Node) bool {
		return HasClass(n, class)
	})
}

// FindByTag returns the first element with the given tag.
func FindByTag(root *html.Node, tag atom.Atom) *html.Node {
	return findFirst(root, func(n *html.Node) bool {
		return n.DataAtom == tag
	})
}

func findFirst(root *html.Node, match func(*html.Node) bool) *html.Node {
	if root == nil {
		return nil
	}
	if root.Type == html.ElementNode && match(root) {
		return root
	}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, match); found != nil {
			return found
		}
	}
	return nil
}

// Attr returns the value of an attribute, or "" if absent.
func Attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// SetAttr sets or replaces an attribute.
func SetAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// HasClass reports whether the class attribute contains class.
func HasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(Attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

// SetClass replaces the class attribute.
func SetClass(n *html.Node, class string) {
	SetAttr(n, "class", class)
}

// SetText replaces all children of n with a single text node.
func SetText(n *html.Node, text string) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
	n.AppendChild(TextNode(text))
}

// InsertAfter places node immediately after anchor. A detached anchor is
// left alone.
func InsertAfter(anchor, node *html.Node) {
	if anchor.Parent == nil {
		return
	}
	anchor.Parent.InsertBefore(node, anchor.NextSibling)
}

// InsertBefore places node immediately before anchor.
func InsertBefore(anchor, node *html.Node) {
	if anchor.Parent == nil {
		return
	}
	anchor.Parent.InsertBefore(node, anchor)
}

// Element creates an element with optional class.
func Element(tag atom.Atom, class string) *html.Node {
	n := &html.Node{Type: html.ElementNode, DataAtom: tag, Data: tag.String()}
	if class != "" {
		SetClass(n, class)
	}
	return n
}

// TextNode creates a text node.
func TextNode(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

// Anchor creates a link element.
func Anchor(href string, children ...*html.Node) *html.Node {
	a := Element(atom.A, "")
	SetAttr(a, "href", href)
	appendAll(a, children)
	return a
}

func appendAll(parent *html.Node, children []*html.Node) {
	for _, c := range children {
		parent.AppendChild(c)
	}
}

// Nodes converts citation fragments into HTML nodes.
func Nodes(frags []cite.Fragment) []*html.Node {
	nodes := make([]*html.Node, 0, len(frags))
	for _, f := range frags {
		switch f.Type {
		case cite.TextFragment:
			nodes = append(nodes, TextNode(f.Text))
		case cite.SpanFragment:
			span := Element(atom.Span, f.Class)
			appendAll(span, Nodes(f.Children))
			nodes = append(nodes, span)
		case cite.LinkFragment:
			nodes = append(nodes, Anchor(f.Href, Nodes(f.Children)...))
		}
	}
	return nodes
}
