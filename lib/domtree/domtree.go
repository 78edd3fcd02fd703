// Package domtree abstracts a rendered web page as a generic attributed
// tree. Extraction heuristics operate on this tree only, so the same code
// works whether the page came from a plain HTTP fetch or a real browser
// that can also report layout geometry.
package domtree

import (
	"io"
	"strings"

	"duesoon-backend/lib/textutil"

	"golang.org/x/net/html"
)

// Rect is the bounding box of a node in page coordinates. A zero Rect
// means the renderer did not supply layout information.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (r Rect) Zero() bool {
	return r == Rect{}
}

// Node is either an element (Tag non-empty) or a text node (Data non-empty).
type Node struct {
	Tag      string
	Attrs    map[string]string
	Data     string
	Rect     Rect
	Parent   *Node
	Children []*Node
}

func (n *Node) Attr(key string) string {
	if n == nil || n.Attrs == nil {
		return ""
	}
	return n.Attrs[key]
}

func (n *Node) HasClass(name string) bool {
	for _, c := range strings.Fields(n.Attr("class")) {
		if c == name {
			return true
		}
	}
	return false
}

// Text returns the whitespace-collapsed text content of the subtree,
// the equivalent of a trimmed textContent.
func (n *Node) Text() string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	n.writeText(&b)
	return textutil.CollapseWhitespace(textutil.RemoveNonPrintable(b.String()))
}

// block boundaries become spaces so adjacent cells never fuse into one
// token; inline markup stays joined
func (n *Node) writeText(b *strings.Builder) {
	if n.Tag == "" {
		b.WriteString(n.Data)
		return
	}
	if blockTags[n.Tag] {
		b.WriteString(" ")
	}
	for _, c := range n.Children {
		c.writeText(b)
	}
	if blockTags[n.Tag] {
		b.WriteString(" ")
	}
}

var blockTags = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true,
	"br": true, "dd": true, "div": true, "dl": true, "dt": true,
	"fieldset": true, "footer": true, "form": true, "h1": true, "h2": true,
	"h3": true, "h4": true, "h5": true, "h6": true, "header": true,
	"hr": true, "li": true, "main": true, "nav": true, "ol": true,
	"p": true, "pre": true, "section": true, "table": true, "tbody": true,
	"td": true, "tfoot": true, "th": true, "thead": true, "tr": true,
	"ul": true,
}

// Lines approximates innerText line splitting: block-level boundaries
// become line breaks and each line is trimmed, empty lines dropped.
func (n *Node) Lines() []string {
	if n == nil {
		return nil
	}
	var b strings.Builder
	n.writeLines(&b)
	return textutil.Lines(b.String())
}

func (n *Node) writeLines(b *strings.Builder) {
	if n.Tag == "" {
		b.WriteString(n.Data)
		return
	}
	if blockTags[n.Tag] {
		b.WriteString("\n")
	}
	for _, c := range n.Children {
		c.writeLines(b)
	}
	if blockTags[n.Tag] {
		b.WriteString("\n")
	}
}

// Find returns the first element in depth-first document order matching
// the predicate, or nil.
func (n *Node) Find(pred func(*Node) bool) *Node {
	if n == nil {
		return nil
	}
	if n.Tag != "" && pred(n) {
		return n
	}
	for _, c := range n.Children {
		if found := c.Find(pred); found != nil {
			return found
		}
	}
	return nil
}

// FindAll returns every element in document order matching the predicate.
func (n *Node) FindAll(pred func(*Node) bool) []*Node {
	var out []*Node
	n.findAll(pred, &out)
	return out
}

func (n *Node) findAll(pred func(*Node) bool, out *[]*Node) {
	if n == nil {
		return
	}
	if n.Tag != "" && pred(n) {
		*out = append(*out, n)
	}
	for _, c := range n.Children {
		c.findAll(pred, out)
	}
}

// Closest walks up the parent chain (starting at the node itself) and
// returns the first element matching the predicate.
func (n *Node) Closest(pred func(*Node) bool) *Node {
	for cur := n; cur != nil; cur = cur.Parent {
		if cur.Tag != "" && pred(cur) {
			return cur
		}
	}
	return nil
}

// PrevSibling returns the preceding element sibling, skipping text nodes.
func (n *Node) PrevSibling() *Node {
	if n == nil || n.Parent == nil {
		return nil
	}
	var prev *Node
	for _, c := range n.Parent.Children {
		if c == n {
			return prev
		}
		if c.Tag != "" {
			prev = c
		}
	}
	return nil
}

// ElementChildren counts direct element children, the proxy used to
// distinguish small leaf-ish labels from large layout containers.
func (n *Node) ElementChildren() int {
	count := 0
	for _, c := range n.Children {
		if c.Tag != "" {
			count++
		}
	}
	return count
}

// ByTag is a convenience predicate.
func ByTag(tag string) func(*Node) bool {
	return func(n *Node) bool { return n.Tag == tag }
}

// Parse builds a tree from static HTML. Nodes parsed this way carry no
// geometry; consumers must treat a zero Rect as "layout unknown".
func Parse(r io.Reader) (*Node, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	root := convert(doc, nil)
	if root == nil {
		root = &Node{Tag: "html"}
	}
	return root, nil
}

// ParseString is Parse over an in-memory document, mostly for tests.
func ParseString(s string) (*Node, error) {
	return Parse(strings.NewReader(s))
}

func convert(src *html.Node, parent *Node) *Node {
	switch src.Type {
	case html.DocumentNode:
		for c := src.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode {
				return convert(c, parent)
			}
		}
		return nil
	case html.TextNode:
		return &Node{Data: src.Data, Parent: parent}
	case html.ElementNode:
		n := &Node{Tag: src.Data, Parent: parent}
		if len(src.Attr) > 0 {
			n.Attrs = make(map[string]string, len(src.Attr))
			for _, a := range src.Attr {
				n.Attrs[a.Key] = a.Val
			}
		}
		for c := src.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && (c.Data == "script" || c.Data == "style") {
				continue
			}
			if child := convert(c, n); child != nil {
				n.Children = append(n.Children, child)
			}
		}
		return n
	default:
		return nil
	}
}

// Body returns the body element of a document tree, or the root itself
// when the tree is a fragment without one.
func (n *Node) Body() *Node {
	if body := n.Find(ByTag("body")); body != nil {
		return body
	}
	return n
}
