package hostpage

import (
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/html"
)

var (
	selectorCache   sync.Map // selector string -> cascadia.SelectorGroup
	selectorFailure sync.Map // selector string -> struct{}, logged once
)

func compile(selector string) (cascadia.SelectorGroup, bool) {
	if cached, ok := selectorCache.Load(selector); ok {
		return cached.(cascadia.SelectorGroup), true
	}
	sel, err := cascadia.ParseGroup(selector)
	if err != nil {
		if _, seen := selectorFailure.LoadOrStore(selector, struct{}{}); !seen {
			logrus.Warnf("Ignoring unparseable selector %q: %v", selector, err)
		}
		return nil, false
	}
	selectorCache.Store(selector, sel)
	return sel, true
}

// Matches reports whether n itself matches any of the selectors.
func Matches(n *html.Node, selectors []string) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	for _, s := range selectors {
		if sel, ok := compile(s); ok && sel.Match(n) {
			return true
		}
	}
	return false
}

// FindAll returns all descendants of n matching any selector, in
// selector-priority then document order, without duplicates.
func FindAll(n *html.Node, selectors []string) []*html.Node {
	if n == nil {
		return nil
	}
	seen := map[*html.Node]struct{}{}
	var out []*html.Node
	for _, s := range selectors {
		sel, ok := compile(s)
		if !ok {
			continue
		}
		for _, m := range cascadia.QueryAll(n, sel) {
			if _, dup := seen[m]; dup {
				continue
			}
			seen[m] = struct{}{}
			out = append(out, m)
		}
	}
	return out
}

// FindFirst returns the first descendant of n matching the selector list,
// honoring list order as priority.
func FindFirst(n *html.Node, selectors []string) *html.Node {
	if n == nil {
		return nil
	}
	for _, s := range selectors {
		if sel, ok := compile(s); ok {
			if m := cascadia.Query(n, sel); m != nil {
				return m
			}
		}
	}
	return nil
}

// Closest walks from n up to the root looking for a node matching any of
// the selectors, n included.
func Closest(n *html.Node, selectors []string) *html.Node {
	for cur := n; cur != nil; cur = cur.Parent {
		if Matches(cur, selectors) {
			return cur
		}
	}
	return nil
}

// Contains reports whether ancestor contains n (or is n).
func Contains(ancestor, n *html.Node) bool {
	for cur := n; cur != nil; cur = cur.Parent {
		if cur == ancestor {
			return true
		}
	}
	return false
}

// Text returns the concatenated text content of n's subtree.
func Text(n *html.Node) string {
	if n == nil {
		return ""
	}
	return goquery.NewDocumentFromNode(n).Text()
}

// Attr returns the value of the named attribute, or "".
func Attr(n *html.Node, name string) string {
	if n == nil {
		return ""
	}
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

// SetAttr sets or replaces the named attribute on n.
func SetAttr(n *html.Node, name, value string) {
	for i, a := range n.Attr {
		if a.Key == name {
			n.Attr[i].Val = value
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: name, Val: value})
}

// NewElement builds a detached element node. Attributes are given as
// alternating key, value pairs.
func NewElement(tag string, attrs ...string) *html.Node {
	n := &html.Node{Type: html.ElementNode, Data: tag}
	for i := 0; i+1 < len(attrs); i += 2 {
		n.Attr = append(n.Attr, html.Attribute{Key: attrs[i], Val: attrs[i+1]})
	}
	return n
}

// NewText builds a detached text node with the given content.
func NewText(text string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: text}
}

// CleanText collapses whitespace runs to single spaces and trims the ends.
func CleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
