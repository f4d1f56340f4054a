// Package hostpage models the third-party page the pipeline decorates: a
// mutable HTML tree that reports child insertions and removals to
// subscribers and dispatches user events (clicks, key presses) to
// registered handlers. Everything above this package treats the page as
// an external collaborator it does not own.
package hostpage

import (
	"io"
	"strings"
	"sync"

	"golang.org/x/net/html"
)

// Event describes one batch of tree mutations.
type Event struct {
	Added   []*html.Node
	Removed []*html.Node
}

// Page is a live host document. All tree mutations must go through Page
// methods so subscribers observe them.
type Page struct {
	mu       sync.Mutex
	doc      *html.Node
	body     *html.Node
	subs     map[int]func(Event)
	nextSub  int
	clicks   map[*html.Node]func()
	keys     map[int]keyHandler
	nextKey  int
}

type keyHandler struct {
	key string
	fn  func()
}

// New returns an empty page with a bare html/body skeleton.
func New() *Page {
	doc, _ := html.Parse(strings.NewReader("<html><head></head><body></body></html>"))
	return newPage(doc)
}

// Parse builds a page from existing HTML, e.g. a timeline snapshot.
func Parse(r io.Reader) (*Page, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	return newPage(doc), nil
}

func newPage(doc *html.Node) *Page {
	return &Page{
		doc:    doc,
		body:   findElement(doc, "body"),
		subs:   map[int]func(Event){},
		clicks: map[*html.Node]func(){},
		keys:   map[int]keyHandler{},
	}
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}

// Root returns the document node.
func (p *Page) Root() *html.Node { return p.doc }

// Body returns the body element observed for post insertions.
func (p *Page) Body() *html.Node { return p.body }

// Subscribe registers fn for future mutation events and returns a cancel
// function. fn is invoked synchronously, outside the page lock.
func (p *Page) Subscribe(fn func(Event)) (cancel func()) {
	p.mu.Lock()
	id := p.nextSub
	p.nextSub++
	p.subs[id] = fn
	p.mu.Unlock()
	return func() {
		p.mu.Lock()
		delete(p.subs, id)
		p.mu.Unlock()
	}
}

func (p *Page) emit(ev Event) {
	p.mu.Lock()
	fns := make([]func(Event), 0, len(p.subs))
	for _, fn := range p.subs {
		fns = append(fns, fn)
	}
	p.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

// AppendChild attaches child under parent and notifies subscribers.
func (p *Page) AppendChild(parent, child *html.Node) {
	p.mu.Lock()
	parent.AppendChild(child)
	p.mu.Unlock()
	p.emit(Event{Added: []*html.Node{child}})
}

// InsertBefore attaches child under parent ahead of before. A nil before
// behaves like AppendChild.
func (p *Page) InsertBefore(parent, child, before *html.Node) {
	p.mu.Lock()
	if before == nil {
		parent.AppendChild(child)
	} else {
		parent.InsertBefore(child, before)
	}
	p.mu.Unlock()
	p.emit(Event{Added: []*html.Node{child}})
}

// RemoveNode detaches n from its parent, dropping any click handlers
// registered in its subtree.
func (p *Page) RemoveNode(n *html.Node) {
	p.mu.Lock()
	if n.Parent == nil {
		p.mu.Unlock()
		return
	}
	n.Parent.RemoveChild(n)
	p.dropHandlersLocked(n)
	p.mu.Unlock()
	p.emit(Event{Removed: []*html.Node{n}})
}

// ReplaceBody swaps the entire body content for children, emulating a
// single-page-app navigation that rebuilds the timeline.
func (p *Page) ReplaceBody(children ...*html.Node) {
	p.mu.Lock()
	var removed []*html.Node
	for c := p.body.FirstChild; c != nil; {
		next := c.NextSibling
		p.body.RemoveChild(c)
		p.dropHandlersLocked(c)
		removed = append(removed, c)
		c = next
	}
	for _, c := range children {
		p.body.AppendChild(c)
	}
	p.mu.Unlock()
	p.emit(Event{Added: children, Removed: removed})
}

func (p *Page) dropHandlersLocked(root *html.Node) {
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		delete(p.clicks, n)
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
}

// OnClick registers a click handler for exactly n (no bubbling).
func (p *Page) OnClick(n *html.Node, fn func()) {
	p.mu.Lock()
	p.clicks[n] = fn
	p.mu.Unlock()
}

// Click dispatches a click on n and reports whether a handler ran.
func (p *Page) Click(n *html.Node) bool {
	p.mu.Lock()
	fn := p.clicks[n]
	p.mu.Unlock()
	if fn == nil {
		return false
	}
	fn()
	return true
}

// OnKey registers a handler for a named key ("Escape", "Enter", ...) and
// returns a removal function. Handlers must remove themselves once their
// overlay is gone so repeated presses do not accumulate stale callbacks.
func (p *Page) OnKey(key string, fn func()) (remove func()) {
	p.mu.Lock()
	id := p.nextKey
	p.nextKey++
	p.keys[id] = keyHandler{key: key, fn: fn}
	p.mu.Unlock()
	return func() {
		p.mu.Lock()
		delete(p.keys, id)
		p.mu.Unlock()
	}
}

// Key dispatches a key press to every handler registered for it.
func (p *Page) Key(key string) {
	p.mu.Lock()
	fns := make([]func(), 0, len(p.keys))
	for _, h := range p.keys {
		if h.key == key {
			fns = append(fns, h.fn)
		}
	}
	p.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}
