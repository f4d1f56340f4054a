package watcher

import (
	"sync"
	"weak"

	"golang.org/x/net/html"
)

// DedupTracker remembers which post nodes have already been decorated in
// the current enabled session. Membership is by node identity, not
// content, because the host page recycles identical text across distinct
// node instances. Keys are weak pointers: once the host page drops a node
// and the collector reclaims it, the tracker must not keep it alive —
// this is a liveness concern, not a hashing one.
type DedupTracker struct {
	mu   sync.Mutex
	seen map[weak.Pointer[html.Node]]struct{}
}

// NewDedupTracker returns an empty tracker.
func NewDedupTracker() *DedupTracker {
	return &DedupTracker{seen: make(map[weak.Pointer[html.Node]]struct{})}
}

// HasProcessed reports whether n was marked since the last Reset.
func (t *DedupTracker) HasProcessed(n *html.Node) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.seen[weak.Make(n)]
	return ok
}

// MarkProcessed records n.
func (t *DedupTracker) MarkProcessed(n *html.Node) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seen[weak.Make(n)] = struct{}{}
}

// Reset drops every tracked identity. Called on disable so that
// re-enabling forces a full re-scan of the page.
func (t *DedupTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seen = make(map[weak.Pointer[html.Node]]struct{})
}

// Prune removes entries whose nodes have been reclaimed and returns how
// many were dropped.
func (t *DedupTracker) Prune() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	dropped := 0
	for ptr := range t.seen {
		if ptr.Value() == nil {
			delete(t.seen, ptr)
			dropped++
		}
	}
	return dropped
}

// Len returns the number of tracked identities, dead entries included.
func (t *DedupTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.seen)
}
