// Package watcher discovers newly rendered posts on a live host page. It
// subscribes to tree mutations, filters insertions down to post
// containers and coalesces bursts into throttled callback batches.
package watcher

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/html"

	"github.com/replypilot/replypilot/internal/hostpage"
)

const (
	// ThrottleWindow bounds callback frequency during insertion storms.
	ThrottleWindow = 100 * time.Millisecond
	// RestartSettle is the pause between Stop and Start during a restart,
	// giving the host page time to finish swapping its body.
	RestartSettle = 100 * time.Millisecond
)

// Watcher observes one Page for post insertions. At most one observation
// is active at a time; Start while running is a no-op.
type Watcher struct {
	page      *hostpage.Page
	selectors hostpage.Selectors

	mu         sync.Mutex
	running    bool
	cancel     func()
	cb         func([]*html.Node)
	pending    []*html.Node
	pendingSet map[*html.Node]struct{}
	flushTimer *time.Timer
	throttled  bool
	restartTmr *time.Timer
	restartCb  func([]*html.Node)
}

// New returns a watcher for page using the given selector profile.
func New(page *hostpage.Page, selectors hostpage.Selectors) *Watcher {
	return &Watcher{page: page, selectors: selectors}
}

// Start begins observing and immediately reports every post already on
// the page through onNewPosts before returning.
func (w *Watcher) Start(onNewPosts func([]*html.Node)) {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.cb = onNewPosts
	w.pendingSet = make(map[*html.Node]struct{})
	w.cancel = w.page.Subscribe(w.handleEvent)
	w.mu.Unlock()

	logrus.Debug("Watcher started, scanning existing posts")
	existing := hostpage.FindAll(w.page.Body(), w.selectors.Post)
	if len(existing) > 0 {
		onNewPosts(existing)
	}
}

// Stop disconnects observation and drops any coalesced batch. It does not
// remove decorations; that is the orchestrator's job.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopLocked()
}

func (w *Watcher) stopLocked() {
	if w.restartTmr != nil {
		w.restartTmr.Stop()
		w.restartTmr = nil
	}
	w.restartCb = nil
	if !w.running {
		return
	}
	w.running = false
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
	if w.flushTimer != nil {
		w.flushTimer.Stop()
		w.flushTimer = nil
	}
	w.throttled = false
	w.pending = nil
	w.pendingSet = nil
	w.cb = nil
	logrus.Debug("Watcher stopped")
}

// Restart stops and, after a short settle delay, starts again with the
// same callback. Rapid repeated calls collapse into a single restart so
// only one observation is ever alive.
func (w *Watcher) Restart() {
	w.mu.Lock()
	cb := w.cb
	if cb == nil {
		// A restart is already settling; keep its callback.
		cb = w.restartCb
	}
	w.stopLocked()
	if cb == nil {
		w.mu.Unlock()
		return
	}
	w.restartCb = cb
	w.restartTmr = time.AfterFunc(RestartSettle, func() {
		w.mu.Lock()
		w.restartTmr = nil
		w.restartCb = nil
		w.mu.Unlock()
		w.Start(cb)
	})
	w.mu.Unlock()
}

// Running reports whether observation is active.
func (w *Watcher) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// handleEvent qualifies inserted nodes: a node counts if it is a post
// container itself or contains one. A single insertion can surface zero,
// one or many posts.
func (w *Watcher) handleEvent(ev hostpage.Event) {
	var posts []*html.Node
	for _, n := range ev.Added {
		if hostpage.Matches(n, w.selectors.Post) {
			posts = append(posts, n)
		}
		posts = append(posts, hostpage.FindAll(n, w.selectors.Post)...)
	}
	if len(posts) == 0 {
		return
	}
	w.enqueue(posts)
}

// enqueue coalesces posts into the current throttle window. The leading
// batch fires immediately; anything arriving before the window closes is
// accumulated and delivered in one trailing flush, so a burst is reported
// exactly once per node with nothing dropped.
func (w *Watcher) enqueue(posts []*html.Node) {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	for _, n := range posts {
		if _, dup := w.pendingSet[n]; dup {
			continue
		}
		w.pendingSet[n] = struct{}{}
		w.pending = append(w.pending, n)
	}
	if w.throttled || len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}
	w.throttled = true
	batch := w.takePendingLocked()
	cb := w.cb
	w.flushTimer = time.AfterFunc(ThrottleWindow, w.trailingFlush)
	w.mu.Unlock()

	cb(batch)
}

func (w *Watcher) trailingFlush() {
	w.mu.Lock()
	w.throttled = false
	w.flushTimer = nil
	if !w.running || len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}
	w.throttled = true
	batch := w.takePendingLocked()
	cb := w.cb
	w.flushTimer = time.AfterFunc(ThrottleWindow, w.trailingFlush)
	w.mu.Unlock()

	cb(batch)
}

func (w *Watcher) takePendingLocked() []*html.Node {
	batch := w.pending
	w.pending = nil
	w.pendingSet = make(map[*html.Node]struct{})
	return batch
}
