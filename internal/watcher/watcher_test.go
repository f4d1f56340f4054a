package watcher

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/replypilot/replypilot/internal/hostpage"
)

func newPost() *html.Node {
	return hostpage.NewElement("div", "data-testid", "tweet")
}

// batchRecorder collects callback batches across goroutines.
type batchRecorder struct {
	mu      sync.Mutex
	batches [][]*html.Node
}

func (r *batchRecorder) record(posts []*html.Node) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, posts)
}

func (r *batchRecorder) total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, b := range r.batches {
		n += len(b)
	}
	return n
}

func (r *batchRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.batches)
}

func (r *batchRecorder) all() []*html.Node {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*html.Node
	for _, b := range r.batches {
		out = append(out, b...)
	}
	return out
}

func TestWatcher_StartReportsExistingPosts(t *testing.T) {
	page := hostpage.New()
	existing := newPost()
	page.AppendChild(page.Body(), existing)

	w := New(page, hostpage.DefaultSelectors())
	rec := &batchRecorder{}
	w.Start(rec.record)
	defer w.Stop()

	require.Equal(t, 1, rec.count())
	assert.Equal(t, []*html.Node{existing}, rec.batches[0])
	assert.True(t, w.Running())
}

func TestWatcher_StartIsIdempotent(t *testing.T) {
	page := hostpage.New()
	page.AppendChild(page.Body(), newPost())

	w := New(page, hostpage.DefaultSelectors())
	rec := &batchRecorder{}
	w.Start(rec.record)
	w.Start(rec.record)
	defer w.Stop()

	assert.Equal(t, 1, rec.count())
}

func TestWatcher_BurstIsThrottledWithoutDrops(t *testing.T) {
	page := hostpage.New()
	w := New(page, hostpage.DefaultSelectors())
	rec := &batchRecorder{}
	w.Start(rec.record)
	defer w.Stop()

	const inserted = 50
	posts := make(map[*html.Node]struct{}, inserted)
	for i := 0; i < inserted; i++ {
		p := newPost()
		posts[p] = struct{}{}
		page.AppendChild(page.Body(), p)
	}

	// Every post must come through once the trailing flush runs; nothing
	// may be dropped and nothing delivered twice.
	assert.Eventually(t, func() bool {
		return rec.total() == inserted
	}, time.Second, 10*time.Millisecond)

	delivered := rec.all()
	seen := map[*html.Node]struct{}{}
	for _, p := range delivered {
		_, dup := seen[p]
		assert.False(t, dup, "post delivered twice")
		seen[p] = struct{}{}
		_, known := posts[p]
		assert.True(t, known, "unknown node delivered")
	}

	// A burst coalesces: far fewer callbacks than insertions.
	assert.Less(t, rec.count(), 5)
}

func TestWatcher_NestedPostsAreDiscovered(t *testing.T) {
	page := hostpage.New()
	w := New(page, hostpage.DefaultSelectors())
	rec := &batchRecorder{}
	w.Start(rec.record)
	defer w.Stop()

	wrapper := hostpage.NewElement("div", "class", "timeline-chunk")
	inner1 := newPost()
	inner2 := newPost()
	wrapper.AppendChild(inner1)
	wrapper.AppendChild(inner2)
	page.AppendChild(page.Body(), wrapper)

	assert.Eventually(t, func() bool {
		return rec.total() == 2
	}, time.Second, 10*time.Millisecond)
}

func TestWatcher_NonPostInsertionsAreIgnored(t *testing.T) {
	page := hostpage.New()
	w := New(page, hostpage.DefaultSelectors())
	rec := &batchRecorder{}
	w.Start(rec.record)
	defer w.Stop()

	page.AppendChild(page.Body(), hostpage.NewElement("div", "class", "ad"))

	time.Sleep(2 * ThrottleWindow)
	assert.Equal(t, 0, rec.count())
}

func TestWatcher_StopDropsPending(t *testing.T) {
	page := hostpage.New()
	w := New(page, hostpage.DefaultSelectors())
	rec := &batchRecorder{}
	w.Start(rec.record)

	// The first insertion flushes immediately, the second sits in the
	// throttle window until Stop discards it.
	page.AppendChild(page.Body(), newPost())
	page.AppendChild(page.Body(), newPost())
	w.Stop()

	time.Sleep(2 * ThrottleWindow)
	assert.Equal(t, 1, rec.total())
	assert.False(t, w.Running())
}

func TestWatcher_RestartRescansPage(t *testing.T) {
	page := hostpage.New()
	page.AppendChild(page.Body(), newPost())

	w := New(page, hostpage.DefaultSelectors())
	rec := &batchRecorder{}
	w.Start(rec.record)
	defer w.Stop()
	require.Equal(t, 1, rec.total())

	w.Restart()
	assert.Eventually(t, func() bool {
		return w.Running() && rec.total() == 2
	}, time.Second, 10*time.Millisecond)
}

func TestWatcher_RapidRestartsCollapse(t *testing.T) {
	page := hostpage.New()
	page.AppendChild(page.Body(), newPost())

	w := New(page, hostpage.DefaultSelectors())
	rec := &batchRecorder{}
	w.Start(rec.record)
	defer w.Stop()
	require.Equal(t, 1, rec.total())

	w.Restart()
	w.Restart()
	w.Restart()

	assert.Eventually(t, func() bool { return w.Running() }, time.Second, 10*time.Millisecond)
	// Only the last restart survives, so exactly one extra scan happened.
	time.Sleep(2 * RestartSettle)
	assert.Equal(t, 2, rec.total())
}

func TestWatcher_RestartWithoutStartIsNoop(t *testing.T) {
	page := hostpage.New()
	w := New(page, hostpage.DefaultSelectors())
	w.Restart()
	time.Sleep(2 * RestartSettle)
	assert.False(t, w.Running())
}
