// Package controller orchestrates the pipeline: it owns the enablement
// state, wires the mutation watcher through dedup and decoration, and
// drives the suggestion flow when a trigger is activated. All mutable
// pipeline state lives on the Controller; there are no ambient globals.
package controller

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/html"

	"github.com/replypilot/replypilot/internal/extractor"
	"github.com/replypilot/replypilot/internal/hostpage"
	"github.com/replypilot/replypilot/internal/models"
	"github.com/replypilot/replypilot/internal/presenter"
	"github.com/replypilot/replypilot/internal/providers"
	"github.com/replypilot/replypilot/internal/settings"
	"github.com/replypilot/replypilot/internal/suggest"
	"github.com/replypilot/replypilot/internal/watcher"
)

// FallbackMode decides what happens when a remote provider call fails.
type FallbackMode string

const (
	// FallbackSurface shows the provider error to the user verbatim.
	FallbackSurface FallbackMode = "surface"
	// FallbackLocal retries with the local heuristic generator.
	FallbackLocal FallbackMode = "local"
)

// navigationSettle delays the watcher restart after a host-page
// navigation so the body swap can finish first.
const navigationSettle = 500 * time.Millisecond

// Controller is the top-level orchestrator for one host page.
type Controller struct {
	page      *hostpage.Page
	selectors hostpage.Selectors
	store     settings.Store
	engine    *suggest.Engine
	present   *presenter.Presenter
	decorator *presenter.Decorator
	watch     *watcher.Watcher
	extract   *extractor.Extractor
	dedup     *watcher.DedupTracker
	fallback  FallbackMode

	mu       sync.Mutex
	enabled  bool
	navTimer *time.Timer
}

// Options configures a Controller.
type Options struct {
	Page      *hostpage.Page
	Selectors hostpage.Selectors
	Store     settings.Store
	Engine    *suggest.Engine
	Clipboard presenter.Clipboard
	Fallback  FallbackMode
}

// New wires a controller. It does not start observing; call Start.
func New(opts Options) *Controller {
	if opts.Clipboard == nil {
		opts.Clipboard = presenter.SystemClipboard{}
	}
	if opts.Fallback == "" {
		opts.Fallback = FallbackSurface
	}
	c := &Controller{
		page:      opts.Page,
		selectors: opts.Selectors,
		store:     opts.Store,
		engine:    opts.Engine,
		present:   presenter.New(opts.Page, opts.Selectors, opts.Clipboard),
		extract:   extractor.New(opts.Selectors),
		dedup:     watcher.NewDedupTracker(),
		fallback:  opts.Fallback,
	}
	c.decorator = presenter.NewDecorator(opts.Page, opts.Selectors, c.activate)
	c.watch = watcher.New(opts.Page, opts.Selectors)
	return c
}

// Start enables the pipeline: begins observation and decorates every
// existing post. Idempotent.
func (c *Controller) Start() {
	c.mu.Lock()
	if c.enabled {
		c.mu.Unlock()
		return
	}
	c.enabled = true
	c.mu.Unlock()

	logrus.Info("Reply pipeline enabled")
	c.watch.Start(c.handleNewPosts)
}

// Stop disables the pipeline: stops observation, removes every
// decoration and clears the processed set, so a later Start re-scans
// the page from scratch (nodes may have been replaced meanwhile).
func (c *Controller) Stop() {
	c.mu.Lock()
	if !c.enabled {
		c.mu.Unlock()
		return
	}
	c.enabled = false
	c.mu.Unlock()

	c.watch.Stop()
	c.present.Hide()
	c.decorator.RemoveAll()
	c.dedup.Reset()
	logrus.Info("Reply pipeline disabled")
}

// Enabled reports the current enablement state.
func (c *Controller) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

// NotifyNavigation restarts observation after the host page swaps its
// body (single-page-app navigation). Debounced; rapid calls collapse.
func (c *Controller) NotifyNavigation() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.enabled {
		return
	}
	if c.navTimer != nil {
		c.navTimer.Stop()
	}
	c.navTimer = time.AfterFunc(navigationSettle, c.watch.Restart)
}

// PruneDedup drops tracker entries for collected nodes; run periodically.
func (c *Controller) PruneDedup() {
	if n := c.dedup.Prune(); n > 0 {
		logrus.Debugf("Pruned %d dead dedup entries", n)
	}
}

// handleNewPosts decorates each newly discovered post exactly once.
// Extraction is not run eagerly here; only a cheap has-text check gates
// the decoration.
func (c *Controller) handleNewPosts(posts []*html.Node) {
	for _, post := range posts {
		if c.dedup.HasProcessed(post) {
			continue
		}
		if c.decorator.HasDecoration(post) {
			c.dedup.MarkProcessed(post)
			continue
		}
		if !c.extract.HasText(post) {
			// Media-only posts are never decorated.
			continue
		}
		if c.decorator.Attach(post) != nil {
			c.dedup.MarkProcessed(post)
		}
	}
}

// activate runs the suggestion flow for one trigger. The decorator has
// already rejected clicks while loading, so per trigger at most one
// request is in flight.
func (c *Controller) activate(post, trigger *html.Node) {
	c.decorator.SetState(trigger, presenter.StateLoading)
	go c.runSuggestionFlow(post, trigger)
}

func (c *Controller) runSuggestionFlow(post, trigger *html.Node) {
	ctx := context.Background()
	content := c.extract.Extract(post)

	st, err := c.store.Load(ctx)
	if err != nil {
		logrus.Errorf("Failed to load settings: %v", err)
		c.fail(post, trigger, err.Error())
		return
	}

	suggestions, err := c.engine.Generate(ctx, content, st)
	if err != nil && c.fallback == FallbackLocal && providers.IsProviderError(err) {
		logrus.Warnf("Provider failed (%v), falling back to local suggestions", err)
		suggestions, err = c.engine.Local(ctx, content, st)
	}
	if err != nil {
		c.fail(post, trigger, err.Error())
		return
	}

	c.decorator.SetState(trigger, presenter.StateSuccess)
	c.present.Present(post, suggestions)
}

func (c *Controller) fail(post, trigger *html.Node, message string) {
	c.decorator.SetState(trigger, presenter.StateError)
	c.present.PresentError(post, message)
}

// Handle dispatches a control request. The type switch covers every
// Request variant; the set is sealed in this package.
func (c *Controller) Handle(ctx context.Context, req Request) Response {
	switch r := req.(type) {
	case PingRequest:
		return c.snapshot(ctx, "")
	case ToggleRequest:
		c.applyEnabled(r.Enabled)
		return c.snapshot(ctx, "")
	case SettingsChangedRequest:
		if r.Changes.Enabled != nil {
			c.applyEnabled(*r.Changes.Enabled)
		}
		return c.snapshot(ctx, "")
	}
	// Unreachable: Request is sealed.
	return Response{Success: false, Error: "unhandled request"}
}

func (c *Controller) applyEnabled(enabled bool) {
	if enabled {
		c.Start()
	} else {
		c.Stop()
	}
}

func (c *Controller) snapshot(ctx context.Context, errMsg string) Response {
	var stats models.Stats
	if st, err := c.store.Load(ctx); err == nil {
		stats = st.Stats
	} else {
		logrus.Warnf("Failed to load stats for snapshot: %v", err)
	}
	return Response{
		Success: errMsg == "",
		Active:  true,
		Enabled: c.Enabled(),
		Stats:   stats,
		Observer: ObserverStats{
			KnownPosts:     len(hostpage.FindAll(c.page.Body(), c.selectors.Post)),
			DecoratedPosts: c.decorator.Count(),
			Observing:      c.watch.Running(),
		},
		Error: errMsg,
	}
}
