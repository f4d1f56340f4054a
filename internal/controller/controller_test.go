package controller

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/replypilot/replypilot/internal/hostpage"
	"github.com/replypilot/replypilot/internal/models"
	"github.com/replypilot/replypilot/internal/presenter"
	"github.com/replypilot/replypilot/internal/providers"
	"github.com/replypilot/replypilot/internal/settings"
	"github.com/replypilot/replypilot/internal/suggest"
	"github.com/replypilot/replypilot/internal/watcher"
)

type fakeClipboard struct {
	mu    sync.Mutex
	texts []string
}

func (f *fakeClipboard) Write(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	return nil
}

type fakeRemote struct {
	mu    sync.Mutex
	reply string
	err   error
	calls int
}

func (f *fakeRemote) Name() string { return "fake" }

func (f *fakeRemote) Complete(ctx context.Context, prompt, apiKey string, cfg providers.GenerationConfig) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func newTextPost(text string) *html.Node {
	post := hostpage.NewElement("div", "data-testid", "tweet")
	body := hostpage.NewElement("div", "data-testid", "tweetText")
	body.AppendChild(hostpage.NewText(text))
	post.AppendChild(body)
	group := hostpage.NewElement("div", "role", "group")
	reply := hostpage.NewElement("div", "data-testid", "reply")
	group.AppendChild(reply)
	post.AppendChild(group)
	return post
}

func newMediaPost() *html.Node {
	post := hostpage.NewElement("div", "data-testid", "tweet")
	media := hostpage.NewElement("div", "data-testid", "media-container")
	caption := hostpage.NewElement("div", "lang", "en")
	caption.AppendChild(hostpage.NewText("caption text"))
	media.AppendChild(caption)
	post.AppendChild(media)
	group := hostpage.NewElement("div", "role", "group")
	post.AppendChild(group)
	return post
}

type fixture struct {
	page   *hostpage.Page
	store  settings.Store
	engine *suggest.Engine
	remote *fakeRemote
	clip   *fakeClipboard
	ctrl   *Controller
}

func newFixture(t *testing.T, fallback FallbackMode) *fixture {
	t.Helper()
	page := hostpage.New()
	store := settings.NewFileStore(filepath.Join(t.TempDir(), "settings.json"))
	engine := suggest.NewEngine(store)
	remote := &fakeRemote{reply: "Remote one\nRemote two\nRemote three"}
	engine.Register(models.ProviderGemini, remote)
	clip := &fakeClipboard{}

	ctrl := New(Options{
		Page:      page,
		Selectors: hostpage.DefaultSelectors(),
		Store:     store,
		Engine:    engine,
		Clipboard: clip,
		Fallback:  fallback,
	})
	t.Cleanup(ctrl.Stop)
	return &fixture{page: page, store: store, engine: engine, remote: remote, clip: clip, ctrl: ctrl}
}

func (f *fixture) saveSettings(t *testing.T, st models.Settings) {
	t.Helper()
	require.NoError(t, f.store.Save(context.Background(), st))
}

func (f *fixture) triggerOf(t *testing.T, post *html.Node) *html.Node {
	t.Helper()
	trigger := hostpage.FindFirst(post, []string{"[" + presenter.TriggerAttr + "]"})
	require.NotNil(t, trigger, "post has no trigger decoration")
	return trigger
}

func TestController_StartDecoratesExistingPosts(t *testing.T) {
	f := newFixture(t, FallbackSurface)
	withText := newTextPost("Hello from the timeline")
	mediaOnly := newMediaPost()
	f.page.AppendChild(f.page.Body(), withText)
	f.page.AppendChild(f.page.Body(), mediaOnly)

	f.ctrl.Start()

	assert.True(t, f.ctrl.Enabled())
	assert.NotNil(t, hostpage.FindFirst(withText, []string{"[" + presenter.TriggerAttr + "]"}))
	// Media-only posts are never decorated.
	assert.Nil(t, hostpage.FindFirst(mediaOnly, []string{"[" + presenter.TriggerAttr + "]"}))
}

func TestController_NewPostsDecoratedOnce(t *testing.T) {
	f := newFixture(t, FallbackSurface)
	f.ctrl.Start()

	post := newTextPost("Fresh post")
	f.page.AppendChild(f.page.Body(), post)

	assert.Eventually(t, func() bool {
		return hostpage.FindFirst(post, []string{"[" + presenter.TriggerAttr + "]"}) != nil
	}, time.Second, 10*time.Millisecond)

	// Re-reporting the same node must not attach a second trigger.
	f.ctrl.handleNewPosts([]*html.Node{post})
	assert.Len(t, hostpage.FindAll(post, []string{"[" + presenter.TriggerAttr + "]"}), 1)
}

func TestController_StartStopIdempotent(t *testing.T) {
	f := newFixture(t, FallbackSurface)
	f.ctrl.Start()
	f.ctrl.Start()
	assert.True(t, f.ctrl.Enabled())

	f.ctrl.Stop()
	f.ctrl.Stop()
	assert.False(t, f.ctrl.Enabled())
}

func TestController_ToggleOffRemovesDecorationsAndToggleOnRestores(t *testing.T) {
	f := newFixture(t, FallbackSurface)
	post := newTextPost("Toggle scenario")
	f.page.AppendChild(f.page.Body(), post)
	f.ctrl.Start()
	require.NotNil(t, hostpage.FindFirst(post, []string{"[" + presenter.TriggerAttr + "]"}))

	resp := f.ctrl.Handle(context.Background(), ToggleRequest{Enabled: false})
	assert.True(t, resp.Success)
	assert.False(t, resp.Enabled)
	assert.Nil(t, hostpage.FindFirst(post, []string{"[" + presenter.TriggerAttr + "]"}))

	// Re-enable: the processed set was cleared, so the same node is
	// decorated again.
	resp = f.ctrl.Handle(context.Background(), ToggleRequest{Enabled: true})
	assert.True(t, resp.Enabled)
	assert.NotNil(t, hostpage.FindFirst(post, []string{"[" + presenter.TriggerAttr + "]"}))
	assert.Equal(t, 1, resp.Observer.DecoratedPosts)
}

func TestController_HandlePing(t *testing.T) {
	f := newFixture(t, FallbackSurface)
	f.page.AppendChild(f.page.Body(), newTextPost("One post"))
	f.ctrl.Start()

	resp := f.ctrl.Handle(context.Background(), PingRequest{})
	assert.True(t, resp.Success)
	assert.True(t, resp.Active)
	assert.True(t, resp.Enabled)
	assert.Equal(t, 1, resp.Observer.KnownPosts)
	assert.Equal(t, 1, resp.Observer.DecoratedPosts)
	assert.True(t, resp.Observer.Observing)
}

func TestController_HandleSettingsChanged(t *testing.T) {
	f := newFixture(t, FallbackSurface)

	enabled := true
	resp := f.ctrl.Handle(context.Background(), SettingsChangedRequest{Changes: SettingsChanges{Enabled: &enabled}})
	assert.True(t, resp.Enabled)

	// No Enabled field means no enablement change.
	resp = f.ctrl.Handle(context.Background(), SettingsChangedRequest{})
	assert.True(t, resp.Enabled)

	disabled := false
	resp = f.ctrl.Handle(context.Background(), SettingsChangedRequest{Changes: SettingsChanges{Enabled: &disabled}})
	assert.False(t, resp.Enabled)
}

func TestController_LocalSuggestionFlow(t *testing.T) {
	f := newFixture(t, FallbackSurface)
	st := models.DefaultSettings()
	st.Provider = models.ProviderLocal
	f.saveSettings(t, st)

	post := newTextPost("What do you all think about this?")
	f.page.AppendChild(f.page.Body(), post)
	f.ctrl.Start()

	trigger := f.triggerOf(t, post)
	require.True(t, f.page.Click(trigger))

	// The flow runs async: loading first, then success plus overlay.
	assert.Eventually(t, func() bool {
		return f.ctrl.present.Visible()
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, presenter.StateSuccess, f.ctrl.decorator.StateOf(trigger))

	items := hostpage.FindAll(f.page.Body(), []string{"button[data-suggestion]"})
	assert.GreaterOrEqual(t, len(items), models.MinSuggestions)

	// Usage counters moved.
	loaded, err := f.store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.Stats.PostsProcessed)
	assert.Equal(t, len(items), loaded.Stats.SuggestionsGenerated)
}

func TestController_RemoteSuggestionFlow(t *testing.T) {
	f := newFixture(t, FallbackSurface)
	st := models.DefaultSettings()
	st.APIKeys[models.ProviderGemini] = "key"
	f.saveSettings(t, st)

	post := newTextPost("A post worth replying to")
	f.page.AppendChild(f.page.Body(), post)
	f.ctrl.Start()

	trigger := f.triggerOf(t, post)
	require.True(t, f.page.Click(trigger))

	assert.Eventually(t, func() bool {
		return f.ctrl.present.Visible()
	}, time.Second, 10*time.Millisecond)

	items := hostpage.FindAll(f.page.Body(), []string{"button[data-suggestion]"})
	require.Len(t, items, 3)
	assert.Equal(t, "Remote one", hostpage.Attr(items[0], "data-suggestion"))
}

func TestController_RemoteFailureSurfacesError(t *testing.T) {
	f := newFixture(t, FallbackSurface)
	f.remote.err = &providers.HTTPError{Provider: "gemini", Status: 429, Body: "Resource has been exhausted"}
	st := models.DefaultSettings()
	st.APIKeys[models.ProviderGemini] = "key"
	f.saveSettings(t, st)

	post := newTextPost("A post worth replying to")
	f.page.AppendChild(f.page.Body(), post)
	f.ctrl.Start()

	trigger := f.triggerOf(t, post)
	require.True(t, f.page.Click(trigger))

	assert.Eventually(t, func() bool {
		return f.ctrl.decorator.StateOf(trigger) == presenter.StateError
	}, time.Second, 10*time.Millisecond)

	overlays := hostpage.FindAll(f.page.Body(), []string{`[data-replypilot-overlay]`})
	require.Len(t, overlays, 1)
	assert.Contains(t, hostpage.Text(overlays[0]), "Resource has been exhausted")
	assert.Empty(t, hostpage.FindAll(overlays[0], []string{"button[data-suggestion]"}))
}

func TestController_RemoteFailureFallsBackToLocalWhenConfigured(t *testing.T) {
	f := newFixture(t, FallbackLocal)
	f.remote.err = providers.ErrTimeout
	st := models.DefaultSettings()
	st.APIKeys[models.ProviderGemini] = "key"
	f.saveSettings(t, st)

	post := newTextPost("A post worth replying to")
	f.page.AppendChild(f.page.Body(), post)
	f.ctrl.Start()

	trigger := f.triggerOf(t, post)
	require.True(t, f.page.Click(trigger))

	assert.Eventually(t, func() bool {
		return f.ctrl.present.Visible()
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, presenter.StateSuccess, f.ctrl.decorator.StateOf(trigger))
	assert.GreaterOrEqual(t,
		len(hostpage.FindAll(f.page.Body(), []string{"button[data-suggestion]"})),
		models.MinSuggestions)
}

func TestController_NavigationRestartsObservation(t *testing.T) {
	f := newFixture(t, FallbackSurface)
	f.page.AppendChild(f.page.Body(), newTextPost("Old timeline"))
	f.ctrl.Start()

	replacement := newTextPost("New timeline")
	f.page.ReplaceBody(replacement)
	f.ctrl.NotifyNavigation()

	assert.Eventually(t, func() bool {
		return hostpage.FindFirst(replacement, []string{"[" + presenter.TriggerAttr + "]"}) != nil
	}, 3*time.Second, 25*time.Millisecond)
	assert.True(t, f.ctrl.watch.Running())
}

func TestController_NavigationIgnoredWhileDisabled(t *testing.T) {
	f := newFixture(t, FallbackSurface)
	f.ctrl.NotifyNavigation()
	time.Sleep(navigationSettle + watcher.RestartSettle + 100*time.Millisecond)
	assert.False(t, f.ctrl.watch.Running())
}

func TestController_StopHidesOverlay(t *testing.T) {
	f := newFixture(t, FallbackSurface)
	st := models.DefaultSettings()
	st.Provider = models.ProviderLocal
	f.saveSettings(t, st)

	post := newTextPost("Still open when disabled")
	f.page.AppendChild(f.page.Body(), post)
	f.ctrl.Start()

	trigger := f.triggerOf(t, post)
	require.True(t, f.page.Click(trigger))
	require.Eventually(t, func() bool {
		return f.ctrl.present.Visible()
	}, time.Second, 10*time.Millisecond)

	f.ctrl.Stop()
	assert.False(t, f.ctrl.present.Visible())
	assert.Empty(t, hostpage.FindAll(f.page.Body(), []string{`[data-replypilot-overlay]`}))
}

func TestController_PruneDedup(t *testing.T) {
	f := newFixture(t, FallbackSurface)
	f.page.AppendChild(f.page.Body(), newTextPost("Kept alive"))
	f.ctrl.Start()

	// Nothing has been collected, so pruning must not lose live entries.
	f.ctrl.PruneDedup()
	resp := f.ctrl.Handle(context.Background(), PingRequest{})
	assert.Equal(t, 1, resp.Observer.DecoratedPosts)
}
