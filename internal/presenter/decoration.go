// Package presenter owns everything the user sees: the per-post trigger
// decoration and its state machine, the suggestions overlay, and the
// apply-suggestion action (reply trigger + clipboard copy).
package presenter

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/html"

	"github.com/replypilot/replypilot/internal/hostpage"
)

// State is the visual state of one trigger decoration.
type State string

const (
	StateNormal  State = "normal"
	StateLoading State = "loading"
	StateSuccess State = "success"
	StateError   State = "error"
)

const (
	// TriggerAttr marks injected trigger buttons in the host tree.
	TriggerAttr = "data-replypilot-trigger"
	stateAttr   = "data-replypilot-state"

	// SuccessDisplay and ErrorDisplay are how long the success and error
	// states linger before the trigger reverts to normal and becomes
	// usable again.
	SuccessDisplay = 1 * time.Second
	ErrorDisplay   = 2 * time.Second
)

// Decorator attaches trigger buttons to posts and tracks their states.
type Decorator struct {
	page      *hostpage.Page
	selectors hostpage.Selectors

	mu         sync.Mutex
	states     map[*html.Node]State
	reverts    map[*html.Node]*time.Timer
	onActivate func(post, trigger *html.Node)
}

// NewDecorator returns a decorator for page. onActivate fires when a
// trigger in normal (or error) state is clicked.
func NewDecorator(page *hostpage.Page, selectors hostpage.Selectors, onActivate func(post, trigger *html.Node)) *Decorator {
	return &Decorator{
		page:       page,
		selectors:  selectors,
		states:     map[*html.Node]State{},
		reverts:    map[*html.Node]*time.Timer{},
		onActivate: onActivate,
	}
}

// HasDecoration reports whether post already carries a trigger.
func (d *Decorator) HasDecoration(post *html.Node) bool {
	return hostpage.FindFirst(post, []string{"[" + TriggerAttr + "]"}) != nil
}

// Attach injects a trigger button into the post's action bar, directly
// after the native reply control when present. Returns nil when the post
// already has a trigger or exposes no action bar.
func (d *Decorator) Attach(post *html.Node) *html.Node {
	if d.HasDecoration(post) {
		return nil
	}
	actionBar := hostpage.FindFirst(post, d.selectors.ActionBar)
	if actionBar == nil {
		return nil
	}

	trigger := hostpage.NewElement("div",
		"role", "button",
		"tabindex", "0",
		TriggerAttr, "true",
		stateAttr, string(StateNormal),
		"title", "Generate reply suggestions",
	)

	if replyBtn := hostpage.FindFirst(actionBar, d.selectors.ReplyTrigger); replyBtn != nil && replyBtn.Parent != nil {
		d.page.InsertBefore(replyBtn.Parent, trigger, replyBtn.NextSibling)
	} else {
		d.page.AppendChild(actionBar, trigger)
	}

	d.mu.Lock()
	d.states[trigger] = StateNormal
	d.mu.Unlock()

	d.page.OnClick(trigger, func() { d.handleClick(post, trigger) })
	return trigger
}

// handleClick ignores clicks while a request for this trigger is already
// in flight.
func (d *Decorator) handleClick(post, trigger *html.Node) {
	if d.StateOf(trigger) == StateLoading {
		logrus.Debug("Ignoring click on loading trigger")
		return
	}
	if d.onActivate != nil {
		d.onActivate(post, trigger)
	}
}

// SetState moves the trigger to state. Success and error revert to
// normal on their own after their display durations.
func (d *Decorator) SetState(trigger *html.Node, state State) {
	d.mu.Lock()
	d.states[trigger] = state
	hostpage.SetAttr(trigger, stateAttr, string(state))
	if t := d.reverts[trigger]; t != nil {
		t.Stop()
		delete(d.reverts, trigger)
	}
	var delay time.Duration
	switch state {
	case StateSuccess:
		delay = SuccessDisplay
	case StateError:
		delay = ErrorDisplay
	}
	if delay > 0 {
		d.reverts[trigger] = time.AfterFunc(delay, func() {
			d.SetState(trigger, StateNormal)
		})
	}
	d.mu.Unlock()
}

// StateOf returns the trigger's current state, defaulting to normal.
func (d *Decorator) StateOf(trigger *html.Node) State {
	d.mu.Lock()
	defer d.mu.Unlock()
	if s, ok := d.states[trigger]; ok {
		return s
	}
	return StateNormal
}

// Count returns how many triggers are currently tracked.
func (d *Decorator) Count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.states)
}

// RemoveAll strips every injected trigger from the page and clears all
// tracked state. Used when the pipeline is disabled.
func (d *Decorator) RemoveAll() {
	triggers := hostpage.FindAll(d.page.Body(), []string{"[" + TriggerAttr + "]"})
	for _, t := range triggers {
		d.page.RemoveNode(t)
	}
	d.mu.Lock()
	for _, t := range d.reverts {
		t.Stop()
	}
	d.states = map[*html.Node]State{}
	d.reverts = map[*html.Node]*time.Timer{}
	d.mu.Unlock()
	if len(triggers) > 0 {
		logrus.Debugf("Removed %d trigger decorations", len(triggers))
	}
}
