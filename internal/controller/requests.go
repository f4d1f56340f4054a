package controller

import "github.com/replypilot/replypilot/internal/models"

// Request is the closed set of control operations. The interface is
// sealed: only the variants below implement it, and Handle dispatches
// over them exhaustively, so an unknown action cannot exist at runtime.
type Request interface {
	isRequest()
}

// PingRequest asks for liveness, enablement and usage stats.
type PingRequest struct{}

// ToggleRequest enables or disables the pipeline. Idempotent.
type ToggleRequest struct {
	Enabled bool
}

// SettingsChangedRequest re-applies settings changes; only the fields
// present (non-nil) are acted on.
type SettingsChangedRequest struct {
	Changes SettingsChanges
}

// SettingsChanges carries the changed subset of settings.
type SettingsChanges struct {
	Enabled *bool `json:"enabled,omitempty"`
}

func (PingRequest) isRequest()            {}
func (ToggleRequest) isRequest()          {}
func (SettingsChangedRequest) isRequest() {}

// Response is the uniform reply to a control request.
type Response struct {
	Success  bool          `json:"success"`
	Active   bool          `json:"active"`
	Enabled  bool          `json:"enabled"`
	Stats    models.Stats  `json:"stats"`
	Observer ObserverStats `json:"observer"`
	Error    string        `json:"error,omitempty"`
}

// ObserverStats describes the current decoration coverage of the page.
type ObserverStats struct {
	KnownPosts     int  `json:"known_posts"`
	DecoratedPosts int  `json:"decorated_posts"`
	Observing      bool `json:"observing"`
}
