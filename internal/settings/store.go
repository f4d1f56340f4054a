// Package settings persists the user-editable configuration and usage
// counters. Stores are shared process-wide; stats writes are additive
// read-modify-write and tolerate last-writer-wins races, since counters
// are informational rather than correctness-critical.
package settings

import (
	"context"
	"fmt"

	"github.com/replypilot/replypilot/internal/models"
)

// Store is the contract for settings persistence.
type Store interface {
	// Load returns the current settings, normalized. A store with no
	// saved state returns the first-install defaults.
	Load(ctx context.Context) (models.Settings, error)
	// Save replaces the persisted settings.
	Save(ctx context.Context, s models.Settings) error
	// AddStats adds delta to the persisted counters and returns the new
	// totals. Counters are never reset here.
	AddStats(ctx context.Context, delta models.Stats) (models.Stats, error)
}

// StoreError wraps a failed store operation.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("settings store %s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }
