package presenter

import (
	"errors"
	"fmt"

	"github.com/atotto/clipboard"
)

// Clipboard writes text to the system clipboard. The call may fail
// (headless host, denied access); the presenter then runs its DOM-based
// fallback path.
type Clipboard interface {
	Write(text string) error
}

// ErrClipboard reports that both the native write and the fallback failed.
var ErrClipboard = errors.New("clipboard copy failed")

// SystemClipboard uses the platform clipboard.
type SystemClipboard struct{}

var _ Clipboard = SystemClipboard{}

func (SystemClipboard) Write(text string) error {
	if clipboard.Unsupported {
		return fmt.Errorf("%w: no clipboard available on this platform", ErrClipboard)
	}
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("%w: %v", ErrClipboard, err)
	}
	return nil
}
