package providers

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrTimeout reports that a completion request exceeded its deadline.
// The in-flight request is aborted; there is no automatic retry.
var ErrTimeout = errors.New("provider request timed out")

// ErrMissingAPIKey reports that a remote call was attempted without a key.
var ErrMissingAPIKey = errors.New("API key is empty")

// HTTPError carries a non-2xx upstream response.
type HTTPError struct {
	Provider string
	Status   int
	Body     string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s API error: status %d: %s", e.Provider, e.Status, e.Body)
}

// ParseError reports a well-formed HTTP exchange whose body did not
// contain usable completion text.
type ParseError struct {
	Provider string
	Reason   string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s returned an invalid response: %s", e.Provider, e.Reason)
}

// wrapTransportError normalizes resty transport failures into the typed
// taxonomy; deadline and timeout conditions all collapse into ErrTimeout.
func wrapTransportError(provider string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout
	}
	return fmt.Errorf("%s request failed: %w", provider, err)
}

// IsProviderError reports whether err came from the remote-provider path,
// as opposed to content validation or parsing on our side. Callers use it
// to decide whether local fallback applies.
func IsProviderError(err error) bool {
	var httpErr *HTTPError
	var parseErr *ParseError
	return errors.Is(err, ErrTimeout) || errors.As(err, &httpErr) || errors.As(err, &parseErr)
}
