package integrations

import (
	"errors"
	"fmt"
)

// ErrProviderDisabled is returned when an integration is turned off or has
// no credentials configured. Callers must treat this as "skip, not error":
// the enclosing feature degrades to unavailable instead of failing.
var ErrProviderDisabled = errors.New("provider is disabled or not configured")

// AuthenticationError indicates the OAuth token request itself failed.
type AuthenticationError struct {
	Provider string
	Status   int
	Body     string
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication with provider %q failed (status %d)", e.Provider, e.Status)
}

// UpstreamError indicates the provider rejected or soft-failed an API call.
// Context is a human-readable call-site label used for attribution only.
type UpstreamError struct {
	Status  int
	Message string
	Context string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: upstream error (status %d): %s", e.Context, e.Status, e.Message)
}
