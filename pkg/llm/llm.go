// Package llm wraps text-completion providers behind a single Completer
// interface and owns the lifecycle of provider clients.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrNotConfigured is returned when no provider is configured.
var ErrNotConfigured = errors.New("llm provider not configured")

// Completer turns a prompt into raw completion text.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// CompleterFunc adapts a function into a Completer.
type CompleterFunc func(ctx context.Context, prompt string) (string, error)

// Complete calls f.
func (f CompleterFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// StatusError reports a non-2xx reply from a provider.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.Provider, e.StatusCode, e.Body)
}

// IsAuthError reports whether err means the provider rejected our credentials.
func IsAuthError(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode == http.StatusUnauthorized || statusErr.StatusCode == http.StatusForbidden
	}
	return false
}
