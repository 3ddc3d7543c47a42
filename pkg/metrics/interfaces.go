package metrics

import (
	"context"
	"errors"

	dashboard "github.com/tavolahq/go-salesboard/components/dashboard"
)

// ErrUnauthorized is returned when the analytics backend rejects the bearer
// token. Callers typically clear their session and re-authenticate.
var ErrUnauthorized = errors.New("metrics: unauthorized")

// TokenSource supplies the bearer token attached to backend requests.
// Returning an empty token sends the request unauthenticated.
type TokenSource func(ctx context.Context) (string, error)

// Backend is what the dashboard catalog needs from a metrics client.
type Backend = dashboard.MetricsBackend
