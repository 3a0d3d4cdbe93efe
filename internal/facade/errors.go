package facade

import (
	"context"
	"errors"
	"fmt"
	"net"

	"gameworld/internal/db"
	"gameworld/internal/identity"
)

var (
	// ErrNoAuthority means there is neither a session nor a guest store.
	ErrNoAuthority       = errors.New("no session and no guest store")
	ErrNotAuthenticated  = errors.New("not signed in")
	ErrRemoteUnavailable = errors.New("remote backend not configured")
	// ErrSuperseded is returned by a sign-in whose result was discarded
	// because the session changed while it was in flight.
	ErrSuperseded = errors.New("session changed during sign-in")
)

// RemoteError wraps a failed call to the remote store or identity provider.
type RemoteError struct {
	Op        string
	Err       error
	Retryable bool
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// passThrough lists answers from the backend that are results, not failures.
var passThrough = []error{
	db.ErrNotFound,
	identity.ErrInvalidCredentials,
	identity.ErrUserExists,
	identity.ErrInvalidSession,
}

// call runs fn under the facade timeout and classifies its error.
func call[T any](ctx context.Context, f *Facade, op string, fn func(context.Context) (T, error)) (T, error) {
	cctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	v, err := fn(cctx)
	if err == nil {
		return v, nil
	}
	for _, target := range passThrough {
		if errors.Is(err, target) {
			return v, err
		}
	}
	if ctx.Err() != nil {
		// The caller gave up; that is not a backend failure.
		return v, ctx.Err()
	}
	f.log.Warn("remote call failed", "op", op, "error", err)
	return v, &RemoteError{Op: op, Err: err, Retryable: retryable(err)}
}

func retryable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var apiErr *identity.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 500 || apiErr.Status == 429
	}
	return false
}
