package common

import (
	"errors"
	"fmt"
)

// Error taxonomy for the sync/store/bridge paths. Network and server errors
// are transient and bubble up to the scheduler as a retry signal, everything
// else is recovered locally. Nothing here is ever allowed to crash the host.

// ErrNotFound maps a user-scoped 404 from the backend. It means "nothing to
// sync for this user", not a failure.
var ErrNotFound = errors.New("not found")

type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error during %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

type ServerError struct {
	Status int
	Body   string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error: status %d: %s", e.Status, e.Body)
}

// ValidationError marks a malformed payload. The offending message is
// dropped and the rest of the batch keeps going, it is never treated as
// permanently fatal.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s", e.Reason)
}

// StorageError wraps local persistence failures. Callers degrade to an
// empty result set and rely on the next sync to self-heal, upsert being
// idempotent.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// ProtocolError marks an unparseable or out-of-state message from the
// render surface. Logged and ignored.
type ProtocolError struct {
	Raw   string
	State string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error in state %s: %q", e.State, e.Raw)
}

// IsRetryable reports whether the scheduler should retry after err.
func IsRetryable(err error) bool {
	var netErr *NetworkError
	var srvErr *ServerError
	return errors.As(err, &netErr) || errors.As(err, &srvErr)
}
