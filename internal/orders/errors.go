package orders

import "fmt"

// ValidationError is a caller mistake: empty cart, unknown id format,
// out-of-stock request, nothing left to update. The message is safe to
// return to the client.
type ValidationError struct {
	Message string
}

func (e ValidationError) Error() string { return e.Message }

// ConfigError is a deployment problem (missing price, missing secret). The
// message is logged but never returned verbatim; callers answer with a
// generic error instead.
type ConfigError struct {
	Message string
}

func (e ConfigError) Error() string { return e.Message }

// UpstreamError wraps a failed provider call.
type UpstreamError struct {
	Op  string
	Err error
}

func (e UpstreamError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e UpstreamError) Unwrap() error { return e.Err }

// NotFoundError reports an unknown record id.
type NotFoundError struct {
	ID string
}

func (e NotFoundError) Error() string { return fmt.Sprintf("order %s not found", e.ID) }
