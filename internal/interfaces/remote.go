package interfaces

import (
	"context"
	"errors"
	"fmt"
)

// RemoteErrorKind classifies failures returned by the remote resource API.
type RemoteErrorKind string

// RemoteErrorKind constants cover the failure modes of remote calls.
const (
	// RemoteErrorTransient covers rate limiting, timeouts and dropped
	// connections. Transient failures are retried with backoff.
	RemoteErrorTransient RemoteErrorKind = "transient"
	// RemoteErrorValidation means the remote rejected the payload. Never
	// retried.
	RemoteErrorValidation RemoteErrorKind = "validation"
	// RemoteErrorConflict means the operation conflicts with remote state,
	// e.g. creating an identifier that already exists. Never retried.
	RemoteErrorConflict RemoteErrorKind = "conflict"
	// RemoteErrorNotFound means an update or delete targeted a missing
	// resource. Never retried.
	RemoteErrorNotFound RemoteErrorKind = "not-found"
)

// RemoteError is a typed failure from the remote resource API.
type RemoteError struct {
	Kind RemoteErrorKind
	Op   string
	Key  ResourceKey
	Err  error
}

// Error implements the error interface.
func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote %s %s (%s): %v", e.Op, e.Key, e.Kind, e.Err)
}

// Unwrap exposes the underlying cause.
func (e *RemoteError) Unwrap() error { return e.Err }

// NewRemoteError builds a typed remote failure.
func NewRemoteError(kind RemoteErrorKind, op string, key ResourceKey, err error) *RemoteError {
	return &RemoteError{Kind: kind, Op: op, Key: key, Err: err}
}

// IsTransient reports whether err is (or wraps) a transient remote failure.
func IsTransient(err error) bool {
	var remoteErr *RemoteError
	if errors.As(err, &remoteErr) {
		return remoteErr.Kind == RemoteErrorTransient
	}
	return false
}

// ResourceClient exposes one resource type's collection on the remote
// platform. Each resource type is an independent collection keyed by a
// stable external identifier.
type ResourceClient interface {
	// List returns every managed resource of the client's type.
	List(ctx context.Context) ([]RemoteRecord, error)
	// Create creates a resource with the given payload.
	Create(ctx context.Context, externalID string, payload map[string]interface{}) error
	// Update replaces the payload of an existing resource.
	Update(ctx context.Context, externalID string, payload map[string]interface{}) error
	// Delete removes an existing resource.
	Delete(ctx context.Context, externalID string) error
}

// RemoteClientSet hands out per-type resource clients for a target platform
// session. Authentication happens outside the engine; the set is assumed to
// carry a ready-to-use credential handle.
type RemoteClientSet interface {
	// ForType returns the collection client for a resource type.
	ForType(resourceType ResourceType) (ResourceClient, error)
}
