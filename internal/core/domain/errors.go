package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrSyncInProgress indicates a sync pass is already running.
	ErrSyncInProgress = errors.New("sync in progress")

	// Sync Errors.

	// ErrStorageUnavailable indicates the local durable store cannot be opened
	// or has not been initialised. All queue operations fail until a later
	// Initialize succeeds.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrNetworkUnavailable indicates there is no connectivity.
	// The sync pass is skipped entirely.
	ErrNetworkUnavailable = errors.New("network unavailable")

	// ErrRemoteRejected indicates the remote API returned a non-success status.
	// The item stays queued and is retried on the next pass.
	ErrRemoteRejected = errors.New("remote rejected")

	// ErrItemNotFound indicates a manual retry targeted a key absent from the queue.
	ErrItemNotFound = errors.New("queue item not found")

	// ErrRateLimited indicates the remote asked the client to back off and
	// the window outlasts the request deadline. No request was sent, so the
	// item is deferred rather than failed.
	ErrRateLimited = errors.New("rate limited")
)

// RemoteError describes a non-2xx response from the remote API.
// It matches ErrRemoteRejected under errors.Is.
type RemoteError struct {
	StatusCode int
	Method     string
	Path       string
	Message    string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote rejected %s %s: status %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("remote rejected %s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
}

// Unwrap lets errors.Is match ErrRemoteRejected.
func (e *RemoteError) Unwrap() error {
	return ErrRemoteRejected
}

// IsRetryable reports whether a remote failure may succeed on a later pass.
// Client errors other than 408 and 429 are still kept in the queue, but the
// UI can surface them sooner.
func (e *RemoteError) IsRetryable() bool {
	if e.StatusCode >= 500 {
		return true
	}
	return e.StatusCode == 408 || e.StatusCode == 429
}

// IsRetryable reports whether a push error may succeed on a later pass
// without intervention. Transport failures are retryable; remote rejections
// defer to RemoteError.IsRetryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var remoteErr *RemoteError
	if errors.As(err, &remoteErr) {
		return remoteErr.IsRetryable()
	}
	return true
}
