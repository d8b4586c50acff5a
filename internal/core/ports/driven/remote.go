package driven

import (
	"context"

	"github.com/safeworkpro/fieldsync/internal/core/domain"
)

// RemoteClient pushes one queued mutation to the remote API.
//
// A nil error means the API acknowledged the mutation. Non-2xx responses
// are reported as *domain.RemoteError. Delivery is at-least-once: the
// client sends the item key so the server can deduplicate.
type RemoteClient interface {
	Push(ctx context.Context, item *domain.QueueItem) error
}

// ObjectUploader stores attachment blobs outside the API.
type ObjectUploader interface {
	// Upload stores data under key and returns the object key used.
	Upload(ctx context.Context, key, contentType string, data []byte) (string, error)
}
