package driven

import "context"

// ConnectivityProvider reports the host's network state.
type ConnectivityProvider interface {
	// Online returns the current network state.
	Online(ctx context.Context) bool

	// Watch emits the new state on every online/offline transition.
	// The channel is closed when ctx is cancelled.
	Watch(ctx context.Context) <-chan bool
}
