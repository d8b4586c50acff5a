package driving

import "context"

// Monitor triggers sync passes on reconnect and on a periodic timer.
type Monitor interface {
	// Start begins watching connectivity.
	// Blocks until context is cancelled or Stop is called.
	Start(ctx context.Context) error

	// Stop gracefully stops the monitor.
	Stop() error
}
