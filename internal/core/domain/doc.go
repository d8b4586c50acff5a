// Package domain defines the core business entities for fieldsync.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - QueueItem: A durable unit of pending work awaiting remote sync
//   - Payload: The typed mutation carried by a queue item
//   - SyncMetadata: Process-wide sync flags
//   - SyncStats: Read-only queue snapshot for the UI
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
