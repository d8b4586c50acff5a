// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - QueueStore: Durable queue persistence
//   - MetadataStore: Sync flag persistence
//   - RemoteClient: Pushes queued mutations to the SafeWork Pro API
//   - ConnectivityProvider: Reports network state
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - HistoryStore: Sync pass history. Without it, history is not recorded.
//   - ObjectUploader: Direct attachment upload. Without it, attachments go multipart.
//   - SyncListener: Progress notifications for UIs.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
