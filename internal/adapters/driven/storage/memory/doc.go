// Package memory provides in-memory implementations of the storage ports.
// They back the --ephemeral mode and the service tests; nothing survives
// a process restart.
package memory
