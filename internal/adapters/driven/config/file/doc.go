// Package file provides the TOML-backed configuration store.
//
// The file lives at <config dir>/config.toml (default ~/.fieldsync).
// Nested tables are exposed as dot-notation keys, so
//
//	[sync]
//	max_retries = 5
//
// is read as "sync.max_retries".
package file
