// Package mcp provides an MCP (Model Context Protocol) server adapter for fieldsync.
// It lets AI assistants inspect the offline queues and trigger sync passes.
package mcp

import "errors"

// ErrMissingSyncService is returned when the sync service is not provided.
var ErrMissingSyncService = errors.New("mcp: sync service is required")
