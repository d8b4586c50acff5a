// Package tui provides an interactive terminal user interface for fieldsync.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/safeworkpro/fieldsync/internal/core/ports/driving"
)

// Ports aggregates the driving port interfaces required by the TUI.
type Ports struct {
	// Sync exposes the queues and the sync engine.
	Sync driving.SyncService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Sync == nil {
		return ErrMissingSyncService
	}
	return nil
}
