package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/safeworkpro/fieldsync/internal/core/domain"
	"github.com/safeworkpro/fieldsync/internal/core/ports/driven"
	"github.com/safeworkpro/fieldsync/internal/core/ports/driving"
	"github.com/safeworkpro/fieldsync/internal/logger"
)

// Ensure ConnectivityMonitor implements the interface.
var _ driving.Monitor = (*ConnectivityMonitor)(nil)

// ConnectivityMonitor requests sync passes when the device comes back
// online and on a periodic timer. It never retries items itself.
type ConnectivityMonitor struct {
	interval time.Duration
	conn     driven.ConnectivityProvider
	syncer   driving.SyncService

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewConnectivityMonitor creates a monitor that ticks every interval.
func NewConnectivityMonitor(
	interval time.Duration,
	conn driven.ConnectivityProvider,
	syncer driving.SyncService,
) *ConnectivityMonitor {
	if interval <= 0 {
		interval = domain.DefaultSyncInterval
	}
	return &ConnectivityMonitor{
		interval: interval,
		conn:     conn,
		syncer:   syncer,
	}
}

// Start watches connectivity. This method blocks until Stop is called
// or the context is cancelled.
func (m *ConnectivityMonitor) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return nil // Already running
	}
	m.running = true
	m.stopCh = make(chan struct{})
	stopCh := m.stopCh
	m.mu.Unlock()

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	return m.run(watchCtx, stopCh)
}

// Stop shuts down the monitor and waits for an in-flight pass.
func (m *ConnectivityMonitor) Stop() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = false
	close(m.stopCh)
	m.mu.Unlock()

	m.wg.Wait()
	return nil
}

// run is the main monitor loop.
func (m *ConnectivityMonitor) run(ctx context.Context, stopCh <-chan struct{}) error {
	transitions := m.conn.Watch(ctx)

	// Drain anything queued while the process was down.
	if m.conn.Online(ctx) {
		m.trigger(ctx, "startup")
	}

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.markStopped()
			m.wg.Wait()
			return ctx.Err()
		case <-stopCh:
			return nil
		case online, ok := <-transitions:
			if !ok {
				transitions = nil
				continue
			}
			if online {
				logger.Info("monitor: network online")
				m.trigger(ctx, "reconnect")
			} else {
				logger.Info("monitor: network offline")
			}
		case <-ticker.C:
			if m.conn.Online(ctx) {
				m.trigger(ctx, "timer")
			}
		}
	}
}

// trigger requests a pass in the background.
// Skipped passes (offline, already running) are expected and not logged as errors.
func (m *ConnectivityMonitor) trigger(ctx context.Context, reason string) {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.wg.Add(1)
	m.mu.Unlock()

	go func() {
		defer m.wg.Done()

		logger.Debug("monitor: requesting sync pass (%s)", reason)
		if _, err := m.syncer.SyncNow(ctx); err != nil && !isSkip(err) && !errors.Is(err, context.Canceled) {
			logger.Error("monitor: sync pass (%s) failed: %v", reason, err)
		}
	}()
}

func (m *ConnectivityMonitor) markStopped() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		m.running = false
		close(m.stopCh)
	}
}
