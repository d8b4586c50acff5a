package domain

import "time"

// Default sync settings.
const (
	DefaultMaxRetries     = 3
	DefaultSyncInterval   = 5 * time.Minute
	DefaultRequestTimeout = 30 * time.Second
	DefaultHistoryKeep    = 100
)

// SyncConfig controls the sync engine and connectivity monitor.
type SyncConfig struct {
	// MaxRetries is the retry ceiling after which an item is marked failed.
	MaxRetries int

	// Interval is how often the monitor requests a pass while online.
	Interval time.Duration

	// RequestTimeout bounds each remote call.
	RequestTimeout time.Duration

	// HistoryKeep is how many pass records are retained.
	HistoryKeep int
}

// DefaultSyncConfig returns sensible defaults for the sync engine.
func DefaultSyncConfig() SyncConfig {
	return SyncConfig{
		MaxRetries:     DefaultMaxRetries,
		Interval:       DefaultSyncInterval,
		RequestTimeout: DefaultRequestTimeout,
		HistoryKeep:    DefaultHistoryKeep,
	}
}

// WithDefaults fills zero fields from DefaultSyncConfig.
func (c SyncConfig) WithDefaults() SyncConfig {
	d := DefaultSyncConfig()
	if c.MaxRetries <= 0 {
		c.MaxRetries = d.MaxRetries
	}
	if c.Interval <= 0 {
		c.Interval = d.Interval
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = d.RequestTimeout
	}
	if c.HistoryKeep <= 0 {
		c.HistoryKeep = d.HistoryKeep
	}
	return c
}
