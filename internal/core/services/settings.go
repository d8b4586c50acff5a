package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/safeworkpro/fieldsync/internal/core/domain"
	"github.com/safeworkpro/fieldsync/internal/core/ports/driven"
	"github.com/safeworkpro/fieldsync/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keySyncMaxRetries     = "sync.max_retries"
	keySyncInterval       = "sync.interval_seconds"
	keySyncRequestTimeout = "sync.request_timeout_seconds"
	keyAPIBaseURL         = "api.base_url"
	keyAPIToken           = "api.token"
	keyAPIRateLimit       = "api.rate_limit"
	keyAPIRateBurst       = "api.rate_burst"
	keyConnMode           = "connectivity.mode"
	keyConnStateFile      = "connectivity.state_file"
	keyConnProbeInterval  = "connectivity.probe_interval_seconds"
	keyObjEndpoint        = "objectstore.endpoint"
	keyObjAccessKey       = "objectstore.access_key"
	keyObjSecretKey       = "objectstore.secret_key"
	keyObjBucket          = "objectstore.bucket"
	keyObjUseSSL          = "objectstore.use_ssl"
	keyDashboardAddr      = "dashboard.addr"
	keyLogFile            = "log.file"
)

type valueKind int

const (
	kindString valueKind = iota
	kindInt
	kindFloat
	kindBool
)

// settingKeys lists the known keys in display order.
var settingKeys = []struct {
	key  string
	kind valueKind
}{
	{keySyncMaxRetries, kindInt},
	{keySyncInterval, kindInt},
	{keySyncRequestTimeout, kindInt},
	{keyAPIBaseURL, kindString},
	{keyAPIToken, kindString},
	{keyAPIRateLimit, kindFloat},
	{keyAPIRateBurst, kindInt},
	{keyConnMode, kindString},
	{keyConnStateFile, kindString},
	{keyConnProbeInterval, kindInt},
	{keyObjEndpoint, kindString},
	{keyObjAccessKey, kindString},
	{keyObjSecretKey, kindString},
	{keyObjBucket, kindString},
	{keyObjUseSSL, kindBool},
	{keyDashboardAddr, kindString},
	{keyLogFile, kindString},
}

// SettingsService reads and writes application settings.
type SettingsService struct {
	configStore driven.ConfigStore
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{configStore: configStore}
}

// Get retrieves current application settings, filling defaults for unset keys.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Sync: domain.SyncConfig{
			MaxRetries:     s.getInt(keySyncMaxRetries, defaults.Sync.MaxRetries),
			Interval:       s.getSeconds(keySyncInterval, defaults.Sync.Interval),
			RequestTimeout: s.getSeconds(keySyncRequestTimeout, defaults.Sync.RequestTimeout),
			HistoryKeep:    defaults.Sync.HistoryKeep,
		},
		API: domain.APISettings{
			BaseURL:   strings.TrimRight(s.getString(keyAPIBaseURL, defaults.API.BaseURL), "/"),
			Token:     s.configStore.GetString(keyAPIToken),
			RateLimit: s.getFloat(keyAPIRateLimit, defaults.API.RateLimit),
			RateBurst: s.getInt(keyAPIRateBurst, defaults.API.RateBurst),
		},
		Connectivity: domain.ConnectivitySettings{
			Mode:          s.getConnectivityMode(defaults.Connectivity.Mode),
			StateFile:     s.configStore.GetString(keyConnStateFile),
			ProbeInterval: s.getSeconds(keyConnProbeInterval, defaults.Connectivity.ProbeInterval),
		},
		ObjectStore: domain.ObjectStoreSettings{
			Endpoint:  s.configStore.GetString(keyObjEndpoint),
			AccessKey: s.configStore.GetString(keyObjAccessKey),
			SecretKey: s.configStore.GetString(keyObjSecretKey),
			Bucket:    s.configStore.GetString(keyObjBucket),
			UseSSL:    s.getBool(keyObjUseSSL, defaults.ObjectStore.UseSSL),
		},
		Dashboard: domain.DashboardSettings{
			Addr: s.getString(keyDashboardAddr, defaults.Dashboard.Addr),
		},
		Log: domain.LogSettings{
			File: s.configStore.GetString(keyLogFile),
		},
	}

	return settings, nil
}

// Set parses value according to the key's type and persists it.
func (s *SettingsService) Set(key, value string) error {
	kind, ok := lookupKind(key)
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}

	var typed any
	switch kind {
	case kindInt:
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return fmt.Errorf("%w: %s must be a positive integer", domain.ErrInvalidInput, key)
		}
		typed = n
	case kindFloat:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f <= 0 {
			return fmt.Errorf("%w: %s must be a positive number", domain.ErrInvalidInput, key)
		}
		typed = f
	case kindBool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%w: %s must be true or false", domain.ErrInvalidInput, key)
		}
		typed = b
	default:
		if key == keyConnMode && !domain.ConnectivityMode(value).IsValid() {
			return fmt.Errorf("%w: invalid connectivity mode %q", domain.ErrInvalidInput, value)
		}
		typed = value
	}

	if err := s.configStore.Set(key, typed); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Keys returns the known config keys in display order.
func (s *SettingsService) Keys() []string {
	keys := make([]string, 0, len(settingKeys))
	for _, k := range settingKeys {
		keys = append(keys, k.key)
	}
	return keys
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

func lookupKind(key string) (valueKind, bool) {
	for _, k := range settingKeys {
		if k.key == key {
			return k.kind, true
		}
	}
	return kindString, false
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val <= 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	val := s.configStore.GetFloat(key)
	if val <= 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getSeconds(key string, defaultVal time.Duration) time.Duration {
	n := s.configStore.GetInt(key)
	if n <= 0 {
		return defaultVal
	}
	return time.Duration(n) * time.Second
}

func (s *SettingsService) getConnectivityMode(defaultVal domain.ConnectivityMode) domain.ConnectivityMode {
	val := s.configStore.GetString(keyConnMode)
	if val == "" {
		return defaultVal
	}
	mode := domain.ConnectivityMode(val)
	if !mode.IsValid() {
		return defaultVal
	}
	return mode
}
