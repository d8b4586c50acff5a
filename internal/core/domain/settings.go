package domain

import "time"

const unknownDescription = "Unknown"

// ConnectivityMode selects how the network state is observed.
type ConnectivityMode string

// Available connectivity modes.
const (
	// ConnectivityProbe polls the API health endpoint.
	ConnectivityProbe ConnectivityMode = "probe"

	// ConnectivityFile watches a state file written by the host runtime.
	ConnectivityFile ConnectivityMode = "file"

	// ConnectivityAlways assumes the device is always online.
	ConnectivityAlways ConnectivityMode = "always"
)

// IsValid returns true if the connectivity mode is recognised.
func (m ConnectivityMode) IsValid() bool {
	switch m {
	case ConnectivityProbe, ConnectivityFile, ConnectivityAlways:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (m ConnectivityMode) String() string {
	return string(m)
}

// Description returns a human-readable description of the mode.
func (m ConnectivityMode) Description() string {
	switch m {
	case ConnectivityProbe:
		return "Probe (poll the API health endpoint)"
	case ConnectivityFile:
		return "File (watch a network state file)"
	case ConnectivityAlways:
		return "Always online"
	default:
		return unknownDescription
	}
}

// AllConnectivityModes returns all available connectivity modes.
func AllConnectivityModes() []ConnectivityMode {
	return []ConnectivityMode{ConnectivityProbe, ConnectivityFile, ConnectivityAlways}
}

// APISettings configures the remote API client.
type APISettings struct {
	// BaseURL is the API root, e.g. https://app.safeworkpro.com/api.
	BaseURL string

	// Token is a pre-issued bearer token attached to every request.
	Token string

	// RateLimit is the sustained request rate per second.
	RateLimit float64

	// RateBurst is the maximum burst size.
	RateBurst int
}

// ConnectivitySettings configures the network-state provider.
type ConnectivitySettings struct {
	Mode ConnectivityMode

	// StateFile is watched in file mode.
	StateFile string

	// ProbeInterval is the health poll period in probe mode.
	ProbeInterval time.Duration
}

// ObjectStoreSettings configures direct attachment uploads.
// Attachments go through the API as multipart when unconfigured.
type ObjectStoreSettings struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// IsConfigured returns true if attachments should go to the object store.
func (o ObjectStoreSettings) IsConfigured() bool {
	return o.Endpoint != "" && o.Bucket != "" && o.AccessKey != "" && o.SecretKey != ""
}

// DashboardSettings configures the status feed server.
type DashboardSettings struct {
	Addr string
}

// LogSettings configures daemon logging.
type LogSettings struct {
	// File routes logs to a rotating file. Empty means stderr.
	File string
}

// AppSettings holds all application settings.
type AppSettings struct {
	Sync         SyncConfig
	API          APISettings
	Connectivity ConnectivitySettings
	ObjectStore  ObjectStoreSettings
	Dashboard    DashboardSettings
	Log          LogSettings
}

// DefaultAppSettings returns settings with sensible defaults.
// The object store is left unconfigured.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Sync: DefaultSyncConfig(),
		API: APISettings{
			BaseURL:   "http://localhost:3000/api",
			RateLimit: 5,
			RateBurst: 10,
		},
		Connectivity: ConnectivitySettings{
			Mode:          ConnectivityProbe,
			ProbeInterval: 15 * time.Second,
		},
		Dashboard: DashboardSettings{
			Addr: "127.0.0.1:8787",
		},
	}
}
