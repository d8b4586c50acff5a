package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConnectivityMode_IsValid(t *testing.T) {
	for _, m := range AllConnectivityModes() {
		assert.True(t, m.IsValid(), m)
		assert.NotEqual(t, unknownDescription, m.Description())
	}
	assert.False(t, ConnectivityMode("carrier-pigeon").IsValid())
	assert.Equal(t, unknownDescription, ConnectivityMode("carrier-pigeon").Description())
}

func TestDefaultAppSettings(t *testing.T) {
	settings := DefaultAppSettings()

	assert.Equal(t, DefaultSyncConfig(), settings.Sync)
	assert.Equal(t, "http://localhost:3000/api", settings.API.BaseURL)
	assert.Equal(t, ConnectivityProbe, settings.Connectivity.Mode)
	assert.Equal(t, 15*time.Second, settings.Connectivity.ProbeInterval)
	assert.False(t, settings.ObjectStore.IsConfigured())
	assert.Equal(t, "127.0.0.1:8787", settings.Dashboard.Addr)
}

func TestObjectStoreSettings_IsConfigured(t *testing.T) {
	o := ObjectStoreSettings{Endpoint: "minio:9000", Bucket: "photos", AccessKey: "a", SecretKey: "s"}
	assert.True(t, o.IsConfigured())

	o.SecretKey = ""
	assert.False(t, o.IsConfigured())
}
