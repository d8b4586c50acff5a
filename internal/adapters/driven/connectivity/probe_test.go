package connectivity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProbe_Online(t *testing.T) {
	var path atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path.Store(r.URL.Path)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := NewProbe(srv.URL+"/api/", time.Second, nil)

	// Any response means the network is up, even an error status.
	assert.True(t, p.Online(context.Background()))
	assert.Equal(t, "/api/health", path.Load())
}

func TestProbe_Offline(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	p := NewProbe(url, time.Second, nil)
	assert.False(t, p.Online(context.Background()))
}

func TestProbe_DefaultInterval(t *testing.T) {
	p := NewProbe("http://localhost", 0, nil)
	assert.Equal(t, DefaultProbeInterval, p.interval)
}

func TestProbe_WatchEmitsTransition(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	p := NewProbe(srv.URL, 10*time.Millisecond, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := p.Watch(ctx)
	// Let the baseline probe run while the server is still up.
	time.Sleep(30 * time.Millisecond)
	srv.Close()

	assert.False(t, receive(t, ch))

	cancel()
	assertClosed(t, ch)
}
