package mcp

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safeworkpro/fieldsync/internal/core/domain"
)

func TestExtractQueueName(t *testing.T) {
	tests := []struct {
		name     string
		uri      string
		expected string
	}{
		{"valid queue URI", "fieldsync://queues/sessions", "sessions"},
		{"trailing slash", "fieldsync://queues/entities/", "entities"},
		{"invalid prefix", "file://queues/sessions", ""},
		{"empty URI", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractQueueName(tt.uri))
		})
	}
}

// Helper to create a ReadResourceRequest with the given URI.
func makeReadResourceRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

func TestServer_handleQueuesResource(t *testing.T) {
	server := newTestServer(t, &mockSyncService{})

	result, err := server.handleQueuesResource(context.Background(), makeReadResourceRequest("fieldsync://queues"))
	require.NoError(t, err)
	require.Len(t, result.Contents, 1)

	var queues []struct {
		Name       string   `json:"name"`
		Operations []string `json:"operations"`
	}
	require.NoError(t, json.Unmarshal([]byte(result.Contents[0].Text), &queues))
	require.Len(t, queues, 3)
	assert.Equal(t, "sessions", queues[0].Name)
	assert.Equal(t, "entities", queues[1].Name)
	assert.Equal(t, "attachments", queues[2].Name)
	assert.Equal(t, []string{"upload"}, queues[2].Operations)
}

func TestServer_handleQueueItemsResource(t *testing.T) {
	ctx := context.Background()

	t.Run("lists items", func(t *testing.T) {
		svc := &mockSyncService{items: []domain.QueueItem{{
			Key:        "k1",
			Queue:      domain.QueueEntities,
			Operation:  domain.OpUpdate,
			Payload:    &domain.EntityPayload{ID: "p1"},
			EnqueuedAt: time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC),
			RetryCount: 2,
			LastError:  "timeout",
		}}}
		server := newTestServer(t, svc)

		result, err := server.handleQueueItemsResource(ctx, makeReadResourceRequest("fieldsync://queues/projects"))
		require.NoError(t, err)

		text := result.Contents[0].Text
		assert.Contains(t, text, `"key": "k1"`)
		assert.Contains(t, text, `"target_id": "p1"`)
		assert.Contains(t, text, `"retry_count": 2`)
		assert.Contains(t, text, `"enqueued_at": "2026-05-01T08:00:00Z"`)
	})

	t.Run("unknown queue is not found", func(t *testing.T) {
		server := newTestServer(t, &mockSyncService{})

		_, err := server.handleQueueItemsResource(ctx, makeReadResourceRequest("fieldsync://queues/bogus"))
		assert.Error(t, err)
	})

	t.Run("bad uri is not found", func(t *testing.T) {
		server := newTestServer(t, &mockSyncService{})

		_, err := server.handleQueueItemsResource(ctx, makeReadResourceRequest("fieldsync://other"))
		assert.Error(t, err)
	})
}
