package mcp

import (
	"context"
	"errors"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/safeworkpro/fieldsync/internal/core/domain"
)

// StatusInput is the input schema for the sync_status tool.
type StatusInput struct{}

// QueueStatusOutput is the status of one queue.
type QueueStatusOutput struct {
	Queue   string `json:"queue"`
	Pending int    `json:"pending"`
	Failed  int    `json:"failed"`
}

// StatusOutput is the output schema for the sync_status tool.
type StatusOutput struct {
	Queues         []QueueStatusOutput `json:"queues"`
	TotalPending   int                 `json:"total_pending"`
	TotalFailed    int                 `json:"total_failed"`
	SyncInProgress bool                `json:"sync_in_progress"`
	Online         bool                `json:"online"`
	LastSyncTime   string              `json:"last_sync_time,omitempty"`
}

// SyncNowInput is the input schema for the sync_now tool.
type SyncNowInput struct{}

// SyncNowOutput is the output schema for the sync_now tool.
type SyncNowOutput struct {
	Ran       bool   `json:"ran"`
	Reason    string `json:"reason,omitempty"`
	Attempted int    `json:"attempted"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
	Skipped   int    `json:"skipped"`
	Exhausted int    `json:"exhausted"`
	Error     string `json:"error,omitempty"`
}

// RetryInput is the input schema for the retry_item tool.
type RetryInput struct {
	Queue string `json:"queue" jsonschema:"queue name: sessions, entities or attachments"`
	Key   string `json:"key,omitempty" jsonschema:"item key; omit to retry every failed item"`
}

// RetryOutput is the output schema for the retry_item tool.
type RetryOutput struct {
	Retried int `json:"retried"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "sync_status",
		Description: "Show pending and failed counts for each offline queue",
	}, s.handleStatus)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "sync_now",
		Description: "Run a sync pass now, pushing queued mutations to the API",
	}, s.handleSyncNow)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "retry_item",
		Description: "Reset a failed item's retry count and attempt it again",
	}, s.handleRetry)
}

// handleStatus handles the sync_status tool invocation.
func (s *Server) handleStatus(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ StatusInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	stats, err := s.ports.Sync.Stats(ctx)
	if err != nil {
		return nil, StatusOutput{}, err
	}

	output := StatusOutput{
		Queues:         make([]QueueStatusOutput, len(stats.Queues)),
		TotalPending:   stats.TotalPending(),
		TotalFailed:    stats.TotalFailed(),
		SyncInProgress: stats.SyncInProgress,
		Online:         stats.Online,
	}
	for i, qs := range stats.Queues {
		output.Queues[i] = QueueStatusOutput{
			Queue:   qs.Queue.String(),
			Pending: qs.Pending,
			Failed:  qs.Failed,
		}
	}
	if !stats.LastSyncTime.IsZero() {
		output.LastSyncTime = stats.LastSyncTime.Format(time.RFC3339)
	}

	return nil, output, nil
}

// handleSyncNow handles the sync_now tool invocation.
// Offline and already-running are reported in the output, not as errors.
func (s *Server) handleSyncNow(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ SyncNowInput,
) (*mcp.CallToolResult, SyncNowOutput, error) {
	result, err := s.ports.Sync.SyncNow(ctx)
	switch {
	case errors.Is(err, domain.ErrNetworkUnavailable):
		return nil, SyncNowOutput{Reason: "offline"}, nil
	case errors.Is(err, domain.ErrSyncInProgress):
		return nil, SyncNowOutput{Reason: "sync already in progress"}, nil
	case err != nil && result == nil:
		return nil, SyncNowOutput{}, err
	}

	output := SyncNowOutput{
		Ran:       true,
		Attempted: result.Attempted,
		Succeeded: result.Succeeded,
		Failed:    result.Failed,
		Skipped:   result.Skipped,
		Exhausted: result.Exhausted,
		Error:     result.Error,
	}
	return nil, output, nil
}

// handleRetry handles the retry_item tool invocation.
func (s *Server) handleRetry(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RetryInput,
) (*mcp.CallToolResult, RetryOutput, error) {
	if input.Key == "" {
		n, err := s.ports.Sync.RetryAllFailed(ctx)
		if err != nil {
			return nil, RetryOutput{}, err
		}
		return nil, RetryOutput{Retried: n}, nil
	}

	queue, err := domain.ParseQueueName(input.Queue)
	if err != nil {
		return nil, RetryOutput{}, err
	}
	if err := s.ports.Sync.Retry(ctx, queue, input.Key); err != nil {
		return nil, RetryOutput{}, err
	}
	return nil, RetryOutput{Retried: 1}, nil
}
