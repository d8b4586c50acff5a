package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/safeworkpro/fieldsync/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for fieldsync resources.
	uriScheme = "fieldsync://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "queues",
		Name:        "queues",
		Description: "Offline queues in sync order",
		MIMEType:    "application/json",
	}, s.handleQueuesResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "queues/{queue}",
		Name:        "queue-items",
		Description: "Items waiting in one offline queue, oldest first",
		MIMEType:    "application/json",
	}, s.handleQueueItemsResource)
}

// handleQueuesResource lists the queues in the order a pass drains them.
func (s *Server) handleQueuesResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	type queueInfo struct {
		Name        string   `json:"name"`
		Description string   `json:"description"`
		Operations  []string `json:"operations"`
	}

	order := domain.SyncOrder()
	infos := make([]queueInfo, len(order))
	for i, q := range order {
		ops := domain.Operations(q)
		names := make([]string, len(ops))
		for j, op := range ops {
			names[j] = string(op)
		}
		infos[i] = queueInfo{Name: q.String(), Description: q.Description(), Operations: names}
	}

	return jsonResult(req.Params.URI, infos)
}

// handleQueueItemsResource returns the items in a queue.
// Attachment blobs are omitted.
func (s *Server) handleQueueItemsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	name := extractQueueName(req.Params.URI)
	if name == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	queue, err := domain.ParseQueueName(name)
	if err != nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	items, err := s.ports.Sync.ListItems(ctx, queue)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", queue, err)
	}

	type itemInfo struct {
		Key        string `json:"key"`
		Operation  string `json:"operation"`
		TargetID   string `json:"target_id,omitempty"`
		EnqueuedAt string `json:"enqueued_at"`
		RetryCount int    `json:"retry_count"`
		Failed     bool   `json:"failed"`
		LastError  string `json:"last_error,omitempty"`
	}

	infos := make([]itemInfo, len(items))
	for i := range items {
		infos[i] = itemInfo{
			Key:        items[i].Key,
			Operation:  string(items[i].Operation),
			EnqueuedAt: items[i].EnqueuedAt.UTC().Format(time.RFC3339),
			RetryCount: items[i].RetryCount,
			Failed:     items[i].Failed,
			LastError:  items[i].LastError,
		}
		if items[i].Payload != nil {
			infos[i].TargetID = items[i].Payload.TargetID()
		}
	}

	return jsonResult(req.Params.URI, infos)
}

func jsonResult(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling resource: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractQueueName extracts the queue from a URI like fieldsync://queues/{queue}.
func extractQueueName(uri string) string {
	const prefix = uriScheme + "queues/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	return strings.Trim(strings.TrimPrefix(uri, prefix), "/")
}
