package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/safeworkpro/fieldsync/internal/core/domain"
)

// route is the verb, path and JSON body for one queued mutation.
type route struct {
	method string
	path   string
	body   any
}

// resolveRoute maps an item to its API call.
// Attachments are handled separately since they are not JSON.
func resolveRoute(item *domain.QueueItem) (route, error) {
	switch p := item.Payload.(type) {
	case *domain.SessionPayload:
		return sessionRoute(item.Operation, p)
	case *domain.EntityPayload:
		return entityRoute(item.Operation, p)
	default:
		return route{}, fmt.Errorf("%w: no JSON route for %s/%s", domain.ErrInvalidInput, item.Queue, item.Operation)
	}
}

func sessionRoute(op domain.Operation, p *domain.SessionPayload) (route, error) {
	switch op {
	case domain.OpCreate:
		return route{http.MethodPost, "/lmra-sessions", p}, nil
	case domain.OpUpdate:
		return route{http.MethodPatch, "/lmra-sessions/" + url.PathEscape(p.ID), p}, nil
	case domain.OpComplete:
		return route{http.MethodPost, "/lmra-sessions/" + url.PathEscape(p.ID) + "/complete", p}, nil
	default:
		return route{}, unsupported(domain.QueueSessions, op)
	}
}

func entityRoute(op domain.Operation, p *domain.EntityPayload) (route, error) {
	base := "/projects/" + url.PathEscape(p.ID)

	switch op {
	case domain.OpCreate:
		return route{http.MethodPost, "/projects", rawOrEmpty(p.Data)}, nil
	case domain.OpUpdate:
		return route{http.MethodPatch, base, rawOrEmpty(p.Data)}, nil
	case domain.OpDelete:
		return route{http.MethodDelete, base, nil}, nil
	}

	if p.Member == nil {
		return route{}, fmt.Errorf("%w: %s requires a member", domain.ErrInvalidInput, op)
	}
	member := base + "/members/" + url.PathEscape(p.Member.UserID)

	switch op {
	case domain.OpAddMember:
		return route{http.MethodPost, base + "/members", p.Member}, nil
	case domain.OpRemoveMember:
		return route{http.MethodDelete, member, nil}, nil
	case domain.OpUpdateMemberRole:
		return route{http.MethodPatch, member, map[string]string{"role": p.Member.Role}}, nil
	default:
		return route{}, unsupported(domain.QueueEntities, op)
	}
}

// photoPath is the upload endpoint for a session's photos.
func photoPath(p *domain.AttachmentPayload) string {
	return "/lmra-sessions/" + url.PathEscape(p.SessionID) + "/photos"
}

func rawOrEmpty(data json.RawMessage) json.RawMessage {
	if len(data) == 0 {
		return json.RawMessage(`{}`)
	}
	return data
}

func unsupported(q domain.QueueName, op domain.Operation) error {
	return fmt.Errorf("%w: operation %q not supported on %s", domain.ErrInvalidInput, op, q)
}
