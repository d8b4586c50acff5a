package domain

import (
	"encoding/json"
	"fmt"
)

// Payload is the typed body of a queue item. Each queue accepts exactly
// one payload kind: SessionPayload, EntityPayload or AttachmentPayload.
type Payload interface {
	// Queue returns the queue this payload kind belongs to.
	Queue() QueueName

	// TargetID returns the remote record the mutation applies to.
	// Empty for creates that let the server assign one.
	TargetID() string

	validate(op Operation) error
}

// SessionPayload is an LMRA session record.
type SessionPayload struct {
	ID        string          `json:"id,omitempty"`
	ProjectID string          `json:"projectId,omitempty"`
	TRAID     string          `json:"traId,omitempty"`
	Status    string          `json:"status,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Queue implements Payload.
func (p *SessionPayload) Queue() QueueName { return QueueSessions }

// TargetID implements Payload.
func (p *SessionPayload) TargetID() string { return p.ID }

func (p *SessionPayload) validate(op Operation) error {
	if op == OpCreate && p.ProjectID == "" && p.TRAID == "" && len(p.Data) == 0 {
		return fmt.Errorf("%w: session create needs a project, TRA or data", ErrInvalidInput)
	}
	return nil
}

// MemberChange describes a project membership mutation.
type MemberChange struct {
	UserID string `json:"userId"`
	Role   string `json:"role,omitempty"`
}

// EntityPayload is a project record change.
type EntityPayload struct {
	ID     string          `json:"id,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
	Member *MemberChange   `json:"member,omitempty"`
}

// Queue implements Payload.
func (p *EntityPayload) Queue() QueueName { return QueueEntities }

// TargetID implements Payload.
func (p *EntityPayload) TargetID() string { return p.ID }

func (p *EntityPayload) validate(op Operation) error {
	if !op.IsMembership() {
		return nil
	}
	if p.Member == nil || p.Member.UserID == "" {
		return fmt.Errorf("%w: %s requires a member user id", ErrInvalidInput, op)
	}
	if op != OpRemoveMember && p.Member.Role == "" {
		return fmt.Errorf("%w: %s requires a member role", ErrInvalidInput, op)
	}
	return nil
}

// AttachmentPayload is a photo taken during an LMRA session.
type AttachmentPayload struct {
	ID          string `json:"id,omitempty"`
	SessionID   string `json:"sessionId"`
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType,omitempty"`
	Caption     string `json:"caption,omitempty"`
	Data        []byte `json:"data"`
}

// Queue implements Payload.
func (p *AttachmentPayload) Queue() QueueName { return QueueAttachments }

// TargetID implements Payload.
func (p *AttachmentPayload) TargetID() string { return p.ID }

func (p *AttachmentPayload) validate(_ Operation) error {
	if p.SessionID == "" {
		return fmt.Errorf("%w: attachment requires a session id", ErrInvalidInput)
	}
	if p.FileName == "" {
		return fmt.Errorf("%w: attachment requires a file name", ErrInvalidInput)
	}
	if len(p.Data) == 0 {
		return fmt.Errorf("%w: attachment has no data", ErrInvalidInput)
	}
	return nil
}

// DecodePayload unmarshals a stored payload for the given queue.
func DecodePayload(queue QueueName, data []byte) (Payload, error) {
	var p Payload
	switch queue {
	case QueueSessions:
		p = &SessionPayload{}
	case QueueEntities:
		p = &EntityPayload{}
	case QueueAttachments:
		p = &AttachmentPayload{}
	default:
		return nil, fmt.Errorf("%w: unknown queue %q", ErrInvalidInput, queue)
	}
	if err := json.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("decoding %s payload: %w", queue, err)
	}
	return p, nil
}
