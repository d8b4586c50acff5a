package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/safeworkpro/fieldsync/internal/core/domain"
)

var enqueueCmd = &cobra.Command{
	Use:   "enqueue <queue> <operation>",
	Short: "Queue a mutation for sync",
	Long: `Queue a mutation locally. The command returns once the item is stored;
if the device is online a sync pass starts straight away.

Queues and operations:
  sessions     create, update, complete
  entities     create, update, delete, add_member, remove_member, update_member_role
  attachments  upload

JSON payloads are read from --data or --file ("-" reads stdin). Photo
uploads take --photo and --session instead.

Examples:
  fieldsync enqueue sessions create --data '{"projectId":"p-1","traId":"t-9"}'
  fieldsync enqueue entities add_member --id p-1 --data '{"member":{"userId":"u-2","role":"viewer"}}'
  fieldsync enqueue attachments upload --session s-1 --photo ./hazard.jpg --caption "Loose cable"`,
	Args: cobra.ExactArgs(2),
	RunE: runEnqueue,
}

func init() {
	enqueueCmd.Flags().String("key", "", "Item key (default: random UUID); reusing a key replaces the item")
	enqueueCmd.Flags().String("id", "", "Target record id")
	enqueueCmd.Flags().String("data", "", "JSON payload")
	enqueueCmd.Flags().StringP("file", "f", "", "Read the JSON payload from a file (- for stdin)")
	enqueueCmd.Flags().String("photo", "", "Photo to upload (attachments)")
	enqueueCmd.Flags().String("session", "", "Session the photo belongs to (attachments)")
	enqueueCmd.Flags().String("caption", "", "Photo caption (attachments)")
	rootCmd.AddCommand(enqueueCmd)
}

func runEnqueue(cmd *cobra.Command, args []string) error {
	if syncService == nil {
		return errors.New("sync service not configured")
	}

	queue, err := domain.ParseQueueName(args[0])
	if err != nil {
		return err
	}
	op := domain.Operation(args[1])

	key, _ := cmd.Flags().GetString("key")
	if key == "" {
		key = uuid.New().String()
	}

	payload, err := buildPayload(cmd, queue)
	if err != nil {
		return err
	}

	item := &domain.QueueItem{
		Key:       key,
		Queue:     queue,
		Operation: op,
		Payload:   payload,
	}
	if err := syncService.Enqueue(cmd.Context(), item); err != nil {
		return fmt.Errorf("enqueue failed: %w", err)
	}

	cmd.Printf("Queued %s %s (key %s)\n", queue, op, key)
	waitForBackground()
	return nil
}

// buildPayload assembles the payload from flags for the given queue.
func buildPayload(cmd *cobra.Command, queue domain.QueueName) (domain.Payload, error) {
	id, _ := cmd.Flags().GetString("id")

	if queue == domain.QueueAttachments {
		return buildAttachmentPayload(cmd, id)
	}

	raw, err := readPayloadJSON(cmd)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		raw = []byte("{}")
	}

	payload, err := domain.DecodePayload(queue, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	if id != "" {
		switch p := payload.(type) {
		case *domain.SessionPayload:
			p.ID = id
		case *domain.EntityPayload:
			p.ID = id
		}
	}
	return payload, nil
}

func buildAttachmentPayload(cmd *cobra.Command, id string) (domain.Payload, error) {
	photo, _ := cmd.Flags().GetString("photo")
	session, _ := cmd.Flags().GetString("session")
	caption, _ := cmd.Flags().GetString("caption")

	if photo == "" {
		raw, err := readPayloadJSON(cmd)
		if err != nil {
			return nil, err
		}
		if len(raw) == 0 {
			return nil, fmt.Errorf("%w: --photo is required for attachments", domain.ErrInvalidInput)
		}
		return domain.DecodePayload(domain.QueueAttachments, raw)
	}

	data, err := os.ReadFile(photo)
	if err != nil {
		return nil, fmt.Errorf("read photo: %w", err)
	}

	return &domain.AttachmentPayload{
		ID:          id,
		SessionID:   session,
		FileName:    filepath.Base(photo),
		ContentType: mime.TypeByExtension(filepath.Ext(photo)),
		Caption:     caption,
		Data:        data,
	}, nil
}

// readPayloadJSON returns the --data or --file contents, or nil if neither is set.
func readPayloadJSON(cmd *cobra.Command) ([]byte, error) {
	data, _ := cmd.Flags().GetString("data")
	file, _ := cmd.Flags().GetString("file")

	if data != "" && file != "" {
		return nil, fmt.Errorf("%w: use either --data or --file", domain.ErrInvalidInput)
	}

	var raw []byte
	switch {
	case data != "":
		raw = []byte(data)
	case file == "-":
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		raw = b
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read payload file: %w", err)
		}
		raw = b
	default:
		return nil, nil
	}

	if !json.Valid(raw) {
		return nil, fmt.Errorf("%w: payload is not valid JSON", domain.ErrInvalidInput)
	}
	return raw, nil
}
