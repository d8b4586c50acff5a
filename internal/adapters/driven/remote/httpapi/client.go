package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/safeworkpro/fieldsync/internal/core/domain"
	"github.com/safeworkpro/fieldsync/internal/core/ports/driven"
	"github.com/safeworkpro/fieldsync/internal/logger"
)

// Ensure Client implements the interface.
var _ driven.RemoteClient = (*Client)(nil)

// IdempotencyHeader carries the queue item key on every request.
const IdempotencyHeader = "Idempotency-Key"

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 4 << 10

// Config configures the API client.
type Config struct {
	// BaseURL is the API root, e.g. https://app.safeworkpro.com/api.
	BaseURL string

	// Token is attached as a bearer token when set.
	Token string

	// RateLimit is requests per second; RateBurst the bucket size.
	RateLimit float64
	RateBurst int

	// HTTPClient overrides the underlying client. Its transport is wrapped
	// with the bearer token when Token is set.
	HTTPClient *http.Client

	// Uploader, when set, stores attachment blobs out of band and the API
	// receives a JSON reference instead of a multipart upload.
	Uploader driven.ObjectUploader
}

// Client pushes queue items to the API.
type Client struct {
	baseURL  *url.URL
	http     *http.Client
	limiter  *RateLimiter
	uploader driven.ObjectUploader
}

// NewClient creates an API client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: api base url is required", domain.ErrInvalidInput)
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%w: invalid api base url %q", domain.ErrInvalidInput, cfg.BaseURL)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if cfg.Token != "" {
		wrapped := *httpClient
		wrapped.Transport = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token, TokenType: "Bearer"}),
			Base:   httpClient.Transport,
		}
		httpClient = &wrapped
	}

	return &Client{
		baseURL:  base,
		http:     httpClient,
		limiter:  NewRateLimiter(cfg.RateLimit, cfg.RateBurst),
		uploader: cfg.Uploader,
	}, nil
}

// Push sends one queued mutation. A nil error means the API returned 2xx.
func (c *Client) Push(ctx context.Context, item *domain.QueueItem) error {
	if item == nil || item.Payload == nil {
		return fmt.Errorf("%w: empty item", domain.ErrInvalidInput)
	}

	if p, ok := item.Payload.(*domain.AttachmentPayload); ok {
		if c.uploader != nil {
			return c.pushAttachmentReference(ctx, item.Key, p)
		}
		return c.pushAttachmentMultipart(ctx, item.Key, p)
	}

	r, err := resolveRoute(item)
	if err != nil {
		return err
	}

	var body io.Reader
	contentType := ""
	if r.body != nil {
		data, err := json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("encode %s body: %w", item.Operation, err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}

	return c.do(ctx, item.Key, r.method, r.path, contentType, body)
}

// pushAttachmentMultipart uploads the photo as multipart/form-data.
func (c *Client) pushAttachmentMultipart(ctx context.Context, key string, p *domain.AttachmentPayload) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("id", attachmentID(key, p)); err != nil {
		return fmt.Errorf("build multipart: %w", err)
	}
	if p.Caption != "" {
		if err := w.WriteField("caption", p.Caption); err != nil {
			return fmt.Errorf("build multipart: %w", err)
		}
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, path.Base(p.FileName)))
	header.Set("Content-Type", attachmentContentType(p))
	part, err := w.CreatePart(header)
	if err != nil {
		return fmt.Errorf("build multipart: %w", err)
	}
	if _, err := part.Write(p.Data); err != nil {
		return fmt.Errorf("build multipart: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("build multipart: %w", err)
	}

	return c.do(ctx, key, http.MethodPost, photoPath(p), w.FormDataContentType(), &buf)
}

// photoReference is sent instead of the blob when it lives in the object store.
type photoReference struct {
	ID          string `json:"id"`
	ObjectKey   string `json:"objectKey"`
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	Caption     string `json:"caption,omitempty"`
}

// pushAttachmentReference stores the blob, then registers it with the API.
// Re-uploading the same object key on retry overwrites it, so both steps are
// safe to repeat.
func (c *Client) pushAttachmentReference(ctx context.Context, key string, p *domain.AttachmentPayload) error {
	id := attachmentID(key, p)
	objectKey := path.Join("attachments", p.SessionID, id+"-"+path.Base(p.FileName))
	contentType := attachmentContentType(p)

	stored, err := c.uploader.Upload(ctx, objectKey, contentType, p.Data)
	if err != nil {
		return fmt.Errorf("upload %s: %w", objectKey, err)
	}

	data, err := json.Marshal(photoReference{
		ID:          id,
		ObjectKey:   stored,
		FileName:    p.FileName,
		ContentType: contentType,
		Caption:     p.Caption,
	})
	if err != nil {
		return fmt.Errorf("encode photo reference: %w", err)
	}

	return c.do(ctx, key, http.MethodPost, photoPath(p), "application/json", bytes.NewReader(data))
}

// do sends a request and maps the response status to an error.
func (c *Client) do(ctx context.Context, key, method, apiPath, contentType string, body io.Reader) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+apiPath, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(IdempotencyHeader, key)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	logger.Debug("api: %s %s (%s)", method, apiPath, key)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, apiPath, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		c.limiter.Backoff(parseRetryAfter(resp.Header.Get("Retry-After"), time.Now()))
	}

	return &domain.RemoteError{
		StatusCode: resp.StatusCode,
		Method:     method,
		Path:       apiPath,
		Message:    readErrorMessage(resp.Body),
	}
}

// readErrorMessage extracts a message from a JSON error body, falling back
// to the trimmed raw text.
func readErrorMessage(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil || len(data) == 0 {
		return ""
	}

	var parsed struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(data, &parsed) == nil {
		if parsed.Message != "" {
			return parsed.Message
		}
		if parsed.Error != "" {
			return parsed.Error
		}
	}

	return strings.TrimSpace(string(data))
}

func attachmentID(key string, p *domain.AttachmentPayload) string {
	if p.ID != "" {
		return p.ID
	}
	return key
}

func attachmentContentType(p *domain.AttachmentPayload) string {
	if p.ContentType != "" {
		return p.ContentType
	}
	return http.DetectContentType(p.Data)
}
