package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/safeworkpro/fieldsync/internal/core/domain"
	"github.com/safeworkpro/fieldsync/internal/core/ports/driven"
)

// Ensure Uploader implements the interface.
var _ driven.ObjectUploader = (*Uploader)(nil)

// defaultRegion avoids a bucket location lookup before the first upload.
const defaultRegion = "us-east-1"

// Uploader writes attachment blobs to a bucket.
type Uploader struct {
	client *minio.Client
	bucket string
}

// NewUploader creates an uploader from object store settings.
// The endpoint may carry an http:// or https:// scheme, which overrides UseSSL.
func NewUploader(cfg domain.ObjectStoreSettings) (*Uploader, error) {
	if !cfg.IsConfigured() {
		return nil, fmt.Errorf("%w: object store needs endpoint, bucket and credentials", domain.ErrInvalidInput)
	}

	endpoint, secure := splitEndpoint(cfg.Endpoint, cfg.UseSSL)

	client, err := minio.New(endpoint, &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:       secure,
		Region:       defaultRegion,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, fmt.Errorf("create object store client: %w", err)
	}

	return &Uploader{client: client, bucket: cfg.Bucket}, nil
}

// Upload stores data under key. Uploading the same key again overwrites it.
func (u *Uploader) Upload(ctx context.Context, key, contentType string, data []byte) (string, error) {
	_, err := u.client.PutObject(ctx, u.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("put %s/%s: %w", u.bucket, key, err)
	}
	return key, nil
}

// Bucket returns the target bucket name.
func (u *Uploader) Bucket() string {
	return u.bucket
}

func splitEndpoint(endpoint string, useSSL bool) (string, bool) {
	endpoint = strings.TrimSuffix(endpoint, "/")
	switch {
	case strings.HasPrefix(endpoint, "https://"):
		return strings.TrimPrefix(endpoint, "https://"), true
	case strings.HasPrefix(endpoint, "http://"):
		return strings.TrimPrefix(endpoint, "http://"), false
	default:
		return endpoint, useSSL
	}
}
