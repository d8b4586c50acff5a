// Package objectstore uploads attachment blobs to an S3-compatible bucket
// (MinIO, R2, AWS) so the API only receives a reference.
package objectstore
