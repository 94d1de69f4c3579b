// Package gcs provides a storage.Provider backed by Google Cloud Storage.
package gcs

import (
	"bytes"
	"context"
	"fmt"
	"io"

	gcs "cloud.google.com/go/storage"

	"github.com/JakeFAU/ltd-dasher/internal/metrics"
	"github.com/JakeFAU/ltd-dasher/internal/storage"
)

var predefinedACLs = map[string]string{
	storage.ACLPrivate:    "private",
	storage.ACLPublicRead: "publicRead",
}

// Store writes objects to GCS buckets.
type Store struct {
	client *gcs.Client
}

// New creates a GCS-backed store around an existing client.
func New(client *gcs.Client) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	return &Store{client: client}, nil
}

// Upload streams the object body to the bucket and finalizes it.
func (s *Store) Upload(ctx context.Context, obj storage.Object) error {
	if err := obj.Validate(); err != nil {
		return err
	}
	writer := s.client.Bucket(obj.Bucket).Object(obj.Key).NewWriter(ctx)
	writer.ContentType = obj.ContentType
	writer.CacheControl = obj.CacheControl
	writer.Metadata = obj.Metadata
	if obj.ACL != "" {
		acl, ok := predefinedACLs[obj.ACL]
		if !ok {
			_ = writer.Close()
			return fmt.Errorf("unsupported acl %q", obj.ACL)
		}
		writer.PredefinedACL = acl
	}
	if _, err := io.Copy(writer, bytes.NewReader(obj.Body)); err != nil {
		metrics.ObserveUpload(metrics.StatusFailure)
		closeErr := writer.Close()
		if closeErr != nil {
			return fmt.Errorf("copy object: %w (close writer: %v)", err, closeErr)
		}
		return fmt.Errorf("copy object: %w", err)
	}
	if err := writer.Close(); err != nil {
		metrics.ObserveUpload(metrics.StatusFailure)
		return fmt.Errorf("close writer for gs://%s/%s: %w", obj.Bucket, obj.Key, err)
	}
	metrics.ObserveUpload(metrics.StatusSuccess)
	return nil
}
