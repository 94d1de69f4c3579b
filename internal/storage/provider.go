// Package storage defines the object storage abstraction the dashboards are
// published through. Backends live in the s3, gcs, local and memory
// subpackages.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Canned ACLs understood by every backend.
const (
	ACLPrivate    = "private"
	ACLPublicRead = "public-read"
)

// MetadataDirRedirect marks an empty object that stands in for a directory so
// that requests for the bare directory path resolve.
const MetadataDirRedirect = "dir-redirect"

// ErrInvalidObject is returned when an Object is missing its bucket or key.
var ErrInvalidObject = errors.New("storage: bucket and key are required")

// Object is a single write to a bucket.
type Object struct {
	Bucket       string
	Key          string
	Body         []byte
	ContentType  string
	CacheControl string
	ACL          string
	Metadata     map[string]string
}

// Validate checks the fields every backend needs.
func (o Object) Validate() error {
	if strings.TrimSpace(o.Bucket) == "" || strings.TrimSpace(o.Key) == "" {
		return ErrInvalidObject
	}
	return nil
}

// Provider uploads objects to a bucket.
type Provider interface {
	Upload(ctx context.Context, obj Object) error
}

// UploadDirectory uploads every regular file of fsys under prefix. Each
// object inherits the headers, ACL and metadata of template; only the key,
// body and content type change per file. It returns the number of objects
// written and stops at the first failure.
func UploadDirectory(
	ctx context.Context,
	p Provider,
	fsys fs.FS,
	bucket, prefix string,
	template Object,
) (int, error) {
	prefix = strings.Trim(prefix, "/")
	uploaded := 0
	err := fs.WalkDir(fsys, ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		body, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		obj := template
		obj.Bucket = bucket
		obj.Key = path.Join(prefix, name)
		obj.Body = body
		obj.ContentType = ContentType(name, body)
		obj.Metadata = cloneMetadata(template.Metadata)
		if err := p.Upload(ctx, obj); err != nil {
			return fmt.Errorf("upload %s: %w", obj.Key, err)
		}
		uploaded++
		return nil
	})
	if err != nil {
		return uploaded, fmt.Errorf("upload directory to %s/%s: %w", bucket, prefix, err)
	}
	return uploaded, nil
}

// ContentType picks a MIME type from the file extension, sniffing the body
// when the extension is unknown.
func ContentType(name string, body []byte) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return mimetype.Detect(body).String()
}

func cloneMetadata(src map[string]string) map[string]string {
	if src == nil {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
