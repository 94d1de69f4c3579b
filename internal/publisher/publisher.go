// Package publisher uploads rendered dashboards and their static assets to
// object storage and purges the product's edge cache entry afterwards.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/ltd-dasher/internal/dashboard"
	"github.com/JakeFAU/ltd-dasher/internal/storage"
)

// ErrMisconfiguredCredentials is returned when any storage or edge cache
// credential is missing and uploads are not skipped.
var ErrMisconfiguredCredentials = errors.New("misconfigured publish credentials")

const (
	htmlContentType  = "text/html; charset=utf-8"
	browserCache     = "no-cache"
	surrogateControl = "max-age=31536000"

	// EditionPagePath and BuildPagePath are relative to the product root.
	EditionPagePath = "v/index.html"
	BuildPagePath   = "builds/index.html"
)

// Config carries the credentials and switches the Publisher needs.
type Config struct {
	SkipUpload      bool
	AssetsPrefix    string
	StorageKeyID    string
	StorageSecret   string
	FastlyKey       string
	FastlyServiceID string
	// AmbientStorageAuth is set for backends that authenticate without a
	// key pair, such as GCS application default credentials or local disk.
	AmbientStorageAuth bool
}

func (c Config) missingCredentials() []string {
	var missing []string
	creds := []struct{ name, value string }{
		{"storage key id", c.StorageKeyID},
		{"storage secret", c.StorageSecret},
		{"fastly api key", c.FastlyKey},
		{"fastly service id", c.FastlyServiceID},
	}
	if c.AmbientStorageAuth {
		creds = creds[2:]
	}
	for _, cred := range creds {
		if strings.TrimSpace(cred.value) == "" {
			missing = append(missing, cred.name)
		}
	}
	return missing
}

// Purger invalidates edge cache entries by surrogate key.
type Purger interface {
	PurgeKey(ctx context.Context, surrogateKey string) error
}

// Result summarizes one Publish call.
type Result struct {
	Skipped bool
	Objects int
}

// Publisher writes dashboards to a bucket and purges the edge cache.
type Publisher struct {
	cfg    Config
	store  storage.Provider
	purger Purger
	assets fs.FS
	logger *zap.Logger
}

// New builds a Publisher. store and purger may be nil when uploads are
// skipped.
func New(cfg Config, store storage.Provider, purger Purger, assets fs.FS, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.AssetsPrefix == "" {
		cfg.AssetsPrefix = "_dasher-assets"
	}
	return &Publisher{
		cfg:    cfg,
		store:  store,
		purger: purger,
		assets: assets,
		logger: logger,
	}
}

// AssetBaseURL is where the published pages load static assets from.
func (p *Publisher) AssetBaseURL(product dashboard.Product) string {
	return strings.TrimRight(product.PublishedURL, "/") + "/" + p.cfg.AssetsPrefix
}

// Publish uploads the assets, both pages and their directory redirects, then
// purges the product's surrogate key. Nothing is purged unless every upload
// succeeded. With SkipUpload set it returns immediately without side effects.
func (p *Publisher) Publish(
	ctx context.Context,
	product dashboard.Product,
	editionHTML, buildHTML string,
) (Result, error) {
	logger := p.logger.With(zap.String("product", product.Slug))
	if p.cfg.SkipUpload {
		logger.Info("Skipping upload")
		return Result{Skipped: true}, nil
	}
	if missing := p.cfg.missingCredentials(); len(missing) > 0 {
		return Result{}, fmt.Errorf("%w: missing %s", ErrMisconfiguredCredentials, strings.Join(missing, ", "))
	}
	if p.store == nil || p.purger == nil {
		return Result{}, fmt.Errorf("%w: storage or purge client not configured", ErrMisconfiguredCredentials)
	}
	if product.BucketName == "" || product.Slug == "" {
		return Result{}, fmt.Errorf("product %q has no bucket or slug", product.Slug)
	}

	template := storage.Object{
		ACL:          storage.ACLPublicRead,
		CacheControl: browserCache,
		Metadata: map[string]string{
			"surrogate-key":     product.SurrogateKey,
			"surrogate-control": surrogateControl,
		},
	}

	var result Result
	n, err := storage.UploadDirectory(ctx, p.store, p.assets, product.BucketName,
		path.Join(product.Slug, p.cfg.AssetsPrefix), template)
	result.Objects += n
	if err != nil {
		return result, fmt.Errorf("upload assets: %w", err)
	}
	logger.Info("Uploaded assets", zap.Int("objects", n))

	for _, page := range []struct {
		rel  string
		html string
	}{
		{rel: EditionPagePath, html: editionHTML},
		{rel: BuildPagePath, html: buildHTML},
	} {
		written, err := p.uploadPage(ctx, product, template, page.rel, page.html)
		result.Objects += written
		if err != nil {
			return result, err
		}
	}

	if err := p.purger.PurgeKey(ctx, product.SurrogateKey); err != nil {
		return result, fmt.Errorf("purge surrogate key: %w", err)
	}
	logger.Info("Purged edge cache", zap.String("surrogate_key", product.SurrogateKey))
	return result, nil
}

func (p *Publisher) uploadPage(
	ctx context.Context,
	product dashboard.Product,
	template storage.Object,
	rel, html string,
) (int, error) {
	page := template
	page.Bucket = product.BucketName
	page.Key = path.Join(product.Slug, rel)
	page.Body = []byte(html)
	page.ContentType = htmlContentType
	if err := p.store.Upload(ctx, page); err != nil {
		return 0, fmt.Errorf("upload %s: %w", page.Key, err)
	}
	p.logger.Info("Uploaded page", zap.String("key", page.Key))

	redirect := template
	redirect.Bucket = product.BucketName
	redirect.Key = path.Dir(page.Key)
	redirect.Metadata = map[string]string{storage.MetadataDirRedirect: "true"}
	for k, v := range template.Metadata {
		redirect.Metadata[k] = v
	}
	if err := p.store.Upload(ctx, redirect); err != nil {
		return 1, fmt.Errorf("upload directory redirect %s: %w", redirect.Key, err)
	}
	return 2, nil
}
