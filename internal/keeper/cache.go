package keeper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/ltd-dasher/internal/dashboard"
)

// DatasetCache serves development renders from JSON files under Dir and
// fills missing files from Keeper. Files are named {slug}_{kind}.json.
type DatasetCache struct {
	Dir       string
	KeeperURL string
	Client    *Client
	Logger    *zap.Logger
}

// Load returns the dataset for a product slug, reading each part from the
// cache when present and fetching and caching it otherwise.
func (c *DatasetCache) Load(ctx context.Context, slug string) (dashboard.Dataset, error) {
	if strings.TrimSpace(slug) == "" {
		return dashboard.Dataset{}, errors.New("product slug is required")
	}
	if err := os.MkdirAll(c.Dir, 0o750); err != nil {
		return dashboard.Dataset{}, fmt.Errorf("create cache dir: %w", err)
	}
	productURL := strings.TrimRight(c.KeeperURL, "/") + "/products/" + slug

	var dataset dashboard.Dataset
	err := loadOrFetch(c, slug, "product", &dataset.Product, func() (any, error) {
		return c.Client.FetchProduct(ctx, productURL)
	})
	if err != nil {
		return dashboard.Dataset{}, err
	}
	err = loadOrFetch(c, slug, "editions", &dataset.Editions, func() (any, error) {
		return c.Client.FetchEditions(ctx, productURL)
	})
	if err != nil {
		return dashboard.Dataset{}, err
	}
	err = loadOrFetch(c, slug, "builds", &dataset.Builds, func() (any, error) {
		return c.Client.FetchBuilds(ctx, productURL)
	})
	if err != nil {
		return dashboard.Dataset{}, err
	}
	return dataset, nil
}

func (c *DatasetCache) path(slug, kind string) string {
	return filepath.Join(c.Dir, fmt.Sprintf("%s_%s.json", slug, kind))
}

func (c *DatasetCache) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

func loadOrFetch(c *DatasetCache, slug, kind string, out any, fetch func() (any, error)) error {
	path := c.path(slug, kind)
	data, err := os.ReadFile(path) //nolint:gosec // path is built from the configured cache dir
	switch {
	case err == nil:
		c.logger().Debug("using cached keeper data", zap.String("path", path))
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode cache file %s: %w", path, err)
		}
		return nil
	case !errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("read cache file %s: %w", path, err)
	}

	c.logger().Info("cache miss; fetching from keeper", zap.String("slug", slug), zap.String("kind", kind))
	value, err := fetch()
	if err != nil {
		return err
	}
	// Maps marshal with sorted keys, which keeps the cache files diffable.
	encoded, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s cache: %w", kind, err)
	}
	if err := os.WriteFile(path, encoded, 0o600); err != nil {
		return fmt.Errorf("write cache file %s: %w", path, err)
	}
	if err := json.Unmarshal(encoded, out); err != nil {
		return fmt.Errorf("decode %s: %w", kind, err)
	}
	return nil
}
