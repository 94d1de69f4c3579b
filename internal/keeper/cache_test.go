package keeper

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatasetCache_MissThenHit(t *testing.T) {
	t.Parallel()

	fk := newFakeKeeper(t)
	dir := filepath.Join(t.TempDir(), "_cache")
	cache := &DatasetCache{Dir: dir, KeeperURL: fk.server.URL + "/", Client: newTestClient(fk)}

	first, err := cache.Load(context.Background(), "developer")
	require.NoError(t, err)
	require.Len(t, first.Editions, 2)
	require.Len(t, first.Builds, 3)

	for _, kind := range []string{"product", "editions", "builds"} {
		_, err := os.Stat(filepath.Join(dir, "developer_"+kind+".json"))
		require.NoError(t, err, kind)
	}
	callsAfterMiss := fk.totalCalls()

	second, err := cache.Load(context.Background(), "developer")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, callsAfterMiss, fk.totalCalls())
}

func TestDatasetCache_ReadsExistingFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	write := func(kind, body string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "sqr-013_"+kind+".json"), []byte(body), 0o600))
	}
	write("product", `{"slug": "sqr-013", "title": "SQR-013: Cached"}`)
	write("editions", `{"main": {"slug": "main", "date_rebuilt": "2017-01-27T20:45:04Z"}}`)
	write("builds", `{}`)

	cache := &DatasetCache{Dir: dir, KeeperURL: "http://127.0.0.1:0"}
	dataset, err := cache.Load(context.Background(), "sqr-013")
	require.NoError(t, err)
	assert.Equal(t, "SQR-013: Cached", dataset.Product.Title)
	assert.Contains(t, dataset.Editions, "main")
	assert.Empty(t, dataset.Builds)
}

func TestDatasetCache_RequiresSlug(t *testing.T) {
	t.Parallel()

	cache := &DatasetCache{Dir: t.TempDir()}
	_, err := cache.Load(context.Background(), " ")
	require.Error(t, err)
}
