package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeConfig points the dev directories at a temp dir and returns the
// config path and build dir.
func writeConfig(t *testing.T) (cfgPath, buildDir, cacheDir string) {
	t.Helper()
	dir := t.TempDir()
	buildDir = filepath.Join(dir, "_build")
	cacheDir = filepath.Join(dir, "_cache")
	cfgPath = filepath.Join(dir, "dasher.yaml")
	body := fmt.Sprintf(`profile: testing
dev:
  build_dir: %q
  cache_dir: %q
  keeper_url: "http://127.0.0.1:0"
`, buildDir, cacheDir)
	require.NoError(t, os.WriteFile(cfgPath, []byte(body), 0o600))
	return cfgPath, buildDir, cacheDir
}

func seedCache(t *testing.T, cacheDir, slug string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(cacheDir, 0o750))
	files := map[string]string{
		"product": `{"slug": "sqr-000", "title": "SQR-000: The LSST DM Technical Note Publishing Platform",
			"doc_repo": "https://github.com/lsst-sqre/sqr-000.git", "published_url": "https://sqr-000.lsst.io",
			"bucket_name": "lsst-the-docs", "surrogate_key": "abc"}`,
		"editions": `{"main": {"slug": "main", "title": "Latest", "tracked_refs": ["main"],
			"date_rebuilt": "2017-01-27T20:45:04Z", "published_url": "https://sqr-000.lsst.io"}}`,
		"builds": `{"1": {"slug": "1", "git_refs": ["tickets/DM-1234"], "date_created": "2017-01-27T20:40:00Z",
			"published_url": "https://sqr-000.lsst.io/builds/1"}}`,
	}
	for kind, body := range files {
		path := filepath.Join(cacheDir, slug+"_"+kind+".json")
		require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	}
}

func execute(t *testing.T, args ...string) error {
	t.Helper()
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	return root.ExecuteContext(context.Background())
}

func TestRenderWritesBuildDir(t *testing.T) {
	cfgPath, buildDir, cacheDir := writeConfig(t)
	seedCache(t, cacheDir, "sqr-000")

	require.NoError(t, execute(t, "--config", cfgPath, "render", "--product", "sqr-000"))

	edition, err := os.ReadFile(filepath.Join(buildDir, "v", "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(edition), "../_dasher-assets")
	assert.Contains(t, string(edition), "sqr-000.lsst.io")

	build, err := os.ReadFile(filepath.Join(buildDir, "builds", "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(build), "DM-1234")

	for _, rel := range []string{"index.html", "_dasher-assets/app.css", "_dasher-assets/lsst_underline_logo.svg"} {
		_, err := os.Stat(filepath.Join(buildDir, filepath.FromSlash(rel)))
		require.NoError(t, err, rel)
	}

	// A second render replaces the assets instead of failing on existing files.
	require.NoError(t, execute(t, "--config", cfgPath, "render", "--product", "sqr-000"))
}

func TestRenderRequiresProduct(t *testing.T) {
	cfgPath, _, _ := writeConfig(t)
	require.Error(t, execute(t, "--config", cfgPath, "render"))
}

func TestRenderMalformedCache(t *testing.T) {
	cfgPath, buildDir, cacheDir := writeConfig(t)
	seedCache(t, cacheDir, "sqr-000")
	require.NoError(t, os.WriteFile(filepath.Join(cacheDir, "sqr-000_builds.json"),
		[]byte(`{"1": {"slug": "1", "date_created": "yesterday"}}`), 0o600))

	err := execute(t, "--config", cfgPath, "render", "--product", "sqr-000")
	require.ErrorContains(t, err, "malformed timestamp")
	_, statErr := os.Stat(filepath.Join(buildDir, "v", "index.html"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestCleanRemovesBuildDir(t *testing.T) {
	cfgPath, buildDir, _ := writeConfig(t)
	require.NoError(t, os.MkdirAll(filepath.Join(buildDir, "v"), 0o750))

	require.NoError(t, execute(t, "--config", cfgPath, "clean"))
	_, err := os.Stat(buildDir)
	assert.True(t, os.IsNotExist(err))

	// Cleaning an absent directory is not an error.
	require.NoError(t, execute(t, "--config", cfgPath, "clean"))
}

func TestMissingConfigFile(t *testing.T) {
	err := execute(t, "--config", filepath.Join(t.TempDir(), "absent.yaml"), "clean")
	require.ErrorContains(t, err, "load config")
}

func TestResolveRuntimeWithoutPreRun(t *testing.T) {
	t.Parallel()
	_, err := resolveRuntime(context.Background())
	require.Error(t, err)
}
