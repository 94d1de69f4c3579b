package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/ltd-dasher/internal/builder"
	"github.com/JakeFAU/ltd-dasher/internal/clock"
	"github.com/JakeFAU/ltd-dasher/internal/clock/system"
	"github.com/JakeFAU/ltd-dasher/internal/config"
	"github.com/JakeFAU/ltd-dasher/internal/dashboard"
	"github.com/JakeFAU/ltd-dasher/internal/keeper"
	"github.com/JakeFAU/ltd-dasher/internal/publisher"
)

// devAssetBaseURL is relative to the page directories under the build dir.
const devAssetBaseURL = "../_dasher-assets"

// renderClock is replaced in tests.
var renderClock clock.Clock = system.New()

func newRenderCmd() *cobra.Command {
	var slug string
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a product's dashboards into the local build directory",
		Long: `Renders the edition and build dashboards of one product into
dev.build_dir for local preview. Keeper responses are cached as JSON under
dev.cache_dir; delete those files to refetch.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := resolveRuntime(cmd.Context())
			if err != nil {
				return err
			}
			return renderLocal(cmd.Context(), rt.cfg, rt.logger, slug)
		},
	}
	cmd.Flags().StringVar(&slug, "product", "", "slug of the product to render")
	_ = cmd.MarkFlagRequired("product")
	return cmd
}

func renderLocal(ctx context.Context, cfg config.Config, logger *zap.Logger, slug string) error {
	cache := &keeper.DatasetCache{
		Dir:       cfg.Dev.CacheDir,
		KeeperURL: cfg.Dev.KeeperURL,
		Client:    keeper.New(cfg.KeeperClientConfig(), logger.Named("keeper")),
		Logger:    logger.Named("cache"),
	}
	dataset, err := cache.Load(ctx, slug)
	if err != nil {
		return fmt.Errorf("load %s: %w", slug, err)
	}

	renderer, err := dashboard.NewRenderer()
	if err != nil {
		return err
	}
	editionHTML, buildHTML, err := builder.RenderPages(renderer, dataset, devAssetBaseURL, renderClock.Now())
	if err != nil {
		return fmt.Errorf("render %s: %w", slug, err)
	}
	indexHTML, err := renderer.RenderIndexPage()
	if err != nil {
		return err
	}

	pages := map[string]string{
		publisher.EditionPagePath: editionHTML,
		publisher.BuildPagePath:   buildHTML,
		"index.html":              indexHTML,
	}
	for rel, html := range pages {
		if err := writePage(cfg.Dev.BuildDir, rel, html); err != nil {
			return err
		}
	}

	assetsDir := filepath.Join(cfg.Dev.BuildDir, "_dasher-assets")
	if err := os.RemoveAll(assetsDir); err != nil {
		return fmt.Errorf("clear assets: %w", err)
	}
	if err := os.CopyFS(assetsDir, dashboard.Assets()); err != nil {
		return fmt.Errorf("copy assets: %w", err)
	}

	logger.Info("Rendered dashboards",
		zap.String("product", slug),
		zap.String("edition_page", filepath.Join(cfg.Dev.BuildDir, publisher.EditionPagePath)),
		zap.String("build_page", filepath.Join(cfg.Dev.BuildDir, publisher.BuildPagePath)))
	return nil
}

func writePage(buildDir, rel, html string) error {
	path := filepath.Join(buildDir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(html), 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
