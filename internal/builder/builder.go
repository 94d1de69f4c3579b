// Package builder runs the dashboard pipeline for one or more products:
// fetch from Keeper, enrich, render, publish, then notify and record.
package builder

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/ltd-dasher/internal/clock"
	"github.com/JakeFAU/ltd-dasher/internal/dashboard"
	"github.com/JakeFAU/ltd-dasher/internal/history"
	"github.com/JakeFAU/ltd-dasher/internal/metrics"
	"github.com/JakeFAU/ltd-dasher/internal/notify"
	"github.com/JakeFAU/ltd-dasher/internal/publisher"
)

// Catalog loads a product's dataset.
type Catalog interface {
	FetchDashboardDataset(ctx context.Context, productURL string) (dashboard.Dataset, error)
}

// Publisher ships rendered pages.
type Publisher interface {
	Publish(ctx context.Context, product dashboard.Product, editionHTML, buildHTML string) (publisher.Result, error)
	AssetBaseURL(product dashboard.Product) string
}

// IDGenerator issues build record ids.
type IDGenerator interface {
	NewID() (string, error)
}

// Config controls where notifications go.
type Config struct {
	Topic string
}

// Builder executes product builds sequentially.
type Builder struct {
	catalog   Catalog
	renderer  *dashboard.Renderer
	publisher Publisher
	notifier  notify.Notifier
	recorder  history.Recorder
	clock     clock.Clock
	ids       IDGenerator
	cfg       Config
	logger    *zap.Logger
}

// New constructs a Builder. notifier and recorder default to no-ops.
func New(
	catalog Catalog,
	renderer *dashboard.Renderer,
	pub Publisher,
	notifier notify.Notifier,
	recorder history.Recorder,
	clk clock.Clock,
	ids IDGenerator,
	cfg Config,
	logger *zap.Logger,
) *Builder {
	if notifier == nil {
		notifier = notify.Noop{}
	}
	if recorder == nil {
		recorder = history.NoopRecorder{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{
		catalog:   catalog,
		renderer:  renderer,
		publisher: pub,
		notifier:  notifier,
		recorder:  recorder,
		clock:     clk,
		ids:       ids,
		cfg:       cfg,
		logger:    logger,
	}
}

// BuildAll builds each product in order and stops at the first failure.
func (b *Builder) BuildAll(ctx context.Context, productURLs []string) error {
	for _, productURL := range productURLs {
		if err := b.BuildProduct(ctx, productURL); err != nil {
			return err
		}
	}
	return nil
}

// BuildProduct runs the full pipeline for one product URL. No partial
// dashboard is published when any stage fails.
func (b *Builder) BuildProduct(ctx context.Context, productURL string) error {
	started := b.clock.Now()
	logger := b.logger.With(zap.String("product_url", productURL))
	logger.Info("Starting dashboard build")

	outcome, err := b.build(ctx, productURL)
	finished := b.clock.Now()

	status := metrics.StatusSuccess
	if err != nil {
		status = metrics.StatusFailure
		logger.Error("Dashboard build failed", zap.Error(err))
	} else if outcome.result.Skipped {
		status = metrics.StatusSkipped
	}
	metrics.ObserveBuild(status, finished.Sub(started))
	b.record(ctx, logger, productURL, outcome, status, err, started, finished)

	if err != nil {
		return fmt.Errorf("build %s: %w", productURL, err)
	}
	b.announce(ctx, logger, productURL, outcome, finished)
	logger.Info("Finished dashboard build",
		zap.String("product", outcome.dataset.Product.Slug),
		zap.String("status", status),
		zap.Duration("duration", finished.Sub(started)))
	return nil
}

type outcome struct {
	dataset dashboard.Dataset
	result  publisher.Result
}

func (b *Builder) build(ctx context.Context, productURL string) (outcome, error) {
	var out outcome
	dataset, err := b.catalog.FetchDashboardDataset(ctx, productURL)
	if err != nil {
		return out, err
	}
	out.dataset = dataset

	editionHTML, buildHTML, err := RenderPages(b.renderer, dataset, b.publisher.AssetBaseURL(dataset.Product), b.clock.Now())
	if err != nil {
		return out, err
	}

	result, err := b.publisher.Publish(ctx, dataset.Product, editionHTML, buildHTML)
	out.result = result
	if err != nil {
		return out, err
	}
	return out, nil
}

// RenderPages enriches a dataset against now and renders both dashboards.
func RenderPages(
	r *dashboard.Renderer,
	dataset dashboard.Dataset,
	assetBaseURL string,
	now time.Time,
) (editionHTML, buildHTML string, err error) {
	product := dashboard.EnrichProduct(dataset.Product)
	editions, err := dashboard.EnrichEditions(dataset.Product, dataset.Editions, now)
	if err != nil {
		return "", "", fmt.Errorf("enrich editions: %w", err)
	}
	builds, err := dashboard.EnrichBuilds(dataset.Product, dataset.Builds, now)
	if err != nil {
		return "", "", fmt.Errorf("enrich builds: %w", err)
	}
	editionHTML, err = r.RenderEditionPage(product, editions, assetBaseURL)
	if err != nil {
		return "", "", err
	}
	buildHTML, err = r.RenderBuildPage(product, builds, assetBaseURL)
	if err != nil {
		return "", "", err
	}
	return editionHTML, buildHTML, nil
}

func (b *Builder) announce(ctx context.Context, logger *zap.Logger, productURL string, out outcome, at time.Time) {
	event := notify.DashboardEvent{
		ProductSlug:   out.dataset.Product.Slug,
		ProductURL:    productURL,
		PublishedURL:  out.dataset.Product.PublishedURL,
		Editions:      len(out.dataset.Editions),
		Builds:        len(out.dataset.Builds),
		SkippedUpload: out.result.Skipped,
		CompletedAt:   at,
	}
	if _, err := b.notifier.Publish(ctx, b.cfg.Topic, event); err != nil {
		logger.Warn("publish build notification failed", zap.Error(err))
	}
}

func (b *Builder) record(
	ctx context.Context,
	logger *zap.Logger,
	productURL string,
	out outcome,
	status string,
	buildErr error,
	started, finished time.Time,
) {
	id, err := b.ids.NewID()
	if err != nil {
		logger.Warn("generate build record id failed", zap.Error(err))
		return
	}
	rec := history.BuildRecord{
		ID:          id,
		ProductURL:  productURL,
		ProductSlug: out.dataset.Product.Slug,
		Status:      status,
		Editions:    len(out.dataset.Editions),
		Builds:      len(out.dataset.Builds),
		StartedAt:   started,
		FinishedAt:  finished,
	}
	if buildErr != nil {
		rec.Error = buildErr.Error()
	}
	if err := b.recorder.RecordBuild(ctx, rec); err != nil {
		logger.Warn("record build history failed", zap.Error(err))
	}
}
