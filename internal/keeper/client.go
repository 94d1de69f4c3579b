// Package keeper is a client for the LTD Keeper catalog API. It loads the
// product, edition and build records the dashboards are built from.
package keeper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/JakeFAU/ltd-dasher/internal/dashboard"
	"github.com/JakeFAU/ltd-dasher/internal/metrics"
	"github.com/JakeFAU/ltd-dasher/internal/ratelimit"
)

// ErrRemoteUnavailable marks a Keeper request that failed in transport or
// returned a non-success status.
var ErrRemoteUnavailable = errors.New("keeper: remote unavailable")

// StatusError reports a non-2xx Keeper response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("keeper: GET %s returned %d", e.URL, e.StatusCode)
}

// Is makes StatusError match ErrRemoteUnavailable.
func (e *StatusError) Is(target error) bool {
	return target == ErrRemoteUnavailable
}

const defaultTimeout = 30 * time.Second

// Config controls the Keeper HTTP client. RequestsPerSecond of zero leaves
// requests unthrottled.
type Config struct {
	Timeout           time.Duration
	UserAgent         string
	RequestsPerSecond float64
	Burst             int
}

// Throttle delays a request to url until it may be sent.
type Throttle interface {
	Wait(ctx context.Context, url string) error
}

// Client fetches dashboard datasets from Keeper.
type Client struct {
	http      *http.Client
	userAgent string
	throttle  Throttle
	logger    *zap.Logger
}

// New builds a Client with an instrumented, pooled transport.
func New(cfg Config, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	c := NewWithHTTPClient(&http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(newHTTPTransport()),
	}, cfg.UserAgent, logger)
	if cfg.RequestsPerSecond > 0 {
		c.throttle = ratelimit.New(ratelimit.Config{
			RequestsPerSecond: cfg.RequestsPerSecond,
			Burst:             cfg.Burst,
		})
	}
	return c
}

// WithThrottle returns the client with requests gated by t.
func (c *Client) WithThrottle(t Throttle) *Client {
	c.throttle = t
	return c
}

// NewWithHTTPClient builds a Client around an existing http.Client.
func NewWithHTTPClient(httpClient *http.Client, userAgent string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		http:      httpClient,
		userAgent: userAgent,
		logger:    logger,
	}
}

type bulkResponse struct {
	Product  dashboard.Product   `json:"product"`
	Editions []dashboard.Edition `json:"editions"`
	Builds   []dashboard.Build   `json:"builds"`
}

type editionList struct {
	Editions []string `json:"editions"`
}

type buildList struct {
	Builds []string `json:"builds"`
}

// FetchDashboardDataset loads a product with its editions and builds. It
// prefers the bulk {product}/dashboard endpoint and falls back to walking
// the individual resources only when that endpoint is unavailable.
func (c *Client) FetchDashboardDataset(ctx context.Context, productURL string) (dashboard.Dataset, error) {
	productURL = strings.TrimRight(productURL, "/")
	dataset, err := c.FetchBulk(ctx, productURL)
	if err == nil {
		return dataset, nil
	}
	if !errors.Is(err, ErrRemoteUnavailable) {
		return dashboard.Dataset{}, err
	}
	c.logger.Warn("bulk dashboard endpoint unavailable; loading resources individually",
		zap.String("product_url", productURL), zap.Error(err))

	product, err := c.FetchProduct(ctx, productURL)
	if err != nil {
		return dashboard.Dataset{}, err
	}
	editions, err := c.FetchEditions(ctx, productURL)
	if err != nil {
		return dashboard.Dataset{}, err
	}
	builds, err := c.FetchBuilds(ctx, productURL)
	if err != nil {
		return dashboard.Dataset{}, err
	}
	return dashboard.Dataset{Product: product, Editions: editions, Builds: builds}, nil
}

// FetchBulk loads the whole dataset from the {product}/dashboard endpoint.
func (c *Client) FetchBulk(ctx context.Context, productURL string) (dashboard.Dataset, error) {
	bulkURL := strings.TrimRight(productURL, "/") + "/dashboard"
	c.logger.Info("Getting data from bulk endpoint", zap.String("url", bulkURL))

	var resp bulkResponse
	if err := c.getJSON(ctx, "dashboard", bulkURL, &resp); err != nil {
		return dashboard.Dataset{}, err
	}
	dataset := dashboard.Dataset{
		Product:  resp.Product,
		Editions: make(map[string]dashboard.Edition, len(resp.Editions)),
		Builds:   make(map[string]dashboard.Build, len(resp.Builds)),
	}
	for _, e := range resp.Editions {
		dataset.Editions[e.Slug] = e
	}
	for _, b := range resp.Builds {
		dataset.Builds[b.Slug] = b
	}

	c.logger.Info("Finished getting data from bulk endpoint",
		zap.String("url", bulkURL),
		zap.Int("editions", len(dataset.Editions)),
		zap.Int("builds", len(dataset.Builds)))
	return dataset, nil
}

// FetchProduct loads the product resource itself.
func (c *Client) FetchProduct(ctx context.Context, productURL string) (dashboard.Product, error) {
	var product dashboard.Product
	if err := c.getJSON(ctx, "product", productURL, &product); err != nil {
		return dashboard.Product{}, err
	}
	return product, nil
}

// FetchEditions loads every edition of a product, keyed by slug.
func (c *Client) FetchEditions(ctx context.Context, productURL string) (map[string]dashboard.Edition, error) {
	var list editionList
	if err := c.getJSON(ctx, "editions", strings.TrimRight(productURL, "/")+"/editions/", &list); err != nil {
		return nil, err
	}
	editions := make(map[string]dashboard.Edition, len(list.Editions))
	for _, editionURL := range list.Editions {
		var e dashboard.Edition
		if err := c.getJSON(ctx, "edition", editionURL, &e); err != nil {
			return nil, err
		}
		editions[e.Slug] = e
	}
	return editions, nil
}

// FetchBuilds loads every build of a product, keyed by slug.
func (c *Client) FetchBuilds(ctx context.Context, productURL string) (map[string]dashboard.Build, error) {
	var list buildList
	if err := c.getJSON(ctx, "builds", strings.TrimRight(productURL, "/")+"/builds/", &list); err != nil {
		return nil, err
	}
	builds := make(map[string]dashboard.Build, len(list.Builds))
	for _, buildURL := range list.Builds {
		var b dashboard.Build
		if err := c.getJSON(ctx, "build", buildURL, &b); err != nil {
			return nil, err
		}
		builds[b.Slug] = b
	}
	return builds, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint, url string, out any) error {
	if c.throttle != nil {
		if err := c.throttle.Wait(ctx, url); err != nil {
			return fmt.Errorf("GET %s: %w", url, err)
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request for %s: %w", url, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.ObserveCatalogRequest(endpoint, 0)
		return fmt.Errorf("%w: GET %s: %w", ErrRemoteUnavailable, url, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Debug("close keeper response body", zap.Error(cerr))
		}
	}()
	metrics.ObserveCatalogRequest(endpoint, resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, resp.Body)
		return &StatusError{URL: url, StatusCode: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response from %s: %w", endpoint, url, err)
	}
	c.logger.Debug("keeper request completed", zap.String("endpoint", endpoint), zap.String("url", url))
	return nil
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
