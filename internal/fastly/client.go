// Package fastly purges Fastly edge cache entries by surrogate key.
package fastly

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	gofastly "github.com/fastly/go-fastly/v9/fastly"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/JakeFAU/ltd-dasher/internal/metrics"
)

// DefaultEndpoint is the public Fastly API.
const DefaultEndpoint = gofastly.DefaultEndpoint

// Config carries the Fastly credentials.
type Config struct {
	APIKey    string
	ServiceID string
	Endpoint  string
}

// Client issues purge requests against one Fastly service.
type Client struct {
	api       *gofastly.Client
	serviceID string
	endpoint  string
}

// New builds a Client. It fails when the key or service id is missing. A nil
// httpClient gets an instrumented default.
func New(cfg Config, httpClient *http.Client) (*Client, error) {
	if cfg.APIKey == "" || cfg.ServiceID == "" {
		return nil, errors.New("fastly: api key and service id are required")
	}
	endpoint := strings.TrimRight(cfg.Endpoint, "/")
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	api, err := gofastly.NewClientForEndpoint(cfg.APIKey, endpoint)
	if err != nil {
		return nil, fmt.Errorf("fastly client: %w", err)
	}
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   30 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	api.HTTPClient = httpClient
	return &Client{
		api:       api,
		serviceID: cfg.ServiceID,
		endpoint:  endpoint,
	}, nil
}

// PurgeKey invalidates every cached object tagged with surrogateKey.
func (c *Client) PurgeKey(ctx context.Context, surrogateKey string) error {
	if strings.TrimSpace(surrogateKey) == "" {
		return errors.New("fastly: surrogate key is required")
	}
	// The SDK call takes no context; honor cancellation before sending.
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("purge %s: %w", surrogateKey, err)
	}
	if _, err := c.api.PurgeKey(&gofastly.PurgeKeyInput{
		ServiceID: c.serviceID,
		Key:       surrogateKey,
	}); err != nil {
		metrics.ObservePurge(metrics.StatusFailure)
		return fmt.Errorf("purge %s: %w", surrogateKey, err)
	}
	metrics.ObservePurge(metrics.StatusSuccess)
	return nil
}
