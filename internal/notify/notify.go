// Package notify announces finished dashboard builds to downstream consumers.
package notify

import (
	"context"
	"time"
)

// DashboardEvent is emitted after a product's dashboards are published.
type DashboardEvent struct {
	ProductSlug   string    `json:"product_slug"`
	ProductURL    string    `json:"product_url"`
	PublishedURL  string    `json:"published_url"`
	Editions      int       `json:"editions"`
	Builds        int       `json:"builds"`
	SkippedUpload bool      `json:"skipped_upload"`
	CompletedAt   time.Time `json:"completed_at"`
}

// Notifier publishes a payload to a topic and returns the message id.
type Notifier interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Noop drops every message.
type Noop struct{}

// Publish returns an empty id without sending anything.
func (Noop) Publish(context.Context, string, any) (string, error) { return "", nil }
