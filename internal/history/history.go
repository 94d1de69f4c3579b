// Package history records every dashboard build attempt.
package history

import (
	"context"
	"time"
)

// BuildRecord describes one product build attempt.
type BuildRecord struct {
	ID          string
	ProductURL  string
	ProductSlug string
	Status      string
	Error       string
	Editions    int
	Builds      int
	StartedAt   time.Time
	FinishedAt  time.Time
}

// Recorder persists build records.
type Recorder interface {
	RecordBuild(ctx context.Context, record BuildRecord) error
	Close()
}

// NoopRecorder discards records.
type NoopRecorder struct{}

// RecordBuild does nothing.
func (NoopRecorder) RecordBuild(context.Context, BuildRecord) error { return nil }

// Close does nothing.
func (NoopRecorder) Close() {}
