package interfaces

import (
	"context"
	"io"

	"github.com/secmon-lab/claimdesk/pkg/domain/model"
)

// BlobStore persists uploaded image bytes
type BlobStore interface {
	// Put stores data under key and returns the object's public URL
	Put(ctx context.Context, key, contentType string, data io.Reader, size int64) (string, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// AnalysisDispatcher schedules the analysis pipeline for a claim
type AnalysisDispatcher interface {
	Dispatch(ctx context.Context, claimID model.ClaimID) error
}

// EventPublisher fans claim changes out to live subscribers
type EventPublisher interface {
	Publish(ctx context.Context, ev model.ClaimEvent)
}
