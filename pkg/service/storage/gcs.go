package storage

import (
	"context"
	"errors"
	"io"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"
)

// GCS stores objects in a Google Cloud Storage bucket
type GCS struct {
	client  *storage.Client
	bucket  string
	baseURL string
}

// NewGCS creates a GCS blob store. An empty baseURL uses the public
// storage.googleapis.com URL of the bucket.
func NewGCS(ctx context.Context, bucket, baseURL string) (*GCS, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create GCS client")
	}
	if baseURL == "" {
		baseURL = "https://storage.googleapis.com/" + bucket
	}
	return &GCS{client: client, bucket: bucket, baseURL: baseURL}, nil
}

func (g *GCS) Put(ctx context.Context, key, contentType string, data io.Reader, size int64) (string, error) {
	w := g.client.Bucket(g.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, data); err != nil {
		_ = w.Close()
		return "", goerr.Wrap(err, "failed to write GCS object", goerr.V("bucket", g.bucket), goerr.V("key", key))
	}
	if err := w.Close(); err != nil {
		return "", goerr.Wrap(err, "failed to finalize GCS object", goerr.V("bucket", g.bucket), goerr.V("key", key))
	}
	return joinURL(g.baseURL, key), nil
}

func (g *GCS) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	r, err := g.client.Bucket(g.bucket).Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, goerr.Wrap(ErrObjectNotFound, "GCS object not found", goerr.V("bucket", g.bucket), goerr.V("key", key))
		}
		return nil, goerr.Wrap(err, "failed to read GCS object", goerr.V("bucket", g.bucket), goerr.V("key", key))
	}
	return r, nil
}

func (g *GCS) Delete(ctx context.Context, key string) error {
	if err := g.client.Bucket(g.bucket).Object(key).Delete(ctx); err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return goerr.Wrap(ErrObjectNotFound, "GCS object not found", goerr.V("bucket", g.bucket), goerr.V("key", key))
		}
		return goerr.Wrap(err, "failed to delete GCS object", goerr.V("bucket", g.bucket), goerr.V("key", key))
	}
	return nil
}

func (g *GCS) Close() error {
	return g.client.Close()
}
