package config

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/claimdesk/pkg/domain/interfaces"
	"github.com/secmon-lab/claimdesk/pkg/service/storage"
	"github.com/secmon-lab/claimdesk/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

const (
	StorageMemory = "memory"
	StorageGCS    = "gcs"
	StorageS3     = "s3"
)

// Storage holds CLI flags for the image blob store
type Storage struct {
	backend    string
	bucket     string
	baseURL    string
	s3Endpoint string
	s3Access   string
	s3Secret   string
	s3Region   string
	s3UseSSL   bool
	s3Presign  time.Duration
}

func (x *Storage) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "storage-backend",
			Usage:       "Image storage backend (memory, gcs or s3)",
			Category:    "Storage",
			Value:       StorageMemory,
			Sources:     cli.EnvVars("CLAIMDESK_STORAGE_BACKEND"),
			Destination: &x.backend,
		},
		&cli.StringFlag{
			Name:        "storage-bucket",
			Usage:       "Bucket name (required for gcs and s3)",
			Category:    "Storage",
			Sources:     cli.EnvVars("CLAIMDESK_STORAGE_BUCKET"),
			Destination: &x.bucket,
		},
		&cli.StringFlag{
			Name:        "storage-base-url",
			Usage:       "Public URL prefix of stored images",
			Category:    "Storage",
			Sources:     cli.EnvVars("CLAIMDESK_STORAGE_BASE_URL"),
			Destination: &x.baseURL,
		},
		&cli.StringFlag{
			Name:        "s3-endpoint",
			Usage:       "S3 compatible endpoint host (e.g. localhost:9000)",
			Category:    "Storage",
			Sources:     cli.EnvVars("CLAIMDESK_S3_ENDPOINT"),
			Destination: &x.s3Endpoint,
		},
		&cli.StringFlag{
			Name:        "s3-access-key",
			Usage:       "S3 access key",
			Category:    "Storage",
			Sources:     cli.EnvVars("CLAIMDESK_S3_ACCESS_KEY"),
			Destination: &x.s3Access,
		},
		&cli.StringFlag{
			Name:        "s3-secret-key",
			Usage:       "S3 secret key",
			Category:    "Storage",
			Sources:     cli.EnvVars("CLAIMDESK_S3_SECRET_KEY"),
			Destination: &x.s3Secret,
		},
		&cli.StringFlag{
			Name:        "s3-region",
			Usage:       "S3 region",
			Category:    "Storage",
			Sources:     cli.EnvVars("CLAIMDESK_S3_REGION"),
			Destination: &x.s3Region,
		},
		&cli.BoolFlag{
			Name:        "s3-use-ssl",
			Usage:       "Use HTTPS for the S3 endpoint",
			Category:    "Storage",
			Value:       true,
			Sources:     cli.EnvVars("CLAIMDESK_S3_USE_SSL"),
			Destination: &x.s3UseSSL,
		},
		&cli.DurationFlag{
			Name:        "s3-presign-ttl",
			Usage:       "Lifetime of presigned image URLs when no base URL is set",
			Category:    "Storage",
			Value:       7 * 24 * time.Hour,
			Sources:     cli.EnvVars("CLAIMDESK_S3_PRESIGN_TTL"),
			Destination: &x.s3Presign,
		},
	}
}

func (x Storage) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("backend", x.backend),
		slog.String("bucket", x.bucket),
		slog.String("base_url", x.baseURL),
		slog.String("s3_endpoint", x.s3Endpoint),
		slog.Int("s3_secret_key.len", len(x.s3Secret)),
	)
}

// IsMemory reports whether images are kept in process memory
func (x *Storage) IsMemory() bool {
	return x.backend == StorageMemory
}

// Configure creates the blob store. appBaseURL is used to build image URLs of
// the memory backend, which the HTTP server exposes under /blobs/.
func (x *Storage) Configure(ctx context.Context, appBaseURL string) (interfaces.BlobStore, func(), error) {
	logger := logging.Default()

	switch x.backend {
	case StorageMemory:
		base := x.baseURL
		if base == "" {
			base = strings.TrimRight(appBaseURL, "/") + "/blobs"
		}
		logger.Info("Using in-memory image storage (development mode)", "base_url", base)
		return storage.NewMemory(base), func() {}, nil

	case StorageGCS:
		if x.bucket == "" {
			return nil, nil, goerr.Wrap(ErrMissingOption, "storage-bucket is required for gcs",
				goerr.V(OptionKey, "storage-bucket"))
		}
		store, err := storage.NewGCS(ctx, x.bucket, x.baseURL)
		if err != nil {
			return nil, nil, goerr.Wrap(err, "failed to initialize GCS storage")
		}
		logger.Info("Using GCS image storage", "bucket", x.bucket)
		return store, func() {
			if err := store.Close(); err != nil {
				logger.Error("failed to close GCS client", "error", err.Error())
			}
		}, nil

	case StorageS3:
		if x.bucket == "" || x.s3Endpoint == "" {
			return nil, nil, goerr.Wrap(ErrMissingOption, "storage-bucket and s3-endpoint are required for s3",
				goerr.V(OptionKey, "s3-endpoint"))
		}
		store, err := storage.NewS3(storage.S3Config{
			Endpoint:   x.s3Endpoint,
			AccessKey:  x.s3Access,
			SecretKey:  x.s3Secret,
			Bucket:     x.bucket,
			Region:     x.s3Region,
			UseSSL:     x.s3UseSSL,
			BaseURL:    x.baseURL,
			PresignTTL: x.s3Presign,
		})
		if err != nil {
			return nil, nil, goerr.Wrap(err, "failed to initialize S3 storage")
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, nil, err
		}
		logger.Info("Using S3 image storage", "endpoint", x.s3Endpoint, "bucket", x.bucket)
		return store, func() {}, nil

	default:
		return nil, nil, goerr.Wrap(ErrInvalidConfig, "invalid storage backend", goerr.V(BackendKey, x.backend))
	}
}
