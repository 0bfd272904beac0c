package storage

import (
	"context"
	"io"
	"net/url"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Config describes an S3 compatible endpoint
type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string `masq:"secret"`
	Bucket    string
	Region    string
	UseSSL    bool
	// BaseURL prefixes public URLs. When empty, URLs are presigned for PresignTTL.
	BaseURL    string
	PresignTTL time.Duration
}

// S3 stores objects through the MinIO client
type S3 struct {
	client *minio.Client
	cfg    S3Config
}

func NewS3(cfg S3Config) (*S3, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to init minio client", goerr.V("endpoint", cfg.Endpoint))
	}
	if cfg.PresignTTL <= 0 {
		cfg.PresignTTL = 7 * 24 * time.Hour
	}
	return &S3{client: client, cfg: cfg}, nil
}

// EnsureBucket creates the bucket when missing
func (s *S3) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.cfg.Bucket)
	if err != nil {
		return goerr.Wrap(err, "failed to check bucket", goerr.V("bucket", s.cfg.Bucket))
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.cfg.Bucket, minio.MakeBucketOptions{Region: s.cfg.Region}); err != nil {
		return goerr.Wrap(err, "failed to make bucket", goerr.V("bucket", s.cfg.Bucket))
	}
	return nil
}

func (s *S3) Put(ctx context.Context, key, contentType string, data io.Reader, size int64) (string, error) {
	if size <= 0 {
		size = -1
	}
	if _, err := s.client.PutObject(ctx, s.cfg.Bucket, key, data, size, minio.PutObjectOptions{ContentType: contentType}); err != nil {
		return "", goerr.Wrap(err, "failed to put object", goerr.V("bucket", s.cfg.Bucket), goerr.V("key", key))
	}

	if s.cfg.BaseURL != "" {
		return joinURL(s.cfg.BaseURL, key), nil
	}
	u, err := s.client.PresignedGetObject(ctx, s.cfg.Bucket, key, s.cfg.PresignTTL, url.Values{})
	if err != nil {
		return "", goerr.Wrap(err, "failed to presign object", goerr.V("bucket", s.cfg.Bucket), goerr.V("key", key))
	}
	return u.String(), nil
}

func (s *S3) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if _, err := s.client.StatObject(ctx, s.cfg.Bucket, key, minio.StatObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, goerr.Wrap(ErrObjectNotFound, "object not found", goerr.V("bucket", s.cfg.Bucket), goerr.V("key", key))
		}
		return nil, goerr.Wrap(err, "failed to stat object", goerr.V("bucket", s.cfg.Bucket), goerr.V("key", key))
	}

	obj, err := s.client.GetObject(ctx, s.cfg.Bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get object", goerr.V("bucket", s.cfg.Bucket), goerr.V("key", key))
	}
	return obj, nil
}

func (s *S3) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.cfg.Bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return goerr.Wrap(err, "failed to remove object", goerr.V("bucket", s.cfg.Bucket), goerr.V("key", key))
	}
	return nil
}
