package clients

import (
	"context"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/tutorlink/lesson-pipeline-backend/internal/config"
	"github.com/tutorlink/lesson-pipeline-backend/internal/logger"
)

// MediaStore is the boundary to durable object storage
type MediaStore interface {
	Put(ctx context.Context, key string, data io.Reader, contentType string) error
	PublicURL(key string) string
	Delete(ctx context.Context, key string) error
}

// gcsStore keeps lesson videos in a GCS bucket
type gcsStore struct {
	log    *logger.Logger
	client *storage.Client
	bucket string
	cdn    string
}

// NewGCSStore builds a MediaStore backed by the configured bucket
func NewGCSStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (MediaStore, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	opts = append(opts, option.WithScopes(storage.ScopeReadWrite))

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	return &gcsStore{
		log:    log.With("client", "gcs"),
		client: client,
		bucket: cfg.GCSBucket,
		cdn:    cfg.CDNDomain,
	}, nil
}

func (s *gcsStore) Put(ctx context.Context, key string, data io.Reader, contentType string) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, data); err != nil {
		_ = w.Close()
		return fmt.Errorf("write object %q: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close object writer %q: %w", key, err)
	}
	return nil
}

func (s *gcsStore) PublicURL(key string) string {
	if s.cdn != "" {
		return fmt.Sprintf("https://%s/%s", s.cdn, key)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucket, key)
}

func (s *gcsStore) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := s.client.Bucket(s.bucket).Object(key).Delete(ctx); err != nil {
		return fmt.Errorf("delete object %q: %w", key, err)
	}
	return nil
}
