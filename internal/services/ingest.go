package services

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tutorlink/lesson-pipeline-backend/internal/clients"
	"github.com/tutorlink/lesson-pipeline-backend/internal/logger"
	"github.com/tutorlink/lesson-pipeline-backend/internal/models"
)

// MaxVideoSize caps lesson uploads at 100 MiB
const MaxVideoSize = 100 << 20

// allowedVideoTypes maps accepted content types to their file extension
var allowedVideoTypes = map[string]string{
	"video/mp4":       ".mp4",
	"video/quicktime": ".mov",
	"video/x-msvideo": ".avi",
	"video/x-ms-wmv":  ".wmv",
}

// IngestService is the synchronous entry point of the pipeline: it
// validates the upload and puts the raw bytes into media storage. This is
// the only part of the pipeline the caller waits on.
type IngestService struct {
	Media clients.MediaStore
	log   *logger.Logger
}

// NewIngestService creates the gateway with its storage dependency
func NewIngestService(media clients.MediaStore, log *logger.Logger) *IngestService {
	return &IngestService{
		Media: media,
		log:   log.With("service", "ingest"),
	}
}

// Ingest validates and uploads a lesson video, returning where it landed.
// Validation failures happen before any network call - no storage write,
// no lesson record.
func (s *IngestService) Ingest(ctx context.Context, video io.Reader, contentType string, sizeBytes int64) (*models.VideoRef, error) {
	ext, ok := allowedVideoTypes[strings.ToLower(contentType)]
	if !ok {
		return nil, &models.ValidationError{
			Message: fmt.Sprintf("unsupported video type %q - only mp4, mov, avi and wmv are accepted", contentType),
		}
	}
	if sizeBytes <= 0 {
		return nil, &models.ValidationError{Message: "video file is empty"}
	}
	if sizeBytes > MaxVideoSize {
		return nil, &models.ValidationError{
			Message: fmt.Sprintf("video is %d bytes, the limit is %d", sizeBytes, MaxVideoSize),
		}
	}

	key := storageKey(ext)
	if err := s.Media.Put(ctx, key, video, contentType); err != nil {
		s.log.Error("upload failed", "key", key, "error", err)
		return nil, fmt.Errorf("%w: %v", models.ErrStorageUnavailable, err)
	}

	ref := &models.VideoRef{
		URL:        s.Media.PublicURL(key),
		StorageKey: key,
	}
	s.log.Info("video uploaded", "key", key, "size", sizeBytes)
	return ref, nil
}

// storageKey builds a collision-resistant object key - repeated uploads of
// identically named files never collide
func storageKey(ext string) string {
	return fmt.Sprintf("lessons/%d-%s%s", time.Now().UnixMilli(), uuid.New().String(), ext)
}
