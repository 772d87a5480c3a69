package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/tutorlink/lesson-pipeline-backend/internal/logger"
	"github.com/tutorlink/lesson-pipeline-backend/internal/models"
)

// fakeMedia records puts and deletes instead of talking to a bucket
type fakeMedia struct {
	mu      sync.Mutex
	objects map[string]string
	deleted []string
	putErr  error
}

func newFakeMedia() *fakeMedia {
	return &fakeMedia{objects: make(map[string]string)}
}

func (f *fakeMedia) Put(ctx context.Context, key string, data io.Reader, contentType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return f.putErr
	}
	body, _ := io.ReadAll(data)
	f.objects[key] = string(body)
	return nil
}

func (f *fakeMedia) PublicURL(key string) string {
	return "https://cdn.test/" + key
}

func (f *fakeMedia) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeMedia) putCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.objects)
}

func TestIngestRejectsBadContentType(t *testing.T) {
	media := newFakeMedia()
	svc := NewIngestService(media, logger.NewNop())

	_, err := svc.Ingest(context.Background(), strings.NewReader("data"), "application/pdf", 4)

	var verr *models.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if media.putCount() != 0 {
		t.Error("validation failure must not touch storage")
	}
}

func TestIngestRejectsOversizedVideo(t *testing.T) {
	media := newFakeMedia()
	svc := NewIngestService(media, logger.NewNop())

	_, err := svc.Ingest(context.Background(), strings.NewReader("x"), "video/mp4", MaxVideoSize+1)

	var verr *models.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if media.putCount() != 0 {
		t.Error("validation failure must not touch storage")
	}
}

func TestIngestRejectsEmptyVideo(t *testing.T) {
	media := newFakeMedia()
	svc := NewIngestService(media, logger.NewNop())

	_, err := svc.Ingest(context.Background(), strings.NewReader(""), "video/mp4", 0)

	var verr *models.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
}

func TestIngestUploadsAndReturnsRef(t *testing.T) {
	media := newFakeMedia()
	svc := NewIngestService(media, logger.NewNop())

	ref, err := svc.Ingest(context.Background(), strings.NewReader("movie bytes"), "video/mp4", 11)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}

	if !strings.HasPrefix(ref.StorageKey, "lessons/") || !strings.HasSuffix(ref.StorageKey, ".mp4") {
		t.Errorf("storage key = %q", ref.StorageKey)
	}
	if ref.URL != "https://cdn.test/"+ref.StorageKey {
		t.Errorf("url = %q", ref.URL)
	}
	if media.objects[ref.StorageKey] != "movie bytes" {
		t.Error("uploaded bytes don't match")
	}
}

func TestIngestKeysDontCollide(t *testing.T) {
	media := newFakeMedia()
	svc := NewIngestService(media, logger.NewNop())

	// same name, same content, same instant - keys must still differ
	a, err := svc.Ingest(context.Background(), strings.NewReader("v"), "video/mp4", 1)
	if err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	b, err := svc.Ingest(context.Background(), strings.NewReader("v"), "video/mp4", 1)
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if a.StorageKey == b.StorageKey {
		t.Errorf("both uploads got key %q", a.StorageKey)
	}
}

func TestIngestMapsStorageFailure(t *testing.T) {
	media := newFakeMedia()
	media.putErr = errors.New("bucket on fire")
	svc := NewIngestService(media, logger.NewNop())

	_, err := svc.Ingest(context.Background(), strings.NewReader("v"), "video/mp4", 1)
	if !errors.Is(err, models.ErrStorageUnavailable) {
		t.Fatalf("err = %v, want ErrStorageUnavailable", err)
	}
}
