package clients

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/api/option"

	"github.com/tutorlink/lesson-pipeline-backend/internal/config"
	"github.com/tutorlink/lesson-pipeline-backend/internal/logger"
	"github.com/tutorlink/lesson-pipeline-backend/internal/models"
)

// Transcriber turns an uploaded lesson video into transcript text
type Transcriber interface {
	Transcribe(ctx context.Context, videoURL string) (string, error)
	Close() error
}

// speechTranscriber wraps the Google Speech-to-Text long running API.
// No retries here - retry policy, if any, belongs to the orchestrator.
type speechTranscriber struct {
	log      *logger.Logger
	client   *speech.Client
	bucket   string
	language string
}

// NewSpeechTranscriber builds a Transcriber on the Speech-to-Text API
func NewSpeechTranscriber(ctx context.Context, cfg *config.Config, log *logger.Logger) (Transcriber, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create speech client: %w", err)
	}

	return &speechTranscriber{
		log:      log.With("client", "speech"),
		client:   client,
		bucket:   cfg.GCSBucket,
		language: cfg.SpeechLanguage,
	}, nil
}

func (t *speechTranscriber) Close() error {
	return t.client.Close()
}

// Transcribe runs long-running recognition against the stored object.
// Speech reads straight from GCS, so the public URL is mapped back to a
// gs:// URI first.
func (t *speechTranscriber) Transcribe(ctx context.Context, videoURL string) (string, error) {
	uri, err := t.objectURI(videoURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrTranscriptionUnavailable, err)
	}

	req := &speechpb.LongRunningRecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			LanguageCode:               t.language,
			EnableAutomaticPunctuation: true,
			Encoding:                   speechpb.RecognitionConfig_ENCODING_UNSPECIFIED,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Uri{Uri: uri},
		},
	}

	op, err := t.client.LongRunningRecognize(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%w: longrunningrecognize: %v", models.ErrTranscriptionUnavailable, err)
	}
	resp, err := op.Wait(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: wait: %v", models.ErrTranscriptionUnavailable, err)
	}

	// concatenate the top alternative of every result; timestamps and
	// confidence are best-effort extras downstream stages don't need
	var full strings.Builder
	for _, r := range resp.GetResults() {
		alts := r.GetAlternatives()
		if len(alts) == 0 {
			continue
		}
		text := strings.TrimSpace(alts[0].GetTranscript())
		if text == "" {
			continue
		}
		if full.Len() > 0 {
			full.WriteString(" ")
		}
		full.WriteString(text)
	}

	return full.String(), nil
}

// objectURI converts the stored video's public URL into gs://bucket/key
func (t *speechTranscriber) objectURI(videoURL string) (string, error) {
	if strings.HasPrefix(videoURL, "gs://") {
		return videoURL, nil
	}

	u, err := url.Parse(videoURL)
	if err != nil {
		return "", fmt.Errorf("parse video url %q: %w", videoURL, err)
	}

	key := strings.TrimPrefix(u.Path, "/")
	if u.Host == "storage.googleapis.com" {
		// path already carries the bucket: /bucket/key
		return "gs://" + key, nil
	}
	// CDN urls carry only the key
	return fmt.Sprintf("gs://%s/%s", t.bucket, key), nil
}
