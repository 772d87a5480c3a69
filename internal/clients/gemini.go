package clients

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/tutorlink/lesson-pipeline-backend/internal/config"
	"github.com/tutorlink/lesson-pipeline-backend/internal/logger"
	"github.com/tutorlink/lesson-pipeline-backend/internal/models"
)

const summaryPrompt = `Summarize the following lecture transcription in a concise way, highlighting the main points:

%s`

const notesPrompt = `Create detailed study notes from the following lecture transcription. Include:
- Key concepts
- Important points
- Main takeaways
- Any technical terms and their explanations

Transcription:
%s`

// GeneratedContent is what one generation run produces
type GeneratedContent struct {
	Summary string
	Notes   string
}

// Generator turns a transcript into a summary and study notes.
// Content quality is the model's problem - callers only check presence.
type Generator interface {
	Generate(ctx context.Context, transcript string) (*GeneratedContent, error)
}

type geminiGenerator struct {
	log    *logger.Logger
	client *genai.Client
	model  string
}

// NewGeminiGenerator builds a Generator on the Gemini API
func NewGeminiGenerator(ctx context.Context, cfg *config.Config, log *logger.Logger) (Generator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &geminiGenerator{
		log:    log.With("client", "gemini"),
		client: client,
		model:  cfg.GeminiModel,
	}, nil
}

func (g *geminiGenerator) Generate(ctx context.Context, transcript string) (*GeneratedContent, error) {
	summary, err := g.complete(ctx, fmt.Sprintf(summaryPrompt, transcript))
	if err != nil {
		return nil, fmt.Errorf("%w: summary: %v", models.ErrGenerationFailed, err)
	}

	notes, err := g.complete(ctx, fmt.Sprintf(notesPrompt, transcript))
	if err != nil {
		return nil, fmt.Errorf("%w: notes: %v", models.ErrGenerationFailed, err)
	}

	if summary == "" || notes == "" {
		return nil, fmt.Errorf("%w: empty model response", models.ErrGenerationFailed)
	}

	return &GeneratedContent{Summary: summary, Notes: notes}, nil
}

// complete sends one prompt and flattens the first candidate into text
func (g *geminiGenerator) complete(ctx context.Context, prompt string) (string, error) {
	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return "", fmt.Errorf("empty response")
	}

	var text strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		if part.Text != "" {
			text.WriteString(part.Text)
		}
	}
	return strings.TrimSpace(text.String()), nil
}
