package core

import (
	"context"

	"github.com/pkg/errors"
)

// ErrLLMDisabled is returned by LLM services that have no API credentials.
var ErrLLMDisabled = errors.New("language model not configured")

type (
	// ChatRequest is one system/user prompt pair sent to a chat model.
	ChatRequest struct {
		System string
		User   string
		// JSON asks the model for a single JSON object (response_format: json_object).
		JSON        bool
		Model       string // optional; the service default is used when empty
		Temperature float32
		MaxTokens   int
	}

	// LLMService is any service that can answer chat prompts.
	LLMService interface {
		Complete(ctx context.Context, req ChatRequest) (string, error)
		// Transcribe returns the text found in an image.
		Transcribe(ctx context.Context, image []byte, mimeType string) (string, error)
	}
)

// AnalysisErrorSummary is the summary of the fallback analysis returned when a model answer is unusable.
func AnalysisErrorSummary(err error) string {
	switch {
	case err == nil:
		return "Analysis Error: the document could not be analysed. Please try again later."
	case errors.Cause(err) == ErrLLMDisabled:
		return "Analysis Error: AI analysis is not available right now. Please try again later."
	case errors.Cause(err) == context.DeadlineExceeded:
		return "Analysis Error: the analysis took too long. Please try again later."
	}
	return "Analysis Error: the document could not be analysed automatically. Please try again later."
}
