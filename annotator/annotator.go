package annotator

import "context"

// Client abstracts the image-understanding model used by the pipeline.
// Implementations must be concurrency-safe if used across goroutines.
type Client interface {
	// AssessImage takes raw image bytes, their mime type and the submitted
	// coordinates, and returns the model's text response, expected to be a
	// single JSON object per the assessment schema.
	AssessImage(ctx context.Context, imageData []byte, mimeType string, latitude, longitude float64) (string, error)
	// SourceName returns a short provider label for logging (e.g., "Gemini").
	SourceName() string
}
