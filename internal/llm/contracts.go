package llm

import (
	"context"

	"github.com/joseph-ayodele/refund-audit/internal/record"
)

// Completer sends one prompt plus an image data URL to a vision model and
// returns the raw message content.
type Completer interface {
	Complete(ctx context.Context, prompt, imageDataURL string) (string, error)
}

// VisionExtractor is the interface the extraction cascade depends on. The
// returned bytes are the model's JSON without code fences, or the scraped
// items re-encoded when the model did not answer with JSON.
type VisionExtractor interface {
	ExtractItems(ctx context.Context, imagePath string) ([]record.AIItem, []byte, error)
}
