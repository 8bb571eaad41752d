package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/refund-audit/constants"
	"github.com/joseph-ayodele/refund-audit/internal/record"
)

// Extractor implements VisionExtractor on top of a Completer.
type Extractor struct {
	completer Completer
	maxMB     int
	logger    *slog.Logger
}

// NewExtractor builds an extractor. A nil completer means no API key is
// configured: every call logs a warning and returns no items.
func NewExtractor(c Completer, maxMB int, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if maxMB <= 0 {
		maxMB = constants.MaxVisionMBDefault
	}
	return &Extractor{completer: c, maxMB: maxMB, logger: logger}
}

var _ VisionExtractor = (*Extractor)(nil)

func (e *Extractor) ExtractItems(ctx context.Context, imagePath string) ([]record.AIItem, []byte, error) {
	rid := uuid.New().String()
	start := time.Now()

	if e.completer == nil {
		e.logger.Warn("llm.vision.no_api_key", "req_id", rid, "path", imagePath)
		return nil, nil, nil
	}

	dataURL, err := readAsDataURL(imagePath, e.maxMB)
	if err != nil {
		e.logger.Warn("llm.vision.image_skipped", "req_id", rid, "path", imagePath, "error", err)
		return nil, nil, fmt.Errorf("prepare image: %w", err)
	}

	e.logger.Info("llm.vision.start", "req_id", rid, "path", imagePath, "data_url_bytes", len(dataURL))
	content, err := e.completer.Complete(ctx, ItemsPrompt, dataURL)
	if err != nil {
		if IsQuotaError(err) {
			e.logger.Warn("llm.vision.quota_exceeded", "req_id", rid, "error", err,
				"elapsed_ms", time.Since(start).Milliseconds())
		} else {
			e.logger.Error("llm.vision.api_error", "req_id", rid, "error", err,
				"elapsed_ms", time.Since(start).Milliseconds())
		}
		return nil, nil, fmt.Errorf("vision request: %w", err)
	}

	body := Unfence(content)
	items, perr := ParseItems(body)
	raw := []byte(body)
	if perr != nil && errors.Is(perr, ErrNotJSON) {
		e.logger.Warn("llm.vision.scraped", "req_id", rid, "error", perr, "items", len(items))
		raw = SanitizeItems(items)
	} else if verr := ValidateItems(raw); verr != nil {
		e.logger.Warn("llm.vision.schema_mismatch", "req_id", rid, "error", verr)
	}

	e.logger.Info("llm.vision.ok", "req_id", rid, "items", len(items),
		"elapsed_ms", time.Since(start).Milliseconds())
	return items, raw, nil
}
