package cascade

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/refund-audit/constants"
	"github.com/joseph-ayodele/refund-audit/internal/llm"
	"github.com/joseph-ayodele/refund-audit/internal/ocr"
	"github.com/joseph-ayodele/refund-audit/internal/pattern"
	"github.com/joseph-ayodele/refund-audit/internal/preprocess"
	"github.com/joseph-ayodele/refund-audit/internal/record"
)

// QuickCandidateConfidence is attached to bare numbers read by quick OCR
// when the text carries no prices to pair them with.
const QuickCandidateConfidence = 0.4

// StrategyFunc adapts a function to Strategy.
type StrategyFunc struct {
	name constants.Strategy
	fn   func(ctx context.Context, path string) ([]record.ItemRecord, error)
}

func NewStrategyFunc(name constants.Strategy, fn func(ctx context.Context, path string) ([]record.ItemRecord, error)) StrategyFunc {
	return StrategyFunc{name: name, fn: fn}
}

func (s StrategyFunc) Name() constants.Strategy { return s.name }

func (s StrategyFunc) Extract(ctx context.Context, path string) ([]record.ItemRecord, error) {
	return s.fn(ctx, path)
}

func toRecords[S record.Source](srcs []S) []record.ItemRecord {
	out := make([]record.ItemRecord, 0, len(srcs))
	for _, s := range srcs {
		out = append(out, s.ItemRecord())
	}
	return out
}

func NewAIStrategy(v llm.VisionExtractor) Strategy {
	return NewStrategyFunc(constants.StrategyAIVision, func(ctx context.Context, path string) ([]record.ItemRecord, error) {
		items, _, err := v.ExtractItems(ctx, path)
		if err != nil {
			return nil, err
		}
		return toRecords(items), nil
	})
}

// DirectExtractor is satisfied by *direct.Detector.
type DirectExtractor interface {
	Extract(ctx context.Context, path string) ([]record.DirectMatch, error)
}

func NewDirectStrategy(d DirectExtractor) Strategy {
	return NewStrategyFunc(constants.StrategyDirect, func(ctx context.Context, path string) ([]record.ItemRecord, error) {
		m, err := d.Extract(ctx, path)
		if err != nil {
			return nil, err
		}
		return toRecords(m), nil
	})
}

// TrainedScanner is satisfied by *training.Scanner.
type TrainedScanner interface {
	Enabled(ctx context.Context) bool
	Scan(ctx context.Context, path string) ([]record.TrainedMatch, error)
}

func NewTrainedStrategy(s TrainedScanner) Strategy {
	return NewStrategyFunc(constants.StrategyTrainedOCR, func(ctx context.Context, path string) ([]record.ItemRecord, error) {
		m, err := s.Scan(ctx, path)
		if err != nil {
			return nil, err
		}
		return toRecords(m), nil
	})
}

// TrainedEnabled runs the trained step only once the corpus has learned a
// region or a pattern.
func TrainedEnabled(s TrainedScanner) func(context.Context, []Attempt) bool {
	return func(ctx context.Context, _ []Attempt) bool { return s.Enabled(ctx) }
}

func NewFullOCRStrategy(rec ocr.Recognizer, logger *slog.Logger) Strategy {
	return NewStrategyFunc(constants.StrategyFullOCR, func(ctx context.Context, path string) ([]record.ItemRecord, error) {
		img, err := preprocess.Load(path)
		if err != nil {
			return nil, fmt.Errorf("load image: %w", err)
		}
		text, err := ocr.FullPass(ctx, rec, img, logger)
		if err != nil {
			return nil, err
		}
		return pattern.Extract(text), nil
	})
}

// NewQuickOCRStrategy reads digits only. The pattern extractor runs first;
// if it pairs nothing, each plausible bare number becomes a record.
func NewQuickOCRStrategy(rec ocr.Recognizer) Strategy {
	return NewStrategyFunc(constants.StrategyQuickOCR, func(ctx context.Context, path string) ([]record.ItemRecord, error) {
		img, err := preprocess.Load(path)
		if err != nil {
			return nil, fmt.Errorf("load image: %w", err)
		}
		text, err := ocr.QuickPass(ctx, rec, img)
		if err != nil {
			return nil, err
		}
		if recs := pattern.Extract(text); len(recs) > 0 {
			return recs, nil
		}
		var out []record.ItemRecord
		for _, c := range pattern.Candidates(text) {
			out = append(out, record.ItemRecord{
				ItemNumber:  c,
				Description: "Quick OCR: " + c,
				Confidence:  record.Conf(QuickCandidateConfidence),
			})
		}
		return out, nil
	})
}
