package cascade

import (
	"log/slog"

	"github.com/joseph-ayodele/refund-audit/constants"
	"github.com/joseph-ayodele/refund-audit/internal/common"
	"github.com/joseph-ayodele/refund-audit/internal/llm"
	"github.com/joseph-ayodele/refund-audit/internal/ocr"
)

// Engines are the collaborators of the standard cascade. A nil field
// drops the steps that need it.
type Engines struct {
	Vision     llm.VisionExtractor
	Direct     DirectExtractor
	Trained    TrainedScanner
	Recognizer ocr.Recognizer
	Logger     *slog.Logger
}

// Steps builds the standard order: vision AI, direct heuristics, trained
// OCR (once the corpus learned something), full OCR, and quick OCR only
// after full OCR timed out.
func Steps(cfg common.ExtractionConfig, e Engines) []Step {
	var steps []Step
	if e.Vision != nil {
		steps = append(steps, Step{Strategy: NewAIStrategy(e.Vision), Timeout: cfg.AITimeout})
	}
	if e.Direct != nil {
		steps = append(steps, Step{Strategy: NewDirectStrategy(e.Direct), Timeout: cfg.DirectTimeout})
	}
	if e.Trained != nil {
		steps = append(steps, Step{
			Strategy: NewTrainedStrategy(e.Trained),
			Timeout:  cfg.TrainedTimeout,
			RunIf:    TrainedEnabled(e.Trained),
		})
	}
	if e.Recognizer != nil {
		steps = append(steps,
			Step{Strategy: NewFullOCRStrategy(e.Recognizer, e.Logger), Timeout: cfg.FullOCRTimeout},
			Step{
				Strategy: NewQuickOCRStrategy(e.Recognizer),
				Timeout:  cfg.QuickOCRTimeout,
				RunIf:    AfterTimeout(constants.StrategyFullOCR),
			},
		)
	}
	return steps
}
