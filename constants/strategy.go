package constants

// Strategy names one extraction method. Stable values, logged and persisted.
type Strategy string

const (
	StrategyAIVision    Strategy = "AI_VISION"
	StrategyDirect      Strategy = "DIRECT"
	StrategyTrainedOCR  Strategy = "TRAINED_OCR"
	StrategyFullOCR     Strategy = "FULL_OCR"
	StrategyQuickOCR    Strategy = "QUICK_OCR"
	StrategyPlaceholder Strategy = "PLACEHOLDER"

	// Non-image parsers used by the intake pipeline.
	StrategyAuditLog    Strategy = "AS400_LOG"
	StrategyPDFKeyValue Strategy = "PDF_KEY_VALUE"
	StrategyTextPattern Strategy = "TEXT_PATTERN"
)

// MessageLevel mirrors the flash levels shown to a reviewer.
type MessageLevel string

const (
	LevelSuccess MessageLevel = "success"
	LevelWarning MessageLevel = "warning"
	LevelDanger  MessageLevel = "danger"
)

const (
	MsgNoItemsDetected = "No item numbers detected. Please try a clearer image."
	MsgProcessingError = "Error processing file"
)
