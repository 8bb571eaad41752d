// Package app wires the extraction stack from a common.Config. Binaries
// build one App and use its components.
package app

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joseph-ayodele/refund-audit/internal/auditlog"
	"github.com/joseph-ayodele/refund-audit/internal/cascade"
	"github.com/joseph-ayodele/refund-audit/internal/common"
	"github.com/joseph-ayodele/refund-audit/internal/direct"
	"github.com/joseph-ayodele/refund-audit/internal/export"
	"github.com/joseph-ayodele/refund-audit/internal/llm"
	"github.com/joseph-ayodele/refund-audit/internal/llm/openai"
	"github.com/joseph-ayodele/refund-audit/internal/ocr"
	"github.com/joseph-ayodele/refund-audit/internal/ocr/libtess"
	"github.com/joseph-ayodele/refund-audit/internal/pipeline"
	"github.com/joseph-ayodele/refund-audit/internal/training"
)

type App struct {
	Config     *common.Config
	Logger     *slog.Logger
	Recognizer ocr.Recognizer
	Training   training.Store
	Trainer    *training.Trainer
	Scanner    *training.Scanner
	Cascade    *cascade.Orchestrator
	Logs       *auditlog.Parser
	Processor  *pipeline.Processor
	Exporter   *export.Service
}

// New validates cfg and builds every component. Close releases the
// training store.
func New(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	rec := NewRecognizer(cfg.OCR, logger)
	store, err := OpenTrainingStore(ctx, cfg.Training, logger)
	if err != nil {
		return nil, err
	}
	layout, err := AuditLayout(cfg.AuditLog)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	logs, err := auditlog.NewParser(layout, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	scanner := training.NewScanner(store, rec, training.WithLogger(logger))
	orch := cascade.New(cascade.Steps(cfg.Extraction, cascade.Engines{
		Vision:     NewVision(cfg.LLM, logger),
		Direct:     direct.New(direct.WithPlaceholder(cfg.Extraction.DirectPlaceholder), direct.WithLogger(logger)),
		Trained:    scanner,
		Recognizer: rec,
		Logger:     logger,
	}), cascade.WithMaxItems(cfg.Extraction.MaxItems), cascade.WithLogger(logger))

	return &App{
		Config:     cfg,
		Logger:     logger,
		Recognizer: rec,
		Training:   store,
		Trainer:    training.NewTrainer(store, rec, training.WithLogger(logger)),
		Scanner:    scanner,
		Cascade:    orch,
		Logs:       logs,
		Processor:  pipeline.NewProcessor(orch, logs, pipeline.WithLogger(logger)),
		Exporter:   export.NewService(cfg.Export.Dir, logger),
	}, nil
}

func (a *App) Close() error {
	if a.Training == nil {
		return nil
	}
	return a.Training.Close()
}

// NewRecognizer picks the OCR engine: the tesseract binary by default, or
// libtesseract in process for "gosseract".
func NewRecognizer(cfg common.OCRConfig, logger *slog.Logger) ocr.Recognizer {
	if cfg.Engine == "gosseract" {
		return libtess.New(libtess.Config{Lang: cfg.Language, TessdataDir: cfg.TessdataDir})
	}
	return ocr.NewTesseract(ocr.Config{
		Tesseract:        cfg.Tesseract,
		Lang:             cfg.Language,
		TessdataDir:      cfg.TessdataDir,
		ArtifactCacheDir: cfg.ArtifactCacheDir,
		KeepArtifacts:    cfg.KeepArtifacts,
	}, logger)
}

// NewVision returns the vision extractor. Without an API key the extractor
// is still returned and yields no items, so the cascade moves on.
func NewVision(cfg common.LLMConfig, logger *slog.Logger) *llm.Extractor {
	client, err := openai.NewClient(openai.Config{
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.BaseURL,
		Model:       cfg.Model,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
		Timeout:     cfg.Timeout,
	}, logger)
	if err != nil {
		logger.Warn("llm.disabled", "error", err)
		return llm.NewExtractor(nil, 0, logger)
	}
	return llm.NewExtractor(client, 0, logger)
}

func OpenTrainingStore(ctx context.Context, cfg common.TrainingConfig, logger *slog.Logger) (training.Store, error) {
	switch cfg.Backend {
	case "sqlite":
		return training.OpenSQLite(ctx, cfg.Path, logger)
	case "json", "":
		return training.NewFileStore(cfg.Path, logger), nil
	default:
		return nil, fmt.Errorf("%w: training backend %q", common.ErrInvalidInput, cfg.Backend)
	}
}

// AuditLayout parses the configured layout, or takes the built-in one, and
// checks it against the sample file when one is configured.
func AuditLayout(cfg common.AuditLogConfig) (auditlog.Layout, error) {
	layout := auditlog.DefaultLayout()
	if cfg.Layout != "" {
		l, err := auditlog.ParseLayout(cfg.Layout, cfg.MinLineLength)
		if err != nil {
			return auditlog.Layout{}, fmt.Errorf("AUDITLOG_LAYOUT: %w", err)
		}
		layout = l
	} else if cfg.MinLineLength > 0 {
		layout.MinLineLength = cfg.MinLineLength
	}
	if cfg.SampleFile == "" {
		return layout, nil
	}
	samples, err := readLines(cfg.SampleFile)
	if err != nil {
		return auditlog.Layout{}, fmt.Errorf("AUDITLOG_SAMPLE_FILE: %w", err)
	}
	if err := layout.Check(samples); err != nil {
		return auditlog.Layout{}, fmt.Errorf("audit log layout does not fit samples: %w", err)
	}
	return layout, nil
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		out = append(out, sc.Text())
	}
	return out, sc.Err()
}

// NewLogger builds the process logger: "json" or text on stderr.
func NewLogger(format string, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
