// Package pipeline is the intake dispatcher: it routes a saved file to the
// extractor for its format and turns the result into a reviewer message.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joseph-ayodele/refund-audit/constants"
	"github.com/joseph-ayodele/refund-audit/internal/auditlog"
	"github.com/joseph-ayodele/refund-audit/internal/cascade"
	"github.com/joseph-ayodele/refund-audit/internal/common"
	"github.com/joseph-ayodele/refund-audit/internal/ingest"
	"github.com/joseph-ayodele/refund-audit/internal/pattern"
	"github.com/joseph-ayodele/refund-audit/internal/pdfkv"
	"github.com/joseph-ayodele/refund-audit/internal/record"
)

// ImageExtractor is satisfied by *cascade.Orchestrator.
type ImageExtractor interface {
	Extract(ctx context.Context, path string) (cascade.Result, error)
}

// LogParser is satisfied by *auditlog.Parser.
type LogParser interface {
	ParseFile(path string) ([]auditlog.Entry, error)
}

// Outcome is what a reviewer sees after one upload.
type Outcome struct {
	Success  bool
	Records  []record.ItemRecord
	Source   constants.Strategy
	Message  string
	Level    constants.MessageLevel
	Attempts []cascade.Attempt
}

// Processor dispatches by file format.
type Processor struct {
	images  ImageExtractor
	logs    LogParser
	readPDF func(path string) (pdfkv.Document, error)
	logger  *slog.Logger
}

type Option func(*Processor)

// WithPDFReader replaces the PDF text reader.
func WithPDFReader(fn func(path string) (pdfkv.Document, error)) Option {
	return func(p *Processor) { p.readPDF = fn }
}

func WithLogger(l *slog.Logger) Option {
	return func(p *Processor) {
		if l != nil {
			p.logger = l
		}
	}
}

func NewProcessor(images ImageExtractor, logs LogParser, opts ...Option) *Processor {
	p := &Processor{
		images:  images,
		logs:    logs,
		readPDF: pdfkv.Read,
		logger:  slog.Default(),
	}
	for _, fn := range opts {
		fn(p)
	}
	return p
}

// ProcessFile extracts the records of the file at path. The returned error
// is non-nil only for precondition failures, unsupported formats,
// unreadable documents and the caller's context; the Outcome then carries
// the danger-level message.
func (p *Processor) ProcessFile(ctx context.Context, path string) (Outcome, error) {
	start := time.Now()
	log := p.logger
	if rid := common.RequestIDFromContext(ctx); rid != "" {
		log = log.With("request_id", rid)
	}
	if err := ingest.VerifyFile(path); err != nil {
		log.Warn("pipeline.precondition.failed", "path", path, "error", err)
		return failed(err), err
	}

	format := constants.MapExtToFormat(filepath.Ext(path))
	log.Info("pipeline.process.start", "path", path, "format", format)

	var (
		out Outcome
		err error
	)
	switch format {
	case constants.IMAGE:
		out, err = p.image(ctx, path)
	case constants.TEXT:
		out, err = p.text(path)
	case constants.PDF:
		out, err = p.pdf(path)
	default:
		err = fmt.Errorf("%w: unsupported file type %q", common.ErrInvalidInput, filepath.Ext(path))
	}
	if err != nil {
		log.Error("pipeline.process.failed", "path", path, "format", format, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		o := failed(err)
		o.Attempts = out.Attempts
		return o, err
	}

	log.Info("pipeline.process.done", "path", path, "format", format, "source", out.Source,
		"items", len(out.Records), "level", out.Level, "elapsed_ms", time.Since(start).Milliseconds())
	return out, nil
}

func (p *Processor) image(ctx context.Context, path string) (Outcome, error) {
	if p.images == nil {
		return Outcome{}, errors.New("no image extractor configured")
	}
	res, err := p.images.Extract(ctx, path)
	if err != nil {
		return Outcome{Attempts: res.Attempts}, err
	}
	out := Outcome{
		Success:  res.Success,
		Records:  res.Records,
		Source:   res.Strategy,
		Message:  res.Message,
		Level:    constants.LevelSuccess,
		Attempts: res.Attempts,
	}
	if res.Strategy == constants.StrategyPlaceholder {
		out.Message = constants.MsgNoItemsDetected
		out.Level = constants.LevelWarning
	}
	return out, nil
}

func (p *Processor) text(path string) (Outcome, error) {
	if p.logs != nil {
		entries, err := p.logs.ParseFile(path)
		if err != nil {
			return Outcome{}, err
		}
		if recs := record.FromSources(entries, 0); len(recs) > 0 {
			return found(recs, constants.StrategyAuditLog, filepath.Base(path)), nil
		}
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Outcome{}, fmt.Errorf("read text: %w", err)
	}
	return found(pattern.Extract(string(b)), constants.StrategyTextPattern, filepath.Base(path)), nil
}

func (p *Processor) pdf(path string) (Outcome, error) {
	doc, err := p.readPDF(path)
	if err != nil {
		return Outcome{}, err
	}
	if doc.Values.HasItemNumber() {
		recs := record.FromSources([]record.KeyValues{doc.Values}, 0)
		return found(recs, constants.StrategyPDFKeyValue, filepath.Base(path)), nil
	}
	return found(pattern.Extract(doc.Text), constants.StrategyTextPattern, filepath.Base(path)), nil
}

func found(recs []record.ItemRecord, src constants.Strategy, name string) Outcome {
	if len(recs) == 0 {
		return Outcome{Source: src, Message: constants.MsgNoItemsDetected, Level: constants.LevelWarning}
	}
	return Outcome{
		Success: true,
		Records: recs,
		Source:  src,
		Message: fmt.Sprintf("Extracted %d item(s) from %s", len(recs), name),
		Level:   constants.LevelSuccess,
	}
}

func failed(err error) Outcome {
	return Outcome{
		Message: fmt.Sprintf("%s: %v", constants.MsgProcessingError, err),
		Level:   constants.LevelDanger,
	}
}
