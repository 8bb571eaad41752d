package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/joseph-ayodele/refund-audit/constants"
	"github.com/joseph-ayodele/refund-audit/internal/common"
	"github.com/joseph-ayodele/refund-audit/internal/ocr"
	"github.com/joseph-ayodele/refund-audit/internal/ocr/libtess"
	"github.com/joseph-ayodele/refund-audit/internal/training"
)

func testConfig(t *testing.T) *common.Config {
	t.Helper()
	t.Setenv("OPENAI_API_KEY", "")
	cfg := common.LoadConfig()
	dir := t.TempDir()
	cfg.Training.Path = filepath.Join(dir, "trained.json")
	cfg.Export.Dir = filepath.Join(dir, "exports")
	cfg.LLM.APIKey = ""
	return cfg
}

func TestNewProcessesAuditLog(t *testing.T) {
	cfg := testConfig(t)
	a, err := New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer a.Close()

	line := []byte(strings.Repeat(" ", 90))
	for off, v := range map[int]string{0: "0001", 5: "0042", 10: "04172025", 46: "1234567", 59: "1", 67: "19.99", 80: "JDOE"} {
		copy(line[off:], v)
	}
	path := filepath.Join(t.TempDir(), "audit.txt")
	if err := os.WriteFile(path, append([]byte("HEADER\n"), line...), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	out, err := a.Processor.ProcessFile(context.Background(), path)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if out.Source != constants.StrategyAuditLog || len(out.Records) != 1 || out.Records[0].Period != "P04" {
		t.Fatalf("unexpected outcome %+v", out)
	}

	xlsx, err := a.Exporter.WriteRefundAuditLog(context.Background(), out.Records)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if filepath.Dir(xlsx) != cfg.Export.Dir {
		t.Fatalf("unexpected export path %s", xlsx)
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.OCR.Engine = "magic"
	if _, err := New(context.Background(), cfg, nil); !errors.Is(err, common.ErrInvalidInput) {
		t.Fatalf("expected config error got %v", err)
	}
}

func TestNewRecognizer(t *testing.T) {
	if _, ok := NewRecognizer(common.OCRConfig{Engine: "cli"}, nil).(*ocr.Tesseract); !ok {
		t.Fatalf("expected the CLI recognizer")
	}
	if _, ok := NewRecognizer(common.OCRConfig{Engine: "gosseract"}, nil).(*libtess.Recognizer); !ok {
		t.Fatalf("expected the libtesseract recognizer")
	}
}

func TestOpenTrainingStore(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	js, err := OpenTrainingStore(ctx, common.TrainingConfig{Backend: "json", Path: filepath.Join(dir, "c.json")}, nil)
	if err != nil {
		t.Fatalf("json: %v", err)
	}
	if _, ok := js.(*training.FileStore); !ok {
		t.Fatalf("expected a file store got %T", js)
	}
	sq, err := OpenTrainingStore(ctx, common.TrainingConfig{Backend: "sqlite", Path: filepath.Join(dir, "c.db")}, nil)
	if err != nil {
		t.Fatalf("sqlite: %v", err)
	}
	defer sq.Close()
	if _, ok := sq.(*training.SQLiteStore); !ok {
		t.Fatalf("expected a sqlite store got %T", sq)
	}
	if _, err := OpenTrainingStore(ctx, common.TrainingConfig{Backend: "redis"}, nil); !errors.Is(err, common.ErrInvalidInput) {
		t.Fatalf("expected invalid backend error got %v", err)
	}
}

func TestAuditLayout(t *testing.T) {
	l, err := AuditLayout(common.AuditLogConfig{MinLineLength: 40})
	if err != nil || l.MinLineLength != 40 || len(l.Columns) != 12 {
		t.Fatalf("unexpected default layout %+v, %v", l, err)
	}

	l, err = AuditLayout(common.AuditLogConfig{Layout: "Item#=0:7;Date=8:16;Qty=17:", MinLineLength: 10})
	if err != nil || len(l.Columns) != 3 {
		t.Fatalf("unexpected custom layout %+v, %v", l, err)
	}

	samples := filepath.Join(t.TempDir(), "samples.txt")
	if err := os.WriteFile(samples, []byte("1234567 04172025 3-\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := AuditLayout(common.AuditLogConfig{Layout: "Item#=0:7;Date=8:16;Qty=17:", MinLineLength: 10, SampleFile: samples}); err != nil {
		t.Fatalf("expected samples to fit: %v", err)
	}
	if _, err := AuditLayout(common.AuditLogConfig{Layout: "Item#=0:7;Date=9:17;Qty=17:", MinLineLength: 10, SampleFile: samples}); err == nil {
		t.Fatalf("expected shifted layout to be rejected")
	}
}
