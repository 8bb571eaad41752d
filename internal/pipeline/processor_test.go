package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/joseph-ayodele/refund-audit/constants"
	"github.com/joseph-ayodele/refund-audit/internal/auditlog"
	"github.com/joseph-ayodele/refund-audit/internal/cascade"
	"github.com/joseph-ayodele/refund-audit/internal/common"
	"github.com/joseph-ayodele/refund-audit/internal/pdfkv"
	"github.com/joseph-ayodele/refund-audit/internal/record"
)

type stubImages struct {
	res   cascade.Result
	err   error
	calls int
}

func (s *stubImages) Extract(context.Context, string) (cascade.Result, error) {
	s.calls++
	return s.res, s.err
}

func write(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}

func logLine(item, date, qty, tender string) string {
	b := []byte(strings.Repeat(" ", 90))
	for off, v := range map[int]string{0: "0001", 5: "0042", 10: date, 19: "TRK0000012345",
		33: "99887766", 46: item, 55: "0012", 59: qty, 67: tender, 76: "Y", 78: "N", 80: "JDOE"} {
		copy(b[off:], v)
	}
	return string(b)
}

func newProcessor(t *testing.T, images ImageExtractor, opts ...Option) *Processor {
	t.Helper()
	logs, err := auditlog.NewParser(auditlog.DefaultLayout(), nil)
	if err != nil {
		t.Fatalf("parser: %v", err)
	}
	return NewProcessor(images, logs, opts...)
}

func TestTextAuditLog(t *testing.T) {
	path := write(t, "audit.txt", "HEADER LINE\n"+logLine("1234567", "03152024", "3-", "12.99")+"\n")
	images := &stubImages{}
	out, err := newProcessor(t, images).ProcessFile(context.Background(), path)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if !out.Success || out.Source != constants.StrategyAuditLog || out.Level != constants.LevelSuccess {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if len(out.Records) != 1 {
		t.Fatalf("expected 1 record got %d", len(out.Records))
	}
	r := out.Records[0]
	if r.ItemNumber != "1234567" || r.Quantity != -3 || r.Period != "P03" || r.Price != "12.99" {
		t.Fatalf("unexpected record %+v", r)
	}
	if images.calls != 0 {
		t.Fatalf("image extractor called for a text file")
	}
}

func TestTextFallsBackToPattern(t *testing.T) {
	path := write(t, "notes.txt", "Member#: 1234567 Widget 19.99\n")
	out, err := newProcessor(t, nil).ProcessFile(context.Background(), path)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if out.Source != constants.StrategyTextPattern || len(out.Records) != 1 || out.Records[0].Price != "19.99" {
		t.Fatalf("unexpected outcome %+v", out)
	}
}

func TestTextWithNothingWarns(t *testing.T) {
	path := write(t, "empty.txt", "nothing to see here\n")
	out, err := newProcessor(t, nil).ProcessFile(context.Background(), path)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if out.Success || out.Level != constants.LevelWarning || out.Message != constants.MsgNoItemsDetected {
		t.Fatalf("unexpected outcome %+v", out)
	}
}

func TestImageOutcomes(t *testing.T) {
	path := write(t, "receipt.png", "not really a png")
	ok := &stubImages{res: cascade.Result{
		Success:  true,
		Records:  []record.ItemRecord{{ItemNumber: "1234567", Price: "1.00", Period: "P00", Quantity: 1}},
		Strategy: constants.StrategyAIVision,
		Message:  "Extracted 1 item(s) using AI_VISION",
	}}
	out, err := newProcessor(t, ok).ProcessFile(context.Background(), path)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if out.Source != constants.StrategyAIVision || out.Level != constants.LevelSuccess || len(out.Records) != 1 {
		t.Fatalf("unexpected outcome %+v", out)
	}

	ph := &stubImages{res: cascade.Result{
		Success:  true,
		Records:  []record.ItemRecord{{ItemNumber: record.PlaceholderItemNumber}},
		Strategy: constants.StrategyPlaceholder,
	}}
	out, err = newProcessor(t, ph).ProcessFile(context.Background(), path)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if !out.Success || out.Level != constants.LevelWarning || out.Message != constants.MsgNoItemsDetected || len(out.Records) != 1 {
		t.Fatalf("unexpected placeholder outcome %+v", out)
	}

	canceled := &stubImages{err: context.Canceled}
	out, err = newProcessor(t, canceled).ProcessFile(context.Background(), path)
	if !errors.Is(err, context.Canceled) || out.Level != constants.LevelDanger {
		t.Fatalf("expected danger outcome on cancellation got %+v, %v", out, err)
	}
	if !strings.HasPrefix(out.Message, constants.MsgProcessingError+": ") {
		t.Fatalf("unexpected message %q", out.Message)
	}
}

func TestPDF(t *testing.T) {
	path := write(t, "form.pdf", "%PDF-1.4")
	kv := func(string) (pdfkv.Document, error) {
		text := "Item Number: 7654321\nPrice: $4.50\nQty: 2\n"
		return pdfkv.Document{Pages: 1, Text: text, Values: pdfkv.ParseText(text)}, nil
	}
	out, err := newProcessor(t, nil, WithPDFReader(kv)).ProcessFile(context.Background(), path)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if out.Source != constants.StrategyPDFKeyValue || len(out.Records) != 1 {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if r := out.Records[0]; r.ItemNumber != "7654321" || r.Price != "4.50" || r.Quantity != 2 {
		t.Fatalf("unexpected record %+v", r)
	}

	free := func(string) (pdfkv.Document, error) {
		text := "REFUND 1234567 Widget 19.99\n"
		return pdfkv.Document{Pages: 1, Text: text, Values: pdfkv.ParseText(text)}, nil
	}
	out, err = newProcessor(t, nil, WithPDFReader(free)).ProcessFile(context.Background(), path)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if out.Source != constants.StrategyTextPattern || len(out.Records) != 1 || out.Records[0].ItemNumber != "1234567" {
		t.Fatalf("unexpected outcome %+v", out)
	}
}

func TestPreconditionsAndFormats(t *testing.T) {
	p := newProcessor(t, &stubImages{})
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.png")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cases := []struct {
		path string
		want error
	}{
		{"", common.ErrNoFile},
		{filepath.Join(dir, "missing.png"), common.ErrFileNotFound},
		{empty, common.ErrEmptyFile},
		{write(t, "sheet.csv", "a,b"), common.ErrInvalidInput},
	}
	for _, tc := range cases {
		out, err := p.ProcessFile(context.Background(), tc.path)
		if !errors.Is(err, tc.want) {
			t.Fatalf("ProcessFile(%q): expected %v got %v", tc.path, tc.want, err)
		}
		if out.Level != constants.LevelDanger || out.Success {
			t.Fatalf("expected danger outcome got %+v", out)
		}
	}
}
