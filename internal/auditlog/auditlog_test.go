package auditlog

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/joseph-ayodele/refund-audit/internal/common"
	"github.com/joseph-ayodele/refund-audit/internal/record"
)

// line places values at byte offsets of a blank 90 character line.
func line(fields map[int]string) string {
	b := []byte(strings.Repeat(" ", 90))
	for off, v := range fields {
		copy(b[off:], v)
	}
	return string(b)
}

func sampleLine(item, date, qty, tender string) string {
	return line(map[int]string{
		0:  "0001",
		5:  "0042",
		10: date,
		19: "TRK0000012345",
		33: "99887766",
		46: item,
		55: "0012",
		59: qty,
		67: tender,
		76: "Y",
		78: "N",
		80: "JDOE",
	})
}

func TestParseSkipsOverlongLines(t *testing.T) {
	text := sampleLine("1234567", "03152024", "1", "12.99") + "\n" +
		strings.Repeat("x", 2*maxLineBytes) + "\n" +
		sampleLine("7654321", "04012024", "2", "5.00")
	p, err := NewParser(DefaultLayout(), nil)
	if err != nil {
		t.Fatalf("parser: %v", err)
	}
	entries, err := p.Parse(strings.NewReader(text))
	if err != nil {
		t.Fatalf("expected over-long line to be skipped got %v", err)
	}
	if len(entries) != 2 || entries[0].Item != "1234567" || entries[1].Item != "7654321" {
		t.Fatalf("unexpected entries %+v", entries)
	}
	if entries[1].LineNo != 3 || entries[1].Period != "P04" {
		t.Fatalf("expected line 3 in P04 got %+v", entries[1])
	}
}

func TestParseDefaultLayout(t *testing.T) {
	text := "AUDIT REPORT HEADER\n\n" +
		sampleLine("1234567", "03152024", "1-", "12.99") + "\r\n" +
		sampleLine("7654321", "13012024", "2", "5.00") + "\n" +
		"short trailer\n"
	p, err := NewParser(DefaultLayout(), nil)
	if err != nil {
		t.Fatalf("parser: %v", err)
	}
	entries, err := p.Parse(strings.NewReader(text))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries got %d", len(entries))
	}
	e := entries[0]
	if e.RecNo != "0001" || e.TrnNo != "0042" || e.Date != "03152024" || e.Item != "1234567" {
		t.Fatalf("unexpected entry %+v", e)
	}
	if e.Dept != "0012" || e.Qty != "1-" || e.Tender != "12.99" || e.Saleable != "Y" || e.Refund != "N" || e.Auditor != "JDOE" {
		t.Fatalf("unexpected entry %+v", e)
	}
	if e.Period != "P03" || e.LineNo != 3 {
		t.Fatalf("unexpected period/line %s/%d", e.Period, e.LineNo)
	}
	if entries[1].Period != "P00" {
		t.Fatalf("month 13 should map to P00 got %s", entries[1].Period)
	}

	r, ok := record.Normalize(e.ItemRecord())
	if !ok {
		t.Fatalf("expected record")
	}
	if r.ItemNumber != "1234567" || r.Price != "12.99" || r.Quantity != -1 || r.Department != "0012" || r.Period != "P03" {
		t.Fatalf("unexpected record %+v", r)
	}
}

func TestParseNoQualifyingLines(t *testing.T) {
	p, _ := NewParser(DefaultLayout(), nil)
	entries, err := p.Parse(strings.NewReader("a\nb\n\n"))
	if err != nil || len(entries) != 0 {
		t.Fatalf("expected empty result got %v %v", entries, err)
	}
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.txt")
	if err := os.WriteFile(path, []byte(sampleLine("2345678", "01012024", "1", "3.00")+"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	entries, err := ParseFile(path)
	if err != nil || len(entries) != 1 || entries[0].Item != "2345678" {
		t.Fatalf("unexpected %v %v", entries, err)
	}
	if _, err := ParseFile(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Fatalf("expected I/O error")
	}
}

func TestParseLayoutRoundTrip(t *testing.T) {
	def := DefaultLayout()
	l, err := ParseLayout(def.String(), DefaultMinLineLength)
	if err != nil {
		t.Fatalf("parse layout: %v", err)
	}
	if l.String() != def.String() {
		t.Fatalf("round trip mismatch:\n%s\n%s", l.String(), def.String())
	}
	if l.Columns[len(l.Columns)-1].End != ToEnd {
		t.Fatalf("expected open-ended Auditor column")
	}
}

func TestParseLayoutErrors(t *testing.T) {
	cases := []string{
		"Item#=46",
		"Item#=x:55",
		"Item#=46:40",
		"Bogus=0:4;Item#=46:55",
		"Item#=46:55;Item#=1:2",
		"Date=10:18",
		"Item#=-1:4",
	}
	for _, c := range cases {
		if _, err := ParseLayout(c, 70); !errors.Is(err, common.ErrInvalidInput) {
			t.Fatalf("ParseLayout(%q): expected invalid input got %v", c, err)
		}
	}
	if _, err := ParseLayout("Item#=0:9", 0); err == nil {
		t.Fatalf("expected error for zero minimum line length")
	}
}

func TestLayoutCheck(t *testing.T) {
	samples := []string{"header", sampleLine("1234567", "03152024", "1-", "12.99")}
	if err := DefaultLayout().Check(samples); err != nil {
		t.Fatalf("default layout should accept sample: %v", err)
	}

	shifted, err := ParseLayout("Item#=40:50;Date=10:18;Qty=59:62", 70)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	err = shifted.Check(samples)
	if err == nil || !errors.Is(err, common.ErrValidation) || !strings.Contains(err.Error(), "line 2") {
		t.Fatalf("expected mismatch on line 2 got %v", err)
	}

	if err := DefaultLayout().Check([]string{"short"}); err == nil {
		t.Fatalf("expected error when no sample qualifies")
	}
}
