package pdfkv

import (
	"path/filepath"
	"reflect"
	"testing"

	"github.com/ledongthuc/pdf"
)

func TestParseText(t *testing.T) {
	text := "REFUND SLIP\nItem #: 1234567\nTender $ : 12.99- \nTime: 10:42:07\nno colon here\n"
	got := ParseText(text)
	want := map[string]string{"Item #": "1234567", "Tender $": "12.99-", "Time": "10:42:07"}
	if !reflect.DeepEqual(map[string]string(got), want) {
		t.Fatalf("expected %v got %v", want, got)
	}
	if !got.HasItemNumber() {
		t.Fatalf("expected an item number label")
	}
}

func glyphs(s string, x, y float64) []pdf.Text {
	out := make([]pdf.Text, 0, len(s))
	for i, r := range s {
		out = append(out, pdf.Text{S: string(r), X: x + float64(i)*5, Y: y, W: 5})
	}
	return out
}

func TestPageLines(t *testing.T) {
	var texts []pdf.Text
	// second row first, to check ordering by y
	texts = append(texts, glyphs("Qty:", 10, 680)...)
	texts = append(texts, glyphs("2", 60, 680.5)...)
	texts = append(texts, glyphs("Item:", 10, 700)...)
	texts = append(texts, glyphs("1234567", 40, 700)...)

	got := pageLines(texts)
	want := []string{"Item: 1234567", "Qty: 2"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %q got %q", want, got)
	}
}

func TestReadMissingFile(t *testing.T) {
	if _, err := ParseFile(filepath.Join(t.TempDir(), "none.pdf")); err == nil {
		t.Fatalf("expected error")
	}
}
