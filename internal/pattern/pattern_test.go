package pattern

import (
	"reflect"
	"strings"
	"testing"

	"github.com/joseph-ayodele/refund-audit/internal/record"
)

func TestTierALabeledLine(t *testing.T) {
	text := "STORE 42 AUDIT\nDate: 03/15/24\nMember#: 1234567 WIDGET BLUE 19.99 10:42:07\n"
	got := Extract(text)
	if len(got) != 1 {
		t.Fatalf("expected 1 record got %d", len(got))
	}
	r := got[0]
	if r.ItemNumber != "1234567" || r.Price != "19.99" {
		t.Fatalf("unexpected record %+v", r)
	}
	if r.Description != "WIDGET BLUE" {
		t.Fatalf("expected description from between number and price got %q", r.Description)
	}
	if r.Date != "03/15/24" || r.Period != "P03" || r.Time != "10:42:07" {
		t.Fatalf("unexpected date/time/period %+v", r)
	}
}

func TestTierAItemNumberLength(t *testing.T) {
	text := "Member#: 123 Widget 19.99\nMember#: 1234567890123456 Gadget 5.00\nMember#: 2345678 Gizmo 7.25"
	got := Extract(text)
	if len(got) != 1 || got[0].ItemNumber != "2345678" {
		t.Fatalf("expected only 2345678 got %+v", got)
	}
	for _, m := range Matches(text) {
		if len(m.ItemNumber) < 6 || len(m.ItemNumber) > 12 {
			t.Fatalf("match with out-of-range item number %q", m.ItemNumber)
		}
	}
}

func TestTierAOperatorAndInlineDate(t *testing.T) {
	text := "Date: 01/02/24\nOperator ID: 7654321 Date: 11/30/23 5.00"
	got := Matches(text)
	if len(got) != 1 || got[0].Tier != record.TierLabeled {
		t.Fatalf("unexpected matches %+v", got)
	}
	if got[0].Date != "11/30/23" {
		t.Fatalf("expected in-line date got %q", got[0].Date)
	}
	r := Extract(text)[0]
	if r.Description != "Date: 11/30/23" && r.Description != "Item 7654321" {
		t.Fatalf("unexpected description %q", r.Description)
	}
}

func TestTierBNearestPrice(t *testing.T) {
	text := "Header\n1.00 some text 2345678 then 4.50 and more\n"
	got := Matches(text)
	if len(got) != 1 || got[0].Tier != record.TierLine {
		t.Fatalf("unexpected matches %+v", got)
	}
	if got[0].ItemNumber != "2345678" || got[0].Price != "4.50" {
		t.Fatalf("unexpected pairing %+v", got[0])
	}
}

func TestTierBIgnoresPriceDigitsAndShortLines(t *testing.T) {
	text := "1234567.89 paid here today ok\n3456789 4.00"
	got := Matches(text)
	for _, m := range got {
		if m.ItemNumber == "1234567" {
			t.Fatalf("digits of a price must not be an item number")
		}
	}
	// the short second line is skipped by tier B and picked up by tier C
	if len(got) != 1 || got[0].ItemNumber != "3456789" || got[0].Tier != record.TierBroadcast {
		t.Fatalf("unexpected matches %+v", got)
	}
}

func TestTierCBroadcastPairsByIndex(t *testing.T) {
	text := "2345678\n3456789\n9.99\n1.25\n12:00:01"
	got := Matches(text)
	if len(got) != 2 {
		t.Fatalf("expected 2 got %+v", got)
	}
	if got[0].Price != "9.99" || got[1].Price != "1.25" {
		t.Fatalf("unexpected pairing %+v", got)
	}
	if got[0].Time != "12:00:01" || got[1].Time != "" {
		t.Fatalf("unexpected times %+v", got)
	}
	if got := Matches("2345678 3456789 4567890\n9.99"); len(got) != 1 {
		t.Fatalf("expected pairing capped at price count got %d", len(got))
	}
}

func TestPlausibilityFilters(t *testing.T) {
	text := "7777777 20230415 0123456 12345678901 Register 5678901\n1.00 2.00 3.00 4.00 5.00"
	got := Candidates(text)
	want := []string{"7777777"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v got %v", want, got)
	}
	for _, r := range Extract(text) {
		if r.ItemNumber == "20230415" || r.ItemNumber == "0123456" {
			t.Fatalf("filtered number emitted: %s", r.ItemNumber)
		}
	}
}

func TestLooksLikeDate(t *testing.T) {
	if !looksLikeDate("19991231") || !looksLikeDate("20240101") {
		t.Fatalf("expected date shapes")
	}
	if looksLikeDate("21001301") || looksLikeDate("12345678") || looksLikeDate("2024011") {
		t.Fatalf("unexpected date shape")
	}
}

func TestIdempotentAndDeduplicated(t *testing.T) {
	text := strings.Repeat("Member#: 1234567 ITEM 1.99\n", 3) + "Member#: 2345678 OTHER 2.99"
	a := Extract(text)
	b := Extract(text)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("extraction not idempotent")
	}
	if len(a) != 2 {
		t.Fatalf("expected duplicates removed got %d", len(a))
	}
}

func TestReportDateFallback(t *testing.T) {
	text := "printed 04/01/2024\nsome line with 2345678 and 3.50 price\n"
	got := Extract(text)
	if len(got) != 1 || got[0].Date != "04/01/2024" || got[0].Period != "P04" {
		t.Fatalf("unexpected %+v", got)
	}
}

func TestEmptyText(t *testing.T) {
	if got := Extract(""); len(got) != 0 {
		t.Fatalf("expected nothing got %+v", got)
	}
}
