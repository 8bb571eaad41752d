// Package record holds the canonical item shape every extraction strategy
// converges on, and the source-specific shapes that map into it.
package record

import (
	"regexp"
	"strings"
)

// ItemRecord is one extracted transaction line.
type ItemRecord struct {
	ItemNumber  string   `json:"item_number"`
	Price       string   `json:"price"`
	Period      string   `json:"period"`
	Date        string   `json:"date"`
	Time        string   `json:"time"`
	Description string   `json:"description"`
	Quantity    int      `json:"quantity"`
	Exception   string   `json:"exception"`
	Department  string   `json:"department,omitempty"`
	Confidence  *float64 `json:"confidence,omitempty"`
}

// ConfidenceOr returns the record confidence, or def when the strategy did not set one.
func (r ItemRecord) ConfidenceOr(def float64) float64 {
	if r.Confidence == nil {
		return def
	}
	return *r.Confidence
}

// Conf is a helper for building records with a confidence.
func Conf(v float64) *float64 { return &v }

var periodRe = regexp.MustCompile(`^P(0\d|1[0-2])$`)

// Normalize applies the canonical defaults. ok is false when the record has no
// item number and must be discarded.
func Normalize(r ItemRecord) (ItemRecord, bool) {
	r.ItemNumber = strings.TrimSpace(r.ItemNumber)
	if !ItemNumberLength(r.ItemNumber) {
		return r, false
	}
	r.Price = NormalizePrice(r.Price)
	if !periodRe.MatchString(r.Period) {
		r.Period = DerivePeriod(r.Date)
	}
	if strings.TrimSpace(r.Description) == "" {
		r.Description = "Item " + r.ItemNumber
	}
	if r.Quantity == 0 {
		r.Quantity = 1
	}
	return r, true
}

// NormalizeAll normalizes a batch, drops records without item numbers and
// caps the result at max (max <= 0 means no cap).
func NormalizeAll(in []ItemRecord, max int) []ItemRecord {
	out := make([]ItemRecord, 0, len(in))
	for _, r := range in {
		n, ok := Normalize(r)
		if !ok {
			continue
		}
		out = append(out, n)
		if max > 0 && len(out) == max {
			break
		}
	}
	return out
}

// FromSources maps and normalizes a batch of source shapes.
func FromSources[S Source](srcs []S, max int) []ItemRecord {
	recs := make([]ItemRecord, 0, len(srcs))
	for _, s := range srcs {
		recs = append(recs, s.ItemRecord())
	}
	return NormalizeAll(recs, max)
}
