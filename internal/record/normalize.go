package record

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

var (
	itemNumberStrip = regexp.MustCompile(`[^A-Za-z0-9\-]`)
	quantityRe      = regexp.MustCompile(`^(\d+)(-?)$`)
	amountRe        = regexp.MustCompile(`^-?\d{1,15}(\.\d{0,6})?$`)
)

// ErrMalformedAmount is returned for money strings that are not plain decimals.
var ErrMalformedAmount = errors.New("malformed amount")

// Item numbers outside this length are discarded.
const (
	MinItemNumberLen = 6
	MaxItemNumberLen = 12
)

// ItemNumberLength reports whether s has an acceptable item number length.
func ItemNumberLength(s string) bool {
	n := utf8.RuneCountInString(s)
	return n >= MinItemNumberLen && n <= MaxItemNumberLen
}

// CleanItemNumber strips everything except letters, digits and hyphens.
func CleanItemNumber(s string) string {
	return itemNumberStrip.ReplaceAllString(s, "")
}

// DerivePeriod maps a slash date to its month period: "03/15/24" -> "P03".
// Anything else, including months outside 1-12, is "P00".
func DerivePeriod(date string) string {
	date = strings.TrimSpace(date)
	if !strings.Contains(date, "/") {
		return "P00"
	}
	tok := strings.SplitN(date, "/", 2)[0]
	m, err := strconv.Atoi(tok)
	if err != nil || m < 1 || m > 12 {
		return "P00"
	}
	return fmt.Sprintf("P%02d", m)
}

// PeriodFromMonth maps a two-digit month prefix, as found in packed MMDDYYYY dates.
func PeriodFromMonth(mm string) string {
	if len(mm) != 2 {
		return "P00"
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 1 || m > 12 {
		return "P00"
	}
	return "P" + mm
}

// ParseQuantity reads audit log quantities: "3" -> 3, "1-" -> -1. Anything
// unreadable is 1.
func ParseQuantity(s string) int {
	m := quantityRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 1
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 1
	}
	if m[2] == "-" {
		n = -n
	}
	return n
}

// ParseAmount parses a money string. It strips "$", "," and the "Y" marker some
// registers print, and treats a trailing minus as negative. Only plain
// decimals are accepted: exponents and oversized values are rejected.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer("$", "", ",", "", "Y", "", " ", "").Replace(s)
	neg := false
	if strings.HasSuffix(s, "-") {
		neg = true
		s = strings.TrimSuffix(s, "-")
	}
	if !amountRe.MatchString(s) {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", s, ErrMalformedAmount)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", s, err)
	}
	if neg {
		d = d.Neg()
	}
	return d, nil
}

// NormalizePrice renders a money string with two decimals, "0.00" when unparseable.
func NormalizePrice(s string) string {
	d, err := ParseAmount(s)
	if err != nil {
		return "0.00"
	}
	return d.StringFixed(2)
}
