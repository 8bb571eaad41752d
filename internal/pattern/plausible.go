package pattern

import (
	"strconv"
	"strings"
)

// idLabels mark numbers that identify the transaction rather than an item.
var idLabels = []string{"register", "transaction", "receipt", "order"}

const labelWindow = 30

// Plausible reports whether a bare digit run could be an item number:
// no leading zero and not shaped like a YYYYMMDD date.
func Plausible(s string) bool {
	if s == "" || s[0] == '0' {
		return false
	}
	return !looksLikeDate(s)
}

func looksLikeDate(s string) bool {
	if len(s) != 8 {
		return false
	}
	year, err1 := strconv.Atoi(s[:4])
	month, err2 := strconv.Atoi(s[4:6])
	day, err3 := strconv.Atoi(s[6:])
	if err1 != nil || err2 != nil || err3 != nil {
		return false
	}
	return year >= 1900 && year <= 2099 && month >= 1 && month <= 12 && day >= 1 && day <= 31
}

// labeledAsID reports whether one of idLabels appears in the window just
// before the number at start.
func labeledAsID(s string, start int) bool {
	window := strings.ToLower(s[max(0, start-labelWindow):start])
	for _, l := range idLabels {
		if strings.Contains(window, l) {
			return true
		}
	}
	return false
}
