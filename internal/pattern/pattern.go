// Package pattern pulls item records out of free recognized text with three
// tiers of regular expressions: labeled lines, per-line pairing, and a whole
// document sweep used only when the first two find nothing.
package pattern

import (
	"regexp"
	"strings"

	"github.com/joseph-ayodele/refund-audit/internal/record"
)

var (
	reReportDate  = regexp.MustCompile(`(?i)Date:?\s*(\d{2}/\d{2}/\d{2,4})`)
	reAnyDate     = regexp.MustCompile(`(\d{2}/\d{2}/\d{2,4})`)
	reLabeledDate = regexp.MustCompile(`Date:?\s*(\d{2}/\d{2}/\d{2,4})`)
	reTime        = regexp.MustCompile(`\d{2}:\d{2}:\d{2}`)
	rePrice       = regexp.MustCompile(`\d+\.\d{2}`)
	reDigits      = regexp.MustCompile(`\d+`)
)

// labeledLine is a tier A shape: a label, the item number after it and a price.
type labeledLine struct {
	match *regexp.Regexp
	desc  *regexp.Regexp
}

var labeledLines = []labeledLine{
	{
		match: regexp.MustCompile(`Member#:\s*(\d+).*?(\d+\.\d{2})`),
		desc:  regexp.MustCompile(`Member#:\s*\d+\s*(.*?)\s*\d+\.\d{2}`),
	},
	{
		match: regexp.MustCompile(`Operator ID:\s*(\d+).*?(\d+\.\d{2})`),
		desc:  regexp.MustCompile(`Operator ID:\s*\d+\s*(.*?)\s*\d+\.\d{2}`),
	},
}

const (
	reportDateLines = 10
	minLineLength   = 20
	maxBroadcast    = 50
)

// Extract returns the records found in text. It is deterministic and never
// returns the same item number twice.
func Extract(text string) []record.ItemRecord {
	matches := Matches(text)
	out := make([]record.ItemRecord, 0, len(matches))
	for _, m := range matches {
		if r, ok := record.Normalize(m.ItemRecord()); ok {
			out = append(out, r)
		}
	}
	return out
}

// Matches is Extract before normalization, keeping the tier of each match.
func Matches(text string) []record.PatternMatch {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	reportDate := findReportDate(lines)
	seen := make(map[string]struct{})

	if out := labeled(lines, reportDate, seen); len(out) > 0 {
		return out
	}
	if out := perLine(lines, reportDate, seen); len(out) > 0 {
		return out
	}
	return broadcast(text, reportDate, seen)
}

func findReportDate(lines []string) string {
	head := lines[:min(reportDateLines, len(lines))]
	for _, ln := range head {
		if m := reReportDate.FindStringSubmatch(ln); m != nil {
			return m[1]
		}
	}
	for _, ln := range head {
		if m := reAnyDate.FindStringSubmatch(ln); m != nil {
			return m[1]
		}
	}
	return ""
}

func labeled(lines []string, reportDate string, seen map[string]struct{}) []record.PatternMatch {
	var out []record.PatternMatch
	for _, ln := range lines {
		for _, shape := range labeledLines {
			m := shape.match.FindStringSubmatch(ln)
			if m == nil {
				continue
			}
			item, price := m[1], m[2]
			if !Plausible(item) || !record.ItemNumberLength(item) {
				continue
			}
			if _, dup := seen[item]; dup {
				continue
			}
			seen[item] = struct{}{}

			desc := ""
			if d := shape.desc.FindStringSubmatch(ln); d != nil {
				desc = strings.TrimSpace(d[1])
			}
			date := reportDate
			if d := reLabeledDate.FindStringSubmatch(ln); d != nil {
				date = d[1]
			}
			out = append(out, record.PatternMatch{
				ItemNumber:  item,
				Price:       price,
				Date:        date,
				Time:        reTime.FindString(ln),
				Description: desc,
				Tier:        record.TierLabeled,
			})
		}
	}
	return out
}

func perLine(lines []string, reportDate string, seen map[string]struct{}) []record.PatternMatch {
	var out []record.PatternMatch
	for _, ln := range lines {
		if len(ln) < minLineLength {
			continue
		}
		prices := rePrice.FindAllStringIndex(ln, -1)
		if len(prices) == 0 {
			continue
		}
		for _, c := range candidates(ln, prices) {
			if _, dup := seen[c.value]; dup {
				continue
			}
			seen[c.value] = struct{}{}
			best := prices[0]
			bestDist := abs(best[0] - c.start)
			for _, p := range prices[1:] {
				if d := abs(p[0] - c.start); d < bestDist {
					best, bestDist = p, d
				}
			}
			out = append(out, record.PatternMatch{
				ItemNumber: c.value,
				Price:      ln[best[0]:best[1]],
				Date:       reportDate,
				Time:       reTime.FindString(ln),
				Tier:       record.TierLine,
			})
		}
	}
	return out
}

func broadcast(text, reportDate string, seen map[string]struct{}) []record.PatternMatch {
	prices := rePrice.FindAllStringIndex(text, -1)
	items := candidates(text, prices)
	times := reTime.FindAllString(text, -1)

	n := min(len(items), len(prices), maxBroadcast)
	var out []record.PatternMatch
	for i := 0; i < n; i++ {
		c := items[i]
		if _, dup := seen[c.value]; dup {
			continue
		}
		seen[c.value] = struct{}{}
		tm := ""
		if i < len(times) {
			tm = times[i]
		}
		out = append(out, record.PatternMatch{
			ItemNumber: c.value,
			Price:      text[prices[i][0]:prices[i][1]],
			Date:       reportDate,
			Time:       tm,
			Tier:       record.TierBroadcast,
		})
	}
	return out
}

// Candidates lists the plausible bare item numbers in text, in order of
// appearance and without duplicates.
func Candidates(text string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, c := range candidates(text, rePrice.FindAllStringIndex(text, -1)) {
		if _, dup := seen[c.value]; dup {
			continue
		}
		seen[c.value] = struct{}{}
		out = append(out, c.value)
	}
	return out
}

type candidate struct {
	value string
	start int
}

// candidates finds 6-8 digit runs in s that are not part of a price and pass
// every plausibility filter. Whole runs are matched, so digits embedded in a
// longer run are never returned.
func candidates(s string, prices [][]int) []candidate {
	var out []candidate
	for _, loc := range reDigits.FindAllStringIndex(s, -1) {
		v := s[loc[0]:loc[1]]
		if len(v) < 6 || len(v) > 8 {
			continue
		}
		if inPrice(loc, prices) {
			continue
		}
		if !Plausible(v) || labeledAsID(s, loc[0]) {
			continue
		}
		out = append(out, candidate{value: v, start: loc[0]})
	}
	return out
}

func inPrice(loc []int, prices [][]int) bool {
	for _, p := range prices {
		if loc[0] < p[1] && p[0] < loc[1] {
			return true
		}
	}
	return false
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
