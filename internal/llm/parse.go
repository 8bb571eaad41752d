package llm

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/joseph-ayodele/refund-audit/internal/record"
)

// ErrNotJSON marks content that could not be decoded and was scraped instead.
var ErrNotJSON = errors.New("response is not valid JSON")

var reFence = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")

// Unfence trims content and strips a surrounding Markdown code fence.
func Unfence(content string) string {
	content = strings.TrimSpace(content)
	if m := reFence.FindStringSubmatch(content); m != nil {
		return m[1]
	}
	return content
}

// ParseItems decodes a model response. It accepts {"items": [...]}, a bare
// array or a single object, with numbers where strings are expected. When
// the content is not JSON at all the fields are scraped with regular
// expressions and the returned error wraps ErrNotJSON.
func ParseItems(content string) ([]record.AIItem, error) {
	content = Unfence(content)

	dec := json.NewDecoder(strings.NewReader(content))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return ScrapeItems(content), fmt.Errorf("%w: %v", ErrNotJSON, err)
	}

	var list []any
	switch v := doc.(type) {
	case map[string]any:
		if items, ok := v["items"]; ok {
			arr, _ := items.([]any)
			list = arr
		} else {
			list = []any{v}
		}
	case []any:
		list = v
	}

	out := make([]record.AIItem, 0, len(list))
	for _, el := range list {
		m, ok := el.(map[string]any)
		if !ok {
			continue
		}
		it := record.AIItem{
			ItemNumber:  record.CleanItemNumber(str(m["item_number"])),
			Price:       str(m["price"]),
			Date:        str(m["date"]),
			Time:        str(m["time"]),
			Description: str(m["description"]),
		}
		if it.ItemNumber == "" {
			continue
		}
		out = append(out, it)
	}
	return out, nil
}

// SanitizeItems rewrites a decoded response into the {"items": [...]} shape
// with string fields, so it can be validated and stored uniformly.
func SanitizeItems(items []record.AIItem) []byte {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(map[string]any{"items": items})
	return bytes.TrimSpace(buf.Bytes())
}

func str(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case bool:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

var (
	reScrapeItem  = regexp.MustCompile(`(?i)item[_\s]*number["\s:]*([A-Za-z0-9\-]+)`)
	reScrapePrice = regexp.MustCompile(`(?i)price["\s:]*(\$?[\d\.]+)`)
	reScrapeDate  = regexp.MustCompile(`(?i)date["\s:]*([^\n,"]+)`)
	reScrapeTime  = regexp.MustCompile(`(?i)time["\s:]*([^\n,"]+)`)
)

// ScrapeItems pulls item fields out of malformed content. Prices pair with
// item numbers by position; the first date and time apply to every item.
func ScrapeItems(content string) []record.AIItem {
	items := submatches(reScrapeItem, content)
	prices := submatches(reScrapePrice, content)
	dates := submatches(reScrapeDate, content)
	times := submatches(reScrapeTime, content)

	var out []record.AIItem
	for i, item := range items {
		it := record.AIItem{ItemNumber: record.CleanItemNumber(item)}
		if it.ItemNumber == "" {
			continue
		}
		if i < len(prices) {
			it.Price = prices[i]
		}
		if len(dates) > 0 {
			it.Date = strings.TrimSpace(dates[0])
		}
		if len(times) > 0 {
			it.Time = strings.TrimSpace(times[0])
		}
		out = append(out, it)
	}
	return out
}

func submatches(re *regexp.Regexp, s string) []string {
	var out []string
	for _, m := range re.FindAllStringSubmatch(s, -1) {
		out = append(out, m[1])
	}
	return out
}
