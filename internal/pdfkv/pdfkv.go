// Package pdfkv reads the text layer of a PDF and splits "Key: value" lines
// into a map.
package pdfkv

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/joseph-ayodele/refund-audit/internal/record"
)

// Document is the text of a PDF and the key-value pairs found in it.
type Document struct {
	Pages  int
	Text   string
	Values record.KeyValues
}

// ParseFile returns the key-value pairs of the PDF at path.
func ParseFile(path string) (record.KeyValues, error) {
	doc, err := Read(path)
	if err != nil {
		return nil, err
	}
	return doc.Values, nil
}

// Read extracts the text of every page and parses it.
func Read(path string) (Document, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return Document{}, fmt.Errorf("open pdf %s: %w", path, err)
	}
	defer f.Close()

	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		for _, ln := range pageLines(p.Content().Text) {
			b.WriteString(ln)
			b.WriteByte('\n')
		}
	}
	text := b.String()
	return Document{Pages: r.NumPage(), Text: text, Values: ParseText(text)}, nil
}

// ParseText splits each line at its first ':' into a trimmed key and value.
// Later lines overwrite earlier keys.
func ParseText(text string) record.KeyValues {
	out := record.KeyValues{}
	for _, ln := range strings.Split(text, "\n") {
		key, val, ok := strings.Cut(ln, ":")
		if !ok {
			continue
		}
		out[strings.TrimSpace(key)] = strings.TrimSpace(val)
	}
	return out
}

const rowTolerance = 2.0

type row struct {
	y     float64
	texts []pdf.Text
}

// pageLines groups positioned glyphs into rows by baseline, top to bottom,
// and joins each row left to right. A horizontal gap wider than half a glyph
// becomes a space.
func pageLines(texts []pdf.Text) []string {
	var rows []row
	for _, t := range texts {
		if t.S == "" {
			continue
		}
		placed := false
		for i := range rows {
			if abs(rows[i].y-t.Y) < rowTolerance {
				rows[i].texts = append(rows[i].texts, t)
				placed = true
				break
			}
		}
		if !placed {
			rows = append(rows, row{y: t.Y, texts: []pdf.Text{t}})
		}
	}
	// PDF y grows upwards
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].y > rows[j].y })

	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		sort.SliceStable(r.texts, func(i, j int) bool { return r.texts[i].X < r.texts[j].X })
		var b strings.Builder
		for i, t := range r.texts {
			if i > 0 {
				prev := r.texts[i-1]
				if gap := t.X - (prev.X + prev.W); gap > prev.W/2 && !strings.HasSuffix(prev.S, " ") {
					b.WriteByte(' ')
				}
			}
			b.WriteString(t.S)
		}
		if ln := strings.TrimSpace(b.String()); ln != "" {
			lines = append(lines, ln)
		}
	}
	return lines
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
