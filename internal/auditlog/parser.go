// Package auditlog parses fixed-width AS400 refund audit reports.
package auditlog

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/joseph-ayodele/refund-audit/internal/record"
)

// Entry is one qualifying report line.
type Entry struct {
	RecNo    string `json:"rec_no"`
	TrnNo    string `json:"trn_no"`
	Date     string `json:"date"`
	Tracking string `json:"tracking"`
	Member   string `json:"member"`
	Item     string `json:"item"`
	Dept     string `json:"dept"`
	Qty      string `json:"qty"`
	Tender   string `json:"tender"`
	Saleable string `json:"saleable"`
	Refund   string `json:"refund"`
	Auditor  string `json:"auditor"`
	Period   string `json:"period"`
	LineNo   int    `json:"line_no"`
}

func (Entry) Kind() record.Kind { return record.KindAS400 }

func (e Entry) ItemRecord() record.ItemRecord {
	return record.ItemRecord{
		ItemNumber: e.Item,
		Price:      e.Tender,
		Period:     e.Period,
		Date:       e.Date,
		Quantity:   record.ParseQuantity(e.Qty),
		Department: e.Dept,
	}
}

// Parser reads reports with a fixed layout.
type Parser struct {
	layout Layout
	logger *slog.Logger
}

func NewParser(layout Layout, logger *slog.Logger) (*Parser, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := layout.Validate(); err != nil {
		return nil, err
	}
	return &Parser{layout: layout, logger: logger}, nil
}

// ParseFile opens path and parses it. Zero qualifying lines is not an error.
func (p *Parser) ParseFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()
	entries, err := p.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("read audit log %s: %w", path, err)
	}
	p.logger.Debug("auditlog.parsed", "path", path, "entries", len(entries))
	return entries, nil
}

const maxLineBytes = 1024 * 1024

// Parse reads lines from r. Lines whose trimmed length is under the layout
// minimum are skipped, as are lines longer than maxLineBytes.
func (p *Parser) Parse(r io.Reader) ([]Entry, error) {
	br := bufio.NewReaderSize(r, 64*1024)
	var out []Entry
	var buf []byte
	lineNo := 0
	tooLong := false
	for {
		chunk, more, err := br.ReadLine()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if !tooLong {
			buf = append(buf, chunk...)
			if len(buf) > maxLineBytes {
				tooLong = true
				buf = buf[:0]
			}
		}
		if more {
			continue
		}
		lineNo++
		if tooLong {
			p.logger.Warn("auditlog.line_too_long", "line", lineNo, "max_bytes", maxLineBytes)
			tooLong = false
			continue
		}
		line := strings.TrimRight(string(buf), "\r")
		buf = buf[:0]
		if len(strings.TrimSpace(line)) < p.layout.MinLineLength {
			continue
		}
		out = append(out, p.entry(line, lineNo))
	}
	return out, nil
}

func (p *Parser) entry(line string, lineNo int) Entry {
	f := p.layout.slice(line)
	return Entry{
		RecNo:    f[ColRec],
		TrnNo:    f[ColTrn],
		Date:     f[ColDate],
		Tracking: f[ColTracking],
		Member:   f[ColMember],
		Item:     f[ColItem],
		Dept:     f[ColDept],
		Qty:      f[ColQty],
		Tender:   f[ColTender],
		Saleable: f[ColSaleable],
		Refund:   f[ColRefund],
		Auditor:  f[ColAuditor],
		Period:   record.PeriodFromMonth(prefix(f[ColDate], 2)),
		LineNo:   lineNo,
	}
}

// ParseFile parses path with the default layout.
func ParseFile(path string) ([]Entry, error) {
	p, err := NewParser(DefaultLayout(), nil)
	if err != nil {
		return nil, err
	}
	return p.ParseFile(path)
}

func prefix(s string, n int) string {
	if len(s) < n {
		return s
	}
	return s[:n]
}
