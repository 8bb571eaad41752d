// Package export renders item batches as the Refund Audit Log workbook.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/refund-audit/internal/record"
)

const (
	SheetName = "REFUND AUDIT LOG"
	Title     = "REFUND AUDIT LOG SUMMARY"

	firstDataRow = 3
	priceFormat  = "$#,##0.00"
	totalFormat  = "0"
	minColWidth  = 10
)

// Headers of row 2, columns A to E.
var Headers = []string{"Item #", "Department", "Qty", "Total Sell", "Period"}

// Service writes exports into a directory.
type Service struct {
	dir    string
	logger *slog.Logger
	now    func() time.Time
}

func NewService(dir string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{dir: dir, logger: logger, now: time.Now}
}

// FileName is the timestamped export name.
func FileName(t time.Time) string {
	return "refund_audit_log_" + t.Format("20060102_150405") + ".xlsx"
}

// WriteRefundAuditLog saves the workbook for recs and returns its path.
func (s *Service) WriteRefundAuditLog(ctx context.Context, recs []record.ItemRecord) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	start := time.Now()
	f, err := Workbook(recs)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(s.dir, FileName(s.now()))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("xlsx save: %w", err)
	}
	s.logger.Info("export.xlsx.ok", "path", path, "rows", len(recs),
		"elapsed_ms", time.Since(start).Milliseconds())
	return path, nil
}

// Bytes renders the workbook for recs in memory.
func (s *Service) Bytes(recs []record.ItemRecord) ([]byte, error) {
	f, err := Workbook(recs)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

// Workbook builds the Refund Audit Log sheet: a merged title row, the
// header row, one row per record and a Grand Total row summing quantities.
func Workbook(recs []record.ItemRecord) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return nil, err
	}
	st, err := newStyles(f)
	if err != nil {
		return nil, err
	}

	widths := make([]int, len(Headers))
	write := func(col, row int, v any) error {
		cell, err := excelize.CoordinatesToCellName(col, row)
		if err != nil {
			return err
		}
		if n := utf8.RuneCountInString(fmt.Sprint(v)); n > widths[col-1] {
			widths[col-1] = n
		}
		return f.SetCellValue(SheetName, cell, v)
	}

	if err := f.MergeCell(SheetName, "A1", "E1"); err != nil {
		return nil, err
	}
	if err := write(1, 1, Title); err != nil {
		return nil, err
	}
	_ = f.SetCellStyle(SheetName, "A1", "E1", st.title)

	for i, h := range Headers {
		if err := write(i+1, 2, h); err != nil {
			return nil, err
		}
	}
	_ = f.SetCellStyle(SheetName, "A2", "E2", st.header)

	row := firstDataRow
	for _, r := range recs {
		qty := r.Quantity
		if qty == 0 {
			qty = 1
		}
		price := 0.0
		if d, err := record.ParseAmount(r.Price); err == nil {
			price = d.InexactFloat64()
		}
		period := r.Period
		if period == "" {
			period = record.DerivePeriod(r.Date)
		}
		for col, v := range []any{r.ItemNumber, r.Department, qty, price, period} {
			if err := write(col+1, row, v); err != nil {
				return nil, err
			}
		}
		cell, _ := excelize.CoordinatesToCellName(4, row)
		_ = f.SetCellStyle(SheetName, cell, cell, st.price)
		row++
	}

	if len(recs) > 0 {
		if err := write(4, row, "Grand Total"); err != nil {
			return nil, err
		}
		label, _ := excelize.CoordinatesToCellName(4, row)
		_ = f.SetCellStyle(SheetName, label, label, st.bold)

		total, _ := excelize.CoordinatesToCellName(5, row)
		formula := fmt.Sprintf("SUM(C%d:C%d)", firstDataRow, row-1)
		if err := f.SetCellFormula(SheetName, total, formula); err != nil {
			return nil, err
		}
		if n := len(formula) + 1; n > widths[4] {
			widths[4] = n
		}
		_ = f.SetCellStyle(SheetName, total, total, st.total)
	}

	for i, w := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		_ = f.SetColWidth(SheetName, col, col, float64(max(w, minColWidth)+2))
	}
	return f, nil
}

type styles struct {
	title, header, bold, price, total int
}

func newStyles(f *excelize.File) (styles, error) {
	var s styles
	var err error
	center := &excelize.Alignment{Horizontal: "center"}
	if s.title, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: center,
	}); err != nil {
		return s, err
	}
	if s.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"D3D3D3"}, Pattern: 1},
		Alignment: center,
	}); err != nil {
		return s, err
	}
	if s.bold, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err != nil {
		return s, err
	}
	pf, tf := priceFormat, totalFormat
	if s.price, err = f.NewStyle(&excelize.Style{CustomNumFmt: &pf}); err != nil {
		return s, err
	}
	if s.total, err = f.NewStyle(&excelize.Style{CustomNumFmt: &tf}); err != nil {
		return s, err
	}
	return s, nil
}
