package auditlog

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/refund-audit/internal/common"
)

// Column names understood by the parser.
const (
	ColRec      = "Rec#"
	ColTrn      = "Trn#"
	ColDate     = "Date"
	ColTracking = "Tracking#"
	ColMember   = "Member#"
	ColItem     = "Item#"
	ColDept     = "Dept"
	ColQty      = "Qty"
	ColTender   = "Tender$"
	ColSaleable = "Saleable"
	ColRefund   = "Refund"
	ColAuditor  = "Auditor"
)

var knownColumns = map[string]struct{}{
	ColRec: {}, ColTrn: {}, ColDate: {}, ColTracking: {}, ColMember: {}, ColItem: {},
	ColDept: {}, ColQty: {}, ColTender: {}, ColSaleable: {}, ColRefund: {}, ColAuditor: {},
}

// ToEnd marks a column that runs to the end of the line.
const ToEnd = -1

// Column is a half-open byte range [Start, End) of a line.
type Column struct {
	Name  string
	Start int
	End   int
}

func (c Column) slice(line string) string {
	if c.Start >= len(line) {
		return ""
	}
	end := c.End
	if end == ToEnd || end > len(line) {
		end = len(line)
	}
	return strings.TrimSpace(line[c.Start:end])
}

// Layout describes where each column sits on a line. Columns may overlap;
// several report generations share bytes between Member# and Item#.
type Layout struct {
	Columns       []Column
	MinLineLength int
}

// DefaultMinLineLength skips headers and short trailer lines.
const DefaultMinLineLength = 70

// DefaultLayout is the offset table of the standard audit report.
func DefaultLayout() Layout {
	return Layout{
		MinLineLength: DefaultMinLineLength,
		Columns: []Column{
			{ColRec, 0, 4},
			{ColTrn, 5, 9},
			{ColDate, 10, 18},
			{ColTracking, 19, 32},
			{ColMember, 33, 47},
			{ColItem, 46, 55},
			{ColDept, 55, 59},
			{ColQty, 59, 62},
			{ColTender, 67, 75},
			{ColSaleable, 76, 77},
			{ColRefund, 78, 79},
			{ColAuditor, 80, ToEnd},
		},
	}
}

// ParseLayout reads "Name=start:end;Name=start:" into a layout. An empty end
// means the column runs to the end of the line. Columns not named keep no
// value. The result is validated.
func ParseLayout(def string, minLineLength int) (Layout, error) {
	l := Layout{MinLineLength: minLineLength}
	for _, part := range strings.Split(def, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, rng, ok := strings.Cut(part, "=")
		if !ok {
			return Layout{}, fmt.Errorf("%w: layout entry %q: missing '='", common.ErrInvalidInput, part)
		}
		startStr, endStr, ok := strings.Cut(rng, ":")
		if !ok {
			return Layout{}, fmt.Errorf("%w: layout entry %q: missing ':'", common.ErrInvalidInput, part)
		}
		start, err := strconv.Atoi(strings.TrimSpace(startStr))
		if err != nil {
			return Layout{}, fmt.Errorf("%w: layout entry %q: bad start", common.ErrInvalidInput, part)
		}
		end := ToEnd
		if s := strings.TrimSpace(endStr); s != "" {
			if end, err = strconv.Atoi(s); err != nil {
				return Layout{}, fmt.Errorf("%w: layout entry %q: bad end", common.ErrInvalidInput, part)
			}
		}
		l.Columns = append(l.Columns, Column{Name: strings.TrimSpace(name), Start: start, End: end})
	}
	if err := l.Validate(); err != nil {
		return Layout{}, err
	}
	return l, nil
}

// String renders the layout in ParseLayout form.
func (l Layout) String() string {
	parts := make([]string, 0, len(l.Columns))
	for _, c := range l.Columns {
		end := ""
		if c.End != ToEnd {
			end = strconv.Itoa(c.End)
		}
		parts = append(parts, fmt.Sprintf("%s=%d:%s", c.Name, c.Start, end))
	}
	return strings.Join(parts, ";")
}

// Validate checks the layout structure: known unique names, sane ranges and
// an Item# column.
func (l Layout) Validate() error {
	v := common.NewValidator().Field("MinLineLength", l.MinLineLength, common.Positive)
	seen := make(map[string]struct{}, len(l.Columns))
	for _, c := range l.Columns {
		if _, ok := knownColumns[c.Name]; !ok {
			return fmt.Errorf("%w: unknown column %q", common.ErrInvalidInput, c.Name)
		}
		if _, dup := seen[c.Name]; dup {
			return fmt.Errorf("%w: duplicate column %q", common.ErrInvalidInput, c.Name)
		}
		seen[c.Name] = struct{}{}
		if c.Start < 0 {
			return fmt.Errorf("%w: column %s starts before 0", common.ErrInvalidInput, c.Name)
		}
		if c.End != ToEnd && c.End <= c.Start {
			return fmt.Errorf("%w: column %s ends at %d, before its start %d", common.ErrInvalidInput, c.Name, c.End, c.Start)
		}
	}
	if _, ok := seen[ColItem]; !ok {
		return fmt.Errorf("%w: layout has no %s column", common.ErrInvalidInput, ColItem)
	}
	return v.Error()
}

var (
	reSampleItem = regexp.MustCompile(`^[A-Za-z0-9]+$`)
	reSampleDate = regexp.MustCompile(`^\d{8}$`)
	reSampleQty  = regexp.MustCompile(`^\d+-?$`)
)

// Check slices known-good sample lines with the layout and reports the first
// field that does not look right. Short lines are ignored like the parser
// ignores them.
func (l Layout) Check(samples []string) error {
	if err := l.Validate(); err != nil {
		return err
	}
	checks := []struct {
		col  string
		re   *regexp.Regexp
		desc string
	}{
		{ColItem, reSampleItem, "alphanumeric"},
		{ColDate, reSampleDate, "8 digits"},
		{ColQty, reSampleQty, "digits with an optional trailing '-'"},
	}
	checked := 0
	for i, line := range samples {
		if len(strings.TrimSpace(line)) < l.MinLineLength {
			continue
		}
		checked++
		fields := l.slice(line)
		for _, c := range checks {
			val, ok := fields[c.col]
			if !ok {
				continue
			}
			v := common.NewValidator().Field(c.col, val, common.Required, common.Matches(c.re, c.desc))
			if v.HasErrors() {
				return fmt.Errorf("sample line %d: %w", i+1, v.Error())
			}
		}
	}
	if checked == 0 {
		return fmt.Errorf("%w: no sample line reaches %d characters", common.ErrInvalidInput, l.MinLineLength)
	}
	return nil
}

func (l Layout) slice(line string) map[string]string {
	out := make(map[string]string, len(l.Columns))
	for _, c := range l.Columns {
		out[c.Name] = c.slice(line)
	}
	return out
}
