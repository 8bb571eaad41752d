package constants

import (
	"regexp"
	"strings"
)

// Field is a canonical item record field name.
type Field string

const (
	FieldItemNumber  Field = "item_number"
	FieldPrice       Field = "price"
	FieldQuantity    Field = "quantity"
	FieldPeriod      Field = "period"
	FieldDate        Field = "date"
	FieldTime        Field = "time"
	FieldDescription Field = "description"
	FieldException   Field = "exception"
	FieldDepartment  Field = "department"
)

var allFields = []Field{
	FieldItemNumber,
	FieldPrice,
	FieldQuantity,
	FieldPeriod,
	FieldDate,
	FieldTime,
	FieldDescription,
	FieldException,
	FieldDepartment,
}

var reFieldNoise = regexp.MustCompile(`[\s_\-.]+`)

// synonyms are keyed by the squashed form of a source label.
var synonyms = map[string]Field{
	"item#":      FieldItemNumber,
	"itemno":     FieldItemNumber,
	"itemnumber": FieldItemNumber,
	"item":       FieldItemNumber,
	"sku":        FieldItemNumber,
	"upc":        FieldItemNumber,
	"member#":    FieldItemNumber,
	"tender$":    FieldPrice,
	"tender":     FieldPrice,
	"totalsell":  FieldPrice,
	"amount":     FieldPrice,
	"total":      FieldPrice,
	"qty":        FieldQuantity,
	"dept":       FieldDepartment,
	"desc":       FieldDescription,
	"exceptions": FieldException,
}

// Canonicalize maps a source-specific label ("Item #", "Tender $", "Qty") onto a
// canonical field. ok is false when the label is not recognized.
func Canonicalize(label string) (Field, bool) {
	squashed := reFieldNoise.ReplaceAllString(strings.ToLower(strings.TrimSpace(label)), "")
	if squashed == "" {
		return "", false
	}
	if f, ok := synonyms[squashed]; ok {
		return f, true
	}
	for _, f := range allFields {
		if squashed == reFieldNoise.ReplaceAllString(string(f), "") {
			return f, true
		}
	}
	return "", false
}
