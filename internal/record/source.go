package record

import (
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/joseph-ayodele/refund-audit/constants"
)

// Kind tags a source shape.
type Kind string

const (
	KindAI          Kind = "ai"
	KindPattern     Kind = "pattern"
	KindAS400       Kind = "as400"
	KindTrained     Kind = "trained"
	KindDirect      Kind = "direct"
	KindKeyValue    Kind = "key_value"
	KindPlaceholder Kind = "placeholder"
)

// Source is implemented by every strategy-specific result shape.
type Source interface {
	Kind() Kind
	ItemRecord() ItemRecord
}

// Layouts used when a strategy stamps the scan time onto a record.
const (
	DateLayout = "01/02/06"
	TimeLayout = "15:04:05"
)

// AIItem is one item as returned by the vision model.
type AIItem struct {
	ItemNumber  string `json:"item_number"`
	Price       string `json:"price"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	Description string `json:"description"`
}

func (AIItem) Kind() Kind { return KindAI }

func (a AIItem) ItemRecord() ItemRecord {
	return ItemRecord{
		ItemNumber:  CleanItemNumber(a.ItemNumber),
		Price:       a.Price,
		Date:        strings.TrimSpace(a.Date),
		Time:        strings.TrimSpace(a.Time),
		Description: strings.TrimSpace(a.Description),
		Quantity:    1,
	}
}

// Tier says which pattern pass produced a match.
type Tier string

const (
	TierLabeled   Tier = "A"
	TierLine      Tier = "B"
	TierBroadcast Tier = "C"
)

// PatternMatch comes from the regex extractor.
type PatternMatch struct {
	ItemNumber  string
	Price       string
	Date        string
	Time        string
	Description string
	Tier        Tier
}

func (PatternMatch) Kind() Kind { return KindPattern }

func (p PatternMatch) ItemRecord() ItemRecord {
	return ItemRecord{
		ItemNumber:  p.ItemNumber,
		Price:       p.Price,
		Date:        p.Date,
		Time:        p.Time,
		Description: strings.TrimSpace(p.Description),
		Quantity:    1,
	}
}

// TrainedMatch is a number read from a learned or default image region.
type TrainedMatch struct {
	ItemNumber string
	Region     string
	Confidence float64
	At         time.Time
}

func (TrainedMatch) Kind() Kind { return KindTrained }

func (m TrainedMatch) ItemRecord() ItemRecord {
	return ItemRecord{
		ItemNumber:  m.ItemNumber,
		Price:       "0.00",
		Date:        m.At.Format(DateLayout),
		Time:        m.At.Format(TimeLayout),
		Description: "Region: " + m.Region,
		Quantity:    1,
		Confidence:  Conf(m.Confidence),
	}
}

// DirectMatch is produced without any recognition engine.
type DirectMatch struct {
	ItemNumber  string
	Method      string
	Description string
	Confidence  float64
	At          time.Time
}

func (DirectMatch) Kind() Kind { return KindDirect }

func (m DirectMatch) ItemRecord() ItemRecord {
	desc := m.Description
	if desc == "" {
		desc = "Direct: " + m.Method
	}
	return ItemRecord{
		ItemNumber:  m.ItemNumber,
		Price:       "0.00",
		Date:        m.At.Format(DateLayout),
		Time:        m.At.Format(TimeLayout),
		Description: desc,
		Quantity:    1,
		Confidence:  Conf(m.Confidence),
	}
}

// KeyValues is a label -> value map read from a document. Labels are matched
// to fields through constants.Canonicalize; the first label for a field wins.
type KeyValues map[string]string

func (KeyValues) Kind() Kind { return KindKeyValue }

// HasItemNumber reports whether any label names the item number.
func (kv KeyValues) HasItemNumber() bool {
	return kv.ItemRecord().ItemNumber != ""
}

func (kv KeyValues) ItemRecord() ItemRecord {
	fields := make(map[constants.Field]string, len(kv))
	for _, label := range slices.Sorted(maps.Keys(kv)) {
		f, ok := constants.Canonicalize(label)
		if !ok {
			continue
		}
		if _, seen := fields[f]; seen {
			continue
		}
		fields[f] = strings.TrimSpace(kv[label])
	}
	rec := ItemRecord{
		ItemNumber:  CleanItemNumber(fields[constants.FieldItemNumber]),
		Price:       fields[constants.FieldPrice],
		Period:      fields[constants.FieldPeriod],
		Date:        fields[constants.FieldDate],
		Time:        fields[constants.FieldTime],
		Description: fields[constants.FieldDescription],
		Exception:   fields[constants.FieldException],
		Department:  fields[constants.FieldDepartment],
		Quantity:    1,
	}
	if q, ok := fields[constants.FieldQuantity]; ok {
		rec.Quantity = ParseQuantity(q)
	}
	return rec
}

// Placeholder is the last-resort record emitted when every strategy fails.
type Placeholder struct {
	At time.Time
}

const (
	PlaceholderItemNumber  = "0000001"
	PlaceholderDescription = "Emergency fallback - no OCR data extracted"
	PlaceholderException   = "Failed to extract with primary methods"
)

func (Placeholder) Kind() Kind { return KindPlaceholder }

func (p Placeholder) ItemRecord() ItemRecord {
	return ItemRecord{
		ItemNumber:  PlaceholderItemNumber,
		Price:       "0.00",
		Date:        p.At.Format(DateLayout),
		Time:        p.At.Format(TimeLayout),
		Description: PlaceholderDescription,
		Quantity:    1,
		Exception:   PlaceholderException,
		Confidence:  Conf(0.1),
	}
}
