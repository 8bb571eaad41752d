package training

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joseph-ayodele/refund-audit/internal/common"
	"github.com/joseph-ayodele/refund-audit/internal/ocr"
	"github.com/joseph-ayodele/refund-audit/internal/preprocess"
)

// Trainer appends examples, patterns and regions to a Store and analyzes
// labeled receipts to learn new ones.
type Trainer struct {
	store  Store
	rec    ocr.Recognizer
	logger *slog.Logger
	now    func() time.Time
}

type Option func(*options)

type options struct {
	logger *slog.Logger
	now    func() time.Time
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(opts []Option) options {
	o := options{logger: slog.Default(), now: time.Now}
	for _, fn := range opts {
		fn(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

// NewTrainer wires a trainer. rec is only needed by Analyze and TrainBatch.
func NewTrainer(store Store, rec ocr.Recognizer, opts ...Option) *Trainer {
	o := buildOptions(opts)
	return &Trainer{store: store, rec: rec, logger: o.logger, now: o.now}
}

const (
	maxItemNumberLen = 32
	maxPatternLen    = 16
)

func (t *Trainer) stamp() string { return t.now().Format(TimestampLayout) }

// AddExample records a known item number for an image. An empty description
// becomes "Example for <item>".
func (t *Trainer) AddExample(ctx context.Context, item, imagePath, description string) (bool, error) {
	v := common.NewValidator().
		Field("item_number", item, common.Required, common.MaxLength(maxItemNumberLen)).
		Field("image_path", imagePath, common.Required)
	if v.HasErrors() {
		return false, v.Error()
	}
	if _, err := os.Stat(imagePath); err != nil {
		t.logger.Error("training.example.image_missing", "path", imagePath, "error", err)
		return false, fmt.Errorf("%w: %s", common.ErrFileNotFound, imagePath)
	}
	if description == "" {
		description = "Example for " + item
	}
	ex := Example{ItemNumber: item, ImagePath: imagePath, Description: description, AddedAt: t.stamp()}
	if err := t.store.Update(ctx, func(c *Corpus) error {
		c.Examples = append(c.Examples, ex)
		return nil
	}); err != nil {
		return false, err
	}
	t.logger.Info("training.example.added", "item_number", item)
	return true, nil
}

func (t *Trainer) AddPattern(ctx context.Context, typ, value string) (bool, error) {
	v := common.NewValidator().
		Field("type", typ, common.Required, common.OneOf(PatternPrefix, PatternSuffix)).
		Field("value", value, common.Required, common.MaxLength(maxPatternLen))
	if v.HasErrors() {
		return false, v.Error()
	}
	p := Pattern{Type: typ, Value: value, AddedAt: t.stamp()}
	if err := t.store.Update(ctx, func(c *Corpus) error {
		c.Patterns = append(c.Patterns, p)
		return nil
	}); err != nil {
		return false, err
	}
	t.logger.Info("training.pattern.added", "type", typ, "value", value)
	return true, nil
}

func (t *Trainer) AddRegion(ctx context.Context, name string, loc preprocess.Region) (bool, error) {
	if err := validateRegion(name, loc); err != nil {
		return false, err
	}
	r := Region{Name: name, Location: loc, AddedAt: t.stamp()}
	if err := t.store.Update(ctx, func(c *Corpus) error {
		c.Regions = append(c.Regions, r)
		return nil
	}); err != nil {
		return false, err
	}
	t.logger.Info("training.region.added", "name", name)
	return true, nil
}

func validateRegion(name string, loc preprocess.Region) error {
	v := common.NewValidator().
		Field("name", name, common.Required).
		Field("location.width", loc.Width, common.Positive).
		Field("location.height", loc.Height, common.Positive)
	if v.HasErrors() {
		return v.Error()
	}
	if loc.Top < 0 || loc.Left < 0 || loc.Top+loc.Height > 1.0001 || loc.Left+loc.Width > 1.0001 {
		return fmt.Errorf("%w: location must lie within the unit square", common.ErrInvalidInput)
	}
	return nil
}

// Summary describes the corpus size and age.
type Summary struct {
	ExampleCount int    `json:"example_count"`
	PatternCount int    `json:"pattern_count"`
	RegionCount  int    `json:"region_count"`
	CreatedAt    string `json:"created_at"`
	LastUpdated  string `json:"last_updated"`
}

func (t *Trainer) Summary(ctx context.Context) (Summary, error) {
	c, err := t.store.Load(ctx)
	if err != nil {
		return Summary{}, err
	}
	s := Summary{
		ExampleCount: len(c.Examples),
		PatternCount: len(c.Patterns),
		RegionCount:  len(c.Regions),
		CreatedAt:    c.CreatedAt,
		LastUpdated:  "Never",
	}
	if s.CreatedAt == "" {
		s.CreatedAt = "Unknown"
	}
	if n := len(c.Examples); n > 0 {
		s.LastUpdated = c.Examples[n-1].AddedAt
	}
	return s, nil
}
