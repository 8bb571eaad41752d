package training

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"time"

	"github.com/joseph-ayodele/refund-audit/internal/ocr"
	"github.com/joseph-ayodele/refund-audit/internal/preprocess"
	"github.com/joseph-ayodele/refund-audit/internal/record"
)

// Confidence assigned to trained scan matches.
const (
	ConfPattern        = 0.9
	ConfSevenDigit     = 0.8
	ConfGeneric        = 0.5
	ConfLeftSevenDigit = 0.7
	ConfLeftGeneric    = 0.3
	leftFallbackRegion = "left_side"
	minItemLen         = 6
	maxItemLen         = 12
)

var (
	reSevenDigit = regexp.MustCompile(`\b\d{7}\b`)
	reGeneric    = regexp.MustCompile(`\b\d{6,12}\b`)
)

// Scanner reads item numbers from the regions the corpus learned, or from
// eight default bands when it has learned none.
type Scanner struct {
	store  Store
	rec    ocr.Recognizer
	logger *slog.Logger
	now    func() time.Time
}

func NewScanner(store Store, rec ocr.Recognizer, opts ...Option) *Scanner {
	o := buildOptions(opts)
	return &Scanner{store: store, rec: rec, logger: o.logger, now: o.now}
}

// DefaultRegions are the four left-third bands followed by the four
// full-width bands.
func DefaultRegions() []preprocess.NamedRegion {
	var out []preprocess.NamedRegion
	for _, b := range preprocess.Bands(0, preprocess.LeftThird.Width) {
		out = append(out, preprocess.NamedRegion{Name: b.Name + "_left", Region: b.Region})
	}
	for _, b := range preprocess.Bands(0, 1) {
		out = append(out, preprocess.NamedRegion{Name: "full_" + b.Name, Region: b.Region})
	}
	return out
}

// Enabled reports whether the corpus has at least one region or pattern.
func (s *Scanner) Enabled(ctx context.Context) bool {
	c, err := s.store.Load(ctx)
	if err != nil {
		s.logger.Warn("training.scan.load_failed", "error", err)
		return false
	}
	return c.HasLearned()
}

// Scan returns unique matches ordered by descending confidence.
func (s *Scanner) Scan(ctx context.Context, imagePath string) ([]record.TrainedMatch, error) {
	corpus, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	img, err := preprocess.Load(imagePath)
	if err != nil {
		return nil, fmt.Errorf("load image: %w", err)
	}
	at := s.now()

	regions := DefaultRegions()
	if len(corpus.Regions) > 0 {
		regions = regions[:0]
		for _, r := range corpus.Regions {
			regions = append(regions, preprocess.NamedRegion{Name: r.Name, Region: r.Location})
		}
	}

	opts := ocr.Options{PSM: ocr.PSMBlock, Whitelist: ocr.DigitWhitelist}
	var found []record.TrainedMatch
	for _, r := range regions {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		crop, ok := preprocess.Crop(img, r.Region)
		if !ok {
			continue
		}
		text, err := s.rec.Recognize(ctx, crop, opts)
		if err != nil {
			s.logger.Warn("training.scan.region_failed", "region", r.Name, "error", err)
			continue
		}
		for _, n := range patternNumbers(text, corpus.Patterns) {
			found = append(found, record.TrainedMatch{ItemNumber: n, Region: r.Name, Confidence: ConfPattern, At: at})
		}
		for _, n := range reSevenDigit.FindAllString(text, -1) {
			found = append(found, record.TrainedMatch{ItemNumber: n, Region: r.Name, Confidence: ConfSevenDigit, At: at})
		}
		for _, n := range reGeneric.FindAllString(text, -1) {
			found = append(found, record.TrainedMatch{ItemNumber: n, Region: r.Name, Confidence: ConfGeneric, At: at})
		}
	}
	if len(found) > 0 {
		return uniqueByConfidence(found), nil
	}

	s.logger.Info("training.scan.left_fallback", "path", imagePath)
	crop, ok := preprocess.Crop(img, preprocess.LeftThird)
	if !ok {
		return nil, nil
	}
	text, err := s.rec.Recognize(ctx, crop, opts)
	if err != nil {
		return nil, fmt.Errorf("recognize left side: %w", err)
	}
	conf, nums := ConfLeftSevenDigit, reSevenDigit.FindAllString(text, -1)
	if len(nums) == 0 {
		conf, nums = ConfLeftGeneric, reGeneric.FindAllString(text, -1)
	}
	for _, n := range nums {
		found = append(found, record.TrainedMatch{ItemNumber: n, Region: leftFallbackRegion, Confidence: conf, At: at})
	}
	return uniqueByConfidence(found), nil
}

// patternNumbers finds 6-12 digit runs right after a trained prefix or
// right before a trained suffix.
func patternNumbers(text string, patterns []Pattern) []string {
	var out []string
	for _, p := range patterns {
		if p.Value == "" {
			continue
		}
		var re *regexp.Regexp
		switch p.Type {
		case PatternPrefix:
			re = regexp.MustCompile(regexp.QuoteMeta(p.Value) + `\s*(\d+)`)
		case PatternSuffix:
			re = regexp.MustCompile(`(\d+)\s*` + regexp.QuoteMeta(p.Value))
		default:
			continue
		}
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			if n := len(m[1]); n >= minItemLen && n <= maxItemLen {
				out = append(out, m[1])
			}
		}
	}
	return out
}

func uniqueByConfidence(in []record.TrainedMatch) []record.TrainedMatch {
	sort.SliceStable(in, func(i, j int) bool { return in[i].Confidence > in[j].Confidence })
	seen := make(map[string]struct{}, len(in))
	out := in[:0]
	for _, m := range in {
		if _, dup := seen[m.ItemNumber]; dup {
			continue
		}
		seen[m.ItemNumber] = struct{}{}
		out = append(out, m)
	}
	return out
}
