package training

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joseph-ayodele/refund-audit/internal/common"
	"github.com/joseph-ayodele/refund-audit/internal/ocr"
	"github.com/joseph-ayodele/refund-audit/internal/preprocess"
)

const (
	autoDescription = "Auto-analyzed example"
	contextChars    = 3
)

type RegionResult struct {
	Region             string            `json:"region"`
	ContainsItemNumber bool              `json:"contains_item_number"`
	RelativeCoords     preprocess.Region `json:"relative_coords"`
}

type PatternResult struct {
	Type    string `json:"type"`
	Value   string `json:"value"`
	Context string `json:"context"`
}

type Dimensions struct {
	Height int `json:"height"`
	Width  int `json:"width"`
}

// AnalysisResult reports where a known item number was found on an image.
type AnalysisResult struct {
	Success    bool            `json:"success"`
	Error      string          `json:"error,omitempty"`
	ItemNumber string          `json:"item_number,omitempty"`
	Regions    []RegionResult  `json:"regions,omitempty"`
	Patterns   []PatternResult `json:"patterns,omitempty"`
	Dimensions Dimensions      `json:"dimensions"`
}

// Analyze locates knownItem on the image: every quarter-height band whose
// sparse OCR text contains it becomes a trained region, characters around
// it on a full-image pass become prefix/suffix patterns, and the image is
// recorded as an example. All of it is appended in one store update.
func (t *Trainer) Analyze(ctx context.Context, imagePath, knownItem string) (AnalysisResult, error) {
	return t.analyze(ctx, imagePath, knownItem, autoDescription)
}

func (t *Trainer) analyze(ctx context.Context, imagePath, item, description string) (AnalysisResult, error) {
	fail := func(err error) (AnalysisResult, error) {
		return AnalysisResult{Error: err.Error()}, err
	}
	if item == "" {
		return fail(fmt.Errorf("%w: item_number is required", common.ErrInvalidInput))
	}
	if t.rec == nil {
		return fail(fmt.Errorf("%w: no recognizer configured", common.ErrInvalidInput))
	}
	if _, err := os.Stat(imagePath); err != nil {
		return fail(fmt.Errorf("%w: image file not found", common.ErrFileNotFound))
	}
	img, err := preprocess.Load(imagePath)
	if err != nil {
		return fail(fmt.Errorf("could not read image: %w", err))
	}

	start := time.Now()
	b := img.Bounds()
	res := AnalysisResult{
		Success:    true,
		ItemNumber: item,
		Dimensions: Dimensions{Height: b.Dy(), Width: b.Dx()},
	}

	stamp := t.now()
	var regions []Region
	for _, band := range preprocess.Bands(0, 1) {
		crop, ok := preprocess.Crop(img, band.Region)
		if !ok {
			continue
		}
		text, err := t.rec.Recognize(ctx, crop, ocr.Options{PSM: ocr.PSMSparse})
		if err != nil {
			return fail(fmt.Errorf("recognize %s band: %w", band.Name, err))
		}
		present := strings.Contains(squash(text, " ", "\n"), item)
		res.Regions = append(res.Regions, RegionResult{
			Region:             band.Name,
			ContainsItemNumber: present,
			RelativeCoords:     band.Region,
		})
		if present {
			regions = append(regions, Region{
				Name:     fmt.Sprintf("auto_%s_%s", band.Name, stamp.Format("20060102150405")),
				Location: band.Region,
				AddedAt:  stamp.Format(TimestampLayout),
			})
		}
	}

	full, err := t.rec.Recognize(ctx, img, ocr.Options{PSM: ocr.PSMSparse})
	if err != nil {
		return fail(fmt.Errorf("recognize image: %w", err))
	}
	res.Patterns = surroundings(full, item)

	err = t.store.Update(ctx, func(c *Corpus) error {
		c.Regions = append(c.Regions, regions...)
		for _, p := range res.Patterns {
			c.Patterns = append(c.Patterns, Pattern{Type: p.Type, Value: p.Value, AddedAt: stamp.Format(TimestampLayout)})
		}
		c.Examples = append(c.Examples, Example{
			ItemNumber:  item,
			ImagePath:   imagePath,
			Description: description,
			AddedAt:     stamp.Format(TimestampLayout),
		})
		return nil
	})
	if err != nil {
		return fail(err)
	}

	t.logger.Info("training.analyze.ok",
		"item_number", item, "regions", len(regions), "patterns", len(res.Patterns),
		"elapsed_ms", time.Since(start).Milliseconds())
	return res, nil
}

// surroundings returns up to three characters before and after item on
// every line that contains it once spaces are removed.
func surroundings(text, item string) []PatternResult {
	var out []PatternResult
	for _, line := range strings.Split(text, "\n") {
		clean := squash(line, " ")
		idx := strings.Index(clean, item)
		if idx < 0 {
			continue
		}
		before := []rune(clean[:idx])
		after := []rune(clean[idx+len(item):])
		if len(before) > 0 {
			v := string(before[max(0, len(before)-contextChars):])
			out = append(out, PatternResult{Type: PatternPrefix, Value: v, Context: line})
		}
		if len(after) > 0 {
			v := string(after[:min(len(after), contextChars)])
			out = append(out, PatternResult{Type: PatternSuffix, Value: v, Context: line})
		}
	}
	return out
}

func squash(s string, cut ...string) string {
	for _, c := range cut {
		s = strings.ReplaceAll(s, c, "")
	}
	return s
}

// ExampleInput is one labeled image for TrainBatch.
type ExampleInput struct {
	ItemNumber  string `json:"item_number"`
	ImagePath   string `json:"image_path"`
	Description string `json:"description,omitempty"`
}

type ExampleResult struct {
	Success    bool            `json:"success"`
	ItemNumber string          `json:"item_number,omitempty"`
	Error      string          `json:"error,omitempty"`
	Analysis   *AnalysisResult `json:"analysis,omitempty"`
}

type BatchResult struct {
	ExamplesProcessed int             `json:"examples_processed"`
	Successful        int             `json:"successful"`
	TrainingSummary   Summary         `json:"training_summary"`
	Results           []ExampleResult `json:"results"`
}

// TrainBatch analyzes each labeled image. Each input is recorded as exactly
// one example; a failed input does not stop the batch.
func (t *Trainer) TrainBatch(ctx context.Context, inputs []ExampleInput) (BatchResult, error) {
	out := BatchResult{ExamplesProcessed: len(inputs), Results: make([]ExampleResult, 0, len(inputs))}
	for _, in := range inputs {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		if in.ItemNumber == "" || in.ImagePath == "" {
			out.Results = append(out.Results, ExampleResult{Error: "Missing item_number or image_path"})
			continue
		}
		desc := in.Description
		if desc == "" {
			desc = "Example for " + in.ItemNumber
		}
		res, err := t.analyze(ctx, in.ImagePath, in.ItemNumber, desc)
		if err != nil {
			t.logger.Warn("training.batch.example_failed", "item_number", in.ItemNumber, "error", err)
			out.Results = append(out.Results, ExampleResult{ItemNumber: in.ItemNumber, Error: err.Error()})
			continue
		}
		out.Successful++
		out.Results = append(out.Results, ExampleResult{Success: true, ItemNumber: in.ItemNumber, Analysis: &res})
	}
	sum, err := t.Summary(ctx)
	if err != nil {
		return out, err
	}
	out.TrainingSummary = sum
	return out, nil
}
