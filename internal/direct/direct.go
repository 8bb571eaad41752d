// Package direct finds item numbers without a recognition engine: from the
// upload's file name and from 1-D barcodes printed on the image.
package direct

import (
	"context"
	"image"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/oned"

	"github.com/joseph-ayodele/refund-audit/internal/pattern"
	"github.com/joseph-ayodele/refund-audit/internal/preprocess"
	"github.com/joseph-ayodele/refund-audit/internal/record"
)

const (
	MethodFilename    = "filename"
	MethodBarcode     = "barcode"
	MethodPlaceholder = "placeholder"

	FilenameConfidence    = 0.6
	BarcodeConfidence     = 0.95
	PlaceholderConfidence = 0.1

	PlaceholderItemNumber  = "1234567"
	PlaceholderDescription = "Direct Processing"
)

var (
	reUploadPrefix = regexp.MustCompile(`(?i)^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}[_\-.]?`)
	reNameDigits   = regexp.MustCompile(`\d+`)
	reCameraName   = regexp.MustCompile(`(?i)^(img|pxl|dsc[fn]?|dcim|vid|mvimg|photo|screenshot|whatsapp image|signal)[_\- ]`)
	reNameDate     = regexp.MustCompile(`(?:^|\D)(19|20)\d{2}[-_.]?(0[1-9]|1[0-2])[-_.]?(0[1-9]|[12]\d|3[01])(?:\D|$)`)
)

// Detector runs the direct heuristics in order: file name, barcode, then the
// optional placeholder.
type Detector struct {
	placeholder bool
	logger      *slog.Logger
	now         func() time.Time
}

type Option func(*Detector)

// WithPlaceholder enables the canned last-resort record.
func WithPlaceholder(on bool) Option {
	return func(d *Detector) { d.placeholder = on }
}

func WithLogger(l *slog.Logger) Option {
	return func(d *Detector) { d.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(d *Detector) { d.now = now }
}

func New(opts ...Option) *Detector {
	d := &Detector{logger: slog.Default(), now: time.Now}
	for _, o := range opts {
		o(d)
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	return d
}

// Extract returns the matches of the first heuristic that finds anything.
// An image that cannot be decoded is not an error; the barcode step is
// skipped.
func (d *Detector) Extract(ctx context.Context, path string) ([]record.DirectMatch, error) {
	at := d.now()

	if nums := FromFilename(path); len(nums) > 0 {
		d.logger.Info("direct.filename.hit", "path", path, "items", len(nums))
		return matches(nums, MethodFilename, FilenameConfidence, at), nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, err := preprocess.Load(path)
	if err != nil {
		d.logger.Debug("direct.barcode.skip", "path", path, "error", err)
	} else {
		nums, err := Barcodes(ctx, img)
		if err != nil {
			return nil, err
		}
		if len(nums) > 0 {
			d.logger.Info("direct.barcode.hit", "path", path, "items", len(nums))
			return matches(nums, MethodBarcode, BarcodeConfidence, at), nil
		}
	}

	if d.placeholder {
		d.logger.Warn("direct.placeholder", "path", path)
		return []record.DirectMatch{{
			ItemNumber:  PlaceholderItemNumber,
			Method:      MethodPlaceholder,
			Description: PlaceholderDescription,
			Confidence:  PlaceholderConfidence,
			At:          at,
		}}, nil
	}
	return nil, nil
}

// FromFilename lists plausible 6-12 digit runs of the base name, ignoring
// the UUID prefix added on upload. Camera and screenshot names, and names
// carrying a date, are timestamps and yield nothing.
func FromFilename(path string) []string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = reUploadPrefix.ReplaceAllString(base, "")
	if reCameraName.MatchString(base) || reNameDate.MatchString(base) {
		return nil
	}

	var out []string
	seen := make(map[string]struct{})
	for _, v := range reNameDigits.FindAllString(base, -1) {
		if len(v) < 6 || len(v) > 12 || !pattern.Plausible(v) {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func readers() []gozxing.Reader {
	return []gozxing.Reader{
		oned.NewEAN13Reader(),
		oned.NewUPCAReader(),
		oned.NewCode128Reader(),
		oned.NewCode39Reader(),
		oned.NewITFReader(),
	}
}

// Barcodes decodes 1-D barcodes from img, trying the image as is and turned
// a quarter so vertical codes are read too.
func Barcodes(ctx context.Context, img image.Image) ([]string, error) {
	hints := map[gozxing.DecodeHintType]interface{}{gozxing.DecodeHintType_TRY_HARDER: true}
	var out []string
	seen := make(map[string]struct{})
	for _, view := range []image.Image{img, imaging.Rotate90(img)} {
		bmp, err := gozxing.NewBinaryBitmapFromImage(view)
		if err != nil {
			return nil, err
		}
		for _, r := range readers() {
			if err := ctx.Err(); err != nil {
				return out, err
			}
			res, err := r.Decode(bmp, hints)
			if err != nil {
				continue
			}
			v := record.CleanItemNumber(res.GetText())
			if v == "" {
				continue
			}
			if _, dup := seen[v]; dup {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
		if len(out) > 0 {
			break
		}
	}
	return out, nil
}

func matches(nums []string, method string, conf float64, at time.Time) []record.DirectMatch {
	out := make([]record.DirectMatch, 0, len(nums))
	for _, n := range nums {
		out = append(out, record.DirectMatch{ItemNumber: n, Method: method, Confidence: conf, At: at})
	}
	return out
}
