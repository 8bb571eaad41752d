package ocr

import (
	"context"
	"image"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/refund-audit/internal/preprocess"
)

// Pass is one recognition configuration run over a preprocessed variant.
type Pass struct {
	Name    string
	Options Options
}

// FullPasses are run over every preprocessing variant.
var FullPasses = []Pass{
	{Name: "digits_block", Options: Options{PSM: PSMBlock, Whitelist: DigitWhitelist}},
	{Name: "column", Options: Options{PSM: PSMColumn}},
	{Name: "sparse", Options: Options{PSM: PSMSparse}},
}

// FullPass recognizes img under every standard variant and pass, and joins
// the non-empty texts. The context is checked between passes; on
// cancellation the text read so far is returned with ctx.Err().
func FullPass(ctx context.Context, rec Recognizer, img image.Image, logger *slog.Logger) (string, error) {
	if logger == nil {
		logger = slog.Default()
	}
	base := preprocess.Upscale(img, preprocess.MinOCRHeight)
	var texts []string
	for _, v := range preprocess.StandardVariants() {
		if err := ctx.Err(); err != nil {
			return join(texts), err
		}
		variant := v.Apply(base)
		for _, p := range FullPasses {
			if err := ctx.Err(); err != nil {
				return join(texts), err
			}
			start := time.Now()
			txt, err := rec.Recognize(ctx, variant, p.Options)
			if err != nil {
				if ctx.Err() != nil {
					return join(texts), ctx.Err()
				}
				logger.Warn("ocr.pass.failed", "variant", v.Name, "pass", p.Name, "error", err)
				continue
			}
			logger.Debug("ocr.pass.ok", "variant", v.Name, "pass", p.Name,
				"chars", len(txt), "elapsed_ms", time.Since(start).Milliseconds())
			if strings.TrimSpace(txt) != "" {
				texts = append(texts, txt)
			}
		}
	}
	return join(texts), nil
}

// QuickPass is the cheap fallback: upscale, binarize, one digit-only block
// pass over the whole image, then the center band when no digits were read.
func QuickPass(ctx context.Context, rec Recognizer, img image.Image) (string, error) {
	bin := preprocess.Binary(preprocess.Upscale(img, preprocess.MinOCRHeight), preprocess.BinaryThreshold)
	opts := Options{PSM: PSMBlock, Whitelist: DigitWhitelist}

	txt, err := rec.Recognize(ctx, bin, opts)
	if err != nil && ctx.Err() != nil {
		return "", ctx.Err()
	}
	if HasDigit(txt) {
		return txt, nil
	}
	band, ok := preprocess.Crop(bin, preprocess.CenterBand)
	if !ok {
		return txt, err
	}
	bandTxt, bandErr := rec.Recognize(ctx, band, opts)
	if bandErr != nil {
		if ctx.Err() != nil {
			return txt, ctx.Err()
		}
		if err != nil {
			return "", bandErr
		}
	}
	return join([]string{txt, bandTxt}), nil
}

func join(texts []string) string {
	out := make([]string, 0, len(texts))
	for _, t := range texts {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return strings.Join(out, "\n")
}
