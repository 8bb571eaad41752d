// Package libtess is the in-process recognizer backed by libtesseract.
// It needs cgo and the tesseract headers; the CLI recognizer in package ocr
// has no such requirement.
package libtess

import (
	"bytes"
	"context"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"

	"github.com/joseph-ayodele/refund-audit/internal/ocr"
)

type Config struct {
	Lang        string
	TessdataDir string
}

// Recognizer creates one client per call; gosseract clients are not safe
// for concurrent use.
type Recognizer struct {
	cfg Config
}

func New(cfg Config) *Recognizer {
	if cfg.Lang == "" {
		cfg.Lang = "eng"
	}
	return &Recognizer{cfg: cfg}
}

var _ ocr.Recognizer = (*Recognizer)(nil)

type result struct {
	text string
	err  error
}

// Recognize runs the engine in a goroutine. libtesseract cannot be
// interrupted, so on cancellation the call returns and the goroutine is
// left to finish on its own.
func (r *Recognizer) Recognize(ctx context.Context, img image.Image, opts ocr.Options) (string, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return "", fmt.Errorf("encode image: %w", err)
	}
	done := make(chan result, 1)
	go func() {
		txt, err := r.run(buf.Bytes(), opts)
		done <- result{text: txt, err: err}
	}()
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-done:
		if res.err != nil {
			return "", res.err
		}
		return ocr.Normalize(res.text), nil
	}
}

func (r *Recognizer) run(png []byte, opts ocr.Options) (string, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if r.cfg.TessdataDir != "" {
		if err := client.SetTessdataPrefix(r.cfg.TessdataDir); err != nil {
			return "", fmt.Errorf("tessdata: %w", err)
		}
	}
	lang := opts.Lang
	if lang == "" {
		lang = r.cfg.Lang
	}
	if err := client.SetLanguage(lang); err != nil {
		return "", fmt.Errorf("language: %w", err)
	}
	if opts.PSM > 0 {
		if err := client.SetPageSegMode(gosseract.PageSegMode(opts.PSM)); err != nil {
			return "", fmt.Errorf("psm: %w", err)
		}
	}
	if opts.Whitelist != "" {
		if err := client.SetWhitelist(opts.Whitelist); err != nil {
			return "", fmt.Errorf("whitelist: %w", err)
		}
	}
	if err := client.SetImageFromBytes(png); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	txt, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("gosseract text: %w", err)
	}
	return txt, nil
}
