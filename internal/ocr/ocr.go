// Package ocr wraps a text recognition engine behind Recognizer and runs the
// multi-variant passes the extraction cascade needs.
package ocr

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"strconv"

	"github.com/disintegration/imaging"
)

// Tesseract page segmentation modes used by the passes.
const (
	PSMColumn = 4
	PSMBlock  = 6
	PSMSparse = 11
)

// DigitWhitelist restricts recognition to item numbers, dates and times.
const DigitWhitelist = "0123456789./:-"

// Options configure a single recognition call.
type Options struct {
	PSM       int
	Whitelist string
	Lang      string // empty means the engine default
}

// Recognizer turns an image into text.
type Recognizer interface {
	Recognize(ctx context.Context, img image.Image, opts Options) (string, error)
}

type Config struct {
	Tesseract        string // binary name or absolute path; if empty -> "tesseract"
	Lang             string // default "eng"
	TessdataDir      string
	ArtifactCacheDir string // temp images are written here
	KeepArtifacts    bool
}

// Tesseract shells out to the tesseract binary.
type Tesseract struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewTesseract(cfg Config, logger *slog.Logger) *Tesseract {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.Lang == "" {
		cfg.Lang = "eng"
	}
	if cfg.ArtifactCacheDir == "" {
		cfg.ArtifactCacheDir = os.TempDir()
	}
	return &Tesseract{cfg: cfg, runner: execRunner{logger: logger}, logger: logger}
}

// WithRunner swaps the command runner, mostly for tests.
func (t *Tesseract) WithRunner(r Runner) *Tesseract {
	t.runner = r
	return t
}

func (t *Tesseract) Recognize(ctx context.Context, img image.Image, opts Options) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path, cleanup, err := t.writeTemp(img)
	if err != nil {
		return "", err
	}
	defer cleanup()

	lang := opts.Lang
	if lang == "" {
		lang = t.cfg.Lang
	}
	args := []string{path, "stdout", "-l", lang}
	if opts.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(opts.PSM))
	}
	if opts.Whitelist != "" {
		args = append(args, "-c", "tessedit_char_whitelist="+opts.Whitelist)
	}
	if t.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", t.cfg.TessdataDir)
	}

	out, errb, err := t.runner.Run(ctx, t.cfg.Tesseract, args...)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("tesseract psm %d: %w: %s", opts.PSM, err, truncate(string(errb), 512))
	}
	return Normalize(string(out)), nil
}

func (t *Tesseract) writeTemp(img image.Image) (string, func(), error) {
	if err := os.MkdirAll(t.cfg.ArtifactCacheDir, 0o755); err != nil {
		return "", nil, fmt.Errorf("artifact dir: %w", err)
	}
	f, err := os.CreateTemp(t.cfg.ArtifactCacheDir, "ocr-*.png")
	if err != nil {
		return "", nil, fmt.Errorf("temp image: %w", err)
	}
	name := f.Name()
	cleanup := func() {
		if !t.cfg.KeepArtifacts {
			_ = os.Remove(name)
		}
	}
	if err := imaging.Encode(f, img, imaging.PNG); err != nil {
		_ = f.Close()
		_ = os.Remove(name)
		return "", nil, fmt.Errorf("encode temp image: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(name)
		return "", nil, fmt.Errorf("close temp image: %w", err)
	}
	return name, cleanup, nil
}

// RecognizerFunc adapts a function to Recognizer.
type RecognizerFunc func(ctx context.Context, img image.Image, opts Options) (string, error)

func (f RecognizerFunc) Recognize(ctx context.Context, img image.Image, opts Options) (string, error) {
	return f(ctx, img, opts)
}
