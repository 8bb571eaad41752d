package ocr

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"slices"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/disintegration/imaging"
)

type fakeRunner struct {
	args   []string
	stdout string
	err    error
	seen   bool // temp image existed while the command ran
}

func (f *fakeRunner) Run(_ context.Context, _ string, args ...string) ([]byte, []byte, error) {
	f.args = args
	if _, err := os.Stat(args[0]); err == nil {
		f.seen = true
	}
	return []byte(f.stdout), []byte("boom"), f.err
}

func testImage() image.Image {
	return imaging.New(40, 20, color.NRGBA{255, 255, 255, 255})
}

func TestTesseractArgsAndCleanup(t *testing.T) {
	dir := t.TempDir()
	fr := &fakeRunner{stdout: "1234567\t 4.99\r\n"}
	tess := NewTesseract(Config{ArtifactCacheDir: dir, TessdataDir: "/td"}, nil).WithRunner(fr)

	got, err := tess.Recognize(context.Background(), testImage(), Options{PSM: PSMBlock, Whitelist: DigitWhitelist})
	if err != nil {
		t.Fatalf("recognize: %v", err)
	}
	if got != "1234567 4.99" {
		t.Fatalf("unexpected text %q", got)
	}
	if !fr.seen {
		t.Fatalf("temp image missing while tesseract ran")
	}
	want := []string{"stdout", "-l", "eng", "--psm", "6", "-c", "tessedit_char_whitelist=" + DigitWhitelist, "--tessdata-dir", "/td"}
	if !slices.Equal(fr.args[1:], want) {
		t.Fatalf("unexpected args %v", fr.args)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Fatalf("expected temp image removed, found %d files", len(entries))
	}
}

func TestTesseractKeepsArtifacts(t *testing.T) {
	dir := t.TempDir()
	tess := NewTesseract(Config{ArtifactCacheDir: dir, KeepArtifacts: true}, nil).WithRunner(&fakeRunner{})
	if _, err := tess.Recognize(context.Background(), testImage(), Options{}); err != nil {
		t.Fatalf("recognize: %v", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("expected kept artifact, found %d files", len(entries))
	}
}

func TestTesseractError(t *testing.T) {
	tess := NewTesseract(Config{ArtifactCacheDir: t.TempDir()}, nil).WithRunner(&fakeRunner{err: errors.New("exit 1")})
	_, err := tess.Recognize(context.Background(), testImage(), Options{PSM: PSMSparse})
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("expected wrapped error with stderr got %v", err)
	}
}

func TestNormalize(t *testing.T) {
	in := "0123456  \t 9.99\r\n-----\n\n\n\nDate: 03/01/24  "
	got := Normalize(in)
	want := "0123456 9.99\n\nDate: 03/01/24"
	if got != want {
		t.Fatalf("expected %q got %q", want, got)
	}
}

func TestFullPassRunsEveryCombination(t *testing.T) {
	var calls atomic.Int32
	rec := RecognizerFunc(func(_ context.Context, _ image.Image, o Options) (string, error) {
		calls.Add(1)
		if o.PSM == PSMColumn {
			return "", nil
		}
		return "7654321", nil
	})
	txt, err := FullPass(context.Background(), rec, testImage(), nil)
	if err != nil {
		t.Fatalf("full pass: %v", err)
	}
	if calls.Load() != 12 {
		t.Fatalf("expected 12 recognitions got %d", calls.Load())
	}
	if strings.Count(txt, "7654321") != 8 {
		t.Fatalf("expected 8 non-empty texts got %q", txt)
	}
}

func TestFullPassStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	rec := RecognizerFunc(func(_ context.Context, _ image.Image, _ Options) (string, error) {
		if calls.Add(1) == 2 {
			cancel()
		}
		return "111111", nil
	})
	txt, err := FullPass(ctx, rec, testImage(), nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled got %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected recognition to stop after 2 calls got %d", calls.Load())
	}
	if strings.Count(txt, "111111") != 2 {
		t.Fatalf("expected partial text got %q", txt)
	}
}

func TestQuickPassFallsBackToCenterBand(t *testing.T) {
	var heights []int
	rec := RecognizerFunc(func(_ context.Context, img image.Image, _ Options) (string, error) {
		heights = append(heights, img.Bounds().Dy())
		if len(heights) == 1 {
			return "no digits", nil
		}
		return "2345678", nil
	})
	txt, err := QuickPass(context.Background(), rec, testImage())
	if err != nil {
		t.Fatalf("quick pass: %v", err)
	}
	if len(heights) != 2 || heights[1] >= heights[0] {
		t.Fatalf("expected a second, smaller crop got %v", heights)
	}
	if !strings.Contains(txt, "2345678") {
		t.Fatalf("unexpected text %q", txt)
	}
}

func TestQuickPassSinglePassWhenDigitsFound(t *testing.T) {
	calls := 0
	rec := RecognizerFunc(func(context.Context, image.Image, Options) (string, error) {
		calls++
		return "1234567", nil
	})
	if _, err := QuickPass(context.Background(), rec, testImage()); err != nil {
		t.Fatalf("quick pass: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call got %d", calls)
	}
}
