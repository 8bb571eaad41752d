package direct

import (
	"context"
	"image"
	"image/color"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/oned"
)

var fixed = time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

func barcodeImage(t *testing.T, text string) image.Image {
	t.Helper()
	bm, err := oned.NewCode128Writer().Encode(text, gozxing.BarcodeFormat_CODE_128, 300, 80, nil)
	if err != nil {
		t.Fatalf("encode barcode: %v", err)
	}
	bg := imaging.New(400, 140, color.NRGBA{255, 255, 255, 255})
	return imaging.Paste(bg, bm, image.Pt(50, 30))
}

func save(t *testing.T, name string, img image.Image) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := imaging.Save(img, p); err != nil {
		t.Fatalf("save: %v", err)
	}
	return p
}

func TestFromFilename(t *testing.T) {
	cases := map[string][]string{
		"3f2b8c1e-9a4d-4e6f-8b2a-1c3d5e7f9a0b_1234567.png":             {"1234567"},
		"item-7654321-and-7654321.jpg":                                 {"7654321"},
		"scan_20240315_0012345_123.png":                                nil,
		"receipt.png":                                                  nil,
		"987654321012.tif":                                             {"987654321012"},
		"3f2b8c1e-9a4d-4e6f-8b2a-1c3d5e7f9a0b_IMG_20240317_143052.jpg": nil,
		"PXL_20240317_143052123.jpg":                                   nil,
		"DSC_1234567.jpg":                                              nil,
		"Screenshot 2024-03-17 143052.png":                             nil,
		"refund_2024-03-17_1234567.png":                                nil,
	}
	for name, want := range cases {
		if got := FromFilename(filepath.Join("/tmp", name)); !reflect.DeepEqual(got, want) {
			t.Fatalf("FromFilename(%q): expected %v got %v", name, want, got)
		}
	}
}

func TestExtractFilenameFirst(t *testing.T) {
	p := save(t, "1234567.png", barcodeImage(t, "7654321"))
	got, err := New(WithClock(func() time.Time { return fixed })).Extract(context.Background(), p)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(got) != 1 || got[0].ItemNumber != "1234567" || got[0].Method != MethodFilename {
		t.Fatalf("unexpected matches %+v", got)
	}
	if !got[0].At.Equal(fixed) {
		t.Fatalf("expected clock time got %v", got[0].At)
	}
}

func TestBarcodes(t *testing.T) {
	got, err := Barcodes(context.Background(), barcodeImage(t, "7654321"))
	if err != nil {
		t.Fatalf("barcodes: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"7654321"}) {
		t.Fatalf("expected [7654321] got %v", got)
	}
}

func TestExtractBarcode(t *testing.T) {
	p := save(t, "scan.png", barcodeImage(t, "7654321"))
	got, err := New().Extract(context.Background(), p)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(got) != 1 || got[0].Method != MethodBarcode || got[0].Confidence != BarcodeConfidence {
		t.Fatalf("unexpected matches %+v", got)
	}
}

func TestPlaceholderOffByDefault(t *testing.T) {
	blank := imaging.New(200, 100, color.NRGBA{255, 255, 255, 255})
	p := save(t, "blank.png", blank)

	got, err := New().Extract(context.Background(), p)
	if err != nil || len(got) != 0 {
		t.Fatalf("expected nothing got %+v %v", got, err)
	}

	got, err = New(WithPlaceholder(true)).Extract(context.Background(), p)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(got) != 1 || got[0].ItemNumber != PlaceholderItemNumber || got[0].Confidence != PlaceholderConfidence {
		t.Fatalf("unexpected placeholder %+v", got)
	}
	if r := got[0].ItemRecord(); r.Description != PlaceholderDescription {
		t.Fatalf("expected description %q got %q", PlaceholderDescription, r.Description)
	}
}

func TestExtractCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := save(t, "scan.png", barcodeImage(t, "7654321"))
	if _, err := New().Extract(ctx, p); err == nil {
		t.Fatalf("expected context error")
	}
}
