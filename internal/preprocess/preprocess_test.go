package preprocess

import (
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
)

// halves builds an image whose left half is dark and right half light.
func halves(w, h int, dark, light uint8) *image.NRGBA {
	img := imaging.New(w, h, color.NRGBA{light, light, light, 255})
	for y := 0; y < h; y++ {
		for x := 0; x < w/2; x++ {
			img.Set(x, y, color.NRGBA{dark, dark, dark, 255})
		}
	}
	return img
}

func TestBinary(t *testing.T) {
	out := Binary(halves(10, 4, 100, 200), 150)
	if lum(out, 0, 0) != 0 || lum(out, 9, 0) != 255 {
		t.Fatalf("expected black/white got %d/%d", lum(out, 0, 0), lum(out, 9, 0))
	}
}

func TestOtsuSplitsBimodal(t *testing.T) {
	img := halves(20, 10, 40, 220)
	th := OtsuThreshold(img)
	if th < 40 || th >= 220 {
		t.Fatalf("threshold %d should separate 40 and 220", th)
	}
	out := Otsu(img)
	if lum(out, 0, 0) != 0 || lum(out, 19, 9) != 255 {
		t.Fatalf("otsu output not binarized as expected")
	}
}

func TestAdaptiveUniformIsWhite(t *testing.T) {
	img := imaging.New(15, 15, color.NRGBA{128, 128, 128, 255})
	out := Adaptive(img, 11, 2)
	for y := 0; y < 15; y++ {
		for x := 0; x < 15; x++ {
			if lum(out, x, y) != 255 {
				t.Fatalf("expected white at %d,%d", x, y)
			}
		}
	}
}

func TestAdaptiveFindsDarkStroke(t *testing.T) {
	img := imaging.New(21, 21, color.NRGBA{200, 200, 200, 255})
	img.Set(10, 10, color.NRGBA{0, 0, 0, 255})
	out := Adaptive(img, 10, 2)
	if lum(out, 10, 10) != 0 {
		t.Fatalf("expected dark stroke to survive")
	}
	if lum(out, 0, 0) != 255 {
		t.Fatalf("expected background white")
	}
}

func TestCLAHEKeepsSize(t *testing.T) {
	img := halves(64, 48, 90, 110)
	out := CLAHE(img, 8, 2.0)
	if out.Bounds().Dx() != 64 || out.Bounds().Dy() != 48 {
		t.Fatalf("unexpected bounds %v", out.Bounds())
	}
	out = CLAHE(img, 1, 2.0)
	if lum(out, 0, 0) >= lum(out, 63, 0) {
		t.Fatalf("expected ordering preserved: %d vs %d", lum(out, 0, 0), lum(out, 63, 0))
	}
}

func TestUpscale(t *testing.T) {
	img := imaging.New(50, 100, color.NRGBA{255, 255, 255, 255})
	out := Upscale(img, 400)
	if out.Bounds().Dy() != 400 || out.Bounds().Dx() != 200 {
		t.Fatalf("unexpected size %v", out.Bounds())
	}
	if Upscale(out, 100).Bounds().Dy() != 400 {
		t.Fatalf("tall images must not be resized")
	}
}

func TestRegionRectClamps(t *testing.T) {
	b := image.Rect(0, 0, 300, 400)
	got := Region{Top: 0.9, Left: 0.5, Width: 1, Height: 0.5}.Rect(b)
	if got != image.Rect(150, 360, 300, 400) {
		t.Fatalf("unexpected rect %v", got)
	}
	if _, ok := Crop(imaging.New(10, 10, color.White), Region{Top: 1.2, Height: 0.5, Width: 1}); ok {
		t.Fatalf("expected empty crop")
	}
	c, ok := Crop(imaging.New(300, 400, color.White), LeftThird)
	if !ok || c.Bounds().Dx() < 99 || c.Bounds().Dx() > 100 || c.Bounds().Dy() != 400 {
		t.Fatalf("unexpected left third %v", c.Bounds())
	}
}

func TestBandsDoNotOverlap(t *testing.T) {
	bands := Bands(0, 1)
	if len(bands) != 4 {
		t.Fatalf("expected 4 bands got %d", len(bands))
	}
	for i := 1; i < len(bands); i++ {
		prev := bands[i-1].Region
		if bands[i].Region.Top < prev.Top+prev.Height {
			t.Fatalf("band %s overlaps %s", bands[i].Name, bands[i-1].Name)
		}
	}
	if len(Quadrants()) != 4 {
		t.Fatalf("expected 4 quadrants")
	}
}

func TestLoadGrayscale(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.png")
	if err := imaging.Save(imaging.New(8, 8, color.NRGBA{255, 0, 0, 255}), path); err != nil {
		t.Fatalf("save: %v", err)
	}
	img, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	p := img.NRGBAAt(0, 0)
	if p.R != p.G || p.G != p.B {
		t.Fatalf("expected gray pixel got %+v", p)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.png")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestStandardVariants(t *testing.T) {
	img := halves(32, 32, 30, 230)
	for _, v := range StandardVariants() {
		out := v.Apply(img)
		if out.Bounds().Dx() != 32 {
			t.Fatalf("variant %s changed width", v.Name)
		}
	}
}
