package preprocess

import (
	"image"

	"github.com/disintegration/imaging"
)

// Region is a rectangle expressed as fractions of the image size.
type Region struct {
	Top    float64 `json:"top"`
	Left   float64 `json:"left"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// NamedRegion pairs a region with a stable name used in logs and training.
type NamedRegion struct {
	Name   string
	Region Region
}

// Rect converts the fractions to pixels for a bounds, clamped to the image.
// The result is empty when the region falls outside the image.
func (r Region) Rect(b image.Rectangle) image.Rectangle {
	w, h := float64(b.Dx()), float64(b.Dy())
	x0 := b.Min.X + int(clamp01(r.Left)*w)
	y0 := b.Min.Y + int(clamp01(r.Top)*h)
	x1 := b.Min.X + int(clamp01(r.Left+r.Width)*w)
	y1 := b.Min.Y + int(clamp01(r.Top+r.Height)*h)
	return image.Rect(x0, y0, x1, y1).Intersect(b)
}

// Crop cuts a region out of img. ok is false when the region is empty.
func Crop(img image.Image, r Region) (*image.NRGBA, bool) {
	rect := r.Rect(img.Bounds())
	if rect.Empty() {
		return nil, false
	}
	return imaging.Crop(img, rect), true
}

var (
	LeftThird  = Region{Top: 0, Left: 0, Width: 1.0 / 3, Height: 1}
	CenterBand = Region{Top: 0.25, Left: 0, Width: 1, Height: 0.5}
)

// Quadrants returns the four quarter regions in reading order.
func Quadrants() []NamedRegion {
	return []NamedRegion{
		{Name: "top_left", Region: Region{Top: 0, Left: 0, Width: 0.5, Height: 0.5}},
		{Name: "top_right", Region: Region{Top: 0, Left: 0.5, Width: 0.5, Height: 0.5}},
		{Name: "bottom_left", Region: Region{Top: 0.5, Left: 0, Width: 0.5, Height: 0.5}},
		{Name: "bottom_right", Region: Region{Top: 0.5, Left: 0.5, Width: 0.5, Height: 0.5}},
	}
}

// BandNames are the four horizontal quarter-height bands, top to bottom.
var BandNames = []string{"top", "upper_middle", "lower_middle", "bottom"}

// Bands returns non-overlapping quarter-height bands spanning left..left+width.
func Bands(left, width float64) []NamedRegion {
	out := make([]NamedRegion, len(BandNames))
	for i, name := range BandNames {
		out[i] = NamedRegion{
			Name:   name,
			Region: Region{Top: float64(i) * 0.25, Left: left, Width: width, Height: 0.25},
		}
	}
	return out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
