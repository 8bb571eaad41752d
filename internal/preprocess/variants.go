package preprocess

import "image"

// Variant is a named preprocessing chain.
type Variant struct {
	Name  string
	Apply func(image.Image) *image.NRGBA
}

// Defaults used by the OCR passes.
const (
	BinaryThreshold = 150
	AdaptiveBlock   = 11
	AdaptiveC       = 2
	CLAHEGrid       = 8
	CLAHEClip       = 2.0
	MinOCRHeight    = 1000
)

// StandardVariants is the full-pass set: binary, adaptive, otsu, and a
// denoise+sharpen+CLAHE chain.
func StandardVariants() []Variant {
	return []Variant{
		{Name: "binary", Apply: func(img image.Image) *image.NRGBA { return Binary(img, BinaryThreshold) }},
		{Name: "adaptive", Apply: func(img image.Image) *image.NRGBA { return Adaptive(img, AdaptiveBlock, AdaptiveC) }},
		{Name: "otsu", Apply: Otsu},
		{Name: "enhanced", Apply: func(img image.Image) *image.NRGBA {
			return CLAHE(Sharpen(Denoise(img)), CLAHEGrid, CLAHEClip)
		}},
	}
}
