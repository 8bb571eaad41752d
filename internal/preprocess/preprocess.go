// Package preprocess prepares receipt images for recognition: grayscale,
// resizing, thresholding, denoising and contrast equalization. Every function
// returns a new grayscale *image.NRGBA anchored at (0,0) and leaves its input
// untouched.
package preprocess

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
)

// Load opens an image file and converts it to grayscale.
func Load(path string) (*image.NRGBA, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("open image %s: %w", path, err)
	}
	return imaging.Grayscale(img), nil
}

// Gray converts any image to the grayscale form the other functions expect.
func Gray(img image.Image) *image.NRGBA {
	return imaging.Grayscale(img)
}

// Upscale enlarges images shorter than minHeight with Lanczos resampling.
func Upscale(img image.Image, minHeight int) *image.NRGBA {
	g := Gray(img)
	if g.Bounds().Dy() >= minHeight || g.Bounds().Dy() == 0 {
		return g
	}
	return imaging.Resize(g, 0, minHeight, imaging.Lanczos)
}

// Binary sets pixels at or below threshold to black and the rest to white.
func Binary(img image.Image, threshold uint8) *image.NRGBA {
	g := Gray(img)
	out := imaging.New(g.Bounds().Dx(), g.Bounds().Dy(), color.NRGBA{255, 255, 255, 255})
	w, h := g.Bounds().Dx(), g.Bounds().Dy()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(255)
			if lum(g, x, y) <= threshold {
				v = 0
			}
			setLum(out, x, y, v)
		}
	}
	return out
}

// Adaptive thresholds each pixel against the mean of its block x block
// neighbourhood minus c. Block is forced odd and at least 3.
func Adaptive(img image.Image, block, c int) *image.NRGBA {
	if block < 3 {
		block = 3
	}
	if block%2 == 0 {
		block++
	}
	g := Gray(img)
	w, h := g.Bounds().Dx(), g.Bounds().Dy()
	out := imaging.New(w, h, color.NRGBA{255, 255, 255, 255})
	if w == 0 || h == 0 {
		return out
	}
	half := block / 2

	// integral image with a zero row and column
	ints := make([]int, (w+1)*(h+1))
	for y := 0; y < h; y++ {
		rowSum := 0
		for x := 0; x < w; x++ {
			rowSum += int(lum(g, x, y))
			ints[(y+1)*(w+1)+x+1] = ints[y*(w+1)+x+1] + rowSum
		}
	}

	for y := 0; y < h; y++ {
		y0, y1 := max(y-half, 0), min(y+half, h-1)
		for x := 0; x < w; x++ {
			x0, x1 := max(x-half, 0), min(x+half, w-1)
			sum := ints[(y1+1)*(w+1)+x1+1] - ints[y0*(w+1)+x1+1] - ints[(y1+1)*(w+1)+x0] + ints[y0*(w+1)+x0]
			mean := sum / ((x1 - x0 + 1) * (y1 - y0 + 1))
			v := uint8(255)
			if int(lum(g, x, y)) <= mean-c {
				v = 0
			}
			setLum(out, x, y, v)
		}
	}
	return out
}

// OtsuThreshold computes the threshold that maximizes between-class variance.
func OtsuThreshold(img image.Image) uint8 {
	g := Gray(img)
	w, h := g.Bounds().Dx(), g.Bounds().Dy()
	total := w * h
	if total == 0 {
		return 127
	}
	var hist [256]int
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			hist[lum(g, x, y)]++
		}
	}
	sumAll := 0.0
	for i, n := range hist {
		sumAll += float64(i * n)
	}
	var (
		sumB     float64
		weightB  int
		best     float64
		bestT    int
		foundAny bool
	)
	for t := 0; t < 256; t++ {
		weightB += hist[t]
		if weightB == 0 {
			continue
		}
		weightF := total - weightB
		if weightF == 0 {
			break
		}
		sumB += float64(t * hist[t])
		meanB := sumB / float64(weightB)
		meanF := (sumAll - sumB) / float64(weightF)
		between := float64(weightB) * float64(weightF) * (meanB - meanF) * (meanB - meanF)
		if !foundAny || between > best {
			best, bestT, foundAny = between, t, true
		}
	}
	if !foundAny {
		return 127
	}
	return uint8(bestT)
}

// Otsu binarizes with the Otsu threshold.
func Otsu(img image.Image) *image.NRGBA {
	return Binary(img, OtsuThreshold(img))
}

// Denoise applies a light Gaussian blur.
func Denoise(img image.Image) *image.NRGBA {
	return imaging.Blur(Gray(img), 0.8)
}

// Sharpen restores edges after Denoise.
func Sharpen(img image.Image) *image.NRGBA {
	return imaging.Sharpen(Gray(img), 1.0)
}

// CLAHE equalizes contrast per tile on a grid x grid layout, clipping each
// tile histogram at clip times the mean bin height, and blends neighbouring
// tiles bilinearly.
func CLAHE(img image.Image, grid int, clip float64) *image.NRGBA {
	if grid < 1 {
		grid = 8
	}
	if clip <= 0 {
		clip = 2.0
	}
	g := Gray(img)
	w, h := g.Bounds().Dx(), g.Bounds().Dy()
	out := imaging.New(w, h, color.NRGBA{255, 255, 255, 255})
	if w == 0 || h == 0 {
		return out
	}
	tw := int(math.Ceil(float64(w) / float64(grid)))
	th := int(math.Ceil(float64(h) / float64(grid)))
	gx := int(math.Ceil(float64(w) / float64(tw)))
	gy := int(math.Ceil(float64(h) / float64(th)))

	luts := make([][256]uint8, gx*gy)
	for ty := 0; ty < gy; ty++ {
		for tx := 0; tx < gx; tx++ {
			x0, y0 := tx*tw, ty*th
			x1, y1 := min(x0+tw, w), min(y0+th, h)
			var hist [256]int
			for y := y0; y < y1; y++ {
				for x := x0; x < x1; x++ {
					hist[lum(g, x, y)]++
				}
			}
			luts[ty*gx+tx] = equalize(hist, (x1-x0)*(y1-y0), clip)
		}
	}

	for y := 0; y < h; y++ {
		ty0, ty1, ay := neighbours(y, th, gy)
		for x := 0; x < w; x++ {
			tx0, tx1, ax := neighbours(x, tw, gx)
			v := lum(g, x, y)
			top := (1-ax)*float64(luts[ty0*gx+tx0][v]) + ax*float64(luts[ty0*gx+tx1][v])
			bot := (1-ax)*float64(luts[ty1*gx+tx0][v]) + ax*float64(luts[ty1*gx+tx1][v])
			setLum(out, x, y, uint8(math.Round((1-ay)*top+ay*bot)))
		}
	}
	return out
}

func equalize(hist [256]int, n int, clip float64) [256]uint8 {
	var lut [256]uint8
	if n == 0 {
		return lut
	}
	limit := int(clip * float64(n) / 256)
	if limit < 1 {
		limit = 1
	}
	excess := 0
	for i := range hist {
		if hist[i] > limit {
			excess += hist[i] - limit
			hist[i] = limit
		}
	}
	add, rem := excess/256, excess%256
	for i := range hist {
		hist[i] += add
		if i < rem {
			hist[i]++
		}
	}
	cdf := 0
	for i := range hist {
		cdf += hist[i]
		lut[i] = uint8(min(cdf*255/n, 255))
	}
	return lut
}

// neighbours returns the two tile indices around pixel p and the weight of the second.
func neighbours(p, size, count int) (int, int, float64) {
	f := (float64(p)+0.5)/float64(size) - 0.5
	if f <= 0 {
		return 0, 0, 0
	}
	i0 := int(math.Floor(f))
	if i0 >= count-1 {
		return count - 1, count - 1, 0
	}
	return i0, i0 + 1, f - float64(i0)
}

func lum(img *image.NRGBA, x, y int) uint8 {
	return img.Pix[y*img.Stride+x*4]
}

func setLum(img *image.NRGBA, x, y int, v uint8) {
	i := y*img.Stride + x*4
	img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = v, v, v, 255
}
