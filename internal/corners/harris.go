// Package corners implements the Harris corner detector on Go images, including
// the non-maximum suppression step that turns the response map into keypoints.
package corners

import (
	"image"

	"gonum.org/v1/gonum/floats"

	"github.com/Dzusmin/featurebench/internal/features"
)

// HarrisConfig holds the fixed Harris parameters.
type HarrisConfig struct {
	BlockSize    int     // side of the window summing the gradient products
	ApertureSize int     // Sobel aperture, only 3 is supported
	K            float64 // Harris free parameter
	MinResponse  float64 // threshold on the response normalised to [0, 255]
}

// DefaultHarrisConfig is the configuration used by the benchmark.
var DefaultHarrisConfig = HarrisConfig{
	BlockSize:    2,
	ApertureSize: 3,
	K:            0.04,
	MinResponse:  100,
}

// ResponseMap is a row-major grid of corner responses.
type ResponseMap struct {
	Width, Height int
	Values        []float64
}

// At returns the response at column x, row y.
func (m ResponseMap) At(x, y int) float64 {
	return m.Values[y*m.Width+x]
}

// Response computes det(M) - k*trace(M)^2 for every pixel, where M is the
// gradient covariance summed over a BlockSize window.
//
// Borders are handled by reflecting around the edge pixel, which is how the
// OpenCV default border treats Sobel and box filters.
func Response(img *image.Gray, cfg HarrisConfig) ResponseMap {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := ResponseMap{Width: w, Height: h, Values: make([]float64, w*h)}
	if w == 0 || h == 0 {
		return out
	}

	pix := func(x, y int) float64 {
		return float64(img.GrayAt(b.Min.X+reflect(x, w), b.Min.Y+reflect(y, h)).Y)
	}

	dxx := make([]float64, w*h)
	dyy := make([]float64, w*h)
	dxy := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			gx := (pix(x+1, y-1) + 2*pix(x+1, y) + pix(x+1, y+1)) -
				(pix(x-1, y-1) + 2*pix(x-1, y) + pix(x-1, y+1))
			gy := (pix(x-1, y+1) + 2*pix(x, y+1) + pix(x+1, y+1)) -
				(pix(x-1, y-1) + 2*pix(x, y-1) + pix(x+1, y-1))
			i := y*w + x
			dxx[i] = gx * gx
			dyy[i] = gy * gy
			dxy[i] = gx * gy
		}
	}

	// box window anchored at its centre: [x-n/2, x+n-1-n/2]
	lo := -cfg.BlockSize / 2
	hi := cfg.BlockSize - 1 - cfg.BlockSize/2
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var a, bb, c float64
			for wy := lo; wy <= hi; wy++ {
				for wx := lo; wx <= hi; wx++ {
					j := reflect(y+wy, h)*w + reflect(x+wx, w)
					a += dxx[j]
					bb += dxy[j]
					c += dyy[j]
				}
			}
			tr := a + c
			out.Values[y*w+x] = a*c - bb*bb - cfg.K*tr*tr
		}
	}
	return out
}

// Normalize rescales the map linearly so that its minimum becomes 0 and its
// maximum 255. A flat map becomes all zeros.
func Normalize(m ResponseMap) ResponseMap {
	out := ResponseMap{Width: m.Width, Height: m.Height, Values: make([]float64, len(m.Values))}
	if len(m.Values) == 0 {
		return out
	}
	minV, maxV := floats.Min(m.Values), floats.Max(m.Values)
	if maxV == minV {
		return out
	}
	copy(out.Values, m.Values)
	floats.AddConst(-minV, out.Values)
	floats.Scale(255/(maxV-minV), out.Values)
	return out
}

// Detect runs Harris on img and returns the keypoints surviving suppression.
func Detect(img *image.Gray, cfg HarrisConfig) []features.KeyPoint {
	return Suppress(Normalize(Response(img, cfg)), cfg)
}

// reflect maps an out of range index back into [0, n) by mirroring around the
// edge pixels without repeating them (gfedcb|abcdefgh|gfedcba).
func reflect(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		}
		if i >= n {
			i = 2*(n-1) - i
		}
	}
	return i
}
