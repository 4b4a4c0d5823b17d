// Package binarydesc computes the FREAK binary descriptor on Go grayscale
// images. A keypoint is described by comparing the mean intensities of pairs of
// receptive fields on a retina-like pattern around it, one bit per pair.
//
// The pattern and its pairs are fixed, so the same image and keypoints always
// produce the same descriptors.
package binarydesc

import (
	"image"
	"math"

	"github.com/Dzusmin/featurebench/internal/features"
)

const (
	freakPoints       = 43
	freakRings        = 7
	freakPerRing      = 6
	freakSmallestSize = 7.0
)

// FREAKConfig stores the FREAK parameters.
type FREAKConfig struct {
	PatternScale float64 // radius scale of the retina pattern in pixels
	Octaves      int     // how far the pattern grows with keypoint size, in octaves
	Bytes        int
}

// DefaultFREAKConfig matches the usual 512-bit FREAK setup.
var DefaultFREAKConfig = FREAKConfig{PatternScale: 22, Octaves: 4, Bytes: 64}

type retinaPoint struct {
	x, y, sigma float64
}

// FREAK is an Extractor producing FREAK descriptors. Orientation is not
// normalised: the pattern is always laid out upright.
type FREAK struct {
	cfg     FREAKConfig
	pattern [freakPoints]retinaPoint
	pairs   [][2]int
}

// NewFREAK builds the retina pattern and the comparison pairs.
func NewFREAK(cfg FREAKConfig) *FREAK {
	f := &FREAK{cfg: cfg}
	f.pattern = retinaPattern()
	f.pairs = selectPairs(cfg.Bytes * 8)
	return f
}

// retinaPattern lays out six points on each of seven concentric rings plus the
// centre, at unit pattern scale. Odd rings are rotated by half a step.
func retinaPattern() [freakPoints]retinaPoint {
	const bigR, smallR = 2.0 / 3.0, 2.0 / 24.0
	unit := (bigR - smallR) / 21.0
	radius := [freakRings + 1]float64{
		bigR, bigR - 6*unit, bigR - 11*unit, bigR - 15*unit, bigR - 18*unit, bigR - 20*unit, smallR, 0,
	}
	sigma := [freakRings + 1]float64{
		radius[0] / 2, radius[1] / 2, radius[2] / 2, radius[3] / 2, radius[4] / 2, radius[5] / 2, radius[6] / 2, radius[6] / 2,
	}

	var p [freakPoints]retinaPoint
	n := 0
	for ring := 0; ring < freakRings; ring++ {
		beta := math.Pi / freakPerRing * float64(ring%2)
		for k := 0; k < freakPerRing; k++ {
			alpha := float64(k)*2*math.Pi/freakPerRing + beta
			p[n] = retinaPoint{x: radius[ring] * math.Cos(alpha), y: radius[ring] * math.Sin(alpha), sigma: sigma[ring]}
			n++
		}
	}
	p[n] = retinaPoint{sigma: sigma[freakRings]}
	return p
}

// selectPairs spreads n comparisons evenly over all point pairs, so every ring
// is compared with every other.
func selectPairs(n int) [][2]int {
	all := make([][2]int, 0, freakPoints*(freakPoints-1)/2)
	for i := 1; i < freakPoints; i++ {
		for j := 0; j < i; j++ {
			all = append(all, [2]int{i, j})
		}
	}
	if n >= len(all) {
		return all
	}
	out := make([][2]int, n)
	for k := range out {
		out[k] = all[k*len(all)/n]
	}
	return out
}

// scaleFor returns the pattern scale for a keypoint of the given size.
func (f *FREAK) scaleFor(size float64) float64 {
	factor := math.Max(1, size/freakSmallestSize)
	return f.cfg.PatternScale * math.Min(factor, math.Pow(2, float64(f.cfg.Octaves)))
}

// Compute describes every keypoint whose scaled pattern fits in the image and
// drops the others.
func (f *FREAK) Compute(img features.Raster, kps []features.KeyPoint) ([]features.KeyPoint, features.Descriptors, error) {
	gray, err := img.Gray()
	if err != nil {
		return nil, features.Descriptors{}, err
	}
	ii := newIntegral(gray)

	kept := make([]features.KeyPoint, 0, len(kps))
	rows := make([][]byte, 0, len(kps))
	var vals [freakPoints]float64
	for _, kp := range kps {
		scale := f.scaleFor(kp.Size)
		reach := scale * (f.pattern[0].x + f.pattern[0].sigma)
		if kp.X-reach < 0 || kp.Y-reach < 0 || kp.X+reach >= float64(ii.w) || kp.Y+reach >= float64(ii.h) {
			continue
		}
		for i, p := range f.pattern {
			vals[i] = ii.mean(kp.X+p.x*scale, kp.Y+p.y*scale, p.sigma*scale)
		}
		desc := make([]byte, f.cfg.Bytes)
		for b, pr := range f.pairs {
			if vals[pr[0]] > vals[pr[1]] {
				desc[b/8] |= 1 << uint(7-b%8)
			}
		}
		kept = append(kept, kp)
		rows = append(rows, desc)
	}

	d, err := features.NewBinaryDescriptors(f.cfg.Bytes, rows)
	return kept, d, err
}

// integral is a summed area table with one extra leading row and column.
type integral struct {
	w, h int
	sum  []float64
}

func newIntegral(img *image.Gray) integral {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	ii := integral{w: w, h: h, sum: make([]float64, (w+1)*(h+1))}
	for y := 0; y < h; y++ {
		var row float64
		for x := 0; x < w; x++ {
			row += float64(img.GrayAt(b.Min.X+x, b.Min.Y+y).Y)
			ii.sum[(y+1)*(w+1)+x+1] = ii.sum[y*(w+1)+x+1] + row
		}
	}
	return ii
}

// mean averages the square of half side r centred on (cx, cy), clipped to the
// image. A radius below half a pixel samples the single containing pixel.
func (ii integral) mean(cx, cy, r float64) float64 {
	r = math.Max(r, 0.5)
	x0 := clamp(int(math.Floor(cx-r+0.5)), 0, ii.w-1)
	y0 := clamp(int(math.Floor(cy-r+0.5)), 0, ii.h-1)
	x1 := clamp(int(math.Floor(cx+r+0.5)), x0+1, ii.w)
	y1 := clamp(int(math.Floor(cy+r+0.5)), y0+1, ii.h)
	s := ii.sum[y1*(ii.w+1)+x1] - ii.sum[y0*(ii.w+1)+x1] - ii.sum[y1*(ii.w+1)+x0] + ii.sum[y0*(ii.w+1)+x0]
	return s / float64((x1-x0)*(y1-y0))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
