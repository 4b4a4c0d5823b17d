package features

import (
	"sort"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/floats"
)

// Region is an axis aligned rectangle in pixel coordinates.
type Region struct {
	X, Y          float64
	Width, Height float64
}

// VehicleRegion covers the preceding vehicle in the KITTI sequence.
var VehicleRegion = Region{X: 535, Y: 180, Width: 180, Height: 150}

// Contains reports whether kp lies in [X, X+Width) x [Y, Y+Height).
func (r Region) Contains(kp KeyPoint) bool {
	return kp.X >= r.X && kp.X < r.X+r.Width &&
		kp.Y >= r.Y && kp.Y < r.Y+r.Height
}

// FilterRegion returns the keypoints inside r, keeping their relative order.
// The result is never nil.
func FilterRegion(kps []KeyPoint, r Region) []KeyPoint {
	return lo.Filter(kps, func(kp KeyPoint, _ int) bool {
		return r.Contains(kp)
	})
}

// RetainBest limits kps to at most n keypoints. When ranked is true the input is
// already ordered best first (Shi-Tomasi carries no response) and the first n
// are kept. Otherwise the n strongest responses are kept, strongest first, with
// ties resolved by input order. n <= 0 disables the limit.
func RetainBest(kps []KeyPoint, n int, ranked bool) []KeyPoint {
	if n <= 0 || len(kps) <= n {
		return kps
	}
	if ranked {
		return kps[:n]
	}

	// negate so that the ascending argsort puts the strongest first
	resp := make([]float64, len(kps))
	for i, kp := range kps {
		resp[i] = -kp.Response
	}
	idx := make([]int, len(kps))
	// sorts resp in place; idx maps sorted positions back to kps
	floats.Argsort(resp, idx)
	// Argsort is not stable, restore input order among equal responses.
	for start := 0; start < len(idx); {
		end := start + 1
		for end < len(idx) && resp[end] == resp[start] {
			end++
		}
		sort.Ints(idx[start:end])
		start = end
	}

	out := make([]KeyPoint, n)
	for i := 0; i < n; i++ {
		out[i] = kps[idx[i]]
	}
	return out
}
