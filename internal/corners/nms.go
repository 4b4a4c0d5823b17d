package corners

import (
	"github.com/Dzusmin/featurebench/internal/features"
)

// Suppress scans a normalised response map row by row and keeps one keypoint
// per neighbourhood.
//
// Every pixel whose integer response exceeds cfg.MinResponse becomes a
// candidate of size 2*ApertureSize. A candidate that overlaps an accepted
// keypoint with an equal or higher response is dropped. A candidate that only
// overlaps weaker keypoints takes the place of the first of them and the other
// overlapped ones are removed. A candidate that overlaps nothing is appended.
func Suppress(m ResponseMap, cfg HarrisConfig) []features.KeyPoint {
	size := float64(2 * cfg.ApertureSize)
	kps := make([]features.KeyPoint, 0)

	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			resp := float64(int(m.At(x, y)))
			if resp <= cfg.MinResponse {
				continue
			}
			cand := features.KeyPoint{X: float64(x), Y: float64(y), Size: size, Response: resp, ClassID: -1}
			kps = insert(kps, cand)
		}
	}
	return kps
}

func insert(kps []features.KeyPoint, cand features.KeyPoint) []features.KeyPoint {
	var overlapped []int
	for i, kp := range kps {
		if features.Overlap(cand, kp) <= 0 {
			continue
		}
		if kp.Response >= cand.Response {
			return kps
		}
		overlapped = append(overlapped, i)
	}
	if len(overlapped) == 0 {
		return append(kps, cand)
	}

	kps[overlapped[0]] = cand
	if len(overlapped) == 1 {
		return kps
	}
	drop := make(map[int]bool, len(overlapped)-1)
	for _, i := range overlapped[1:] {
		drop[i] = true
	}
	out := kps[:0]
	for i, kp := range kps {
		if !drop[i] {
			out = append(out, kp)
		}
	}
	return out
}
