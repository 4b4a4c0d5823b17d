package features

import (
	"image"
	"math"
)

// KeyPoint is a salient image location.
//
// Octave and ClassID carry detector specific metadata. AKAZE descriptors, for
// example, can only be computed on keypoints that AKAZE itself produced.
type KeyPoint struct {
	X        float64
	Y        float64
	Size     float64 // neighbourhood diameter in pixels
	Angle    float64
	Response float64
	Octave   int
	ClassID  int
}

// Pt returns the integer pixel that contains the keypoint.
func (kp KeyPoint) Pt() image.Point {
	return image.Pt(int(math.Floor(kp.X)), int(math.Floor(kp.Y)))
}

// Match is a correspondence between a keypoint of the source frame and one of
// the reference frame.
type Match struct {
	SourceIndex    int
	ReferenceIndex int
	Distance       float64
}

// Overlap returns the intersection over union of the two keypoint
// neighbourhoods, each taken as a disc of diameter Size.
//
// It mirrors OpenCV's KeyPoint::overlap: 0 for disjoint discs, 1 for identical
// ones, and the lens area divided by the union area otherwise.
func Overlap(a, b KeyPoint) float64 {
	r1 := a.Size / 2
	r2 := b.Size / 2
	if r1 <= 0 || r2 <= 0 {
		return 0
	}
	d := math.Hypot(a.X-b.X, a.Y-b.Y)
	if d >= r1+r2 {
		return 0
	}

	small, large := math.Min(r1, r2), math.Max(r1, r2)
	if d <= large-small {
		// one disc is contained in the other
		return (small * small) / (large * large)
	}

	r1s, r2s := r1*r1, r2*r2
	a1 := r1s * math.Acos((d*d+r1s-r2s)/(2*d*r1))
	a2 := r2s * math.Acos((d*d+r2s-r1s)/(2*d*r2))
	tri := 0.5 * math.Sqrt((-d+r1+r2)*(d+r1-r2)*(d-r1+r2)*(d+r1+r2))
	inter := a1 + a2 - tri
	union := math.Pi*(r1s+r2s) - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// MeanSize returns the average neighbourhood size of kps, or 0 for an empty set.
func MeanSize(kps []KeyPoint) float64 {
	if len(kps) == 0 {
		return 0
	}
	var sum float64
	for _, kp := range kps {
		sum += kp.Size
	}
	return sum / float64(len(kps))
}
