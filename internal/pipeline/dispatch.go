package pipeline

import (
	"fmt"
	"time"

	"github.com/Dzusmin/featurebench/internal/features"
)

// Combination is one detector and descriptor pairing.
type Combination struct {
	Detector   features.DetectorKind
	Descriptor features.DescriptorKind
}

func (c Combination) String() string {
	return fmt.Sprintf("%s/%s", c.Detector, c.Descriptor)
}

// Detect runs det on img and reports the wall clock time in milliseconds.
func Detect(det features.Detector, img features.Raster) ([]features.KeyPoint, float64, error) {
	start := time.Now()
	kps, err := det.Detect(img)
	return kps, millis(time.Since(start)), err
}

// Extract runs ext on img and reports the wall clock time in milliseconds. The
// returned keypoints are the described subset of kps.
func Extract(ext features.Extractor, img features.Raster, kps []features.KeyPoint) ([]features.KeyPoint, features.Descriptors, float64, error) {
	start := time.Now()
	described, desc, err := ext.Compute(img, kps)
	return described, desc, millis(time.Since(start)), err
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
