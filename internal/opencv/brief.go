package opencv

import (
	"image"

	"github.com/pkg/errors"
	"gocv.io/x/gocv/contrib"

	"github.com/Dzusmin/featurebench/internal/features"
)

// Parameters of cv::xfeatures2d::BriefDescriptorExtractor.
const (
	briefPatchSize  = 48
	briefKernelSize = 9
	briefBorder     = briefPatchSize/2 + briefKernelSize/2
)

// briefExtractor runs OpenCV's BRIEF. The binding returns only the descriptor
// mat, so the keypoints OpenCV would discard at the border are removed first
// and the rest line up with the rows.
type briefExtractor struct {
	alg contrib.BriefDescriptorExtractor
}

func newBRIEF() *briefExtractor {
	return &briefExtractor{alg: contrib.NewBriefDescriptorExtractor()}
}

func (e *briefExtractor) Compute(img features.Raster, kps []features.KeyPoint) ([]features.KeyPoint, features.Descriptors, error) {
	m, release, err := matOf(img)
	if err != nil {
		return nil, features.Descriptors{}, err
	}
	defer release()

	kept := insideBorder(kps, img.Size(), briefBorder)
	if len(kept) == 0 {
		return []features.KeyPoint{}, features.Descriptors{}, nil
	}

	desc := e.alg.Compute(fromKeyPoints(kept), m)
	defer desc.Close()
	d, err := descriptorsFromMat(desc)
	if err != nil {
		return nil, features.Descriptors{}, err
	}
	if d.Rows() != len(kept) {
		return nil, features.Descriptors{}, errors.Errorf("brief returned %d rows for %d keypoints", d.Rows(), len(kept))
	}
	return kept, d, nil
}

func (e *briefExtractor) Close() error {
	return e.alg.Close()
}

// insideBorder keeps the keypoints with border <= x < width-border and the same
// for y, the rule of cv::KeyPointsFilter::runByImageBorder. An image no wider
// or taller than two borders keeps nothing.
func insideBorder(kps []features.KeyPoint, size image.Point, border int) []features.KeyPoint {
	out := make([]features.KeyPoint, 0, len(kps))
	if size.X <= 2*border || size.Y <= 2*border {
		return out
	}
	lo := float64(border)
	hiX, hiY := float64(size.X-border), float64(size.Y-border)
	for _, kp := range kps {
		if kp.X >= lo && kp.X < hiX && kp.Y >= lo && kp.Y < hiY {
			out = append(out, kp)
		}
	}
	return out
}
