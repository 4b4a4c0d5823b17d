package opencv

import (
	"image"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/Dzusmin/featurebench/internal/binarydesc"
	"github.com/Dzusmin/featurebench/internal/corners"
	"github.com/Dzusmin/featurebench/internal/features"
	"github.com/Dzusmin/featurebench/internal/matching"
)

// Shi-Tomasi parameters. The minimum distance equals the block size, so
// neighbouring corners may touch but not overlap.
const (
	shiTomasiBlockSize   = 4
	shiTomasiMinDistance = shiTomasiBlockSize
	shiTomasiQuality     = 0.01
	shiTomasiK           = 0.04
)

// cvDetector is the detection half of a gocv Feature2D algorithm.
type cvDetector interface {
	Detect(src gocv.Mat) []gocv.KeyPoint
	Close() error
}

// cvExtractor is the description half of a gocv Feature2D algorithm.
type cvExtractor interface {
	Compute(src gocv.Mat, mask gocv.Mat, kps []gocv.KeyPoint) ([]gocv.KeyPoint, gocv.Mat)
	Close() error
}

// Backend implements features.Backend and matching.EngineFactory on OpenCV,
// with Harris and FREAK computed in Go.
type Backend struct {
	Loader
	Harris corners.HarrisConfig
	FREAK  binarydesc.FREAKConfig
}

// NewBackend returns a backend with the default parameters of every algorithm.
func NewBackend() *Backend {
	return &Backend{
		Harris: corners.DefaultHarrisConfig,
		FREAK:  binarydesc.DefaultFREAKConfig,
	}
}

// Detector returns the detector for kind. The result implements io.Closer
// when it holds native resources.
func (b *Backend) Detector(kind features.DetectorKind) (features.Detector, error) {
	switch kind {
	case features.ShiTomasi:
		return shiTomasi{}, nil
	case features.Harris:
		return harris{cfg: b.Harris}, nil
	case features.FAST:
		d := gocv.NewFastFeatureDetector()
		return &detector{alg: &d}, nil
	case features.BRISKDetector:
		d := gocv.NewBRISK()
		return &detector{alg: &d}, nil
	case features.ORBDetector:
		d := gocv.NewORB()
		return &detector{alg: &d}, nil
	case features.AKAZEDetector:
		d := gocv.NewAKAZE()
		return &detector{alg: &d}, nil
	case features.SIFTDetector:
		d := gocv.NewSIFT()
		return &detector{alg: &d}, nil
	default:
		return nil, errors.Wrapf(features.ErrUnknownDetector, "%v", kind)
	}
}

// Extractor returns the extractor for kind. The result implements io.Closer
// when it holds native resources.
func (b *Backend) Extractor(kind features.DescriptorKind) (features.Extractor, error) {
	switch kind {
	case features.BRISK:
		e := gocv.NewBRISK()
		return &extractor{alg: &e}, nil
	case features.BRIEF:
		return newBRIEF(), nil
	case features.ORB:
		e := gocv.NewORB()
		return &extractor{alg: &e}, nil
	case features.FREAK:
		return binarydesc.NewFREAK(b.FREAK), nil
	case features.AKAZE:
		e := gocv.NewAKAZE()
		return &extractor{alg: &e}, nil
	case features.SIFT:
		e := gocv.NewSIFT()
		return &extractor{alg: &e}, nil
	default:
		return nil, errors.Wrapf(features.ErrUnknownDescriptor, "%v", kind)
	}
}

// Engine returns a brute force, FLANN or pure Go exhaustive matcher for metric.
func (b *Backend) Engine(kind matching.Kind, metric features.Metric) (matching.Engine, error) {
	switch kind {
	case matching.Exhaustive:
		return matching.NewExhaustive(metric), nil
	case matching.BruteForce:
		norm := gocv.NormL2
		if metric == features.Hamming {
			norm = gocv.NormHamming
		}
		m := gocv.NewBFMatcherWithParams(norm, false)
		return &Engine{matcher: &m}, nil
	case matching.FLANN:
		m := gocv.NewFlannBasedMatcher()
		return &Engine{matcher: &m}, nil
	default:
		return nil, errors.Wrapf(matching.ErrUnknownMatcher, "%v", kind)
	}
}

type detector struct {
	alg cvDetector
}

func (d *detector) Detect(img features.Raster) ([]features.KeyPoint, error) {
	m, release, err := matOf(img)
	if err != nil {
		return nil, err
	}
	defer release()
	return toKeyPoints(d.alg.Detect(m)), nil
}

func (d *detector) Close() error {
	return d.alg.Close()
}

type extractor struct {
	alg cvExtractor
}

func (e *extractor) Compute(img features.Raster, kps []features.KeyPoint) ([]features.KeyPoint, features.Descriptors, error) {
	if len(kps) == 0 {
		return []features.KeyPoint{}, features.Descriptors{}, nil
	}
	m, release, err := matOf(img)
	if err != nil {
		return nil, features.Descriptors{}, err
	}
	defer release()

	mask := gocv.NewMat()
	defer mask.Close()
	described, desc := e.alg.Compute(m, mask, fromKeyPoints(kps))
	defer desc.Close()

	d, err := descriptorsFromMat(desc)
	if err != nil {
		return nil, features.Descriptors{}, err
	}
	out := toKeyPoints(described)
	if d.Rows() != len(out) {
		return nil, features.Descriptors{}, errors.Errorf("extractor returned %d rows for %d keypoints", d.Rows(), len(out))
	}
	return out, d, nil
}

func (e *extractor) Close() error {
	return e.alg.Close()
}

// shiTomasi runs OpenCV's GFTT detector. Corners come back strongest first
// with the block size as their size.
type shiTomasi struct{}

func shiTomasiParams(size image.Point) gocv.GFTTDetectorParams {
	return gocv.GFTTDetectorParams{
		MaxCorners:   size.X * size.Y / max(1, shiTomasiMinDistance),
		QualityLevel: shiTomasiQuality,
		MinDistance:  shiTomasiMinDistance,
		BlockSize:    shiTomasiBlockSize,
		K:            shiTomasiK,
	}
}

func (shiTomasi) Detect(img features.Raster) ([]features.KeyPoint, error) {
	m, release, err := matOf(img)
	if err != nil {
		return nil, err
	}
	defer release()

	// the corner budget depends on the image size
	d := gocv.NewGFTTDetectorWithParams(shiTomasiParams(image.Pt(m.Cols(), m.Rows())))
	defer d.Close()
	return toKeyPoints(d.Detect(m)), nil
}

type harris struct {
	cfg corners.HarrisConfig
}

func (h harris) Detect(img features.Raster) ([]features.KeyPoint, error) {
	gray, err := img.Gray()
	if err != nil {
		return nil, err
	}
	return corners.Detect(gray, h.cfg), nil
}
