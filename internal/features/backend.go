package features

import (
	"image"

	"github.com/pkg/errors"
)

// ErrImageLoad is returned when an image file is missing or cannot be decoded.
var ErrImageLoad = errors.New("failed to load image")

// Raster is a decoded grayscale image. A Raster is owned by exactly one frame
// and must be closed when that frame is evicted.
type Raster interface {
	Size() image.Point
	// Gray returns the pixels as a Go image. Implementations may convert lazily.
	Gray() (*image.Gray, error)
	Close() error
}

// Detector finds keypoints in a grayscale image.
type Detector interface {
	Detect(img Raster) ([]KeyPoint, error)
}

// Extractor computes one descriptor row per keypoint.
//
// Extractors may drop keypoints they cannot describe (too close to the border,
// for instance). The returned keypoints are exactly the described ones, in row
// order, and replace the input set.
type Extractor interface {
	Compute(img Raster, kps []KeyPoint) ([]KeyPoint, Descriptors, error)
}

// Loader decodes an image file into a grayscale raster.
type Loader interface {
	Load(path string) (Raster, error)
}

// Backend binds algorithm kinds to concrete capabilities.
type Backend interface {
	Loader
	Detector(kind DetectorKind) (Detector, error)
	Extractor(kind DescriptorKind) (Extractor, error)
}

// MatchViewer renders a reference and a current frame side by side with the
// correspondences between them.
type MatchViewer interface {
	ShowMatches(title string, ref Raster, refKps []KeyPoint, cur Raster, curKps []KeyPoint, matches []Match) error
}

// GrayRaster is a Raster over an in-memory image.Gray.
type GrayRaster struct {
	Img *image.Gray
}

// NewGrayRaster wraps img.
func NewGrayRaster(img *image.Gray) *GrayRaster {
	return &GrayRaster{Img: img}
}

// Size returns the image dimensions.
func (g *GrayRaster) Size() image.Point {
	if g.Img == nil {
		return image.Point{}
	}
	return g.Img.Bounds().Size()
}

// Gray returns the wrapped image.
func (g *GrayRaster) Gray() (*image.Gray, error) {
	if g.Img == nil {
		return nil, errors.New("raster already closed")
	}
	return g.Img, nil
}

// Close drops the pixel buffer.
func (g *GrayRaster) Close() error {
	g.Img = nil
	return nil
}
