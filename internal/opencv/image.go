// Package opencv binds the benchmark's detector, extractor and matcher kinds to
// OpenCV through gocv.
//
// Every gocv object handed out here owns native memory. Callers close rasters,
// detectors, extractors and engines when done with them.
package opencv

import (
	"image"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/Dzusmin/featurebench/internal/features"
)

// Image is a grayscale raster backed by a gocv.Mat.
type Image struct {
	mat    gocv.Mat
	gray   *image.Gray
	closed bool
}

// NewImage takes ownership of a single channel 8 bit mat.
func NewImage(mat gocv.Mat) *Image {
	return &Image{mat: mat}
}

// Size returns width and height.
func (im *Image) Size() image.Point {
	if im.closed {
		return image.Point{}
	}
	return image.Pt(im.mat.Cols(), im.mat.Rows())
}

// Gray converts the mat to a Go image on first use and caches it.
func (im *Image) Gray() (*image.Gray, error) {
	if im.closed {
		return nil, errors.New("image already closed")
	}
	if im.gray != nil {
		return im.gray, nil
	}
	img, err := im.mat.ToImage()
	if err != nil {
		return nil, errors.Wrap(err, "cannot convert mat to image")
	}
	gray, ok := img.(*image.Gray)
	if !ok {
		return nil, errors.Errorf("expected a grayscale mat, got %T", img)
	}
	im.gray = gray
	return gray, nil
}

// Close releases the native buffer.
func (im *Image) Close() error {
	if im.closed {
		return nil
	}
	im.closed = true
	im.gray = nil
	return im.mat.Close()
}

// Loader reads image files with imread.
type Loader struct{}

// Load reads path as a colour image and converts it to grayscale.
func (Loader) Load(path string) (features.Raster, error) {
	img := gocv.IMRead(path, gocv.IMReadColor)
	if img.Empty() {
		_ = img.Close()
		return nil, errors.Wrapf(features.ErrImageLoad, "%s", path)
	}
	defer img.Close()

	dest := gocv.NewMat()
	if err := gocv.CvtColor(img, &dest, gocv.ColorBGRToGray); err != nil {
		_ = dest.Close()
		return nil, errors.Wrapf(features.ErrImageLoad, "%s: %v", path, err)
	}
	if dest.Empty() {
		_ = dest.Close()
		return nil, errors.Wrapf(features.ErrImageLoad, "%s: grayscale conversion failed", path)
	}
	return NewImage(dest), nil
}

// matOf returns a gocv view of any raster. The release func must be called
// once the mat is no longer needed; it is a no-op for mat backed rasters.
func matOf(r features.Raster) (gocv.Mat, func(), error) {
	if im, ok := r.(*Image); ok {
		if im.closed {
			return gocv.Mat{}, nil, errors.New("image already closed")
		}
		return im.mat, func() {}, nil
	}
	gray, err := r.Gray()
	if err != nil {
		return gocv.Mat{}, nil, err
	}
	m, err := gocv.ImageGrayToMatGray(gray)
	if err != nil {
		return gocv.Mat{}, nil, errors.Wrap(err, "cannot convert image to mat")
	}
	return m, func() { _ = m.Close() }, nil
}
