package opencv

import (
	"image"
	"image/color"
	"io"
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"
	"gocv.io/x/gocv"

	"github.com/Dzusmin/featurebench/internal/features"
	"github.com/Dzusmin/featurebench/internal/matching"
)

func TestKeyPointConversion(t *testing.T) {
	kps := []features.KeyPoint{
		{X: 1.5, Y: 2.5, Size: 7, Angle: 90, Response: 0.25, Octave: 3, ClassID: -1},
		{X: 10, Y: 20, Size: 4},
	}
	cv := fromKeyPoints(kps)
	test.That(t, len(cv), test.ShouldEqual, 2)
	test.That(t, cv[0].X, test.ShouldEqual, 1.5)
	test.That(t, cv[0].Octave, test.ShouldEqual, 3)
	test.That(t, cv[0].ClassID, test.ShouldEqual, -1)
	test.That(t, toKeyPoints(cv), test.ShouldResemble, kps)
	test.That(t, len(toKeyPoints(nil)), test.ShouldEqual, 0)
}

func TestToMatches(t *testing.T) {
	knn := [][]gocv.DMatch{
		{{QueryIdx: 0, TrainIdx: 4, Distance: 3}, {QueryIdx: 0, TrainIdx: 1, Distance: 9}},
		{},
	}
	got := toMatches(knn)
	test.That(t, got, test.ShouldResemble, [][]features.Match{
		{{SourceIndex: 0, ReferenceIndex: 4, Distance: 3}, {SourceIndex: 0, ReferenceIndex: 1, Distance: 9}},
		{},
	})
}

func TestSplit(t *testing.T) {
	data := []byte{1, 2, 3, 4, 5, 6, 7}
	rows, err := splitBytes(data, 2, 3)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, rows, test.ShouldResemble, [][]byte{{1, 2, 3}, {4, 5, 6}})

	// rows are copies
	data[0] = 42
	test.That(t, rows[0][0], test.ShouldEqual, 1)

	_, err = splitBytes(data, 3, 3)
	test.That(t, err, test.ShouldNotBeNil)

	frows, err := splitFloats([]float32{1, 2, 3, 4}, 2, 2)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, frows, test.ShouldResemble, [][]float32{{1, 2}, {3, 4}})
	_, err = splitFloats([]float32{1}, 1, 2)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestBackendUnknownKinds(t *testing.T) {
	b := NewBackend()
	_, err := b.Detector(features.DetectorKind(99))
	test.That(t, errors.Is(err, features.ErrUnknownDetector), test.ShouldBeTrue)
	_, err = b.Extractor(features.DescriptorKind(99))
	test.That(t, errors.Is(err, features.ErrUnknownDescriptor), test.ShouldBeTrue)
	_, err = b.Engine(matching.Kind(99), features.Hamming)
	test.That(t, errors.Is(err, matching.ErrUnknownMatcher), test.ShouldBeTrue)
}

// noiseRaster returns a w x h raster of seeded random intensities.
func noiseRaster(w, h int) *features.GrayRaster {
	rng := rand.New(rand.NewSource(3))
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = uint8(rng.Intn(256))
	}
	return features.NewGrayRaster(img)
}

// squareRaster returns a black w x h raster with a white square whose corners
// are at (lo, lo) and (hi, hi).
func squareRaster(w, h, lo, hi int) *features.GrayRaster {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := lo; y <= hi; y++ {
		for x := lo; x <= hi; x++ {
			img.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	return features.NewGrayRaster(img)
}

func TestBackendGoAlgorithms(t *testing.T) {
	b := NewBackend()
	raster := features.NewGrayRaster(image.NewGray(image.Rect(0, 0, 64, 64)))

	det, err := b.Detector(features.Harris)
	test.That(t, err, test.ShouldBeNil)
	kps, err := det.Detect(raster)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(kps), test.ShouldEqual, 0)

	ext, err := b.Extractor(features.FREAK)
	test.That(t, err, test.ShouldBeNil)
	kept, desc, err := ext.Compute(raster, []features.KeyPoint{{X: 32, Y: 32, Size: 7}})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, desc.Rows(), test.ShouldEqual, len(kept))

	eng, err := b.Engine(matching.Exhaustive, features.Hamming)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, eng, test.ShouldHaveSameTypeAs, matching.NewExhaustive(features.Hamming))
	test.That(t, eng.Close(), test.ShouldBeNil)
}

func TestInsideBorder(t *testing.T) {
	size := image.Pt(100, 80)
	kps := []features.KeyPoint{
		{X: 28, Y: 28},
		{X: 27.9, Y: 40},
		{X: 71.9, Y: 51.9},
		{X: 72, Y: 40},
		{X: 50, Y: 52},
	}
	test.That(t, insideBorder(kps, size, briefBorder), test.ShouldResemble, []features.KeyPoint{kps[0], kps[2]})

	// two borders do not fit
	test.That(t, insideBorder(kps, image.Pt(56, 200), briefBorder), test.ShouldBeEmpty)
	test.That(t, insideBorder(nil, size, briefBorder), test.ShouldBeEmpty)
	test.That(t, briefBorder, test.ShouldEqual, 28)
}

func TestBRIEF(t *testing.T) {
	b := NewBackend()
	ext, err := b.Extractor(features.BRIEF)
	test.That(t, err, test.ShouldBeNil)
	defer func() { test.That(t, ext.(io.Closer).Close(), test.ShouldBeNil) }()

	raster := noiseRaster(100, 100)
	kps := []features.KeyPoint{
		{X: 50, Y: 50, Size: 7, Angle: -1},
		{X: 5, Y: 5, Size: 7, Angle: -1},
		{X: 30, Y: 60, Size: 7, Angle: -1},
		{X: 99, Y: 40, Size: 7, Angle: -1},
	}
	kept, desc, err := ext.Compute(raster, kps)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, kept, test.ShouldResemble, []features.KeyPoint{kps[0], kps[2]})
	test.That(t, desc.Encoding, test.ShouldEqual, features.EncodingBinary)
	test.That(t, desc.Width, test.ShouldEqual, 32)
	test.That(t, desc.Rows(), test.ShouldEqual, len(kept))
	test.That(t, desc.Bytes[0], test.ShouldNotResemble, desc.Bytes[1])

	t.Run("nothing inside the border", func(t *testing.T) {
		kept, desc, err := ext.Compute(raster, kps[1:2])
		test.That(t, err, test.ShouldBeNil)
		test.That(t, len(kept), test.ShouldEqual, 0)
		test.That(t, desc.Empty(), test.ShouldBeTrue)
	})

	t.Run("closed raster", func(t *testing.T) {
		r := noiseRaster(100, 100)
		test.That(t, r.Close(), test.ShouldBeNil)
		_, _, err := ext.Compute(r, kps)
		test.That(t, err, test.ShouldNotBeNil)
	})
}

func TestShiTomasiParams(t *testing.T) {
	p := shiTomasiParams(image.Pt(1242, 375))
	test.That(t, p.BlockSize, test.ShouldEqual, 4)
	test.That(t, p.MinDistance, test.ShouldEqual, 4)
	test.That(t, p.QualityLevel, test.ShouldEqual, 0.01)
	test.That(t, p.K, test.ShouldEqual, 0.04)
	test.That(t, p.UseHarrisDetector, test.ShouldBeFalse)
	test.That(t, p.MaxCorners, test.ShouldEqual, 1242*375/4)
}

func TestShiTomasi(t *testing.T) {
	det, err := NewBackend().Detector(features.ShiTomasi)
	test.That(t, err, test.ShouldBeNil)

	kps, err := det.Detect(squareRaster(64, 64, 20, 43))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(kps), test.ShouldBeGreaterThanOrEqualTo, 4)
	for _, kp := range kps {
		test.That(t, kp.Size, test.ShouldEqual, 4)
		// every corner lies on the square's outline
		test.That(t, kp.X, test.ShouldBeBetween, 15, 48)
		test.That(t, kp.Y, test.ShouldBeBetween, 15, 48)
	}

	closed := squareRaster(64, 64, 20, 43)
	test.That(t, closed.Close(), test.ShouldBeNil)
	_, err = det.Detect(closed)
	test.That(t, err, test.ShouldNotBeNil)
}
