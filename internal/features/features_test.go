package features

import (
	"image"
	"math"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"
)

func TestRegionContains(t *testing.T) {
	r := VehicleRegion
	tests := []struct {
		name string
		x, y float64
		want bool
	}{
		{"top-left corner inclusive", 535, 180, true},
		{"centre", 625, 255, true},
		{"just inside right edge", 714.99, 200, true},
		{"right edge exclusive", 715, 200, false},
		{"bottom edge exclusive", 600, 330, false},
		{"left of region", 534.9, 200, false},
		{"above region", 600, 179.5, false},
		{"far away", 0, 0, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			test.That(t, r.Contains(KeyPoint{X: tc.x, Y: tc.y}), test.ShouldEqual, tc.want)
		})
	}
}

func TestFilterRegion(t *testing.T) {
	kps := []KeyPoint{
		{X: 600, Y: 200, Size: 1},
		{X: 10, Y: 10, Size: 2},
		{X: 540, Y: 320, Size: 3},
		{X: 800, Y: 250, Size: 4},
		{X: 700, Y: 181, Size: 5},
	}
	got := FilterRegion(kps, VehicleRegion)
	test.That(t, len(got), test.ShouldEqual, 3)
	test.That(t, got[0].Size, test.ShouldEqual, 1)
	test.That(t, got[1].Size, test.ShouldEqual, 3)
	test.That(t, got[2].Size, test.ShouldEqual, 5)

	t.Run("empty input", func(t *testing.T) {
		got := FilterRegion(nil, VehicleRegion)
		test.That(t, got, test.ShouldNotBeNil)
		test.That(t, len(got), test.ShouldEqual, 0)
	})

	t.Run("nothing inside", func(t *testing.T) {
		got := FilterRegion([]KeyPoint{{X: 1, Y: 1}, {X: 2000, Y: 2000}}, VehicleRegion)
		test.That(t, len(got), test.ShouldEqual, 0)
	})
}

func TestRetainBest(t *testing.T) {
	kps := []KeyPoint{
		{X: 0, Response: 1},
		{X: 1, Response: 5},
		{X: 2, Response: 3},
		{X: 3, Response: 5},
		{X: 4, Response: 2},
	}

	t.Run("by response", func(t *testing.T) {
		got := RetainBest(kps, 3, false)
		test.That(t, len(got), test.ShouldEqual, 3)
		test.That(t, got[0].X, test.ShouldEqual, 1)
		test.That(t, got[1].X, test.ShouldEqual, 3)
		test.That(t, got[2].X, test.ShouldEqual, 2)
	})

	t.Run("ranked keeps prefix", func(t *testing.T) {
		got := RetainBest(kps, 2, true)
		test.That(t, got, test.ShouldResemble, kps[:2])
	})

	t.Run("disabled", func(t *testing.T) {
		test.That(t, RetainBest(kps, 0, false), test.ShouldResemble, kps)
		test.That(t, RetainBest(kps, 10, false), test.ShouldResemble, kps)
	})

	t.Run("input untouched", func(t *testing.T) {
		RetainBest(kps, 2, false)
		test.That(t, kps[0].Response, test.ShouldEqual, 1)
		test.That(t, kps[4].Response, test.ShouldEqual, 2)
	})
}

func TestOverlap(t *testing.T) {
	a := KeyPoint{X: 10, Y: 10, Size: 6}
	test.That(t, Overlap(a, a), test.ShouldAlmostEqual, 1.0)
	test.That(t, Overlap(a, KeyPoint{X: 16, Y: 10, Size: 6}), test.ShouldEqual, 0)
	test.That(t, Overlap(a, KeyPoint{X: 100, Y: 10, Size: 6}), test.ShouldEqual, 0)
	test.That(t, Overlap(a, KeyPoint{X: 10, Y: 10, Size: 0}), test.ShouldEqual, 0)

	// a disc of radius 1 inside one of radius 3
	test.That(t, Overlap(a, KeyPoint{X: 11, Y: 10, Size: 2}), test.ShouldAlmostEqual, 1.0/9.0)

	// neighbours one pixel apart overlap partially and symmetrically
	b := KeyPoint{X: 11, Y: 10, Size: 6}
	o := Overlap(a, b)
	test.That(t, o, test.ShouldBeGreaterThan, 0)
	test.That(t, o, test.ShouldBeLessThan, 1)
	test.That(t, math.Abs(o-Overlap(b, a)), test.ShouldBeLessThan, 1e-12)
}

func TestMeanSize(t *testing.T) {
	test.That(t, MeanSize(nil), test.ShouldEqual, 0)
	test.That(t, MeanSize([]KeyPoint{{Size: 2}, {Size: 4}}), test.ShouldEqual, 3)
}

func TestParseKinds(t *testing.T) {
	for _, k := range DetectorKinds {
		got, err := ParseDetector(k.String())
		test.That(t, err, test.ShouldBeNil)
		test.That(t, got, test.ShouldEqual, k)
	}
	for _, k := range DescriptorKinds {
		got, err := ParseDescriptor(k.String())
		test.That(t, err, test.ShouldBeNil)
		test.That(t, got, test.ShouldEqual, k)
	}

	d, err := ParseDetector("shitomasi")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, d, test.ShouldEqual, ShiTomasi)

	_, err = ParseDetector("SURF")
	test.That(t, errors.Is(err, ErrUnknownDetector), test.ShouldBeTrue)
	_, err = ParseDescriptor("DAISY")
	test.That(t, errors.Is(err, ErrUnknownDescriptor), test.ShouldBeTrue)
}

func TestFamily(t *testing.T) {
	test.That(t, SIFT.Family(), test.ShouldEqual, FamilyHOG)
	for _, k := range []DescriptorKind{BRISK, BRIEF, ORB, FREAK, AKAZE} {
		test.That(t, k.Family(), test.ShouldEqual, FamilyBinary)
	}

	f, err := ParseFamily("DES_HOG")
	test.That(t, err, test.ShouldBeNil)
	m, err := f.Metric()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m, test.ShouldEqual, L2)

	f, err = ParseFamily("DES_BINARY")
	test.That(t, err, test.ShouldBeNil)
	m, err = f.Metric()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m, test.ShouldEqual, Hamming)

	_, err = ParseFamily("DES_SURF")
	test.That(t, errors.Is(err, ErrUnknownFamily), test.ShouldBeTrue)
	_, err = DescriptorFamily(7).Metric()
	test.That(t, errors.Is(err, ErrUnknownFamily), test.ShouldBeTrue)
}

func TestDescriptors(t *testing.T) {
	d, err := NewBinaryDescriptors(2, [][]byte{{0, 255}, {7, 1}})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, d.Rows(), test.ShouldEqual, 2)

	f := d.AsFloat32()
	test.That(t, f.Encoding, test.ShouldEqual, EncodingFloat32)
	test.That(t, f.Rows(), test.ShouldEqual, 2)
	test.That(t, f.Floats[0], test.ShouldResemble, []float32{0, 255})
	test.That(t, f.Floats[1], test.ShouldResemble, []float32{7, 1})
	test.That(t, f.AsFloat32().Floats, test.ShouldResemble, f.Floats)

	_, err = NewBinaryDescriptors(2, [][]byte{{0}})
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewFloatDescriptors(3, [][]float32{{1, 2}})
	test.That(t, err, test.ShouldNotBeNil)

	test.That(t, Descriptors{}.Empty(), test.ShouldBeTrue)
}

func TestGrayRaster(t *testing.T) {
	r := NewGrayRaster(image.NewGray(image.Rect(0, 0, 4, 3)))
	test.That(t, r.Size(), test.ShouldResemble, image.Pt(4, 3))
	img, err := r.Gray()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, img, test.ShouldNotBeNil)

	test.That(t, r.Close(), test.ShouldBeNil)
	_, err = r.Gray()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, r.Size(), test.ShouldResemble, image.Point{})
}
