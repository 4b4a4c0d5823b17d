package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"

	"github.com/Dzusmin/featurebench/internal/features"
	"github.com/Dzusmin/featurebench/internal/matching"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bench.json")
	test.That(t, os.WriteFile(path, []byte(body), 0o600), test.ShouldBeNil)
	return path
}

func TestImagePaths(t *testing.T) {
	src := Default().Images
	test.That(t, src.Path(3), test.ShouldEqual, filepath.Join("images", "KITTI/2011_09_26/image_00/data/0000000003.png"))

	paths := src.Paths()
	test.That(t, len(paths), test.ShouldEqual, 10)
	test.That(t, paths[0], test.ShouldEqual, src.Path(0))
	test.That(t, paths[9], test.ShouldEqual, src.Path(9))

	custom := ImageSource{Dir: "/data", Prefix: "img-", Suffix: ".jpg", First: 98, Last: 101, FillWidth: 3}
	test.That(t, custom.Paths(), test.ShouldResemble, []string{
		"/data/img-098.jpg", "/data/img-099.jpg", "/data/img-100.jpg", "/data/img-101.jpg",
	})

	test.That(t, ImageSource{First: 2, Last: 1}.Paths(), test.ShouldBeEmpty)
}

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	r, err := cfg.Validate()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, r.Detectors, test.ShouldResemble, features.DetectorKinds)
	test.That(t, r.Descriptors, test.ShouldResemble, features.DescriptorKinds)
	test.That(t, r.Matcher, test.ShouldEqual, matching.BruteForce)
	test.That(t, r.Selector, test.ShouldEqual, matching.KNearest)
	test.That(t, cfg.FocusOnVehicle, test.ShouldBeTrue)
	test.That(t, r.Family, test.ShouldBeNil)
}

func TestLoad(t *testing.T) {
	t.Run("empty path gives defaults", func(t *testing.T) {
		cfg, err := Load("")
		test.That(t, err, test.ShouldBeNil)
		test.That(t, cfg, test.ShouldResemble, Default())
	})

	t.Run("file overrides only what it sets", func(t *testing.T) {
		path := writeConfig(t, `{
			"images": {"dir": "/kitti", "prefix": "f", "suffix": ".png", "first": 0, "last": 1, "fill_width": 2},
			"detectors": ["fast", "ORB"],
			"selector": "SEL_NN",
			"matcher": "MAT_EXHAUSTIVE",
			"descriptor_family": "DES_HOG",
			"focus_on_vehicle": false
		}`)
		cfg, err := Load(path)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, cfg.Images.Path(1), test.ShouldEqual, "/kitti/f01.png")
		test.That(t, cfg.FocusOnVehicle, test.ShouldBeFalse)
		test.That(t, cfg.Matcher, test.ShouldEqual, "MAT_EXHAUSTIVE")
		test.That(t, cfg.Descriptors, test.ShouldResemble, Default().Descriptors)

		r, err := cfg.Validate()
		test.That(t, err, test.ShouldBeNil)
		test.That(t, r.Detectors, test.ShouldResemble, []features.DetectorKind{features.FAST, features.ORBDetector})
		test.That(t, r.Selector, test.ShouldEqual, matching.NearestNeighbour)
		test.That(t, r.Matcher, test.ShouldEqual, matching.Exhaustive)
		test.That(t, r.Family, test.ShouldNotBeNil)
		test.That(t, *r.Family, test.ShouldEqual, features.FamilyHOG)
	})

	t.Run("unknown field", func(t *testing.T) {
		_, err := Load(writeConfig(t, `{"detector": "FAST"}`))
		test.That(t, err, test.ShouldNotBeNil)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
		test.That(t, err, test.ShouldNotBeNil)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		want   error
	}{
		{"unknown detector", func(c *Config) { c.Detectors = []string{"SURF"} }, features.ErrUnknownDetector},
		{"unknown descriptor", func(c *Config) { c.Descriptors = []string{"DAISY"} }, features.ErrUnknownDescriptor},
		{"unknown matcher", func(c *Config) { c.Matcher = "MAT_LSH" }, matching.ErrUnknownMatcher},
		{"unknown selector", func(c *Config) { c.Selector = "SEL_ALL" }, matching.ErrUnknownSelector},
		{"unknown family", func(c *Config) { c.DescriptorFamily = "DES_SURF" }, features.ErrUnknownFamily},
		{"reversed range", func(c *Config) { c.Images.First, c.Images.Last = 5, 4 }, ErrInvalid},
		{"negative start", func(c *Config) { c.Images.First = -1 }, ErrInvalid},
		{"negative fill", func(c *Config) { c.Images.FillWidth = -1 }, ErrInvalid},
		{"zero ratio", func(c *Config) { c.Ratio = 0 }, ErrInvalid},
		{"ratio above one", func(c *Config) { c.Ratio = 1.5 }, ErrInvalid},
		{"negative limit", func(c *Config) { c.MaxKeypoints = -3 }, ErrInvalid},
		{"bad visualize mode", func(c *Config) { c.Visualize = "gif" }, ErrInvalid},
		{"png without dir", func(c *Config) { c.Visualize, c.VisDir = VisualizePNG, "" }, ErrInvalid},
		{"no log dir", func(c *Config) { c.LogDir = "" }, ErrInvalid},
		{"no detectors", func(c *Config) { c.Detectors = nil }, ErrInvalid},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			_, err := cfg.Validate()
			test.That(t, errors.Is(err, tc.want), test.ShouldBeTrue)
		})
	}
}
