package experiment

import (
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"

	"github.com/Dzusmin/featurebench/internal/features"
	"github.com/Dzusmin/featurebench/internal/pipeline"
	"github.com/Dzusmin/featurebench/internal/report"
)

type fakeRunner struct {
	ran    []pipeline.Combination
	failOn pipeline.Combination
}

func (f *fakeRunner) Run(c pipeline.Combination) (*pipeline.Summary, error) {
	f.ran = append(f.ran, c)
	if c == f.failOn {
		return nil, errors.New("detector exploded")
	}
	return &pipeline.Summary{Combination: c, Frames: 10, AvgKeyPoints: float64(len(f.ran))}, nil
}

type memorySink struct {
	rows []report.Row
}

func (m *memorySink) Write(r report.Row) error {
	m.rows = append(m.rows, r)
	return nil
}

func (m *memorySink) Close() error { return nil }

func TestShouldProcess(t *testing.T) {
	tests := []struct {
		det  features.DetectorKind
		desc features.DescriptorKind
		want bool
	}{
		{features.SIFTDetector, features.ORB, false},
		{features.SIFTDetector, features.SIFT, true},
		{features.ORBDetector, features.ORB, true},
		{features.FAST, features.AKAZE, false},
		{features.SIFTDetector, features.AKAZE, false},
		{features.AKAZEDetector, features.AKAZE, true},
		{features.AKAZEDetector, features.ORB, true},
		{features.ShiTomasi, features.BRISK, true},
	}
	for _, tc := range tests {
		c := pipeline.Combination{Detector: tc.det, Descriptor: tc.desc}
		t.Run(c.String(), func(t *testing.T) {
			test.That(t, ShouldProcess(c, DefaultSkipRules), test.ShouldEqual, tc.want)
		})
	}

	rule, skipped := Skipped(pipeline.Combination{Detector: features.Harris, Descriptor: features.AKAZE}, DefaultSkipRules)
	test.That(t, skipped, test.ShouldBeTrue)
	test.That(t, rule.Name, test.ShouldEqual, "akaze-needs-akaze-keypoints")

	test.That(t, ShouldProcess(pipeline.Combination{Detector: features.SIFTDetector, Descriptor: features.ORB}, nil), test.ShouldBeTrue)
}

func TestCombinations(t *testing.T) {
	all := Combinations(features.DetectorKinds, features.DescriptorKinds, DefaultSkipRules)
	// 7 x 6 pairs, minus SIFT/ORB and the six non-AKAZE detectors with AKAZE descriptors
	test.That(t, len(all), test.ShouldEqual, 7*6-1-6)
	for _, c := range all {
		test.That(t, ShouldProcess(c, DefaultSkipRules), test.ShouldBeTrue)
	}

	// skip rules are the only thing removing pairs
	test.That(t, len(Combinations(features.DetectorKinds, features.DescriptorKinds, nil)), test.ShouldEqual, 42)

	// detector major, descriptor minor
	test.That(t, all[0], test.ShouldResemble, pipeline.Combination{Detector: features.ShiTomasi, Descriptor: features.BRISK})
	test.That(t, all[1], test.ShouldResemble, pipeline.Combination{Detector: features.ShiTomasi, Descriptor: features.BRIEF})
	test.That(t, all[5], test.ShouldResemble, pipeline.Combination{Detector: features.Harris, Descriptor: features.BRISK})
	test.That(t, all[len(all)-1], test.ShouldResemble, pipeline.Combination{Detector: features.SIFTDetector, Descriptor: features.SIFT})

	test.That(t, len(Combinations(nil, features.DescriptorKinds, DefaultSkipRules)), test.ShouldEqual, 0)
}

func TestDriverRun(t *testing.T) {
	combos := []pipeline.Combination{
		{Detector: features.FAST, Descriptor: features.BRIEF},
		{Detector: features.ORBDetector, Descriptor: features.ORB},
	}
	runner := &fakeRunner{failOn: pipeline.Combination{Detector: -1}}
	sink := &memorySink{}

	err := (&Driver{Runner: runner, Sink: sink}).Run(combos)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, runner.ran, test.ShouldResemble, combos)
	test.That(t, len(sink.rows), test.ShouldEqual, 2)
	test.That(t, sink.rows[0].Detector, test.ShouldEqual, "FAST")
	test.That(t, sink.rows[0].Descriptor, test.ShouldEqual, "BRIEF")
	test.That(t, sink.rows[1].Detector, test.ShouldEqual, "ORB")
	test.That(t, sink.rows[1].AvgKeyPoints, test.ShouldEqual, 2)

	t.Run("failure aborts the experiment", func(t *testing.T) {
		runner := &fakeRunner{failOn: combos[0]}
		sink := &memorySink{}
		err := (&Driver{Runner: runner, Sink: sink}).Run(combos)
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "FAST/BRIEF")
		test.That(t, len(runner.ran), test.ShouldEqual, 1)
		test.That(t, len(sink.rows), test.ShouldEqual, 0)
	})
}
