// Package experiment runs the detector x descriptor matrix.
package experiment

import (
	"log/slog"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/Dzusmin/featurebench/internal/features"
	"github.com/Dzusmin/featurebench/internal/pipeline"
	"github.com/Dzusmin/featurebench/internal/report"
)

// SkipRule excludes the combinations it matches from the matrix.
type SkipRule struct {
	Name   string
	Reason string
	Match  func(c pipeline.Combination) bool
}

// DefaultSkipRules are the combinations that cannot run.
var DefaultSkipRules = []SkipRule{
	{
		Name:   "sift-orb",
		Reason: "ORB descriptors on SIFT keypoints exhaust memory",
		Match: func(c pipeline.Combination) bool {
			return c.Detector == features.SIFTDetector && c.Descriptor == features.ORB
		},
	},
	{
		Name:   "akaze-needs-akaze-keypoints",
		Reason: "AKAZE descriptors need the octave and class metadata of AKAZE keypoints",
		Match: func(c pipeline.Combination) bool {
			return c.Descriptor == features.AKAZE && c.Detector != features.AKAZEDetector
		},
	},
}

// Skipped returns the first rule matching c, if any.
func Skipped(c pipeline.Combination, rules []SkipRule) (SkipRule, bool) {
	return lo.Find(rules, func(r SkipRule) bool {
		return r.Match(c)
	})
}

// ShouldProcess reports whether no rule excludes c.
func ShouldProcess(c pipeline.Combination, rules []SkipRule) bool {
	_, skip := Skipped(c, rules)
	return !skip
}

// Combinations returns every detector/descriptor pair not excluded by rules,
// detector major and descriptor minor.
func Combinations(detectors []features.DetectorKind, descriptors []features.DescriptorKind, rules []SkipRule) []pipeline.Combination {
	all := lo.FlatMap(detectors, func(d features.DetectorKind, _ int) []pipeline.Combination {
		return lo.Map(descriptors, func(e features.DescriptorKind, _ int) pipeline.Combination {
			return pipeline.Combination{Detector: d, Descriptor: e}
		})
	})
	return lo.Filter(all, func(c pipeline.Combination, _ int) bool {
		return ShouldProcess(c, rules)
	})
}

// Runner runs one combination. pipeline.Runner satisfies it.
type Runner interface {
	Run(c pipeline.Combination) (*pipeline.Summary, error)
}

// Driver runs a list of combinations and writes one row per run.
type Driver struct {
	Runner Runner
	Sink   report.Sink
	Logger *slog.Logger
}

// Run processes combos in order. The first failing combination aborts the
// experiment.
func (d *Driver) Run(combos []pipeline.Combination) error {
	logger := d.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	for i, c := range combos {
		logger.Info("running combination", "detector", c.Detector.String(), "descriptor", c.Descriptor.String(), "n", i+1, "of", len(combos))
		s, err := d.Runner.Run(c)
		if err != nil {
			return errors.Wrapf(err, "combination %v", c)
		}
		if err := d.Sink.Write(report.FromSummary(s)); err != nil {
			return errors.Wrapf(err, "cannot log combination %v", c)
		}
	}
	return nil
}
