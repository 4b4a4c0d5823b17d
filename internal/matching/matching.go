// Package matching pairs the descriptors of two frames.
//
// An Engine produces the k best reference candidates for every source row. The
// selector then either keeps the best candidate (nearest neighbour) or keeps it
// only when it is clearly better than the runner-up (ratio test).
package matching

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/Dzusmin/featurebench/internal/features"
)

var (
	// ErrUnknownMatcher is returned for an unrecognised matcher kind.
	ErrUnknownMatcher = errors.New("unknown matcher type")
	// ErrUnknownSelector is returned for an unrecognised selector.
	ErrUnknownSelector = errors.New("unknown selector type")
	// ErrMetricEncoding is returned when a Hamming engine is handed float descriptors.
	ErrMetricEncoding = errors.New("hamming distance needs binary descriptors")
)

// DefaultRatio is the distance ratio threshold of the KNN selector.
const DefaultRatio = 0.8

// Kind selects the matching engine.
type Kind int

const (
	// BruteForce compares every source row with every reference row.
	BruteForce Kind = iota
	// FLANN uses an approximate nearest neighbour index over float vectors.
	FLANN
	// Exhaustive is brute force computed in Go, without OpenCV.
	Exhaustive
)

func (k Kind) String() string {
	switch k {
	case BruteForce:
		return "MAT_BF"
	case FLANN:
		return "MAT_FLANN"
	case Exhaustive:
		return "MAT_EXHAUSTIVE"
	default:
		return "unknown"
	}
}

// ParseKind accepts MAT_BF/MAT_FLANN/MAT_EXHAUSTIVE and the short forms
// bf/flann/exhaustive.
func ParseKind(s string) (Kind, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "MAT_BF", "BF":
		return BruteForce, nil
	case "MAT_FLANN", "FLANN":
		return FLANN, nil
	case "MAT_EXHAUSTIVE", "EXHAUSTIVE":
		return Exhaustive, nil
	}
	return 0, errors.Wrapf(ErrUnknownMatcher, "%q", s)
}

// Selector picks which candidates survive.
type Selector int

const (
	// NearestNeighbour keeps the best candidate of every source row.
	NearestNeighbour Selector = iota
	// KNearest keeps the best candidate only if it passes the ratio test.
	KNearest
)

func (s Selector) String() string {
	switch s {
	case NearestNeighbour:
		return "SEL_NN"
	case KNearest:
		return "SEL_KNN"
	default:
		return "unknown"
	}
}

// ParseSelector accepts SEL_NN/SEL_KNN and the short forms nn/knn.
func ParseSelector(s string) (Selector, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "SEL_NN", "NN":
		return NearestNeighbour, nil
	case "SEL_KNN", "KNN":
		return KNearest, nil
	}
	return 0, errors.Wrapf(ErrUnknownSelector, "%q", s)
}

// Config describes one matching setup.
type Config struct {
	Kind     Kind
	Selector Selector
	Family   features.DescriptorFamily
	Ratio    float64
}

// Engine finds the k best train rows for each query row, best first. A query
// row may get fewer than k candidates.
type Engine interface {
	KnnMatch(query, train features.Descriptors, k int) ([][]features.Match, error)
	Close() error
}

// EngineFactory builds an engine for a matcher kind and distance metric.
type EngineFactory interface {
	Engine(kind Kind, metric features.Metric) (Engine, error)
}

// Match matches src against ref and applies the configured selector. Matches
// index src rows as SourceIndex and ref rows as ReferenceIndex.
func Match(engine Engine, src, ref features.Descriptors, cfg Config) ([]features.Match, error) {
	if src.Empty() || ref.Empty() {
		return []features.Match{}, nil
	}
	metric, err := cfg.Family.Metric()
	if err != nil {
		return nil, err
	}

	switch cfg.Kind {
	case BruteForce, Exhaustive:
		if metric == features.Hamming && (src.Encoding != features.EncodingBinary || ref.Encoding != features.EncodingBinary) {
			return nil, ErrMetricEncoding
		}
	case FLANN:
		src, ref = src.AsFloat32(), ref.AsFloat32()
	default:
		return nil, errors.Wrapf(ErrUnknownMatcher, "%d", int(cfg.Kind))
	}

	switch cfg.Selector {
	case NearestNeighbour:
		knn, err := engine.KnnMatch(src, ref, 1)
		if err != nil {
			return nil, errors.Wrap(err, "nearest neighbour match")
		}
		out := make([]features.Match, 0, len(knn))
		for _, cands := range knn {
			if len(cands) > 0 {
				out = append(out, cands[0])
			}
		}
		return out, nil
	case KNearest:
		knn, err := engine.KnnMatch(src, ref, 2)
		if err != nil {
			return nil, errors.Wrap(err, "knn match")
		}
		ratio := cfg.Ratio
		if ratio <= 0 {
			ratio = DefaultRatio
		}
		return RatioFilter(knn, ratio), nil
	default:
		return nil, errors.Wrapf(ErrUnknownSelector, "%d", int(cfg.Selector))
	}
}

// RatioFilter keeps the best candidate of each row when best/second < ratio.
// Rows with fewer than two candidates are dropped, as are rows whose two
// distances are both zero.
func RatioFilter(knn [][]features.Match, ratio float64) []features.Match {
	out := make([]features.Match, 0, len(knn))
	for _, n := range knn {
		if len(n) < 2 {
			continue
		}
		// written as a product so a zero second distance never divides
		if n[0].Distance < ratio*n[1].Distance {
			out = append(out, n[0])
		}
	}
	return out
}
