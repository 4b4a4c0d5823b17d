package matching

import (
	"math"
	"math/bits"
	"sort"

	"github.com/pkg/errors"

	"github.com/Dzusmin/featurebench/internal/features"
)

// ExhaustiveEngine is a pure Go brute force Engine, selected by the Exhaustive
// kind. It needs no OpenCV runtime.
type ExhaustiveEngine struct {
	Metric features.Metric
}

// NewExhaustive returns an exhaustive engine for metric.
func NewExhaustive(metric features.Metric) *ExhaustiveEngine {
	return &ExhaustiveEngine{Metric: metric}
}

// KnnMatch returns up to k candidates per query row, ordered by distance and
// then by train index.
func (e *ExhaustiveEngine) KnnMatch(query, train features.Descriptors, k int) ([][]features.Match, error) {
	if k <= 0 {
		return nil, errors.Errorf("k must be positive, got %d", k)
	}
	if query.Width != train.Width {
		return nil, errors.Errorf("descriptor widths differ: %d vs %d", query.Width, train.Width)
	}
	dist, err := e.distanceFunc(query, train)
	if err != nil {
		return nil, err
	}

	out := make([][]features.Match, query.Rows())
	for q := range out {
		cands := make([]features.Match, train.Rows())
		for t := range cands {
			cands[t] = features.Match{SourceIndex: q, ReferenceIndex: t, Distance: dist(q, t)}
		}
		sort.SliceStable(cands, func(i, j int) bool {
			return cands[i].Distance < cands[j].Distance
		})
		if len(cands) > k {
			cands = cands[:k]
		}
		out[q] = cands
	}
	return out, nil
}

// Close is a no-op.
func (e *ExhaustiveEngine) Close() error {
	return nil
}

func (e *ExhaustiveEngine) distanceFunc(query, train features.Descriptors) (func(q, t int) float64, error) {
	switch e.Metric {
	case features.Hamming:
		if query.Encoding != features.EncodingBinary || train.Encoding != features.EncodingBinary {
			return nil, ErrMetricEncoding
		}
		return func(q, t int) float64 {
			return float64(hamming(query.Bytes[q], train.Bytes[t]))
		}, nil
	case features.L2:
		qf, tf := query.AsFloat32(), train.AsFloat32()
		return func(q, t int) float64 {
			return euclidean(qf.Floats[q], tf.Floats[t])
		}, nil
	default:
		return nil, errors.Errorf("unsupported metric %v", e.Metric)
	}
}

func hamming(a, b []byte) int {
	n := 0
	for i := range a {
		n += bits.OnesCount8(a[i] ^ b[i])
	}
	return n
}

func euclidean(a, b []float32) float64 {
	var s float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		s += d * d
	}
	return math.Sqrt(s)
}
