package opencv

import (
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gocv.io/x/gocv"

	"github.com/Dzusmin/featurebench/internal/features"
)

// Matcher is what BFMatcher and FlannBasedMatcher have in common.
type Matcher interface {
	KnnMatch(query, train gocv.Mat, k int) [][]gocv.DMatch
	Close() error
}

// Engine adapts a gocv Matcher to matching.Engine.
type Engine struct {
	matcher Matcher
}

// KnnMatch uploads both descriptor sets and runs the matcher.
func (e *Engine) KnnMatch(query, train features.Descriptors, k int) (knn [][]features.Match, err error) {
	q, err := matFromDescriptors(query)
	if err != nil {
		return nil, errors.Wrap(err, "query descriptors")
	}
	defer func() { err = multierr.Append(err, q.Close()) }()

	t, err := matFromDescriptors(train)
	if err != nil {
		return nil, errors.Wrap(err, "train descriptors")
	}
	defer func() { err = multierr.Append(err, t.Close()) }()

	return toMatches(e.matcher.KnnMatch(q, t, k)), nil
}

// Close releases the matcher.
func (e *Engine) Close() error {
	return e.matcher.Close()
}
