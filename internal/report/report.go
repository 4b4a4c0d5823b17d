// Package report writes experiment results: CSV logs, a console table, a
// timing chart and match images.
package report

import (
	"go.uber.org/multierr"

	"github.com/Dzusmin/featurebench/internal/pipeline"
)

// Row is the logged result of one detector/descriptor run.
type Row struct {
	Detector       string
	Descriptor     string
	FocusOnVehicle bool
	Frames         int

	AvgKeyPoints    float64
	AvgMatches      float64
	AvgKeyPointSize float64
	AvgDetectionMs  float64
	AvgExtractionMs float64
	StdDetectionMs  float64
	StdExtractionMs float64
}

// FromSummary flattens a run summary into a Row.
func FromSummary(s *pipeline.Summary) Row {
	return Row{
		Detector:        s.Combination.Detector.String(),
		Descriptor:      s.Combination.Descriptor.String(),
		FocusOnVehicle:  s.FocusOnVehicle,
		Frames:          s.Frames,
		AvgKeyPoints:    s.AvgKeyPoints,
		AvgMatches:      s.AvgMatches,
		AvgKeyPointSize: s.AvgKeyPointSize,
		AvgDetectionMs:  s.AvgDetectionMs,
		AvgExtractionMs: s.AvgExtractionMs,
		StdDetectionMs:  s.StdDetectionMs,
		StdExtractionMs: s.StdExtractionMs,
	}
}

// Sink receives rows in experiment order.
type Sink interface {
	Write(r Row) error
	Close() error
}

// Multi fans every row out to several sinks.
type Multi []Sink

// Write writes r to every sink and stops at the first error.
func (m Multi) Write(r Row) error {
	for _, s := range m {
		if err := s.Write(r); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every sink and combines their errors.
func (m Multi) Close() error {
	var err error
	for _, s := range m {
		err = multierr.Append(err, s.Close())
	}
	return err
}
