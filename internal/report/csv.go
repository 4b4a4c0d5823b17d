package report

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// Log file names.
const (
	RecallFile      = "detectionRecallLogs.csv"
	PerformanceFile = "detectionPerformanceLogs.csv"
)

var (
	recallHeader = []string{
		"Keypointdetector", "Avg Num Keypoint Detections", "Descriptor Algorithm",
		"Avg Num Descriptor Matches", "Avg Keypointsize", "FocusOnVehicle",
	}
	performanceHeader = []string{
		"Keypointdetector", "Avg Keypoint Detection Time", "Descriptor Algorithm",
		"Avg Descriptor extraction time", "FocusOnVehicle",
	}
)

// CSV writes the recall table (counts and sizes) and the performance table
// (timings) to two files in one directory.
type CSV struct {
	files       []*os.File
	recall      *csv.Writer
	performance *csv.Writer
}

// NewCSV creates dir if needed and truncates both log files to their headers.
func NewCSV(dir string) (*CSV, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "cannot create log dir %s", dir)
	}
	s := &CSV{}
	for _, t := range []struct {
		name   string
		header []string
		w      **csv.Writer
	}{
		{RecallFile, recallHeader, &s.recall},
		{PerformanceFile, performanceHeader, &s.performance},
	} {
		f, err := os.Create(filepath.Join(dir, t.name))
		if err != nil {
			return nil, multierr.Append(errors.Wrap(err, "cannot create log file"), s.Close())
		}
		s.files = append(s.files, f)
		*t.w = csv.NewWriter(f)
		if err := (*t.w).Write(t.header); err != nil {
			return nil, multierr.Append(err, s.Close())
		}
	}
	if err := s.flush(); err != nil {
		return nil, multierr.Append(err, s.Close())
	}
	return s, nil
}

// Write appends r to both tables.
func (s *CSV) Write(r Row) error {
	focus := strconv.FormatBool(r.FocusOnVehicle)
	err := multierr.Append(
		s.recall.Write([]string{
			r.Detector, formatFloat(r.AvgKeyPoints), r.Descriptor,
			formatFloat(r.AvgMatches), formatFloat(r.AvgKeyPointSize), focus,
		}),
		s.performance.Write([]string{
			r.Detector, formatFloat(r.AvgDetectionMs), r.Descriptor,
			formatFloat(r.AvgExtractionMs), focus,
		}),
	)
	if err != nil {
		return err
	}
	return s.flush()
}

// Close flushes and closes both files.
func (s *CSV) Close() error {
	var err error
	if s.recall != nil {
		err = s.flush()
	}
	for _, f := range s.files {
		err = multierr.Append(err, f.Close())
	}
	s.files = nil
	return err
}

func (s *CSV) flush() error {
	var err error
	for _, w := range []*csv.Writer{s.recall, s.performance} {
		if w == nil {
			continue
		}
		w.Flush()
		err = multierr.Append(err, w.Error())
	}
	return err
}

// formatFloat prints six significant digits without trailing zeros.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}
