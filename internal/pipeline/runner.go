package pipeline

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/Dzusmin/featurebench/internal/features"
	"github.com/Dzusmin/featurebench/internal/matching"
)

// Options are the per-experiment settings shared by every run.
type Options struct {
	// Images are the frame paths, processed in order.
	Images         []string
	FocusOnVehicle bool
	Region         features.Region
	// MaxKeypoints limits the keypoints per frame; 0 keeps all of them.
	MaxKeypoints int
	Matcher      matching.Kind
	Selector     matching.Selector
	Ratio        float64
	// Family, when set, replaces the descriptor's own family and with it the
	// distance metric.
	Family *features.DescriptorFamily
}

// FrameStats are the measurements taken on one frame.
type FrameStats struct {
	Index        int
	KeyPoints    int
	Matches      int
	MeanSize     float64
	DetectionMs  float64
	ExtractionMs float64
}

// Summary aggregates a run. Averages are taken over frames, so a frame without
// keypoints or matches contributes zero.
type Summary struct {
	Combination    Combination
	FocusOnVehicle bool
	Frames         int

	AvgKeyPoints    float64
	AvgMatches      float64
	AvgKeyPointSize float64
	AvgDetectionMs  float64
	AvgExtractionMs float64

	StdDetectionMs  float64
	StdExtractionMs float64

	PerFrame []FrameStats
}

// Runner executes one detector/descriptor combination over the image sequence.
type Runner struct {
	Backend features.Backend
	Engines matching.EngineFactory
	// Viewer, when set, is shown every matched frame pair.
	Viewer  features.MatchViewer
	Options Options
	Logger  *slog.Logger
}

// run is the state of a single Runner.Run call.
type run struct {
	*Runner
	combo    Combination
	det      features.Detector
	ext      features.Extractor
	engine   matching.Engine
	matchCfg matching.Config
	buf      FrameBuffer
	log      *slog.Logger
}

// Run processes every image once and returns the aggregated statistics. Any
// load, detection, extraction or matching error aborts the run.
func (r *Runner) Run(c Combination) (summary *Summary, err error) {
	logger := r.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	rn := &run{
		Runner: r,
		combo:  c,
		log:    logger.With("detector", c.Detector.String(), "descriptor", c.Descriptor.String()),
	}

	rn.det, err = r.Backend.Detector(c.Detector)
	if err != nil {
		return nil, err
	}
	defer func() { err = multierr.Append(err, closeIfCloser(rn.det)) }()

	rn.ext, err = r.Backend.Extractor(c.Descriptor)
	if err != nil {
		return nil, err
	}
	defer func() { err = multierr.Append(err, closeIfCloser(rn.ext)) }()

	family := c.Descriptor.Family()
	if r.Options.Family != nil {
		family = *r.Options.Family
	}
	metric, err := family.Metric()
	if err != nil {
		return nil, err
	}
	rn.engine, err = r.Engines.Engine(r.Options.Matcher, metric)
	if err != nil {
		return nil, err
	}
	defer func() { err = multierr.Append(err, rn.engine.Close()) }()

	rn.matchCfg = matching.Config{
		Kind:     r.Options.Matcher,
		Selector: r.Options.Selector,
		Family:   family,
		Ratio:    r.Options.Ratio,
	}

	defer func() {
		for _, f := range rn.buf.Drain() {
			err = multierr.Append(err, f.Release())
		}
	}()

	perFrame := make([]FrameStats, 0, len(r.Options.Images))
	for i, path := range r.Options.Images {
		st, err := rn.step(i, path)
		if err != nil {
			return nil, errors.Wrapf(err, "%v frame %d", c, i)
		}
		perFrame = append(perFrame, st)
	}

	summary = summarize(c, r.Options.FocusOnVehicle, perFrame)
	rn.log.Info("run finished",
		"frames", summary.Frames,
		"keypoints", summary.AvgKeyPoints,
		"matches", summary.AvgMatches,
		"detection_ms", summary.AvgDetectionMs,
		"extraction_ms", summary.AvgExtractionMs,
	)
	return summary, nil
}

// step handles one image: load, detect, filter, extract and, once a reference
// frame is buffered, match against it and evict it.
func (rn *run) step(index int, path string) (FrameStats, error) {
	st := FrameStats{Index: index}

	img, err := rn.Backend.Load(path)
	if err != nil {
		return st, err
	}
	frame := &Frame{Index: index, Path: path, Image: img}
	if err := rn.buf.Push(frame); err != nil {
		return st, multierr.Append(err, frame.Release())
	}

	kps, detMs, err := Detect(rn.det, img)
	if err != nil {
		return st, errors.Wrap(err, "detection")
	}
	detected := len(kps)
	if rn.Options.FocusOnVehicle {
		kps = features.FilterRegion(kps, rn.Options.Region)
	}
	kps = features.RetainBest(kps, rn.Options.MaxKeypoints, rn.combo.Detector == features.ShiTomasi)
	rn.log.Debug("keypoints detected", "index", index, "detected", detected, "kept", len(kps), "ms", detMs)

	st.KeyPoints = len(kps)
	st.MeanSize = features.MeanSize(kps)
	st.DetectionMs = detMs

	described, desc, extMs, err := Extract(rn.ext, img, kps)
	if err != nil {
		return st, errors.Wrap(err, "extraction")
	}
	if desc.Rows() != len(described) {
		return st, errors.Errorf("extraction returned %d rows for %d keypoints", desc.Rows(), len(described))
	}
	frame.KeyPoints = described
	frame.Descriptors = desc
	st.ExtractionMs = extMs
	rn.log.Debug("descriptors extracted", "index", index, "rows", desc.Rows(), "ms", extMs)

	if rn.buf.State() != Two {
		return st, nil
	}

	ref := rn.buf.Front()
	matches, err := matching.Match(rn.engine, frame.Descriptors, ref.Descriptors, rn.matchCfg)
	if err != nil {
		return st, errors.Wrap(err, "matching")
	}
	frame.Matches = matches
	st.Matches = len(matches)
	rn.log.Debug("descriptors matched", "index", index, "reference", ref.Index, "matches", len(matches))

	if rn.Viewer != nil {
		title := fmt.Sprintf("%s_%s_%04d", rn.combo.Detector, rn.combo.Descriptor, index)
		if err := rn.Viewer.ShowMatches(title, ref.Image, ref.KeyPoints, frame.Image, frame.KeyPoints, matches); err != nil {
			return st, errors.Wrap(err, "visualisation")
		}
	}

	evicted, err := rn.buf.Pop()
	if err != nil {
		return st, err
	}
	return st, evicted.Release()
}

// summarize divides every per-frame sum by the number of frames.
func summarize(c Combination, focus bool, perFrame []FrameStats) *Summary {
	s := &Summary{Combination: c, FocusOnVehicle: focus, Frames: len(perFrame), PerFrame: perFrame}
	if len(perFrame) == 0 {
		return s
	}

	var kps, matches, sizes, det, ext stats.Float64Data
	for _, f := range perFrame {
		kps = append(kps, float64(f.KeyPoints))
		matches = append(matches, float64(f.Matches))
		sizes = append(sizes, f.MeanSize)
		det = append(det, f.DetectionMs)
		ext = append(ext, f.ExtractionMs)
	}
	n := float64(len(perFrame))
	avg := func(d stats.Float64Data) float64 {
		sum, _ := stats.Sum(d)
		return sum / n
	}
	s.AvgKeyPoints = avg(kps)
	s.AvgMatches = avg(matches)
	s.AvgKeyPointSize = avg(sizes)
	s.AvgDetectionMs = avg(det)
	s.AvgExtractionMs = avg(ext)
	s.StdDetectionMs, _ = stats.StandardDeviationPopulation(det)
	s.StdExtractionMs, _ = stats.StandardDeviationPopulation(ext)
	return s
}

func closeIfCloser(v any) error {
	if c, ok := v.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
