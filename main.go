// Command featurebench runs every configured keypoint detector and descriptor
// pair over a numbered image sequence and logs detection, matching and timing
// statistics.
package main

import (
	"log/slog"
	"net/http"
	_ "net/http/pprof"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"github.com/Dzusmin/featurebench/internal/config"
	"github.com/Dzusmin/featurebench/internal/experiment"
	"github.com/Dzusmin/featurebench/internal/features"
	"github.com/Dzusmin/featurebench/internal/opencv"
	"github.com/Dzusmin/featurebench/internal/pipeline"
	"github.com/Dzusmin/featurebench/internal/report"
)

const (
	flagConfig     = "config"
	flagDebug      = "debug"
	flagProfile    = "profile"
	flagFocus      = "focus"
	flagLimit      = "max-keypoints"
	flagVisualize  = "visualize"
	flagChart      = "chart"
	flagMatcher    = "matcher"
	flagSelector   = "selector"
	flagDetector   = "detector"
	flagDescriptor = "descriptor"
	flagForce      = "force"

	profileAddr = "localhost:6060"
	windowName  = "Matching keypoints"
)

func main() {
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{TimeFormat: "15:04:05"}))
	app := newApp(&logger)
	if err := app.Run(os.Args); err != nil {
		logger.Error("featurebench failed", "err", err)
		os.Exit(1)
	}
}

func newApp(logger **slog.Logger) *cli.App {
	overrides := []cli.Flag{
		&cli.BoolFlag{Name: flagFocus, Usage: "only keep keypoints on the preceding vehicle"},
		&cli.IntFlag{Name: flagLimit, Usage: "keep at most `N` keypoints per frame, 0 keeps all"},
		&cli.StringFlag{Name: flagVisualize, Usage: "match visualisation: off, window or png"},
		&cli.StringFlag{Name: flagChart, Usage: "write a timing chart to `FILE`"},
		&cli.StringFlag{Name: flagMatcher, Usage: "matching engine: MAT_BF, MAT_FLANN or MAT_EXHAUSTIVE"},
		&cli.StringFlag{Name: flagSelector, Usage: "match selection: SEL_NN or SEL_KNN"},
	}
	return &cli.App{
		Name:  "featurebench",
		Usage: "benchmark keypoint detectors and descriptors on an image sequence",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "Load configuration from `FILE`",
			},
			&cli.BoolFlag{Name: flagDebug, Usage: "enable debug logging"},
			&cli.BoolFlag{Name: flagProfile, Usage: "serve pprof on " + profileAddr},
		},
		Before: func(c *cli.Context) error {
			level := slog.LevelInfo
			if c.Bool(flagDebug) {
				level = slog.LevelDebug
			}
			*logger = slog.New(tint.NewHandler(os.Stderr, &tint.Options{
				Level:      level,
				TimeFormat: "15:04:05",
			}))
			if c.Bool(flagProfile) {
				go func() {
					srv := &http.Server{Addr: profileAddr, ReadHeaderTimeout: 3 * time.Second}
					(*logger).Warn("profiler stopped", "err", srv.ListenAndServe())
				}()
			}
			return nil
		},
		Action: func(c *cli.Context) error {
			return runMatrix(c, *logger)
		},
		Commands: []*cli.Command{
			{
				Name:  "matrix",
				Usage: "run every configured detector and descriptor pair",
				Flags: overrides,
				Action: func(c *cli.Context) error {
					return runMatrix(c, *logger)
				},
			},
			{
				Name:      "single",
				Usage:     "run one detector and descriptor pair",
				UsageText: "featurebench single --detector FAST --descriptor BRIEF",
				Flags: append([]cli.Flag{
					&cli.StringFlag{Name: flagDetector, Required: true, Usage: "detector `NAME`"},
					&cli.StringFlag{Name: flagDescriptor, Required: true, Usage: "descriptor `NAME`"},
					&cli.BoolFlag{Name: flagForce, Usage: "run the pair even if a skip rule excludes it"},
				}, overrides...),
				Action: func(c *cli.Context) error {
					return runSingle(c, *logger)
				},
			},
		},
	}
}

// loadConfig reads the file named by --config and applies the command line
// overrides on top of it.
func loadConfig(c *cli.Context) (config.Config, *config.Resolved, error) {
	cfg, err := config.Load(c.String(flagConfig))
	if err != nil {
		return config.Config{}, nil, err
	}
	applyFlags(c, &cfg)
	r, err := cfg.Validate()
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, r, nil
}

func applyFlags(c *cli.Context, cfg *config.Config) {
	if c.IsSet(flagFocus) {
		cfg.FocusOnVehicle = c.Bool(flagFocus)
	}
	if c.IsSet(flagLimit) {
		cfg.MaxKeypoints = c.Int(flagLimit)
	}
	if c.IsSet(flagVisualize) {
		cfg.Visualize = c.String(flagVisualize)
	}
	if c.IsSet(flagChart) {
		cfg.Chart = c.String(flagChart)
	}
	if c.IsSet(flagMatcher) {
		cfg.Matcher = c.String(flagMatcher)
	}
	if c.IsSet(flagSelector) {
		cfg.Selector = c.String(flagSelector)
	}
}

func runMatrix(c *cli.Context, logger *slog.Logger) error {
	cfg, r, err := loadConfig(c)
	if err != nil {
		return err
	}
	combos := experiment.Combinations(r.Detectors, r.Descriptors, experiment.DefaultSkipRules)
	for _, d := range r.Detectors {
		for _, k := range r.Descriptors {
			pair := pipeline.Combination{Detector: d, Descriptor: k}
			if rule, ok := experiment.Skipped(pair, experiment.DefaultSkipRules); ok {
				logger.Info("skipping combination", "pair", pair.String(), "rule", rule.Name, "reason", rule.Reason)
			}
		}
	}
	return execute(cfg, r, combos, logger)
}

func runSingle(c *cli.Context, logger *slog.Logger) error {
	cfg, r, err := loadConfig(c)
	if err != nil {
		return err
	}
	det, err := features.ParseDetector(c.String(flagDetector))
	if err != nil {
		return err
	}
	desc, err := features.ParseDescriptor(c.String(flagDescriptor))
	if err != nil {
		return err
	}
	pair := pipeline.Combination{Detector: det, Descriptor: desc}
	if rule, ok := experiment.Skipped(pair, experiment.DefaultSkipRules); ok {
		if !c.Bool(flagForce) {
			return errors.Errorf("%v is excluded by rule %s: %s (use --%s to run it anyway)", pair, rule.Name, rule.Reason, flagForce)
		}
		logger.Warn("running excluded combination", "pair", pair.String(), "rule", rule.Name, "reason", rule.Reason)
	}
	return execute(cfg, r, []pipeline.Combination{pair}, logger)
}

// execute wires the OpenCV backend, the viewer and the report sinks and runs
// combos through the experiment driver.
func execute(cfg config.Config, r *config.Resolved, combos []pipeline.Combination, logger *slog.Logger) (err error) {
	backend := opencv.NewBackend()
	runner := &pipeline.Runner{
		Backend: backend,
		Engines: backend,
		Options: pipeline.Options{
			Images:         cfg.Images.Paths(),
			FocusOnVehicle: cfg.FocusOnVehicle,
			Region:         features.VehicleRegion,
			MaxKeypoints:   cfg.MaxKeypoints,
			Matcher:        r.Matcher,
			Selector:       r.Selector,
			Ratio:          cfg.Ratio,
			Family:         r.Family,
		},
		Logger: logger,
	}

	switch strings.ToLower(cfg.Visualize) {
	case config.VisualizeWindow:
		w := opencv.NewWindow(windowName)
		defer func() { err = multierr.Append(err, w.Close()) }()
		runner.Viewer = w
	case config.VisualizePNG:
		v, err := report.NewPNGViewer(cfg.VisDir)
		if err != nil {
			return err
		}
		runner.Viewer = v
	}

	sink, err := newSink(cfg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, sink.Close()) }()

	logger.Info("starting experiment",
		"images", len(runner.Options.Images),
		"combinations", len(combos),
		"matcher", r.Matcher.String(),
		"selector", r.Selector.String(),
		"focus_on_vehicle", cfg.FocusOnVehicle)
	d := &experiment.Driver{Runner: runner, Sink: sink, Logger: logger}
	return d.Run(combos)
}

func newSink(cfg config.Config) (report.Multi, error) {
	csv, err := report.NewCSV(cfg.LogDir)
	if err != nil {
		return nil, err
	}
	sinks := report.Multi{csv, report.NewTable(os.Stdout)}
	if cfg.Chart != "" {
		sinks = append(sinks, report.NewChart(cfg.Chart))
	}
	return sinks, nil
}
