// Package config defines the benchmark configuration, its JSON file format and
// its validation.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/Dzusmin/featurebench/internal/features"
	"github.com/Dzusmin/featurebench/internal/matching"
)

// ErrInvalid is returned for configuration values outside their allowed range.
var ErrInvalid = errors.New("invalid configuration")

// ImageSource describes a numbered image sequence on disk.
type ImageSource struct {
	Dir       string `json:"dir"`
	Prefix    string `json:"prefix"`
	Suffix    string `json:"suffix"`
	First     int    `json:"first"`
	Last      int    `json:"last"`
	FillWidth int    `json:"fill_width"`
}

// Path returns the file of image i: Dir/Prefix + i zero padded to FillWidth + Suffix.
func (s ImageSource) Path(i int) string {
	return filepath.Join(s.Dir, fmt.Sprintf("%s%0*d%s", s.Prefix, s.FillWidth, i, s.Suffix))
}

// Paths returns the files of images First through Last inclusive.
func (s ImageSource) Paths() []string {
	if s.Last < s.First {
		return nil
	}
	out := make([]string, 0, s.Last-s.First+1)
	for i := s.First; i <= s.Last; i++ {
		out = append(out, s.Path(i))
	}
	return out
}

// Visualisation modes.
const (
	VisualizeOff    = "off"
	VisualizeWindow = "window"
	VisualizePNG    = "png"
)

// Config is the complete benchmark configuration.
type Config struct {
	Images         ImageSource `json:"images"`
	Detectors      []string    `json:"detectors"`
	Descriptors    []string    `json:"descriptors"`
	Matcher        string      `json:"matcher"`
	Selector       string      `json:"selector"`
	Ratio          float64     `json:"ratio"`
	FocusOnVehicle bool        `json:"focus_on_vehicle"`
	MaxKeypoints   int         `json:"max_keypoints"`
	Visualize      string      `json:"visualize"`
	VisDir         string      `json:"vis_dir"`
	LogDir         string      `json:"log_dir"`
	// Chart is the timing chart file; empty disables the chart.
	Chart string `json:"chart,omitempty"`
	// DescriptorFamily forces DES_BINARY or DES_HOG for every descriptor;
	// empty uses each descriptor's own family.
	DescriptorFamily string `json:"descriptor_family,omitempty"`
}

// Default returns the KITTI setup: ten frames, every algorithm, brute force
// matching with the ratio test, evaluation restricted to the preceding vehicle.
func Default() Config {
	return Config{
		Images: ImageSource{
			Dir:       "images",
			Prefix:    "KITTI/2011_09_26/image_00/data/000000",
			Suffix:    ".png",
			First:     0,
			Last:      9,
			FillWidth: 4,
		},
		Detectors:      names(features.DetectorKinds),
		Descriptors:    names(features.DescriptorKinds),
		Matcher:        matching.BruteForce.String(),
		Selector:       matching.KNearest.String(),
		Ratio:          matching.DefaultRatio,
		FocusOnVehicle: true,
		Visualize:      VisualizeOff,
		VisDir:         "vis",
		LogDir:         "logs",
	}
}

func names[T fmt.Stringer](kinds []T) []string {
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = k.String()
	}
	return out
}

// Load reads a JSON file over the defaults, so the file only needs the fields
// it changes. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "cannot open config")
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, errors.Wrapf(err, "cannot decode config %s", path)
	}
	return cfg, nil
}

// Resolved holds the enum form of every name in a Config.
type Resolved struct {
	Detectors   []features.DetectorKind
	Descriptors []features.DescriptorKind
	Matcher     matching.Kind
	Selector    matching.Selector
	// Family is nil unless the configuration overrides it.
	Family *features.DescriptorFamily
}

// Validate checks every field and resolves algorithm names.
func (c *Config) Validate() (*Resolved, error) {
	if c.Images.First < 0 || c.Images.Last < c.Images.First {
		return nil, errors.Wrapf(ErrInvalid, "image range [%d, %d]", c.Images.First, c.Images.Last)
	}
	if c.Images.FillWidth < 0 {
		return nil, errors.Wrapf(ErrInvalid, "fill_width %d", c.Images.FillWidth)
	}
	if c.Ratio <= 0 || c.Ratio > 1 {
		return nil, errors.Wrapf(ErrInvalid, "ratio %v must be in (0, 1]", c.Ratio)
	}
	if c.MaxKeypoints < 0 {
		return nil, errors.Wrapf(ErrInvalid, "max_keypoints %d", c.MaxKeypoints)
	}
	switch strings.ToLower(c.Visualize) {
	case VisualizeOff, VisualizeWindow:
	case VisualizePNG:
		if c.VisDir == "" {
			return nil, errors.Wrap(ErrInvalid, "png visualisation needs vis_dir")
		}
	default:
		return nil, errors.Wrapf(ErrInvalid, "visualize %q", c.Visualize)
	}
	if c.LogDir == "" {
		return nil, errors.Wrap(ErrInvalid, "log_dir is empty")
	}
	if len(c.Detectors) == 0 || len(c.Descriptors) == 0 {
		return nil, errors.Wrap(ErrInvalid, "no detectors or descriptors selected")
	}

	r := &Resolved{}
	for _, name := range c.Detectors {
		k, err := features.ParseDetector(name)
		if err != nil {
			return nil, err
		}
		r.Detectors = append(r.Detectors, k)
	}
	for _, name := range c.Descriptors {
		k, err := features.ParseDescriptor(name)
		if err != nil {
			return nil, err
		}
		r.Descriptors = append(r.Descriptors, k)
	}
	var err error
	if r.Matcher, err = matching.ParseKind(c.Matcher); err != nil {
		return nil, err
	}
	if r.Selector, err = matching.ParseSelector(c.Selector); err != nil {
		return nil, err
	}
	if c.DescriptorFamily != "" {
		f, err := features.ParseFamily(c.DescriptorFamily)
		if err != nil {
			return nil, err
		}
		r.Family = &f
	}
	return r, nil
}
