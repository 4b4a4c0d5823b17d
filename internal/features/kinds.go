package features

import (
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrUnknownDetector is returned for a detector name outside DetectorKinds.
	ErrUnknownDetector = errors.New("unknown keypoint detector")
	// ErrUnknownDescriptor is returned for a descriptor name outside DescriptorKinds.
	ErrUnknownDescriptor = errors.New("unknown descriptor extractor")
	// ErrUnknownFamily is returned for a descriptor family tag other than DES_BINARY or DES_HOG.
	ErrUnknownFamily = errors.New("unknown descriptor family")
)

// DetectorKind names one keypoint detection algorithm.
type DetectorKind int

// Detector kinds, in the order the experiment matrix visits them.
const (
	ShiTomasi DetectorKind = iota
	Harris
	FAST
	BRISKDetector
	ORBDetector
	AKAZEDetector
	SIFTDetector
)

// DetectorKinds lists every detector.
var DetectorKinds = []DetectorKind{ShiTomasi, Harris, FAST, BRISKDetector, ORBDetector, AKAZEDetector, SIFTDetector}

var detectorNames = map[DetectorKind]string{
	ShiTomasi:     "SHITOMASI",
	Harris:        "HARRIS",
	FAST:          "FAST",
	BRISKDetector: "BRISK",
	ORBDetector:   "ORB",
	AKAZEDetector: "AKAZE",
	SIFTDetector:  "SIFT",
}

func (k DetectorKind) String() string {
	if name, ok := detectorNames[k]; ok {
		return name
	}
	return "UNKNOWN"
}

// ParseDetector resolves a detector name, ignoring case.
func ParseDetector(name string) (DetectorKind, error) {
	for _, k := range DetectorKinds {
		if strings.EqualFold(detectorNames[k], name) {
			return k, nil
		}
	}
	return 0, errors.Wrapf(ErrUnknownDetector, "%q", name)
}

// DescriptorKind names one descriptor extraction algorithm.
type DescriptorKind int

// Descriptor kinds, in the order the experiment matrix visits them.
const (
	BRISK DescriptorKind = iota
	BRIEF
	ORB
	FREAK
	AKAZE
	SIFT
)

// DescriptorKinds lists every descriptor.
var DescriptorKinds = []DescriptorKind{BRISK, BRIEF, ORB, FREAK, AKAZE, SIFT}

var descriptorNames = map[DescriptorKind]string{
	BRISK: "BRISK",
	BRIEF: "BRIEF",
	ORB:   "ORB",
	FREAK: "FREAK",
	AKAZE: "AKAZE",
	SIFT:  "SIFT",
}

func (k DescriptorKind) String() string {
	if name, ok := descriptorNames[k]; ok {
		return name
	}
	return "UNKNOWN"
}

// Family returns the descriptor family the algorithm produces. SIFT yields
// gradient histograms, everything else bit strings.
func (k DescriptorKind) Family() DescriptorFamily {
	if k == SIFT {
		return FamilyHOG
	}
	return FamilyBinary
}

// ParseDescriptor resolves a descriptor name, ignoring case.
func ParseDescriptor(name string) (DescriptorKind, error) {
	for _, k := range DescriptorKinds {
		if strings.EqualFold(descriptorNames[k], name) {
			return k, nil
		}
	}
	return 0, errors.Wrapf(ErrUnknownDescriptor, "%q", name)
}

// DescriptorFamily decides which distance metric compares two descriptors.
type DescriptorFamily int

const (
	// FamilyBinary descriptors are compared by Hamming distance.
	FamilyBinary DescriptorFamily = iota
	// FamilyHOG descriptors are compared by Euclidean (L2) distance.
	FamilyHOG
)

func (f DescriptorFamily) String() string {
	switch f {
	case FamilyBinary:
		return "DES_BINARY"
	case FamilyHOG:
		return "DES_HOG"
	default:
		return "DES_UNKNOWN"
	}
}

// Metric is a descriptor distance.
type Metric int

const (
	// Hamming counts differing bits.
	Hamming Metric = iota
	// L2 is the Euclidean distance.
	L2
)

func (m Metric) String() string {
	if m == Hamming {
		return "hamming"
	}
	return "l2"
}

// Metric returns the distance implied by the family.
func (f DescriptorFamily) Metric() (Metric, error) {
	switch f {
	case FamilyBinary:
		return Hamming, nil
	case FamilyHOG:
		return L2, nil
	default:
		return 0, errors.Wrapf(ErrUnknownFamily, "%d", int(f))
	}
}

// ParseFamily resolves DES_BINARY or DES_HOG.
func ParseFamily(tag string) (DescriptorFamily, error) {
	switch strings.ToUpper(tag) {
	case "DES_BINARY", "BINARY":
		return FamilyBinary, nil
	case "DES_HOG", "HOG":
		return FamilyHOG, nil
	default:
		return 0, errors.Wrapf(ErrUnknownFamily, "%q", tag)
	}
}
