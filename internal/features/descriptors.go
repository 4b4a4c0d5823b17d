package features

import "github.com/pkg/errors"

// Encoding is the element type of a descriptor matrix.
type Encoding int

const (
	// EncodingBinary rows are bit strings packed into bytes.
	EncodingBinary Encoding = iota
	// EncodingFloat32 rows are floating point feature vectors.
	EncodingFloat32
)

func (e Encoding) String() string {
	switch e {
	case EncodingBinary:
		return "binary"
	case EncodingFloat32:
		return "float32"
	default:
		return "unknown"
	}
}

// Descriptors is a descriptor matrix with one row per keypoint. Row i always
// describes keypoint i of the frame holding the matrix.
type Descriptors struct {
	Encoding Encoding
	// Width is the row length in bytes (binary) or in floats (float32).
	Width int

	Bytes  [][]byte
	Floats [][]float32
}

// NewBinaryDescriptors wraps byte rows of equal width.
func NewBinaryDescriptors(width int, rows [][]byte) (Descriptors, error) {
	for i, r := range rows {
		if len(r) != width {
			return Descriptors{}, errors.Errorf("descriptor row %d has %d bytes, want %d", i, len(r), width)
		}
	}
	return Descriptors{Encoding: EncodingBinary, Width: width, Bytes: rows}, nil
}

// NewFloatDescriptors wraps float rows of equal width.
func NewFloatDescriptors(width int, rows [][]float32) (Descriptors, error) {
	for i, r := range rows {
		if len(r) != width {
			return Descriptors{}, errors.Errorf("descriptor row %d has %d values, want %d", i, len(r), width)
		}
	}
	return Descriptors{Encoding: EncodingFloat32, Width: width, Floats: rows}, nil
}

// Rows returns the number of descriptor rows.
func (d Descriptors) Rows() int {
	if d.Encoding == EncodingFloat32 {
		return len(d.Floats)
	}
	return len(d.Bytes)
}

// Empty reports whether the matrix has no rows.
func (d Descriptors) Empty() bool {
	return d.Rows() == 0
}

// AsFloat32 returns the matrix with every byte widened to a float32 element.
// Float matrices are returned unchanged. FLANN style indexes only accept
// floating point vectors, so binary descriptors go through this first.
func (d Descriptors) AsFloat32() Descriptors {
	if d.Encoding == EncodingFloat32 {
		return d
	}
	rows := make([][]float32, len(d.Bytes))
	for i, r := range d.Bytes {
		row := make([]float32, len(r))
		for j, b := range r {
			row[j] = float32(b)
		}
		rows[i] = row
	}
	return Descriptors{Encoding: EncodingFloat32, Width: d.Width, Floats: rows}
}
