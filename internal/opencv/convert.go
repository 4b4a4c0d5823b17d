package opencv

import (
	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/Dzusmin/featurebench/internal/features"
)

func toKeyPoints(kps []gocv.KeyPoint) []features.KeyPoint {
	out := make([]features.KeyPoint, len(kps))
	for i, kp := range kps {
		out[i] = features.KeyPoint{
			X: kp.X, Y: kp.Y, Size: kp.Size, Angle: kp.Angle,
			Response: kp.Response, Octave: kp.Octave, ClassID: kp.ClassID,
		}
	}
	return out
}

func fromKeyPoints(kps []features.KeyPoint) []gocv.KeyPoint {
	out := make([]gocv.KeyPoint, len(kps))
	for i, kp := range kps {
		out[i] = gocv.KeyPoint{
			X: kp.X, Y: kp.Y, Size: kp.Size, Angle: kp.Angle,
			Response: kp.Response, Octave: kp.Octave, ClassID: kp.ClassID,
		}
	}
	return out
}

func toMatches(knn [][]gocv.DMatch) [][]features.Match {
	out := make([][]features.Match, len(knn))
	for i, row := range knn {
		ms := make([]features.Match, len(row))
		for j, m := range row {
			ms[j] = features.Match{SourceIndex: m.QueryIdx, ReferenceIndex: m.TrainIdx, Distance: m.Distance}
		}
		out[i] = ms
	}
	return out
}

// splitBytes cuts a row-major buffer into rows of cols bytes. Rows share the
// freshly copied backing array, not data.
func splitBytes(data []byte, rows, cols int) ([][]byte, error) {
	if len(data) < rows*cols {
		return nil, errors.Errorf("descriptor buffer holds %d bytes, need %d", len(data), rows*cols)
	}
	buf := make([]byte, rows*cols)
	copy(buf, data)
	out := make([][]byte, rows)
	for r := range out {
		out[r] = buf[r*cols : (r+1)*cols : (r+1)*cols]
	}
	return out, nil
}

func splitFloats(data []float32, rows, cols int) ([][]float32, error) {
	if len(data) < rows*cols {
		return nil, errors.Errorf("descriptor buffer holds %d values, need %d", len(data), rows*cols)
	}
	buf := make([]float32, rows*cols)
	copy(buf, data)
	out := make([][]float32, rows)
	for r := range out {
		out[r] = buf[r*cols : (r+1)*cols : (r+1)*cols]
	}
	return out, nil
}

// descriptorsFromMat copies a descriptor mat into Go memory.
func descriptorsFromMat(m gocv.Mat) (features.Descriptors, error) {
	if m.Empty() {
		return features.Descriptors{}, nil
	}
	rows, cols := m.Rows(), m.Cols()
	switch m.Type() {
	case gocv.MatTypeCV8U:
		data, err := m.DataPtrUint8()
		if err != nil {
			return features.Descriptors{}, errors.Wrap(err, "cannot read descriptor mat")
		}
		split, err := splitBytes(data, rows, cols)
		if err != nil {
			return features.Descriptors{}, err
		}
		return features.NewBinaryDescriptors(cols, split)
	case gocv.MatTypeCV32F:
		data, err := m.DataPtrFloat32()
		if err != nil {
			return features.Descriptors{}, errors.Wrap(err, "cannot read descriptor mat")
		}
		split, err := splitFloats(data, rows, cols)
		if err != nil {
			return features.Descriptors{}, err
		}
		return features.NewFloatDescriptors(cols, split)
	default:
		return features.Descriptors{}, errors.Errorf("unsupported descriptor mat type %v", m.Type())
	}
}

// matFromDescriptors builds a mat that the matchers can consume.
func matFromDescriptors(d features.Descriptors) (gocv.Mat, error) {
	switch d.Encoding {
	case features.EncodingBinary:
		flat := make([]byte, 0, d.Rows()*d.Width)
		for _, r := range d.Bytes {
			flat = append(flat, r...)
		}
		return gocv.NewMatFromBytes(d.Rows(), d.Width, gocv.MatTypeCV8U, flat)
	case features.EncodingFloat32:
		m := gocv.NewMatWithSize(d.Rows(), d.Width, gocv.MatTypeCV32F)
		for r, row := range d.Floats {
			for c, v := range row {
				m.SetFloatAt(r, c, v)
			}
		}
		return m, nil
	default:
		return gocv.Mat{}, errors.Errorf("unsupported descriptor encoding %v", d.Encoding)
	}
}
