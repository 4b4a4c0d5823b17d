package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fogleman/gg"
	"github.com/pkg/errors"

	"github.com/Dzusmin/featurebench/internal/features"
)

// PNGViewer writes each match visualisation to <Dir>/<title>.png instead of
// opening a window.
type PNGViewer struct {
	Dir string
}

// NewPNGViewer creates dir if needed.
func NewPNGViewer(dir string) (*PNGViewer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "cannot create visualisation dir %s", dir)
	}
	return &PNGViewer{Dir: dir}, nil
}

// ShowMatches draws ref on the left and cur on the right, keypoints as circles
// of their neighbourhood size and one line per match.
func (v *PNGViewer) ShowMatches(title string, ref features.Raster, refKps []features.KeyPoint, cur features.Raster, curKps []features.KeyPoint, matches []features.Match) error {
	refImg, err := ref.Gray()
	if err != nil {
		return errors.Wrap(err, "reference frame")
	}
	curImg, err := cur.Gray()
	if err != nil {
		return errors.Wrap(err, "current frame")
	}
	offset := float64(refImg.Bounds().Dx())
	w := refImg.Bounds().Dx() + curImg.Bounds().Dx()
	h := max(refImg.Bounds().Dy(), curImg.Bounds().Dy())

	dc := gg.NewContext(w, h)
	dc.DrawImage(refImg, 0, 0)
	dc.DrawImage(curImg, int(offset), 0)

	dc.SetRGBA(0, 0, 1, 0.7)
	dc.SetLineWidth(1)
	drawCircles(dc, refKps, 0)
	drawCircles(dc, curKps, offset)

	dc.SetRGB(1, 0, 0)
	for _, m := range matches {
		a := refKps[m.ReferenceIndex]
		b := curKps[m.SourceIndex]
		dc.DrawLine(a.X, a.Y, b.X+offset, b.Y)
		dc.Stroke()
	}

	dc.SetRGB(0, 1, 0)
	dc.DrawString(title, 10, 20)
	dc.DrawString(fmt.Sprintf("Matches: %d", len(matches)), 10, 40)

	path := filepath.Join(v.Dir, title+".png")
	return errors.Wrapf(dc.SavePNG(path), "cannot save %s", path)
}

func drawCircles(dc *gg.Context, kps []features.KeyPoint, dx float64) {
	for _, kp := range kps {
		dc.DrawCircle(kp.X+dx, kp.Y, max(kp.Size/2, 1))
		dc.Stroke()
	}
}
