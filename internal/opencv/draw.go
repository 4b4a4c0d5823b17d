package opencv

import (
	"fmt"
	"image"
	"image/color"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/Dzusmin/featurebench/internal/features"
)

var (
	blue  = color.RGBA{0, 0, 255, 0}
	red   = color.RGBA{255, 0, 0, 0}
	green = color.RGBA{0, 255, 0, 0}
)

// Window shows match images in a HighGUI window and waits for a key press
// after each one.
type Window struct {
	window *gocv.Window
}

// NewWindow opens a window titled name.
func NewWindow(name string) *Window {
	return &Window{window: gocv.NewWindow(name)}
}

// ShowMatches draws the reference frame on the left, the current frame on the
// right and a line per match.
func (w *Window) ShowMatches(title string, ref features.Raster, refKps []features.KeyPoint, cur features.Raster, curKps []features.KeyPoint, matches []features.Match) error {
	left, err := colourCopy(ref)
	if err != nil {
		return errors.Wrap(err, "reference frame")
	}
	defer left.Close()
	right, err := colourCopy(cur)
	if err != nil {
		return errors.Wrap(err, "current frame")
	}
	defer right.Close()

	drawKPS(&left, fromKeyPoints(refKps), blue)
	drawKPS(&right, fromKeyPoints(curKps), blue)

	both := gocv.NewMat()
	defer both.Close()
	if err := gocv.Hconcat(left, right, &both); err != nil {
		return errors.Wrap(err, "cannot join frames")
	}

	drawMatches(&both, refKps, curKps, matches, image.Pt(left.Cols(), 0), red)
	drawInfo(&both, title, image.Pt(10, 20), green)
	drawInfo(&both, fmt.Sprintf("Matches: %d ", len(matches)), image.Pt(10, 40), green)

	if err := w.window.SetWindowTitle(title); err != nil {
		return errors.Wrap(err, "cannot set window title")
	}
	if err := w.window.IMShow(both); err != nil {
		return errors.Wrap(err, "cannot show matches")
	}
	w.window.WaitKey(0)
	return nil
}

// Close destroys the window.
func (w *Window) Close() error {
	return w.window.Close()
}

func colourCopy(r features.Raster) (gocv.Mat, error) {
	m, release, err := matOf(r)
	if err != nil {
		return gocv.Mat{}, err
	}
	defer release()
	out := gocv.NewMat()
	if err := gocv.CvtColor(m, &out, gocv.ColorGrayToBGR); err != nil {
		_ = out.Close()
		return gocv.Mat{}, errors.Wrap(err, "cannot convert to colour")
	}
	return out, nil
}

func drawKPS(img *gocv.Mat, kps []gocv.KeyPoint, color color.RGBA) {
	if len(kps) == 0 {
		return
	}
	gocv.DrawKeyPoints(*img, kps, img, color, gocv.DrawRichKeyPoints)
}

// drawMatches joins each source keypoint of cur, shifted by offset, to its
// reference keypoint.
func drawMatches(img *gocv.Mat, refKps, curKps []features.KeyPoint, matches []features.Match, offset image.Point, color color.RGBA) {
	for _, m := range matches {
		u := refKps[m.ReferenceIndex].Pt()
		v := curKps[m.SourceIndex].Pt().Add(offset)
		gocv.Line(img, u, v, color, 1)
	}
}

func drawInfo(img *gocv.Mat, text string, org image.Point, color color.RGBA) {
	gocv.PutText(img, text, org, gocv.FontHersheyPlain, 1.2, color, 2)
}
