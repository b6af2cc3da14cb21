// Package window - An OpenCV window Display for the viewer nuts.
package window

import (
	"context"
	"image"
	"image/color"
	"time"

	"github.com/nvr-ai/go-nuts/viewer"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// Display shows frames in an OpenCV window and waits Pause after each one.
// A key press skips the wait.
type Display struct {
	window *gocv.Window
	// Pause is the wait after each frame. Zero waits one millisecond.
	Pause time.Duration
	// LastKey is the code of the key that ended the last wait, or -1.
	LastKey int
}

// New opens a window with the given title.
func New(title string, pause time.Duration) *Display {
	return &Display{window: gocv.NewWindow(title), Pause: pause, LastKey: -1}
}

// Show implements viewer.Display. Panels are resized to the size of the
// first one and tiled row by row.
func (d *Display) Show(ctx context.Context, frame viewer.Frame) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(frame.Panels) == 0 {
		return errors.New("frame has no panels")
	}

	mat, err := compose(frame)
	if err != nil {
		return err
	}
	defer mat.Close()

	d.window.IMShow(mat)
	d.LastKey = d.window.WaitKey(waitMillis(d.Pause))
	return nil
}

// Close closes the window.
func (d *Display) Close() error {
	return d.window.Close()
}

func waitMillis(pause time.Duration) int {
	ms := int(pause / time.Millisecond)
	if ms < 1 {
		return 1
	}
	return ms
}

// compose renders every panel and tiles them into one BGR Mat.
func compose(frame viewer.Frame) (gocv.Mat, error) {
	first := frame.Panels[0].Image.Bounds()
	size := image.Pt(first.Dx(), first.Dy())

	blank := gocv.NewMatWithSize(size.Y, size.X, gocv.MatTypeCV8UC3)
	defer blank.Close()

	var rows []gocv.Mat
	defer func() {
		for _, m := range rows {
			m.Close()
		}
	}()

	for r := 0; r < frame.Rows; r++ {
		row := gocv.NewMat()
		for c := 0; c < frame.Cols; c++ {
			i := r*frame.Cols + c
			tile := blank.Clone()
			if i < len(frame.Panels) {
				rendered, err := panelMat(frame.Panels[i], size)
				if err != nil {
					tile.Close()
					row.Close()
					return gocv.NewMat(), errors.Wrapf(err, "panel %d", i)
				}
				tile.Close()
				tile = rendered
			}
			if c == 0 {
				row.Close()
				row = tile
				continue
			}
			joined := gocv.NewMat()
			gocv.Hconcat(row, tile, &joined)
			row.Close()
			tile.Close()
			row = joined
		}
		rows = append(rows, row)
	}

	out := rows[0].Clone()
	for _, row := range rows[1:] {
		joined := gocv.NewMat()
		gocv.Vconcat(out, row, &joined)
		out.Close()
		out = joined
	}
	return out, nil
}

// panelMat converts one panel to a BGR Mat of the given size and draws its
// annotations.
func panelMat(panel viewer.Panel, size image.Point) (gocv.Mat, error) {
	if panel.Image == nil {
		return gocv.NewMat(), errors.New("panel has no image")
	}
	mat, err := gocv.ImageToMatRGB(panel.Image)
	if err != nil {
		return gocv.NewMat(), errors.Wrap(err, "image conversion failed")
	}

	style := panel.Style.WithDefaults()
	edge := rgba(style.EdgeColor)
	thickness := max(int(style.LineWidth+0.5), 1)

	for _, shape := range panel.Shapes {
		switch s := shape.(type) {
		case viewer.Rect:
			r := image.Rect(int(s.X), int(s.Y), int(s.X+s.W), int(s.Y+s.H))
			gocv.Rectangle(&mat, r, edge, thickness)
		case viewer.Circle:
			gocv.Circle(&mat, image.Pt(int(s.X), int(s.Y)), int(s.R), edge, thickness)
		case viewer.Point:
			gocv.Circle(&mat, image.Pt(int(s.X), int(s.Y)), thickness+1, edge, -1)
		default:
			pts := toPoints(shape.Outline())
			pv := gocv.NewPointsVectorFromPoints([][]image.Point{pts})
			gocv.Polylines(&mat, pv, false, edge, thickness)
			pv.Close()
		}
	}

	h := panel.Image.Bounds().Dy()
	for i, label := range panel.Labels {
		pos := viewer.LabelPosition(i, h)
		org := image.Pt(int(pos.X), int(pos.Y))
		box := gocv.GetTextSize(label, gocv.FontHersheyPlain, 1.2, 1)
		gocv.Rectangle(&mat, image.Rect(org.X, org.Y-box.Y-2, org.X+box.X, org.Y+2), rgba(style.TextBackground), -1)
		gocv.PutText(&mat, label, org, gocv.FontHersheyPlain, 1.2, rgba(style.TextColor), 1)
	}

	if mat.Cols() != size.X || mat.Rows() != size.Y {
		gocv.Resize(mat, &mat, size, 0, 0, gocv.InterpolationLinear)
	}
	return mat, nil
}

func toPoints(pts []viewer.Point) []image.Point {
	out := make([]image.Point, len(pts))
	for i, p := range pts {
		out[i] = image.Pt(int(p.X+0.5), int(p.Y+0.5))
	}
	return out
}

func rgba(c color.Color) color.RGBA {
	r, g, b, a := c.RGBA()
	return color.RGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: uint8(a >> 8)}
}
