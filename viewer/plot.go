package viewer

import (
	"context"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// minTile is the smallest tile edge in pixels so titles and labels fit.
const minTile = 128

// PlotDisplay renders frames headlessly into numbered PNG files,
// <Dir>/<Prefix>-000001.png, <Dir>/<Prefix>-000002.png, ...
type PlotDisplay struct {
	// Dir receives the PNG files. It is created on first use.
	Dir string
	// Prefix starts every file name.
	Prefix string
	// TileWidth and TileHeight fix the size of one panel in pixels. Zero
	// sizes tiles to the largest image of the frame.
	TileWidth, TileHeight int
	// Logger receives one debug entry per written file.
	Logger *zap.Logger

	mu sync.Mutex
	n  int
}

// NewPlotDisplay creates a PlotDisplay writing to dir.
func NewPlotDisplay(dir, prefix string) *PlotDisplay {
	return &PlotDisplay{Dir: dir, Prefix: prefix, Logger: zap.NewNop()}
}

// Show implements Display.
func (d *PlotDisplay) Show(ctx context.Context, frame Frame) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(frame.Panels) == 0 {
		return errors.New("frame has no panels")
	}
	if frame.Rows < 1 || frame.Cols < 1 || len(frame.Panels) > frame.Rows*frame.Cols {
		return errors.Wrapf(ErrLayout, "%d panels, layout %dx%d", len(frame.Panels), frame.Rows, frame.Cols)
	}

	plots := make([][]*plot.Plot, frame.Rows)
	for r := range plots {
		plots[r] = make([]*plot.Plot, frame.Cols)
	}
	tileW, tileH := d.TileWidth, d.TileHeight
	for i, panel := range frame.Panels {
		p, err := panelPlot(panel)
		if err != nil {
			return errors.Wrapf(err, "panel %d", i)
		}
		plots[i/frame.Cols][i%frame.Cols] = p
		b := panel.Image.Bounds()
		if d.TileWidth == 0 {
			tileW = max(tileW, b.Dx(), minTile)
		}
		if d.TileHeight == 0 {
			tileH = max(tileH, b.Dy(), minTile)
		}
	}

	// At 72 dpi one point is one pixel.
	canvas := vgimg.NewWith(
		vgimg.UseWH(vg.Length(tileW*frame.Cols), vg.Length(tileH*frame.Rows)),
		vgimg.UseDPI(72))
	tiles := draw.Tiles{Rows: frame.Rows, Cols: frame.Cols}
	canvases := plot.Align(plots, tiles, draw.New(canvas))
	for r := range plots {
		for c, p := range plots[r] {
			if p != nil {
				p.Draw(canvases[r][c])
			}
		}
	}

	path, err := d.next()
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "creating frame file")
	}
	defer f.Close()
	png := vgimg.PngCanvas{Canvas: canvas}
	if _, err := png.WriteTo(f); err != nil {
		return errors.Wrapf(err, "writing %s", path)
	}

	if d.Logger != nil {
		d.Logger.Debug("Frame written", zap.String("path", path), zap.Int("panels", len(frame.Panels)))
	}
	return nil
}

// Frames returns how many frames have been written.
func (d *PlotDisplay) Frames() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.n
}

func (d *PlotDisplay) next() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return "", errors.Wrap(err, "failed to create output dir")
	}
	d.n++
	return filepath.Join(d.Dir, fmt.Sprintf("%s-%06d.png", d.Prefix, d.n)), nil
}

// panelPlot builds the plot of one panel. Image rows grow downwards while
// plot Y grows upwards, so annotation Y values are flipped.
func panelPlot(panel Panel) (*plot.Plot, error) {
	if panel.Image == nil {
		return nil, errors.New("panel has no image")
	}
	style := panel.Style.WithDefaults()
	b := panel.Image.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())

	p := plot.New()
	p.Title.Text = panel.Title
	p.HideAxes()
	p.Add(plotter.NewImage(panel.Image, 0, 0, w, h))

	for _, shape := range panel.Shapes {
		pts := shape.Outline()
		xys := make(plotter.XYs, len(pts))
		for i, pt := range pts {
			xys[i] = plotter.XY{X: pt.X, Y: h - pt.Y}
		}
		if len(xys) == 1 {
			s, err := plotter.NewScatter(xys)
			if err != nil {
				return nil, err
			}
			s.GlyphStyle.Color = style.EdgeColor
			s.GlyphStyle.Radius = vg.Points(style.LineWidth + 1)
			p.Add(s)
			continue
		}
		line, err := plotter.NewLine(xys)
		if err != nil {
			return nil, err
		}
		line.LineStyle.Color = style.EdgeColor
		line.LineStyle.Width = vg.Points(style.LineWidth)
		p.Add(line)
	}

	if len(panel.Labels) > 0 {
		xys := make(plotter.XYs, len(panel.Labels))
		for i := range panel.Labels {
			pos := LabelPosition(i, b.Dy())
			xys[i] = plotter.XY{X: pos.X, Y: h - pos.Y}
		}
		labels, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: panel.Labels})
		if err != nil {
			return nil, err
		}
		for i := range labels.TextStyle {
			labels.TextStyle[i].Color = opaque(style.TextColor)
		}
		p.Add(labels)
	}
	return p, nil
}

// opaque drops the alpha channel so labels stay readable on any image.
func opaque(c color.Color) color.Color {
	r, g, b, _ := c.RGBA()
	return color.RGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: 255}
}
