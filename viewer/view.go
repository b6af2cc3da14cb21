package viewer

import (
	"context"
	"fmt"
	"image"

	"github.com/nvr-ai/go-nuts/arrays"
	"github.com/nvr-ai/go-nuts/flow"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorgonia.org/tensor"
)

// ErrLayout is returned when the image columns do not fill the layout.
var ErrLayout = errors.New("number of images and layout don't match")

// Panel is one image of a frame together with what to draw over it.
type Panel struct {
	Title  string
	Image  image.Image
	Shapes []Annotation
	Labels []string
	Style  Style
}

// Frame is one screenful: panels laid out row by row in a Rows x Cols grid.
type Frame struct {
	Rows, Cols int
	Panels     []Panel
}

// Display shows frames.
type Display interface {
	Show(ctx context.Context, frame Frame) error
}

// Layout is the grid used by ViewImage. Rows 0 means one row and Cols 0
// means as many columns as needed for the images.
type Layout struct {
	Rows int `yaml:"rows" json:"rows"`
	Cols int `yaml:"cols" json:"cols"`
}

// ViewImage displays the images of a sample and returns the sample
// unchanged. Arrays must be MxN, MxNx3 or MxNx4; MxNx1 is squeezed to MxN.
type ViewImage struct {
	imgCols []int
	layout  Layout
	display Display
	// Logger receives one debug entry per displayed frame.
	Logger *zap.Logger
}

// NewViewImage creates a ViewImage for the given image columns.
//
// Arguments:
// - imgCols: Indices of the columns holding arrays.
// - layout: Grid of the display. Must hold exactly len(imgCols) images.
// - display: Where frames are shown.
//
// Returns:
// - *ViewImage: The viewer.
// - error: ErrLayout if layout and image count disagree.
//
// @example
//
//	view, err := viewer.NewViewImage([]int{0, 1}, viewer.Layout{Rows: 1}, viewer.NewPlotDisplay("out", "view"))
func NewViewImage(imgCols []int, layout Layout, display Display) (*ViewImage, error) {
	if display == nil {
		return nil, errors.New("display is nil")
	}
	n := len(imgCols)
	if n == 0 {
		return nil, errors.New("no image columns")
	}
	if layout.Rows == 0 {
		layout.Rows = 1
	}
	if layout.Cols == 0 {
		layout.Cols = n
	}
	if layout.Rows < 0 || layout.Cols < 0 || n != layout.Rows*layout.Cols {
		return nil, errors.Wrapf(ErrLayout, "%d images, layout %dx%d", n, layout.Rows, layout.Cols)
	}
	return &ViewImage{imgCols: imgCols, layout: layout, display: display, Logger: zap.NewNop()}, nil
}

// Layout returns the resolved grid.
func (v *ViewImage) Layout() Layout {
	return v.layout
}

// Apply implements flow.Nut.
func (v *ViewImage) Apply(ctx context.Context, item interface{}) (interface{}, error) {
	sample := flow.AsSample(item)
	if _, err := flow.Columns(len(sample), v.imgCols); err != nil {
		return nil, err
	}

	frame := Frame{Rows: v.layout.Rows, Cols: v.layout.Cols}
	for _, col := range v.imgCols {
		img, err := columnImage(sample, col)
		if err != nil {
			return nil, err
		}
		frame.Panels = append(frame.Panels, Panel{Title: fmt.Sprintf("column %d", col), Image: img, Style: DefaultStyle})
	}

	if err := v.display.Show(ctx, frame); err != nil {
		return nil, errors.Wrap(err, "display failed")
	}
	if v.Logger != nil {
		v.Logger.Debug("Viewed images", zap.Ints("columns", v.imgCols))
	}
	return item, nil
}

// ViewImageAnnotation displays an image with the annotations found in other
// columns and returns the sample unchanged. A column holding []Annotation is
// drawn as shapes; any other value is drawn as a text label, with successive
// labels stacked downwards.
type ViewImageAnnotation struct {
	imgCol   int
	annoCols []int
	display  Display
	// Style controls outline and label colours. Unset fields use DefaultStyle.
	Style Style
}

// NewViewImageAnnotation creates a ViewImageAnnotation.
func NewViewImageAnnotation(imgCol int, annoCols []int, display Display) (*ViewImageAnnotation, error) {
	if display == nil {
		return nil, errors.New("display is nil")
	}
	if len(annoCols) == 0 {
		return nil, errors.New("no annotation columns")
	}
	return &ViewImageAnnotation{imgCol: imgCol, annoCols: annoCols, display: display, Style: DefaultStyle}, nil
}

// Apply implements flow.Nut.
func (v *ViewImageAnnotation) Apply(ctx context.Context, item interface{}) (interface{}, error) {
	sample := flow.AsSample(item)
	if _, err := flow.Columns(len(sample), append([]int{v.imgCol}, v.annoCols...)); err != nil {
		return nil, err
	}
	img, err := columnImage(sample, v.imgCol)
	if err != nil {
		return nil, err
	}

	panel := Panel{Title: fmt.Sprintf("column %d", v.imgCol), Image: img, Style: v.Style.WithDefaults()}
	for _, col := range v.annoCols {
		switch anno := sample[col].(type) {
		case []Annotation:
			panel.Shapes = append(panel.Shapes, anno...)
		default:
			panel.Labels = append(panel.Labels, fmt.Sprint(anno))
		}
	}

	if err := v.display.Show(ctx, Frame{Rows: 1, Cols: 1, Panels: []Panel{panel}}); err != nil {
		return nil, errors.Wrap(err, "display failed")
	}
	return item, nil
}

func columnImage(sample flow.Sample, col int) (image.Image, error) {
	arr, ok := sample[col].(*tensor.Dense)
	if !ok {
		return nil, errors.Wrapf(arrays.ErrNotImage, "column %d holds %T", col, sample[col])
	}
	img, err := arrays.ToImage(arrays.Squeeze(arr))
	if err != nil {
		return nil, errors.Wrapf(err, "column %d", col)
	}
	return img, nil
}
