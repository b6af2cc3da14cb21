package viewer

import (
	"image/color"
	"math"
)

// Annotation is a geometric shape drawn on top of an image. Coordinates are
// in pixels with the origin at the top-left corner.
type Annotation interface {
	// Outline returns the vertices to connect when drawing the shape.
	Outline() []Point
}

// Point marks a single pixel position.
type Point struct {
	X, Y float64
}

// Outline implements Annotation.
func (p Point) Outline() []Point { return []Point{p} }

// Rect is an axis-aligned rectangle with its top-left corner at X, Y.
type Rect struct {
	X, Y, W, H float64
}

// Outline implements Annotation.
func (r Rect) Outline() []Point {
	return []Point{
		{r.X, r.Y},
		{r.X + r.W, r.Y},
		{r.X + r.W, r.Y + r.H},
		{r.X, r.Y + r.H},
		{r.X, r.Y},
	}
}

// Circle is centred at X, Y.
type Circle struct {
	X, Y, R float64
}

const circleSegments = 36

// Outline implements Annotation.
func (c Circle) Outline() []Point {
	pts := make([]Point, circleSegments+1)
	for i := range pts {
		a := 2 * math.Pi * float64(i) / circleSegments
		pts[i] = Point{c.X + c.R*math.Cos(a), c.Y + c.R*math.Sin(a)}
	}
	return pts
}

// Polyline connects Points in order, returning to the first one if Closed.
type Polyline struct {
	Points []Point
	Closed bool
}

// Outline implements Annotation.
func (p Polyline) Outline() []Point {
	pts := append([]Point(nil), p.Points...)
	if p.Closed && len(pts) > 1 {
		pts = append(pts, pts[0])
	}
	return pts
}

// Style controls how annotations are drawn.
type Style struct {
	// EdgeColor is the shape outline colour.
	EdgeColor color.Color
	// LineWidth is the outline width in pixels.
	LineWidth float64
	// TextColor is the label colour.
	TextColor color.Color
	// TextBackground fills the box behind labels.
	TextBackground color.Color
}

// DefaultStyle draws yellow outlines and black labels on a translucent white
// background.
var DefaultStyle = Style{
	EdgeColor:      color.RGBA{R: 255, G: 255, A: 255},
	LineWidth:      1,
	TextColor:      color.Black,
	TextBackground: color.NRGBA{R: 255, G: 255, B: 255, A: 128},
}

// WithDefaults fills unset fields from DefaultStyle.
func (s Style) WithDefaults() Style {
	if s.EdgeColor == nil {
		s.EdgeColor = DefaultStyle.EdgeColor
	}
	if s.LineWidth <= 0 {
		s.LineWidth = DefaultStyle.LineWidth
	}
	if s.TextColor == nil {
		s.TextColor = DefaultStyle.TextColor
	}
	if s.TextBackground == nil {
		s.TextBackground = DefaultStyle.TextBackground
	}
	return s
}

// LabelPosition returns where the n-th stacked label starts on an image of
// the given height: a sixth of the height is one label row.
func LabelPosition(n, height int) Point {
	p := float64(height) / 6
	return Point{X: p / 2, Y: p * (0.7 + float64(n))}
}
