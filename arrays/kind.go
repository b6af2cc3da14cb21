// Package arrays - In-memory image arrays backed by gorgonia tensors.
//
// Images are held as *tensor.Dense values in height-width-channel order:
//
//	(h,w)   gray-scale
//	(h,w,3) RGB
//	(h,w,4) RGBA
package arrays

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// Kind classifies an array by its image layout.
type Kind int

const (
	// KindOther is any array that is not an image layout.
	KindOther Kind = iota
	// KindGray is a single channel (h,w) array.
	KindGray
	// KindRGB is a three channel (h,w,3) array.
	KindRGB
	// KindRGBA is a four channel (h,w,4) array.
	KindRGBA
)

// String returns the lower-case name of the kind.
func (k Kind) String() string {
	switch k {
	case KindGray:
		return "gray"
	case KindRGB:
		return "rgb"
	case KindRGBA:
		return "rgba"
	default:
		return "other"
	}
}

var (
	// ErrNotImage is returned when an array has no image layout.
	ErrNotImage = errors.New("array is not an image")
	// ErrEmpty is returned for arrays without elements.
	ErrEmpty = errors.New("array is empty")
	// ErrUnsupportedDtype is returned for element types the package cannot handle.
	ErrUnsupportedDtype = errors.New("unsupported dtype")
)

// KindOf returns the image kind of t.
func KindOf(t *tensor.Dense) Kind {
	shape := t.Shape()
	switch {
	case len(shape) == 2:
		return KindGray
	case len(shape) == 3 && shape[2] == 3:
		return KindRGB
	case len(shape) == 3 && shape[2] == 4:
		return KindRGBA
	default:
		return KindOther
	}
}

// ShapeString formats the shape of t as "10x20x3". Scalars format as "".
func ShapeString(t *tensor.Dense) string {
	shape := t.Shape()
	dims := make([]string, len(shape))
	for i, d := range shape {
		dims[i] = strconv.Itoa(d)
	}
	return strings.Join(dims, "x")
}

// Squeeze removes all single-dimension axes from t, e.g. MxNx1 becomes MxN.
// The returned array shares its backing data with t. An array whose axes are
// all of size one keeps a single axis.
func Squeeze(t *tensor.Dense) *tensor.Dense {
	shape := t.Shape()
	dims := make([]int, 0, len(shape))
	for _, d := range shape {
		if d != 1 {
			dims = append(dims, d)
		}
	}
	if len(dims) == len(shape) {
		return t
	}
	if len(dims) == 0 {
		dims = []int{1}
	}
	return tensor.New(tensor.WithShape(dims...), tensor.WithBacking(backing(t)))
}

// backing returns the flat element slice of t. Scalar tensors report their
// value instead of a slice from Data, so they are wrapped here.
func backing(t *tensor.Dense) interface{} {
	switch v := t.Data().(type) {
	case []bool, []int, []int8, []int16, []int32, []int64,
		[]uint, []uint8, []uint16, []uint32, []uint64, []float32, []float64:
		return v
	case bool:
		return []bool{v}
	case int:
		return []int{v}
	case int8:
		return []int8{v}
	case int16:
		return []int16{v}
	case int32:
		return []int32{v}
	case int64:
		return []int64{v}
	case uint:
		return []uint{v}
	case uint8:
		return []uint8{v}
	case uint16:
		return []uint16{v}
	case uint32:
		return []uint32{v}
	case uint64:
		return []uint64{v}
	case float32:
		return []float32{v}
	case float64:
		return []float64{v}
	default:
		return v
	}
}

// Backing exposes the flat element slice of t in row-major order.
func Backing(t *tensor.Dense) interface{} {
	return backing(t)
}
