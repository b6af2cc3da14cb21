package arrays

import (
	"math"
	"strings"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// dtypes are the element types images can be converted to.
var dtypes = map[string]tensor.Dtype{
	"bool":    tensor.Bool,
	"int":     tensor.Int,
	"int8":    tensor.Int8,
	"int16":   tensor.Int16,
	"int32":   tensor.Int32,
	"int64":   tensor.Int64,
	"uint":    tensor.Uint,
	"uint8":   tensor.Uint8,
	"uint16":  tensor.Uint16,
	"uint32":  tensor.Uint32,
	"uint64":  tensor.Uint64,
	"float32": tensor.Float32,
	"float64": tensor.Float64,
}

// ParseDtype resolves a dtype by its name, e.g. "uint8" or "float32".
func ParseDtype(name string) (tensor.Dtype, error) {
	dt, ok := dtypes[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return tensor.Dtype{}, errors.Wrapf(ErrUnsupportedDtype, "%q", name)
	}
	return dt, nil
}

// AsType returns a copy of t with elements converted to dtype. Integer targets
// are rounded and saturate at the bounds of their type. If t already has the
// requested dtype it is returned unchanged. Bool targets are true for
// non-zero elements.
//
// Arguments:
// - t: The source array.
// - dtype: One of the dtypes accepted by ParseDtype.
//
// Returns:
// - The converted array with the same shape.
// - error if either dtype is unsupported.
func AsType(t *tensor.Dense, dtype tensor.Dtype) (*tensor.Dense, error) {
	if t.Dtype() == dtype {
		return t, nil
	}
	vals, err := Float64s(t)
	if err != nil {
		return nil, err
	}

	var data interface{}
	switch dtype {
	case tensor.Bool:
		out := make([]bool, len(vals))
		for i, v := range vals {
			out[i] = v != 0
		}
		data = out
	case tensor.Int:
		data = narrow[int](vals, math.MinInt, math.MaxInt)
	case tensor.Int8:
		data = narrow[int8](vals, math.MinInt8, math.MaxInt8)
	case tensor.Int16:
		data = narrow[int16](vals, math.MinInt16, math.MaxInt16)
	case tensor.Int32:
		data = narrow[int32](vals, math.MinInt32, math.MaxInt32)
	case tensor.Int64:
		data = narrow[int64](vals, math.MinInt64, math.MaxInt64)
	case tensor.Uint:
		data = narrow[uint](vals, 0, math.MaxUint)
	case tensor.Uint8:
		data = narrow[uint8](vals, 0, math.MaxUint8)
	case tensor.Uint16:
		data = narrow[uint16](vals, 0, math.MaxUint16)
	case tensor.Uint32:
		data = narrow[uint32](vals, 0, math.MaxUint32)
	case tensor.Uint64:
		data = narrow[uint64](vals, 0, math.MaxUint64)
	case tensor.Float32:
		out := make([]float32, len(vals))
		for i, v := range vals {
			out[i] = float32(v)
		}
		data = out
	case tensor.Float64:
		out := make([]float64, len(vals))
		copy(out, vals)
		data = out
	default:
		return nil, errors.Wrapf(ErrUnsupportedDtype, "%s", dtype)
	}

	shape := t.Shape().Clone()
	return tensor.New(tensor.WithShape(shape...), tensor.WithBacking(data)), nil
}

// narrow rounds vals into T, saturating at lo and hi. The bounds are
// compared as float64 so 64-bit limits, which float64 rounds up, never reach
// an out-of-range conversion. NaN becomes zero.
func narrow[T number](vals []float64, lo, hi T) []T {
	flo, fhi := float64(lo), float64(hi)
	out := make([]T, len(vals))
	for i, v := range vals {
		v = math.Round(v)
		switch {
		case math.IsNaN(v):
			out[i] = 0
		case v <= flo:
			out[i] = lo
		case v >= fhi:
			out[i] = hi
		default:
			out[i] = T(v)
		}
	}
	return out
}
