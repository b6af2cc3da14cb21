package arrays

import (
	"cmp"
	"fmt"

	"github.com/chewxy/math32"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gorgonia.org/tensor"
)

// Range returns the smallest and largest element of t, typed like its dtype.
//
// Arguments:
// - t: The array to inspect.
//
// Returns:
// - min and max values.
// - error if t is empty or has an unsupported dtype.
//
// @example
// lo, hi, err := Range(arr) // 0, 255, nil for a uint8 photo
func Range(t *tensor.Dense) (interface{}, interface{}, error) {
	if t.Size() == 0 {
		return nil, nil, ErrEmpty
	}
	switch data := backing(t).(type) {
	case []float64:
		return floats.Min(data), floats.Max(data), nil
	case []float32:
		lo, hi := data[0], data[0]
		for _, v := range data[1:] {
			lo = math32.Min(lo, v)
			hi = math32.Max(hi, v)
		}
		return lo, hi, nil
	case []uint8:
		return minMax(data)
	case []uint16:
		return minMax(data)
	case []uint32:
		return minMax(data)
	case []uint64:
		return minMax(data)
	case []uint:
		return minMax(data)
	case []int8:
		return minMax(data)
	case []int16:
		return minMax(data)
	case []int32:
		return minMax(data)
	case []int64:
		return minMax(data)
	case []int:
		return minMax(data)
	case []bool:
		lo, hi := true, false
		for _, b := range data {
			lo = lo && b
			hi = hi || b
		}
		return lo, hi, nil
	default:
		return nil, nil, errors.Wrap(ErrUnsupportedDtype, fmt.Sprintf("%T", data))
	}
}

func minMax[T cmp.Ordered](data []T) (interface{}, interface{}, error) {
	if len(data) == 0 {
		return nil, nil, ErrEmpty
	}
	lo, hi := data[0], data[0]
	for _, v := range data[1:] {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	return lo, hi, nil
}
