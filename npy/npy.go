package npy

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"

	"github.com/nvr-ai/go-nuts/arrays"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// ErrEmptyArray is returned for arrays with a zero-length dimension.
var ErrEmptyArray = errors.New("npy: zero-size arrays are not supported")

// dtypeInfo ties a NumPy type code (kind + item size) to a tensor dtype.
type dtypeInfo struct {
	code  string
	dtype tensor.Dtype
}

var codes = []dtypeInfo{
	{"b1", tensor.Bool},
	{"u1", tensor.Uint8},
	{"i1", tensor.Int8},
	{"u2", tensor.Uint16},
	{"i2", tensor.Int16},
	{"u4", tensor.Uint32},
	{"i4", tensor.Int32},
	{"u8", tensor.Uint64},
	{"i8", tensor.Int64},
	{"f4", tensor.Float32},
	{"f8", tensor.Float64},
}

// parseDescr splits a descr such as "<f8" into byte order and dtype.
func parseDescr(descr string) (binary.ByteOrder, tensor.Dtype, error) {
	if len(descr) != 3 {
		return nil, tensor.Dtype{}, errors.Wrapf(ErrUnsupportedDtype, "%q", descr)
	}
	var order binary.ByteOrder
	switch descr[0] {
	case '<', '|', '=':
		order = binary.LittleEndian
	case '>':
		order = binary.BigEndian
	default:
		return nil, tensor.Dtype{}, errors.Wrapf(ErrUnsupportedDtype, "byte order %q", descr[0])
	}
	for _, c := range codes {
		if c.code == descr[1:] {
			return order, c.dtype, nil
		}
	}
	return nil, tensor.Dtype{}, errors.Wrapf(ErrUnsupportedDtype, "%q", descr)
}

// descrOf returns the little-endian descr for dtype.
func descrOf(dtype tensor.Dtype) (string, error) {
	for _, c := range codes {
		if c.dtype == dtype {
			if c.code[1] == '1' {
				return "|" + c.code, nil
			}
			return "<" + c.code, nil
		}
	}
	return "", errors.Wrapf(ErrUnsupportedDtype, "%s", dtype)
}

// Read decodes an NPY file into a C-ordered array.
//
// Arguments:
// - r: The NPY stream, positioned at the magic string.
//
// Returns:
// - The array with the stored shape and dtype. 0-d arrays become scalar tensors.
// - error if the header is malformed, the dtype unsupported or data is short.
//
// Shapes that overflow, or claim more data than the stream holds, give ErrBadHeader.
//
// @example
// f, _ := os.Open("features.npy")
// arr, err := npy.Read(f)
func Read(r io.Reader) (*tensor.Dense, error) {
	hdr, err := ReadHeader(r)
	if err != nil {
		return nil, err
	}
	order, dtype, err := parseDescr(hdr.Descr)
	if err != nil {
		return nil, err
	}
	n, err := hdr.Size()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrEmptyArray
	}
	itemSize := int(dtype.Size())
	if n > math.MaxInt/itemSize {
		return nil, errors.Wrapf(ErrBadHeader, "shape %v overflows", hdr.Shape)
	}

	// Only bytes actually present are buffered, whatever the shape claims.
	nbytes := n * itemSize
	raw, err := io.ReadAll(io.LimitReader(r, int64(nbytes)))
	if err != nil {
		return nil, errors.Wrap(err, "npy: reading data")
	}
	if len(raw) < nbytes {
		return nil, errors.Wrapf(ErrBadHeader, "shape %v needs %d data bytes, got %d", hdr.Shape, nbytes, len(raw))
	}

	data := makeSlice(dtype, n)
	if err := binary.Read(bytes.NewReader(raw), order, data); err != nil {
		return nil, errors.Wrap(err, "npy: decoding data")
	}
	if hdr.FortranOrder && len(hdr.Shape) > 1 {
		data = toCOrder(data, hdr.Shape)
	}

	if len(hdr.Shape) == 0 {
		return tensor.New(tensor.FromScalar(first(data))), nil
	}
	return tensor.New(tensor.WithShape(hdr.Shape...), tensor.WithBacking(data)), nil
}

// Write encodes t as a version 1.0, little-endian, C-ordered NPY file.
// Platform sized int and uint arrays are stored as 64-bit values.
func Write(w io.Writer, t *tensor.Dense) error {
	data := arrays.Backing(t)
	dtype := t.Dtype()
	switch v := data.(type) {
	case []int:
		wide := make([]int64, len(v))
		for i, x := range v {
			wide[i] = int64(x)
		}
		data, dtype = wide, tensor.Int64
	case []uint:
		wide := make([]uint64, len(v))
		for i, x := range v {
			wide[i] = uint64(x)
		}
		data, dtype = wide, tensor.Uint64
	}

	descr, err := descrOf(dtype)
	if err != nil {
		return err
	}
	hdr := &Header{Major: 1, Descr: descr, Shape: []int(t.Shape())}
	if t.IsScalar() {
		hdr.Shape = nil
	}

	if _, err := w.Write(hdr.encode()); err != nil {
		return errors.Wrap(err, "npy: writing header")
	}
	if err := binary.Write(w, binary.LittleEndian, data); err != nil {
		return errors.Wrap(err, "npy: writing data")
	}
	return nil
}

func makeSlice(dtype tensor.Dtype, n int) interface{} {
	switch dtype {
	case tensor.Bool:
		return make([]bool, n)
	case tensor.Uint8:
		return make([]uint8, n)
	case tensor.Int8:
		return make([]int8, n)
	case tensor.Uint16:
		return make([]uint16, n)
	case tensor.Int16:
		return make([]int16, n)
	case tensor.Uint32:
		return make([]uint32, n)
	case tensor.Int32:
		return make([]int32, n)
	case tensor.Uint64:
		return make([]uint64, n)
	case tensor.Int64:
		return make([]int64, n)
	case tensor.Float32:
		return make([]float32, n)
	default:
		return make([]float64, n)
	}
}

func first(data interface{}) interface{} {
	switch v := data.(type) {
	case []bool:
		return v[0]
	case []uint8:
		return v[0]
	case []int8:
		return v[0]
	case []uint16:
		return v[0]
	case []int16:
		return v[0]
	case []uint32:
		return v[0]
	case []int32:
		return v[0]
	case []uint64:
		return v[0]
	case []int64:
		return v[0]
	case []float32:
		return v[0]
	case []float64:
		return v[0]
	}
	return nil
}

func toCOrder(data interface{}, shape []int) interface{} {
	switch v := data.(type) {
	case []bool:
		return permute(v, shape)
	case []uint8:
		return permute(v, shape)
	case []int8:
		return permute(v, shape)
	case []uint16:
		return permute(v, shape)
	case []int16:
		return permute(v, shape)
	case []uint32:
		return permute(v, shape)
	case []int32:
		return permute(v, shape)
	case []uint64:
		return permute(v, shape)
	case []int64:
		return permute(v, shape)
	case []float32:
		return permute(v, shape)
	case []float64:
		return permute(v, shape)
	}
	return data
}

// permute reorders column-major src into row-major order.
func permute[T any](src []T, shape []int) []T {
	dst := make([]T, len(src))
	idx := make([]int, len(shape))
	for c := range dst {
		rem := c
		for i := len(shape) - 1; i >= 0; i-- {
			idx[i] = rem % shape[i]
			rem /= shape[i]
		}
		f, stride := 0, 1
		for i, d := range shape {
			f += idx[i] * stride
			stride *= d
		}
		dst[c] = src[f]
	}
	return dst
}
