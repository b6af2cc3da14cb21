package arrays

import (
	"fmt"
	"image"
	"image/color"

	"github.com/chewxy/math32"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// FromImage converts a decoded image into a uint8 array.
//
// Gray and Gray16 images give (h,w). Images carrying an alpha channel give
// (h,w,4) with non-premultiplied values. Everything else gives (h,w,3).
//
// Arguments:
// - img: The decoded image.
//
// Returns:
// - The image array.
// - error if the image has no pixels.
//
// @example
// arr, err := FromImage(img) // arr.Shape() == (480, 640, 3)
func FromImage(img image.Image) (*tensor.Dense, error) {
	if img == nil {
		return nil, errors.New("image is nil")
	}
	return FromImageAs(img, DetectKind(img))
}

// DetectKind returns the array layout FromImage produces for img.
func DetectKind(img image.Image) Kind {
	switch img.(type) {
	case *image.Gray, *image.Gray16:
		return KindGray
	}
	if HasAlpha(img) {
		return KindRGBA
	}
	return KindRGB
}

// FromImageAs converts img into a uint8 array with the given layout.
// Color images requested as KindGray are reduced to BT.709 luma; alpha is
// dropped for KindRGB and set to opaque when a KindRGBA is built from an
// image without alpha.
func FromImageAs(img image.Image, kind Kind) (*tensor.Dense, error) {
	if img == nil {
		return nil, errors.New("image is nil")
	}
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= 0 || height <= 0 {
		return nil, errors.Wrapf(ErrEmpty, "image dimensions %dx%d", width, height)
	}

	switch kind {
	case KindGray:
		pix := make([]uint8, width*height)
		if src, ok := img.(*image.Gray); ok {
			for y := 0; y < height; y++ {
				start := src.PixOffset(bounds.Min.X, bounds.Min.Y+y)
				copy(pix[y*width:(y+1)*width], src.Pix[start:start+width])
			}
		} else {
			i := 0
			for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
				for x := bounds.Min.X; x < bounds.Max.X; x++ {
					pix[i] = Luma(img.At(x, y))
					i++
				}
			}
		}
		return tensor.New(tensor.WithShape(height, width), tensor.WithBacking(pix)), nil
	case KindRGB:
		pix := make([]uint8, width*height*3)
		i := 0
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
				pix[i], pix[i+1], pix[i+2] = c.R, c.G, c.B
				i += 3
			}
		}
		return tensor.New(tensor.WithShape(height, width, 3), tensor.WithBacking(pix)), nil
	case KindRGBA:
		pix := make([]uint8, width*height*4)
		i := 0
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
				pix[i], pix[i+1], pix[i+2], pix[i+3] = c.R, c.G, c.B, c.A
				i += 4
			}
		}
		return tensor.New(tensor.WithShape(height, width, 4), tensor.WithBacking(pix)), nil
	default:
		return nil, errors.Wrapf(ErrNotImage, "kind %s", kind)
	}
}

// ITU-R BT.709 luma coefficients.
const (
	redWeight   = 0.2126
	greenWeight = 0.7152
	blueWeight  = 0.0722
)

// Luma returns the BT.709 luminance of c as an 8-bit value. Alpha is ignored.
func Luma(c color.Color) uint8 {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	l := redWeight*float64(n.R) + greenWeight*float64(n.G) + blueWeight*float64(n.B)
	return uint8(clamp(l+0.5, 0, 255))
}

// HasAlpha reports whether img carries a meaningful alpha channel.
// Non-premultiplied images always do; premultiplied and paletted images only
// when some pixel or palette entry is not fully opaque.
func HasAlpha(img image.Image) bool {
	switch src := img.(type) {
	case *image.NRGBA, *image.NRGBA64:
		return true
	case *image.RGBA:
		return !src.Opaque()
	case *image.RGBA64:
		return !src.Opaque()
	case *image.Paletted:
		for _, c := range src.Palette {
			if _, _, _, a := c.RGBA(); a != 0xffff {
				return true
			}
		}
	}
	return false
}

// ToImage converts a gray, RGB or RGBA array back into an image.
// Arrays with single-dimension axes are squeezed first. Float arrays whose
// maximum is at most 1.0 are scaled by 255; all values are clamped to [0,255].
//
// Arguments:
// - t: The array to convert.
//
// Returns:
// - *image.Gray, *image.RGBA or *image.NRGBA depending on the kind.
// - error if the array has no image layout or an unsupported dtype.
func ToImage(t *tensor.Dense) (image.Image, error) {
	t = Squeeze(t)
	kind := KindOf(t)
	if kind == KindOther {
		return nil, errors.Wrapf(ErrNotImage, "shape %s", ShapeString(t))
	}
	pix, err := bytesOf(t)
	if err != nil {
		return nil, err
	}

	shape := t.Shape()
	height, width := shape[0], shape[1]
	rect := image.Rect(0, 0, width, height)

	switch kind {
	case KindGray:
		img := image.NewGray(rect)
		copy(img.Pix, pix)
		return img, nil
	case KindRGB:
		img := image.NewRGBA(rect)
		for i, j := 0, 0; i < len(pix); i, j = i+3, j+4 {
			img.Pix[j], img.Pix[j+1], img.Pix[j+2], img.Pix[j+3] = pix[i], pix[i+1], pix[i+2], 0xff
		}
		return img, nil
	default:
		img := image.NewNRGBA(rect)
		copy(img.Pix, pix)
		return img, nil
	}
}

// bytesOf returns the elements of t as 8-bit values.
func bytesOf(t *tensor.Dense) ([]uint8, error) {
	switch data := backing(t).(type) {
	case []uint8:
		return data, nil
	case []float32:
		return float32Bytes(data), nil
	case []float64:
		f32 := make([]float32, len(data))
		for i, v := range data {
			f32[i] = float32(v)
		}
		return float32Bytes(f32), nil
	default:
		vals, err := Float64s(t)
		if err != nil {
			return nil, err
		}
		out := make([]uint8, len(vals))
		for i, v := range vals {
			out[i] = uint8(clamp(v, 0, 255))
		}
		return out, nil
	}
}

func float32Bytes(data []float32) []uint8 {
	var peak float32
	for _, v := range data {
		peak = math32.Max(peak, v)
	}
	scale := float32(1)
	if peak <= 1 {
		scale = 255
	}
	out := make([]uint8, len(data))
	for i, v := range data {
		v = v*scale + 0.5
		out[i] = uint8(math32.Min(math32.Max(v, 0), 255))
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Float64s returns the elements of t converted to float64.
func Float64s(t *tensor.Dense) ([]float64, error) {
	switch data := backing(t).(type) {
	case []float64:
		return data, nil
	case []float32:
		return widen(data), nil
	case []uint8:
		return widen(data), nil
	case []uint16:
		return widen(data), nil
	case []uint32:
		return widen(data), nil
	case []uint64:
		return widen(data), nil
	case []uint:
		return widen(data), nil
	case []int8:
		return widen(data), nil
	case []int16:
		return widen(data), nil
	case []int32:
		return widen(data), nil
	case []int64:
		return widen(data), nil
	case []int:
		return widen(data), nil
	case []bool:
		out := make([]float64, len(data))
		for i, b := range data {
			if b {
				out[i] = 1
			}
		}
		return out, nil
	default:
		return nil, errors.Wrap(ErrUnsupportedDtype, fmt.Sprintf("%T", data))
	}
}

type number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

func widen[T number](data []T) []float64 {
	out := make([]float64, len(data))
	for i, v := range data {
		out[i] = float64(v)
	}
	return out
}
