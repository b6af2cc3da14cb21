package arrays

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"
)

func filledRGBA(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestFromImageShapes(t *testing.T) {
	transparent := image.NewPaletted(image.Rect(0, 0, 4, 2), color.Palette{
		color.RGBA{0, 0, 0, 0},
		color.RGBA{255, 0, 0, 255},
	})
	opaque := image.NewPaletted(image.Rect(0, 0, 4, 2), color.Palette{
		color.RGBA{0, 0, 0, 255},
		color.RGBA{255, 0, 0, 255},
	})
	translucent := filledRGBA(4, 2, color.RGBA{R: 50, G: 50, B: 50, A: 100})

	tests := []struct {
		name  string
		img   image.Image
		shape tensor.Shape
		kind  Kind
	}{
		{"gray", image.NewGray(image.Rect(0, 0, 4, 2)), tensor.Shape{2, 4}, KindGray},
		{"gray16", image.NewGray16(image.Rect(0, 0, 4, 2)), tensor.Shape{2, 4}, KindGray},
		{"opaque rgba", filledRGBA(4, 2, color.RGBA{R: 1, G: 2, B: 3, A: 255}), tensor.Shape{2, 4, 3}, KindRGB},
		{"translucent rgba", translucent, tensor.Shape{2, 4, 4}, KindRGBA},
		{"nrgba", image.NewNRGBA(image.Rect(0, 0, 4, 2)), tensor.Shape{2, 4, 4}, KindRGBA},
		{"ycbcr", image.NewYCbCr(image.Rect(0, 0, 4, 2), image.YCbCrSubsampleRatio420), tensor.Shape{2, 4, 3}, KindRGB},
		{"paletted with transparency", transparent, tensor.Shape{2, 4, 4}, KindRGBA},
		{"opaque paletted", opaque, tensor.Shape{2, 4, 3}, KindRGB},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			arr, err := FromImage(tt.img)
			require.NoError(t, err)
			assert.Equal(t, tt.shape, arr.Shape())
			assert.Equal(t, tensor.Uint8, arr.Dtype())
			assert.Equal(t, tt.kind, KindOf(arr))
		})
	}
}

func TestFromImagePixelOrder(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.SetRGBA(0, 0, color.RGBA{R: 10, G: 20, B: 30, A: 255})
	img.SetRGBA(1, 0, color.RGBA{R: 40, G: 50, B: 60, A: 255})

	arr, err := FromImage(img)
	require.NoError(t, err)
	assert.Equal(t, []uint8{10, 20, 30, 40, 50, 60}, arr.Data())
}

func TestFromImageSubImage(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 4, 4))
	for i := range gray.Pix {
		gray.Pix[i] = uint8(i)
	}
	sub := gray.SubImage(image.Rect(1, 1, 3, 3))

	arr, err := FromImage(sub)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 2}, arr.Shape())
	assert.Equal(t, []uint8{5, 6, 9, 10}, arr.Data())
}

func TestFromImageErrors(t *testing.T) {
	_, err := FromImage(nil)
	assert.Error(t, err)

	_, err = FromImage(image.NewRGBA(image.Rect(0, 0, 0, 5)))
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestToImageRoundTrip(t *testing.T) {
	src := filledRGBA(3, 2, color.RGBA{R: 200, G: 100, B: 50, A: 255})
	arr, err := FromImage(src)
	require.NoError(t, err)

	img, err := ToImage(arr)
	require.NoError(t, err)
	assert.Equal(t, src.Bounds(), img.Bounds())
	r, g, b, a := img.At(2, 1).RGBA()
	assert.Equal(t, []uint32{200, 100, 50, 255}, []uint32{r >> 8, g >> 8, b >> 8, a >> 8})
}

func TestToImageSqueezesAndScalesFloats(t *testing.T) {
	arr := tensor.New(tensor.WithShape(2, 2, 1), tensor.WithBacking([]float32{0, 0.5, 1, 0.25}))

	img, err := ToImage(arr)
	require.NoError(t, err)
	gray, ok := img.(*image.Gray)
	require.True(t, ok, "expected gray image, got %T", img)
	assert.Equal(t, []uint8{0, 128, 255, 64}, gray.Pix)
}

func TestToImageRejectsNonImages(t *testing.T) {
	arr := tensor.New(tensor.WithShape(2, 2, 5), tensor.WithBacking(make([]uint8, 20)))
	_, err := ToImage(arr)
	assert.ErrorIs(t, err, ErrNotImage)
}

func TestSqueezeAndShapeString(t *testing.T) {
	arr := tensor.New(tensor.WithShape(10, 20, 1), tensor.WithBacking(make([]uint8, 200)))
	assert.Equal(t, "10x20x1", ShapeString(arr))

	squeezed := Squeeze(arr)
	assert.Equal(t, "10x20", ShapeString(squeezed))
	assert.Equal(t, KindGray, KindOf(squeezed))

	unchanged := tensor.New(tensor.WithShape(3, 4), tensor.WithBacking(make([]uint8, 12)))
	assert.Same(t, unchanged, Squeeze(unchanged))
}

func TestRange(t *testing.T) {
	tests := []struct {
		name   string
		arr    *tensor.Dense
		lo, hi interface{}
	}{
		{"uint8", tensor.New(tensor.WithShape(2, 2), tensor.WithBacking([]uint8{3, 9, 1, 7})), uint8(1), uint8(9)},
		{"float64", tensor.New(tensor.WithShape(3), tensor.WithBacking([]float64{-1.5, 0, 2.5})), -1.5, 2.5},
		{"float32", tensor.New(tensor.WithShape(3), tensor.WithBacking([]float32{0.5, 0.25, 1})), float32(0.25), float32(1)},
		{"int64", tensor.New(tensor.WithShape(2), tensor.WithBacking([]int64{-4, 4})), int64(-4), int64(4)},
		{"bool", tensor.New(tensor.WithShape(2), tensor.WithBacking([]bool{false, true})), false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lo, hi, err := Range(tt.arr)
			require.NoError(t, err)
			assert.Equal(t, tt.lo, lo)
			assert.Equal(t, tt.hi, hi)
		})
	}
}

func TestAsType(t *testing.T) {
	arr := tensor.New(tensor.WithShape(1, 4), tensor.WithBacking([]float64{-3, 0.4, 127.6, 300}))

	u8, err := AsType(arr, tensor.Uint8)
	require.NoError(t, err)
	assert.Equal(t, []uint8{0, 0, 128, 255}, u8.Data())
	assert.Equal(t, arr.Shape(), u8.Shape())

	f32, err := AsType(u8, tensor.Float32)
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0, 128, 255}, f32.Data())

	same, err := AsType(u8, tensor.Uint8)
	require.NoError(t, err)
	assert.Same(t, u8, same)
}

func TestAsTypeTargets(t *testing.T) {
	arr := tensor.New(tensor.WithShape(5), tensor.WithBacking([]float64{-1e30, -1.6, 0, 2.5, 1e30}))

	tests := []struct {
		dtype tensor.Dtype
		want  interface{}
	}{
		{tensor.Bool, []bool{true, true, false, true, true}},
		{tensor.Int, []int{math.MinInt, -2, 0, 3, math.MaxInt}},
		{tensor.Int8, []int8{math.MinInt8, -2, 0, 3, math.MaxInt8}},
		{tensor.Int16, []int16{math.MinInt16, -2, 0, 3, math.MaxInt16}},
		{tensor.Int32, []int32{math.MinInt32, -2, 0, 3, math.MaxInt32}},
		{tensor.Int64, []int64{math.MinInt64, -2, 0, 3, math.MaxInt64}},
		{tensor.Uint, []uint{0, 0, 0, 3, math.MaxUint}},
		{tensor.Uint16, []uint16{0, 0, 0, 3, math.MaxUint16}},
		{tensor.Uint32, []uint32{0, 0, 0, 3, math.MaxUint32}},
		{tensor.Uint64, []uint64{0, 0, 0, 3, math.MaxUint64}},
	}
	for _, tt := range tests {
		t.Run(tt.dtype.String(), func(t *testing.T) {
			out, err := AsType(arr, tt.dtype)
			require.NoError(t, err)
			assert.Equal(t, tt.dtype, out.Dtype())
			assert.Equal(t, tt.want, out.Data())
		})
	}

	t.Run("from int8", func(t *testing.T) {
		i8 := tensor.New(tensor.WithShape(2), tensor.WithBacking([]int8{-5, 7}))
		out, err := AsType(i8, tensor.Uint8)
		require.NoError(t, err)
		assert.Equal(t, []uint8{0, 7}, out.Data())
	})
	t.Run("nan", func(t *testing.T) {
		nan := tensor.New(tensor.WithShape(1), tensor.WithBacking([]float64{math.NaN()}))
		out, err := AsType(nan, tensor.Int16)
		require.NoError(t, err)
		assert.Equal(t, []int16{0}, out.Data())
	})
}

func TestParseDtype(t *testing.T) {
	dt, err := ParseDtype(" Float32 ")
	require.NoError(t, err)
	assert.Equal(t, tensor.Float32, dt)

	for name, want := range map[string]tensor.Dtype{
		"bool":   tensor.Bool,
		"int":    tensor.Int,
		"int8":   tensor.Int8,
		"int16":  tensor.Int16,
		"uint32": tensor.Uint32,
		"uint64": tensor.Uint64,
	} {
		dt, err := ParseDtype(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, dt, name)
	}

	_, err = ParseDtype("complex128")
	assert.ErrorIs(t, err, ErrUnsupportedDtype)
}
