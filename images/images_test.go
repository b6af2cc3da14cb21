package images

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/nvr-ai/go-nuts/arrays"
	"github.com/nvr-ai/go-nuts/npy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	"gorgonia.org/tensor"
)

func getTestImage() *image.RGBA {
	// A 20x10 image with a red left half and a blue right half.
	img := image.NewRGBA(image.Rect(0, 0, 20, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 20; x++ {
			c := color.RGBA{R: 255, A: 255}
			if x >= 10 {
				c = color.RGBA{B: 255, A: 255}
			}
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func getTransparentImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 20, 10))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+3] = 255, 128
	}
	return img
}

func getGrayImage() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, 20, 10))
	for i := range img.Pix {
		img.Pix[i] = uint8(i)
	}
	return img
}

func writeFixture(t *testing.T, dir, name string, encode func(*bytes.Buffer) error) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, encode(&buf))
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func TestFormatFromPath(t *testing.T) {
	tests := map[string]ImageFormat{
		"a/b/nut_color.gif": FormatGIF,
		"x.PNG":             FormatPNG,
		"x.jpg":             FormatJPEG,
		"x.jpeg":            FormatJPEG,
		"x.bmp":             FormatBMP,
		"x.tif":             FormatTIFF,
		"x.tiff":            FormatTIFF,
		"x.npy":             FormatNPY,
		"x.webp":            FormatWebP,
		"x.txt":             FormatUnknown,
		"noext":             FormatUnknown,
	}
	for path, want := range tests {
		assert.Equal(t, want, FormatFromPath(path), path)
	}
	assert.True(t, IsSupported("img.tif"))
	assert.False(t, IsSupported("img.svg"))
}

func TestSniff(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want ImageFormat
	}{
		{"gif", []byte("GIF89a..."), FormatGIF},
		{"png", []byte("\x89PNG\r\n\x1a\nrest"), FormatPNG},
		{"jpeg", []byte{0xff, 0xd8, 0xff, 0xe0}, FormatJPEG},
		{"bmp", []byte("BM...."), FormatBMP},
		{"tiff little endian", []byte("II*\x00...."), FormatTIFF},
		{"tiff big endian", []byte("MM\x00*...."), FormatTIFF},
		{"npy", []byte("\x93NUMPY\x01\x00"), FormatNPY},
		{"webp", []byte("RIFF\x00\x00\x00\x00WEBPVP8 "), FormatWebP},
		{"text", []byte("hello"), FormatUnknown},
		{"empty", nil, FormatUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sniff(tt.data))
		})
	}
}

func TestDetectFormat(t *testing.T) {
	pngData := []byte("\x89PNG\r\n\x1a\nrest")
	assert.Equal(t, FormatPNG, DetectFormat("fake.npy", pngData))
	assert.Equal(t, FormatNPY, DetectFormat("arr.dat", []byte("\x93NUMPY\x01\x00")))
	assert.Equal(t, FormatJPEG, DetectFormat("photo.JPG", []byte("??")))
	assert.Equal(t, FormatUnknown, DetectFormat("notes.txt", []byte("hello")))
}

func TestLoadFormats(t *testing.T) {
	dir := t.TempDir()
	rgb := getTestImage()

	npyArr := tensor.New(tensor.WithShape(10, 20, 3), tensor.WithBacking(make([]float32, 600)))

	tests := []struct {
		name  string
		path  string
		shape tensor.Shape
		dtype tensor.Dtype
	}{
		{"png rgb", writeFixture(t, dir, "color.png", func(b *bytes.Buffer) error { return png.Encode(b, rgb) }), tensor.Shape{10, 20, 3}, tensor.Uint8},
		{"png rgba", writeFixture(t, dir, "alpha.png", func(b *bytes.Buffer) error { return png.Encode(b, getTransparentImage()) }), tensor.Shape{10, 20, 4}, tensor.Uint8},
		{"png gray", writeFixture(t, dir, "gray.png", func(b *bytes.Buffer) error { return png.Encode(b, getGrayImage()) }), tensor.Shape{10, 20}, tensor.Uint8},
		{"jpg rgb", writeFixture(t, dir, "color.jpg", func(b *bytes.Buffer) error { return jpeg.Encode(b, rgb, nil) }), tensor.Shape{10, 20, 3}, tensor.Uint8},
		{"jpg gray", writeFixture(t, dir, "gray.jpg", func(b *bytes.Buffer) error { return jpeg.Encode(b, getGrayImage(), nil) }), tensor.Shape{10, 20}, tensor.Uint8},
		{"gif", writeFixture(t, dir, "color.gif", func(b *bytes.Buffer) error { return gif.Encode(b, rgb, nil) }), tensor.Shape{10, 20, 3}, tensor.Uint8},
		{"bmp", writeFixture(t, dir, "color.bmp", func(b *bytes.Buffer) error { return bmp.Encode(b, rgb) }), tensor.Shape{10, 20, 3}, tensor.Uint8},
		{"tif", writeFixture(t, dir, "color.tif", func(b *bytes.Buffer) error { return tiff.Encode(b, rgb, nil) }), tensor.Shape{10, 20, 3}, tensor.Uint8},
		{"tif gray", writeFixture(t, dir, "gray.tif", func(b *bytes.Buffer) error { return tiff.Encode(b, getGrayImage(), nil) }), tensor.Shape{10, 20}, tensor.Uint8},
		{"npy", writeFixture(t, dir, "color.npy", func(b *bytes.Buffer) error { return npy.Write(b, npyArr) }), tensor.Shape{10, 20, 3}, tensor.Float32},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			arr, err := Load(tt.path, LoadOptions{})
			require.NoError(t, err)
			assert.Equal(t, tt.shape, arr.Shape())
			assert.Equal(t, tt.dtype, arr.Dtype())
		})
	}
}

func TestLoadPixelValues(t *testing.T) {
	dir := t.TempDir()
	path := writeFixture(t, dir, "color.png", func(b *bytes.Buffer) error { return png.Encode(b, getTestImage()) })

	arr, err := Load(path, LoadOptions{})
	require.NoError(t, err)

	left, err := arr.At(0, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, uint8(255), left)
	right, err := arr.At(9, 19, 2)
	require.NoError(t, err)
	assert.Equal(t, uint8(255), right)
}

func TestLoadOptions(t *testing.T) {
	dir := t.TempDir()
	path := writeFixture(t, dir, "color.png", func(b *bytes.Buffer) error { return png.Encode(b, getTestImage()) })

	gray, err := Load(path, LoadOptions{Gray: true})
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{10, 20}, gray.Shape())
	assert.Equal(t, arrays.KindGray, arrays.KindOf(gray))

	f32, err := Load(path, LoadOptions{Dtype: tensor.Float32})
	require.NoError(t, err)
	assert.Equal(t, tensor.Float32, f32.Dtype())
	assert.Equal(t, tensor.Shape{10, 20, 3}, f32.Shape())

	// NPY files are returned as stored, the Gray flag does not apply.
	npyArr := tensor.New(tensor.WithShape(2, 2, 3), tensor.WithBacking(make([]uint8, 12)))
	npyPath := writeFixture(t, dir, "arr.npy", func(b *bytes.Buffer) error { return npy.Write(b, npyArr) })
	loaded, err := Load(npyPath, LoadOptions{Gray: true})
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 2, 3}, loaded.Shape())
}

func TestLoadSniffsMislabelledFiles(t *testing.T) {
	dir := t.TempDir()
	path := writeFixture(t, dir, "actually_png.jpg", func(b *bytes.Buffer) error { return png.Encode(b, getGrayImage()) })

	arr, err := Load(path, LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{10, 20}, arr.Shape())
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.png"), LoadOptions{})
	assert.ErrorIs(t, err, os.ErrNotExist)

	bad := filepath.Join(dir, "bad.png")
	require.NoError(t, os.WriteFile(bad, []byte("not an image"), 0o644))
	_, err = Load(bad, LoadOptions{})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	empty := filepath.Join(dir, "empty.png")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	_, err = Load(empty, LoadOptions{})
	assert.ErrorIs(t, err, ErrEmptyData)
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFixture(t, dir, "color.bmp", func(b *bytes.Buffer) error { return bmp.Encode(b, getTestImage()) })

	img, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, FormatBMP, img.Format)
	assert.Equal(t, 20, img.Width)
	assert.Equal(t, 10, img.Height)
	assert.Len(t, img.Checksum(), 32)

	npyArr := tensor.New(tensor.WithShape(4, 6), tensor.WithBacking(make([]float64, 24)))
	npyPath := writeFixture(t, dir, "arr.npy", func(b *bytes.Buffer) error { return npy.Write(b, npyArr) })
	info, err := ReadFile(npyPath)
	require.NoError(t, err)
	assert.Equal(t, FormatNPY, info.Format)
	assert.Equal(t, 6, info.Width)
	assert.Equal(t, 4, info.Height)

	txt := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(txt, []byte("hello"), 0o644))
	_, err = ReadFile(txt)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestGrayscale(t *testing.T) {
	gray := Grayscale(getTestImage())
	g, ok := gray.(*image.Gray)
	require.True(t, ok)
	assert.Equal(t, uint8(54), g.GrayAt(0, 0).Y, "red luma")
	assert.Equal(t, uint8(18), g.GrayAt(19, 9).Y, "blue luma")

	already := getGrayImage()
	assert.Same(t, image.Image(already), Grayscale(already))
}

func TestResize(t *testing.T) {
	rgb, err := arrays.FromImage(getTestImage())
	require.NoError(t, err)
	rgba, err := arrays.FromImage(getTransparentImage())
	require.NoError(t, err)
	gray, err := arrays.FromImage(getGrayImage())
	require.NoError(t, err)

	tests := []struct {
		name   string
		arr    *tensor.Dense
		filter ResampleFilter
		shape  tensor.Shape
	}{
		{"rgb lanczos", rgb, LanczosFilter, tensor.Shape{5, 10, 3}},
		{"rgb nearest upscale", rgb, NearestNeighborFilter, tensor.Shape{5, 40, 3}},
		{"rgba bilinear", rgba, BilinearFilter, tensor.Shape{5, 10, 4}},
		{"gray bicubic", gray, BicubicFilter, tensor.Shape{5, 10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Resize(tt.arr, tt.shape[1], tt.shape[0], tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.shape, out.Shape())
		})
	}

	_, err = Resize(rgb, 0, 10, LanczosFilter)
	assert.Error(t, err)
	_, err = Resize(rgb, 10, 10, ResampleFilter(99))
	assert.Error(t, err)
}

func TestParallelCoversRange(t *testing.T) {
	for _, size := range []int{0, 1, 7, 1000, 1001, 4099} {
		seen := make([]int32, size)
		Parallel(size, func(start, end int) {
			for i := start; i < end; i++ {
				atomic.AddInt32(&seen[i], 1)
			}
		})
		for i, n := range seen {
			require.Equal(t, int32(1), n, "size %d index %d", size, i)
		}
	}
}
