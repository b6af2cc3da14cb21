package images

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/nvr-ai/go-nuts/arrays"
	"github.com/nvr-ai/go-nuts/npy"
	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
	"gorgonia.org/tensor"
)

var (
	// ErrUnsupportedFormat is returned for files that are not one of SupportedFormats.
	ErrUnsupportedFormat = errors.New("unsupported image format")
	// ErrEmptyData is returned when there is nothing to decode.
	ErrEmptyData = errors.New("image data is empty")
)

// LoadOptions controls how Load converts a file into an array.
type LoadOptions struct {
	// Gray converts color images to a single (h,w) luminance channel.
	// Ignored for NPY files, which are returned as stored.
	Gray bool
	// Dtype converts the array elements. The zero value keeps uint8 for
	// images and the stored dtype for NPY files.
	Dtype tensor.Dtype
}

// Decode decodes raster image data. NPY data is not handled here, see Load.
//
// Arguments:
// - data: Encoded GIF, PNG, JPEG, BMP, TIFF or WebP bytes.
//
// Returns:
// - The decoded image.
// - The format that was detected.
// - error if decoding fails.
func Decode(data []byte) (image.Image, ImageFormat, error) {
	if len(data) == 0 {
		return nil, FormatUnknown, ErrEmptyData
	}
	img, name, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, FormatUnknown, errors.Wrap(ErrUnsupportedFormat, err.Error())
		}
		return nil, FormatUnknown, errors.Wrap(err, "image decoding failed")
	}
	return img, ImageFormat(name), nil
}

// Load reads the image or NPY file at path into an array.
//
// Images become (h,w,3) RGB, (h,w) gray-scale or (h,w,4) RGBA uint8 arrays.
// NPY files keep their stored shape and dtype.
//
// Arguments:
// - path: The file to load.
// - opts: Conversion options.
//
// Returns:
// - The loaded array.
// - error if the file cannot be read, decoded or converted.
//
// @example
// arr, err := Load("tests/data/img_formats/nut_color.png", LoadOptions{})
//
//	if err != nil {
//	    return err
//	}
func Load(path string, opts LoadOptions) (*tensor.Dense, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	arr, err := LoadBytes(data, DetectFormat(path, data), opts)
	if err != nil {
		return nil, errors.Wrapf(err, "loading %s", path)
	}
	return arr, nil
}

// LoadBytes converts encoded data of the given format into an array.
// FormatUnknown triggers detection from the data itself.
func LoadBytes(data []byte, format ImageFormat, opts LoadOptions) (*tensor.Dense, error) {
	if len(data) == 0 {
		return nil, ErrEmptyData
	}
	if format == FormatUnknown {
		format = Sniff(data)
	}

	var arr *tensor.Dense
	if format == FormatNPY {
		var err error
		if arr, err = npy.Read(bytes.NewReader(data)); err != nil {
			return nil, errors.Wrap(err, "npy decoding failed")
		}
	} else {
		img, _, err := Decode(data)
		if err != nil {
			return nil, err
		}
		if opts.Gray {
			img = Grayscale(img)
		}
		if arr, err = arrays.FromImage(img); err != nil {
			return nil, errors.Wrap(err, "array conversion failed")
		}
	}

	if opts.Dtype.Type == nil {
		return arr, nil
	}
	return arrays.AsType(arr, opts.Dtype)
}

// readDimensions fills in Width and Height from the encoded header.
func (i *Image) readDimensions() error {
	if i.Format == FormatNPY {
		hdr, err := npy.ReadHeader(bytes.NewReader(i.Data))
		if err != nil {
			return err
		}
		if len(hdr.Shape) >= 2 {
			i.Height, i.Width = hdr.Shape[0], hdr.Shape[1]
		} else if len(hdr.Shape) == 1 {
			i.Height, i.Width = 1, hdr.Shape[0]
		}
		return nil
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(i.Data))
	if err != nil {
		return errors.Wrap(err, "image header")
	}
	i.Width, i.Height = cfg.Width, cfg.Height
	return nil
}
