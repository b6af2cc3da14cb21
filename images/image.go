// Package images - Reading and decoding of image files into arrays.
package images

import (
	"crypto/md5"
	"fmt"
	"os"

	"github.com/pkg/errors"
)

// Image represents an encoded image file with its format and dimensions.
type Image struct {
	// The path the image was read from, if any.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
	// The format of the image.
	Format ImageFormat `json:"format" yaml:"format"`
	// The data of the image.
	Data []byte `json:"data" yaml:"data"`
	// The width of the image.
	Width int `json:"width" yaml:"width"`
	// The height of the image.
	Height int `json:"height" yaml:"height"`
}

// ReadFile reads the encoded file at path and fills in its format and
// dimensions without decoding pixel data.
//
// Arguments:
// - path: The image file to read.
//
// Returns:
// - The encoded image.
// - error if the file cannot be read or its format is unknown.
func ReadFile(path string) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	img := &Image{Path: path, Data: data, Format: DetectFormat(path, data)}
	if img.Format == FormatUnknown {
		return nil, errors.Wrapf(ErrUnsupportedFormat, "%s", path)
	}
	if err := img.readDimensions(); err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	return img, nil
}

// Checksum returns the hex-encoded MD5 of the encoded image data.
func (i *Image) Checksum() string {
	if len(i.Data) == 0 {
		return "empty"
	}
	return fmt.Sprintf("%x", md5.Sum(i.Data))
}
