// Package reader - Pipeline nuts that load files referenced by sample columns.
package reader

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/nvr-ai/go-nuts/flow"
	"github.com/nvr-ai/go-nuts/images"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorgonia.org/tensor"
)

// ErrFormatMismatch is returned by ReadNumpy for files that are not NPY.
var ErrFormatMismatch = errors.New("file format not accepted by reader")

// PathFunc maps the value of a sample column (the file id) to a file path.
type PathFunc func(fileid string) string

// Pattern returns a PathFunc that replaces every "*" in pattern with the file
// id, e.g. Pattern("data/img_formats/*.jpg") maps "nut_color" to
// "data/img_formats/nut_color.jpg".
func Pattern(pattern string) PathFunc {
	return func(fileid string) string {
		return strings.ReplaceAll(pattern, "*", fileid)
	}
}

// ReadImage loads images for the selected columns of a sample and replaces
// each column with its array. Images become (h,w,3), (h,w) or (h,w,4) arrays;
// NPY files keep their stored shape.
type ReadImage struct {
	// Columns selects the columns holding file ids. Empty selects all.
	Columns []int
	// Path maps file ids to paths. nil means the column holds the path.
	Path PathFunc
	// Options controls gray conversion and dtype.
	Options images.LoadOptions
	// Logger receives one debug entry per loaded file.
	Logger *zap.Logger

	accept func(format images.ImageFormat) bool
}

// NewReadImage creates a ReadImage nut for the given columns.
//
// @example
//
//	samples := []interface{}{flow.Sample{1, "nut_color"}, flow.Sample{2, "nut_grayscale"}}
//	read := reader.NewReadImage([]int{1}, reader.Pattern("tests/data/img_formats/*.jpg"))
func NewReadImage(columns []int, path PathFunc) *ReadImage {
	return &ReadImage{Columns: columns, Path: path, Logger: zap.NewNop()}
}

// Apply implements flow.Nut. The input sample is not modified.
func (r *ReadImage) Apply(ctx context.Context, item interface{}) (interface{}, error) {
	if !flow.IsSample(item) {
		return nil, errors.Wrapf(flow.ErrNotSample, "%T", item)
	}
	sample := flow.AsSample(item)
	cols, err := flow.Columns(len(sample), r.Columns)
	if err != nil {
		return nil, err
	}

	out := sample.Clone()
	for _, col := range cols {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := r.resolve(sample[col])
		arr, err := r.load(path)
		if err != nil {
			return nil, errors.Wrapf(err, "column %d", col)
		}
		r.logger().Debug("Loaded image",
			zap.String("path", path),
			zap.Int("column", col),
			zap.Ints("shape", arr.Shape()),
			zap.Stringer("dtype", arr.Dtype()))
		out[col] = arr
	}
	return out, nil
}

// load reads path and decodes it in the format its content declares.
func (r *ReadImage) load(path string) (*tensor.Dense, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	format := images.DetectFormat(path, data)
	if r.accept != nil && !r.accept(format) {
		return nil, errors.Wrapf(ErrFormatMismatch, "%s is %s", path, formatName(format))
	}
	arr, err := images.LoadBytes(data, format, r.Options)
	if err != nil {
		return nil, errors.Wrapf(err, "loading %s", path)
	}
	return arr, nil
}

func formatName(format images.ImageFormat) string {
	if format == images.FormatUnknown {
		return "unknown"
	}
	return string(format)
}

func (r *ReadImage) resolve(value interface{}) string {
	fileid, ok := value.(string)
	if !ok {
		fileid = fmt.Sprint(value)
	}
	if r.Path == nil {
		return fileid
	}
	return r.Path(fileid)
}

func (r *ReadImage) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}

// NewReadNumpy creates a reader that only accepts NPY files, judged by their
// content rather than their extension. Arrays are returned with their stored
// shape and dtype.
func NewReadNumpy(columns []int, path PathFunc) *ReadImage {
	r := NewReadImage(columns, path)
	r.accept = func(format images.ImageFormat) bool {
		return format == images.FormatNPY
	}
	return r
}
