package images

import (
	"github.com/nfnt/resize"
	"github.com/nvr-ai/go-nuts/arrays"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// ResampleFilter defines the resampling algorithm used for image scaling.
type ResampleFilter int

const (
	// NearestNeighborFilter uses nearest-neighbor interpolation (fastest, lowest quality).
	NearestNeighborFilter ResampleFilter = iota
	// BilinearFilter uses bilinear interpolation (fast, good quality).
	BilinearFilter
	// BicubicFilter uses bicubic interpolation (slower, better quality).
	BicubicFilter
	// LanczosFilter uses Lanczos resampling with a=3 (slowest, best quality).
	LanczosFilter
	// MitchellNetravaliFilter uses Mitchell-Netravali cubic filter (balanced).
	MitchellNetravaliFilter
)

var interpolations = map[ResampleFilter]resize.InterpolationFunction{
	NearestNeighborFilter:   resize.NearestNeighbor,
	BilinearFilter:          resize.Bilinear,
	BicubicFilter:           resize.Bicubic,
	LanczosFilter:           resize.Lanczos3,
	MitchellNetravaliFilter: resize.MitchellNetravali,
}

// Resize scales a gray, RGB or RGBA array to width x height, keeping its
// layout. Non-uint8 arrays are converted to uint8 first.
//
// Arguments:
// - arr: The image array.
// - width: Target width in pixels.
// - height: Target height in pixels.
// - filter: The resampling filter.
//
// Returns:
// - The resized uint8 array.
// - error if the dimensions are invalid or arr is not an image.
//
// @example
// small, err := Resize(arr, 224, 224, LanczosFilter)
func Resize(arr *tensor.Dense, width, height int, filter ResampleFilter) (*tensor.Dense, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.Errorf("invalid dimensions: width=%d, height=%d", width, height)
	}
	interp, ok := interpolations[filter]
	if !ok {
		return nil, errors.Errorf("unsupported resample filter: %d", filter)
	}

	arr = arrays.Squeeze(arr)
	kind := arrays.KindOf(arr)
	img, err := arrays.ToImage(arr)
	if err != nil {
		return nil, err
	}

	resized := resize.Resize(uint(width), uint(height), img, interp)
	return arrays.FromImageAs(resized, kind)
}
