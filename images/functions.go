package images

import (
	"image"
	"runtime"

	"github.com/nvr-ai/go-nuts/arrays"
	"golang.org/x/sync/errgroup"
)

// Grayscale converts an image to single channel luminance.
// Images that are already gray are returned unchanged.
//
// Arguments:
// - img: The source image.
//
// Returns:
// - A gray image with the same bounds, using ITU-R BT.709 luma weights.
//
// @example
// gray := Grayscale(colorImage)
func Grayscale(img image.Image) image.Image {
	switch img.(type) {
	case *image.Gray, *image.Gray16:
		return img
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	dst := image.NewGray(bounds)

	Parallel(bounds.Dy(), func(partStart, partEnd int) {
		for y := partStart; y < partEnd; y++ {
			srcY := bounds.Min.Y + y
			row := dst.PixOffset(bounds.Min.X, srcY)
			for x := 0; x < width; x++ {
				dst.Pix[row+x] = arrays.Luma(img.At(bounds.Min.X+x, srcY))
			}
		}
	})

	return dst
}

// Parallel splits [0, dataSize) into contiguous row bands and runs fn on
// them concurrently, at most one band per CPU. It returns when every band is
// done.
//
// @example
//
//	Parallel(height, func(start, end int) {
//	    for y := start; y < end; y++ {
//	        // Process row y
//	    }
//	})
func Parallel(dataSize int, fn func(partStart, partEnd int)) {
	bands := runtime.NumCPU()
	if dataSize < bands*2 {
		fn(0, dataSize)
		return
	}

	var g errgroup.Group
	g.SetLimit(bands)
	step := (dataSize + bands - 1) / bands
	for start := 0; start < dataSize; start += step {
		end := min(start+step, dataSize)
		g.Go(func() error {
			fn(start, end)
			return nil
		})
	}
	_ = g.Wait()
}
