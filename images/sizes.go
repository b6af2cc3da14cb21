package images

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Size is a target image size in pixels.
type Size struct {
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// String returns the size as "WxH".
func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// MegaPixels returns the pixel count in millions rounded to two decimals.
func (s Size) MegaPixels() float64 {
	if s.Width <= 0 || s.Height <= 0 {
		return 0
	}
	return math.Round(float64(s.Width*s.Height)/10_000) / 100
}

// namedSizes are common camera and display resolutions.
var namedSizes = map[string]Size{
	"nhd":   {640, 360},
	"vga":   {640, 480},
	"fwvga": {854, 480},
	"540p":  {960, 540},
	"720p":  {1280, 720},
	"wxga":  {1366, 768},
	"900p":  {1600, 900},
	"1080p": {1920, 1080},
	"1440p": {2560, 1440},
	"4k":    {3840, 2160},
}

// SizeNames returns the names accepted by ParseSize, smallest first.
func SizeNames() []string {
	names := make([]string, 0, len(namedSizes))
	for name := range namedSizes {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := namedSizes[names[i]], namedSizes[names[j]]
		if a.Width*a.Height != b.Width*b.Height {
			return a.Width*a.Height < b.Width*b.Height
		}
		return names[i] < names[j]
	})
	return names
}

// ParseSize parses "WxH" (e.g. "640x480") or a name such as "720p".
//
// Arguments:
// - s: The size text, case-insensitive.
//
// Returns:
// - Size: The parsed size.
// - error: Error if s is neither a name nor two positive integers.
func ParseSize(s string) (Size, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if size, ok := namedSizes[s]; ok {
		return size, nil
	}
	w, h, ok := strings.Cut(s, "x")
	if !ok {
		return Size{}, errors.Errorf("invalid size %q (want WxH or one of %v)", s, SizeNames())
	}
	width, err := strconv.Atoi(w)
	if err != nil {
		return Size{}, errors.Wrapf(err, "invalid width in %q", s)
	}
	height, err := strconv.Atoi(h)
	if err != nil {
		return Size{}, errors.Wrapf(err, "invalid height in %q", s)
	}
	if width <= 0 || height <= 0 {
		return Size{}, errors.Errorf("size must be positive, got %q", s)
	}
	return Size{Width: width, Height: height}, nil
}
