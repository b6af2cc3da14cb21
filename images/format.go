package images

import (
	"bytes"
	"path/filepath"
	"strings"
)

// ImageFormat represents supported image file formats.
type ImageFormat string

// ImageFormat constants
const (
	// FormatUnknown is returned when a format cannot be determined.
	FormatUnknown ImageFormat = ""
	// FormatGIF is the GIF image format.
	FormatGIF ImageFormat = "gif"
	// FormatPNG is the PNG image format.
	FormatPNG ImageFormat = "png"
	// FormatJPEG is the JPEG image format.
	FormatJPEG ImageFormat = "jpeg"
	// FormatBMP is the Windows bitmap format.
	FormatBMP ImageFormat = "bmp"
	// FormatTIFF is the TIFF image format.
	FormatTIFF ImageFormat = "tiff"
	// FormatNPY is the NumPy single array format.
	FormatNPY ImageFormat = "npy"
	// FormatWebP is the WebP image format. Decoding only.
	FormatWebP ImageFormat = "webp"
)

// FormatExts maps lower-case file extensions to formats.
var FormatExts = map[string]ImageFormat{
	".gif":  FormatGIF,
	".png":  FormatPNG,
	".jpg":  FormatJPEG,
	".jpeg": FormatJPEG,
	".bmp":  FormatBMP,
	".tif":  FormatTIFF,
	".tiff": FormatTIFF,
	".npy":  FormatNPY,
	".webp": FormatWebP,
}

// SupportedFormats lists the formats Load can read, in documentation order.
var SupportedFormats = []ImageFormat{FormatGIF, FormatPNG, FormatJPEG, FormatBMP, FormatTIFF, FormatNPY, FormatWebP}

// magic holds the leading bytes that identify a format.
var magic = []struct {
	format ImageFormat
	prefix []byte
}{
	{FormatGIF, []byte("GIF87a")},
	{FormatGIF, []byte("GIF89a")},
	{FormatPNG, []byte("\x89PNG\r\n\x1a\n")},
	{FormatJPEG, []byte{0xff, 0xd8, 0xff}},
	{FormatBMP, []byte("BM")},
	{FormatTIFF, []byte("II*\x00")},
	{FormatTIFF, []byte("MM\x00*")},
	{FormatNPY, []byte("\x93NUMPY")},
}

// FormatFromPath returns the format implied by the file extension of path.
func FormatFromPath(path string) ImageFormat {
	return FormatExts[strings.ToLower(filepath.Ext(path))]
}

// Sniff detects the format of encoded data from its leading bytes.
func Sniff(data []byte) ImageFormat {
	for _, m := range magic {
		if bytes.HasPrefix(data, m.prefix) {
			return m.format
		}
	}
	if len(data) >= 12 && bytes.Equal(data[:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")) {
		return FormatWebP
	}
	return FormatUnknown
}

// DetectFormat returns the format of data read from path. The magic bytes
// win over the extension, which is only consulted for unknown content.
func DetectFormat(path string, data []byte) ImageFormat {
	if format := Sniff(data); format != FormatUnknown {
		return format
	}
	return FormatFromPath(path)
}

// IsSupported reports whether path has an extension Load can read.
func IsSupported(path string) bool {
	return FormatFromPath(path) != FormatUnknown
}
