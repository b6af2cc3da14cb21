// Package npy reads and writes the NumPy NPY single array file format.
//
// See https://numpy.org/doc/stable/reference/generated/numpy.lib.format.html
package npy

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Magic is the prefix of every NPY file.
const Magic = "\x93NUMPY"

var (
	// ErrBadMagic is returned when the input does not start with Magic.
	ErrBadMagic = errors.New("npy: bad magic string")
	// ErrUnsupportedDtype is returned for descr values other than bool, integer or float.
	ErrUnsupportedDtype = errors.New("npy: unsupported dtype")
	// ErrBadHeader is returned when the header dictionary cannot be parsed.
	ErrBadHeader = errors.New("npy: malformed header")
)

// Header is the decoded NPY header.
type Header struct {
	// Major and Minor are the format version, e.g. 1.0.
	Major, Minor byte
	// Descr is the NumPy type descriptor, e.g. "<f8" or "|u1".
	Descr string
	// FortranOrder is true when data is stored column-major.
	FortranOrder bool
	// Shape is the array shape. Empty for 0-d arrays.
	Shape []int
}

var (
	descrRe   = regexp.MustCompile(`'descr'\s*:\s*'([^']*)'`)
	fortranRe = regexp.MustCompile(`'fortran_order'\s*:\s*(True|False)`)
	shapeRe   = regexp.MustCompile(`'shape'\s*:\s*\(([^)]*)\)`)
)

// ReadHeader reads the magic string, version and header dictionary from r,
// leaving r positioned at the start of the array data.
func ReadHeader(r io.Reader) (*Header, error) {
	var prefix [8]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return nil, errors.Wrap(ErrBadMagic, err.Error())
	}
	if string(prefix[:6]) != Magic {
		return nil, ErrBadMagic
	}
	hdr := &Header{Major: prefix[6], Minor: prefix[7]}

	var headerLen int
	switch hdr.Major {
	case 1:
		var n uint16
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return nil, errors.Wrap(err, "npy: header length")
		}
		headerLen = int(n)
	case 2, 3:
		var n uint32
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return nil, errors.Wrap(err, "npy: header length")
		}
		headerLen = int(n)
	default:
		return nil, errors.Errorf("npy: unsupported format version %d.%d", hdr.Major, hdr.Minor)
	}

	dict := make([]byte, headerLen)
	if _, err := io.ReadFull(r, dict); err != nil {
		return nil, errors.Wrap(err, "npy: header")
	}
	if err := hdr.parse(string(dict)); err != nil {
		return nil, err
	}
	return hdr, nil
}

func (h *Header) parse(dict string) error {
	m := descrRe.FindStringSubmatch(dict)
	if m == nil {
		return errors.Wrap(ErrBadHeader, "missing descr")
	}
	h.Descr = m[1]

	m = fortranRe.FindStringSubmatch(dict)
	if m == nil {
		return errors.Wrap(ErrBadHeader, "missing fortran_order")
	}
	h.FortranOrder = m[1] == "True"

	m = shapeRe.FindStringSubmatch(dict)
	if m == nil {
		return errors.Wrap(ErrBadHeader, "missing shape")
	}
	h.Shape = []int{}
	for _, field := range strings.Split(m[1], ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		// Python 2 era writers emit longs such as "3L".
		d, err := strconv.Atoi(strings.TrimSuffix(field, "L"))
		if err != nil || d < 0 {
			return errors.Wrapf(ErrBadHeader, "shape dimension %q", field)
		}
		h.Shape = append(h.Shape, d)
	}
	return nil
}

// Size returns the number of elements described by the shape. A product
// that does not fit in an int is reported as ErrBadHeader.
func (h *Header) Size() (int, error) {
	for _, d := range h.Shape {
		if d == 0 {
			return 0, nil
		}
	}
	n := 1
	for _, d := range h.Shape {
		if n > math.MaxInt/d {
			return 0, errors.Wrapf(ErrBadHeader, "shape %v overflows", h.Shape)
		}
		n *= d
	}
	return n, nil
}

// encode renders the header as a version 1.0 preamble whose total length is
// a multiple of 64 bytes.
func (h *Header) encode() []byte {
	dims := make([]string, len(h.Shape))
	for i, d := range h.Shape {
		dims[i] = strconv.Itoa(d)
	}
	shape := strings.Join(dims, ", ")
	if len(h.Shape) == 1 {
		shape += ","
	}
	fortran := "False"
	if h.FortranOrder {
		fortran = "True"
	}
	dict := fmt.Sprintf("{'descr': '%s', 'fortran_order': %s, 'shape': (%s), }", h.Descr, fortran, shape)

	// magic(6) + version(2) + length(2) + dict + padding + '\n'
	const preamble = 10
	total := preamble + len(dict) + 1
	if rem := total % 64; rem != 0 {
		dict += strings.Repeat(" ", 64-rem)
	}
	dict += "\n"

	var buf bytes.Buffer
	buf.WriteString(Magic)
	buf.Write([]byte{1, 0})
	_ = binary.Write(&buf, binary.LittleEndian, uint16(len(dict)))
	buf.WriteString(dict)
	return buf.Bytes()
}
