package reader

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"github.com/nvr-ai/go-nuts/flow"
	"github.com/nvr-ai/go-nuts/images"
	"github.com/pkg/errors"
)

// ListImageFiles returns the paths of all readable image and NPY files in
// dir, sorted so that embedded numbers compare numerically
// ("frame-2.png" before "frame-10.png").
//
// Arguments:
// - dir: Directory path containing image files.
//
// Returns:
// - []string: Sorted file paths.
// - error: Error if the directory cannot be read.
func ListImageFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "listing %s", dir)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !images.IsSupported(entry.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}

	sort.Slice(paths, func(i, j int) bool {
		return naturalLess(filepath.Base(paths[i]), filepath.Base(paths[j]))
	})
	return paths, nil
}

// ReadLabelDirs reads file paths from label directories. Every
// sub-directory of baseDir is a label and every file in it matching
// filePattern becomes a flow.Sample{path, label}. Directories starting with
// "." or "_" are skipped.
//
// Arguments:
// - baseDir: Directory holding one sub-directory per label.
// - filePattern: Glob for files within a label directory, e.g. "*.png".
//
// Returns:
// - Samples sorted by label, then naturally by file name.
// - error if baseDir cannot be read or the pattern is malformed.
//
// @example
//
//	samples, err := ReadLabelDirs("data/labeldirs", "*.png")
//	// [Sample{"data/labeldirs/0/img0.png", "0"}, Sample{"data/labeldirs/1/img1.png", "1"}, ...]
func ReadLabelDirs(baseDir, filePattern string) ([]interface{}, error) {
	entries, err := os.ReadDir(baseDir)
	if err != nil {
		return nil, errors.Wrapf(err, "listing %s", baseDir)
	}

	var samples []interface{}
	for _, entry := range entries {
		label := entry.Name()
		if !entry.IsDir() || strings.HasPrefix(label, ".") || strings.HasPrefix(label, "_") {
			continue
		}
		matches, err := filepath.Glob(filepath.Join(baseDir, label, filePattern))
		if err != nil {
			return nil, errors.Wrapf(err, "pattern %q", filePattern)
		}
		sort.Slice(matches, func(i, j int) bool {
			return naturalLess(filepath.Base(matches[i]), filepath.Base(matches[j]))
		})
		for _, path := range matches {
			samples = append(samples, flow.Sample{path, label})
		}
	}
	// os.ReadDir already returns entries sorted by name, so labels are ordered.
	return samples, nil
}

// naturalLess compares strings treating runs of digits as numbers.
func naturalLess(a, b string) bool {
	for a != "" && b != "" {
		ca, cb := rune(a[0]), rune(b[0])
		if unicode.IsDigit(ca) && unicode.IsDigit(cb) {
			na, ra := leadingDigits(a)
			nb, rb := leadingDigits(b)
			// Compare by magnitude: strip leading zeros, then length, then lexically.
			ta, tb := strings.TrimLeft(na, "0"), strings.TrimLeft(nb, "0")
			if len(ta) != len(tb) {
				return len(ta) < len(tb)
			}
			if ta != tb {
				return ta < tb
			}
			a, b = ra, rb
			continue
		}
		if ca != cb {
			return ca < cb
		}
		a, b = a[1:], b[1:]
	}
	return len(a) < len(b)
}

func leadingDigits(s string) (string, string) {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	return s[:i], s[i:]
}
