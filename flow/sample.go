// Package flow - Sample pipelines: items pass through a chain of nuts.
package flow

import (
	"context"

	"github.com/pkg/errors"
)

var (
	// ErrNotSample is returned by nuts that need column access on a scalar item.
	ErrNotSample = errors.New("item is not a sample")
	// ErrColumnRange is returned for column indices outside a sample.
	ErrColumnRange = errors.New("column index out of range")
)

// Sample is a tuple of columns, e.g. Sample{"nut_color", 1}.
type Sample []interface{}

// Clone returns a shallow copy of s so nuts can replace columns without
// mutating their input.
func (s Sample) Clone() Sample {
	out := make(Sample, len(s))
	copy(out, s)
	return out
}

// AsSample returns item as a Sample. Scalars become one-column samples.
func AsSample(item interface{}) Sample {
	switch v := item.(type) {
	case Sample:
		return v
	case []interface{}:
		return Sample(v)
	default:
		return Sample{item}
	}
}

// IsSample reports whether item is a multi-column sample.
func IsSample(item interface{}) bool {
	switch item.(type) {
	case Sample, []interface{}:
		return true
	}
	return false
}

// Columns resolves a column selection against a sample of n columns.
// A nil or empty selection selects every column.
func Columns(n int, cols []int) ([]int, error) {
	if len(cols) == 0 {
		all := make([]int, n)
		for i := range all {
			all[i] = i
		}
		return all, nil
	}
	for _, c := range cols {
		if c < 0 || c >= n {
			return nil, errors.Wrapf(ErrColumnRange, "column %d of %d", c, n)
		}
	}
	return cols, nil
}

// Nut is a single pipeline stage applied to every item.
type Nut interface {
	Apply(ctx context.Context, item interface{}) (interface{}, error)
}

// NutFunc adapts a function to the Nut interface.
type NutFunc func(ctx context.Context, item interface{}) (interface{}, error)

// Apply calls f.
func (f NutFunc) Apply(ctx context.Context, item interface{}) (interface{}, error) {
	return f(ctx, item)
}
