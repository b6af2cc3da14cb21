package flow

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Flow runs items through an ordered chain of nuts.
type Flow struct {
	nuts    []Nut
	timers  []*TimeTracker
	workers int
	logger  *zap.Logger
}

// Builder assembles a Flow with a fluent API.
type Builder struct {
	nuts    []Nut
	workers int
	logger  *zap.Logger
	err     error
}

// NewBuilder creates a new flow builder with one worker and a no-op logger.
//
// @example
//
//	f, err := flow.NewBuilder().
//	    Then(reader.NewReadImage([]int{0}, reader.Pattern("imgs/*.png"))).
//	    Then(viewer.NewPrintColType(nil, os.Stdout)).
//	    Build()
func NewBuilder() *Builder {
	return &Builder{workers: 1, logger: zap.NewNop()}
}

// Then appends a nut to the chain.
func (b *Builder) Then(nut Nut) *Builder {
	if b.HasError() {
		return b
	}
	if nut == nil {
		b.err = errors.Errorf("nut %d is nil", len(b.nuts))
		return b
	}
	b.nuts = append(b.nuts, nut)
	return b
}

// WithWorkers sets how many items Collect processes concurrently.
func (b *Builder) WithWorkers(n int) *Builder {
	if b.HasError() {
		return b
	}
	if n < 1 {
		b.err = errors.Errorf("workers must be positive, got %d", n)
		return b
	}
	b.workers = n
	return b
}

// WithLogger sets the logger used for per-item diagnostics.
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	if logger != nil {
		b.logger = logger
	}
	return b
}

// HasError checks if the builder has errors.
func (b *Builder) HasError() bool {
	return b.err != nil
}

// Build builds the flow.
//
// Returns:
//   - *Flow: The flow.
//   - error: The first error recorded while building.
func (b *Builder) Build() (*Flow, error) {
	if b.HasError() {
		return nil, b.err
	}
	if len(b.nuts) == 0 {
		return nil, errors.New("flow has no nuts")
	}
	nuts := make([]Nut, len(b.nuts))
	copy(nuts, b.nuts)
	timers := make([]*TimeTracker, len(nuts))
	for i, nut := range nuts {
		timers[i] = newTimeTracker(fmt.Sprintf("%d:%T", i, nut))
	}
	return &Flow{nuts: nuts, timers: timers, workers: b.workers, logger: b.logger}, nil
}

// MustBuild builds the flow and panics if there is an error.
func (b *Builder) MustBuild() *Flow {
	f, err := b.Build()
	if err != nil {
		panic(err)
	}
	return f
}

// Apply runs a single item through every nut in order. A Flow is itself a
// Nut, so flows can be nested.
func (f *Flow) Apply(ctx context.Context, item interface{}) (interface{}, error) {
	var err error
	for i, nut := range f.nuts {
		if err = ctx.Err(); err != nil {
			return nil, err
		}
		start := time.Now()
		if item, err = nut.Apply(ctx, item); err != nil {
			return nil, errors.Wrapf(err, "nut %d (%T)", i, nut)
		}
		f.timers[i].Record(time.Since(start))
	}
	return item, nil
}

// Collect runs every item through the flow and returns the results in input
// order. Up to the configured number of workers process items concurrently.
// The first failure cancels outstanding work and is returned.
//
// Arguments:
// - ctx: Cancels processing.
// - items: The input items.
//
// Returns:
// - The processed items, index-aligned with items.
// - error from the first failing item.
func (f *Flow) Collect(ctx context.Context, items []interface{}) ([]interface{}, error) {
	results := make([]interface{}, len(items))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(f.workers)

	for i, item := range items {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out, err := f.Apply(ctx, item)
			if err != nil {
				f.logger.Debug("Item failed", zap.Int("index", i), zap.Error(err))
				return errors.Wrapf(err, "item %d", i)
			}
			results[i] = out
			f.logger.Debug("Item processed", zap.Int("index", i))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Consume runs every item through the flow and discards the results.
func (f *Flow) Consume(ctx context.Context, items []interface{}) error {
	_, err := f.Collect(ctx, items)
	return err
}

// Stream processes items from in one at a time, in arrival order, sending
// results to out. out is closed when Stream returns.
func (f *Flow) Stream(ctx context.Context, in <-chan interface{}, out chan<- interface{}) error {
	defer close(out)

	for i := 0; ; i++ {
		var item interface{}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case v, ok := <-in:
			if !ok {
				return nil
			}
			item = v
		}

		result, err := f.Apply(ctx, item)
		if err != nil {
			return errors.Wrapf(err, "item %d", i)
		}
		f.logger.Debug("Item streamed", zap.Int("index", i))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case out <- result:
		}
	}
}

// Close closes every nut that holds resources.
func (f *Flow) Close() error {
	var first error
	for _, nut := range f.nuts {
		if c, ok := nut.(io.Closer); ok {
			if err := c.Close(); err != nil && first == nil {
				first = err
			}
		}
	}
	return first
}
