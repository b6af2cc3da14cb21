package flow

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func double() Nut {
	return NutFunc(func(_ context.Context, item interface{}) (interface{}, error) {
		return item.(int) * 2, nil
	})
}

func inc() Nut {
	return NutFunc(func(_ context.Context, item interface{}) (interface{}, error) {
		return item.(int) + 1, nil
	})
}

type closingNut struct {
	closed bool
}

func (c *closingNut) Apply(_ context.Context, item interface{}) (interface{}, error) {
	return item, nil
}
func (c *closingNut) Close() error {
	c.closed = true
	return nil
}

func TestBuilder(t *testing.T) {
	_, err := NewBuilder().Build()
	assert.Error(t, err, "empty flow")

	_, err = NewBuilder().Then(nil).Then(double()).Build()
	assert.Error(t, err, "nil nut")

	_, err = NewBuilder().Then(double()).WithWorkers(0).Build()
	assert.Error(t, err, "zero workers")

	assert.Panics(t, func() { NewBuilder().MustBuild() })

	f, err := NewBuilder().Then(double()).Then(inc()).WithLogger(zaptest.NewLogger(t)).Build()
	require.NoError(t, err)
	out, err := f.Apply(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, 7, out, "nuts run in order")
}

func TestCollectPreservesOrder(t *testing.T) {
	var active, peak int32
	slow := NutFunc(func(_ context.Context, item interface{}) (interface{}, error) {
		n := atomic.AddInt32(&active, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		// Later items finish first.
		time.Sleep(time.Duration(10-item.(int)) * time.Millisecond)
		atomic.AddInt32(&active, -1)
		return item, nil
	})

	f := NewBuilder().Then(slow).Then(double()).WithWorkers(3).MustBuild()

	items := make([]interface{}, 10)
	for i := range items {
		items[i] = i
	}
	out, err := f.Collect(context.Background(), items)
	require.NoError(t, err)
	for i, v := range out {
		assert.Equal(t, i*2, v)
	}
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(3), "worker limit")
}

func TestCollectReturnsFirstError(t *testing.T) {
	boom := errors.New("boom")
	failing := NutFunc(func(_ context.Context, item interface{}) (interface{}, error) {
		if item.(int) == 2 {
			return nil, boom
		}
		return item, nil
	})
	f := NewBuilder().Then(failing).MustBuild()

	_, err := f.Collect(context.Background(), []interface{}{0, 1, 2, 3})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "item 2")
}

func TestCollectCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := NewBuilder().Then(double()).MustBuild()
	err := f.Consume(ctx, []interface{}{1, 2})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStream(t *testing.T) {
	f := NewBuilder().Then(inc()).MustBuild()

	in := make(chan interface{})
	out := make(chan interface{})
	done := make(chan error, 1)
	go func() { done <- f.Stream(context.Background(), in, out) }()

	go func() {
		for i := 0; i < 3; i++ {
			in <- i
		}
		close(in)
	}()

	var got []interface{}
	for v := range out {
		got = append(got, v)
	}
	require.NoError(t, <-done)
	assert.Equal(t, []interface{}{1, 2, 3}, got)
}

func TestStreamStopsOnCancel(t *testing.T) {
	f := NewBuilder().Then(inc()).MustBuild()
	ctx, cancel := context.WithCancel(context.Background())

	in := make(chan interface{})
	out := make(chan interface{})
	done := make(chan error, 1)
	go func() { done <- f.Stream(ctx, in, out) }()

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	_, open := <-out
	assert.False(t, open, "out is closed")
}

func TestClose(t *testing.T) {
	c := &closingNut{}
	f := NewBuilder().Then(double()).Then(c).MustBuild()
	require.NoError(t, f.Close())
	assert.True(t, c.closed)
}

func TestAsSampleAndColumns(t *testing.T) {
	s := Sample{"a", 1}
	assert.Equal(t, s, AsSample(s))
	assert.Equal(t, Sample{"a", 1}, AsSample([]interface{}{"a", 1}))
	assert.Equal(t, Sample{3}, AsSample(3))
	assert.True(t, IsSample(s))
	assert.False(t, IsSample(3))

	clone := s.Clone()
	clone[0] = "b"
	assert.Equal(t, "a", s[0])

	cols, err := Columns(3, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, cols)

	cols, err = Columns(3, []int{2})
	require.NoError(t, err)
	assert.Equal(t, []int{2}, cols)

	_, err = Columns(3, []int{3})
	assert.ErrorIs(t, err, ErrColumnRange)
	_, err = Columns(3, []int{-1})
	assert.ErrorIs(t, err, ErrColumnRange)
}

func TestTimings(t *testing.T) {
	f := NewBuilder().Then(double()).Then(inc()).WithWorkers(2).WithLogger(zaptest.NewLogger(t)).MustBuild()
	_, err := f.Collect(context.Background(), []interface{}{1, 2, 3})
	require.NoError(t, err)

	timings := f.Timings()
	require.Len(t, timings, 2)
	assert.Equal(t, "0:flow.NutFunc", timings[0].Name)
	for _, tm := range timings {
		assert.Equal(t, int64(3), tm.Count)
		assert.LessOrEqual(t, tm.Min, tm.Max)
		assert.LessOrEqual(t, tm.Mean(), tm.Max)
	}
	f.LogTimings()

	tracker := newTimeTracker("x")
	assert.Zero(t, tracker.Snapshot().Mean())
	tracker.Record(3 * time.Millisecond)
	tracker.Record(time.Millisecond)
	snap := tracker.Snapshot()
	assert.Equal(t, time.Millisecond, snap.Min)
	assert.Equal(t, 3*time.Millisecond, snap.Max)
	assert.Equal(t, 2*time.Millisecond, snap.Mean())
}
