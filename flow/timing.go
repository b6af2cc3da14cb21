package flow

import (
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// TimeTracker tracks timing statistics of one nut.
type TimeTracker struct {
	mu    sync.Mutex
	name  string
	count int64
	total time.Duration
	min   time.Duration
	max   time.Duration
}

// Timing is a snapshot of a TimeTracker.
type Timing struct {
	Name  string
	Count int64
	Total time.Duration
	Min   time.Duration
	Max   time.Duration
}

// Mean returns the average duration, or zero before the first record.
func (t Timing) Mean() time.Duration {
	if t.Count == 0 {
		return 0
	}
	return t.Total / time.Duration(t.Count)
}

// MarshalLogObject implements zapcore.ObjectMarshaler.
func (t Timing) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("nut", t.Name)
	enc.AddInt64("count", t.Count)
	enc.AddDuration("total", t.Total)
	enc.AddDuration("min", t.Min)
	enc.AddDuration("max", t.Max)
	enc.AddDuration("mean", t.Mean())
	return nil
}

func newTimeTracker(name string) *TimeTracker {
	return &TimeTracker{name: name}
}

// Record adds one duration.
func (t *TimeTracker) Record(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.count == 0 || d < t.min {
		t.min = d
	}
	if d > t.max {
		t.max = d
	}
	t.total += d
	t.count++
}

// Snapshot returns the current statistics.
func (t *TimeTracker) Snapshot() Timing {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Timing{Name: t.name, Count: t.count, Total: t.total, Min: t.min, Max: t.max}
}

// Timings returns the statistics of every nut in chain order.
func (f *Flow) Timings() []Timing {
	out := make([]Timing, len(f.timers))
	for i, t := range f.timers {
		out[i] = t.Snapshot()
	}
	return out
}

// LogTimings writes the statistics of every nut at debug level.
func (f *Flow) LogTimings() {
	for _, t := range f.Timings() {
		f.logger.Debug("Nut timing", zap.Object("timing", t))
	}
}
