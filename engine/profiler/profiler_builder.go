package profiler

import "time"

// ProfilerBuilderOption is a functional option applied to a Profiler during construction via NewProfiler.
type ProfilerBuilderOption func(*Profiler)

// WithUpdateInterval sets how often statistics are logged.
//
// Parameters:
//   - d: the logging interval
//
// Returns:
//   - ProfilerBuilderOption: a function that applies the interval option to a profiler
func WithUpdateInterval(d time.Duration) ProfilerBuilderOption {
	return func(p *Profiler) {
		p.updateInterval = d
	}
}

// WithClock replaces time.Now as the profiler's time source.
func WithClock(now func() time.Time) ProfilerBuilderOption {
	return func(p *Profiler) {
		p.now = now
	}
}
