package profiler

import (
	"runtime"
	"time"

	"github.com/Carmen-Shannon/oxy-bind/common"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer"
)

// Profiler tracks frame rate, memory statistics and the renderer's binding work.
// Outputs stats to the logger at a configurable interval.
type Profiler struct {
	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	now            func() time.Time
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
	last           renderer.Stats
}

// Report is one interval's worth of statistics.
type Report struct {
	FPS         float64
	HeapMB      float64
	AllocRateMB float64
	GCCount     uint32
	// Render deltas since the previous report.
	Draws           uint64
	DrawsSkipped    uint64
	BufferWrites    int
	BindGroupsBuilt int
	PipelinesBuilt  int
	// BindGroupsLive and Pipelines are absolute counts.
	BindGroupsLive int
	Pipelines      int
}

// NewProfiler creates a new Profiler. Update interval defaults to 1 second.
//
// Parameters:
//   - options: variadic list of ProfilerBuilderOption functions to configure the profiler
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerBuilderOption) *Profiler {
	p := &Profiler{
		updateInterval: time.Second,
		now:            time.Now,
	}
	for _, opt := range options {
		opt(p)
	}
	p.lastTime = p.now()
	return p
}

// Tick should be called once per frame to track frame timing.
// Logs performance statistics when the update interval has elapsed.
//
// Parameters:
//   - stats: the renderer's cumulative counters after the frame
//
// Returns:
//   - Report: the interval's statistics, valid only if ok
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick(stats renderer.Stats) (Report, bool) {
	p.frameCount++
	currentTime := p.now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval || elapsed <= 0 {
		return Report{}, false
	}

	runtime.ReadMemStats(&p.memStats)
	allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
	r := Report{
		FPS:             float64(p.frameCount) / elapsed.Seconds(),
		HeapMB:          float64(p.memStats.Alloc) / 1024 / 1024,
		AllocRateMB:     float64(allocDelta) / 1024 / 1024 / elapsed.Seconds(),
		GCCount:         p.memStats.NumGC,
		Draws:           stats.Draws - p.last.Draws,
		DrawsSkipped:    stats.DrawsSkipped - p.last.DrawsSkipped,
		BufferWrites:    stats.BufferWrites - p.last.BufferWrites,
		BindGroupsBuilt: stats.BindGroupsBuilt - p.last.BindGroupsBuilt,
		PipelinesBuilt:  stats.PipelinesBuilt - p.last.PipelinesBuilt,
		BindGroupsLive:  stats.BindGroupsLive,
		Pipelines:       stats.Pipelines,
	}

	common.Logger().Info("profiler",
		"fps", r.FPS,
		"heap_mb", r.HeapMB,
		"alloc_rate_mb", r.AllocRateMB,
		"gc", r.GCCount,
		"draws", r.Draws,
		"skipped", r.DrawsSkipped,
		"buffer_writes", r.BufferWrites,
		"bind_groups_built", r.BindGroupsBuilt,
		"bind_groups_live", r.BindGroupsLive,
		"pipelines_built", r.PipelinesBuilt,
		"pipelines", r.Pipelines,
	)

	p.frameCount = 0
	p.lastTime = currentTime
	p.lastGCCount = p.memStats.NumGC
	p.lastTotalAlloc = p.memStats.TotalAlloc
	p.last = stats
	return r, true
}
