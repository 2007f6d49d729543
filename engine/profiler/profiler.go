package profiler

import (
	"log/slog"
	"runtime"
	"time"

	"github.com/Carmen-Shannon/umbra/common"
	"github.com/Carmen-Shannon/umbra/engine/renderer"
)

// Profiler tracks frame rate, draw counts and memory statistics.
// It logs a summary at Info every interval.
type Profiler struct {
	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64

	// totals over the current interval
	stats renderer.FrameStats

	now func() time.Time
}

// ProfilerOption is a functional option applied to a Profiler during NewProfiler.
type ProfilerOption func(*Profiler)

// WithInterval sets how often statistics are logged. It defaults to one second.
func WithInterval(d time.Duration) ProfilerOption {
	return func(p *Profiler) {
		p.updateInterval = d
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) ProfilerOption {
	return func(p *Profiler) {
		p.now = now
	}
}

// NewProfiler creates a new Profiler.
//
// Parameters:
//   - opts: profiler options
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(opts ...ProfilerOption) *Profiler {
	p := &Profiler{
		updateInterval: time.Second,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.lastTime = p.now()
	return p
}

// Tick should be called once per rendered frame with that frame's statistics.
// Logs FPS, average draws per frame, heap usage, allocation rate and GC pauses when the
// interval has elapsed.
//
// Parameters:
//   - frame: the statistics returned by Renderer.Render
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick(frame renderer.FrameStats) bool {
	p.frameCount++
	p.stats.ShadowPasses += frame.ShadowPasses
	p.stats.ShadowDraws += frame.ShadowDraws
	p.stats.ColorDraws += frame.ColorDraws
	p.stats.PipelineSwitches += frame.PipelineSwitches

	currentTime := p.now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return false
	}

	runtime.ReadMemStats(&p.memStats)
	allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc

	// PauseNs is a circular buffer of the last 256 GC pauses.
	gcCount := p.memStats.NumGC
	var lastPause, maxPause time.Duration
	if gcCount > 0 {
		lastPause = time.Duration(p.memStats.PauseNs[(gcCount-1)%256])
		start := p.lastGCCount
		if gcCount-start > 256 {
			start = gcCount - 256
		}
		for i := start; i < gcCount; i++ {
			maxPause = max(maxPause, time.Duration(p.memStats.PauseNs[i%256]))
		}
	}

	frames := float64(p.frameCount)
	common.Logger().Info("frame stats",
		slog.Float64("fps", frames/elapsed.Seconds()),
		slog.Float64("colorDraws", float64(p.stats.ColorDraws)/frames),
		slog.Float64("shadowDraws", float64(p.stats.ShadowDraws)/frames),
		slog.Float64("shadowPasses", float64(p.stats.ShadowPasses)/frames),
		slog.Float64("pipelineSwitches", float64(p.stats.PipelineSwitches)/frames),
		slog.Float64("heapMB", float64(p.memStats.Alloc)/1024/1024),
		slog.Float64("allocMBps", float64(allocDelta)/1024/1024/elapsed.Seconds()),
		slog.Uint64("gc", uint64(gcCount)),
		slog.Duration("gcLastPause", lastPause),
		slog.Duration("gcMaxPause", maxPause),
		slog.Float64("sysMB", float64(p.memStats.Sys)/1024/1024),
	)

	p.frameCount = 0
	p.stats = renderer.FrameStats{}
	p.lastTime = currentTime
	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return true
}
