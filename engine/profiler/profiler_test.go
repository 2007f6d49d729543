package profiler

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/Carmen-Shannon/umbra/common"
	"github.com/Carmen-Shannon/umbra/engine/renderer"
)

func TestTickLogsEachInterval(t *testing.T) {
	var buf bytes.Buffer
	common.SetLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	defer common.SetLogger(nil)

	now := time.Unix(0, 0)
	p := NewProfiler(WithClock(func() time.Time { return now }))

	frame := renderer.FrameStats{ShadowPasses: 1, ShadowDraws: 2, ColorDraws: 3, PipelineSwitches: 1}
	for i := 0; i < 9; i++ {
		now = now.Add(100 * time.Millisecond)
		if p.Tick(frame) {
			t.Fatalf("expected no log before the interval elapsed, logged at frame %d", i)
		}
	}
	now = now.Add(100 * time.Millisecond)
	if !p.Tick(frame) {
		t.Fatalf("expected a log once the interval elapsed")
	}

	out := buf.String()
	for _, want := range []string{"frame stats", "fps=10", "colorDraws=3", "shadowPasses=1"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected log to contain %q, got %q", want, out)
		}
	}
	if p.frameCount != 0 || p.stats != (renderer.FrameStats{}) {
		t.Errorf("expected counters reset after logging")
	}
}

func TestWithInterval(t *testing.T) {
	now := time.Unix(0, 0)
	p := NewProfiler(WithInterval(50*time.Millisecond), WithClock(func() time.Time { return now }))
	now = now.Add(50 * time.Millisecond)
	if !p.Tick(renderer.FrameStats{}) {
		t.Errorf("expected a log after a 50ms interval")
	}
}
