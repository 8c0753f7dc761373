package dynamic

import (
	"context"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
)

// CPUTimes returns cumulative system-wide CPU time (all accounting fields, all
// cores) and the user+system time consumed by the process
func (r *ProcessReader) CPUTimes(ctx context.Context) (total, process time.Duration, ok bool) {
	system, err := cpu.TimesWithContext(ctx, false)
	if err != nil || len(system) == 0 {
		r.debug("cpu_total", err)
		return 0, 0, false
	}

	own, err := r.proc.TimesWithContext(ctx)
	if err != nil || own == nil {
		r.debug("cpu_process", err)
		return 0, 0, false
	}

	t := system[0]
	// Guest time is already accounted in user time
	total = seconds(t.User + t.Nice + t.System + t.Idle + t.Iowait + t.Irq + t.Softirq + t.Steal)
	return total, seconds(own.User + own.System), true
}

// CPUTracker turns cumulative CPU-time readings into a usage percentage.
// Every call advances the baseline, so it must be called on each tick even
// when the result is discarded. A tracker is not safe for concurrent use.
type CPUTracker struct {
	times CPUTimeSource
	clock ProcessClockSource
	cores int

	// Each pair is written together
	lastTotal, lastProcess time.Duration
	hasTimes               bool
	lastWall, lastClock    time.Duration
	hasClock               bool
}

// NewCPUTracker creates a tracker with an empty baseline. Either source may be nil.
func NewCPUTracker(times CPUTimeSource, clock ProcessClockSource, cores int) *CPUTracker {
	if cores < 1 {
		cores = 1
	}
	return &CPUTracker{
		times: times,
		clock: clock,
		cores: cores,
	}
}

// Sample returns the process CPU usage since the previous call. ok is false
// when no rate can be computed yet (no baseline, degenerate delta, no source),
// which is not the same as zero usage.
func (t *CPUTracker) Sample(ctx context.Context) (percent float64, ok bool) {
	if t.times != nil {
		if total, process, read := t.times.CPUTimes(ctx); read {
			return t.observeTimes(total, process)
		}
	}

	if t.clock != nil {
		if wall, process, read := t.clock.ProcessClock(ctx); read {
			return t.observeClock(wall, process)
		}
	}

	return 0, false
}

func (t *CPUTracker) observeTimes(total, process time.Duration) (float64, bool) {
	if !t.hasTimes {
		t.lastTotal, t.lastProcess, t.hasTimes = total, process, true
		return 0, false
	}

	totalDelta := total - t.lastTotal
	processDelta := process - t.lastProcess
	t.lastTotal, t.lastProcess = total, process

	return t.percent(processDelta, totalDelta)
}

func (t *CPUTracker) observeClock(wall, process time.Duration) (float64, bool) {
	if !t.hasClock {
		t.lastWall, t.lastClock, t.hasClock = wall, process, true
		return 0, false
	}

	wallDelta := wall - t.lastWall
	processDelta := process - t.lastClock
	t.lastWall, t.lastClock = wall, process

	return t.percent(processDelta, wallDelta)
}

// percent normalizes used/elapsed by core count; a non-positive elapsed yields no value
func (t *CPUTracker) percent(used, elapsed time.Duration) (float64, bool) {
	if elapsed <= 0 {
		return 0, false
	}
	return clampPercent(float64(used) / float64(elapsed) * 100 / float64(t.cores)), true
}

func clampPercent(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 100 {
		return 100
	}
	return value
}
