package dynamic

import (
	"context"
	"time"
)

// Counter is a cumulative counter reading that may be absent
type Counter struct {
	Value uint64
	Valid bool // false when the platform could not produce the value
}

// Some returns a valid counter holding v
func Some(v uint64) Counter {
	return Counter{Value: v, Valid: true}
}

// CPUTimeSource reads cumulative system-wide and process CPU time in the same unit
type CPUTimeSource interface {
	CPUTimes(ctx context.Context) (total, process time.Duration, ok bool)
}

// ProcessClockSource is the coarse fallback: monotonic wall time and process CPU time
type ProcessClockSource interface {
	ProcessClock(ctx context.Context) (wall, process time.Duration, ok bool)
}

// MemorySource reads the resident memory footprint of the process
type MemorySource interface {
	ResidentMB(ctx context.Context) (float64, bool)
}

// NetworkSource reads cumulative received/transmitted bytes
type NetworkSource interface {
	NetworkBytes(ctx context.Context) (rx, tx Counter)
}

// DiskSource reads cumulative bytes read from and written to storage
type DiskSource interface {
	DiskBytes(ctx context.Context) (read, write Counter)
}

// Sources bundles one source per metric kind. A nil source is capability-absent.
type Sources struct {
	CPUTimes     CPUTimeSource
	ProcessClock ProcessClockSource
	Memory       MemorySource
	Network      NetworkSource
	Disk         DiskSource
	Cores        int // logical cores used to normalize CPU usage
}
