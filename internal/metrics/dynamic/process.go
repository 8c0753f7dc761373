package dynamic

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/process"
	"github.com/sirupsen/logrus"
)

// ProcessReader reads raw counters for a single process through gopsutil.
// It implements every source interface in this package.
type ProcessReader struct {
	proc   *process.Process
	self   bool      // getrusage only describes the calling process
	start  time.Time // monotonic reference for the fallback wall clock
	logger *logrus.Entry
}

// NewProcessReader creates a reader for the given pid
func NewProcessReader(ctx context.Context, pid int32, logger *logrus.Entry) (*ProcessReader, error) {
	proc, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return nil, fmt.Errorf("failed to open process %d: %w", pid, err)
	}

	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}

	return &ProcessReader{
		proc:   proc,
		self:   pid == int32(os.Getpid()),
		start:  time.Now(),
		logger: logger.WithField("pid", pid),
	}, nil
}

// NewSelfReader creates a reader for the hosting process
func NewSelfReader(ctx context.Context, logger *logrus.Entry) (*ProcessReader, error) {
	return NewProcessReader(ctx, int32(os.Getpid()), logger)
}

// Sources returns the reader wired into every metric slot
func (r *ProcessReader) Sources(ctx context.Context) Sources {
	return Sources{
		CPUTimes:     r,
		ProcessClock: r,
		Memory:       r,
		Network:      r,
		Disk:         r,
		Cores:        logicalCores(ctx),
	}
}

// logicalCores returns the logical processor count, never less than 1
func logicalCores(ctx context.Context) int {
	n, err := cpu.CountsWithContext(ctx, true)
	if err != nil || n < 1 {
		n = runtime.NumCPU()
	}
	if n < 1 {
		return 1
	}
	return n
}

// debug logs an expected per-tick read failure
func (r *ProcessReader) debug(metric string, err error) {
	r.logger.WithFields(logrus.Fields{
		"metric": metric,
		"error":  err,
	}).Debug("Counter unavailable")
}

// seconds converts gopsutil's float seconds to a duration
func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
