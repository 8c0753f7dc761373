//go:build unix

package dynamic

import (
	"context"
	"time"

	"golang.org/x/sys/unix"
)

// ProcessClock returns monotonic time since the reader was created and the
// user+system CPU time consumed by the calling process, via getrusage(2).
func (r *ProcessReader) ProcessClock(ctx context.Context) (wall, process time.Duration, ok bool) {
	if !r.self {
		return 0, 0, false
	}

	var ru unix.Rusage
	if err := unix.Getrusage(unix.RUSAGE_SELF, &ru); err != nil {
		r.debug("process_clock", err)
		return 0, 0, false
	}

	process = time.Duration(ru.Utime.Nano() + ru.Stime.Nano())
	return time.Since(r.start), process, true
}
