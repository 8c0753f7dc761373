//go:build !unix

package dynamic

import (
	"context"
	"time"
)

// ProcessClock is not available on this platform
func (r *ProcessReader) ProcessClock(ctx context.Context) (wall, process time.Duration, ok bool) {
	return 0, 0, false
}
