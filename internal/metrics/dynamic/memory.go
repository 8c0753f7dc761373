package dynamic

import (
	"context"
)

const bytesPerMB = 1024 * 1024

// ResidentMB returns the resident set size of the process in MiB
func (r *ProcessReader) ResidentMB(ctx context.Context) (float64, bool) {
	info, err := r.proc.MemoryInfoWithContext(ctx)
	if err != nil {
		r.debug("memory", err)
		return 0, false
	}
	if info == nil {
		return 0, false
	}

	return float64(info.RSS) / bytesPerMB, true
}
