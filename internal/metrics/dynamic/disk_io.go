package dynamic

import (
	"context"
)

// DiskBytes returns cumulative bytes the process caused to be read from and written to storage
func (r *ProcessReader) DiskBytes(ctx context.Context) (read, write Counter) {
	io, err := r.proc.IOCountersWithContext(ctx)
	if err != nil {
		// Commonly EACCES when /proc/<pid>/io is restricted
		r.debug("disk", err)
		return Counter{}, Counter{}
	}
	if io == nil {
		return Counter{}, Counter{}
	}

	return Some(io.ReadBytes), Some(io.WriteBytes)
}
