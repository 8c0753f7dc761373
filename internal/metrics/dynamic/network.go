package dynamic

import (
	"context"
)

// NetworkBytes returns cumulative received/transmitted bytes visible to the process.
// On Linux these are the totals of the process's network namespace.
func (r *ProcessReader) NetworkBytes(ctx context.Context) (rx, tx Counter) {
	counters, err := r.proc.NetIOCountersWithContext(ctx, false) // aggregated "all" entry
	if err != nil {
		r.debug("network", err)
		return Counter{}, Counter{}
	}
	if len(counters) == 0 {
		return Counter{}, Counter{}
	}

	var recv, sent uint64
	for _, counter := range counters {
		recv += counter.BytesRecv
		sent += counter.BytesSent
	}

	return Some(recv), Some(sent)
}
