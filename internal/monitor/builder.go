package monitor

import (
	"context"
	"time"

	"github.com/runtime-insight/agent/internal/metrics/dynamic"
	"github.com/runtime-insight/agent/pkg/models"
)

// SampleBuilder assembles a MetricSample from the enabled counter sources.
// It never fails: an unavailable source leaves its field absent (memory reports 0).
type SampleBuilder struct {
	sources dynamic.Sources
	tracker *dynamic.CPUTracker
}

// NewSampleBuilder creates a builder with a fresh CPU baseline
func NewSampleBuilder(sources dynamic.Sources) *SampleBuilder {
	b := &SampleBuilder{sources: sources}
	b.Reset()
	return b
}

// Reset discards the CPU baseline so the next sample starts a new measurement session
func (b *SampleBuilder) Reset() {
	b.tracker = dynamic.NewCPUTracker(b.sources.CPUTimes, b.sources.ProcessClock, b.sources.Cores)
}

// Build samples the sources enabled in cfg. Not safe for concurrent use.
func (b *SampleBuilder) Build(ctx context.Context, cfg models.MetricsConfig, now time.Time) *models.MetricSample {
	sample := &models.MetricSample{TimestampMs: now.UnixMilli()}

	// The tracker runs on every tick so its baseline stays current while cpu is disabled
	cpuPercent, ok := b.tracker.Sample(ctx)
	if cfg.CPU {
		if !ok {
			// No rate yet (first tick of a session or degenerate delta)
			cpuPercent = 0
		}
		sample.CPUPercent = &cpuPercent
	}

	if cfg.Memory {
		memoryMB := 0.0
		if b.sources.Memory != nil {
			if mb, ok := b.sources.Memory.ResidentMB(ctx); ok {
				memoryMB = mb
			}
		}
		sample.MemoryMB = &memoryMB
	}

	if cfg.Network && b.sources.Network != nil {
		rx, tx := b.sources.Network.NetworkBytes(ctx)
		sample.NetworkRxBytes = counterPtr(rx)
		sample.NetworkTxBytes = counterPtr(tx)
	}

	if cfg.Disk && b.sources.Disk != nil {
		read, write := b.sources.Disk.DiskBytes(ctx)
		sample.DiskReadBytes = counterPtr(read)
		sample.DiskWriteBytes = counterPtr(write)
	}

	return sample
}

func counterPtr(c dynamic.Counter) *uint64 {
	if !c.Valid {
		return nil
	}
	v := c.Value
	return &v
}
