package static

import (
	"context"
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
)

// HardwareInfo contains CPU and memory hardware specifications
type HardwareInfo struct {
	CPUThreads  int    // logical processors
	TotalMemory uint64 // bytes
}

// CollectHardwareInfo gathers the logical CPU count and total RAM
func CollectHardwareInfo(ctx context.Context) (*HardwareInfo, error) {
	// Logical count matches what the runtime schedules on
	logicalCores, err := cpu.CountsWithContext(ctx, true)
	if err != nil || logicalCores < 1 {
		logicalCores = runtime.NumCPU()
	}

	memInfo, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read memory info: %w", err)
	}

	return &HardwareInfo{
		CPUThreads:  logicalCores,
		TotalMemory: memInfo.Total,
	}, nil
}
