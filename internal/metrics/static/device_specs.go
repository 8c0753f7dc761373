package static

import (
	"context"
	"sync"

	"github.com/runtime-insight/agent/pkg/models"
)

// CollectDeviceSpecs gathers the device descriptor, querying hardware and
// system info in parallel. Either failing fails the whole query.
func CollectDeviceSpecs(ctx context.Context) (*models.DeviceSpecs, error) {
	var (
		wg       sync.WaitGroup
		hardware *HardwareInfo
		system   *SystemInfo
		hwErr    error
		sysErr   error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		hardware, hwErr = CollectHardwareInfo(ctx)
	}()
	go func() {
		defer wg.Done()
		system, sysErr = CollectSystemInfo(ctx)
	}()
	wg.Wait()

	if hwErr != nil {
		return nil, hwErr
	}
	if sysErr != nil {
		return nil, sysErr
	}

	return &models.DeviceSpecs{
		CPUCores:         hardware.CPUThreads,
		RAMMB:            hardware.TotalMemory / (1024 * 1024),
		OSVersion:        system.OSVersion(),
		PerformanceClass: nil,
		IsEmulator:       system.IsEmulated(),
	}, nil
}
