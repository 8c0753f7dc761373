package static

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v4/host"
)

// SystemInfo contains OS and virtualization information
type SystemInfo struct {
	Platform        string
	PlatformVersion string
	KernelVersion   string
	Virtualization  string // kvm, docker, vmware, etc.
	VirtRole        string // "guest" or "host"
}

// CollectSystemInfo gathers OS, kernel, and virtualization information
func CollectSystemInfo(ctx context.Context) (*SystemInfo, error) {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read host info: %w", err)
	}

	return &SystemInfo{
		Platform:        info.Platform,
		PlatformVersion: info.PlatformVersion,
		KernelVersion:   info.KernelVersion,
		Virtualization:  info.VirtualizationSystem,
		VirtRole:        info.VirtualizationRole,
	}, nil
}

// OSVersion returns the platform version, falling back to the kernel version
func (s *SystemInfo) OSVersion() string {
	if s.PlatformVersion != "" {
		return s.PlatformVersion
	}
	return s.KernelVersion
}

// IsEmulated reports whether the OS runs as a virtualization guest
func (s *SystemInfo) IsEmulated() bool {
	return s.VirtRole == "guest"
}
