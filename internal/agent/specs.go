package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/runtime-insight/agent/internal/config"
	"github.com/runtime-insight/agent/internal/metrics/static"
	"github.com/runtime-insight/agent/pkg/models"
)

// SpecsFunc queries the device descriptor
type SpecsFunc func(ctx context.Context) (*models.DeviceSpecs, error)

// SpecsCollector caches the device descriptor, which rarely changes
type SpecsCollector struct {
	query       SpecsFunc
	ttl         time.Duration
	lastRefresh time.Time
	cache       *models.DeviceSpecs
	mu          sync.RWMutex
}

// NewSpecsCollector creates a collector backed by query; nil uses the host query
func NewSpecsCollector(query SpecsFunc) *SpecsCollector {
	if query == nil {
		query = static.CollectDeviceSpecs
	}
	return &SpecsCollector{
		query: query,
		ttl:   config.StaticRefreshInterval,
	}
}

// Collect returns the cached descriptor or queries it again once the cache expired
func (s *SpecsCollector) Collect(ctx context.Context) (*models.DeviceSpecs, error) {
	if !s.ShouldRefresh() {
		return s.GetCached(), nil
	}

	specs, err := s.query(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceSpecs, err)
	}

	// Update cache
	s.mu.Lock()
	s.cache = specs
	s.lastRefresh = time.Now()
	s.mu.Unlock()

	return specs, nil
}

// ShouldRefresh checks if the descriptor needs refreshing
func (s *SpecsCollector) ShouldRefresh() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Force refresh if never collected
	if s.cache == nil {
		return true
	}

	return time.Since(s.lastRefresh) >= s.ttl
}

// GetCached returns the cached descriptor
func (s *SpecsCollector) GetCached() *models.DeviceSpecs {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cache
}
