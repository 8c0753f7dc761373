package models

import (
	"encoding/json"
	"math"
	"time"
)

// Default values applied to any missing or malformed MetricsConfig field
const (
	DefaultIntervalMs int64 = 1000

	// MaxIntervalMs is the longest interval a time.Duration can hold
	MaxIntervalMs = math.MaxInt64 / int64(time.Millisecond)
)

// FlagPolicy decides what an unspecified boolean flag means in a partial config map
type FlagPolicy int

const (
	// UnsetFlagsEnabled treats an unspecified flag as true (the wrapper's historical behaviour)
	UnsetFlagsEnabled FlagPolicy = iota
	// UnsetFlagsDisabled treats an unspecified flag as false
	UnsetFlagsDisabled
)

// String returns the policy name used in env/config values
func (p FlagPolicy) String() string {
	if p == UnsetFlagsDisabled {
		return "disabled"
	}
	return "enabled"
}

// MetricsConfig selects which metrics are sampled and how often
type MetricsConfig struct {
	CPU        bool  `json:"cpu" yaml:"cpu"`
	Memory     bool  `json:"memory" yaml:"memory"`
	Network    bool  `json:"network" yaml:"network"`
	Disk       bool  `json:"disk" yaml:"disk"`
	IntervalMs int64 `json:"intervalMs" yaml:"intervalMs"` // always > 0
}

// DefaultMetricsConfig returns the config with every metric enabled at a 1s interval
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		CPU:        true,
		Memory:     true,
		Network:    true,
		Disk:       true,
		IntervalMs: DefaultIntervalMs,
	}
}

// Interval returns the sampling interval as a duration
func (c MetricsConfig) Interval() time.Duration {
	switch {
	case c.IntervalMs <= 0:
		return time.Duration(DefaultIntervalMs) * time.Millisecond
	case c.IntervalMs > MaxIntervalMs:
		return time.Duration(MaxIntervalMs) * time.Millisecond
	}
	return time.Duration(c.IntervalMs) * time.Millisecond
}

// ParseMetricsConfig builds a MetricsConfig from an optional partial map.
// Every key is resolved independently: a missing or wrongly typed value falls
// back to its default and never invalidates the rest of the map.
func ParseMetricsConfig(args any, policy FlagPolicy) MetricsConfig {
	m := toStringMap(args)

	unset := policy != UnsetFlagsDisabled
	if m == nil {
		// No map at all means "use the defaults", whatever the policy
		return DefaultMetricsConfig()
	}

	return MetricsConfig{
		CPU:        boolOr(m, "cpu", unset),
		Memory:     boolOr(m, "memory", unset),
		Network:    boolOr(m, "network", unset),
		Disk:       boolOr(m, "disk", unset),
		IntervalMs: intervalOr(m, "intervalMs", DefaultIntervalMs),
	}
}

func toStringMap(args any) map[string]any {
	switch v := args.(type) {
	case map[string]any:
		return v
	case map[any]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			if key, ok := k.(string); ok {
				out[key] = val
			}
		}
		return out
	default:
		return nil
	}
}

func boolOr(m map[string]any, key string, def bool) bool {
	if b, ok := m[key].(bool); ok {
		return b
	}
	return def
}

func intervalOr(m map[string]any, key string, def int64) int64 {
	var n int64
	switch v := m[key].(type) {
	case int:
		n = int64(v)
	case int32:
		n = int64(v)
	case int64:
		n = v
	case uint:
		n = clampUint(uint64(v))
	case uint32:
		n = int64(v)
	case uint64:
		n = clampUint(v)
	case float32:
		n = truncFloat(float64(v))
	case float64:
		n = truncFloat(v)
	case json.Number:
		if i, err := v.Int64(); err == nil {
			n = i
		} else if f, err := v.Float64(); err == nil {
			n = truncFloat(f)
		}
	}
	if n <= 0 {
		return def
	}
	return min(n, MaxIntervalMs)
}

func clampUint(v uint64) int64 {
	if v > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(v)
}

func truncFloat(f float64) int64 {
	if math.IsNaN(f) || math.IsInf(f, 0) || f >= math.MaxInt64 {
		return 0
	}
	return int64(f)
}

// MetricSample is one tick of runtime metrics for the hosting process.
// Optional fields are nil when the metric is disabled or its source had no value.
type MetricSample struct {
	TimestampMs    int64    `json:"timestampMs"`              // wall clock, ms since epoch
	CPUPercent     *float64 `json:"cpuPercent,omitempty"`     // core-normalized, [0, 100]
	MemoryMB       *float64 `json:"memoryMb,omitempty"`       // resident set size in MiB
	NetworkRxBytes *uint64  `json:"networkRxBytes,omitempty"` // cumulative
	NetworkTxBytes *uint64  `json:"networkTxBytes,omitempty"` // cumulative
	DiskReadBytes  *uint64  `json:"diskReadBytes,omitempty"`  // cumulative
	DiskWriteBytes *uint64  `json:"diskWriteBytes,omitempty"` // cumulative
}

// Time returns the sample timestamp as a time.Time
func (s *MetricSample) Time() time.Time {
	return time.UnixMilli(s.TimestampMs)
}

// DeviceSpecs is the point-in-time device descriptor
type DeviceSpecs struct {
	CPUCores         int    `json:"cpuCores"`         // logical processors
	RAMMB            uint64 `json:"ramMb"`            // total RAM in MiB
	OSVersion        string `json:"osVersion"`        // platform version, e.g. 22.04
	PerformanceClass *int   `json:"performanceClass"` // null when the platform has no notion of it
	IsEmulator       bool   `json:"isEmulator"`       // running as a virtualization guest
}

// ControlRequest is a single command received from the shell transport
type ControlRequest struct {
	ID     any            `json:"id,omitempty"`
	Method string         `json:"method"`
	Args   map[string]any `json:"args,omitempty"`
}

// ControlError describes a failed command
type ControlError struct {
	Code    string `json:"code"`              // NOT_IMPLEMENTED, DEVICE_SPECS_ERROR, ...
	Message string `json:"message,omitempty"` // human readable detail
}

// Frame is one unit written to the shell transport: a command response or a sample event
type Frame struct {
	ID     any           `json:"id,omitempty"`
	Result any           `json:"result,omitempty"`
	Error  *ControlError `json:"error,omitempty"`
	Event  string        `json:"event,omitempty"` // "sample"
	Data   *MetricSample `json:"data,omitempty"`
}

// EventSample is the Frame.Event value carrying a MetricSample
const EventSample = "sample"

// ServerResponse is the collector's reply to an HTTP sample upload
type ServerResponse struct {
	Status   string           `json:"status"` // "success", "error"
	Message  string           `json:"message,omitempty"`
	Commands []ControlRequest `json:"commands,omitempty"` // lifecycle commands for the agent
}

// AgentStatus is the result of the status command
type AgentStatus struct {
	State     string        `json:"state"` // idle, active, paused
	Config    MetricsConfig `json:"config"`
	Version   string        `json:"version"`
	Uptime    uint64        `json:"uptime"` // seconds
	Delivered uint64        `json:"delivered"`
	Errors    uint64        `json:"errors"`
}
