package sender

import (
	"context"

	"github.com/runtime-insight/agent/pkg/models"
)

// Sender delivers metric samples to a consumer
type Sender interface {
	// Send delivers a single sample
	Send(ctx context.Context, sample *models.MetricSample) error

	// Close closes the sender and releases resources
	Close() error
}
