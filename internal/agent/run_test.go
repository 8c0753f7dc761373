package agent

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/runtime-insight/agent/internal/sender"
	"github.com/runtime-insight/agent/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunDeliversUntilCancelled(t *testing.T) {
	a := newTestAgent(t, models.UnsetFlagsEnabled)
	sink := newChanSink()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- a.Run(ctx, RunOptions{
			Config: models.MetricsConfig{Network: true, IntervalMs: 5},
			Sink:   sink,
		})
	}()

	s := sink.next(t)
	require.NotNil(t, s.NetworkTxBytes)
	assert.Equal(t, uint64(2), *s.NetworkTxBytes)
	assert.Nil(t, s.CPUPercent)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("run did not return")
	}
	assert.Equal(t, "idle", a.Status().State)
}

func TestRunStopsWhenControlCloses(t *testing.T) {
	a := newTestAgent(t, models.UnsetFlagsEnabled)
	out, err := sender.NewStreamSender(io.Discard, sender.FormatCBOR)
	require.NoError(t, err)

	control := strings.NewReader(`{"id":1,"method":"listen"}` + "\n" + `{"id":2,"method":"pauseMonitoring"}` + "\n")

	done := make(chan error, 1)
	go func() {
		done <- a.Run(context.Background(), RunOptions{
			Config:  models.DefaultMetricsConfig(),
			Control: control,
			Stream:  out,
		})
	}()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("run did not return after control EOF")
	}
}
