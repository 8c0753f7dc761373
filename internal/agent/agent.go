package agent

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/runtime-insight/agent/internal/config"
	"github.com/runtime-insight/agent/internal/metrics/dynamic"
	"github.com/runtime-insight/agent/internal/monitor"
	"github.com/runtime-insight/agent/internal/sender"
	"github.com/runtime-insight/agent/pkg/models"
	"github.com/sirupsen/logrus"
)

var (
	// ErrNotImplemented is returned for an unknown command
	ErrNotImplemented = errors.New("method not implemented")
	// ErrDeviceSpecs wraps a failed device descriptor query
	ErrDeviceSpecs = errors.New("failed to collect device specs")
)

// Commands accepted by Handle
const (
	MethodCollect = "collect"
	MethodStart   = "startMonitoring"
	MethodUpdate  = "updateMonitoring"
	MethodPause   = "pauseMonitoring"
	MethodResume  = "resumeMonitoring"
	MethodStop    = "stopMonitoring"
	MethodStatus  = "status"
	MethodListen  = "listen"
	MethodCancel  = "cancel"
)

// ErrorCode maps a command error to its wire code
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrNotImplemented):
		return "NOT_IMPLEMENTED"
	case errors.Is(err, ErrDeviceSpecs):
		return "DEVICE_SPECS_ERROR"
	default:
		return "INTERNAL_ERROR"
	}
}

// Options configures an Agent
type Options struct {
	Sources dynamic.Sources
	Policy  models.FlagPolicy
	Specs   SpecsFunc // nil queries the host
	Logger  *logrus.Logger
}

// Agent is the shell around the monitoring loop: it dispatches lifecycle
// commands, owns the stream subscription and answers device queries.
type Agent struct {
	logger *logrus.Entry
	loop   *monitor.Loop
	specs  *SpecsCollector
	policy models.FlagPolicy

	startTime time.Time
	delivered atomic.Uint64
	errCount  atomic.Uint64

	// Commands from the delivery goroutine run here so they never block it
	async sync.WaitGroup
	ctx   context.Context
	stop  context.CancelFunc

	// Guards closed and every async.Add against Close
	closeMu sync.Mutex
	closed  bool
}

// New creates an idle agent with the default monitoring config
func New(opts Options) *Agent {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	ctx, stop := context.WithCancel(context.Background())
	a := &Agent{
		logger:    logger.WithField("component", "agent"),
		specs:     NewSpecsCollector(opts.Specs),
		policy:    opts.Policy,
		startTime: time.Now(),
		ctx:       ctx,
		stop:      stop,
	}

	builder := monitor.NewSampleBuilder(opts.Sources)
	a.loop = monitor.NewLoop(builder, logger.WithField("component", "monitor"))
	a.loop.OnSendError(a.handleSendError)

	return a
}

// Handle runs one command. Lifecycle commands acknowledge with a nil result.
func (a *Agent) Handle(ctx context.Context, method string, args any) (any, error) {
	a.logger.WithField("method", method).Debug("Handling command")

	switch method {
	case MethodCollect:
		opCtx, cancel := context.WithTimeout(ctx, config.Timeout)
		defer cancel()
		specs, err := a.specs.Collect(opCtx)
		if err != nil {
			a.logger.WithError(err).Error("Device specs query failed")
			return nil, err
		}
		return specs, nil

	case MethodStart:
		a.loop.Start(models.ParseMetricsConfig(args, a.policy))
	case MethodUpdate:
		a.loop.Update(models.ParseMetricsConfig(args, a.policy))
	case MethodPause:
		a.loop.Pause()
	case MethodResume:
		a.loop.Resume()
	case MethodStop:
		a.loop.Stop()
	case MethodStatus:
		return a.Status(), nil

	default:
		return nil, ErrNotImplemented
	}
	return nil, nil
}

// Dispatch runs a command received alongside a delivery without waiting for it
func (a *Agent) Dispatch(req models.ControlRequest) {
	a.closeMu.Lock()
	if a.closed {
		a.closeMu.Unlock()
		return
	}
	a.async.Add(1)
	a.closeMu.Unlock()

	go func() {
		defer a.async.Done()
		if _, err := a.Handle(a.ctx, req.Method, req.Args); err != nil {
			a.logger.WithFields(logrus.Fields{
				"method": req.Method,
				"code":   ErrorCode(err),
			}).WithError(err).Warn("Server command failed")
		}
	}()
}

// Listen subscribes sink to the sample stream with the last known config
func (a *Agent) Listen(sink monitor.Sink) {
	a.loop.Subscribe(&countingSink{sink: sink, delivered: &a.delivered})
	a.logger.Info("Stream listener attached")
}

// Cancel detaches the stream listener
func (a *Agent) Cancel() {
	a.loop.Unsubscribe()
	a.logger.Info("Stream listener detached")
}

// Reload re-reads the metrics file and applies it like updateMonitoring
func (a *Agent) Reload(path string) error {
	cfg, err := config.LoadMetricsConfig(path, a.policy)
	if err != nil {
		return err
	}
	a.loop.Update(cfg)
	a.logger.WithField("path", path).Info("Metrics config reloaded")
	return nil
}

// Status returns the current status of the agent
func (a *Agent) Status() *models.AgentStatus {
	return &models.AgentStatus{
		State:     a.loop.State().String(),
		Config:    a.loop.Config(),
		Version:   config.Version,
		Uptime:    uint64(time.Since(a.startTime).Seconds()),
		Delivered: a.delivered.Load(),
		Errors:    a.errCount.Load(),
	}
}

// Close unsubscribes and stops the loop. Safe to call more than once.
func (a *Agent) Close() error {
	a.closeMu.Lock()
	if a.closed {
		a.closeMu.Unlock()
		return nil
	}
	a.closed = true
	a.stop()
	a.closeMu.Unlock()

	// Commands already dispatched finish before the loop goes away
	a.async.Wait()
	a.loop.Close()
	return nil
}

func (a *Agent) handleSendError(err error) {
	a.errCount.Add(1)

	if errors.Is(err, sender.ErrUnauthorized) {
		a.logger.Error("Authentication failed - token invalid/expired, detaching listener")
		a.loop.Unsubscribe()
	}
}

// countingSink counts successful deliveries
type countingSink struct {
	sink      monitor.Sink
	delivered *atomic.Uint64
}

func (s *countingSink) Send(ctx context.Context, sample *models.MetricSample) error {
	if err := s.sink.Send(ctx, sample); err != nil {
		return err
	}
	s.delivered.Add(1)
	return nil
}
