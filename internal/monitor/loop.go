package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/runtime-insight/agent/pkg/models"
	"github.com/sirupsen/logrus"
)

// Sink receives delivered samples. Send is called from the loop's delivery
// goroutine, one sample at a time; it must not call lifecycle methods of the
// Loop synchronously.
type Sink interface {
	Send(ctx context.Context, sample *models.MetricSample) error
}

// State is the lifecycle state of a Loop
type State int

const (
	StateIdle   State = iota // no subscriber, no timer
	StateActive              // subscriber present, timer running
	StatePaused              // subscriber present, timer stopped
)

// String returns the state name
func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StatePaused:
		return "paused"
	default:
		return "idle"
	}
}

// runner is one generation of the periodic timer
type runner struct {
	stop chan struct{}
}

type delivery struct {
	epoch  uint64
	seq    uint64
	sample *models.MetricSample
}

// Loop drives periodic sampling for a single subscriber.
//
// Sampling happens on a per-activation timer goroutine with fixed-delay
// scheduling; delivery happens on one long-lived goroutine. Lifecycle methods,
// sampling and the delivery hand-off are serialized by mu.
type Loop struct {
	logger  *logrus.Entry
	builder *SampleBuilder
	now     func() time.Time

	mu     sync.Mutex
	config models.MetricsConfig
	sink   Sink
	runner *runner
	epoch  uint64 // bumped when pending samples must be dropped
	seq    uint64 // last sample sequence number
	closed bool

	// Held while a sample is being handed to the sink
	deliverMu  sync.Mutex
	deliveries chan delivery
	onError    func(error)

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewLoop creates an idle loop with the default config. Close must be called
// to release the delivery goroutine.
func NewLoop(builder *SampleBuilder, logger *logrus.Entry) *Loop {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}

	ctx, cancel := context.WithCancel(context.Background())
	l := &Loop{
		logger:     logger,
		builder:    builder,
		now:        time.Now,
		config:     models.DefaultMetricsConfig(),
		deliveries: make(chan delivery),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}

	go l.deliver()
	return l
}

// OnSendError registers a callback for sink failures. It runs on the delivery
// goroutine after the sink returned and may call lifecycle methods.
func (l *Loop) OnSendError(fn func(error)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onError = fn
}

// Start sets the config and starts sampling if a subscriber is registered
func (l *Loop) Start(cfg models.MetricsConfig) {
	l.Update(cfg)
}

// Update replaces the config. With a subscriber the timer is restarted
// immediately at the new interval, which also resets the schedule phase.
func (l *Loop) Update(cfg models.MetricsConfig) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}

	l.config = cfg
	if l.sink == nil {
		l.logger.WithField("interval_ms", cfg.IntervalMs).Debug("Config recorded, waiting for subscriber")
		return
	}
	l.restartLocked()
}

// Subscribe registers sink, replacing any previous one, and starts sampling
// with the current config
func (l *Loop) Subscribe(sink Sink) {
	l.mu.Lock()
	if l.closed || sink == nil {
		l.mu.Unlock()
		return
	}

	replaced := l.sink != nil
	l.sink = sink
	// Samples queued for the previous subscriber are dropped
	l.epoch++
	l.restartLocked()
	l.mu.Unlock()

	if replaced {
		l.logger.Debug("Subscriber replaced")
		l.drain()
	}
}

// Unsubscribe drops the sink and stops sampling. No sample is delivered after it returns.
func (l *Loop) Unsubscribe() {
	l.mu.Lock()
	l.sink = nil
	l.stopLocked()
	l.mu.Unlock()

	l.drain()
}

// Pause stops sampling but keeps the sink and config. No sample is delivered after it returns.
func (l *Loop) Pause() {
	l.mu.Lock()
	l.stopLocked()
	l.mu.Unlock()

	l.drain()
}

// Stop is the public "stop monitoring" verb; it keeps the subscriber like Pause
func (l *Loop) Stop() {
	l.Pause()
}

// Resume restarts sampling with the last config if a subscriber is registered
func (l *Loop) Resume() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed || l.sink == nil {
		return
	}
	l.restartLocked()
}

// Close unsubscribes and stops the delivery goroutine. The loop is unusable afterwards.
func (l *Loop) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	l.sink = nil
	l.stopLocked()
	l.mu.Unlock()

	l.cancel()
	<-l.done
}

// State returns the current lifecycle state
func (l *Loop) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch {
	case l.sink == nil:
		return StateIdle
	case l.runner != nil:
		return StateActive
	default:
		return StatePaused
	}
}

// Config returns the active config
func (l *Loop) Config() models.MetricsConfig {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.config
}

// restartLocked cancels the current timer and starts a new one whose first
// tick fires immediately. A timer started from a stopped state begins a new
// CPU measurement session.
func (l *Loop) restartLocked() {
	if l.runner != nil {
		close(l.runner.stop)
	} else {
		l.builder.Reset()
	}

	r := &runner{stop: make(chan struct{})}
	l.runner = r
	go l.run(r)

	l.logger.WithFields(logrus.Fields{
		"interval_ms": l.config.IntervalMs,
		"cpu":         l.config.CPU,
		"memory":      l.config.Memory,
		"network":     l.config.Network,
		"disk":        l.config.Disk,
	}).Info("Monitoring active")
}

func (l *Loop) stopLocked() {
	l.epoch++
	if l.runner == nil {
		return
	}
	close(l.runner.stop)
	l.runner = nil
	l.logger.Info("Monitoring stopped")
}

// drain waits for an in-flight delivery to finish; later ones see the new epoch
func (l *Loop) drain() {
	l.deliverMu.Lock()
	defer l.deliverMu.Unlock()
}

// run fires ticks until r is cancelled. The next tick is scheduled only after
// the previous sample was handed to the delivery goroutine.
func (l *Loop) run(r *runner) {
	for {
		d, interval, ok := l.tick(r)
		if !ok {
			return
		}

		select {
		case l.deliveries <- d:
		case <-r.stop:
			return
		case <-l.ctx.Done():
			return
		}

		timer := time.NewTimer(interval)
		select {
		case <-timer.C:
		case <-r.stop:
			timer.Stop()
			return
		case <-l.ctx.Done():
			timer.Stop()
			return
		}
	}
}

// tick builds one sample if r is still the current timer
func (l *Loop) tick(r *runner) (delivery, time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.runner != r {
		return delivery{}, 0, false
	}

	cfg := l.config
	sample := l.builder.Build(l.ctx, cfg, l.now())
	l.seq++

	return delivery{epoch: l.epoch, seq: l.seq, sample: sample}, cfg.Interval(), true
}

func (l *Loop) deliver() {
	defer close(l.done)

	var last uint64
	for {
		select {
		case <-l.ctx.Done():
			return
		case d := <-l.deliveries:
			// A replaced timer may hand over its last sample after the new timer's first
			if d.seq <= last {
				continue
			}
			last = d.seq

			if err := l.deliverOne(d); err != nil {
				l.logger.WithError(err).Warn("Failed to deliver sample")

				l.mu.Lock()
				onError := l.onError
				l.mu.Unlock()
				if onError != nil {
					onError(err)
				}
			}
		}
	}
}

func (l *Loop) deliverOne(d delivery) error {
	l.deliverMu.Lock()
	defer l.deliverMu.Unlock()

	l.mu.Lock()
	sink := l.sink
	current := d.epoch == l.epoch
	l.mu.Unlock()

	if sink == nil || !current {
		return nil
	}
	return sink.Send(l.ctx, d.sample)
}
