package agent

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/runtime-insight/agent/internal/monitor"
	"github.com/runtime-insight/agent/internal/sender"
	"github.com/runtime-insight/agent/pkg/models"
	"golang.org/x/sync/errgroup"
)

// RunOptions selects what Run drives
type RunOptions struct {
	Config     models.MetricsConfig
	ConfigPath string // re-read on SIGHUP; empty disables reload

	// Sink is subscribed at startup when set
	Sink monitor.Sink

	// Control requests are read from Control and answered on Stream
	Control io.Reader
	Stream  *sender.StreamSender
}

// Run starts monitoring and blocks until ctx is done, a shutdown signal
// arrives or the control stream closes. The agent is closed on return.
func (a *Agent) Run(ctx context.Context, opts RunOptions) error {
	defer a.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.loop.Start(opts.Config)
	if opts.Sink != nil {
		a.Listen(opts.Sink)
	}

	a.logger.WithField("state", a.loop.State().String()).Info("Agent starting")

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.handleSignals(ctx, cancel, opts.ConfigPath)
		return nil
	})

	if opts.Control != nil && opts.Stream != nil {
		g.Go(func() error {
			// A closed control stream means the host went away
			defer cancel()
			return a.ServeControl(ctx, opts.Control, opts.Stream)
		})
	}

	err := g.Wait()
	a.logger.Info("Agent stopping")
	return err
}

func (a *Agent) handleSignals(ctx context.Context, cancel context.CancelFunc, configPath string) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigChan)

	for {
		select {
		case <-ctx.Done():
			return

		case sig := <-sigChan:
			switch sig {
			case syscall.SIGHUP:
				if configPath == "" {
					a.logger.Info("Received SIGHUP (no metrics config file to reload)")
					continue
				}
				if err := a.Reload(configPath); err != nil {
					a.logger.WithError(err).Error("Failed to reload metrics config")
				}
			case syscall.SIGINT, syscall.SIGTERM:
				a.logger.WithField("signal", sig.String()).Info("Received shutdown signal")
				cancel()
				return
			}
		}
	}
}
