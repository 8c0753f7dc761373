package agent

import (
	"bufio"
	"context"
	"encoding/json"
	"io"

	"github.com/runtime-insight/agent/internal/sender"
	"github.com/runtime-insight/agent/pkg/models"
	"github.com/sirupsen/logrus"
)

const maxRequestSize = 1 << 20

// ServeControl reads newline-delimited JSON requests from r and answers each
// on out. The listen command subscribes out itself, so responses and sample
// events share one stream. It returns when r is exhausted or ctx is done.
func (a *Agent) ServeControl(ctx context.Context, r io.Reader, out *sender.StreamSender) error {
	lines := make(chan []byte)
	readErr := make(chan error, 1)

	// Reads block without a deadline, so they run apart from the ctx select
	go func() {
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 4096), maxRequestSize)
		for scanner.Scan() {
			line := append([]byte(nil), scanner.Bytes()...)
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			if err != nil {
				a.logger.WithError(err).Error("Control stream failed")
			} else {
				a.logger.Info("Control stream closed")
			}
			return err
		case line := <-lines:
			if len(line) == 0 {
				continue
			}
			if err := out.WriteFrame(a.serveRequest(ctx, line, out)); err != nil {
				return err
			}
		}
	}
}

func (a *Agent) serveRequest(ctx context.Context, line []byte, out *sender.StreamSender) *models.Frame {
	var req models.ControlRequest
	if err := json.Unmarshal(line, &req); err != nil {
		a.logger.WithError(err).Warn("Invalid control request")
		return &models.Frame{Error: &models.ControlError{Code: "BAD_REQUEST", Message: err.Error()}}
	}

	frame := &models.Frame{ID: req.ID}
	switch req.Method {
	case MethodListen:
		a.Listen(out)
	case MethodCancel:
		a.Cancel()
	default:
		result, err := a.Handle(ctx, req.Method, req.Args)
		if err != nil {
			frame.Error = &models.ControlError{Code: ErrorCode(err), Message: err.Error()}
			a.logger.WithFields(logrus.Fields{
				"method": req.Method,
				"code":   frame.Error.Code,
			}).Debug("Command failed")
			return frame
		}
		frame.Result = result
	}
	return frame
}
