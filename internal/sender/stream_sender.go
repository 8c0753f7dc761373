package sender

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fxamacker/cbor/v2"
	"github.com/runtime-insight/agent/pkg/models"
)

// Format is the framing used on a stream
type Format string

const (
	FormatJSON Format = "json" // one JSON object per line
	FormatCBOR Format = "cbor" // CBOR sequence (RFC 8742)
)

// ParseFormat parses a format name, defaulting to JSON for an empty string
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatCBOR:
		return FormatCBOR, nil
	default:
		return "", fmt.Errorf("unknown stream format %q", s)
	}
}

type frameEncoder interface {
	Encode(v any) error
}

// StreamSender writes frames to a single writer. Samples and command
// responses share the writer, so every write is serialized.
type StreamSender struct {
	mu  sync.Mutex
	enc frameEncoder
}

// NewStreamSender creates a stream sender writing format-encoded frames to w
func NewStreamSender(w io.Writer, format Format) (*StreamSender, error) {
	var enc frameEncoder
	switch format {
	case FormatJSON, "":
		enc = json.NewEncoder(w)
	case FormatCBOR:
		mode, err := cbor.CoreDetEncOptions().EncMode()
		if err != nil {
			return nil, fmt.Errorf("failed to create cbor encoder: %w", err)
		}
		enc = mode.NewEncoder(w)
	default:
		return nil, fmt.Errorf("unknown stream format %q", format)
	}

	return &StreamSender{enc: enc}, nil
}

// Send writes a sample event frame
func (s *StreamSender) Send(ctx context.Context, sample *models.MetricSample) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.WriteFrame(&models.Frame{Event: models.EventSample, Data: sample})
}

// WriteFrame writes any frame, e.g. a command response
func (s *StreamSender) WriteFrame(frame *models.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.enc.Encode(frame); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	return nil
}

// Close flushes nothing; the underlying writer is owned by the caller
func (s *StreamSender) Close() error {
	return nil
}
