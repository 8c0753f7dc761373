package sender

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/runtime-insight/agent/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPSenderPostsCompressedSample(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "gzip", r.Header.Get("Content-Encoding"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		zr, err := gzip.NewReader(r.Body)
		if !assert.NoError(t, err) {
			return
		}
		body, err := io.ReadAll(zr)
		assert.NoError(t, err)
		assert.NoError(t, json.Unmarshal(body, &got))

		_, _ = w.Write([]byte(`{"status":"success","commands":[{"method":"pauseMonitoring"}]}`))
	}))
	defer server.Close()

	var commands []models.ControlRequest
	s := NewHTTPSender(server.URL, "secret", func(cmd models.ControlRequest) {
		commands = append(commands, cmd)
	})
	defer s.Close()

	memory := 12.5
	err := s.Send(context.Background(), &models.MetricSample{TimestampMs: 42, MemoryMB: &memory})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"timestampMs": float64(42), "memoryMb": 12.5}, got)
	require.Len(t, commands, 1)
	assert.Equal(t, "pauseMonitoring", commands[0].Method)
}

func TestHTTPSenderStatusErrors(t *testing.T) {
	status := http.StatusUnauthorized
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte("nope"))
	}))
	defer server.Close()

	s := NewHTTPSender(server.URL, "", nil)
	sample := &models.MetricSample{TimestampMs: 1}

	err := s.Send(context.Background(), sample)
	assert.ErrorIs(t, err, ErrUnauthorized)

	status = http.StatusTeapot
	err = s.Send(context.Background(), sample)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnauthorized)
	assert.Contains(t, err.Error(), "418")
}

func TestHTTPSenderIgnoresUnparsableResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	called := false
	s := NewHTTPSender(server.URL, "", func(models.ControlRequest) { called = true })
	require.NoError(t, s.Send(context.Background(), &models.MetricSample{TimestampMs: 1}))
	assert.False(t, called)
	assert.NoError(t, s.Send(context.Background(), nil))
}
