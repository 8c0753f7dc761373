package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/runtime-insight/agent/pkg/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "env")
	content := "# comment\nINSIGHT_TEST_A=from-file\n\nINSIGHT_TEST_B = spaced \nbroken-line\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	t.Setenv("INSIGHT_TEST_A", "")
	t.Setenv("INSIGHT_TEST_B", "from-env")

	require.NoError(t, LoadEnvFile(path))
	assert.Equal(t, "from-file", os.Getenv("INSIGHT_TEST_A"))
	assert.Equal(t, "from-env", os.Getenv("INSIGHT_TEST_B"), "existing env wins")

	assert.NoError(t, LoadEnvFile(filepath.Join(t.TempDir(), "missing")))
}

func TestGetFlagPolicy(t *testing.T) {
	t.Setenv("INSIGHT_UNSET_FLAGS", "")
	assert.Equal(t, models.UnsetFlagsEnabled, GetFlagPolicy())

	t.Setenv("INSIGHT_UNSET_FLAGS", "Disabled")
	assert.Equal(t, models.UnsetFlagsDisabled, GetFlagPolicy())
}

func TestEnvGetters(t *testing.T) {
	t.Setenv("INSIGHT_CONFIG", "")
	assert.Equal(t, MetricsFilePath, GetMetricsFilePath())

	t.Setenv("INSIGHT_CONFIG", "/tmp/m.yaml")
	assert.Equal(t, "/tmp/m.yaml", GetMetricsFilePath())

	t.Setenv("INSIGHT_DEBUG", "1")
	assert.True(t, IsDebugMode())
	t.Setenv("INSIGHT_DEBUG", "yes")
	assert.False(t, IsDebugMode())
}

func TestLoadMetricsConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "metrics.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cpu: true\nmemory: true\nintervalMs: 250\ndisk: maybe\n"), 0600))

	cfg, err := LoadMetricsConfig(path, models.UnsetFlagsDisabled)
	require.NoError(t, err)
	assert.Equal(t, models.MetricsConfig{CPU: true, Memory: true, IntervalMs: 250}, cfg)

	cfg, err = LoadMetricsConfig(path, models.UnsetFlagsEnabled)
	require.NoError(t, err)
	assert.Equal(t, models.MetricsConfig{CPU: true, Memory: true, Network: true, Disk: true, IntervalMs: 250}, cfg)

	// A fresh host without a metrics file samples everything
	for _, policy := range []models.FlagPolicy{models.UnsetFlagsEnabled, models.UnsetFlagsDisabled} {
		cfg, err = LoadMetricsConfig(filepath.Join(dir, "missing.yaml"), policy)
		require.NoError(t, err)
		assert.Equal(t, models.DefaultMetricsConfig(), cfg, policy.String())
	}

	args, err := LoadMetricsFile(filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)
	assert.Nil(t, args)

	require.NoError(t, os.WriteFile(path, []byte("cpu: [unclosed"), 0600))
	cfg, err = LoadMetricsConfig(path, models.UnsetFlagsEnabled)
	assert.Error(t, err)
	assert.Equal(t, models.DefaultMetricsConfig(), cfg)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, true, true)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())

	logger.WithField("component", "test").Debug("hello")
	assert.Contains(t, buf.String(), `"component":"test"`)
}

func TestBuildInfoIsOverridable(t *testing.T) {
	saved := Version
	t.Cleanup(func() { Version = saved })

	assert.NotEmpty(t, Version)
	Version = "9.9.9-test"
	assert.Equal(t, "9.9.9-test", Version)
}
