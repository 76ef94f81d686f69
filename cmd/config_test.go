package cmd

import (
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigConstants(t *testing.T) {
	assert.Equal(t, "jolt", configBaseName)
	assert.Equal(t, "jolt.yaml", configFileName)
	assert.Equal(t, ".", configFolderPath)
	assert.Equal(t, "output", outputFlagName)
	assert.Equal(t, "workers", workersFlagName)
	assert.Equal(t, "batch-size", batchSizeFlagName)
	assert.Equal(t, "run.workers", workersConfigKey)
	assert.Equal(t, "run.batch_size", batchSizeConfigKey)
	assert.Equal(t, "discover.class_prefix", classPrefixKey)
	assert.Equal(t, "paths.include", includeConfigKey)
	assert.Equal(t, "paths.exclude", excludeConfigKey)
	assert.Equal(t, ".jolt-reports", defaultReportsDir)
	assert.Equal(t, 1, defaultWorkers)
	assert.Equal(t, "JOLT", envPrefix)
}

func TestConfigVersionConstants(t *testing.T) {
	assert.Equal(t, "version", configVersionKey)
	assert.Equal(t, 1, currentConfigVersion)
}

func TestConfigDefaults(t *testing.T) {
	assert.Equal(t, []string{"**/*.test.js", "**/test_*.js"}, defaultIncludePatterns)
	assert.Equal(t, []string{"**/node_modules/**"}, defaultExcludePatterns)

	assert.Equal(t, 1, viper.GetInt(workersConfigKey))
	assert.Equal(t, "Test", viper.GetString(classPrefixKey))
	assert.Equal(t, "test", viper.GetString(methodPrefixKey))
	assert.Equal(t, defaultMethodTimeout, viper.GetDuration(methodTimeoutKey))
	assert.Equal(t, defaultBatchTimeout, viper.GetDuration(batchTimeoutKey))
	assert.False(t, viper.GetBool(strictConfigKey))
}

func TestEnvOverridesDefaults(t *testing.T) {
	t.Setenv("JOLT_RUN_WORKERS", "4")

	assert.Equal(t, 4, viper.GetInt(workersConfigKey))
}

func TestParseSlogLevel(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  slog.Level
	}{
		{"empty", "", slog.LevelInfo},
		{"debug", "debug", slog.LevelDebug},
		{"info", "info", slog.LevelInfo},
		{"warn", "warn", slog.LevelWarn},
		{"warning", "warning", slog.LevelWarn},
		{"error", "error", slog.LevelError},
		{"mixed case", "DeBuG", slog.LevelDebug},
		{"padded", "  info  ", slog.LevelInfo},
		{"numeric", "-4", slog.LevelDebug},
		{"unknown", "loud", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseSlogLevel(tt.value, slog.LevelInfo)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConfigureLogger(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "jolt-test.log")

	configureLogger(logPath, true)

	require.NotNil(t, globalLogger)

	// The log file is created lazily on the first write.
	slog.Debug("logger smoke test")
	require.FileExists(t, logPath)
}
