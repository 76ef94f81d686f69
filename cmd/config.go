package cmd

import (
	"errors"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"
	"jolt.dev/pkg/jolt/internal/domain"
)

const (
	configVersionKey     = "version"
	currentConfigVersion = 1

	configBaseName   = "jolt"
	configFileName   = configBaseName + ".yaml"
	configFolderPath = "."

	outputFlagName        = "output"
	includeFlagName       = "include"
	excludeFlagName       = "exclude"
	verboseFlagName       = "verbose"
	workersFlagName       = "workers"
	batchSizeFlagName     = "batch-size"
	filterFlagName        = "filter"
	suiteFlagName         = "suite"
	quietFlagName         = "quiet"
	watchFlagName         = "watch"
	methodTimeoutFlagName = "method-timeout"
	batchTimeoutFlagName  = "batch-timeout"
	maxRespawnsFlagName   = "max-respawns"
	strictFlagName        = "strict-discovery"
	classPrefixFlagName   = "class-prefix"
	methodPrefixFlagName  = "method-prefix"

	workersConfigKey    = "run.workers"
	batchSizeConfigKey  = "run.batch_size"
	quietConfigKey      = "run.quiet"
	methodTimeoutKey    = "run.method_timeout"
	batchTimeoutKey     = "run.batch_timeout"
	maxRespawnsKey      = "run.max_respawns"
	strictConfigKey     = "run.strict_discovery"
	classPrefixKey      = "discover.class_prefix"
	methodPrefixKey     = "discover.method_prefix"
	discoverParallelKey = "discover.parallelism"
	includeConfigKey    = "paths.include"
	excludeConfigKey    = "paths.exclude"

	defaultWorkers       = 1
	defaultMethodTimeout = 30 * time.Second
	defaultBatchTimeout  = 5 * time.Minute

	defaultReportsDir = ".jolt-reports"

	envPrefix = "JOLT"

	logFilenameKey   = "log.filename"
	logLevelKey      = "log.level"
	logVerboseKey    = "log.verbose"
	logMaxSizeKey    = "log.max_size"
	logMaxBackupsKey = "log.max_backups"
	logMaxAgeKey     = "log.max_age"
	logCompressKey   = "log.compress"

	defaultLogFilename   = ".jolt.log"
	defaultLogLevel      = int(slog.LevelInfo)
	defaultLogVerbose    = false
	defaultLogMaxSize    = 10
	defaultLogMaxBackups = 3
	defaultLogMaxAge     = 28
	defaultLogCompress   = true
)

// defaultIncludePatterns match both test file naming conventions discovery
// supports out of the box.
var defaultIncludePatterns = []string{"**/*.test.js", "**/test_*.js"}

var defaultExcludePatterns = []string{"**/node_modules/**"}

var globalLogger *slog.Logger

func init() {
	viper.SetConfigName(configBaseName)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configFolderPath)
	viper.SetConfigFile(filepath.Join(configFolderPath, configFileName))
	viper.AutomaticEnv()
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	viper.SetDefault(configVersionKey, currentConfigVersion)
	viper.SetDefault(outputFlagName, defaultReportsDir)
	viper.SetDefault(workersConfigKey, defaultWorkers)
	viper.SetDefault(batchSizeConfigKey, domain.DefaultBatchSize)
	viper.SetDefault(quietConfigKey, false)
	viper.SetDefault(methodTimeoutKey, defaultMethodTimeout.String())
	viper.SetDefault(batchTimeoutKey, defaultBatchTimeout.String())
	viper.SetDefault(maxRespawnsKey, domain.DefaultMaxRespawns)
	viper.SetDefault(strictConfigKey, false)
	viper.SetDefault(classPrefixKey, domain.DefaultClassPrefix)
	viper.SetDefault(methodPrefixKey, domain.DefaultMethodPrefix)
	viper.SetDefault(discoverParallelKey, 0)
	viper.SetDefault(includeConfigKey, defaultIncludePatterns)
	viper.SetDefault(excludeConfigKey, defaultExcludePatterns)

	// Logging defaults (used by config/env and as fallbacks for flags).
	viper.SetDefault(logFilenameKey, defaultLogFilename)
	viper.SetDefault(logLevelKey, defaultLogLevel)
	viper.SetDefault(logVerboseKey, defaultLogVerbose)
	viper.SetDefault(logMaxSizeKey, defaultLogMaxSize)
	viper.SetDefault(logMaxBackupsKey, defaultLogMaxBackups)
	viper.SetDefault(logMaxAgeKey, defaultLogMaxAge)
	viper.SetDefault(logCompressKey, defaultLogCompress)

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return
		}

		return
	}
}

func parseSlogLevel(value string, defaultLevel slog.Level) slog.Level {
	level := strings.ToLower(strings.TrimSpace(value))
	if level == "" {
		return defaultLevel
	}

	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}

	// Allow numeric slog levels as well (e.g. -4 for debug).
	if n, err := strconv.Atoi(level); err == nil {
		return slog.Level(n)
	}

	return defaultLevel
}

// configureLogger configures the global slog logger. Logs go to a rotating
// file, never to stdout: the worker subcommand reserves stdout for protocol
// frames, and run output belongs to the UI.
//
// By default it logs at Info; if verbose is true it logs at Debug.
func configureLogger(logPath string, verbose bool) {
	if strings.TrimSpace(logPath) == "" {
		logPath = viper.GetString(logFilenameKey)
	}

	if strings.TrimSpace(logPath) == "" {
		logPath = defaultLogFilename
	}

	var logLevel slog.Level
	if verbose {
		logLevel = slog.LevelDebug
	} else {
		logLevel = parseSlogLevel(viper.GetString(logLevelKey), slog.LevelInfo)
	}

	logWriter := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    viper.GetInt(logMaxSizeKey),
		MaxBackups: viper.GetInt(logMaxBackupsKey),
		MaxAge:     viper.GetInt(logMaxAgeKey),
		Compress:   viper.GetBool(logCompressKey),
	}

	handler := slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		AddSource: true,
		Level:     logLevel,
	})

	globalLogger = slog.New(handler)
	slog.SetDefault(globalLogger)
}
