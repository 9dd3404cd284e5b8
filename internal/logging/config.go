package logging

import (
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/danmuck/stsctl/internal/observability"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	EnvLogLevel     = "STSCTL_LOG_LEVEL"
	EnvLogTimestamp = "STSCTL_LOG_TIMESTAMP"
	EnvLogNoColor   = "STSCTL_LOG_NOCOLOR"
	EnvLogJSON      = "STSCTL_LOG_JSON"
	EnvLogFile      = "STSCTL_LOG_FILE"
)

type Profile int

const (
	ProfileRuntime Profile = iota
	ProfileTest
)

// Config is the logging setup applied once per process.
type Config struct {
	App       string
	Level     zerolog.Level
	Timestamp bool
	NoColor   bool
	JSON      bool

	// File enables a rotated log file next to the console output.
	File           string
	FileMaxSizeMB  int
	FileMaxBackups int
	FileMaxAgeDays int
}

var configureOnce sync.Once

func ConfigureRuntime(app string) {
	cfg := DefaultConfig(ProfileRuntime)
	cfg.App = app
	Apply(cfg)
}

func ConfigureTests() {
	Apply(DefaultConfig(ProfileTest))
}

// Apply installs cfg (after env overrides) as the global logger. Only the
// first call in a process has any effect.
func Apply(cfg Config) {
	configureOnce.Do(func() {
		applyEnvOverrides(&cfg)
		zerolog.SetGlobalLevel(cfg.Level)
		log.Logger = observability.InitLogger(cfg.App, writer(cfg), cfg.Timestamp)
	})
}

func DefaultConfig(profile Profile) Config {
	cfg := Config{
		App:            "stsctl",
		FileMaxSizeMB:  10,
		FileMaxBackups: 5,
		FileMaxAgeDays: 30,
	}
	switch profile {
	case ProfileTest:
		cfg.App = "test"
		cfg.Level = zerolog.DebugLevel
		cfg.Timestamp = false
		cfg.NoColor = true
	default:
		cfg.Level = zerolog.InfoLevel
		cfg.Timestamp = true
	}
	return cfg
}

func writer(cfg Config) io.Writer {
	var console io.Writer = os.Stdout
	if !cfg.JSON {
		console = observability.ConsoleWriter(os.Stdout, cfg.NoColor, cfg.Timestamp)
	}
	if strings.TrimSpace(cfg.File) == "" {
		return console
	}
	file := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.FileMaxSizeMB,
		MaxBackups: cfg.FileMaxBackups,
		MaxAge:     cfg.FileMaxAgeDays,
	}
	return zerolog.MultiLevelWriter(console, file)
}

func applyEnvOverrides(cfg *Config) {
	if lvl, ok := ParseLevel(os.Getenv(EnvLogLevel)); ok {
		cfg.Level = lvl
	}
	if v, ok := parseBool(os.Getenv(EnvLogTimestamp)); ok {
		cfg.Timestamp = v
	}
	if v, ok := parseBool(os.Getenv(EnvLogNoColor)); ok {
		cfg.NoColor = v
	}
	if v, ok := parseBool(os.Getenv(EnvLogJSON)); ok {
		cfg.JSON = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.File = v
	}
}

// ParseLevel maps a level name to a zerolog level. ok is false for unknown
// or empty input.
func ParseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return zerolog.InfoLevel, false
	case "trace", "diagnostics":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "disabled", "disable", "off", "none", "inactive":
		return zerolog.Disabled, true
	default:
		return zerolog.InfoLevel, false
	}
}

func parseBool(raw string) (bool, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
