package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/stsctl/internal/logging"
	"github.com/danmuck/stsctl/internal/protocol/session"
	"github.com/danmuck/stsctl/internal/store"
)

const (
	DefaultAPIAddr        = ":8000"
	DefaultStreamInterval = time.Second
	DefaultStoreDSN       = "data/spectra.db"
)

var ErrInvalid = errors.New("config: invalid")

// Config is the resolved runtime configuration for the CLI and the façade.
type Config struct {
	Daemon  session.Config
	API     APIConfig
	Store   StoreConfig
	Logging logging.Config
}

type APIConfig struct {
	Addr           string
	CorsOrigins    []string
	TrustedProxies []string
	StreamInterval time.Duration
	// Token, when set, is required on every /api request.
	Token          string
}

// StoreConfig selects spectra persistence. An empty Driver disables it.
type StoreConfig struct {
	Driver string
	DSN    string
}

func (s StoreConfig) Enabled() bool {
	return strings.TrimSpace(s.Driver) != ""
}

func Defaults() Config {
	lc := logging.DefaultConfig(logging.ProfileRuntime)
	lc.App = "stsapi"
	return Config{
		Daemon: session.DefaultConfig(),
		API: APIConfig{
			Addr:           DefaultAPIAddr,
			CorsOrigins:    []string{"http://localhost:3000"},
			StreamInterval: DefaultStreamInterval,
		},
		Store: StoreConfig{
			Driver: store.DriverSQLite,
			DSN:    DefaultStoreDSN,
		},
		Logging: lc,
	}
}

// File is the on-disk TOML layout. Durations are Go duration strings.
type File struct {
	Daemon  DaemonSection  `toml:"daemon"`
	API     APISection     `toml:"api"`
	Store   StoreSection   `toml:"store"`
	Logging LoggingSection `toml:"logging"`
}

type DaemonSection struct {
	Host             string `toml:"host"`
	Port             int    `toml:"port"`
	ConnectTimeout   string `toml:"connect_timeout"`
	ReadTimeout      string `toml:"read_timeout"`
	WriteTimeout     string `toml:"write_timeout"`
	ReadChunk        int    `toml:"read_chunk"`
	MaxResponseBytes int    `toml:"max_response_bytes"`
}

type APISection struct {
	Addr           string   `toml:"addr"`
	CorsOrigins    []string `toml:"cors_origins"`
	TrustedProxies []string `toml:"trusted_proxies"`
	StreamInterval string   `toml:"stream_interval"`
	Token          string   `toml:"token"`
}

type StoreSection struct {
	Driver string `toml:"driver"`
	DSN    string `toml:"dsn"`
}

type LoggingSection struct {
	Level     string `toml:"level"`
	JSON      bool   `toml:"json"`
	NoColor   bool   `toml:"no_color"`
	Timestamp bool   `toml:"timestamp"`
	File      string `toml:"file"`
}

// Load decodes path and overlays every key it defines on Defaults.
func Load(path string) (Config, error) {
	cfg := Defaults()

	var raw File
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("%w: unknown key %q", ErrInvalid, undecoded[0].String())
	}

	d := &cfg.Daemon
	if meta.IsDefined("daemon", "host") {
		d.Host = strings.TrimSpace(raw.Daemon.Host)
	}
	if meta.IsDefined("daemon", "port") {
		d.Port = raw.Daemon.Port
	}
	if err := duration(meta, &d.ConnectTimeout, raw.Daemon.ConnectTimeout, "daemon", "connect_timeout"); err != nil {
		return Config{}, err
	}
	if err := duration(meta, &d.ReadTimeout, raw.Daemon.ReadTimeout, "daemon", "read_timeout"); err != nil {
		return Config{}, err
	}
	if err := duration(meta, &d.WriteTimeout, raw.Daemon.WriteTimeout, "daemon", "write_timeout"); err != nil {
		return Config{}, err
	}
	if meta.IsDefined("daemon", "read_chunk") {
		d.ReadChunk = raw.Daemon.ReadChunk
	}
	if meta.IsDefined("daemon", "max_response_bytes") {
		d.MaxResponseBytes = raw.Daemon.MaxResponseBytes
	}

	if meta.IsDefined("api", "addr") {
		cfg.API.Addr = strings.TrimSpace(raw.API.Addr)
	}
	if meta.IsDefined("api", "cors_origins") {
		cfg.API.CorsOrigins = normalizeList(raw.API.CorsOrigins)
	}
	if meta.IsDefined("api", "trusted_proxies") {
		cfg.API.TrustedProxies = normalizeList(raw.API.TrustedProxies)
	}
	if err := duration(meta, &cfg.API.StreamInterval, raw.API.StreamInterval, "api", "stream_interval"); err != nil {
		return Config{}, err
	}
	if meta.IsDefined("api", "token") {
		cfg.API.Token = strings.TrimSpace(raw.API.Token)
	}

	if meta.IsDefined("store", "driver") {
		cfg.Store.Driver = strings.TrimSpace(raw.Store.Driver)
	}
	if meta.IsDefined("store", "dsn") {
		cfg.Store.DSN = strings.TrimSpace(raw.Store.DSN)
	}

	if meta.IsDefined("logging", "level") {
		lvl, ok := logging.ParseLevel(raw.Logging.Level)
		if !ok {
			return Config{}, fmt.Errorf("%w: logging.level %q", ErrInvalid, raw.Logging.Level)
		}
		cfg.Logging.Level = lvl
	}
	if meta.IsDefined("logging", "json") {
		cfg.Logging.JSON = raw.Logging.JSON
	}
	if meta.IsDefined("logging", "no_color") {
		cfg.Logging.NoColor = raw.Logging.NoColor
	}
	if meta.IsDefined("logging", "timestamp") {
		cfg.Logging.Timestamp = raw.Logging.Timestamp
	}
	if meta.IsDefined("logging", "file") {
		cfg.Logging.File = strings.TrimSpace(raw.Logging.File)
	}

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func Validate(cfg Config) error {
	if err := cfg.Daemon.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(cfg.API.Addr) == "" {
		return fmt.Errorf("%w: api.addr is required", ErrInvalid)
	}
	if cfg.API.StreamInterval <= 0 {
		return fmt.Errorf("%w: api.stream_interval must be positive", ErrInvalid)
	}
	if cfg.Store.Enabled() {
		if _, err := store.NewDialect(cfg.Store.Driver); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalid, err)
		}
		if strings.TrimSpace(cfg.Store.DSN) == "" {
			return fmt.Errorf("%w: store.dsn is required when store.driver is set", ErrInvalid)
		}
	}
	return nil
}

// ToFile renders cfg in its on-disk layout.
func ToFile(cfg Config) File {
	return File{
		Daemon: DaemonSection{
			Host:             cfg.Daemon.Host,
			Port:             cfg.Daemon.Port,
			ConnectTimeout:   cfg.Daemon.ConnectTimeout.String(),
			ReadTimeout:      cfg.Daemon.ReadTimeout.String(),
			WriteTimeout:     cfg.Daemon.WriteTimeout.String(),
			ReadChunk:        cfg.Daemon.ReadChunk,
			MaxResponseBytes: cfg.Daemon.MaxResponseBytes,
		},
		API: APISection{
			Addr:           cfg.API.Addr,
			CorsOrigins:    append([]string{}, cfg.API.CorsOrigins...),
			TrustedProxies: append([]string{}, cfg.API.TrustedProxies...),
			StreamInterval: cfg.API.StreamInterval.String(),
			Token:          cfg.API.Token,
		},
		Store: StoreSection{
			Driver: cfg.Store.Driver,
			DSN:    cfg.Store.DSN,
		},
		Logging: LoggingSection{
			Level:     cfg.Logging.Level.String(),
			JSON:      cfg.Logging.JSON,
			NoColor:   cfg.Logging.NoColor,
			Timestamp: cfg.Logging.Timestamp,
			File:      cfg.Logging.File,
		},
	}
}

func duration(meta toml.MetaData, dst *time.Duration, raw string, key ...string) error {
	if !meta.IsDefined(key...) {
		return nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("parse %s: %w", strings.Join(key, "."), err)
	}
	*dst = d
	return nil
}

func normalizeList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
