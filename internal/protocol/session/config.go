package session

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultHost = "127.0.0.1"
	DefaultPort = 1865
)

var ErrInvalidConfig = errors.New("session: invalid config")

// BackoffConfig defines retry backoff behavior for callers that poll the daemon.
type BackoffConfig struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	Jitter       bool
}

// Config defines the daemon endpoint and per-exchange socket deadlines.
type Config struct {
	Host           string
	Port           int
	ConnectTimeout time.Duration
	// ReadTimeout bounds each read; a read that hits it ends the response.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// ReadChunk is the read window size in bytes.
	ReadChunk        int
	MaxResponseBytes int
}

// DefaultConfig returns the daemon defaults: loopback:1865 with one-second deadlines.
func DefaultConfig() Config {
	return Config{
		Host:             DefaultHost,
		Port:             DefaultPort,
		ConnectTimeout:   time.Second,
		ReadTimeout:      time.Second,
		WriteTimeout:     5 * time.Second,
		ReadChunk:        64,
		MaxResponseBytes: 8 * 1024 * 1024,
	}
}

// DefaultBackoff returns the polling backoff used while waiting for a daemon.
func DefaultBackoff() BackoffConfig {
	return BackoffConfig{
		InitialDelay: 250 * time.Millisecond,
		Multiplier:   2.0,
		MaxDelay:     5 * time.Second,
		Jitter:       true,
	}
}

// WithDefaults fills zero-valued fields from DefaultConfig.
func (c Config) WithDefaults() Config {
	def := DefaultConfig()
	if strings.TrimSpace(c.Host) == "" {
		c.Host = def.Host
	}
	if c.Port == 0 {
		c.Port = def.Port
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = def.ConnectTimeout
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = def.ReadTimeout
	}
	if c.ReadChunk <= 0 {
		c.ReadChunk = def.ReadChunk
	}
	if c.MaxResponseBytes <= 0 {
		c.MaxResponseBytes = def.MaxResponseBytes
	}
	return c
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Host) == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidConfig)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidConfig, c.Port)
	}
	if c.ReadTimeout <= 0 {
		return fmt.Errorf("%w: read timeout must be positive", ErrInvalidConfig)
	}
	if c.ReadChunk <= 0 {
		return fmt.Errorf("%w: read chunk must be positive", ErrInvalidConfig)
	}
	return nil
}

// Address is the host:port dial target.
func (c Config) Address() string {
	return net.JoinHostPort(strings.TrimSpace(c.Host), strconv.Itoa(c.Port))
}
