package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/stsctl/internal/protocol/session"
	"github.com/rs/zerolog"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stsctl.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadOverlaysDefinedKeys(t *testing.T) {
	path := writeFile(t, `
[daemon]
host = "10.0.0.7"
read_timeout = "250ms"

[api]
addr = ":9090"
cors_origins = [" http://lab.local ", ""]
stream_interval = "2s"
token = " s3cret "

[store]
driver = ""

[logging]
level = "debug"
json = true
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Daemon.Host != "10.0.0.7" || cfg.Daemon.ReadTimeout != 250*time.Millisecond {
		t.Fatalf("daemon: %+v", cfg.Daemon)
	}
	if cfg.Daemon.Port != session.DefaultPort || cfg.Daemon.ConnectTimeout != time.Second {
		t.Fatalf("undefined daemon keys must keep defaults: %+v", cfg.Daemon)
	}
	if cfg.API.Addr != ":9090" || cfg.API.StreamInterval != 2*time.Second {
		t.Fatalf("api: %+v", cfg.API)
	}
	if cfg.API.Token != "s3cret" {
		t.Fatalf("token: %q", cfg.API.Token)
	}
	if len(cfg.API.CorsOrigins) != 1 || cfg.API.CorsOrigins[0] != "http://lab.local" {
		t.Fatalf("cors origins: %q", cfg.API.CorsOrigins)
	}
	if cfg.Store.Enabled() {
		t.Fatalf("empty driver must disable the store: %+v", cfg.Store)
	}
	if cfg.Logging.Level != zerolog.DebugLevel || !cfg.Logging.JSON {
		t.Fatalf("logging: %+v", cfg.Logging)
	}
}

func TestLoadErrors(t *testing.T) {
	cases := map[string]string{
		"bad duration": "[daemon]\nread_timeout = \"soon\"\n",
		"bad port":     "[daemon]\nport = 70000\n",
		"bad level":    "[logging]\nlevel = \"loud\"\n",
		"bad driver":   "[store]\ndriver = \"oracle\"\n",
		"unknown key":  "[daemon]\nhots = \"x\"\n",
		"zero stream":  "[api]\nstream_interval = \"0s\"\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeFile(t, body)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestTemplateLoadsAsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stsapi.toml")
	if err := WriteTemplate(path, false); err != nil {
		t.Fatalf("write template: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load template: %v", err)
	}
	def := Defaults()
	if cfg.Daemon != def.Daemon {
		t.Fatalf("daemon: got %+v want %+v", cfg.Daemon, def.Daemon)
	}
	if cfg.API.Addr != def.API.Addr || cfg.API.StreamInterval != def.API.StreamInterval {
		t.Fatalf("api: got %+v want %+v", cfg.API, def.API)
	}
	if cfg.Store != def.Store || cfg.Logging.Level != def.Logging.Level {
		t.Fatalf("store/logging: %+v %+v", cfg.Store, cfg.Logging)
	}

	err = WriteTemplate(path, false)
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected overwrite refusal, got %v", err)
	}
	if err := WriteTemplate(path, true); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
}

func TestValidate(t *testing.T) {
	cfg := Defaults()
	if err := Validate(cfg); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
	cfg.Store.DSN = ""
	if err := Validate(cfg); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
	cfg = Defaults()
	cfg.Daemon.Host = ""
	if err := Validate(cfg); !errors.Is(err, session.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}
