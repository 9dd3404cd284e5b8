package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		raw  string
		want zerolog.Level
		ok   bool
	}{
		{"", zerolog.InfoLevel, false},
		{"DEBUG", zerolog.DebugLevel, true},
		{" warning ", zerolog.WarnLevel, true},
		{"diagnostics", zerolog.TraceLevel, true},
		{"off", zerolog.Disabled, true},
		{"loud", zerolog.InfoLevel, false},
	}
	for _, tc := range cases {
		got, ok := ParseLevel(tc.raw)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("ParseLevel(%q) = %v,%v want %v,%v", tc.raw, got, ok, tc.want, tc.ok)
		}
	}
}

func TestDefaultConfigProfiles(t *testing.T) {
	rt := DefaultConfig(ProfileRuntime)
	if rt.Level != zerolog.InfoLevel || !rt.Timestamp {
		t.Fatalf("runtime profile: %+v", rt)
	}
	tc := DefaultConfig(ProfileTest)
	if tc.Level != zerolog.DebugLevel || tc.Timestamp {
		t.Fatalf("test profile: %+v", tc)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvLogJSON, "true")
	t.Setenv(EnvLogFile, "/tmp/stsctl.log")
	t.Setenv(EnvLogTimestamp, "nope")

	cfg := DefaultConfig(ProfileRuntime)
	applyEnvOverrides(&cfg)
	if cfg.Level != zerolog.ErrorLevel || !cfg.JSON || cfg.File != "/tmp/stsctl.log" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if !cfg.Timestamp {
		t.Fatalf("invalid bool override must be ignored")
	}
}

func TestWriterRotatesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stsctl.log")
	cfg := DefaultConfig(ProfileTest)
	cfg.JSON = true
	cfg.File = path

	w := writer(cfg)
	if _, err := w.Write([]byte(`{"level":"info","message":"rotated"}` + "\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if len(data) == 0 {
		t.Fatalf("log file empty")
	}
}
