package config

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zapcore"

	"github.com/wippyai/wasm-clipboard/errors"
	"github.com/wippyai/wasm-clipboard/provider"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Provider.Name != "system" {
		t.Errorf("expected system provider, got %q", cfg.Provider.Name)
	}
	if cfg.Host.Module != "clipboard" {
		t.Errorf("expected clipboard module, got %q", cfg.Host.Module)
	}
	if cfg.Host.Callback != "get_clipboard_text_raw_callback" {
		t.Errorf("unexpected callback %q", cfg.Host.Callback)
	}
	if !cfg.Runtime.WASI {
		t.Error("WASI should be enabled by default")
	}
	if cfg.Log.Level != "warn" || cfg.Log.Format != "console" {
		t.Errorf("unexpected log defaults: %+v", cfg.Log)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
provider:
  name: osc52
  osc52:
    force: true
    tmux: true
    limit: 100000
host:
  module: env
  callback: alloc_text
runtime:
  memory_limit_pages: 256
  wasi: false
log:
  level: debug
  format: json
`)

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	if cfg.Provider.Name != "osc52" || !cfg.Provider.OSC52.Force || !cfg.Provider.OSC52.Tmux {
		t.Errorf("provider section not loaded: %+v", cfg.Provider)
	}
	if cfg.Host.Module != "env" || cfg.Host.Callback != "alloc_text" {
		t.Errorf("host section not loaded: %+v", cfg.Host)
	}
	if cfg.Runtime.MemoryLimitPages != 256 || cfg.Runtime.WASI {
		t.Errorf("runtime section not loaded: %+v", cfg.Runtime)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("log section not loaded: %+v", cfg.Log)
	}

	s := cfg.Provider.Settings()
	if s.Mux != provider.MuxTmux || !s.Force || s.Limit != 100000 {
		t.Errorf("unexpected settings: %+v", s)
	}
}

func TestLoadFromFile_PartialUsesDefaults(t *testing.T) {
	path := writeConfig(t, "provider:\n  name: memory\n  initial: seeded\n")

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if cfg.Provider.Initial != "seeded" {
		t.Errorf("expected initial text, got %q", cfg.Provider.Initial)
	}
	if cfg.Host.Module != "clipboard" {
		t.Errorf("expected default module, got %q", cfg.Host.Module)
	}
}

func TestLoadFromFile_EnvOverride(t *testing.T) {
	path := writeConfig(t, "provider:\n  name: memory\n")
	t.Setenv("WASM_CLIPBOARD_PROVIDER_NAME", "none")
	t.Setenv("WASM_CLIPBOARD_HOST_MODULE", "odin_env")

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if cfg.Provider.Name != "none" {
		t.Errorf("env should override file, got %q", cfg.Provider.Name)
	}
	if cfg.Host.Module != "odin_env" {
		t.Errorf("env should override default, got %q", cfg.Host.Module)
	}
}

func TestLoadFromFile_Missing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseConfig, Kind: errors.KindInvalidInput}) {
		t.Errorf("expected config error, got %v", err)
	}
}

func TestLoad_NoFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load without config file failed: %v", err)
	}
	if cfg.Provider.Name != "system" {
		t.Errorf("expected defaults, got %+v", cfg.Provider)
	}
}

func TestLoad_HomeFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	dir := filepath.Join(home, DefaultConfigDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("provider:\n  name: gopass\n  sensitive: true\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Provider.Name != "gopass" || !cfg.Provider.Sensitive {
		t.Errorf("home config not loaded: %+v", cfg.Provider)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown provider", func(c *Config) { c.Provider.Name = "fax" }},
		{"both multiplexers", func(c *Config) { c.Provider.OSC52.Tmux = true; c.Provider.OSC52.Screen = true }},
		{"negative limit", func(c *Config) { c.Provider.OSC52.Limit = -1 }},
		{"empty module", func(c *Config) { c.Host.Module = " " }},
		{"empty callback", func(c *Config) { c.Host.Callback = "" }},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseConfig, Kind: errors.KindInvalidInput}) {
				t.Errorf("expected invalid input, got %v", err)
			}
		})
	}
}

func TestProviderSettings_Screen(t *testing.T) {
	p := ProviderConfig{Name: "osc52", OSC52: OSC52Config{Screen: true}}
	if p.Settings().Mux != provider.MuxScreen {
		t.Error("expected screen multiplexer")
	}
	if (ProviderConfig{}).Settings().Mux != provider.MuxNone {
		t.Error("expected no multiplexer")
	}
}

func TestNewLogger(t *testing.T) {
	for _, format := range []string{"console", "json"} {
		l, err := LogConfig{Level: "info", Format: format}.NewLogger()
		if err != nil {
			t.Fatalf("NewLogger(%s) failed: %v", format, err)
		}
		if !l.Core().Enabled(zapcore.InfoLevel) {
			t.Errorf("info should be enabled for %s", format)
		}
		if l.Core().Enabled(zapcore.DebugLevel) {
			t.Errorf("debug should be disabled for %s", format)
		}
	}

	if _, err := (LogConfig{Level: "loud", Format: "console"}).NewLogger(); err == nil {
		t.Error("expected error for unknown level")
	}
}
