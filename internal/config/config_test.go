package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DISCORD_TOKEN", "token-123")
	t.Setenv("CHANNEL_ID", "987654321")
	t.Setenv("SERVER_LOCATION", "US East 1")
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Discord.Token != "token-123" || cfg.Discord.ChannelID != "987654321" || cfg.Server.Location != "US East 1" {
		t.Errorf("required values not loaded: %+v", cfg)
	}
	if cfg.Commands.Start != DefaultStartCommand || cfg.Commands.Stop != DefaultStopCommand {
		t.Errorf("unexpected commands: %+v", cfg.Commands)
	}
	if cfg.Probe.Backend != ProbeBackendExec || cfg.Probe.Command != DefaultProbeCommand {
		t.Errorf("unexpected probe: %+v", cfg.Probe)
	}
	if cfg.Scheduler.RefreshInterval != 30*time.Second {
		t.Errorf("RefreshInterval = %v", cfg.Scheduler.RefreshInterval)
	}
	if cfg.Log.Level != "info" || cfg.Database.Path != DefaultDBPath {
		t.Errorf("unexpected defaults: %+v %+v", cfg.Log, cfg.Database)
	}
}

func TestLoadConfigMissingRequired(t *testing.T) {
	tests := []struct {
		name    string
		unset   string
		wantEnv string
	}{
		{"token", "DISCORD_TOKEN", "DISCORD_TOKEN"},
		{"channel", "CHANNEL_ID", "CHANNEL_ID"},
		{"location", "SERVER_LOCATION", "SERVER_LOCATION"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tt.unset, "")

			_, err := LoadConfig("")
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, ErrConfiguration) {
				t.Errorf("error does not wrap ErrConfiguration: %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantEnv) {
				t.Errorf("error %q does not name %s", err, tt.wantEnv)
			}
		})
	}
}

func TestLoadConfigFile(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SERVER_LOCATION", "")

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
log:
  level: debug
  json: true
server:
  location: EU West 1
commands:
  start: docker compose up -d
  workdir: /opt/hll-geofences
probe:
  backend: docker
scheduler:
  refresh_interval: 45s
  maintenance_schedule: ""
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Log.Level != "debug" || !cfg.Log.JSON {
		t.Errorf("log = %+v", cfg.Log)
	}
	if cfg.Server.Location != "EU West 1" {
		t.Errorf("location = %q", cfg.Server.Location)
	}
	if cfg.Commands.Start != "docker compose up -d" || cfg.Commands.Stop != DefaultStopCommand {
		t.Errorf("commands = %+v", cfg.Commands)
	}
	if cfg.Commands.WorkDir != "/opt/hll-geofences" {
		t.Errorf("workdir = %q", cfg.Commands.WorkDir)
	}
	if cfg.Probe.Backend != ProbeBackendDocker || cfg.Probe.Container != DefaultContainerName {
		t.Errorf("probe = %+v", cfg.Probe)
	}
	if cfg.Scheduler.RefreshInterval != 45*time.Second || cfg.Scheduler.MaintenanceSchedule != "" {
		t.Errorf("scheduler = %+v", cfg.Scheduler)
	}
}

func TestEnvironmentOverridesFile(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("BOT_LOG_LEVEL", "warn")

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("log level = %q, want warn", cfg.Log.Level)
	}
}

func TestLoadConfigInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"bad log level", map[string]string{"BOT_LOG_LEVEL": "verbose"}},
		{"bad probe backend", map[string]string{"BOT_PROBE_BACKEND": "podman"}},
		{"refresh too fast", map[string]string{"BOT_SCHEDULER_REFRESH_INTERVAL": "100ms"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := LoadConfig(""); !errors.Is(err, ErrConfiguration) {
				t.Errorf("expected configuration error, got %v", err)
			}
		})
	}
}

func TestLoadConfigMalformedFile(t *testing.T) {
	setRequiredEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("log: [unterminated"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); !errors.Is(err, ErrConfiguration) {
		t.Errorf("expected configuration error, got %v", err)
	}
}

func TestLoadProbeConfig(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{name: "no discord credentials", env: map[string]string{}},
		{
			name:    "unknown backend",
			env:     map[string]string{"BOT_PROBE_BACKEND": "podman"},
			wantErr: "Probe.Backend",
		},
		{
			name:    "bad log level",
			env:     map[string]string{"BOT_LOG_LEVEL": "verbose"},
			wantErr: "Log.Level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DISCORD_TOKEN", "")
			t.Setenv("CHANNEL_ID", "")
			t.Setenv("SERVER_LOCATION", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := LoadProbeConfig("")
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("LoadProbeConfig: %v", err)
				}
				if cfg.Probe.Command != DefaultProbeCommand {
					t.Errorf("probe command = %q", cfg.Probe.Command)
				}
				return
			}
			if !errors.Is(err, ErrConfiguration) || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want configuration error naming %s", err, tt.wantErr)
			}
		})
	}
}
