package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse(nil): %v", err)
	}
	if cfg.Timesheet.BaseURL != "http://localhost:7071" {
		t.Errorf("Timesheet.BaseURL = %q", cfg.Timesheet.BaseURL)
	}
	if cfg.ADO.BaseURL != "https://dev.azure.com" || cfg.ADO.AuthScheme != "basic" {
		t.Errorf("ADO = %+v", cfg.ADO)
	}
	if !cfg.Notifications.Enabled || cfg.Notifications.ExpiryWarningDays != 7 {
		t.Errorf("Notifications = %+v", cfg.Notifications)
	}
	if cfg.LogLevel() != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want info", cfg.LogLevel())
	}
}

func TestParseOverridesDefaults(t *testing.T) {
	data := []byte(`
[timesheet]
base_url = "https://timesheet.example.com"

[log]
level = "debug"

[notifications]
enabled = false
`)
	cfg, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Timesheet.BaseURL != "https://timesheet.example.com" {
		t.Errorf("Timesheet.BaseURL = %q", cfg.Timesheet.BaseURL)
	}
	if cfg.ADO.BaseURL != "https://dev.azure.com" {
		t.Errorf("ADO.BaseURL = %q, want default kept", cfg.ADO.BaseURL)
	}
	if cfg.LogLevel() != slog.LevelDebug {
		t.Errorf("LogLevel = %v, want debug", cfg.LogLevel())
	}
	if cfg.Notifications.Enabled {
		t.Error("Notifications.Enabled = true, want false")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ADOTIME_TIMESHEET_URL", "https://env.example.com")
	t.Setenv("ADOTIME_DB", "/tmp/env.db")
	t.Setenv("ADOTIME_LOG_LEVEL", "warn")

	cfg, err := Parse([]byte("[timesheet]\nbase_url = \"https://file.example.com\"\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Timesheet.BaseURL != "https://env.example.com" {
		t.Errorf("Timesheet.BaseURL = %q, want env value", cfg.Timesheet.BaseURL)
	}
	if cfg.Store.Path != "/tmp/env.db" {
		t.Errorf("Store.Path = %q", cfg.Store.Path)
	}
	if cfg.LogLevel() != slog.LevelWarn {
		t.Errorf("LogLevel = %v, want warn", cfg.LogLevel())
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		data string
		want []string
	}{
		{"bad url", "[timesheet]\nbase_url = \"localhost\"\n", []string{"timesheet.base_url"}},
		{"bad scheme", "[ado]\nauth_scheme = \"ntlm\"\n", []string{"ado.auth_scheme"}},
		{"bad schedule", "[notifications]\nschedule = \"at four\"\n", []string{"notifications.schedule"}},
		{
			"several",
			"[log]\nlevel = \"loud\"\n[notifications]\nexpiry_warning_days = -1\n",
			[]string{"log.level", "expiry_warning_days"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			if err == nil {
				t.Fatal("Parse: want error")
			}
			for _, w := range tt.want {
				if !strings.Contains(err.Error(), w) {
					t.Errorf("error %q does not mention %q", err, w)
				}
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Timesheet.BaseURL == "" {
		t.Error("defaults not applied")
	}
}

func TestSetPreservesOtherKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "config.toml")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("[log]\nlevel = \"debug\"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := Set(path, "notifications.expiry_warning_days", "3"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Notifications.ExpiryWarningDays != 3 {
		t.Errorf("ExpiryWarningDays = %d, want 3", cfg.Notifications.ExpiryWarningDays)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug kept", cfg.Log.Level)
	}

	if err := Set(path, "ado.auth_scheme", "kerberos"); err == nil {
		t.Error("Set with invalid value: want error")
	}
	if err := Set(path, "nodot", "x"); err == nil {
		t.Error("Set with undotted key: want error")
	}
}
