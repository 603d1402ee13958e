package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"

	"github.com/christopherklint97/adotime/internal/ado"
	"github.com/christopherklint97/adotime/internal/auth"
	"github.com/christopherklint97/adotime/internal/timesheet"
)

type Config struct {
	Timesheet     TimesheetConfig `toml:"timesheet"`
	ADO           ADOConfig       `toml:"ado"`
	Store         StoreConfig     `toml:"store"`
	Log           LogConfig       `toml:"log"`
	Notifications NotifyConfig    `toml:"notifications"`
}

type TimesheetConfig struct {
	BaseURL string `toml:"base_url"`
}

type ADOConfig struct {
	BaseURL    string `toml:"base_url"`
	AuthScheme string `toml:"auth_scheme"` // "basic" or "bearer"
}

type StoreConfig struct {
	Path string `toml:"path"` // empty means ~/.config/adotime/adotime.db
}

type LogConfig struct {
	Level string `toml:"level"`
}

type NotifyConfig struct {
	Enabled           bool   `toml:"enabled"`
	ExpiryWarningDays int    `toml:"expiry_warning_days"`
	Schedule          string `toml:"schedule"` // cron expression for 'adotime watch'
	RemindUnlogged    bool   `toml:"remind_unlogged"`
}

func DefaultConfig() Config {
	return Config{
		Timesheet: TimesheetConfig{
			BaseURL: timesheet.DefaultBaseURL,
		},
		ADO: ADOConfig{
			BaseURL:    ado.DefaultBaseURL,
			AuthScheme: auth.SchemeBasic,
		},
		Log: LogConfig{
			Level: "info",
		},
		Notifications: NotifyConfig{
			Enabled:           true,
			ExpiryWarningDays: 7,
			Schedule:          "0 16 * * 1-5",
			RemindUnlogged:    true,
		},
	}
}

func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, ".config", "adotime"), nil
}

func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads the config at path, or at ConfigPath when path is empty. A
// missing file yields the defaults with env overrides applied.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			data = nil
		} else {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}
	return Parse(data)
}

// Parse decodes TOML over the defaults, applies env overrides and validates.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if len(data) > 0 {
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ADOTIME_TIMESHEET_URL"); v != "" {
		cfg.Timesheet.BaseURL = v
	}
	if v := os.Getenv("ADOTIME_ADO_URL"); v != "" {
		cfg.ADO.BaseURL = v
	}
	if v := os.Getenv("ADOTIME_DB"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("ADOTIME_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

func (c *Config) validate() error {
	var errs []string
	if err := checkURL(c.Timesheet.BaseURL); err != nil {
		errs = append(errs, "timesheet.base_url "+err.Error())
	}
	if err := checkURL(c.ADO.BaseURL); err != nil {
		errs = append(errs, "ado.base_url "+err.Error())
	}
	switch c.ADO.AuthScheme {
	case "", auth.SchemeBasic, auth.SchemeBearer:
	default:
		errs = append(errs, fmt.Sprintf("ado.auth_scheme %q is not basic or bearer", c.ADO.AuthScheme))
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, "log.level "+err.Error())
	}
	if c.Notifications.ExpiryWarningDays < 0 {
		errs = append(errs, "notifications.expiry_warning_days must not be negative")
	}
	if _, err := cron.ParseStandard(c.Notifications.Schedule); err != nil {
		errs = append(errs, fmt.Sprintf("notifications.schedule %q: %v", c.Notifications.Schedule, err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func checkURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%q is not an http(s) URL", raw)
	}
	return nil
}

// LogLevel returns the configured slog level.
func (c *Config) LogLevel() slog.Level {
	level, _ := parseLevel(c.Log.Level)
	return level
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("%q is not a log level", s)
	}
	return level, nil
}

func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// Set persists one dotted key such as "timesheet.base_url" to the config
// file at path using a read-modify-write to preserve other settings.
func Set(path, key, value string) error {
	section, field, ok := strings.Cut(key, ".")
	if !ok || section == "" || field == "" {
		return fmt.Errorf("config key %q must look like section.key", key)
	}

	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			return err
		}
		path = p
	}

	cfg := make(map[string]any)

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading config: %w", err)
	}
	if len(data) > 0 {
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return fmt.Errorf("parsing config: %w", err)
		}
	}

	sec, ok := cfg[section].(map[string]any)
	if !ok {
		sec = make(map[string]any)
	}
	sec[field] = typedValue(value)
	cfg[section] = sec

	out, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if _, err := Parse(out); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	return os.WriteFile(path, out, 0644)
}

func typedValue(s string) any {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return s
}
