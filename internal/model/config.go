package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Service group names. Each group talks to its own base address with its
// own timeout.
const (
	GroupFile    = "file"
	GroupSMTP    = "smtp"
	GroupTeacher = "teacher"
)

// EnvPrefix prefixes environment variables that override file settings,
// e.g. AUTOMAIL_SERVICES_SMTP_BASE_URL.
const EnvPrefix = "AUTOMAIL"

// ServiceConfig holds the address and timeout of one service group.
type ServiceConfig struct {
	// BaseURL is the group root, including its path prefix.
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// TimeoutSec bounds every request made to the group.
	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec"`
}

// Timeout returns TimeoutSec as a duration.
func (s ServiceConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSec) * time.Second
}

// ServicesConfig groups the three remote service groups.
type ServicesConfig struct {
	File    ServiceConfig `mapstructure:"file" yaml:"file"`
	SMTP    ServiceConfig `mapstructure:"smtp" yaml:"smtp"`
	Teacher ServiceConfig `mapstructure:"teacher" yaml:"teacher"`
}

// MailboxConfig points at the sender's IMAP mailbox, used to look for
// bounce reports. The password lives in the keyring.
type MailboxConfig struct {
	Host           string `mapstructure:"host" yaml:"host"`
	Port           string `mapstructure:"port" yaml:"port"`
	Username       string `mapstructure:"username" yaml:"username"`
	TLS            bool   `mapstructure:"tls" yaml:"tls"`
	BounceScanDays int    `mapstructure:"bounce_scan_days" yaml:"bounce_scan_days"`
}

// Enabled reports whether enough is configured to connect.
func (m MailboxConfig) Enabled() bool {
	return m.Host != "" && m.Username != ""
}

// DisplayConfig holds UI/rendering preferences.
type DisplayConfig struct {
	Theme           string `mapstructure:"theme" yaml:"theme"`
	PollIntervalSec int    `mapstructure:"poll_interval_sec" yaml:"poll_interval_sec"`
}

// LogConfig controls the log file.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	File  string `mapstructure:"file" yaml:"file"`
}

// MetricsConfig controls the optional Prometheus endpoint.
type MetricsConfig struct {
	// Listen is the address for /metrics; empty disables it.
	Listen string `mapstructure:"listen" yaml:"listen"`
}

// StoreConfig locates the local SQLite cache.
type StoreConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Services ServicesConfig `mapstructure:"services" yaml:"services"`
	Mailbox  MailboxConfig  `mapstructure:"mailbox" yaml:"mailbox"`
	Display  DisplayConfig  `mapstructure:"display" yaml:"display"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	Metrics  MetricsConfig  `mapstructure:"metrics" yaml:"metrics"`
	Store    StoreConfig    `mapstructure:"store" yaml:"store"`
}

// Service returns the configuration of the named group.
func (c *AppConfig) Service(group string) (ServiceConfig, error) {
	switch group {
	case GroupFile:
		return c.Services.File, nil
	case GroupSMTP:
		return c.Services.SMTP, nil
	case GroupTeacher:
		return c.Services.Teacher, nil
	}
	return ServiceConfig{}, fmt.Errorf("unknown service group %q", group)
}

// ConfigDir returns ~/.config/automail, falling back to the working
// directory when the home directory is unknown.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "automail")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/automail/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// defaultAppConfig returns the configuration used when no file exists.
// Addresses and timeouts match the service's stock deployment.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		Services: ServicesConfig{
			File:    ServiceConfig{BaseURL: "http://localhost:8000/files", TimeoutSec: 30},
			SMTP:    ServiceConfig{BaseURL: "http://localhost:8000/smtp", TimeoutSec: 10},
			Teacher: ServiceConfig{BaseURL: "http://localhost:8000/teacher", TimeoutSec: 10},
		},
		Mailbox: MailboxConfig{
			Port:           "993",
			TLS:            true,
			BounceScanDays: 7,
		},
		Display: DisplayConfig{
			Theme:           "default",
			PollIntervalSec: 120,
		},
		Log: LogConfig{
			Level: "info",
			File:  filepath.Join(ConfigDir(), "automail.log"),
		},
		Store: StoreConfig{
			Path: filepath.Join(ConfigDir(), "automail.db"),
		},
	}
}

// setDefaults mirrors defaultAppConfig into viper so that partially
// written files and environment overrides resolve against the same values.
func setDefaults(v *viper.Viper) {
	d := defaultAppConfig()
	v.SetDefault("services.file.base_url", d.Services.File.BaseURL)
	v.SetDefault("services.file.timeout_sec", d.Services.File.TimeoutSec)
	v.SetDefault("services.smtp.base_url", d.Services.SMTP.BaseURL)
	v.SetDefault("services.smtp.timeout_sec", d.Services.SMTP.TimeoutSec)
	v.SetDefault("services.teacher.base_url", d.Services.Teacher.BaseURL)
	v.SetDefault("services.teacher.timeout_sec", d.Services.Teacher.TimeoutSec)
	v.SetDefault("mailbox.host", d.Mailbox.Host)
	v.SetDefault("mailbox.port", d.Mailbox.Port)
	v.SetDefault("mailbox.username", d.Mailbox.Username)
	v.SetDefault("mailbox.tls", d.Mailbox.TLS)
	v.SetDefault("mailbox.bounce_scan_days", d.Mailbox.BounceScanDays)
	v.SetDefault("display.theme", d.Display.Theme)
	v.SetDefault("display.poll_interval_sec", d.Display.PollIntervalSec)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("metrics.listen", d.Metrics.Listen)
	v.SetDefault("store.path", d.Store.Path)
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// Environment variables prefixed with AUTOMAIL_ override file values.
// If the file does not exist, defaults (plus environment) are returned.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		var pathErr *os.PathError
		if !errors.As(err, &notFound) && !errors.As(err, &pathErr) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	for _, svc := range []*ServiceConfig{&cfg.Services.File, &cfg.Services.SMTP, &cfg.Services.Teacher} {
		svc.BaseURL = strings.TrimRight(svc.BaseURL, "/")
		if svc.TimeoutSec <= 0 {
			svc.TimeoutSec = 10
		}
	}
	if cfg.Display.PollIntervalSec <= 0 {
		cfg.Display.PollIntervalSec = 120
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("services", cfg.Services)
	v.Set("mailbox", cfg.Mailbox)
	v.Set("display", cfg.Display)
	v.Set("log", cfg.Log)
	v.Set("metrics", cfg.Metrics)
	v.Set("store", cfg.Store)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
