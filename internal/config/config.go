// Package config loads showdeck settings from a TOML file, SHOWDECK_*
// environment variables and command-line flags, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/vadimfor/showdeck/internal/locale"
)

// EnvPrefix prefixes environment overrides, e.g. SHOWDECK_DATABASE_PATH.
const EnvPrefix = "SHOWDECK"

// Duration is a time.Duration written as text ("20s") in config files.
type Duration time.Duration

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	*d = Duration(v)
	return nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the full set of settings.
type Config struct {
	Language  string          `mapstructure:"language" toml:"language" yaml:"language"`
	Database  DatabaseConfig  `mapstructure:"database" toml:"database" yaml:"database"`
	Log       LogConfig       `mapstructure:"log" toml:"log" yaml:"log"`
	Remote    RemoteConfig    `mapstructure:"remote" toml:"remote" yaml:"remote"`
	Store     StoreConfig     `mapstructure:"store" toml:"store" yaml:"store"`
	Daemon    DaemonConfig    `mapstructure:"daemon" toml:"daemon" yaml:"daemon"`
	Dashboard DashboardConfig `mapstructure:"dashboard" toml:"dashboard" yaml:"dashboard"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path" toml:"path" yaml:"path"`
}

// LogConfig controls the rotating log file. An empty File disables it.
type LogConfig struct {
	File       string `mapstructure:"file" toml:"file" yaml:"file"`
	MaxSize    int    `mapstructure:"max_size" toml:"max_size" yaml:"max_size"` // megabytes
	MaxBackups int    `mapstructure:"max_backups" toml:"max_backups" yaml:"max_backups"`
	MaxAge     int    `mapstructure:"max_age" toml:"max_age" yaml:"max_age"` // days
	Compress   bool   `mapstructure:"compress" toml:"compress" yaml:"compress"`
}

type RemoteConfig struct {
	BaseURL    string   `mapstructure:"base_url" toml:"base_url" yaml:"base_url"`
	Timeout    Duration `mapstructure:"timeout" toml:"timeout" yaml:"timeout"`
	Retries    int      `mapstructure:"retries" toml:"retries" yaml:"retries"`
	RetryDelay Duration `mapstructure:"retry_delay" toml:"retry_delay" yaml:"retry_delay"`
	UserAgents []string `mapstructure:"user_agents" toml:"user_agents" yaml:"user_agents"`
}

type StoreConfig struct {
	Workers int `mapstructure:"workers" toml:"workers" yaml:"workers"`
}

// DaemonConfig drives `showdeck watch`.
type DaemonConfig struct {
	Inbox           string   `mapstructure:"inbox" toml:"inbox" yaml:"inbox"`
	Debounce        Duration `mapstructure:"debounce" toml:"debounce" yaml:"debounce"`
	RefreshInterval Duration `mapstructure:"refresh_interval" toml:"refresh_interval" yaml:"refresh_interval"` // 0 disables
}

type DashboardConfig struct {
	Port int `mapstructure:"port" toml:"port" yaml:"port"`
}

// Dir returns the directory holding the config file and, by default, the database.
func Dir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "showdeck")
	}
	return ".showdeck"
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.toml")
}

// Defaults returns the built-in settings.
func Defaults() Config {
	return Config{
		Language: string(locale.Default),
		Database: DatabaseConfig{Path: filepath.Join(Dir(), "showdeck.db")},
		Log: LogConfig{
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
			Compress:   true,
		},
		Remote: RemoteConfig{
			BaseURL:    "https://www.imdb.com",
			Timeout:    Duration(20 * time.Second),
			Retries:    2,
			RetryDelay: Duration(500 * time.Millisecond),
		},
		Store:     StoreConfig{Workers: 4},
		Daemon:    DaemonConfig{Inbox: filepath.Join(Dir(), "inbox"), Debounce: Duration(500 * time.Millisecond)},
		Dashboard: DashboardConfig{Port: 8090},
	}
}

func setDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("language", d.Language)
	v.SetDefault("database.path", d.Database.Path)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.max_size", d.Log.MaxSize)
	v.SetDefault("log.max_backups", d.Log.MaxBackups)
	v.SetDefault("log.max_age", d.Log.MaxAge)
	v.SetDefault("log.compress", d.Log.Compress)
	v.SetDefault("remote.base_url", d.Remote.BaseURL)
	v.SetDefault("remote.timeout", d.Remote.Timeout.Std().String())
	v.SetDefault("remote.retries", d.Remote.Retries)
	v.SetDefault("remote.retry_delay", d.Remote.RetryDelay.Std().String())
	v.SetDefault("remote.user_agents", []string{})
	v.SetDefault("store.workers", d.Store.Workers)
	v.SetDefault("daemon.inbox", d.Daemon.Inbox)
	v.SetDefault("daemon.debounce", d.Daemon.Debounce.Std().String())
	v.SetDefault("daemon.refresh_interval", "0s")
	v.SetDefault("dashboard.port", d.Dashboard.Port)
}

// NewViper returns a viper instance with defaults and environment binding,
// ready for flag binding and Load.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("toml")
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads path into v, if the file exists, and decodes the result.
// A missing file is not an error; the defaults apply.
func Load(v *viper.Viper, path string) (Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.Is(err, fs.ErrNotExist) && !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail later and less clearly.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return fmt.Errorf("database.path must not be empty")
	}
	if _, ok := locale.Parse(c.Language); !ok {
		return fmt.Errorf("language %q is not supported (want en, es or ru)", c.Language)
	}
	if c.Remote.Retries < 0 {
		return fmt.Errorf("remote.retries must be non-negative (got %d)", c.Remote.Retries)
	}
	if c.Store.Workers < 1 {
		return fmt.Errorf("store.workers must be at least 1 (got %d)", c.Store.Workers)
	}
	if c.Dashboard.Port < 0 || c.Dashboard.Port > 65535 {
		return fmt.Errorf("dashboard.port out of range (got %d)", c.Dashboard.Port)
	}
	return nil
}

// Lang returns the configured language.
func (c Config) Lang() locale.Lang {
	l, _ := locale.Parse(c.Language)
	return l
}

// Write saves cfg as TOML at path, creating the directory.
func Write(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return f.Close()
}

// ReadFile decodes a TOML file on top of the defaults, without environment
// or flag overrides. A missing file yields the defaults.
func ReadFile(path string) (Config, error) {
	cfg := Defaults()
	if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return cfg, nil
}

// SaveLanguage persists lang in the config file at path, keeping the other
// settings the file already has.
func SaveLanguage(path string, lang locale.Lang) error {
	cfg, err := ReadFile(path)
	if err != nil {
		return err
	}
	cfg.Language = string(lang)
	return Write(path, cfg)
}

// YAML renders cfg for display.
func (c Config) YAML() (string, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to render config: %w", err)
	}
	return string(data), nil
}
