package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const EnvPrefix = "CODEXUSAGE"

type Config struct {
	CodexHome    string        `mapstructure:"codex_home"`
	SessionsDir  string        `mapstructure:"sessions_dir"`
	AuthFile     string        `mapstructure:"auth_file"`
	BindingsFile string        `mapstructure:"bindings_file"`
	Scan         ScanConfig    `mapstructure:"scan"`
	Cache        CacheConfig   `mapstructure:"cache"`
	Remote       RemoteConfig  `mapstructure:"remote"`
	Metrics      MetricsConfig `mapstructure:"metrics"`
	Log          LogConfig     `mapstructure:"log"`
}

type ScanConfig struct {
	// RecentFiles bounds the account heuristic to the newest N session files.
	RecentFiles int `mapstructure:"recent_files"`
}

type CacheConfig struct {
	Size int `mapstructure:"size"`
}

type RemoteConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	ProxyURL   string        `mapstructure:"proxy_url"`
	RetryDelay time.Duration `mapstructure:"retry_delay"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type MetricsConfig struct {
	// Listen is the address for the /metrics endpoint; empty disables it.
	Listen string `mapstructure:"listen"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func ConfigDir() string {
	if runtime.GOOS == "windows" {
		return filepath.Join(os.Getenv("APPDATA"), "codexusage")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "codexusage")
}

func StateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "codexusage")
	}
	if runtime.GOOS == "windows" {
		return filepath.Join(os.Getenv("LOCALAPPDATA"), "codexusage")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "state", "codexusage")
}

func DefaultCodexHome() string {
	if dir := os.Getenv("CODEX_HOME"); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".codex")
}

// Load reads configuration from configPath (or config.{yaml,json} in
// ConfigDir when empty), then CODEXUSAGE_* environment variables. A missing
// default config file is not an error; a missing explicit one is.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(ConfigDir())
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !(errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.fillDerived()

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("codex_home", DefaultCodexHome())
	// Derived from codex_home when left empty.
	v.SetDefault("sessions_dir", "")
	v.SetDefault("auth_file", "")
	v.SetDefault("bindings_file", filepath.Join(StateDir(), "usage-bindings.json"))

	v.SetDefault("scan.recent_files", 20)
	v.SetDefault("cache.size", 64)

	v.SetDefault("remote.base_url", "https://chatgpt.com/backend-api")
	v.SetDefault("remote.proxy_url", "")
	v.SetDefault("remote.retry_delay", "1s")
	v.SetDefault("remote.timeout", "30s")

	v.SetDefault("metrics.listen", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

func (c *Config) fillDerived() {
	if c.SessionsDir == "" {
		c.SessionsDir = filepath.Join(c.CodexHome, "sessions")
	}
	if c.AuthFile == "" {
		c.AuthFile = filepath.Join(c.CodexHome, "auth.json")
	}
}

func validate(c *Config) error {
	if c.CodexHome == "" {
		return errors.New("codex_home must be set")
	}
	if c.BindingsFile == "" {
		return errors.New("bindings_file must be set")
	}
	if c.Scan.RecentFiles <= 0 {
		return fmt.Errorf("scan.recent_files must be positive, got %d", c.Scan.RecentFiles)
	}
	if c.Cache.Size <= 0 {
		return fmt.Errorf("cache.size must be positive, got %d", c.Cache.Size)
	}
	if c.Remote.RetryDelay < 0 {
		return fmt.Errorf("remote.retry_delay must not be negative, got %s", c.Remote.RetryDelay)
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("log.format must be json or text, got %q", c.Log.Format)
	}
	return nil
}
