// Package config resolves planner settings from defaults, an optional
// planner.yaml, PLANNER_* environment variables and command-line flags, in
// increasing precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	KeyDB           = "db"
	KeyColumns      = "columns"
	KeyLogLevel     = "log_level"
	KeyLogFile      = "log_file"
	KeyRedisURL     = "redis_url"
	KeyRedisChannel = "redis_channel"
	KeyWatchDelay   = "watch_delay"
)

type Config struct {
	DB           string        `mapstructure:"db" json:"db"`
	Columns      int           `mapstructure:"columns" json:"columns"`
	LogLevel     string        `mapstructure:"log_level" json:"logLevel"`
	LogFile      string        `mapstructure:"log_file" json:"logFile,omitempty"`
	RedisURL     string        `mapstructure:"redis_url" json:"redisUrl,omitempty"`
	RedisChannel string        `mapstructure:"redis_channel" json:"redisChannel"`
	WatchDelay   time.Duration `mapstructure:"watch_delay" json:"watchDelay"`

	// File is the config file that was read, if any.
	File string `mapstructure:"-" json:"file,omitempty"`
}

// Dir is the per-user planner directory (~/.planner).
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".planner"), nil
}

// Loader wraps one viper instance so flags can be bound before Load.
type Loader struct {
	v *viper.Viper
}

func NewLoader() *Loader {
	v := viper.New()
	v.SetDefault(KeyDB, defaultDBPath())
	v.SetDefault(KeyColumns, 3)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFile, "")
	v.SetDefault(KeyRedisURL, "")
	v.SetDefault(KeyRedisChannel, "planner:changes")
	v.SetDefault(KeyWatchDelay, 150*time.Millisecond)

	v.SetConfigName("planner") // .yaml is implicit
	v.SetConfigType("yaml")
	v.SetEnvPrefix("PLANNER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	return &Loader{v: v}
}

// BindFlags makes the named flags override file and environment values
// when they are set on the command line. Flag names use dashes.
func (l *Loader) BindFlags(fs *pflag.FlagSet, keys ...string) error {
	for _, key := range keys {
		f := fs.Lookup(strings.ReplaceAll(key, "_", "-"))
		if f == nil {
			return fmt.Errorf("config: no flag for %q", key)
		}
		if err := l.v.BindPFlag(key, f); err != nil {
			return err
		}
	}
	return nil
}

// Load reads file when given, otherwise searches PLANNER_CONFIG_PATH, the
// working directory and ~/.planner for planner.yaml. A missing config file
// is not an error.
func (l *Loader) Load(file string) (Config, error) {
	if file != "" {
		l.v.SetConfigFile(file)
	} else {
		if override := os.Getenv("PLANNER_CONFIG_PATH"); override != "" {
			l.v.AddConfigPath(override)
		}
		l.v.AddConfigPath(".")
		if dir, err := Dir(); err == nil {
			l.v.AddConfigPath(dir)
		}
	}

	if err := l.v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.File = l.v.ConfigFileUsed()
	cfg.DB = expandHome(cfg.DB)
	cfg.LogFile = expandHome(cfg.LogFile)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DB) == "" {
		return errors.New("config: db path is empty")
	}
	if c.Columns < 1 {
		return fmt.Errorf("config: columns must be at least 1 (got %d)", c.Columns)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.WatchDelay < 0 {
		return fmt.Errorf("config: watch_delay must not be negative")
	}
	return nil
}

// ParseLevel maps debug|info|warn|error to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("config: unknown log level %q (want debug|info|warn|error)", s)
	}
	return lvl, nil
}

func defaultDBPath() string {
	dir, err := Dir()
	if err != nil {
		return "planner.sqlite"
	}
	return filepath.Join(dir, "planner.sqlite")
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
