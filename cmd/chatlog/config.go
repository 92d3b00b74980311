package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/tinytelemetry/chatlog/internal/duckdb"
	"github.com/tinytelemetry/chatlog/internal/httpserver"
	"github.com/tinytelemetry/chatlog/internal/model"
	"github.com/tinytelemetry/chatlog/internal/rate"
)

const (
	defaultPollInterval        = model.DefaultPollInterval
	defaultUpdateInterval      = model.DefaultUpdateInterval
	defaultViewLimit           = model.DefaultViewLimit
	defaultRateWindow          = model.DefaultRateWindow
	defaultHeaderLines         = model.DefaultHeaderLines
	defaultTimezone            = model.DefaultTimezone
	defaultAPIAddr             = httpserver.DefaultAddr
	defaultInsertBatchSize     = duckdb.DefaultBatchSize
	defaultInsertFlushInterval = duckdb.DefaultFlushInterval
	defaultRetentionDays       = 30 // 0 keeps entries forever
	defaultBackupInterval      = 6 * time.Hour
	defaultBackupKeep          = 8
)

// windowsLogDir is where the game client writes its daily chat logs.
const windowsLogDir = `C:\Nexon\TalesWeaver\ChatLog`

// appConfig is internal runtime configuration.
type appConfig struct {
	LogDir       string        `mapstructure:"log-dir"`
	LogPrefix    string        `mapstructure:"log-prefix"`
	LogExt       string        `mapstructure:"log-ext"`
	Timezone     string        `mapstructure:"timezone"`
	HeaderLines  int           `mapstructure:"header-lines"`
	PollInterval time.Duration `mapstructure:"poll-interval"`
	Watch        bool          `mapstructure:"watch"`
	ViewLimit    int           `mapstructure:"view-limit"`
	RateWindow   time.Duration `mapstructure:"rate-window"`
	RatePattern  string        `mapstructure:"rate-pattern"`

	Channels       []string      `mapstructure:"channels"`
	ShowTime       bool          `mapstructure:"show-time"`
	Vertical       bool          `mapstructure:"vertical"`
	UpdateInterval time.Duration `mapstructure:"update-interval"`

	APIEnabled bool   `mapstructure:"api-enabled"`
	APIAddr    string `mapstructure:"api-addr"`

	ArchiveEnabled      bool          `mapstructure:"archive-enabled"`
	DBPath              string        `mapstructure:"db-path"`
	InsertBatchSize     int           `mapstructure:"insert-batch-size"`
	InsertFlushInterval time.Duration `mapstructure:"insert-flush-interval"`
	RetentionDays       int           `mapstructure:"archive-retention-days"`
	BackupDir           string        `mapstructure:"archive-backup-dir"`
	BackupInterval      time.Duration `mapstructure:"archive-backup-interval"`
	BackupKeep          int           `mapstructure:"archive-backup-keep"`

	ConfigPath string `mapstructure:"-"` // not from config file
}

func defaultLogDir() string {
	if runtime.GOOS == "windows" {
		return windowsLogDir
	}
	return "."
}

// configDefaults lists every key with its default, in the order written by
// "config init".
func configDefaults(home string) []struct {
	Key   string
	Value any
} {
	dataDir := filepath.Join(home, ".local", "share", "chatlog")
	return []struct {
		Key   string
		Value any
	}{
		{"log-dir", defaultLogDir()},
		{"log-prefix", model.DefaultLogPrefix},
		{"log-ext", model.DefaultLogExt},
		{"timezone", defaultTimezone},
		{"header-lines", defaultHeaderLines},
		{"poll-interval", defaultPollInterval},
		{"watch", true},
		{"view-limit", defaultViewLimit},
		{"rate-window", defaultRateWindow},
		{"rate-pattern", rate.DefaultPattern},
		{"channels", []string{"All", "Team", "Club", "System"}},
		{"show-time", false},
		{"vertical", false},
		{"update-interval", defaultUpdateInterval},
		{"api-enabled", false},
		{"api-addr", defaultAPIAddr},
		{"archive-enabled", false},
		{"db-path", filepath.Join(dataDir, "chatlog.duckdb")},
		{"insert-batch-size", defaultInsertBatchSize},
		{"insert-flush-interval", defaultInsertFlushInterval},
		{"archive-retention-days", defaultRetentionDays},
		{"archive-backup-dir", ""},
		{"archive-backup-interval", defaultBackupInterval},
		{"archive-backup-keep", defaultBackupKeep},
	}
}

func defaultConfigPath(home string) string {
	return filepath.Join(home, ".config", "chatlog", "config.yml")
}

func loadConfig(configPath string) (appConfig, error) {
	var cfg appConfig

	home, err := os.UserHomeDir()
	if err != nil {
		return cfg, fmt.Errorf("finding home directory: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("CHATLOG")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	for _, d := range configDefaults(home) {
		v.SetDefault(d.Key, d.Value)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigFile(defaultConfigPath(home))
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFound) && !os.IsNotExist(err) {
			return cfg, err
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	cfg.ConfigPath = v.ConfigFileUsed()

	cfg.LogDir = expandHome(cfg.LogDir, home)
	cfg.DBPath = expandHome(cfg.DBPath, home)
	cfg.BackupDir = expandHome(cfg.BackupDir, home)

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c appConfig) validate() error {
	if strings.TrimSpace(c.LogDir) == "" {
		return fmt.Errorf("log-dir is required")
	}
	if _, err := c.location(); err != nil {
		return err
	}
	if _, err := c.channels(); err != nil {
		return err
	}
	if _, err := rate.New(c.RateWindow, c.RatePattern); err != nil {
		return fmt.Errorf("invalid rate-pattern: %w", err)
	}
	if c.RateWindow < time.Second {
		return fmt.Errorf("rate-window must be at least 1s, got %v", c.RateWindow)
	}
	if c.HeaderLines < 0 {
		return fmt.Errorf("invalid header-lines: %d", c.HeaderLines)
	}
	if c.ViewLimit <= 0 {
		return fmt.Errorf("invalid view-limit: %d", c.ViewLimit)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("invalid poll-interval: %v", c.PollInterval)
	}
	return nil
}

// location resolves the configured timezone used for day boundaries.
func (c appConfig) location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// channels parses the dashboard channel list.
func (c appConfig) channels() ([]model.Channel, error) {
	out := make([]model.Channel, 0, len(c.Channels))
	for _, name := range c.Channels {
		ch, err := model.ParseChannel(name)
		if err != nil {
			return nil, fmt.Errorf("invalid channels entry: %w", err)
		}
		out = append(out, ch)
	}
	return out, nil
}

func expandHome(path, home string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}
