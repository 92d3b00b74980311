package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tinytelemetry/chatlog/internal/model"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}

	if cfg.LogPrefix != model.DefaultLogPrefix || cfg.LogExt != model.DefaultLogExt {
		t.Errorf("log name = %q.%q", cfg.LogPrefix, cfg.LogExt)
	}
	if cfg.Timezone != "Asia/Tokyo" {
		t.Errorf("Timezone = %q", cfg.Timezone)
	}
	if cfg.HeaderLines != 4 || cfg.ViewLimit != model.DefaultViewLimit {
		t.Errorf("HeaderLines = %d, ViewLimit = %d", cfg.HeaderLines, cfg.ViewLimit)
	}
	if cfg.PollInterval != 500*time.Millisecond || cfg.RateWindow != 3*time.Second {
		t.Errorf("PollInterval = %v, RateWindow = %v", cfg.PollInterval, cfg.RateWindow)
	}
	if !cfg.Watch || cfg.APIEnabled || cfg.ArchiveEnabled {
		t.Errorf("Watch = %v, APIEnabled = %v, ArchiveEnabled = %v", cfg.Watch, cfg.APIEnabled, cfg.ArchiveEnabled)
	}
	if want := filepath.Join(home, ".local", "share", "chatlog", "chatlog.duckdb"); cfg.DBPath != want {
		t.Errorf("DBPath = %q, want %q", cfg.DBPath, want)
	}
	if cfg.ConfigPath != "" {
		t.Errorf("ConfigPath = %q, want empty without a file", cfg.ConfigPath)
	}

	channels, err := cfg.channels()
	if err != nil {
		t.Fatalf("channels: %v", err)
	}
	want := []model.Channel{model.All, model.Team, model.Club, model.System}
	if len(channels) != len(want) {
		t.Fatalf("channels = %v, want %v", channels, want)
	}
	for i := range want {
		if channels[i] != want[i] {
			t.Errorf("channels[%d] = %v, want %v", i, channels[i], want[i])
		}
	}
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("CHATLOG_VIEW_LIMIT", "42")

	path := writeConfig(t, `
log-dir: ~/logs
timezone: UTC
poll-interval: 250ms
channels: [Team, server]
show-time: true
archive-enabled: true
archive-backup-dir: ~/snapshots
`)

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.LogDir != filepath.Join(home, "logs") {
		t.Errorf("LogDir = %q", cfg.LogDir)
	}
	if cfg.BackupDir != filepath.Join(home, "snapshots") {
		t.Errorf("BackupDir = %q", cfg.BackupDir)
	}
	if cfg.PollInterval != 250*time.Millisecond {
		t.Errorf("PollInterval = %v", cfg.PollInterval)
	}
	if cfg.ViewLimit != 42 {
		t.Errorf("ViewLimit = %d, want env override 42", cfg.ViewLimit)
	}
	if !cfg.ShowTime || !cfg.ArchiveEnabled {
		t.Errorf("ShowTime = %v, ArchiveEnabled = %v", cfg.ShowTime, cfg.ArchiveEnabled)
	}
	if cfg.ConfigPath != path {
		t.Errorf("ConfigPath = %q, want %q", cfg.ConfigPath, path)
	}

	loc, err := cfg.location()
	if err != nil || loc != time.UTC {
		t.Errorf("location() = %v, %v", loc, err)
	}
	channels, err := cfg.channels()
	if err != nil || len(channels) != 2 || channels[1] != model.Server {
		t.Errorf("channels() = %v, %v", channels, err)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"timezone", "timezone: Mars/Olympus\n", "invalid timezone"},
		{"channel", "channels: [Guild]\n", "invalid channels entry"},
		{"pattern", "rate-pattern: 'no group'\n", "invalid rate-pattern"},
		{"header lines", "header-lines: -1\n", "invalid header-lines"},
		{"view limit", "view-limit: 0\n", "invalid view-limit"},
		{"rate window", "rate-window: 500ms\n", "rate-window"},
		{"empty log dir", "log-dir: ''\n", "log-dir is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("HOME", t.TempDir())
			_, err := loadConfig(writeConfig(t, tt.body))
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want substring %q", err, tt.want)
			}
		})
	}
}

func TestLoadConfig_MalformedFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	if _, err := loadConfig(writeConfig(t, "log-dir: [unclosed\n")); err == nil {
		t.Error("expected a parse error")
	}
}

func TestWriteDefaultConfig_RoundTrip(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	path := filepath.Join(home, ".config", "chatlog", "config.yml")

	if err := writeDefaultConfig(path, home, false); err != nil {
		t.Fatalf("writeDefaultConfig: %v", err)
	}

	fromFile, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig(written file): %v", err)
	}
	if fromFile.ConfigPath != path {
		t.Errorf("ConfigPath = %q", fromFile.ConfigPath)
	}

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	fromDefaults, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig(defaults): %v", err)
	}

	if fromFile.RatePattern != fromDefaults.RatePattern {
		t.Errorf("RatePattern round trip = %q, want %q", fromFile.RatePattern, fromDefaults.RatePattern)
	}
	if fromFile.PollInterval != fromDefaults.PollInterval || fromFile.BackupInterval != fromDefaults.BackupInterval {
		t.Errorf("durations round trip = %v/%v", fromFile.PollInterval, fromFile.BackupInterval)
	}
	if strings.Join(fromFile.Channels, ",") != strings.Join(fromDefaults.Channels, ",") {
		t.Errorf("Channels round trip = %v", fromFile.Channels)
	}
	if fromFile.DBPath != fromDefaults.DBPath {
		t.Errorf("DBPath round trip = %q", fromFile.DBPath)
	}
}

func TestWriteDefaultConfig_RefusesOverwrite(t *testing.T) {
	home := t.TempDir()
	path := filepath.Join(home, "config.yml")
	if err := os.WriteFile(path, []byte("watch: false\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := writeDefaultConfig(path, home, false); err == nil {
		t.Fatal("expected an error for an existing file")
	}
	if err := writeDefaultConfig(path, home, true); err != nil {
		t.Fatalf("force overwrite: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "log-prefix: TWChatLog") {
		t.Errorf("written config missing defaults:\n%s", data)
	}
}

func TestExpandHome(t *testing.T) {
	if got := expandHome("~/a/b", "/home/u"); got != filepath.Join("/home/u", "a", "b") {
		t.Errorf("expandHome = %q", got)
	}
	if got := expandHome("/abs", "/home/u"); got != "/abs" {
		t.Errorf("expandHome(abs) = %q", got)
	}
}
