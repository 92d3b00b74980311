package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestMatches(t *testing.T) {
	w := &Watcher{pattern: Pattern("TWChatLog", "html")}

	tests := []struct {
		path string
		want bool
	}{
		{"/logs/TWChatLog_2024_03_10.html", true},
		{"TWChatLog_2024_12_31.html", true},
		{"/logs/TWChatLog_2024_03_10.html.bak", false},
		{"/logs/Other_2024_03_10.html", false},
		{"/logs/TWChatLog.html", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := w.Matches(tt.path); got != tt.want {
				t.Errorf("Matches(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestNewRejectsInvalidPattern(t *testing.T) {
	if _, err := New(t.TempDir(), "[unclosed"); err == nil {
		t.Error("New() should reject an invalid pattern")
	}
}

func TestStartWakesOnLogWrite(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir, Pattern("TWChatLog", "html"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Start(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	path := filepath.Join(dir, "TWChatLog_2024_03_10.html")
	if err := os.WriteFile(path, []byte("<html>\r\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-w.Wake():
	case <-time.After(5 * time.Second):
		t.Fatal("no wake-up after writing the day's log")
	}
}
