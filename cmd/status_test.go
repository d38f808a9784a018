package cmd

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/VanillaViking/neopresence/internal/presence"
	"github.com/VanillaViking/neopresence/internal/presence/feed"
)

func newFeed(t *testing.T) (*feed.Hub, string) {
	t.Helper()
	hub := feed.NewHub(newLogger(os.Stderr, "error"))
	srv := httptest.NewServer(hub)
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return hub, srv.Listener.Addr().String()
}

func publish(t *testing.T, hub *feed.Hub) {
	t.Helper()
	err := hub.Update(context.Background(), presence.Activity{
		Details:   "Editing main.go",
		State:     "2 additions, 1 deletions in 1 files",
		StartedAt: time.Now().Add(-time.Minute),
		Additions: 2,
		Deletions: 1,
		Files:     1,
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestStatusPrintsPresence(t *testing.T) {
	isolate(t, "")
	hub, addr := newFeed(t)
	publish(t, hub)

	tests := []struct {
		format string
		want   string
	}{
		{"text", "2 additions, 1 deletions in 1 files"},
		{"json", `"details": "Editing main.go"`},
		{"markdown", "Editing main.go"},
	}
	for _, tt := range tests {
		out, err := executeCommand(rootCmd, "status", "--addr", addr, "--format", tt.format, "--timeout", "3s")
		if err != nil {
			t.Fatalf("status --format %s: %v", tt.format, err)
		}
		if !strings.Contains(out, tt.want) {
			t.Errorf("status --format %s: output missing %q:\n%s", tt.format, tt.want, out)
		}
	}
}

func TestStatusWithoutPresence(t *testing.T) {
	isolate(t, "")
	_, addr := newFeed(t)

	out, err := executeCommand(rootCmd, "status", "--addr", addr, "--format", "text", "--timeout", "200ms")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "No active presence.") {
		t.Errorf("output:\n%s", out)
	}
}

func TestStatusNoDaemon(t *testing.T) {
	isolate(t, "")
	_, err := executeCommand(rootCmd, "status", "--addr", "127.0.0.1:1", "--format", "text", "--timeout", "1s")
	if err == nil || !strings.Contains(err.Error(), "no daemon reachable") {
		t.Errorf("expected dial error, got %v", err)
	}
}

func TestStatusFeedDisabled(t *testing.T) {
	isolate(t, "feed:\n  addr: \"off\"\n")
	_, err := executeCommand(rootCmd, "status", "--addr", "", "--format", "text")
	if err == nil || !strings.Contains(err.Error(), "disabled") {
		t.Errorf("expected disabled error, got %v", err)
	}
}

func TestMonitorPlain(t *testing.T) {
	isolate(t, "")
	hub, addr := newFeed(t)
	publish(t, hub)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	out, err := executeCommandContext(ctx, rootCmd, "monitor", "--plain", "--addr", addr)
	if err != nil {
		t.Fatalf("monitor: %v", err)
	}
	if !strings.Contains(out, "Editing main.go") {
		t.Errorf("output:\n%s", out)
	}
}

func TestDiffCommand(t *testing.T) {
	dir := isolate(t, "")
	a := filepath.Join(dir, "old.txt")
	b := filepath.Join(dir, "new.txt")
	os.WriteFile(a, []byte("a\nb\nc\n"), 0o644)
	os.WriteFile(b, []byte("a\nc\nd\ne\n"), 0o644)

	out, err := executeCommand(rootCmd, "diff", a, b)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "2 additions, 1 deletions") {
		t.Errorf("output: %q", out)
	}

	if _, err := executeCommand(rootCmd, "diff", a, filepath.Join(dir, "missing")); err == nil || !strings.Contains(err.Error(), "file not found") {
		t.Errorf("expected file not found, got %v", err)
	}
}

func TestSetupWritesGlobalConfig(t *testing.T) {
	isolate(t, "")
	answers := strings.Join([]string{"", "30s", "", "y", "", "", "n"}, "\n") + "\n"
	rootCmd.SetIn(strings.NewReader(answers))
	t.Cleanup(func() { rootCmd.SetIn(nil) })

	out, err := executeCommand(rootCmd, "setup")
	if err != nil {
		t.Fatalf("setup: %v\n%s", err, out)
	}
	home := os.Getenv("HOME")
	data, err := os.ReadFile(filepath.Join(home, ".config", "neopresence", "config.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "interval: 30s") {
		t.Errorf("config:\n%s", data)
	}
	if !strings.Contains(out, "Config saved") {
		t.Errorf("output:\n%s", out)
	}
}
