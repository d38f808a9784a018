package collector

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"pgregory.net/rapid"
	"pkt.systems/pslog"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestIgnoreCollectorReadsPatternFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".gitignore"), "# build output\nbin/\n\n*.log\n!keep.log\n")
	writeFile(t, filepath.Join(dir, ".neopresenceignore"), "secrets.env\n")

	res, err := (&IgnoreCollector{}).Collect(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"bin/", "*.log", "secrets.env"}
	if len(res.IgnorePatterns) != len(want) {
		t.Fatalf("patterns = %v, want %v", res.IgnorePatterns, want)
	}
	for i := range want {
		if res.IgnorePatterns[i] != want[i] {
			t.Errorf("pattern %d = %q, want %q", i, res.IgnorePatterns[i], want[i])
		}
	}
	if len(res.Warnings) != 0 {
		t.Errorf("unexpected warnings %v", res.Warnings)
	}
}

func TestIgnoreCollectorMissingFiles(t *testing.T) {
	res, err := (&IgnoreCollector{Files: []string{"nope"}}).Collect(context.Background(), t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if len(res.IgnorePatterns) != 0 || len(res.Warnings) != 0 {
		t.Errorf("got %+v", res)
	}
}

func TestIgnoreListMatching(t *testing.T) {
	dir := t.TempDir()
	list := NewIgnoreList(dir, []string{"TelescopePrompt"}, []string{"*.log", "vendor/", "/gen/*.go", "build", "tmp*"}, []string{"none"})

	tests := []struct {
		lang string
		path string
		want bool
	}{
		{"TelescopePrompt", "", true},
		{"TelescopePrompt", filepath.Join(dir, "main.go"), true},
		{"go", filepath.Join(dir, "main.go"), false},
		{"", filepath.Join(dir, "debug.log"), true},
		{"", filepath.Join(dir, "sub", "debug.log"), true},
		{"go", filepath.Join(dir, "vendor", "x", "y.go"), true},
		{"go", filepath.Join(dir, "gen", "api.go"), true},
		{"go", filepath.Join(dir, "pkg", "gen", "api.go"), false},
		{"go", filepath.Join(dir, "build", "out", "main.go"), true},
		{"go", filepath.Join(dir, "cmd", "build", "main.go"), true},
		{"go", filepath.Join(dir, "cmd", "build.go"), false},
		{"go", filepath.Join(dir, "tmp-old", "x.go"), true},
		{"", "", false},
	}
	for _, tt := range tests {
		if got := list.Ignored(tt.lang, tt.path); got != tt.want {
			t.Errorf("Ignored(%q, %q) = %v, want %v", tt.lang, tt.path, got, tt.want)
		}
	}
}

func TestIgnoreListReload(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, ".neopresenceignore")
	list := NewIgnoreList(dir, nil, []string{"*.tmp"}, []string{".neopresenceignore"})

	target := filepath.Join(dir, "notes.md")
	if list.Ignored("markdown", target) {
		t.Fatal("ignored before the file exists")
	}

	writeFile(t, file, "*.md\n")
	list.Reload(context.Background())
	if !list.Ignored("markdown", target) {
		t.Fatal("not ignored after reload")
	}
	if !list.Ignored("", filepath.Join(dir, "a.tmp")) {
		t.Error("configured pattern lost on reload")
	}

	os.Remove(file)
	list.Reload(context.Background())
	if list.Ignored("markdown", target) {
		t.Error("still ignored after the file was removed")
	}
}

func TestWatchIgnoreFiles(t *testing.T) {
	dir := t.TempDir()
	list := NewIgnoreList(dir, nil, nil, []string{".neopresenceignore"})

	logger := pslog.NewWithOptions(os.Stderr, pslog.Options{Mode: pslog.ModeStructured, NoColor: true, MinLevel: pslog.ErrorLevel})
	ctx, cancel := context.WithCancel(pslog.ContextWithLogger(context.Background(), logger))
	done := make(chan error, 1)
	go func() { done <- WatchIgnoreFiles(ctx, list) }()
	defer func() {
		cancel()
		<-done
	}()

	target := filepath.Join(dir, "draft.txt")
	deadline := time.Now().Add(3 * time.Second)
	for !list.Ignored("text", target) {
		if time.Now().After(deadline) {
			t.Fatal("pattern file change was not picked up")
		}
		// rewrite until the watcher is registered and sees a write
		writeFile(t, filepath.Join(dir, ".neopresenceignore"), "*.txt\n")
		time.Sleep(50 * time.Millisecond)
	}
}

// Feature: neopresence, ignore patterns filter matching extensions only
func TestIgnorePatternFiltering(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ext := rapid.StringMatching(`[a-z]{2,4}`).Draw(t, "ext")
		other := rapid.StringMatching(`[a-z]{2,4}`).Filter(func(s string) bool { return s != ext }).Draw(t, "other")
		name := rapid.StringMatching(`[a-z]{1,8}`).Draw(t, "name")
		dir := rapid.StringMatching(`[a-z]{1,8}`).Draw(t, "dir")

		list := NewIgnoreList("/work", nil, []string{"*." + ext}, []string{"none"})

		ignored := filepath.Join("/work", dir, name+"."+ext)
		kept := filepath.Join("/work", dir, name+"."+other)
		if !list.Ignored("", ignored) {
			t.Fatalf("%q should be ignored by *.%s", ignored, ext)
		}
		if list.Ignored("", kept) {
			t.Fatalf("%q should not be ignored by *.%s", kept, ext)
		}
	})
}
