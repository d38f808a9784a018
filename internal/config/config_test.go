package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"pgregory.net/rapid"
)

// Feature: neopresence, config merge precedence
func TestConfigMergePrecedence(t *testing.T) {
	// Generator for a non-empty string field value.
	nonEmptyString := rapid.StringMatching(`[a-zA-Z0-9/_.:-]{1,20}`)
	duration := rapid.Custom(func(t *rapid.T) time.Duration {
		return time.Duration(rapid.IntRange(1, 600).Draw(t, "seconds")) * time.Second
	})

	// Each field is independently either empty or a non-empty value.
	configGen := rapid.Custom(func(t *rapid.T) *Config {
		cfg := &Config{}
		if rapid.Bool().Draw(t, "hasInterval") {
			cfg.Interval = duration.Draw(t, "interval")
		}
		if rapid.Bool().Draw(t, "hasClientID") {
			cfg.Discord.ClientID = nonEmptyString.Draw(t, "clientID")
		}
		if rapid.Bool().Draw(t, "hasFeedAddr") {
			cfg.Feed.Addr = nonEmptyString.Draw(t, "feedAddr")
		}
		if rapid.Bool().Draw(t, "hasIgnoreFile") {
			cfg.Ignore.File = nonEmptyString.Draw(t, "ignoreFile")
		}
		if rapid.Bool().Draw(t, "hasLevel") {
			cfg.Log.Level = rapid.SampledFrom([]string{"trace", "debug", "info", "error"}).Draw(t, "level")
		}
		return cfg
	})

	rapid.Check(t, func(t *rapid.T) {
		global := configGen.Draw(t, "global")
		project := configGen.Draw(t, "project")

		merged := Merge(global, project)
		defaults := Defaults()

		checkStringField(t, "Discord.ClientID",
			global.Discord.ClientID, project.Discord.ClientID, defaults.Discord.ClientID,
			merged.Discord.ClientID)
		checkStringField(t, "Feed.Addr",
			global.Feed.Addr, project.Feed.Addr, defaults.Feed.Addr,
			merged.Feed.Addr)
		checkStringField(t, "Ignore.File",
			global.Ignore.File, project.Ignore.File, defaults.Ignore.File,
			merged.Ignore.File)
		checkStringField(t, "Log.Level",
			global.Log.Level, project.Log.Level, defaults.Log.Level,
			merged.Log.Level)

		want := defaults.Interval
		switch {
		case project.Interval != 0:
			want = project.Interval
		case global.Interval != 0:
			want = global.Interval
		}
		if merged.Interval != want {
			t.Fatalf("Interval: expected %s, got %s", want, merged.Interval)
		}
		if err := merged.Validate(); err != nil {
			t.Fatalf("merged config invalid: %v", err)
		}
	})
}

// checkStringField asserts the merge precedence rule for a single string field:
//   - project non-empty  → merged == project
//   - project empty, global non-empty → merged == global
//   - both empty → merged == defaultVal
func checkStringField(t *rapid.T, name, globalVal, projectVal, defaultVal, mergedVal string) {
	t.Helper()
	switch {
	case projectVal != "":
		if mergedVal != projectVal {
			t.Fatalf("%s: both set, expected project value %q, got %q", name, projectVal, mergedVal)
		}
	case globalVal != "":
		if mergedVal != globalVal {
			t.Fatalf("%s: only global set, expected global value %q, got %q", name, globalVal, mergedVal)
		}
	default:
		if mergedVal != defaultVal {
			t.Fatalf("%s: neither set, expected default %q, got %q", name, defaultVal, mergedVal)
		}
	}
}

func TestDefaultsValues(t *testing.T) {
	d := Defaults()
	if d.Interval != 15*time.Second {
		t.Errorf("Interval: want 15s, got %s", d.Interval)
	}
	if d.RetryDelay != 5*time.Second {
		t.Errorf("RetryDelay: want 5s, got %s", d.RetryDelay)
	}
	if d.Discord.LargeImage != "nvim" {
		t.Errorf("LargeImage: want %q, got %q", "nvim", d.Discord.LargeImage)
	}
	if len(d.Ignore.LanguageIDs) != 4 {
		t.Errorf("LanguageIDs: got %v", d.Ignore.LanguageIDs)
	}
	if d.Diff.MaxEditPercent != 100 {
		t.Errorf("MaxEditPercent: want 100, got %d", d.Diff.MaxEditPercent)
	}
	if !d.FeedEnabled() {
		t.Error("feed should be enabled by default")
	}
	if err := d.Validate(); err != nil {
		t.Errorf("defaults invalid: %v", err)
	}
}

func TestValidate(t *testing.T) {
	cfg := Defaults()
	cfg.Interval = 0
	cfg.Diff.MaxEditPercent = 101
	cfg.Log.Level = "loud"
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"interval", "max_edit_percent", "log.level"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestFeedOff(t *testing.T) {
	cfg := Merge(nil, &Config{Feed: Feed{Addr: FeedOff}})
	if cfg.FeedEnabled() {
		t.Error("feed should be disabled")
	}
}

func TestLoadGlobalMissingFileReturnsDefaults(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("HOME", tmp)

	cfg, err := LoadGlobal()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg == nil {
		t.Fatal("expected non-nil config, got nil")
	}
	defaults := Defaults()
	if cfg.Interval != defaults.Interval {
		t.Errorf("Interval: want %s, got %s", defaults.Interval, cfg.Interval)
	}
	if cfg.Feed.Addr != defaults.Feed.Addr {
		t.Errorf("Feed.Addr: want %q, got %q", defaults.Feed.Addr, cfg.Feed.Addr)
	}
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	orig, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(orig) })
}

func TestLoadProjectMissingFileReturnsNil(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := LoadProject()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg != nil {
		t.Errorf("expected nil config, got %+v", cfg)
	}
}

func TestLoadProjectYAML(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	data := `interval: 30s
discord:
  client_id: "1234"
ignore:
  patterns: ["*.log", "vendor/"]
diff:
  max_edit_percent: 40
log:
  to_editor: true
`
	if err := os.WriteFile(filepath.Join(dir, ProjectFile), []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	project, err := LoadProject()
	if err != nil {
		t.Fatal(err)
	}
	cfg := Merge(nil, project)
	if cfg.Interval != 30*time.Second {
		t.Errorf("Interval: got %s", cfg.Interval)
	}
	if cfg.Discord.ClientID != "1234" || cfg.Discord.LargeImage != "nvim" {
		t.Errorf("Discord: got %+v", cfg.Discord)
	}
	if len(cfg.Ignore.Patterns) != 2 || cfg.Ignore.File != ".neopresenceignore" {
		t.Errorf("Ignore: got %+v", cfg.Ignore)
	}
	if cfg.Diff.MaxEditPercent != 40 || !cfg.Log.ToEditor {
		t.Errorf("got %+v", cfg)
	}
}

func TestLoadGlobalParseError(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("HOME", tmp)

	// Write an invalid YAML file where LoadGlobal expects it.
	cfgDir := filepath.Join(tmp, ".config", "neopresence")
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(cfgDir, "config.yaml"), []byte("interval: [unterminated"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadGlobal()
	if err == nil {
		t.Fatal("expected an error for invalid YAML, got nil")
	}
	if !strings.Contains(err.Error(), "config.yaml") {
		t.Errorf("error should mention the file: %v", err)
	}
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Errorf("expected *ParseError, got %T: %v", err, err)
	}
}

func TestSaveGlobalRoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg := Defaults()
	cfg.Discord.ClientID = "42"
	cfg.RetryDelay = 9 * time.Second
	if _, err := SaveGlobal(cfg); err != nil {
		t.Fatal(err)
	}
	got, err := LoadGlobal()
	if err != nil {
		t.Fatal(err)
	}
	if got.Discord.ClientID != "42" || got.RetryDelay != 9*time.Second || got.Interval != cfg.Interval {
		t.Errorf("got %+v", got)
	}
}

func TestRunSetup(t *testing.T) {
	in := strings.NewReader(strings.Join([]string{
		"98765", // client id
		"",      // large image
		"Neovim editor",
		"10s",
		"nonsense", // rejected, asked again
		"2s",
		"n", // no feed
		"50",
		"y",
	}, "\n") + "\n")
	var out strings.Builder

	cfg, err := RunSetup(in, &out, Defaults())
	if err != nil {
		t.Fatalf("RunSetup: %v", err)
	}
	if cfg.Discord.ClientID != "98765" || cfg.Discord.LargeImage != "nvim" || cfg.Discord.LargeText != "Neovim editor" {
		t.Errorf("Discord: got %+v", cfg.Discord)
	}
	if cfg.Interval != 10*time.Second || cfg.RetryDelay != 2*time.Second {
		t.Errorf("durations: got %s %s", cfg.Interval, cfg.RetryDelay)
	}
	if cfg.FeedEnabled() {
		t.Error("feed should be off")
	}
	if cfg.Diff.MaxEditPercent != 50 || !cfg.Log.ToEditor {
		t.Errorf("got %+v", cfg)
	}
	if !strings.Contains(out.String(), "not a positive duration") {
		t.Errorf("missing retry prompt in output:\n%s", out.String())
	}
}

func TestRunSetupEOF(t *testing.T) {
	if _, err := RunSetup(strings.NewReader(""), &strings.Builder{}, Defaults()); err == nil {
		t.Error("expected error on empty input")
	}
}
