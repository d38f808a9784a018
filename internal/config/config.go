package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

// FeedOff as feed.addr disables the live feed.
const FeedOff = "off"

// ProjectFile is the per-project config file, read from the working directory.
const ProjectFile = ".neopresence.yaml"

// Config holds all configurable neopresence settings.
type Config struct {
	Interval   time.Duration `yaml:"interval,omitempty"`
	RetryDelay time.Duration `yaml:"retry_delay,omitempty"`
	Discord    Discord       `yaml:"discord,omitempty"`
	Feed       Feed          `yaml:"feed,omitempty"`
	Ignore     Ignore        `yaml:"ignore,omitempty"`
	Diff       Diff          `yaml:"diff,omitempty"`
	Log        Log           `yaml:"log,omitempty"`
}

type Discord struct {
	ClientID   string `yaml:"client_id,omitempty"`
	LargeImage string `yaml:"large_image,omitempty"`
	LargeText  string `yaml:"large_text,omitempty"`
}

type Feed struct {
	Addr string `yaml:"addr,omitempty"` // "off" disables
}

type Ignore struct {
	LanguageIDs []string `yaml:"language_ids,omitempty"`
	Patterns    []string `yaml:"patterns,omitempty"`
	File        string   `yaml:"file,omitempty"`
}

type Diff struct {
	MaxEditPercent int `yaml:"max_edit_percent,omitempty"` // 100 = uncapped
}

type Log struct {
	Level    string `yaml:"level,omitempty"` // trace|debug|info|error
	ToEditor bool   `yaml:"to_editor,omitempty"`
}

// Defaults returns sensible default configuration values.
func Defaults() Config {
	return Config{
		Interval:   15 * time.Second,
		RetryDelay: 5 * time.Second,
		Discord: Discord{
			LargeImage: "nvim",
			LargeText:  "Neovim",
		},
		Feed: Feed{Addr: "127.0.0.1:7878"},
		Ignore: Ignore{
			LanguageIDs: []string{"cmp_docs", "TelescopeResults", "TelescopePrompt", "cmp_menu"},
			Patterns:    []string{},
			File:        ".neopresenceignore",
		},
		Diff: Diff{MaxEditPercent: 100},
		Log:  Log{Level: "info"},
	}
}

// FeedEnabled reports whether the live feed should be served.
func (c Config) FeedEnabled() bool {
	return c.Feed.Addr != "" && c.Feed.Addr != FeedOff
}

// Validate checks a merged config.
func (c Config) Validate() error {
	var errs []error
	if c.Interval <= 0 {
		errs = append(errs, fmt.Errorf("interval must be positive, got %s", c.Interval))
	}
	if c.RetryDelay <= 0 {
		errs = append(errs, fmt.Errorf("retry_delay must be positive, got %s", c.RetryDelay))
	}
	if c.Diff.MaxEditPercent < 1 || c.Diff.MaxEditPercent > 100 {
		errs = append(errs, fmt.Errorf("diff.max_edit_percent must be between 1 and 100, got %d", c.Diff.MaxEditPercent))
	}
	if !slices.Contains([]string{"trace", "debug", "info", "error"}, c.Log.Level) {
		errs = append(errs, fmt.Errorf("unknown log.level %q", c.Log.Level))
	}
	return errors.Join(errs...)
}

// GlobalPath returns ~/.config/neopresence/config.yaml.
func GlobalPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "neopresence", "config.yaml"), nil
}

// LoadGlobal reads ~/.config/neopresence/config.yaml.
// Returns defaults if the file is absent.
func LoadGlobal() (*Config, error) {
	path, err := GlobalPath()
	if err != nil {
		return nil, err
	}
	return loadFile(path, true)
}

// LoadProject reads .neopresence.yaml in the current working directory.
// Returns nil (no error) if the file is absent.
func LoadProject() (*Config, error) {
	return loadFile(ProjectFile, false)
}

// loadFile reads and parses a YAML config file at path.
// If returnDefaults is true, returns defaults when the file is absent.
// If returnDefaults is false, returns nil when the file is absent.
func loadFile(path string, returnDefaults bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if returnDefaults {
				d := Defaults()
				return &d, nil
			}
			return nil, nil
		}
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return &cfg, nil
}

// SaveGlobal writes cfg to the global config file, creating the directory if
// needed. It returns the path written.
func SaveGlobal(cfg Config) (string, error) {
	path, err := GlobalPath()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}
	return path, os.WriteFile(path, data, 0o644)
}

// Merge combines global and project configs, with project taking precedence.
// Missing keys fall back to global, then defaults.
func Merge(global, project *Config) Config {
	result := Defaults()
	apply(&result, global)
	apply(&result, project)
	return result
}

// apply copies every key set in src over dst.
func apply(dst, src *Config) {
	if src == nil {
		return
	}
	if src.Interval != 0 {
		dst.Interval = src.Interval
	}
	if src.RetryDelay != 0 {
		dst.RetryDelay = src.RetryDelay
	}
	setString(&dst.Discord.ClientID, src.Discord.ClientID)
	setString(&dst.Discord.LargeImage, src.Discord.LargeImage)
	setString(&dst.Discord.LargeText, src.Discord.LargeText)
	setString(&dst.Feed.Addr, src.Feed.Addr)
	if len(src.Ignore.LanguageIDs) > 0 {
		dst.Ignore.LanguageIDs = src.Ignore.LanguageIDs
	}
	if len(src.Ignore.Patterns) > 0 {
		dst.Ignore.Patterns = src.Ignore.Patterns
	}
	setString(&dst.Ignore.File, src.Ignore.File)
	if src.Diff.MaxEditPercent != 0 {
		dst.Diff.MaxEditPercent = src.Diff.MaxEditPercent
	}
	setString(&dst.Log.Level, src.Log.Level)
	// a project file cannot switch editor logging back off
	if src.Log.ToEditor {
		dst.Log.ToEditor = true
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// ParseError is returned when a config file exists but cannot be parsed.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return "failed to parse config file " + e.Path + ": " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
