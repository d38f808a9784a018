package collector

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"pkt.systems/pslog"
)

// DefaultIgnoreFiles are read from the working directory when no other
// ignore files are configured.
var DefaultIgnoreFiles = []string{".gitignore", ".neopresenceignore"}

// IgnoreCollector reads gitignore-style pattern files from the working
// directory.
type IgnoreCollector struct {
	Files []string // file names relative to workDir; DefaultIgnoreFiles if empty
}

// Collect implements Collector. Missing files are skipped; unreadable ones
// produce a warning.
func (ic *IgnoreCollector) Collect(ctx context.Context, workDir string) (CollectorResult, error) {
	files := ic.Files
	if len(files) == 0 {
		files = DefaultIgnoreFiles
	}
	var res CollectorResult
	for _, name := range files {
		p := name
		if !filepath.IsAbs(p) {
			p = filepath.Join(workDir, name)
		}
		extra, err := readPatternFile(p)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			res.Warnings = append(res.Warnings, "failed to load ignore patterns from "+name+": "+err.Error())
			continue
		}
		res.IgnorePatterns = append(res.IgnorePatterns, extra...)
	}
	return res, nil
}

// IgnoreList decides which editor buffers are left out of the session. A
// buffer is ignored when its language id is listed or its path matches one of
// the glob patterns. It is safe for concurrent use.
type IgnoreList struct {
	workDir   string
	languages map[string]bool
	static    []string
	files     IgnoreCollector

	mu       sync.RWMutex
	patterns []string
}

// NewIgnoreList builds a list from configured language ids and patterns plus
// the pattern files found in workDir.
func NewIgnoreList(workDir string, languageIDs, patterns, files []string) *IgnoreList {
	l := &IgnoreList{
		workDir:   workDir,
		languages: make(map[string]bool, len(languageIDs)),
		static:    slices.Clone(patterns),
		files:     IgnoreCollector{Files: files},
	}
	for _, id := range languageIDs {
		l.languages[id] = true
	}
	l.patterns = slices.Clone(l.static)
	return l
}

// Reload re-reads the pattern files. It returns the warnings produced while
// reading.
func (l *IgnoreList) Reload(ctx context.Context) []string {
	res, _ := l.files.Collect(ctx, l.workDir)
	patterns := append(slices.Clone(l.static), res.IgnorePatterns...)

	l.mu.Lock()
	l.patterns = patterns
	l.mu.Unlock()
	return res.Warnings
}

// Patterns returns the active glob patterns.
func (l *IgnoreList) Patterns() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.patterns)
}

// Ignored reports whether a buffer with the given language id and path
// should be left out.
func (l *IgnoreList) Ignored(languageID, path string) bool {
	if languageID != "" && l.languages[languageID] {
		return true
	}
	if path == "" {
		return false
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.isIgnored(path, l.patterns)
}

// isIgnored reports whether path matches any of the given glob patterns.
func (l *IgnoreList) isIgnored(path string, patterns []string) bool {
	// Normalise to a relative path for matching when possible.
	rel := path
	if l.workDir != "" {
		if r, err := filepath.Rel(l.workDir, path); err == nil {
			rel = r
		}
	}
	base := filepath.Base(path)

	for _, pattern := range patterns {
		// gitignore directory entries ("vendor/") match anything below them.
		if dir, ok := strings.CutSuffix(pattern, "/"); ok {
			if slices.Contains(strings.Split(filepath.ToSlash(rel), "/"), strings.TrimPrefix(dir, "/")) {
				return true
			}
			continue
		}
		// anchored to the working directory
		if anchored, ok := strings.CutPrefix(pattern, "/"); ok && rel != path {
			if matched, _ := filepath.Match(anchored, rel); matched {
				return true
			}
		}
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
		// a slash-less entry also names directories at any depth
		if !strings.Contains(pattern, "/") && rel != path {
			parts := strings.Split(filepath.ToSlash(rel), "/")
			for _, dir := range parts[:len(parts)-1] {
				if matched, _ := filepath.Match(pattern, dir); matched {
					return true
				}
			}
		}
		if matched, _ := filepath.Match(pattern, rel); matched {
			return true
		}
		if matched, _ := filepath.Match(pattern, path); matched {
			return true
		}
	}
	return false
}

// WatchIgnoreFiles reloads list whenever one of its pattern files changes in
// the working directory, until ctx is cancelled.
func WatchIgnoreFiles(ctx context.Context, list *IgnoreList) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	dir := list.workDir
	if dir == "" {
		dir = "."
	}
	// Watch the directory rather than the files so that editors which
	// replace a file on save (and files created later) are picked up.
	if err := watcher.Add(dir); err != nil {
		return err
	}

	names := list.files.Files
	if len(names) == 0 {
		names = DefaultIgnoreFiles
	}
	watched := make(map[string]bool, len(names))
	for _, n := range names {
		watched[filepath.Base(n)] = true
	}

	log := pslog.Ctx(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !watched[filepath.Base(event.Name)] {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			for _, w := range list.Reload(ctx) {
				log.Warn("ignore file", "warning", w)
			}
			log.Debug("ignore patterns reloaded", "file", event.Name, "patterns", len(list.Patterns()))

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			// Watcher errors are non-fatal; continue watching.
			log.With("err", err).Warn("ignore file watcher")
		}
	}
}

// readPatternFile reads a gitignore-style file and returns non-empty, non-comment lines.
func readPatternFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "!") {
			continue
		}
		patterns = append(patterns, line)
	}
	return patterns, scanner.Err()
}
