// Package session holds the in-memory editing session: one record per file
// the editor has reported, the active file and the values fixed at startup.
// A State is not safe for concurrent use; it is owned by the router.
package session

import (
	"sort"
	"time"

	"github.com/VanillaViking/neopresence/internal/diff"
)

// FileRecord is the tracked content of one file. Baseline is set when the
// record is created and never changes afterwards.
type FileRecord struct {
	Baseline string `json:"baseline"`
	Current  string `json:"current"`
}

// FileStat is the per-file contribution to a Snapshot.
type FileStat struct {
	Name      string `json:"name"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
}

// Snapshot is a point-in-time summary of the session. It is derived from
// State on demand and never stored.
type Snapshot struct {
	Additions    int        `json:"additions"`
	Deletions    int        `json:"deletions"`
	FilesTouched int        `json:"files_touched"`
	ActiveFile   string     `json:"active_file,omitempty"` // empty when no file has been seen
	RemoteLabel  string     `json:"remote_label,omitempty"`
	SessionStart time.Time  `json:"session_start"`
	Files        []FileStat `json:"files,omitempty"` // sorted by name
}

// Option configures a State.
type Option func(*State)

// WithMaxEditPercent bounds the diff search to pct percent of the combined
// line count of a file's two versions. Files that differ by more are counted
// as a whole-file replacement. Values outside 1..99 leave the search unbounded.
func WithMaxEditPercent(pct int) Option {
	return func(s *State) {
		s.maxEditPercent = pct
	}
}

// State is the single-writer session table.
type State struct {
	files          map[string]*FileRecord
	active         string
	start          time.Time
	remoteLabel    string
	maxEditPercent int
}

// NewState returns an empty session that started at start. remoteLabel may be
// empty when no repository link is known.
func NewState(start time.Time, remoteLabel string, opts ...Option) *State {
	s := &State{
		files:       make(map[string]*FileRecord),
		start:       start,
		remoteLabel: remoteLabel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RecordOpen notes that filename was opened. An unseen file gets a record with
// empty baseline and current content. An empty filename is ignored.
func (s *State) RecordOpen(filename string) {
	if filename == "" {
		return
	}
	if _, ok := s.files[filename]; !ok {
		s.files[filename] = &FileRecord{}
	}
	s.active = filename
}

// RecordChange stores the full new content of filename. The first content ever
// seen for an unseen file becomes its baseline. An empty filename is ignored.
func (s *State) RecordChange(filename, text string) {
	if filename == "" {
		return
	}
	if rec, ok := s.files[filename]; ok {
		rec.Current = text
	} else {
		s.files[filename] = &FileRecord{Baseline: text}
	}
	s.active = filename
}

// Record returns a copy of the record for filename.
func (s *State) Record(filename string) (FileRecord, bool) {
	rec, ok := s.files[filename]
	if !ok {
		return FileRecord{}, false
	}
	return *rec, true
}

// ActiveFile is the file named by the most recent open or change, or "".
func (s *State) ActiveFile() string { return s.active }

// Len is the number of tracked files.
func (s *State) Len() int { return len(s.files) }

// Snapshot diffs every record against its baseline and sums the results.
// It does not modify s.
func (s *State) Snapshot() Snapshot {
	snap := Snapshot{
		FilesTouched: len(s.files),
		ActiveFile:   s.active,
		RemoteLabel:  s.remoteLabel,
		SessionStart: s.start,
	}
	for name, rec := range s.files {
		del, add := s.count(rec)
		snap.Deletions += del
		snap.Additions += add
		snap.Files = append(snap.Files, FileStat{Name: name, Additions: add, Deletions: del})
	}
	sort.Slice(snap.Files, func(i, j int) bool { return snap.Files[i].Name < snap.Files[j].Name })
	return snap
}

func (s *State) count(rec *FileRecord) (deletions, additions int) {
	return diff.CountPercent(diff.Lines(rec.Baseline), diff.Lines(rec.Current), s.maxEditPercent)
}
