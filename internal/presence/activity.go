// Package presence turns session snapshots into presence records and
// delivers them to sinks such as Discord or the local feed.
package presence

import (
	"fmt"
	"time"

	"github.com/VanillaViking/neopresence/internal/session"
)

// Activity is the record handed to a Sink.
type Activity struct {
	Details   string    `json:"details"`
	State     string    `json:"state"`
	StartedAt time.Time `json:"started_at"`
	RepoURL   string    `json:"repo_url,omitempty"`

	Additions  int                `json:"additions"`
	Deletions  int                `json:"deletions"`
	Files      int                `json:"files"`
	ActiveFile string             `json:"active_file,omitempty"`
	FileStats  []session.FileStat `json:"file_stats,omitempty"`
	SessionID  string             `json:"session_id,omitempty"`
	UpdatedAt  time.Time          `json:"updated_at"`
}

// FromSnapshot formats snap as an Activity.
func FromSnapshot(snap session.Snapshot, sessionID string, now time.Time) Activity {
	return Activity{
		Details:    Details(snap.ActiveFile),
		State:      State(snap.Additions, snap.Deletions, snap.FilesTouched),
		StartedAt:  snap.SessionStart,
		RepoURL:    snap.RemoteLabel,
		Additions:  snap.Additions,
		Deletions:  snap.Deletions,
		Files:      snap.FilesTouched,
		ActiveFile: snap.ActiveFile,
		FileStats:  snap.Files,
		SessionID:  sessionID,
		UpdatedAt:  now,
	}
}

// Details is "Editing <file>", or "Idling" before any file was seen.
func Details(activeFile string) string {
	if activeFile == "" {
		return "Idling"
	}
	return "Editing " + activeFile
}

// State is the one-line edit summary.
func State(additions, deletions, files int) string {
	return fmt.Sprintf("%d additions, %d deletions in %d files", additions, deletions, files)
}

// HealthEvent reports a sink failure to the router.
type HealthEvent struct {
	Err error
	At  time.Time
}
