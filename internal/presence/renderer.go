package presence

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Renderer serializes an Activity to bytes.
type Renderer interface {
	Render(a *Activity) ([]byte, error)
}

// RendererFor returns the renderer for a format name: "text", "json" or
// "markdown".
func RendererFor(format string) (Renderer, error) {
	switch format {
	case "", "text":
		return &TextRenderer{}, nil
	case "json":
		return &JSONRenderer{}, nil
	case "markdown", "md":
		return &MarkdownRenderer{}, nil
	}
	return nil, fmt.Errorf("unknown format %q (want text, json or markdown)", format)
}

// JSONRenderer renders an Activity as indented JSON.
type JSONRenderer struct{}

func (r *JSONRenderer) Render(a *Activity) ([]byte, error) {
	return json.MarshalIndent(a, "", "  ")
}

// TextRenderer renders the two presence lines followed by the elapsed time
// and repository link.
type TextRenderer struct {
	// Now is used for the elapsed time; time.Now when nil.
	Now func() time.Time
}

func (r *TextRenderer) Render(a *Activity) ([]byte, error) {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	var sb strings.Builder
	sb.WriteString(a.Details)
	sb.WriteString("\n")
	sb.WriteString(a.State)
	sb.WriteString("\n")
	if !a.StartedAt.IsZero() {
		fmt.Fprintf(&sb, "%s elapsed\n", Elapsed(a.StartedAt, now()))
	}
	if a.RepoURL != "" {
		fmt.Fprintf(&sb, "Repository: %s\n", a.RepoURL)
	}
	return []byte(sb.String()), nil
}

// MarkdownRenderer renders an Activity with a per-file table.
type MarkdownRenderer struct{}

func (r *MarkdownRenderer) Render(a *Activity) ([]byte, error) {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# %s\n\n", a.Details)
	fmt.Fprintf(&sb, "- %s\n", a.State)
	if !a.StartedAt.IsZero() {
		fmt.Fprintf(&sb, "- Started: %s\n", a.StartedAt.Format("2006-01-02 15:04:05 MST"))
	}
	if a.RepoURL != "" {
		fmt.Fprintf(&sb, "- Repository: %s\n", a.RepoURL)
	}
	sb.WriteString("\n")

	sb.WriteString("## Files\n\n")
	if len(a.FileStats) == 0 {
		sb.WriteString("_No files touched._\n")
		return []byte(sb.String()), nil
	}
	sb.WriteString("| File | Additions | Deletions |\n")
	sb.WriteString("|------|-----------|-----------|\n")
	for _, f := range a.FileStats {
		name := f.Name
		if name == a.ActiveFile {
			name = "**" + name + "**"
		}
		fmt.Fprintf(&sb, "| %s | %d | %d |\n", name, f.Additions, f.Deletions)
	}
	return []byte(sb.String()), nil
}

// Elapsed formats the time since start as h:mm:ss or m:ss.
func Elapsed(start, now time.Time) string {
	d := now.Sub(start)
	if d < 0 {
		d = 0
	}
	secs := int(d / time.Second)
	h, m, s := secs/3600, (secs/60)%60, secs%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
