package collector

import (
	"context"
	"errors"
	"net/url"
	"os/exec"
	"strings"
)

// GitRunner executes a git command and returns its output.
// This abstraction allows mocking in tests.
type GitRunner func(ctx context.Context, workDir string, args ...string) (string, error)

// GitCollector resolves the repository link from the origin remote.
type GitCollector struct {
	Runner GitRunner // if nil, uses the real git subprocess
	Remote string    // defaults to "origin"
}

// defaultGitRunner runs git as a real subprocess.
func defaultGitRunner(ctx context.Context, workDir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = workDir
	out, err := cmd.Output()
	return string(out), err
}

// Collect implements Collector. Outside a repository, or without the remote,
// it returns a warning and no label.
func (g *GitCollector) Collect(ctx context.Context, workDir string) (CollectorResult, error) {
	runner := g.Runner
	if runner == nil {
		runner = defaultGitRunner
	}
	remote := g.Remote
	if remote == "" {
		remote = "origin"
	}

	// Branch doubles as the "is this a git repo?" check.
	branch, err := runner(ctx, workDir, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		if isExitCode128(err) {
			return CollectorResult{Warnings: []string{"not a git repository"}}, nil
		}
		var notFound *exec.Error
		if errors.As(err, &notFound) {
			return CollectorResult{Warnings: []string{"git not found"}}, nil
		}
		return CollectorResult{}, err
	}

	out, err := runner(ctx, workDir, "remote", "get-url", remote)
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return CollectorResult{
				Branch:   strings.TrimSpace(branch),
				Warnings: []string{"no " + remote + " remote"},
			}, nil
		}
		return CollectorResult{}, err
	}

	return CollectorResult{
		RemoteLabel: NormalizeRemote(out),
		Branch:      strings.TrimSpace(branch),
	}, nil
}

// NormalizeRemote turns a git remote URL into a browsable https URL.
// scp-style and ssh:// remotes are converted, credentials and a trailing
// ".git" are dropped. Unrecognised input yields "".
func NormalizeRemote(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	// git@github.com:owner/repo.git
	if !strings.Contains(raw, "://") {
		at := strings.Index(raw, "@")
		colon := strings.Index(raw, ":")
		if colon <= 0 || (at >= 0 && at > colon) {
			return ""
		}
		host := raw[at+1 : colon]
		path := strings.TrimPrefix(raw[colon+1:], "/")
		if host == "" || path == "" {
			return ""
		}
		return "https://" + host + "/" + strings.TrimSuffix(path, ".git")
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	switch u.Scheme {
	case "http", "https", "ssh", "git", "git+ssh":
	default:
		return ""
	}
	scheme := "https"
	if u.Scheme == "http" {
		scheme = "http"
	}
	host := u.Hostname()
	// keep explicit web ports, drop ssh ones
	if port := u.Port(); port != "" && (u.Scheme == "http" || u.Scheme == "https") {
		host += ":" + port
	}
	path := strings.TrimSuffix(strings.Trim(u.Path, "/"), ".git")
	if path == "" {
		return ""
	}
	return scheme + "://" + host + "/" + path
}

// isExitCode128 reports whether err is an *exec.ExitError with exit code 128.
func isExitCode128(err error) bool {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode() == 128
	}
	return false
}
