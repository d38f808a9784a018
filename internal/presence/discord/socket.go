package discord

import (
	"context"
	"errors"
	"fmt"
	"net"
	"path/filepath"
)

// ErrNoSocket is returned when no Discord IPC socket accepts a connection.
var ErrNoSocket = errors.New("discord: no ipc socket found")

// socketCount is the number of discord-ipc-N slots a client may use.
const socketCount = 10

// SearchDirs lists the directories that may hold Discord's IPC socket, in
// the order they are tried. getenv is usually os.Getenv.
func SearchDirs(getenv func(string) string) []string {
	var bases []string
	for _, key := range []string{"XDG_RUNTIME_DIR", "TMPDIR", "TMP", "TEMP"} {
		if v := getenv(key); v != "" {
			bases = append(bases, v)
		}
	}
	bases = append(bases, "/tmp")

	seen := make(map[string]bool)
	var dirs []string
	for _, base := range bases {
		// flatpak and snap installs keep the socket in a sub-directory
		for _, dir := range []string{
			base,
			filepath.Join(base, "app", "com.discordapp.Discord"),
			filepath.Join(base, "snap.discord"),
		} {
			if !seen[dir] {
				seen[dir] = true
				dirs = append(dirs, dir)
			}
		}
	}
	return dirs
}

// SocketPaths expands dirs into every candidate socket path.
func SocketPaths(dirs []string) []string {
	paths := make([]string, 0, len(dirs)*socketCount)
	for _, dir := range dirs {
		for i := 0; i < socketCount; i++ {
			paths = append(paths, filepath.Join(dir, fmt.Sprintf("discord-ipc-%d", i)))
		}
	}
	return paths
}

// dialFirst connects to the first socket in paths that accepts.
func dialFirst(ctx context.Context, paths []string) (net.Conn, string, error) {
	var d net.Dialer
	for _, p := range paths {
		conn, err := d.DialContext(ctx, "unix", p)
		if err == nil {
			return conn, p, nil
		}
		if ctx.Err() != nil {
			return nil, "", ctx.Err()
		}
	}
	return nil, "", ErrNoSocket
}
