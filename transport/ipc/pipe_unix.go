//go:build !windows

package ipc

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"
)

const dialTimeout = 2 * time.Second

// dialIndex connects to the unix socket for the given endpoint index.
// Discord publishes the socket in its runtime directory; sandboxed
// installs (snap, flatpak) expose it under a nested private tmp.
func dialIndex(n int) (net.Conn, error) {
	var lastErr error
	for _, path := range candidatePaths(n) {
		c, err := net.DialTimeout("unix", path, dialTimeout)
		if err == nil {
			return c, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// candidatePaths lists the socket paths probed for endpoint n, most
// common first.
func candidatePaths(n int) []string {
	base := tempDir()
	name := socketName(n)
	return []string{
		filepath.Join(base, name),
		filepath.Join(base, "snap.discord", name),
		filepath.Join(base, "app", "com.discordapp.Discord", name),
	}
}

func socketName(n int) string {
	return fmt.Sprintf("discord-ipc-%d", n)
}

// tempDir resolves the directory Discord puts its sockets in, in the
// order the official client checks: XDG_RUNTIME_DIR, TMPDIR, TMP, TEMP,
// then /tmp.
func tempDir() string {
	for _, key := range []string{"XDG_RUNTIME_DIR", "TMPDIR", "TMP", "TEMP"} {
		if dir := os.Getenv(key); dir != "" {
			return dir
		}
	}
	return "/tmp"
}
