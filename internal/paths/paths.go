package paths

import (
	"os"
	"path/filepath"
)

func homeDir() string {
	if h := os.Getenv("HOME"); h != "" {
		return h
	}
	h, _ := os.UserHomeDir()
	return h
}

// AppDir returns the notchbridge state directory. Everything the two
// processes share lives directly under the invoking user's home so the
// paths stay stable across app sandboxing ($NOTCHBRIDGE_HOME overrides).
func AppDir() string {
	if v := os.Getenv("NOTCHBRIDGE_HOME"); v != "" {
		return v
	}
	return filepath.Join(homeDir(), ".notchbridge")
}

// SocketPath returns the path of the display process's ingestion socket.
func SocketPath() string {
	return filepath.Join(AppDir(), "notch.sock")
}

// PendingStorePath returns the path of the pending-action backing file.
func PendingStorePath() string {
	return filepath.Join(AppDir(), "pending_actions.json")
}

// PendingLockPath returns the path of the advisory lock file guarding the
// pending-action backing file. Its contents are irrelevant; only the flock
// handle matters.
func PendingLockPath() string {
	return filepath.Join(AppDir(), "pending_actions.lock")
}

// ConfigFile returns the path to config.toml.
func ConfigFile() string {
	return filepath.Join(AppDir(), "config.toml")
}

// DiffDir returns the directory where hook diff previews are written for
// the given project.
func DiffDir(project string) string {
	return filepath.Join(AppDir(), "diffs", project)
}

// EnsureDir creates a directory and parents if needed.
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0700)
}
