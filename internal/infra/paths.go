package infra

import (
	"os"
	"os/user"
	"path/filepath"
	"strings"
)

const (
	// DefaultDataDirName is the data directory under the user's home.
	DefaultDataDirName = ".webmon"

	storeFileName = "webmon.db"
	logFileName   = "webmon.log"
)

// Paths holds every on-disk location used by webmon.
type Paths struct {
	DataDir   string // Encrypted store and key live here
	StorePath string
	KeyPath   string
	LogFile   string
}

// ResolvePaths expands dataDir ("~" allowed) into concrete paths.
// An empty dataDir selects ~/.webmon of the real user.
func ResolvePaths(dataDir string) Paths {
	dir := ExpandHome(dataDir)
	if dir == "" {
		dir = filepath.Join(GetRealUserHome(), DefaultDataDirName)
	}
	return Paths{
		DataDir:   dir,
		StorePath: filepath.Join(dir, storeFileName),
		KeyPath:   filepath.Join(dir, keyFileName),
		LogFile:   filepath.Join(dir, logFileName),
	}
}

// EnsureDataDir creates the data directory with owner-only permissions.
func (p Paths) EnsureDataDir() error {
	return os.MkdirAll(p.DataDir, 0700)
}

// ExpandHome replaces a leading "~" with the real user's home directory.
func ExpandHome(path string) string {
	if path == "~" {
		return GetRealUserHome()
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(GetRealUserHome(), path[2:])
	}
	return path
}

// GetRealUserHome returns the real user's home directory, even when running under sudo.
// Under sudo, os.UserHomeDir() returns /var/root, so we use SUDO_USER to find the real user.
func GetRealUserHome() string {
	if sudoUser := os.Getenv("SUDO_USER"); sudoUser != "" {
		if u, err := user.Lookup(sudoUser); err == nil {
			return u.HomeDir
		}
	}
	home, _ := os.UserHomeDir()
	return home
}
