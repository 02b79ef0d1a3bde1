package infra

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// AppName names the directories this process writes under.
const AppName = "nu-algo"

// GetWorkspaceDir resolves the workspace root. Everything the process
// writes (event logs, snapshots, the instance lock) lives under this one
// directory so a deployment can be archived or wiped as a unit.
//
// Resolution order: a local _workspace directory (development checkouts),
// the NU_ALGO_HOME override (deployments), then the OS data directory.
func GetWorkspaceDir() string {
	if _, err := os.Stat("_workspace"); err == nil {
		return "_workspace"
	}
	if home := os.Getenv("NU_ALGO_HOME"); home != "" {
		return home
	}

	if runtime.GOOS == "linux" {
		if x := os.Getenv("XDG_DATA_HOME"); x != "" {
			return filepath.Join(x, AppName)
		}
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, ".local", "share", AppName)
		}
		return "_workspace"
	}

	base, err := os.UserConfigDir()
	if err != nil {
		return "_workspace"
	}
	return filepath.Join(base, AppName)
}

// EnsureDir creates the directory path if it does not exist.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// CreateLockFile takes the single-instance lock for a workspace. Two
// processes sharing one event log would break the single-writer
// guarantee, so the second one must refuse to start. Returns the release
// function on success.
func CreateLockFile(workDir string) (func(), error) {
	lockPath := filepath.Join(workDir, "instance.lock")

	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		if os.IsExist(err) {
			holder, _ := os.ReadFile(lockPath)
			return nil, fmt.Errorf("workspace %s is locked by pid %s: refusing to share an event log",
				workDir, strings.TrimSpace(string(holder)))
		}
		return nil, err
	}

	fmt.Fprintf(f, "%d\n", os.Getpid())
	f.Close()

	return func() { os.Remove(lockPath) }, nil
}

// ResolveConfigPath finds the config file. The NU_ALGO_CONFIG override
// wins, then configs/config.yaml in the working directory, then the OS
// config directory. A missing file surfaces as the load error.
func ResolveConfigPath() string {
	if p := os.Getenv("NU_ALGO_CONFIG"); p != "" {
		return p
	}

	local := filepath.Join("configs", "config.yaml")
	if _, err := os.Stat(local); err == nil {
		return local
	}

	if root, err := os.UserConfigDir(); err == nil {
		osPath := filepath.Join(root, AppName, "config.yaml")
		if _, err := os.Stat(osPath); err == nil {
			return osPath
		}
	}
	return local
}
