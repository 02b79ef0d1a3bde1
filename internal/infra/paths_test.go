package infra

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLockFileBlocksSecondInstance(t *testing.T) {
	dir := t.TempDir()

	unlock, err := CreateLockFile(dir)
	if err != nil {
		t.Fatalf("first lock must succeed: %v", err)
	}

	if _, err := CreateLockFile(dir); err == nil {
		t.Fatal("second lock on the same workspace must fail")
	} else if !strings.Contains(err.Error(), "locked by pid") {
		t.Errorf("lock error should name the holder, got: %v", err)
	}

	unlock()
	if _, err := os.Stat(filepath.Join(dir, "instance.lock")); !os.IsNotExist(err) {
		t.Error("release must remove the lock file")
	}

	// A released workspace can be locked again.
	unlock2, err := CreateLockFile(dir)
	if err != nil {
		t.Fatalf("relock after release must succeed: %v", err)
	}
	unlock2()
}

func TestWorkspaceDirHonorsHomeOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("NU_ALGO_HOME", dir)

	if got := GetWorkspaceDir(); got != dir {
		t.Errorf("expected workspace %s, got %s", dir, got)
	}
}

func TestResolveConfigPathHonorsOverride(t *testing.T) {
	t.Setenv("NU_ALGO_CONFIG", "/etc/nu-algo/custom.yaml")

	if got := ResolveConfigPath(); got != "/etc/nu-algo/custom.yaml" {
		t.Errorf("expected the override path, got %s", got)
	}
}
