// Package testutil provides utilities for testing sassrun in isolation.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mitchellh/go-homedir"
)

// Env holds the isolated directories created by SetupTestEnv.
type Env struct {
	Home     string
	CacheDir string
	TempDir  string
	WorkDir  string
}

// SetupTestEnv creates isolated test directories for each test.
// This ensures sassrun tests never interfere with:
// - The user's real ~/.sassrun cache
// - SASSRUN_* variables exported in the developer's shell
// - Leftover temporary archives from other tests
//
// TMPDIR points at Env.TempDir, so tests can assert that no transient archive
// survives a run. Cleanup is handled by t.TempDir().
func SetupTestEnv(t *testing.T) *Env {
	t.Helper()

	tmpDir := t.TempDir()
	env := &Env{
		Home:     filepath.Join(tmpDir, "home"),
		CacheDir: filepath.Join(tmpDir, "cache"),
		TempDir:  filepath.Join(tmpDir, "tmp"),
		WorkDir:  filepath.Join(tmpDir, "work"),
	}

	t.Setenv("HOME", env.Home)
	t.Setenv("USERPROFILE", env.Home)
	t.Setenv("TMPDIR", env.TempDir)
	t.Setenv("SASSRUN_CACHE_DIR", env.CacheDir)

	// Unset overrides from the developer's shell
	for _, name := range []string{"SASSRUN_VERSION", "SASSRUN_SKIP", "SASSRUN_WATCH"} {
		t.Setenv(name, "")
	}

	// go-homedir caches the first lookup
	prev := homedir.DisableCache
	homedir.DisableCache = true
	t.Cleanup(func() { homedir.DisableCache = prev })

	for _, dir := range []string{env.Home, env.CacheDir, env.TempDir, env.WorkDir} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			t.Fatalf("failed to create test directory %s: %v", dir, err)
		}
	}

	return env
}

// TempEntries lists what is left in dir. Tests use it to check that no
// temporary archive outlived a fetch.
func TempEntries(t *testing.T, dir string) []string {
	t.Helper()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("failed to read %s: %v", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}
