package storage

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func resetGlobalDirs() {
	globalDirs = nil
	globalDirsErr = nil
	globalDirsOnce = sync.Once{}
}

func TestResolveDirs(t *testing.T) {
	dirs, err := ResolveDirs()
	if err != nil {
		t.Fatalf("ResolveDirs failed: %v", err)
	}

	if dirs.Config == "" {
		t.Error("Config dir should not be empty")
	}
	if dirs.Data == "" {
		t.Error("Data dir should not be empty")
	}
	if dirs.State == "" {
		t.Error("State dir should not be empty")
	}

	if !strings.Contains(dirs.Config, "loom") {
		t.Errorf("Config dir should contain 'loom': %s", dirs.Config)
	}
}

func TestResolveDirsXDGOverride(t *testing.T) {
	resetGlobalDirs()

	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmpDir)

	dirs, err := ResolveDirs()
	if err != nil {
		t.Fatalf("ResolveDirs failed: %v", err)
	}

	expected := filepath.Join(tmpDir, "loom")
	if dirs.Config != expected {
		t.Errorf("XDG override failed: got %s, want %s", dirs.Config, expected)
	}
}

func TestResolveProjectDirs(t *testing.T) {
	projectRoot := filepath.Join("test", "project")
	dirs := ResolveProjectDirs(projectRoot)

	if dirs.Root != filepath.Join(projectRoot, ".loom") {
		t.Errorf("Root: got %s, want %s", dirs.Root, filepath.Join(projectRoot, ".loom"))
	}
	if dirs.Config != filepath.Join(projectRoot, ".loom", "config.yaml") {
		t.Errorf("Config: got %s", dirs.Config)
	}
	if dirs.Local != filepath.Join(projectRoot, ".loom", "local") {
		t.Errorf("Local: got %s", dirs.Local)
	}
}

func TestProjectHash(t *testing.T) {
	h1 := ProjectHash("/some/project")
	h2 := ProjectHash("/some/project")
	h3 := ProjectHash("/other/project")

	if h1 != h2 {
		t.Error("ProjectHash should be deterministic")
	}
	if h1 == h3 {
		t.Error("ProjectHash should differ per path")
	}
	if len(h1) != 16 {
		t.Errorf("ProjectHash length: got %d, want 16", len(h1))
	}
}

func TestEnsureAll(t *testing.T) {
	tmpDir := t.TempDir()
	dirs := &Dirs{
		Config: filepath.Join(tmpDir, "config"),
		Data:   filepath.Join(tmpDir, "data"),
		State:  filepath.Join(tmpDir, "state"),
	}

	if err := dirs.EnsureAll(); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	for _, dir := range []string{dirs.Config, dirs.Data, dirs.State, dirs.LogDir()} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Errorf("expected directory %s: %v", dir, err)
			continue
		}
		if !info.IsDir() {
			t.Errorf("%s is not a directory", dir)
		}
	}
}
