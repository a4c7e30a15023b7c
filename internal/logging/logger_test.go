package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func resetForTest() {
	loggersMu.Lock()
	loggers = make(map[Category]*Logger)
	loggersMu.Unlock()
	logsDir = ""
}

func TestInitializeDebugModeWritesLogFile(t *testing.T) {
	defer resetForTest()

	tempDir := t.TempDir()
	if err := Initialize(tempDir, Options{DebugMode: true, Level: "debug"}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	Get(CategoryStore).Info("hello %s", "world")

	entries, err := os.ReadDir(filepath.Join(tempDir, "logs"))
	if err != nil {
		t.Fatalf("read logs dir: %v", err)
	}
	found := false
	for _, e := range entries {
		if strings.Contains(e.Name(), "store") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a store log file, got %v", entries)
	}
}

func TestDisabledDebugModeIsNoop(t *testing.T) {
	defer resetForTest()

	tempDir := t.TempDir()
	if err := Initialize(tempDir, Options{DebugMode: false}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	// Should not create a logs directory at all.
	Get(CategoryStore).Info("should not be written")

	if _, err := os.Stat(filepath.Join(tempDir, "logs")); !os.IsNotExist(err) {
		t.Fatalf("expected no logs directory in production mode")
	}
}

func TestCategoryDisabledViaMap(t *testing.T) {
	defer resetForTest()

	tempDir := t.TempDir()
	err := Initialize(tempDir, Options{
		DebugMode:  true,
		Categories: map[string]bool{"store": false},
	})
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	if IsCategoryEnabled(CategoryStore) {
		t.Fatalf("expected store category to be disabled")
	}
	if !IsCategoryEnabled(CategoryScanner) {
		t.Fatalf("expected unmentioned category to default enabled")
	}
}
