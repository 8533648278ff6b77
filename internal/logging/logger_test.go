package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDisabledLoggingIsNoOp(t *testing.T) {
	dir := t.TempDir()
	if err := Initialize(dir, false, "info"); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	defer CloseAll()

	Store("this should go nowhere")
	Get(CategoryObserver).Error("neither should this")

	if _, err := os.Stat(filepath.Join(dir, "logs")); !os.IsNotExist(err) {
		t.Fatal("logs directory created in production mode")
	}
}

func TestCategoryFilesWritten(t *testing.T) {
	dir := t.TempDir()
	if err := Initialize(dir, true, "debug"); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	defer CloseAll()

	Store("captured WIKAI_0001")
	StoreDebug("slug computed")
	Observer("promoted candidate")

	entries, err := os.ReadDir(filepath.Join(dir, "logs"))
	if err != nil {
		t.Fatalf("ReadDir error = %v", err)
	}

	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	joined := strings.Join(names, " ")
	for _, want := range []string{"_store.log", "_observer.log", "_boot.log"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("log files = %v, want a file ending in %s", names, want)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	dir := t.TempDir()
	if err := Initialize(dir, true, "warn"); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	defer CloseAll()

	l := Get(CategoryQuery)
	l.Info("filtered out")
	l.Warn("kept")

	data, err := os.ReadFile(filepath.Join(dir, "logs", filepathGlobOne(t, dir)))
	if err != nil {
		t.Fatalf("ReadFile error = %v", err)
	}
	if strings.Contains(string(data), "filtered out") {
		t.Fatal("info message written at warn level")
	}
	if !strings.Contains(string(data), "kept") {
		t.Fatal("warn message missing")
	}
}

// filepathGlobOne finds the query category log file name for the day.
func filepathGlobOne(t *testing.T, dir string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, "logs", "*_query.log"))
	if err != nil || len(matches) != 1 {
		t.Fatalf("query log file not found (matches=%v, err=%v)", matches, err)
	}
	return filepath.Base(matches[0])
}
