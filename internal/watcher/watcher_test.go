package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestIsImportFile(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/imports/events.csv", true},
		{"/imports/events.CSV", true},
		{"/imports/calendar.ics", true},
		{"/imports/calendar.ICS", true},
		{"/imports/notes.txt", false},
		{"/imports/events.csv.bak", false},
		{"/imports/noextension", false},
	}
	for _, tt := range tests {
		if got := IsImportFile(tt.path); got != tt.want {
			t.Errorf("IsImportFile(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestAddDirectory(t *testing.T) {
	iw, err := NewImportWatcher()
	if err != nil {
		t.Fatalf("Failed to create watcher: %v", err)
	}
	defer iw.Stop()

	dir := t.TempDir()
	if err := iw.AddDirectory(dir, func(string) {}); err != nil {
		t.Fatalf("Failed to watch directory: %v", err)
	}
	if !iw.IsWatching(dir) {
		t.Error("Expected directory to be watched")
	}
	if len(iw.WatchedPaths()) != 1 {
		t.Errorf("Expected 1 watched path, got %d", len(iw.WatchedPaths()))
	}

	if err := iw.AddDirectory(filepath.Join(dir, "missing"), func(string) {}); err == nil {
		t.Error("Expected error for a nonexistent directory")
	}

	file := filepath.Join(dir, "plain.txt")
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}
	if err := iw.AddDirectory(file, func(string) {}); err == nil {
		t.Error("Expected error watching a plain file")
	}
}

func TestWatcherDeliversImportFiles(t *testing.T) {
	iw, err := NewImportWatcher()
	if err != nil {
		t.Fatalf("Failed to create watcher: %v", err)
	}
	defer iw.Stop()

	dir := t.TempDir()
	paths := make(chan string, 10)
	if err := iw.AddDirectory(dir, func(path string) { paths <- path }); err != nil {
		t.Fatalf("Failed to watch directory: %v", err)
	}

	ignored := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(ignored, []byte("skip"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	imported := filepath.Join(dir, "events.csv")
	if err := os.WriteFile(imported, []byte("Subject\n"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	select {
	case got := <-paths:
		if got != imported {
			t.Errorf("Expected callback for %s, got %s", imported, got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for the import callback")
	}
}

func TestStop_Idempotent(t *testing.T) {
	iw, err := NewImportWatcher()
	if err != nil {
		t.Fatalf("Failed to create watcher: %v", err)
	}
	if err := iw.Stop(); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	if err := iw.Stop(); err != nil {
		t.Errorf("Second stop must be a no-op, got %v", err)
	}
}
