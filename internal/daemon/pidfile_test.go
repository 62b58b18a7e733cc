package daemon_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Ning0612/devmanager/internal/daemon"
)

func TestPIDFile_WriteAndRead(t *testing.T) {
	pidPath := filepath.Join(t.TempDir(), "run", "serve.pid")
	pidFile := daemon.NewPIDFile(pidPath)

	// Parent directory is created on demand
	if err := pidFile.Write(); err != nil {
		t.Fatalf("Failed to write PID file: %v", err)
	}
	defer pidFile.Remove()

	pid, err := pidFile.Read()
	if err != nil {
		t.Fatalf("Failed to read PID file: %v", err)
	}
	if pid != os.Getpid() {
		t.Errorf("Expected PID %d, got %d", os.Getpid(), pid)
	}
	if pidFile.Path() != pidPath {
		t.Errorf("Path() = %s, want %s", pidFile.Path(), pidPath)
	}
}

func TestPIDFile_IsRunning(t *testing.T) {
	pidFile := daemon.NewPIDFile(filepath.Join(t.TempDir(), "serve.pid"))

	if err := pidFile.Write(); err != nil {
		t.Fatalf("Failed to write PID file: %v", err)
	}
	defer pidFile.Remove()

	running, err := pidFile.IsRunning()
	if err != nil {
		t.Fatalf("Failed to check if running: %v", err)
	}
	if !running {
		t.Error("Expected process to be running")
	}
}

func TestPIDFile_WriteWhileRunning(t *testing.T) {
	pidFile := daemon.NewPIDFile(filepath.Join(t.TempDir(), "serve.pid"))

	if err := pidFile.Write(); err != nil {
		t.Fatalf("Failed to write PID file: %v", err)
	}
	defer pidFile.Remove()

	if err := pidFile.Write(); err == nil {
		t.Error("Expected error when a live server owns the PID file")
	}
}

func TestPIDFile_StaleReplaced(t *testing.T) {
	pidPath := filepath.Join(t.TempDir(), "serve.pid")
	if err := os.WriteFile(pidPath, []byte("999999\n"), 0644); err != nil {
		t.Fatal(err)
	}

	pidFile := daemon.NewPIDFile(pidPath)
	if err := pidFile.Write(); err != nil {
		t.Fatalf("Stale PID file should be replaced: %v", err)
	}
	defer pidFile.Remove()

	pid, _ := pidFile.Read()
	if pid != os.Getpid() {
		t.Errorf("Expected PID %d, got %d", os.Getpid(), pid)
	}
}

func TestPIDFile_ReadMissing(t *testing.T) {
	pidFile := daemon.NewPIDFile(filepath.Join(t.TempDir(), "serve.pid"))

	if _, err := pidFile.Read(); !errors.Is(err, daemon.ErrNotRunning) {
		t.Errorf("Expected ErrNotRunning, got %v", err)
	}
}

func TestPIDFile_ReadInvalid(t *testing.T) {
	pidPath := filepath.Join(t.TempDir(), "serve.pid")
	if err := os.WriteFile(pidPath, []byte("not-a-pid"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := daemon.NewPIDFile(pidPath).Read(); err == nil {
		t.Error("Expected error for invalid PID content")
	}
}

func TestPIDFile_StopStale(t *testing.T) {
	pidPath := filepath.Join(t.TempDir(), "serve.pid")
	if err := os.WriteFile(pidPath, []byte("999999\n"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := daemon.NewPIDFile(pidPath).Stop()
	if !errors.Is(err, daemon.ErrNotRunning) {
		t.Errorf("Expected ErrNotRunning, got %v", err)
	}
	if _, err := os.Stat(pidPath); !os.IsNotExist(err) {
		t.Error("Stale PID file should be removed by Stop")
	}
}

func TestPIDFile_Remove(t *testing.T) {
	pidFile := daemon.NewPIDFile(filepath.Join(t.TempDir(), "serve.pid"))

	if err := pidFile.Write(); err != nil {
		t.Fatalf("Failed to write PID file: %v", err)
	}
	if err := pidFile.Remove(); err != nil {
		t.Fatalf("Failed to remove PID file: %v", err)
	}
	if _, err := os.Stat(pidFile.Path()); !os.IsNotExist(err) {
		t.Error("PID file should not exist after removal")
	}

	// Removing again is fine
	if err := pidFile.Remove(); err != nil {
		t.Errorf("Second Remove failed: %v", err)
	}
}
