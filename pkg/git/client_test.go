package git

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestClient_Lock(t *testing.T) {
	tmpDir := t.TempDir()
	client := NewClient(tmpDir, "", nil)
	ctx := context.Background()

	unlock, err := client.Lock(ctx)
	if err != nil {
		t.Fatalf("Failed to acquire lock: %v", err)
	}

	lockPath := filepath.Join(tmpDir, DefaultLockName)
	if _, err := os.Stat(lockPath); os.IsNotExist(err) {
		t.Error("Lock file not created")
	}

	// A second holder times out while the lock is held.
	client.LockTimeout = 30 * time.Millisecond
	if _, err := client.Lock(ctx); !errors.Is(err, ErrLockTimeout) {
		t.Errorf("Expected ErrLockTimeout, got %v", err)
	}

	unlock()

	if _, err := os.Stat(lockPath); !os.IsNotExist(err) {
		t.Error("Lock file not removed after unlock")
	}
}

func TestClient_LockCancelled(t *testing.T) {
	tmpDir := t.TempDir()
	client := NewClient(tmpDir, "vault.lock", nil)
	client.LockTimeout = 0

	unlock, err := client.Lock(context.Background())
	if err != nil {
		t.Fatalf("Failed to acquire lock: %v", err)
	}
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := client.Lock(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected context deadline, got %v", err)
	}
}

func TestClient_Commit(t *testing.T) {
	if !IsInstalled() {
		t.Skip("git not installed")
	}
	tmpDir := t.TempDir()
	client := NewClient(tmpDir, "", nil)
	ctx := context.Background()

	if client.IsRepo(ctx) {
		t.Fatal("Fresh directory should not be a repository")
	}
	if err := client.Init(ctx); err != nil {
		t.Fatalf("Failed to init: %v", err)
	}
	if !client.IsRepo(ctx) {
		t.Fatal("Expected repository after init")
	}

	if err := os.WriteFile(filepath.Join(tmpDir, "note.md"), []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := client.Add(ctx, "note.md"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := client.Commit(ctx, "add note"); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	status, err := client.Status(ctx)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if strings.TrimSpace(status) != "" {
		t.Errorf("Expected clean tree, got %q", status)
	}

	if err := client.Rm(ctx, "note.md"); err != nil {
		t.Fatalf("Rm failed: %v", err)
	}
	if err := client.Commit(ctx, "delete note"); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(tmpDir, "note.md")); !os.IsNotExist(err) {
		t.Error("Expected note.md to be removed")
	}
}
