package localproc

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Strob0t/AgentForge/internal/port/proc"
)

func TestStartAliveStop(t *testing.T) {
	dir := t.TempDir()
	r := New()

	pid, err := r.Start(context.Background(), proc.StartSpec{
		Dir:     dir,
		Command: "sleep",
		Args:    []string{"30"},
		LogPath: filepath.Join(dir, "out.log"),
	})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !r.Alive(pid) {
		t.Fatal("process should be alive after Start")
	}

	if err := r.Stop(context.Background(), pid, 2*time.Second); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for r.Alive(pid) && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
	if r.Alive(pid) {
		t.Fatal("process still alive after Stop")
	}
}

func TestStartWritesLog(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "out.log")
	r := New()

	pid, err := r.Start(context.Background(), proc.StartSpec{
		Dir:     dir,
		Command: "sh",
		Args:    []string{"-c", "echo agent ready"},
		LogPath: logPath,
	})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for r.Alive(pid) && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if string(data) != "agent ready\n" {
		t.Errorf("unexpected log content: %q", data)
	}
}

func TestStartUnknownCommand(t *testing.T) {
	dir := t.TempDir()
	r := New()

	_, err := r.Start(context.Background(), proc.StartSpec{
		Dir:     dir,
		Command: "definitely-not-a-command",
		LogPath: filepath.Join(dir, "out.log"),
	})
	if err == nil {
		t.Fatal("expected error for unknown command")
	}
}

func TestStopDeadProcess(t *testing.T) {
	r := New()
	if err := r.Stop(context.Background(), 999999, time.Second); err != nil {
		t.Fatalf("stopping a dead pid should not error: %v", err)
	}
	if r.Alive(0) || r.Alive(-1) {
		t.Error("non-positive pids are never alive")
	}
}
