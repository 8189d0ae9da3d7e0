// Package runtimefs keeps per-agent runtime state on disk: the generated
// code directories, an append-style JSON log file, and a JSON metrics file
// per agent, all under a single runtime root the dashboard reads through
// the control API.
package runtimefs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const maxLogEntries = 500

// LogEntry is one per-agent log record.
type LogEntry struct {
	ID        int            `json:"id"`
	Level     string         `json:"level"`
	Timestamp string         `json:"timestamp"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details"`
}

// Logs reads and writes per-agent log files under <root>/logs.
type Logs struct {
	mu  sync.Mutex
	dir string
}

// NewLogs creates the log store under root.
func NewLogs(root string) (*Logs, error) {
	dir := filepath.Join(root, "logs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create logs dir: %w", err)
	}
	return &Logs{dir: dir}, nil
}

func (l *Logs) path(agentID string) string {
	return filepath.Join(l.dir, agentID+".json")
}

// Append adds one entry, trimming the file to the newest entries.
func (l *Logs) Append(agentID, level, message string, details map[string]any) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries := l.load(agentID)
	if details == nil {
		details = map[string]any{}
	}
	entries = append(entries, LogEntry{
		ID:        len(entries) + 1,
		Level:     level,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Message:   message,
		Details:   details,
	})
	if len(entries) > maxLogEntries {
		entries = entries[len(entries)-maxLogEntries:]
	}
	return l.save(agentID, entries)
}

// Tail returns up to limit entries, newest first, optionally filtered by
// level ("all" and "" mean no filter).
func (l *Logs) Tail(agentID, level string, limit int) []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries := l.load(agentID)
	if level != "" && level != "all" {
		filtered := entries[:0:0]
		for _, e := range entries {
			if e.Level == level {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}

	out := make([]LogEntry, len(entries))
	for i, e := range entries {
		out[len(entries)-1-i] = e
	}
	return out
}

// Purge removes the agent's log file.
func (l *Logs) Purge(agentID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	err := os.Remove(l.path(agentID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("purge logs: %w", err)
	}
	return nil
}

// load returns the stored entries; a missing or corrupt file reads as
// empty, matching the dashboard's expectation of best-effort logs.
func (l *Logs) load(agentID string) []LogEntry {
	data, err := os.ReadFile(l.path(agentID))
	if err != nil {
		return nil
	}
	var entries []LogEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil
	}
	return entries
}

func (l *Logs) save(agentID string, entries []LogEntry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal logs: %w", err)
	}
	if err := os.WriteFile(l.path(agentID), data, 0o644); err != nil {
		return fmt.Errorf("write logs: %w", err)
	}
	return nil
}
