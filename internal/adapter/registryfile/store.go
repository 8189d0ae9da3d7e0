// Package registryfile implements the agent registry port on a single JSON
// file. Every mutation re-reads the file, applies the change, and writes the
// whole document back through a temp file rename, so a crash never leaves a
// half-written registry. A sync.Mutex serializes writers within the process.
package registryfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/Strob0t/AgentForge/internal/domain"
	"github.com/Strob0t/AgentForge/internal/domain/agent"
)

// document is the on-disk shape of the registry file.
type document struct {
	Agents []agent.Agent `json:"agents"`
}

// Store is a file-backed agent registry.
type Store struct {
	mu   sync.Mutex
	path string
}

// New opens (or creates) the registry file at path. A file that exists but
// does not parse is an error: starting with a corrupt registry would let
// the server silently orphan running agents.
func New(path string) (*Store, error) {
	s := &Store{path: path}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create registry dir: %w", err)
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := s.write(&document{Agents: []agent.Agent{}}); err != nil {
			return nil, err
		}
		return s, nil
	}

	if _, err := s.read(); err != nil {
		return nil, err
	}
	return s, nil
}

// Upsert inserts or replaces the agent with the same id.
func (s *Store) Upsert(_ context.Context, a *agent.Agent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return err
	}

	replaced := false
	for i := range doc.Agents {
		if doc.Agents[i].ID == a.ID {
			doc.Agents[i] = *a
			replaced = true
			break
		}
	}
	if !replaced {
		doc.Agents = append(doc.Agents, *a)
	}
	return s.write(doc)
}

// Get returns the agent by id.
func (s *Store) Get(_ context.Context, id string) (*agent.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	for i := range doc.Agents {
		if doc.Agents[i].ID == id {
			a := doc.Agents[i]
			return &a, nil
		}
	}
	return nil, fmt.Errorf("%w: agent %s", domain.ErrNotFound, id)
}

// List returns all agents ordered by creation time.
func (s *Store) List(_ context.Context) ([]agent.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	out := make([]agent.Agent, len(doc.Agents))
	copy(out, doc.Agents)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Remove deletes the agent by id.
func (s *Store) Remove(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return err
	}
	for i := range doc.Agents {
		if doc.Agents[i].ID == id {
			doc.Agents = append(doc.Agents[:i], doc.Agents[i+1:]...)
			return s.write(doc)
		}
	}
	return fmt.Errorf("%w: agent %s", domain.ErrNotFound, id)
}

func (s *Store) read() (*document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read registry: %w", err)
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse registry %s: %w", s.path, err)
	}
	return &doc, nil
}

func (s *Store) write(doc *document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal registry: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write registry temp: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace registry: %w", err)
	}
	return nil
}
