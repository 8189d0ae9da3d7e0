// Package agent defines the deployed-agent entity, its lifecycle state
// machine, and the identifier scheme used across the registry and the
// runtime directories.
package agent

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Strob0t/AgentForge/internal/domain"
	"github.com/Strob0t/AgentForge/internal/domain/action"
	"github.com/Strob0t/AgentForge/internal/domain/endpoint"
)

// Status is the lifecycle state of an agent.
type Status string

const (
	StatusCreated    Status = "created"
	StatusDeploying  Status = "deploying"
	StatusRunning    Status = "running"
	StatusStopped    Status = "stopped"
	StatusError      Status = "error"
	StatusRestarting Status = "restarting"
	StatusDeleted    Status = "deleted"
)

// ValidStatus reports whether s is a known lifecycle state.
func ValidStatus(s Status) bool {
	switch s {
	case StatusCreated, StatusDeploying, StatusRunning, StatusStopped,
		StatusError, StatusRestarting, StatusDeleted:
		return true
	}
	return false
}

// transitions holds the allowed moves of the lifecycle state machine.
// Deletion is reachable from every non-running state; a running agent must
// be stopped first. A created agent can fail straight to error when its
// deployment dies before the process is ever spawned.
var transitions = map[Status][]Status{
	StatusCreated:    {StatusDeploying, StatusError, StatusDeleted},
	StatusDeploying:  {StatusRunning, StatusError},
	StatusRunning:    {StatusStopped, StatusRestarting, StatusError},
	StatusStopped:    {StatusDeploying, StatusDeleted},
	StatusError:      {StatusDeploying, StatusDeleted},
	StatusRestarting: {StatusDeploying, StatusError},
}

// CanTransition reports whether moving from one lifecycle state to another
// is allowed.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Agent is one generated and (possibly) deployed agent. Persisted in the
// registry; the API key itself is never stored, only its bcrypt hash.
type Agent struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Prompt      string            `json:"prompt"`
	Status      Status            `json:"status"`
	Services    []string          `json:"services"`
	Endpoints   []endpoint.Design `json:"endpoints"`
	Actions     []action.Selected `json:"actions"`
	Port        int               `json:"port,omitempty"`
	Dir         string            `json:"dir,omitempty"`
	PID         int               `json:"pid,omitempty"`
	APIKeyHash  string            `json:"api_key_hash,omitempty"`
	LastError   string            `json:"last_error,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// NewID builds a fresh agent identifier, unique and sortable by creation
// time: agent_<unix>_<first 8 uuid chars>.
func NewID(now time.Time) string {
	return fmt.Sprintf("agent_%d_%s", now.Unix(), uuid.NewString()[:8])
}

// ValidID reports whether id follows the agent identifier scheme. Used to
// reject path traversal before the id is joined into a runtime directory.
func ValidID(id string) bool {
	if !strings.HasPrefix(id, "agent_") {
		return false
	}
	for _, r := range id {
		if r == '_' || r == '-' ||
			(r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			continue
		}
		return false
	}
	return true
}

// Validate checks the structural invariants of an agent record.
func (a *Agent) Validate() error {
	if !ValidID(a.ID) {
		return fmt.Errorf("%w: invalid agent id %q", domain.ErrValidation, a.ID)
	}
	if a.Name == "" {
		return fmt.Errorf("%w: agent name is required", domain.ErrValidation)
	}
	if !ValidStatus(a.Status) {
		return fmt.Errorf("%w: unknown status %q", domain.ErrValidation, a.Status)
	}
	if len(a.Endpoints) == 0 {
		return fmt.Errorf("%w: agent has no endpoints", domain.ErrValidation)
	}
	for i := range a.Endpoints {
		if err := a.Endpoints[i].Validate(); err != nil {
			return err
		}
	}
	if a.Status == StatusRunning && a.Port == 0 {
		return fmt.Errorf("%w: running agent has no port", domain.ErrValidation)
	}
	return nil
}

// Transition moves the agent to a new lifecycle state, enforcing the state
// machine, and stamps UpdatedAt.
func (a *Agent) Transition(to Status, now time.Time) error {
	if !CanTransition(a.Status, to) {
		return fmt.Errorf("%w: cannot move agent from %s to %s", domain.ErrConflict, a.Status, to)
	}
	a.Status = to
	a.UpdatedAt = now
	return nil
}
