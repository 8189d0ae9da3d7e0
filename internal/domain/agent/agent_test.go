package agent

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Strob0t/AgentForge/internal/domain"
	"github.com/Strob0t/AgentForge/internal/domain/endpoint"
)

func TestNewID(t *testing.T) {
	now := time.Unix(1700000000, 0)
	id := NewID(now)
	if !strings.HasPrefix(id, "agent_1700000000_") {
		t.Errorf("id %q missing time prefix", id)
	}
	if len(id) != len("agent_1700000000_")+8 {
		t.Errorf("id %q has wrong suffix length", id)
	}
	if !ValidID(id) {
		t.Errorf("generated id %q does not validate", id)
	}
}

func TestValidID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"agent_1700000000_ab12cd34", true},
		{"agent_1_x", true},
		{"other_1700000000_ab12cd34", false},
		{"agent_../../etc/passwd", false},
		{"agent_1700000000_AB12CD34", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := ValidID(tt.id); got != tt.want {
			t.Errorf("ValidID(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}
}

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to Status }{
		{StatusCreated, StatusDeploying},
		{StatusCreated, StatusError},
		{StatusDeploying, StatusRunning},
		{StatusDeploying, StatusError},
		{StatusRunning, StatusStopped},
		{StatusRunning, StatusRestarting},
		{StatusRunning, StatusError},
		{StatusStopped, StatusDeploying},
		{StatusStopped, StatusDeleted},
		{StatusError, StatusDeploying},
		{StatusError, StatusDeleted},
		{StatusRestarting, StatusDeploying},
	}
	for _, tt := range allowed {
		if !CanTransition(tt.from, tt.to) {
			t.Errorf("transition %s -> %s should be allowed", tt.from, tt.to)
		}
	}

	denied := []struct{ from, to Status }{
		{StatusRunning, StatusDeleted},
		{StatusCreated, StatusRunning},
		{StatusDeleted, StatusDeploying},
		{StatusStopped, StatusRunning},
		{StatusRunning, StatusRunning},
	}
	for _, tt := range denied {
		if CanTransition(tt.from, tt.to) {
			t.Errorf("transition %s -> %s should be denied", tt.from, tt.to)
		}
	}
}

func validAgent() *Agent {
	return &Agent{
		ID:     "agent_1700000000_ab12cd34",
		Name:   "trello-summarizer",
		Status: StatusCreated,
		Endpoints: []endpoint.Design{{
			Method:      endpoint.MethodPost,
			Path:        "/send-summarization",
			OperationID: "send_summarization",
		}},
	}
}

func TestAgentValidate(t *testing.T) {
	if err := validAgent().Validate(); err != nil {
		t.Fatalf("valid agent rejected: %v", err)
	}

	a := validAgent()
	a.ID = "nope"
	if err := a.Validate(); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("bad id: got %v, want ErrValidation", err)
	}

	a = validAgent()
	a.Name = ""
	if err := a.Validate(); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("missing name: got %v, want ErrValidation", err)
	}

	a = validAgent()
	a.Endpoints = nil
	if err := a.Validate(); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("no endpoints: got %v, want ErrValidation", err)
	}

	a = validAgent()
	a.Status = StatusRunning
	a.Port = 0
	if err := a.Validate(); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("running without port: got %v, want ErrValidation", err)
	}
}

func TestAgentTransition(t *testing.T) {
	a := validAgent()
	now := time.Now()

	if err := a.Transition(StatusDeploying, now); err != nil {
		t.Fatalf("created -> deploying: %v", err)
	}
	if a.Status != StatusDeploying || !a.UpdatedAt.Equal(now) {
		t.Errorf("transition did not apply: %+v", a)
	}

	if err := a.Transition(StatusStopped, now); !errors.Is(err, domain.ErrConflict) {
		t.Errorf("deploying -> stopped: got %v, want ErrConflict", err)
	}
}
