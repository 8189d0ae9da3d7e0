package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/Strob0t/AgentForge/internal/domain"
	"github.com/Strob0t/AgentForge/internal/domain/requirement"
	"github.com/Strob0t/AgentForge/internal/port/llm"
)

// mockLLM returns canned responses in call order, or a fixed error.
type mockLLM struct {
	responses []string
	err       error
	calls     int
	requests  []llm.Request
}

func (m *mockLLM) Complete(_ context.Context, req llm.Request) (string, error) {
	m.requests = append(m.requests, req)
	if m.err != nil {
		return "", m.err
	}
	if m.calls >= len(m.responses) {
		return "", errors.New("mockLLM: no response configured")
	}
	resp := m.responses[m.calls]
	m.calls++
	return resp, nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestExtract(t *testing.T) {
	mock := &mockLLM{responses: []string{
		`{"valid": true, "reason": "Clear task involving Trello and Slack"}`,
		`{"services": ["Trello", "Slack", "trello"]}`,
		`{"parameters": [{"name": "person_name", "type": "str", "description": "Person to fetch cards for", "required": true, "location": "body", "how_used": "Person whose Trello cards to fetch"}]}`,
	}}
	svc := NewExtractorService(mock, discard())

	rec, err := svc.Extract(context.Background(), "Get all Trello cards for a person and send them a summarization in Slack")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if len(rec.Services) != 2 || rec.Services[0] != "Trello" || rec.Services[1] != "Slack" {
		t.Errorf("services not deduped in order: %v", rec.Services)
	}
	if len(rec.Parameters) != 1 {
		t.Fatalf("expected 1 parameter, got %d", len(rec.Parameters))
	}
	p := rec.Parameters[0]
	if p.Name != "person_name" || p.Type != requirement.TypeString || p.Location != requirement.LocationBody {
		t.Errorf("parameter not normalized: %+v", p)
	}
	if !strings.Contains(rec.TaskDescription, "Task: Get all Trello cards") {
		t.Errorf("task description missing prompt: %q", rec.TaskDescription)
	}
	if !strings.Contains(rec.TaskDescription, "person_name") {
		t.Errorf("task description missing parameters: %q", rec.TaskDescription)
	}

	if mock.calls != 3 {
		t.Errorf("expected 3 completions, got %d", mock.calls)
	}
	for _, req := range mock.requests {
		if !req.JSONOnly || req.Temperature != 0 {
			t.Errorf("completions must be JSON-only at temperature 0: %+v", req)
		}
	}
}

func TestExtractRejectedPrompt(t *testing.T) {
	mock := &mockLLM{responses: []string{
		`{"valid": false, "reason": "Input is gibberish"}`,
	}}
	svc := NewExtractorService(mock, discard())

	_, err := svc.Extract(context.Background(), "asdf qwerty")
	if !errors.Is(err, domain.ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}
	if !strings.Contains(err.Error(), "Input is gibberish") {
		t.Errorf("rejection should carry the model reason: %v", err)
	}
	if mock.calls != 1 {
		t.Errorf("pipeline should stop after validation, got %d calls", mock.calls)
	}
}

func TestExtractNoServices(t *testing.T) {
	mock := &mockLLM{responses: []string{
		`{"valid": true, "reason": "ok"}`,
		`{"services": []}`,
	}}
	svc := NewExtractorService(mock, discard())

	_, err := svc.Extract(context.Background(), "do the thing")
	if !errors.Is(err, domain.ErrRejected) {
		t.Fatalf("expected ErrRejected for no services, got %v", err)
	}
}

func TestExtractFencedModelOutput(t *testing.T) {
	mock := &mockLLM{responses: []string{
		"```json\n{\"valid\": true, \"reason\": \"ok\"}\n```",
		"```json\n{\"services\": [\"Trello\"]}\n```",
		"```\n{\"parameters\": []}\n```",
	}}
	svc := NewExtractorService(mock, discard())

	rec, err := svc.Extract(context.Background(), "Get all Trello cards for a person")
	if err != nil {
		t.Fatalf("fenced responses must parse: %v", err)
	}
	if len(rec.Services) != 1 || rec.Services[0] != "Trello" {
		t.Errorf("services = %v", rec.Services)
	}
}

func TestExtractUpstreamFailure(t *testing.T) {
	mock := &mockLLM{err: domain.ErrUpstream}
	svc := NewExtractorService(mock, discard())

	_, err := svc.Extract(context.Background(), "Get Trello cards")
	if !errors.Is(err, domain.ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
}

func TestExtractMalformedModelOutput(t *testing.T) {
	mock := &mockLLM{responses: []string{`this is not json`}}
	svc := NewExtractorService(mock, discard())

	_, err := svc.Extract(context.Background(), "Get Trello cards")
	if !errors.Is(err, domain.ErrUpstream) {
		t.Fatalf("expected ErrUpstream for parse failure, got %v", err)
	}
}

func TestExtractEmptyPrompt(t *testing.T) {
	svc := NewExtractorService(&mockLLM{}, discard())
	_, err := svc.Extract(context.Background(), "   ")
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}
