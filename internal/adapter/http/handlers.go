package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/Strob0t/AgentForge/internal/adapter/runtimefs"
	"github.com/Strob0t/AgentForge/internal/domain/action"
	"github.com/Strob0t/AgentForge/internal/domain/agent"
	"github.com/Strob0t/AgentForge/internal/domain/endpoint"
	"github.com/Strob0t/AgentForge/internal/resilience"
	"github.com/Strob0t/AgentForge/internal/service"
)

const defaultLogLimit = 100

// AgentsAPI is the slice of the agents service the handlers consume.
type AgentsAPI interface {
	Create(ctx context.Context, prompt, name string) (agent.Agent, string, error)
	Analyze(ctx context.Context, prompt string) (*service.Analysis, error)
	List(ctx context.Context) ([]agent.Agent, error)
	Get(ctx context.Context, id string) (*agent.Agent, error)
	Start(ctx context.Context, id string) (*agent.Agent, error)
	Stop(ctx context.Context, id string) (*agent.Agent, error)
	Restart(ctx context.Context, id string) (*agent.Agent, error)
	Delete(ctx context.Context, id string) error
	TestCall(ctx context.Context, id string, req service.TestRequest) (*service.TestResult, error)
	Code(ctx context.Context, id, file string) (string, []byte, error)
}

// Handlers holds the HTTP handler dependencies.
type Handlers struct {
	Agents   AgentsAPI
	Logs     *runtimefs.Logs
	Metrics  *runtimefs.Metrics
	Breakers []*resilience.Breaker
}

// agentSummary is the dashboard view of an agent. Internal fields like
// the pid, the key hash and the on-disk directory stay server-side.
type agentSummary struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Prompt      string            `json:"prompt"`
	Status      agent.Status      `json:"status"`
	Services    []string          `json:"services"`
	Endpoints   []endpoint.Design `json:"endpoints"`
	Actions     []action.Selected `json:"actions"`
	Port        int               `json:"port,omitempty"`
	BaseURL     string            `json:"base_url,omitempty"`
	LastError   string            `json:"last_error,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

func toSummary(a *agent.Agent) agentSummary {
	s := agentSummary{
		ID:          a.ID,
		Name:        a.Name,
		Description: a.Description,
		Prompt:      a.Prompt,
		Status:      a.Status,
		Services:    a.Services,
		Endpoints:   a.Endpoints,
		Actions:     a.Actions,
		Port:        a.Port,
		LastError:   a.LastError,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
	if a.Status == agent.StatusRunning && a.Port > 0 {
		s.BaseURL = "http://127.0.0.1:" + strconv.Itoa(a.Port)
	}
	return s
}

type createAgentRequest struct {
	Prompt string `json:"prompt"`
	Name   string `json:"name,omitempty"`
}

type createAgentResponse struct {
	Agent  agentSummary `json:"agent"`
	APIKey string       `json:"api_key"`
}

// CreateAgent runs the build pipeline and starts deployment in the
// background. The response carries the one-time plaintext API key.
func (h *Handlers) CreateAgent(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[createAgentRequest](w, r)
	if !ok {
		return
	}
	if !requireField(w, req.Prompt, "prompt") {
		return
	}

	ag, key, err := h.Agents.Create(r.Context(), req.Prompt, req.Name)
	if err != nil {
		writeDomainError(w, err, "agent not found")
		return
	}
	writeJSON(w, http.StatusCreated, createAgentResponse{Agent: toSummary(&ag), APIKey: key})
}

type analyzeRequest struct {
	Prompt string `json:"prompt"`
}

// AnalyzeAgent previews extraction and design without persisting anything.
func (h *Handlers) AnalyzeAgent(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[analyzeRequest](w, r)
	if !ok {
		return
	}
	if !requireField(w, req.Prompt, "prompt") {
		return
	}

	analysis, err := h.Agents.Analyze(r.Context(), req.Prompt)
	if err != nil {
		writeDomainError(w, err, "analysis failed")
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

// ListAgents returns all agents ordered by creation time.
func (h *Handlers) ListAgents(w http.ResponseWriter, r *http.Request) {
	agents, err := h.Agents.List(r.Context())
	if err != nil {
		writeDomainError(w, err, "agents not found")
		return
	}
	summaries := make([]agentSummary, len(agents))
	for i := range agents {
		summaries[i] = toSummary(&agents[i])
	}
	writeJSON(w, http.StatusOK, map[string]any{"agents": summaries})
}

// GetAgent returns one agent by id.
func (h *Handlers) GetAgent(w http.ResponseWriter, r *http.Request) {
	ag, err := h.Agents.Get(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "agent not found")
		return
	}
	writeJSON(w, http.StatusOK, toSummary(ag))
}

// StartAgent relaunches a stopped or failed agent.
func (h *Handlers) StartAgent(w http.ResponseWriter, r *http.Request) {
	ag, err := h.Agents.Start(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "agent not found")
		return
	}
	writeJSON(w, http.StatusOK, toSummary(ag))
}

// StopAgent terminates a running agent's process.
func (h *Handlers) StopAgent(w http.ResponseWriter, r *http.Request) {
	ag, err := h.Agents.Stop(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "agent not found")
		return
	}
	writeJSON(w, http.StatusOK, toSummary(ag))
}

// RestartAgent stops and relaunches a running agent.
func (h *Handlers) RestartAgent(w http.ResponseWriter, r *http.Request) {
	ag, err := h.Agents.Restart(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "agent not found")
		return
	}
	writeJSON(w, http.StatusOK, toSummary(ag))
}

// DeleteAgent removes the agent, its files and its runtime records.
func (h *Handlers) DeleteAgent(w http.ResponseWriter, r *http.Request) {
	if err := h.Agents.Delete(r.Context(), urlParam(r, "id")); err != nil {
		writeDomainError(w, err, "agent not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AgentLogs returns the agent's structured log tail, optionally filtered
// by level.
func (h *Handlers) AgentLogs(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	if _, err := h.Agents.Get(r.Context(), id); err != nil {
		writeDomainError(w, err, "agent not found")
		return
	}

	limit := defaultLogLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	entries := h.Logs.Tail(id, r.URL.Query().Get("level"), limit)
	writeJSON(w, http.StatusOK, map[string]any{"logs": entries})
}

// AgentMetrics returns the aggregated call metrics for one agent.
func (h *Handlers) AgentMetrics(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	if _, err := h.Agents.Get(r.Context(), id); err != nil {
		writeDomainError(w, err, "agent not found")
		return
	}
	writeJSON(w, http.StatusOK, h.Metrics.Summarize(id))
}

// AgentCode returns one generated file of the agent.
func (h *Handlers) AgentCode(w http.ResponseWriter, r *http.Request) {
	name, data, err := h.Agents.Code(r.Context(), urlParam(r, "id"), r.URL.Query().Get("file"))
	if err != nil {
		writeDomainError(w, err, "agent not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"file": name, "content": string(data)})
}

// TestAgent proxies one call to the deployed agent and relays the result.
func (h *Handlers) TestAgent(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[service.TestRequest](w, r)
	if !ok {
		return
	}
	if !requireField(w, req.Path, "path") {
		return
	}

	result, err := h.Agents.TestCall(r.Context(), urlParam(r, "id"), req)
	if err != nil {
		writeDomainError(w, err, "agent not found")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// EnvSchema returns the static credential schema. Names and descriptions
// only, never values.
func (h *Handlers) EnvSchema(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"variables": service.EnvSchema()})
}

type breakerStatus struct {
	Name  string `json:"name"`
	State string `json:"state"`
}

// Health reports liveness and the state of the upstream circuit breakers.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	breakers := make([]breakerStatus, len(h.Breakers))
	for i, b := range h.Breakers {
		breakers[i] = breakerStatus{Name: b.Name(), State: b.State()}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"breakers": breakers,
	})
}
