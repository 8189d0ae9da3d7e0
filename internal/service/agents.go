package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	otelx "github.com/Strob0t/AgentForge/internal/adapter/otel"
	"github.com/Strob0t/AgentForge/internal/domain"
	"github.com/Strob0t/AgentForge/internal/domain/agent"
	"github.com/Strob0t/AgentForge/internal/domain/endpoint"
	"github.com/Strob0t/AgentForge/internal/domain/requirement"
	"github.com/Strob0t/AgentForge/internal/port/registry"
)

// callRecorder records one proxied call into the agent's metrics file.
type callRecorder interface {
	RecordCall(agentID string, status, durationMS int, path string) error
}

// AgentsService runs the prompt-to-agent pipeline and drives the agent
// lifecycle. It is the single entry point for the control API.
type AgentsService struct {
	extractor *ExtractorService
	designer  *DesignerService
	selector  *SelectorService
	builder   *MaterializerService
	deployer  *DeployerService
	store     registry.Store
	recorder  callRecorder
	metrics   *otelx.Metrics
	client    *http.Client
	log       *slog.Logger
}

// NewAgentsService creates a new AgentsService.
func NewAgentsService(extractor *ExtractorService, designer *DesignerService, selector *SelectorService, builder *MaterializerService, deployer *DeployerService, store registry.Store, recorder callRecorder, metrics *otelx.Metrics, log *slog.Logger) *AgentsService {
	return &AgentsService{
		extractor: extractor,
		designer:  designer,
		selector:  selector,
		builder:   builder,
		deployer:  deployer,
		store:     store,
		recorder:  recorder,
		metrics:   metrics,
		client:    &http.Client{Timeout: 2 * time.Minute},
		log:       log,
	}
}

// Analysis is the dry-run result of the extraction and design steps.
type Analysis struct {
	SuggestedName string                  `json:"suggested_name"`
	Services      []string                `json:"services"`
	Parameters    []requirement.Parameter `json:"parameters"`
	Endpoints     []endpoint.Design       `json:"endpoints"`
}

// Create runs the full pipeline for a prompt, persists the agent and
// deploys it in the background. The returned key is shown exactly once;
// only its hash is stored.
func (s *AgentsService) Create(ctx context.Context, prompt, name string) (agent.Agent, string, error) {
	now := time.Now().UTC()
	id := agent.NewID(now)
	start := time.Now()

	ctx, span := otelx.StartPipelineSpan(ctx, id)
	defer span.End()

	rec, designs, err := s.analyze(ctx, id, prompt)
	if err != nil {
		return agent.Agent{}, "", err
	}

	stepCtx, step := otelx.StartStepSpan(ctx, "select", id)
	actions, err := s.selector.Select(stepCtx, rec)
	step.End()
	if err != nil {
		return agent.Agent{}, "", err
	}

	if name == "" {
		name = suggestName(designs[0])
	}

	key, hash, err := newAPIKey()
	if err != nil {
		return agent.Agent{}, "", fmt.Errorf("generate api key: %w", err)
	}

	_, step = otelx.StartStepSpan(ctx, "materialize", id)
	art, err := s.builder.Materialize(designs, actions, AgentMeta{
		ID:              id,
		Name:            name,
		Description:     designs[0].Summary,
		TaskDescription: rec.TaskDescription,
		Services:        rec.Services,
	})
	step.End()
	if err != nil {
		return agent.Agent{}, "", err
	}

	ag := &agent.Agent{
		ID:          id,
		Name:        name,
		Description: designs[0].Summary,
		Prompt:      prompt,
		Status:      agent.StatusCreated,
		Services:    rec.Services,
		Endpoints:   designs,
		Actions:     actions,
		APIKeyHash:  hash,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := ag.Validate(); err != nil {
		return agent.Agent{}, "", err
	}
	if err := s.store.Upsert(ctx, ag); err != nil {
		return agent.Agent{}, "", fmt.Errorf("persist agent: %w", err)
	}

	s.metrics.AgentsCreated.Add(ctx, 1)
	s.metrics.PipelineDuration.Record(ctx, time.Since(start).Seconds())
	s.log.Info("agent created", "agent_id", id, "name", name, "services", rec.Services)

	snapshot := *ag
	deployCtx := context.WithoutCancel(ctx)
	go func() {
		dctx, dspan := otelx.StartStepSpan(deployCtx, "deploy", id)
		defer dspan.End()
		if err := s.deployer.Deploy(dctx, ag, art, key); err != nil {
			s.metrics.DeploysFailed.Add(dctx, 1)
			return
		}
		s.metrics.AgentsDeployed.Add(dctx, 1)
	}()

	return snapshot, key, nil
}

// Analyze runs extraction and design only, with no side effects.
func (s *AgentsService) Analyze(ctx context.Context, prompt string) (*Analysis, error) {
	rec, designs, err := s.analyze(ctx, "", prompt)
	if err != nil {
		return nil, err
	}
	return &Analysis{
		SuggestedName: suggestName(designs[0]),
		Services:      rec.Services,
		Parameters:    rec.Parameters,
		Endpoints:     designs,
	}, nil
}

func (s *AgentsService) analyze(ctx context.Context, id, prompt string) (*requirement.Record, []endpoint.Design, error) {
	stepCtx, step := otelx.StartStepSpan(ctx, "extract", id)
	rec, err := s.extractor.Extract(stepCtx, prompt)
	step.End()
	if err != nil {
		if errors.Is(err, domain.ErrRejected) {
			s.metrics.PromptsRejected.Add(ctx, 1)
		}
		return nil, nil, err
	}

	stepCtx, step = otelx.StartStepSpan(ctx, "design", id)
	designs, err := s.designer.Design(stepCtx, rec)
	step.End()
	if err != nil {
		return nil, nil, err
	}
	return rec, designs, nil
}

// Get returns one agent by id.
func (s *AgentsService) Get(ctx context.Context, id string) (*agent.Agent, error) {
	if !agent.ValidID(id) {
		return nil, fmt.Errorf("%w: invalid agent id", domain.ErrValidation)
	}
	return s.store.Get(ctx, id)
}

// List returns all agents ordered by creation time.
func (s *AgentsService) List(ctx context.Context) ([]agent.Agent, error) {
	return s.store.List(ctx)
}

// Start relaunches a stopped or failed agent from its files on disk.
func (s *AgentsService) Start(ctx context.Context, id string) (*agent.Agent, error) {
	ag, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.deployer.Start(ctx, ag); err != nil {
		return nil, err
	}
	return ag, nil
}

// Stop terminates a running agent's process.
func (s *AgentsService) Stop(ctx context.Context, id string) (*agent.Agent, error) {
	ag, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.deployer.Stop(ctx, ag); err != nil {
		return nil, err
	}
	return ag, nil
}

// Restart stops and relaunches a running agent from the same files.
func (s *AgentsService) Restart(ctx context.Context, id string) (*agent.Agent, error) {
	ag, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.deployer.Restart(ctx, ag); err != nil {
		return nil, err
	}
	return ag, nil
}

// Delete removes the agent, its files and its runtime records.
func (s *AgentsService) Delete(ctx context.Context, id string) error {
	ag, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	return s.deployer.Delete(ctx, ag)
}

// TestRequest is one proxied call against a deployed agent.
type TestRequest struct {
	Method string            `json:"method"`
	Path   string            `json:"path"`
	Query  map[string]string `json:"query,omitempty"`
	Body   json.RawMessage   `json:"body,omitempty"`
}

// TestResult is the relayed outcome of a proxied call.
type TestResult struct {
	Status     int    `json:"status"`
	DurationMS int    `json:"duration_ms"`
	Body       string `json:"body"`
}

// maxProxyBody caps how much of an agent response the proxy relays.
const maxProxyBody = 1 << 20

// TestCall forwards a request to the agent's local port and records a
// metrics sample. An agent that is not running fails without any network
// call; the failed sample is still recorded.
func (s *AgentsService) TestCall(ctx context.Context, id string, req TestRequest) (*TestResult, error) {
	ag, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	path := req.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	if ag.Status != agent.StatusRunning {
		s.record(id, http.StatusServiceUnavailable, 0, path)
		return nil, fmt.Errorf("%w: agent is not running", domain.ErrConflict)
	}

	key, err := s.deployer.StoredAPIKey(ag)
	if err != nil {
		return nil, fmt.Errorf("load agent credentials: %w", err)
	}

	target := url.URL{
		Scheme: "http",
		Host:   fmt.Sprintf("127.0.0.1:%d", ag.Port),
		Path:   path,
	}
	if len(req.Query) > 0 {
		q := target.Query()
		for k, v := range req.Query {
			q.Set(k, v)
		}
		target.RawQuery = q.Encode()
	}

	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = strings.NewReader(string(req.Body))
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("%w: build test request: %v", domain.ErrValidation, err)
	}
	httpReq.Header.Set("X-API-Key", key)
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := s.client.Do(httpReq)
	if err != nil {
		duration := int(time.Since(start).Milliseconds())
		s.record(id, http.StatusBadGateway, duration, path)
		return nil, fmt.Errorf("%w: call agent: %v", domain.ErrUpstream, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxProxyBody))
	if err != nil {
		return nil, fmt.Errorf("%w: read agent response: %v", domain.ErrUpstream, err)
	}
	duration := int(time.Since(start).Milliseconds())
	s.record(id, resp.StatusCode, duration, path)

	return &TestResult{
		Status:     resp.StatusCode,
		DurationMS: duration,
		Body:       string(data),
	}, nil
}

func (s *AgentsService) record(id string, status, durationMS int, path string) {
	if err := s.recorder.RecordCall(id, status, durationMS, path); err != nil {
		s.log.Warn("record test call failed", "agent_id", id, "error", err)
	}
}

// codeFiles is the allowlist of retrievable generated files.
var codeFiles = map[string]struct{}{
	SourceFile:   {},
	ConfigFile:   {},
	ManifestFile: {},
}

// Code returns the contents of one generated file for the agent. The
// name must be on the allowlist; the default is the source file.
func (s *AgentsService) Code(ctx context.Context, id, file string) (string, []byte, error) {
	if file == "" {
		file = SourceFile
	}
	if _, ok := codeFiles[file]; !ok {
		return "", nil, fmt.Errorf("%w: unknown file %q", domain.ErrValidation, file)
	}

	ag, err := s.Get(ctx, id)
	if err != nil {
		return "", nil, err
	}
	dir := ag.Dir
	if dir == "" {
		dir = s.deployer.agentDir(id)
	}

	data, err := os.ReadFile(filepath.Join(dir, file))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil, fmt.Errorf("%w: file not generated yet", domain.ErrNotFound)
		}
		return "", nil, fmt.Errorf("read generated file: %w", err)
	}
	return file, data, nil
}

// EnvVar describes one credential the platform reads from the
// environment. Values are never exposed.
type EnvVar struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

// EnvSchema returns the static credential schema for the dashboard's
// setup screen.
func EnvSchema() []EnvVar {
	return []EnvVar{
		{Name: "LITELLM_API_KEY", Description: "API key for the LiteLLM proxy used by the pipeline and by deployed agents", Required: false},
		{Name: "ZAPIER_NLA_API_KEY", Description: "Zapier NLA key; without it the built-in action catalog is served", Required: false},
		{Name: "DATABASE_URL", Description: "PostgreSQL DSN for the postgres registry backend", Required: false},
		{Name: "OTEL_EXPORTER_OTLP_ENDPOINT", Description: "OTLP collector endpoint for traces and metrics", Required: false},
	}
}

// newAPIKey builds a fresh agent key and its bcrypt hash. The plaintext
// leaves the process only in the create response and the agent's env
// file.
func newAPIKey() (string, string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", "", err
	}
	key := "agk_" + hex.EncodeToString(buf)
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", "", err
	}
	return key, string(hash), nil
}

// suggestName derives a display name from the designed operation, e.g.
// summarize_cards becomes "Summarize Cards Agent".
func suggestName(d endpoint.Design) string {
	words := strings.Split(d.OperationID, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.TrimSpace(strings.Join(words, " ")) + " Agent"
}
