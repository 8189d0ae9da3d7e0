package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Strob0t/AgentForge/internal/config"
	"github.com/Strob0t/AgentForge/internal/domain"
	"github.com/Strob0t/AgentForge/internal/domain/agent"
	"github.com/Strob0t/AgentForge/internal/launchpool"
	"github.com/Strob0t/AgentForge/internal/port/proc"
	"github.com/Strob0t/AgentForge/internal/port/registry"
	"github.com/Strob0t/AgentForge/internal/secrets"
)

// envFile persists the launch environment inside the agent directory so
// restarts and startup relaunches reuse the same credentials without
// re-materialization. The control plane only keeps the key's hash.
const envFile = "env.json"

// runtimePurger removes an agent's runtime records (logs or metrics).
type runtimePurger interface {
	Purge(agentID string) error
}

// DeployerService manages the subprocess lifecycle of generated agents:
// writing artifacts to disk, claiming ports, launching, health checking,
// stopping and deleting.
type DeployerService struct {
	store   registry.Store
	runner  proc.Runner
	alloc   *PortAllocator
	logs    runtimePurger
	metrics runtimePurger
	cfg     config.Deploy
	llm     config.LiteLLM
	creds   *secrets.Vault
	pool    *launchpool.Pool
	client  *http.Client
	log     *slog.Logger
}

// NewDeployerService creates a new DeployerService. The LiteLLM config is
// passed through to agent processes so they can reach the same proxy, and
// creds holds the upstream credentials forwarded into each agent's
// environment.
func NewDeployerService(store registry.Store, runner proc.Runner, alloc *PortAllocator, logs, metrics runtimePurger, cfg config.Deploy, llm config.LiteLLM, creds *secrets.Vault, log *slog.Logger) *DeployerService {
	return &DeployerService{
		store:   store,
		runner:  runner,
		alloc:   alloc,
		logs:    logs,
		metrics: metrics,
		cfg:     cfg,
		llm:     llm,
		creds:   creds,
		pool:    launchpool.NewPool(cfg.MaxLaunches),
		client:  &http.Client{Timeout: 2 * time.Second},
		log:     log,
	}
}

func (s *DeployerService) agentDir(id string) string {
	return filepath.Join(s.cfg.RuntimeDir, "deployed_agents", id)
}

// Deploy writes the agent's artifacts into a fresh directory and launches
// the process. A directory already on disk for this id is a conflict.
// Failures before launch are persisted as status error so the registry
// never carries a silently stuck agent.
func (s *DeployerService) Deploy(ctx context.Context, ag *agent.Agent, art Artifacts, apiKey string) error {
	dir := s.agentDir(ag.ID)
	if _, err := os.Stat(dir); err == nil {
		return s.fail(ctx, ag, fmt.Errorf("%w: agent directory already exists: %s", domain.ErrConflict, dir))
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return s.fail(ctx, ag, fmt.Errorf("create agent directory: %w", err))
	}

	files := map[string][]byte{
		SourceFile:   art.Source,
		ConfigFile:   art.ConfigJSON,
		ManifestFile: art.Manifest,
	}
	for name, data := range files {
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			return s.fail(ctx, ag, fmt.Errorf("write %s: %w", name, err))
		}
	}

	env, err := json.MarshalIndent(map[string]string{"AGENT_API_KEY": apiKey}, "", "  ")
	if err != nil {
		return s.fail(ctx, ag, fmt.Errorf("marshal agent env: %w", err))
	}
	if err := os.WriteFile(filepath.Join(dir, envFile), env, 0o600); err != nil {
		return s.fail(ctx, ag, fmt.Errorf("write %s: %w", envFile, err))
	}

	ag.Dir = dir
	return s.launch(ctx, ag)
}

// Start relaunches an agent whose artifacts are already on disk.
func (s *DeployerService) Start(ctx context.Context, ag *agent.Agent) error {
	if !s.codeOnDisk(ag) {
		return fmt.Errorf("%w: agent code missing on disk", domain.ErrNotFound)
	}
	return s.launch(ctx, ag)
}

// Restart stops the running process and relaunches from the same files.
func (s *DeployerService) Restart(ctx context.Context, ag *agent.Agent) error {
	if err := ag.Transition(agent.StatusRestarting, time.Now().UTC()); err != nil {
		return err
	}
	if err := s.store.Upsert(ctx, ag); err != nil {
		return fmt.Errorf("persist restarting state: %w", err)
	}
	if ag.PID > 0 {
		if err := s.runner.Stop(ctx, ag.PID, s.cfg.StopGrace); err != nil {
			s.log.Warn("stop before restart failed", "agent_id", ag.ID, "pid", ag.PID, "error", err)
		}
		ag.PID = 0
	}
	return s.launch(ctx, ag)
}

// Stop terminates the agent process and marks the agent stopped. The port
// is freed by the status change; stopped agents hold no port.
func (s *DeployerService) Stop(ctx context.Context, ag *agent.Agent) error {
	if err := ag.Transition(agent.StatusStopped, time.Now().UTC()); err != nil {
		return err
	}
	if ag.PID > 0 {
		if err := s.runner.Stop(ctx, ag.PID, s.cfg.StopGrace); err != nil {
			s.log.Warn("stop agent process failed", "agent_id", ag.ID, "pid", ag.PID, "error", err)
		}
		ag.PID = 0
	}
	if err := s.store.Upsert(ctx, ag); err != nil {
		return fmt.Errorf("persist stopped state: %w", err)
	}
	s.log.Info("agent stopped", "agent_id", ag.ID)
	return nil
}

// Delete stops the agent if needed, removes its directory, its registry
// entry and its runtime records.
func (s *DeployerService) Delete(ctx context.Context, ag *agent.Agent) error {
	if ag.Status == agent.StatusRunning {
		if err := s.Stop(ctx, ag); err != nil {
			return err
		}
	} else if ag.PID > 0 && s.runner.Alive(ag.PID) {
		_ = s.runner.Stop(ctx, ag.PID, s.cfg.StopGrace)
	}

	dir := ag.Dir
	if dir == "" {
		dir = s.agentDir(ag.ID)
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove agent directory: %w", err)
	}

	if err := s.store.Remove(ctx, ag.ID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("remove registry entry: %w", err)
	}
	if err := s.logs.Purge(ag.ID); err != nil {
		s.log.Warn("purge agent logs failed", "agent_id", ag.ID, "error", err)
	}
	if err := s.metrics.Purge(ag.ID); err != nil {
		s.log.Warn("purge agent metrics failed", "agent_id", ag.ID, "error", err)
	}

	s.log.Info("agent deleted", "agent_id", ag.ID)
	return nil
}

// RelaunchAll restarts every agent recorded as running or deploying,
// concurrently. Agents without code on disk are marked error instead of
// launched; individual launch failures are recorded, not propagated.
func (s *DeployerService) RelaunchAll(ctx context.Context) error {
	agents, err := s.store.List(ctx)
	if err != nil {
		return fmt.Errorf("list agents for relaunch: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	for i := range agents {
		ag := agents[i]
		if ag.Status != agent.StatusRunning && ag.Status != agent.StatusDeploying {
			continue
		}
		g.Go(func() error {
			if !s.codeOnDisk(&ag) {
				s.fail(ctx, &ag, fmt.Errorf("agent code missing on disk"))
				return nil
			}
			// The recorded pid belongs to the previous control plane run.
			ag.PID = 0
			if ag.Status == agent.StatusRunning {
				if err := ag.Transition(agent.StatusRestarting, time.Now().UTC()); err != nil {
					return nil
				}
			}
			if err := s.launch(ctx, &ag); err != nil {
				s.log.Error("startup relaunch failed", "agent_id", ag.ID, "error", err)
			}
			return nil
		})
	}
	return g.Wait()
}

// StoredAPIKey reads the agent's key back from its env file. The test
// proxy authenticates with it like any external caller would.
func (s *DeployerService) StoredAPIKey(ag *agent.Agent) (string, error) {
	dir := ag.Dir
	if dir == "" {
		dir = s.agentDir(ag.ID)
	}
	data, err := os.ReadFile(filepath.Join(dir, envFile))
	if err != nil {
		return "", fmt.Errorf("read agent env: %w", err)
	}
	var stored map[string]string
	if err := json.Unmarshal(data, &stored); err != nil {
		return "", fmt.Errorf("parse agent env: %w", err)
	}
	return stored["AGENT_API_KEY"], nil
}

func (s *DeployerService) codeOnDisk(ag *agent.Agent) bool {
	dir := ag.Dir
	if dir == "" {
		dir = s.agentDir(ag.ID)
	}
	_, err := os.Stat(filepath.Join(dir, SourceFile))
	return err == nil
}

// launch claims a port, spawns the process and waits for it to report
// healthy. On failure the agent is persisted with status error and the
// pid retained for inspection. The launch pool bounds how many agents
// boot at once.
func (s *DeployerService) launch(ctx context.Context, ag *agent.Agent) error {
	return s.pool.Run(ctx, func() error { return s.doLaunch(ctx, ag) })
}

func (s *DeployerService) doLaunch(ctx context.Context, ag *agent.Agent) error {
	// Exhausted port range aborts before any registry write.
	port, err := s.claimPort(ctx, ag.ID)
	if err != nil {
		return err
	}
	// After the registry records the agent on this port, the running
	// entry itself keeps the port reserved.
	defer s.alloc.Release(port)

	ag.Port = port
	if ag.Status != agent.StatusDeploying {
		if err := ag.Transition(agent.StatusDeploying, time.Now().UTC()); err != nil {
			return err
		}
	}
	if err := s.store.Upsert(ctx, ag); err != nil {
		return fmt.Errorf("persist deploying state: %w", err)
	}

	env, err := s.launchEnv(ag)
	if err != nil {
		return s.fail(ctx, ag, err)
	}

	dir := ag.Dir
	if dir == "" {
		dir = s.agentDir(ag.ID)
	}
	pid, err := s.runner.Start(ctx, proc.StartSpec{
		Dir:     dir,
		Command: s.cfg.Python,
		Args:    []string{SourceFile},
		Env:     env,
		LogPath: filepath.Join(dir, "agent.log"),
	})
	if err != nil {
		return s.fail(ctx, ag, fmt.Errorf("start agent process: %w", err))
	}
	ag.PID = pid

	if err := s.waitHealthy(ctx, port); err != nil {
		return s.fail(ctx, ag, fmt.Errorf("agent never became healthy: %w", err))
	}

	ag.LastError = ""
	if err := ag.Transition(agent.StatusRunning, time.Now().UTC()); err != nil {
		return err
	}
	if err := s.store.Upsert(ctx, ag); err != nil {
		return fmt.Errorf("persist running state: %w", err)
	}

	s.log.Info("agent deployed", "agent_id", ag.ID, "port", port, "pid", pid)
	return nil
}

// claimPort picks a free port, treating ports held by other running or
// deploying agents as occupied.
func (s *DeployerService) claimPort(ctx context.Context, selfID string) (int, error) {
	agents, err := s.store.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list agents for port scan: %w", err)
	}
	inUse := make(map[int]struct{})
	for _, other := range agents {
		if other.ID == selfID || other.Port == 0 {
			continue
		}
		if other.Status == agent.StatusRunning || other.Status == agent.StatusDeploying {
			inUse[other.Port] = struct{}{}
		}
	}
	return s.alloc.Claim(inUse)
}

func (s *DeployerService) launchEnv(ag *agent.Agent) ([]string, error) {
	dir := ag.Dir
	if dir == "" {
		dir = s.agentDir(ag.ID)
	}
	data, err := os.ReadFile(filepath.Join(dir, envFile))
	if err != nil {
		return nil, fmt.Errorf("read agent env: %w", err)
	}
	var stored map[string]string
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("parse agent env: %w", err)
	}

	env := []string{
		"AGENT_ID=" + ag.ID,
		fmt.Sprintf("AGENT_PORT=%d", ag.Port),
		"LITELLM_URL=" + s.llm.URL,
		"LITELLM_MODEL=" + s.llm.Model,
	}
	if s.llm.APIKey != "" {
		env = append(env, "LITELLM_API_KEY="+s.llm.APIKey)
	}
	for _, key := range s.creds.Keys() {
		env = append(env, key+"="+s.creds.Get(key))
	}
	for key, value := range stored {
		env = append(env, key+"="+value)
	}
	return env, nil
}

// waitHealthy polls the agent's /health endpoint until it answers 200 or
// the configured timeout expires.
func (s *DeployerService) waitHealthy(ctx context.Context, port int) error {
	url := fmt.Sprintf("http://127.0.0.1:%d/health", port)
	deadline := time.Now().Add(s.cfg.HealthTimeout)
	ticker := time.NewTicker(s.cfg.HealthInterval)
	defer ticker.Stop()

	for {
		if s.healthy(ctx, url) {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("no healthy response within %s", s.cfg.HealthTimeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *DeployerService) healthy(ctx context.Context, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// fail records the error on the agent and persists status error. The pid
// is retained so the operator can inspect the half-started process. The
// error text is scrubbed of credential values before it is persisted.
func (s *DeployerService) fail(ctx context.Context, ag *agent.Agent, cause error) error {
	ag.LastError = s.creds.RedactString(cause.Error())
	if ag.Status != agent.StatusError {
		if err := ag.Transition(agent.StatusError, time.Now().UTC()); err != nil {
			s.log.Error("cannot mark agent as failed", "agent_id", ag.ID, "status", ag.Status, "error", err)
		}
	}
	if err := s.store.Upsert(ctx, ag); err != nil {
		s.log.Error("persist failed state", "agent_id", ag.ID, "error", err)
	}
	s.log.Error("agent deployment failed", "agent_id", ag.ID, "error", cause)
	return cause
}
