package runtimefs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

const maxCalls = 1000

// Call is one recorded request against a deployed agent.
type Call struct {
	Timestamp  string `json:"timestamp"`
	Status     int    `json:"status"`
	DurationMS int    `json:"duration_ms"`
	Success    bool   `json:"success"`
	Path       string `json:"path"`
}

// metricsFile is the on-disk shape of one agent's metrics.
type metricsFile struct {
	Calls     []Call `json:"calls"`
	CreatedAt string `json:"created_at"`
}

// DayCount is one point of the requests-over-time series.
type DayCount struct {
	Day   string `json:"day"`
	Value int    `json:"value"`
}

// Summary is the aggregated view served to the dashboard.
type Summary struct {
	TotalRequests    int        `json:"totalRequests"`
	Successful       int        `json:"successful"`
	Failed           int        `json:"failed"`
	SuccessRate      float64    `json:"successRate"`
	AvgResponseTime  int        `json:"avgResponseTime"`
	MinResponseTime  int        `json:"minResponseTime"`
	MaxResponseTime  int        `json:"maxResponseTime"`
	P95ResponseTime  int        `json:"p95ResponseTime"`
	RequestsOverTime []DayCount `json:"requestsOverTime"`
	Calls            []Call     `json:"calls"`
}

// Metrics reads and writes per-agent metrics files under <root>/metrics.
type Metrics struct {
	mu  sync.Mutex
	dir string
}

// NewMetrics creates the metrics store under root.
func NewMetrics(root string) (*Metrics, error) {
	dir := filepath.Join(root, "metrics")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create metrics dir: %w", err)
	}
	return &Metrics{dir: dir}, nil
}

func (m *Metrics) path(agentID string) string {
	return filepath.Join(m.dir, agentID+".json")
}

// RecordCall stores one request result, trimming to the newest calls.
func (m *Metrics) RecordCall(agentID string, status, durationMS int, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data := m.load(agentID)
	if path == "" {
		path = "/"
	}
	data.Calls = append(data.Calls, Call{
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Status:     status,
		DurationMS: durationMS,
		Success:    status >= 200 && status < 400,
		Path:       path,
	})
	if len(data.Calls) > maxCalls {
		data.Calls = data.Calls[len(data.Calls)-maxCalls:]
	}
	return m.save(agentID, data)
}

// Summarize aggregates the stored calls for the dashboard.
func (m *Metrics) Summarize(agentID string) Summary {
	m.mu.Lock()
	defer m.mu.Unlock()

	data := m.load(agentID)
	calls := data.Calls

	s := Summary{TotalRequests: len(calls)}
	durations := make([]int, 0, len(calls))
	byDay := map[string]int{}
	for _, c := range calls {
		if c.Success {
			s.Successful++
		}
		durations = append(durations, c.DurationMS)
		if len(c.Timestamp) >= 10 {
			byDay[c.Timestamp[:10]]++
		}
	}
	s.Failed = s.TotalRequests - s.Successful
	if s.TotalRequests > 0 {
		s.SuccessRate = float64(s.Successful) / float64(s.TotalRequests)
	}

	if len(durations) > 0 {
		sum, minD, maxD := 0, durations[0], durations[0]
		for _, d := range durations {
			sum += d
			if d < minD {
				minD = d
			}
			if d > maxD {
				maxD = d
			}
		}
		s.AvgResponseTime = sum / len(durations)
		s.MinResponseTime = minD
		s.MaxResponseTime = maxD

		sorted := append([]int(nil), durations...)
		sort.Ints(sorted)
		if idx := int(float64(len(sorted))*0.95) - 1; idx >= 0 {
			s.P95ResponseTime = sorted[idx]
		}
	}

	days := make([]string, 0, len(byDay))
	for d := range byDay {
		days = append(days, d)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(days)))
	if len(days) > 7 {
		days = days[:7]
	}
	for i := len(days) - 1; i >= 0; i-- {
		s.RequestsOverTime = append(s.RequestsOverTime, DayCount{Day: days[i], Value: byDay[days[i]]})
	}

	if len(calls) > 100 {
		calls = calls[len(calls)-100:]
	}
	s.Calls = calls
	return s
}

// Purge removes the agent's metrics file.
func (m *Metrics) Purge(agentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	err := os.Remove(m.path(agentID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("purge metrics: %w", err)
	}
	return nil
}

func (m *Metrics) load(agentID string) *metricsFile {
	empty := &metricsFile{
		Calls:     []Call{},
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	raw, err := os.ReadFile(m.path(agentID))
	if err != nil {
		return empty
	}
	var data metricsFile
	if err := json.Unmarshal(raw, &data); err != nil {
		return empty
	}
	if data.Calls == nil {
		data.Calls = []Call{}
	}
	return &data
}

func (m *Metrics) save(agentID string, data *metricsFile) error {
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal metrics: %w", err)
	}
	if err := os.WriteFile(m.path(agentID), raw, 0o644); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
