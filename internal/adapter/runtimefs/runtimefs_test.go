package runtimefs

import (
	"testing"
)

func TestLogsAppendTailPurge(t *testing.T) {
	logs, err := NewLogs(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	const id = "agent_1_aaaaaaaa"

	if err := logs.Append(id, "info", "deployed", nil); err != nil {
		t.Fatal(err)
	}
	if err := logs.Append(id, "error", "call failed", map[string]any{"status": 500}); err != nil {
		t.Fatal(err)
	}

	all := logs.Tail(id, "all", 100)
	if len(all) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(all))
	}
	if all[0].Message != "call failed" {
		t.Errorf("newest entry should come first, got %q", all[0].Message)
	}

	errs := logs.Tail(id, "error", 100)
	if len(errs) != 1 || errs[0].Level != "error" {
		t.Errorf("level filter broken: %+v", errs)
	}

	if err := logs.Purge(id); err != nil {
		t.Fatal(err)
	}
	if got := logs.Tail(id, "", 100); len(got) != 0 {
		t.Errorf("expected no entries after purge, got %d", len(got))
	}
	if err := logs.Purge(id); err != nil {
		t.Errorf("double purge should not error: %v", err)
	}
}

func TestLogsTrimmed(t *testing.T) {
	logs, err := NewLogs(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	const id = "agent_1_bbbbbbbb"

	for i := 0; i < maxLogEntries+10; i++ {
		if err := logs.Append(id, "info", "entry", nil); err != nil {
			t.Fatal(err)
		}
	}
	if got := logs.Tail(id, "", 0); len(got) != maxLogEntries {
		t.Errorf("expected %d entries after trim, got %d", maxLogEntries, len(got))
	}
}

func TestMetricsRecordAndSummarize(t *testing.T) {
	metrics, err := NewMetrics(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	const id = "agent_1_cccccccc"

	_ = metrics.RecordCall(id, 200, 120, "/send-summarization")
	_ = metrics.RecordCall(id, 200, 80, "/send-summarization")
	_ = metrics.RecordCall(id, 500, 40, "/send-summarization")

	s := metrics.Summarize(id)
	if s.TotalRequests != 3 || s.Successful != 2 || s.Failed != 1 {
		t.Errorf("counts wrong: %+v", s)
	}
	if s.SuccessRate < 0.66 || s.SuccessRate > 0.67 {
		t.Errorf("success rate = %v", s.SuccessRate)
	}
	if s.AvgResponseTime != 80 || s.MinResponseTime != 40 || s.MaxResponseTime != 120 {
		t.Errorf("durations wrong: %+v", s)
	}
	if len(s.RequestsOverTime) != 1 || s.RequestsOverTime[0].Value != 3 {
		t.Errorf("requests over time wrong: %+v", s.RequestsOverTime)
	}
}

func TestMetricsEmptySummary(t *testing.T) {
	metrics, err := NewMetrics(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	s := metrics.Summarize("agent_1_dddddddd")
	if s.TotalRequests != 0 || s.SuccessRate != 0 || len(s.Calls) != 0 {
		t.Errorf("empty summary wrong: %+v", s)
	}
}

func TestMetricsPurge(t *testing.T) {
	metrics, err := NewMetrics(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	const id = "agent_1_eeeeeeee"
	_ = metrics.RecordCall(id, 200, 10, "/")
	if err := metrics.Purge(id); err != nil {
		t.Fatal(err)
	}
	if s := metrics.Summarize(id); s.TotalRequests != 0 {
		t.Errorf("metrics survived purge: %+v", s)
	}
}
