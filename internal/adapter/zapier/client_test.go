package zapier_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Strob0t/AgentForge/internal/adapter/zapier"
	"github.com/Strob0t/AgentForge/internal/domain"
	"github.com/Strob0t/AgentForge/internal/domain/action"
)

func TestActionsRemote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/exposed/" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if key := r.Header.Get("X-API-Key"); key != "test-key" {
			t.Fatalf("unexpected api key: %q", key)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results":[
			{"id":"a1","description":"Slack: Send Channel Message","params":{"channel":"string","message":"string"}},
			{"id":"a2","description":"Trello: Get Cards","params":{"board":"string"}}
		]}`))
	}))
	defer srv.Close()

	client := zapier.NewClient(srv.URL, "test-key", time.Second)
	entries, err := client.Actions(context.Background())
	if err != nil {
		t.Fatalf("Actions failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Service != "Slack" || entries[0].Name != "Send Channel Message" {
		t.Errorf("bad description split: %+v", entries[0])
	}
	if entries[1].ArgSchema["board"] != "string" {
		t.Errorf("arg schema not carried over: %+v", entries[1])
	}
}

func TestActionsRemoteFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := zapier.NewClient(srv.URL, "test-key", time.Second)
	if _, err := client.Actions(context.Background()); !errors.Is(err, domain.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestActionsBuiltinWithoutKey(t *testing.T) {
	client := zapier.NewClient("http://unused", "", time.Second)
	entries, err := client.Actions(context.Background())
	if err != nil {
		t.Fatalf("Actions failed: %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("builtin catalog is empty")
	}

	slack := action.FilterByServices(entries, []string{"slack"})
	if len(slack) == 0 {
		t.Fatal("builtin catalog has no Slack actions")
	}
	found := false
	for _, e := range slack {
		if e.Name == "Send Channel Message" {
			found = true
			if e.ID != "slack.send_channel_message" {
				t.Errorf("unexpected id %q", e.ID)
			}
		}
	}
	if !found {
		t.Error("Send Channel Message missing from Slack actions")
	}
}

func TestBuiltinCatalogStableOrder(t *testing.T) {
	a := zapier.BuiltinCatalog()
	b := zapier.BuiltinCatalog()
	if len(a) != len(b) {
		t.Fatalf("catalog size varies: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].ID != b[i].ID {
			t.Fatalf("catalog order varies at %d: %s vs %s", i, a[i].ID, b[i].ID)
		}
	}
}
