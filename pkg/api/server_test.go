package api

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/resilix/orchestrator/pkg/config"
	"github.com/resilix/orchestrator/pkg/orchestrator"
	"github.com/resilix/orchestrator/pkg/providers/code"
	"github.com/resilix/orchestrator/pkg/providers/ticket"
	"github.com/resilix/orchestrator/pkg/session"
)

func testConfig() *config.Config {
	cfg := &config.Config{GinMode: "test"}
	cfg.Policy.RequirePRApproval = true
	cfg.Policy.RequireCIPass = true
	cfg.Policy.RequireCodeownerReview = false
	cfg.Policy.MergeMethod = config.MergeMethodSquash
	cfg.Jira.Mode = config.ModeMock
	cfg.Jira.StatusTodo = "To Do"
	cfg.Jira.StatusInProgress = "In Progress"
	cfg.Jira.StatusInReview = "In Review"
	cfg.Jira.StatusDone = "Done"
	cfg.GitHub.Mode = config.ModeMock
	return cfg
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := testConfig()
	store := session.NewMemoryStore()

	tp := ticket.NewMockProvider()
	cp := code.NewMockProvider()

	pipeline := &orchestrator.Pipeline{
		TicketProvider:     tp,
		CodeProvider:       cp,
		TicketProviderName: "jira_mock",
		CodeProviderName:   "github_mock",
		Jira:               cfg.Jira,
		Policy:             cfg.Policy,
		DefaultOwner:       "platform-team",
	}
	pool := orchestrator.NewPool("test-pod", pipeline, store, 2, 16)
	pool.Start(context.Background())
	t.Cleanup(pool.Stop)

	return NewServer(cfg, store, pool, nil, tp, "jira_mock", cp, "github_mock", nil)
}

func newTestRecorder() *httptest.ResponseRecorder {
	return httptest.NewRecorder()
}
