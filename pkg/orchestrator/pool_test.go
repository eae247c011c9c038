package orchestrator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/resilix/orchestrator/pkg/models"
	"github.com/resilix/orchestrator/pkg/providers/code"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu    sync.Mutex
	saved []*models.IncidentState
}

func (f *fakeStore) Save(ctx context.Context, state *models.IncidentState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, state)
	return nil
}

func (f *fakeStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saved)
}

func testPipeline() *Pipeline {
	return &Pipeline{
		TicketProvider:     &fakeTicketProvider{},
		CodeProvider:       &fakeCodeProvider{gate: code.MergeGateStatus{CIPassed: true, CodeownerReviewed: true}},
		TicketProviderName: "jira_mock",
		CodeProviderName:   "github_mock",
		Jira:               testJira(),
		Policy:             testPolicy(),
		DefaultOwner:       "acme",
	}
}

func TestPoolProcessesSubmittedIncident(t *testing.T) {
	store := &fakeStore{}
	pool := NewPool("pod-1", testPipeline(), store, 2, 4)
	pool.Start(context.Background())
	defer pool.Stop()

	require.NoError(t, pool.Submit("INC-1", alertPayload()))

	require.Eventually(t, func() bool { return store.count() == 1 }, time.Second, 5*time.Millisecond)
}

func TestPoolRejectsDuplicateActiveIncident(t *testing.T) {
	store := &fakeStore{}
	pool := NewPool("pod-1", testPipeline(), store, 1, 1)

	pool.mu.Lock()
	pool.activeIncidents["INC-dup"] = func() {}
	pool.mu.Unlock()

	err := pool.Submit("INC-dup", alertPayload())
	require.ErrorIs(t, err, ErrIncidentActive)
}

func TestPoolRejectsWhenQueueFull(t *testing.T) {
	store := &fakeStore{}
	pool := NewPool("pod-1", testPipeline(), store, 1, 1)
	// Fill the queue directly without starting workers to drain it.
	pool.queue <- job{incidentID: "INC-filler", rawAlert: alertPayload()}

	err := pool.Submit("INC-2", alertPayload())
	require.ErrorIs(t, err, ErrQueueFull)
}

func TestPoolHealthReportsWorkerCount(t *testing.T) {
	store := &fakeStore{}
	pool := NewPool("pod-1", testPipeline(), store, 3, 8)
	pool.Start(context.Background())
	defer pool.Stop()

	health := pool.Health()
	require.Equal(t, 3, health.TotalWorkers)
	require.True(t, health.IsHealthy)
}

func TestPoolCancelReturnsFalseWhenNotActive(t *testing.T) {
	store := &fakeStore{}
	pool := NewPool("pod-1", testPipeline(), store, 1, 1)
	require.False(t, pool.Cancel("no-such-incident"))
}
