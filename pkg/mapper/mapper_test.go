package mapper

import (
	"testing"
	"time"

	"github.com/resilix/orchestrator/pkg/models"
	"github.com/stretchr/testify/require"
)

func TestDeriveStatusFieldsNoRemediation(t *testing.T) {
	state := &models.IncidentState{}
	status, approval, pr := DeriveStatusFields(state)
	require.Equal(t, models.StatusProcessing, status)
	require.Equal(t, models.PRNotCreated, pr)
	require.Equal(t, models.ApprovalNotRequired, approval)
}

func TestDeriveStatusFieldsAwaitingApproval(t *testing.T) {
	state := &models.IncidentState{
		RemediationResult: &models.RemediationResult{PRNumber: 1},
		CIStatus:          models.CICIPassed,
		Approval:          models.Approval{Required: true},
	}
	status, approval, pr := DeriveStatusFields(state)
	require.Equal(t, models.StatusAwaitingApproval, status)
	require.Equal(t, models.ApprovalPending, approval)
	require.Equal(t, models.PRCIPassed, pr)
}

func TestDeriveStatusFieldsMergingWhenApprovedOrNotRequired(t *testing.T) {
	approved := &models.IncidentState{
		RemediationResult: &models.RemediationResult{PRNumber: 1},
		CIStatus:          models.CICIPassed,
		Approval:          models.Approval{Required: true, Approved: true},
	}
	status, _, _ := DeriveStatusFields(approved)
	require.Equal(t, models.StatusMerging, status)

	notRequired := &models.IncidentState{
		RemediationResult: &models.RemediationResult{PRNumber: 1},
		CIStatus:          models.CICIPassed,
		Approval:          models.Approval{Required: false},
	}
	status2, _, _ := DeriveStatusFields(notRequired)
	require.Equal(t, models.StatusMerging, status2)
}

func TestDeriveStatusFieldsResolved(t *testing.T) {
	state := &models.IncidentState{
		RemediationResult: &models.RemediationResult{PRNumber: 1, PRMerged: true},
		Approval:          models.Approval{Required: true, Approved: true},
	}
	status, approval, pr := DeriveStatusFields(state)
	require.Equal(t, models.StatusResolved, status)
	require.Equal(t, models.PRMerged, pr)
	require.Equal(t, models.ApprovalApproved, approval)
}

func TestDeriveStatusFieldsPendingCI(t *testing.T) {
	state := &models.IncidentState{
		RemediationResult: &models.RemediationResult{PRNumber: 1},
		CIStatus:          models.CIPending,
		Approval:          models.Approval{Required: true},
	}
	status, _, pr := DeriveStatusFields(state)
	require.Equal(t, models.StatusProcessing, status)
	require.Equal(t, models.PRPendingCI, pr)
}

func TestComputeMTTR(t *testing.T) {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	resolved := created.Add(90 * time.Second)
	state := &models.IncidentState{CreatedAt: created, ResolvedAt: &resolved}
	mttr := ComputeMTTR(state)
	require.NotNil(t, mttr)
	require.Equal(t, 90.0, *mttr)
}

func TestComputeMTTRUndefinedWhenBeforeCreated(t *testing.T) {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	resolved := created.Add(-time.Second)
	state := &models.IncidentState{CreatedAt: created, ResolvedAt: &resolved}
	require.Nil(t, ComputeMTTR(state))
}

func TestAppendTimelineEventPreservesOrder(t *testing.T) {
	state := &models.IncidentState{}
	AppendTimelineEvent(state, models.TimelineEvent{EventType: models.EventIncidentCreated})
	AppendTimelineEvent(state, models.TimelineEvent{EventType: models.EventAlertValidated})
	require.Len(t, state.Timeline, 2)
	require.Equal(t, models.EventIncidentCreated, state.Timeline[0].EventType)
	require.Equal(t, models.EventAlertValidated, state.Timeline[1].EventType)
}
