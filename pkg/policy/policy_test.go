package policy

import (
	"testing"
	"time"

	"github.com/resilix/orchestrator/pkg/models"
	"github.com/stretchr/testify/require"
)

func baseState() *models.IncidentState {
	return &models.IncidentState{
		IncidentID: "INC-aaaaaaaa",
		CreatedAt:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		RemediationResult: &models.RemediationResult{
			PRNumber: 42,
			PRURL:    "https://github.com/acme/repo/pull/42",
		},
		Approval: models.Approval{Required: true},
		Policy: models.PolicySnapshot{
			RequireCIPass:          true,
			RequireCodeownerReview: true,
		},
		CIStatus:              models.CICIPassed,
		CodeownerReviewStatus: models.ReviewApproved,
	}
}

func TestEvaluateApprovalRequestNoPR(t *testing.T) {
	state := baseState()
	state.RemediationResult = nil
	d := EvaluateApprovalRequest(state)
	require.False(t, d.Eligible)
	require.Equal(t, CodePRNotCreated, d.Code)
}

func TestEvaluateApprovalRequestCINotPassed(t *testing.T) {
	state := baseState()
	state.CIStatus = models.CIPending
	d := EvaluateApprovalRequest(state)
	require.False(t, d.Eligible)
	require.Equal(t, CodeCINotPassed, d.Code)
}

func TestEvaluateApprovalRequestEligibleThenIdempotent(t *testing.T) {
	state := baseState()
	d := EvaluateApprovalRequest(state)
	require.True(t, d.Eligible)

	ApplyApprovalAndMerge(state, time.Date(2026, 1, 1, 1, 0, 0, 0, time.UTC))

	d2 := EvaluateApprovalRequest(state)
	require.False(t, d2.Eligible)
	require.Equal(t, CodeAlreadyMerged, d2.Code)
}

func TestEvaluateApprovalRequestAlreadyApproved(t *testing.T) {
	state := baseState()
	state.Approval.Approved = true
	d := EvaluateApprovalRequest(state)
	require.False(t, d.Eligible)
	require.Equal(t, CodeAlreadyApproved, d.Code)
}

func TestEvaluateMergeEligibilityAutoMergePath(t *testing.T) {
	state := baseState()
	state.Approval.Required = false
	d := EvaluateMergeEligibility(state)
	require.True(t, d.Eligible)
}

func TestApplyApprovalAndMergeSetsResolvedAt(t *testing.T) {
	state := baseState()
	now := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	ApplyApprovalAndMerge(state, now)
	require.True(t, state.RemediationResult.PRMerged)
	require.NotNil(t, state.ResolvedAt)
	require.Equal(t, now, *state.ResolvedAt)
	require.True(t, state.Approval.Approved)
}
