package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/resilix/orchestrator/pkg/config"
	"github.com/resilix/orchestrator/pkg/models"
	"github.com/resilix/orchestrator/pkg/providers/code"
	"github.com/resilix/orchestrator/pkg/providers/ticket"
	"github.com/stretchr/testify/require"
)

type fakeTicketProvider struct {
	createErr     error
	transitionErr map[string]error
}

func (f *fakeTicketProvider) CreateIncidentTicket(ctx context.Context, incidentID, summary, description, priority string) (ticket.Record, error) {
	if f.createErr != nil {
		return ticket.Record{}, f.createErr
	}
	return ticket.Record{TicketKey: "SRE-1", TicketURL: "https://jira.example/SRE-1", Summary: summary, Priority: priority, Status: "To Do", CreatedAt: time.Unix(0, 0)}, nil
}

func (f *fakeTicketProvider) TransitionTicket(ctx context.Context, ticketKey, targetStatus string) (ticket.TransitionResult, error) {
	if err, ok := f.transitionErr[targetStatus]; ok {
		return ticket.TransitionResult{}, err
	}
	return ticket.TransitionResult{OK: true, ToStatus: targetStatus, AppliedTransitionID: "31"}, nil
}

type fakeCodeProvider struct {
	createErr error
	gateErr   error
	gate      code.MergeGateStatus
}

func (f *fakeCodeProvider) CreateRemediationPR(ctx context.Context, req code.RemediationRequest) (models.RemediationResult, error) {
	if f.createErr != nil {
		return models.RemediationResult{}, f.createErr
	}
	return models.RemediationResult{Success: true, ActionTaken: req.Action, BranchName: "fix/resilix-x", PRNumber: 42, PRURL: "https://github.com/acme/app/pull/42"}, nil
}

func (f *fakeCodeProvider) GetMergeGateStatus(ctx context.Context, repository string, prNumber int) (code.MergeGateStatus, error) {
	if f.gateErr != nil {
		return code.MergeGateStatus{}, f.gateErr
	}
	return f.gate, nil
}

func (f *fakeCodeProvider) MergePR(ctx context.Context, repository string, prNumber int, method string) (bool, error) {
	return true, nil
}

func testPolicy() config.MergeGatePolicy {
	return config.MergeGatePolicy{RequirePRApproval: true, RequireCIPass: true, RequireCodeownerReview: true, MergeMethod: config.MergeMethodSquash}
}

func testJira() config.JiraConfig {
	return config.JiraConfig{StatusTodo: "To Do", StatusInProgress: "In Progress", StatusInReview: "In Review", StatusDone: "Done"}
}

func alertPayload() map[string]any {
	return map[string]any{
		"alerts": []any{
			map[string]any{
				"labels":      map[string]any{"service": "checkout", "severity": "critical"},
				"annotations": map[string]any{"summary": "checkout errors spiking"},
			},
		},
	}
}

func TestPipelineRunHappyPath(t *testing.T) {
	p := &Pipeline{
		TicketProvider:     &fakeTicketProvider{},
		CodeProvider:       &fakeCodeProvider{gate: code.MergeGateStatus{CIPassed: true, CodeownerReviewed: true}},
		TicketProviderName: "jira_mock",
		CodeProviderName:   "github_mock",
		Jira:               testJira(),
		Policy:             testPolicy(),
		DefaultOwner:       "acme",
	}

	state, err := p.Run(context.Background(), alertPayload(), "INC-100")
	require.NoError(t, err)
	require.NotNil(t, state.JiraTicket)
	require.Equal(t, "SRE-1", state.JiraTicket.TicketKey)
	require.NotNil(t, state.RemediationResult)
	require.True(t, state.RemediationResult.Success)
	require.Equal(t, models.CICIPassed, state.CIStatus)
	require.Equal(t, models.ReviewApproved, state.CodeownerReviewStatus)
	require.Len(t, state.IntegrationTrace.JiraTransitions, 3)
	require.True(t, state.IntegrationTrace.FallbackUsed)
	require.Equal(t, "direct_integrations", state.IntegrationTrace.ExecutionPath)
	require.Empty(t, state.IntegrationTrace.ProviderError)
}

func TestPipelineRunTicketFailureRecordedOnState(t *testing.T) {
	p := &Pipeline{
		TicketProvider:     &fakeTicketProvider{createErr: errors.New("jira down")},
		CodeProvider:       &fakeCodeProvider{},
		TicketProviderName: "jira_api",
		CodeProviderName:   "github_api",
		Jira:               testJira(),
		Policy:             testPolicy(),
		DefaultOwner:       "acme",
	}

	state, err := p.Run(context.Background(), alertPayload(), "INC-101")
	require.NoError(t, err)
	require.Nil(t, state.JiraTicket)
	require.NotNil(t, state.RemediationResult)
	require.False(t, state.RemediationResult.Success)
	require.Contains(t, state.IntegrationTrace.ProviderError, "jira_error")
}

func TestPipelineRunRemediationFailureRecordedOnState(t *testing.T) {
	p := &Pipeline{
		TicketProvider:     &fakeTicketProvider{},
		CodeProvider:       &fakeCodeProvider{createErr: errors.New("github down")},
		TicketProviderName: "jira_mock",
		CodeProviderName:   "github_mock",
		Jira:               testJira(),
		Policy:             testPolicy(),
		DefaultOwner:       "acme",
	}

	state, err := p.Run(context.Background(), alertPayload(), "INC-102")
	require.NoError(t, err)
	require.NotNil(t, state.JiraTicket)
	require.False(t, state.RemediationResult.Success)
	require.Contains(t, state.IntegrationTrace.ProviderError, "github_error")
}

func TestPipelineRunTransitionFailureRecordedButContinues(t *testing.T) {
	p := &Pipeline{
		TicketProvider: &fakeTicketProvider{transitionErr: map[string]error{
			"In Progress": errors.New("no such transition"),
		}},
		CodeProvider:       &fakeCodeProvider{gate: code.MergeGateStatus{CIPassed: true, CodeownerReviewed: true}},
		TicketProviderName: "jira_mock",
		CodeProviderName:   "github_mock",
		Jira:               testJira(),
		Policy:             testPolicy(),
		DefaultOwner:       "acme",
	}

	state, err := p.Run(context.Background(), alertPayload(), "INC-103")
	require.NoError(t, err)
	require.Len(t, state.IntegrationTrace.JiraTransitions, 3)
	require.False(t, state.IntegrationTrace.JiraTransitions[1].OK)
	require.NotNil(t, state.RemediationResult)
}

func TestPipelineRunInReviewTransitionAfterPRCreation(t *testing.T) {
	p := &Pipeline{
		TicketProvider:     &fakeTicketProvider{},
		CodeProvider:       &fakeCodeProvider{gate: code.MergeGateStatus{CIPassed: true, CodeownerReviewed: true}},
		TicketProviderName: "jira_mock",
		CodeProviderName:   "github_mock",
		Jira:               testJira(),
		Policy:             testPolicy(),
		DefaultOwner:       "acme",
	}

	state, err := p.Run(context.Background(), alertPayload(), "INC-104")
	require.NoError(t, err)

	var prCreatedIdx, inReviewIdx int = -1, -1
	for i, ev := range state.Timeline {
		if ev.EventType == models.EventPRCreated {
			prCreatedIdx = i
		}
		if ev.EventType == models.EventTicketMovedInReview {
			inReviewIdx = i
		}
	}
	require.GreaterOrEqual(t, prCreatedIdx, 0)
	require.GreaterOrEqual(t, inReviewIdx, 0)
	require.Less(t, prCreatedIdx, inReviewIdx, "pr_created must precede ticket_moved_in_review")
}

func TestPipelineRunAutoMergesWhenApprovalNotRequired(t *testing.T) {
	policyCfg := testPolicy()
	policyCfg.RequirePRApproval = false

	p := &Pipeline{
		TicketProvider:     &fakeTicketProvider{},
		CodeProvider:       &fakeCodeProvider{gate: code.MergeGateStatus{CIPassed: true, CodeownerReviewed: true}},
		TicketProviderName: "jira_mock",
		CodeProviderName:   "github_mock",
		Jira:               testJira(),
		Policy:             policyCfg,
		DefaultOwner:       "acme",
	}

	state, err := p.Run(context.Background(), alertPayload(), "INC-105")
	require.NoError(t, err)
	require.False(t, state.Approval.Required)
	require.NotNil(t, state.RemediationResult)
	require.True(t, state.RemediationResult.PRMerged)
	require.NotNil(t, state.ResolvedAt)
	require.Len(t, state.IntegrationTrace.JiraTransitions, 4)
	require.Equal(t, "Done", state.IntegrationTrace.JiraTransitions[3].ToStatus)

	var resolvedFound bool
	for _, ev := range state.Timeline {
		if ev.EventType == models.EventIncidentResolved {
			resolvedFound = true
		}
	}
	require.True(t, resolvedFound)
}

func TestPipelineRunDoesNotAutoMergeWhenApprovalRequired(t *testing.T) {
	p := &Pipeline{
		TicketProvider:     &fakeTicketProvider{},
		CodeProvider:       &fakeCodeProvider{gate: code.MergeGateStatus{CIPassed: true, CodeownerReviewed: true}},
		TicketProviderName: "jira_mock",
		CodeProviderName:   "github_mock",
		Jira:               testJira(),
		Policy:             testPolicy(),
		DefaultOwner:       "acme",
	}

	state, err := p.Run(context.Background(), alertPayload(), "INC-106")
	require.NoError(t, err)
	require.NotNil(t, state.RemediationResult)
	require.False(t, state.RemediationResult.PRMerged)
	require.Nil(t, state.ResolvedAt)
}
