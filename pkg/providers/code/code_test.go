package code

import (
	"context"
	"testing"

	"github.com/resilix/orchestrator/pkg/models"
	"github.com/stretchr/testify/require"
)

func TestMockProviderCreateRemediationPRIsDeterministic(t *testing.T) {
	m := NewMockProvider()
	req := RemediationRequest{
		IncidentID: "incident-123",
		Repository: "acme/payments",
		TargetFile: "infra/resolver.yaml",
		Action:     models.ActionConfigChange,
		Summary:    "fix resolver",
	}
	r1, err := m.CreateRemediationPR(context.Background(), req)
	require.NoError(t, err)
	r2, err := m.CreateRemediationPR(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, r1.PRNumber, r2.PRNumber)
	require.True(t, r1.PRNumber >= 1000 && r1.PRNumber < 10000)
}

func TestMockProviderGetMergeGateStatusAlwaysPasses(t *testing.T) {
	m := NewMockProvider()
	status, err := m.GetMergeGateStatus(context.Background(), "acme/payments", 42)
	require.NoError(t, err)
	require.True(t, status.CIPassed)
	require.True(t, status.CodeownerReviewed)
}

func TestMockProviderMergePR(t *testing.T) {
	m := NewMockProvider()
	merged, err := m.MergePR(context.Background(), "acme/payments", 42, "squash")
	require.NoError(t, err)
	require.True(t, merged)
}
