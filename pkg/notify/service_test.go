package notify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestServiceNilReceiverIsNoOp(t *testing.T) {
	var s *Service

	require.NotPanics(t, func() {
		s.NotifyIncidentResolved(context.Background(), IncidentResolvedInput{IncidentID: "INC-1"})
	})
	require.NotPanics(t, func() {
		s.NotifyEscalatedToHuman(context.Background(), EscalatedToHumanInput{IncidentID: "INC-1"})
	})
}

func TestNewServiceReturnsNilWhenUnconfigured(t *testing.T) {
	require.Nil(t, NewService(ServiceConfig{Token: "", Channel: "C123"}))
	require.Nil(t, NewService(ServiceConfig{Token: "xoxb-test", Channel: ""}))
}

func TestNewServiceReturnsServiceWhenConfigured(t *testing.T) {
	svc := NewService(ServiceConfig{Token: "xoxb-test", Channel: "C123", DashboardURL: "https://example.com"})
	require.NotNil(t, svc)
}
