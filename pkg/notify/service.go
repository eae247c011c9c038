package notify

import (
	"context"
	"log/slog"
	"time"
)

// ServiceConfig holds the parameters needed to construct a Service.
type ServiceConfig struct {
	Token        string
	Channel      string
	DashboardURL string
}

// IncidentResolvedInput contains data for an incident_resolved notification.
type IncidentResolvedInput struct {
	IncidentID  string
	ServiceName string
	PRURL       string
}

// EscalatedToHumanInput contains data for an escalated_to_human notification.
type EscalatedToHumanInput struct {
	IncidentID  string
	ServiceName string
	Reason      string
}

// Service handles Slack incident-lifecycle notification delivery.
// Nil-safe: all methods are no-ops when Service is nil, so callers don't
// need to branch on whether notifications are configured.
type Service struct {
	client       *Client
	dashboardURL string
	logger       *slog.Logger
}

// NewService creates a notification service. Returns nil if Token or
// Channel is empty, so notifications are silently disabled rather than
// erroring when unconfigured.
func NewService(cfg ServiceConfig) *Service {
	if cfg.Token == "" || cfg.Channel == "" {
		return nil
	}
	return &Service{
		client:       NewClient(cfg.Token, cfg.Channel),
		dashboardURL: cfg.DashboardURL,
		logger:       slog.Default().With("component", "notify-service"),
	}
}

// NewServiceWithClient creates a Service backed by a pre-built Client, for
// testing against a mock API server.
func NewServiceWithClient(client *Client, dashboardURL string) *Service {
	return &Service{
		client:       client,
		dashboardURL: dashboardURL,
		logger:       slog.Default().With("component", "notify-service"),
	}
}

// NotifyIncidentResolved sends a resolution notification. Fail-open: errors
// are logged, never returned.
func (s *Service) NotifyIncidentResolved(ctx context.Context, input IncidentResolvedInput) {
	if s == nil {
		return
	}
	blocks := BuildIncidentResolvedMessage(input, s.dashboardURL)
	if err := s.client.PostMessage(ctx, blocks, 5*time.Second); err != nil {
		s.logger.Error("failed to send incident_resolved notification", "incident_id", input.IncidentID, "error", err)
	}
}

// NotifyEscalatedToHuman sends an escalation notification. Fail-open:
// errors are logged, never returned.
func (s *Service) NotifyEscalatedToHuman(ctx context.Context, input EscalatedToHumanInput) {
	if s == nil {
		return
	}
	blocks := BuildEscalatedToHumanMessage(input, s.dashboardURL)
	if err := s.client.PostMessage(ctx, blocks, 5*time.Second); err != nil {
		s.logger.Error("failed to send escalated_to_human notification", "incident_id", input.IncidentID, "error", err)
	}
}
