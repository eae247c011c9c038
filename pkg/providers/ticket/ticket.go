// Package ticket implements the ticket-provider capability: create an
// incident ticket and transition it through its lifecycle, with mock and
// Jira REST API v3 backends. Grounded on
// original_source/src/resilix/services/integrations/{base,jira_direct,mock_providers}.py.
package ticket

import (
	"context"
	"time"
)

// Record is the ticket record returned by CreateIncidentTicket (spec §4.3).
type Record struct {
	TicketKey string
	TicketURL string
	Summary   string
	Priority  string
	Status    string
	CreatedAt time.Time
}

// TransitionResult is the outcome of a transition attempt (spec §4.3).
type TransitionResult struct {
	OK                  bool
	FromStatus          string
	ToStatus            string
	AppliedTransitionID string
	Reason              string
}

// Provider is the ticket-provider capability surface (spec §4.3).
type Provider interface {
	CreateIncidentTicket(ctx context.Context, incidentID, summary, description, priority string) (Record, error)
	TransitionTicket(ctx context.Context, ticketKey, targetStatus string) (TransitionResult, error)
}
