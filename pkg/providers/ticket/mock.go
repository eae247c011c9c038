package ticket

import (
	"context"
	"fmt"
	"hash/crc32"
	"time"
)

// MockProvider is a deterministic in-memory ticket provider used when the
// Jira integration mode is mock. Grounded on
// mock_providers.py's MockTicketProvider: ticket keys and transitions are
// derived deterministically from the incident ID rather than random, so
// repeated runs of a fixture produce identical output.
type MockProvider struct{}

// NewMockProvider constructs a MockProvider.
func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

func (m *MockProvider) CreateIncidentTicket(ctx context.Context, incidentID, summary, description, priority string) (Record, error) {
	num := crc32.ChecksumIEEE([]byte(incidentID)) % 100000
	key := formatTicketKey(num)
	return Record{
		TicketKey: key,
		TicketURL: "https://mock.atlassian.net/browse/" + key,
		Summary:   summary,
		Priority:  priority,
		Status:    "Open",
		CreatedAt: time.Now().UTC(),
	}, nil
}

func (m *MockProvider) TransitionTicket(ctx context.Context, ticketKey, targetStatus string) (TransitionResult, error) {
	return TransitionResult{
		OK:                  true,
		FromStatus:          "",
		ToStatus:             targetStatus,
		AppliedTransitionID: "mock-transition",
	}, nil
}

func formatTicketKey(num uint32) string {
	return fmt.Sprintf("SRE-%05d", num%100000)
}
