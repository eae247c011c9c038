package orchestrator

import (
	"strings"
	"testing"

	"github.com/resilix/orchestrator/pkg/models"
	"github.com/stretchr/testify/require"
)

func TestPriorityForSeverity(t *testing.T) {
	require.Equal(t, "P1", priorityForSeverity(models.SeverityCritical))
	require.Equal(t, "P2", priorityForSeverity(models.SeverityHigh))
	require.Equal(t, "P3", priorityForSeverity(models.SeverityMedium))
	require.Equal(t, "P4", priorityForSeverity(models.SeverityLow))
}

func TestTicketFromSignatureFormatsSummary(t *testing.T) {
	sig := models.ThoughtSignature{RootCause: "Dependency communications degraded under timeout conditions."}
	ticket := ticketFromSignature(sig, models.SeverityHigh, "checkout")
	require.True(t, strings.HasPrefix(ticket.Summary, "[checkout] "))
	require.Equal(t, "P2", ticket.Priority)
}

func TestTruncateSummaryRespectsLimit(t *testing.T) {
	long := strings.Repeat("x", 200)
	require.Len(t, truncateSummary(long, 140), 140)
	require.Equal(t, "short", truncateSummary("short", 140))
}
