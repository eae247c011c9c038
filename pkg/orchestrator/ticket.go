package orchestrator

import (
	"fmt"

	"github.com/resilix/orchestrator/pkg/models"
)

// ticketFromSignature derives the Jira ticket summary/priority from a
// thought signature and the triaged severity, grounded on
// orchestrator.py's build_ticket_from_signature.
type normalizedTicket struct {
	Summary  string
	Priority string
}

func ticketFromSignature(signature models.ThoughtSignature, severity models.Severity, serviceName string) normalizedTicket {
	return normalizedTicket{
		Summary:  fmt.Sprintf("[%s] %s", serviceName, truncateSummary(signature.RootCause, 140)),
		Priority: priorityForSeverity(severity),
	}
}

func priorityForSeverity(severity models.Severity) string {
	switch severity {
	case models.SeverityCritical:
		return "P1"
	case models.SeverityHigh:
		return "P2"
	case models.SeverityMedium:
		return "P3"
	default:
		return "P4"
	}
}

func truncateSummary(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
