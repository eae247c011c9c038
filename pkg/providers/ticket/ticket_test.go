package ticket

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMockProviderCreateIncidentTicketIsDeterministic(t *testing.T) {
	m := NewMockProvider()
	r1, err := m.CreateIncidentTicket(context.Background(), "incident-123", "s", "d", "High")
	require.NoError(t, err)
	r2, err := m.CreateIncidentTicket(context.Background(), "incident-123", "s", "d", "High")
	require.NoError(t, err)
	require.Equal(t, r1.TicketKey, r2.TicketKey)
	require.Regexp(t, `^SRE-\d{5}$`, r1.TicketKey)
}

func TestMockProviderDifferentIncidentsDifferentKeys(t *testing.T) {
	m := NewMockProvider()
	r1, err := m.CreateIncidentTicket(context.Background(), "incident-123", "s", "d", "High")
	require.NoError(t, err)
	r2, err := m.CreateIncidentTicket(context.Background(), "incident-456", "s", "d", "High")
	require.NoError(t, err)
	require.NotEqual(t, r1.TicketKey, r2.TicketKey)
}

func TestMockProviderTransitionAlwaysSucceeds(t *testing.T) {
	m := NewMockProvider()
	result, err := m.TransitionTicket(context.Background(), "SRE-00001", "in_progress")
	require.NoError(t, err)
	require.True(t, result.OK)
	require.Equal(t, "in_progress", result.ToStatus)
}

func TestParseTransitionAliasesDelimitedForm(t *testing.T) {
	aliases := ParseTransitionAliases("in review:ready for review|in peer review,done:resolved|closed")
	require.ElementsMatch(t, []string{"ready for review", "in peer review"}, aliases["in review"])
	require.ElementsMatch(t, []string{"resolved", "closed"}, aliases["done"])
}

func TestParseTransitionAliasesJSONForm(t *testing.T) {
	aliases := ParseTransitionAliases(`{"In Review": ["Ready For Review"]}`)
	require.ElementsMatch(t, []string{"ready for review"}, aliases["in review"])
}

func TestParseTransitionAliasesEmpty(t *testing.T) {
	aliases := ParseTransitionAliases("")
	require.Empty(t, aliases)
}

func TestSelectTransitionPrefersNameMatchOverDestinationMatch(t *testing.T) {
	p := NewJiraProvider(JiraConfig{TransitionAliases: "in review:ready for review"})
	transitions := []jiraTransition{
		{ID: "1", Name: "Some Other Name", To: struct {
			Name string `json:"name"`
		}{Name: "In Review"}},
		{ID: "2", Name: "Ready For Review", To: struct {
			Name string `json:"name"`
		}{Name: "Something Else"}},
	}
	selected := p.selectTransition(transitions, "in review")
	require.NotNil(t, selected)
	require.Equal(t, "2", selected.ID)
}

func TestSelectTransitionFallsBackToDestinationMatch(t *testing.T) {
	p := NewJiraProvider(JiraConfig{})
	transitions := []jiraTransition{
		{ID: "1", Name: "Move It", To: struct {
			Name string `json:"name"`
		}{Name: "In Progress"}},
	}
	selected := p.selectTransition(transitions, "in_progress")
	require.Nil(t, selected)

	transitions[0].To.Name = "in_progress"
	selected = p.selectTransition(transitions, "in_progress")
	require.NotNil(t, selected)
	require.Equal(t, "1", selected.ID)
}

func TestSelectTransitionNoMatch(t *testing.T) {
	p := NewJiraProvider(JiraConfig{})
	selected := p.selectTransition(nil, "done")
	require.Nil(t, selected)
}
