package notify

import (
	"strings"
	"testing"

	goslack "github.com/slack-go/slack"
	"github.com/stretchr/testify/require"
)

func TestBuildIncidentResolvedMessageIncludesIncidentID(t *testing.T) {
	blocks := BuildIncidentResolvedMessage(IncidentResolvedInput{
		IncidentID:  "INC-42",
		ServiceName: "checkout",
		PRURL:       "https://github.com/acme/app/pull/7",
	}, "https://dashboard.example.com")

	require.Len(t, blocks, 1)
	section, ok := blocks[0].(*goslack.SectionBlock)
	require.True(t, ok)
	require.Contains(t, section.Text.Text, "INC-42")
}

func TestBuildEscalatedToHumanMessageHasActionButton(t *testing.T) {
	blocks := BuildEscalatedToHumanMessage(EscalatedToHumanInput{
		IncidentID:  "INC-7",
		ServiceName: "payments",
		Reason:      "ambiguous signal",
	}, "https://dashboard.example.com")

	require.Len(t, blocks, 2)
}

func TestTruncateForSlackRespectsLimit(t *testing.T) {
	long := strings.Repeat("x", maxBlockTextLength+500)
	truncated := truncateForSlack(long)
	require.LessOrEqual(t, len(truncated), maxBlockTextLength+50)
	require.Equal(t, "short", truncateForSlack("short"))
}
