package notify

import (
	"fmt"

	goslack "github.com/slack-go/slack"
)

const maxBlockTextLength = 2900

func incidentURL(incidentID, dashboardURL string) string {
	return fmt.Sprintf("%s/incidents/%s", dashboardURL, incidentID)
}

// BuildIncidentResolvedMessage creates Block Kit blocks for an
// incident_resolved notification (spec §4.5, §6 event "incident_resolved").
func BuildIncidentResolvedMessage(input IncidentResolvedInput, dashboardURL string) []goslack.Block {
	text := fmt.Sprintf(":white_check_mark: *Incident resolved* — `%s` (%s)\n<%s|View in Dashboard>",
		input.IncidentID, input.ServiceName, incidentURL(input.IncidentID, dashboardURL))
	if input.PRURL != "" {
		text += fmt.Sprintf("\nRemediation merged: <%s|%s>", input.PRURL, input.PRURL)
	}

	return []goslack.Block{
		goslack.NewSectionBlock(
			goslack.NewTextBlockObject(goslack.MarkdownType, text, false, false),
			nil, nil,
		),
	}
}

// BuildEscalatedToHumanMessage creates Block Kit blocks for an
// escalated_to_human notification (spec §4.5, §6 event "escalated_to_human").
func BuildEscalatedToHumanMessage(input EscalatedToHumanInput, dashboardURL string) []goslack.Block {
	text := fmt.Sprintf(":rotating_light: *Escalated to human* — `%s` (%s)\n*Reason:* %s\n<%s|View in Dashboard>",
		input.IncidentID, input.ServiceName, truncateForSlack(input.Reason), incidentURL(input.IncidentID, dashboardURL))

	btn := goslack.NewButtonBlockElement("", "", goslack.NewTextBlockObject(goslack.PlainTextType, "Review Incident", false, false))
	btn.URL = incidentURL(input.IncidentID, dashboardURL)

	return []goslack.Block{
		goslack.NewSectionBlock(
			goslack.NewTextBlockObject(goslack.MarkdownType, text, false, false),
			nil, nil,
		),
		goslack.NewActionBlock("", btn),
	}
}

func truncateForSlack(text string) string {
	if len(text) <= maxBlockTextLength {
		return text
	}
	return text[:maxBlockTextLength] + "\n\n_... (truncated)_"
}
