package models

// JiraTicketResult records the outcome of creating the incident ticket.
type JiraTicketResult struct {
	TicketKey string `json:"ticket_key"`
	TicketURL string `json:"ticket_url,omitempty"`
}

// RemediationResult records the outcome of the code-provider remediation
// attempt: whether a PR was produced, and the diff preview shown in the
// incident detail view.
type RemediationResult struct {
	Success             bool    `json:"success"`
	ActionTaken         RecommendedAction `json:"action_taken"`
	BranchName          string  `json:"branch_name,omitempty"`
	PRNumber            int     `json:"pr_number,omitempty"`
	PRURL               string  `json:"pr_url,omitempty"`
	PRMerged            bool    `json:"pr_merged"`
	TargetFile          string  `json:"target_file,omitempty"`
	DiffOldLine         string  `json:"diff_old_line,omitempty"`
	DiffNewLine         string  `json:"diff_new_line,omitempty"`
	ExecutionTimeSecs   float64 `json:"execution_time_seconds"`
	ErrorMessage        string  `json:"error_message,omitempty"`
}
