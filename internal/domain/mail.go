package domain

import "encoding/json"

const MailTypeCapacityReport = "capacity_report"

type MailMessage struct {
	Type string          `json:"type"`
	To   string          `json:"to"`
	Data json.RawMessage `json:"data"`
}

type CapacityReportMailData struct {
	RequestedBy    string          `json:"requestedBy"`
	StartDate      string          `json:"startDate"`
	SelectedJob    *string         `json:"selectedJob"`
	UseScheduled   bool            `json:"useScheduled"`
	ResourceGroups int             `json:"resourceGroups"`
	Report         json.RawMessage `json:"report"`
}
