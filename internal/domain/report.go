package domain

import "time"

// ReportDays 为调试报表覆盖的连续天数
const ReportDays = 21

type JobUsage struct {
	Usage       float64 `json:"usage"`
	Operation   int64   `json:"operation"`
	ProcessTime float64 `json:"processTime"`
}

type DailyReportEntry struct {
	Date              string              `json:"date"` // YYYY-MM-DD
	AvailableCapacity float64             `json:"availableCapacity"`
	PlannedCapacity   float64             `json:"plannedCapacity"`
	ScheduledCapacity float64             `json:"scheduledCapacity"`
	Utilization       float64             `json:"utilization"`
	JobUsage          map[string]JobUsage `json:"jobUsage"`
}

type ResourceGroupReport struct {
	ResourceGroupID string             `json:"resourceGroupId"`
	DailyData       []DailyReportEntry `json:"dailyData"`
}

type Report struct {
	GeneratedAt    time.Time             `json:"generatedAt"`
	StartDate      string                `json:"startDate"`
	Days           int                   `json:"days"`
	SelectedJob    *string               `json:"selectedJob"`
	UseScheduled   bool                  `json:"useScheduled"`
	ResourceGroups []ResourceGroupReport `json:"resourceGroups"`
}
