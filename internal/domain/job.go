package domain

type JobRecord struct {
	Job                        int64      `json:"Job"`
	Operation                  int64      `json:"Opr"`
	ResourceGroupID            string     `json:"resourceGroupId"`
	PlannedStartDate           Timestamp  `json:"plannedStartDate"`
	ScheduledStartDate         *Timestamp `json:"scheduledStartDate,omitempty"`
	StandardProcessTimeHours   float64    `json:"standardProcessTimeHours"`
	PlannedMultiDayBreakdown   []float64  `json:"plannedMultiDayBreakdown"`   // 为 nil 时表示没有按天拆分
	ScheduledMultiDayBreakdown []float64  `json:"scheduledMultiDayBreakdown"` // 与计划拆分互相独立
}
