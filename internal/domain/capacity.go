package domain

// DaysPerWeek 为每条产能记录中每日产能的数量，下标 0 对应周日
const DaysPerWeek = 7

// DefaultDailyCapacity 为缺失或非法产能值的默认工时
const DefaultDailyCapacity = 24.0

type CapacityRecord struct {
	ResourceGroupID string    `json:"resourceGroupId"`
	DailyCapacities []float64 `json:"dailyCapacities"`
}

// DefaultDailyCapacities 返回一周全部为默认工时的产能数组
func DefaultDailyCapacities() []float64 {
	capacities := make([]float64, DaysPerWeek)
	for i := range capacities {
		capacities[i] = DefaultDailyCapacity
	}
	return capacities
}
