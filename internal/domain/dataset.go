package domain

// Dataset 为产能记录和作业记录两个集合，每次加载或更新都会整体替换
type Dataset struct {
	Capacities []CapacityRecord `json:"capacities"`
	Jobs       []JobRecord      `json:"jobs"`
}
