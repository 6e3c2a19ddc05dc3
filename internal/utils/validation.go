package utils

import (
	"fmt"

	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/domain"
)

// ValidateDataset 检查静态数据或快照中的记录是否满足基本约束
func ValidateDataset(ds *domain.Dataset) error {
	for i, c := range ds.Capacities {
		if err := ValidateCapacityRecord(&c); err != nil {
			return fmt.Errorf("第 %d 条产能记录: %w", i, err)
		}
	}

	for i, job := range ds.Jobs {
		if err := ValidateJobRecord(&job); err != nil {
			return fmt.Errorf("第 %d 条作业记录: %w", i, err)
		}
	}

	return nil
}

func ValidateCapacityRecord(c *domain.CapacityRecord) error {
	if c.ResourceGroupID == "" {
		return fmt.Errorf("资源组不能为空")
	}

	if len(c.DailyCapacities) != domain.DaysPerWeek {
		return fmt.Errorf("资源组 %s 的每日产能数量必须为 %d，实际为 %d", c.ResourceGroupID, domain.DaysPerWeek, len(c.DailyCapacities))
	}

	for day, v := range c.DailyCapacities {
		if v < 0 {
			return fmt.Errorf("资源组 %s 第 %d 天的产能不能为负数", c.ResourceGroupID, day)
		}
	}

	return nil
}

func ValidateJobRecord(job *domain.JobRecord) error {
	if job.PlannedStartDate.IsZero() {
		return fmt.Errorf("作业 %d 工序 %d 缺少计划开始日期", job.Job, job.Operation)
	}

	if job.StandardProcessTimeHours < 0 {
		return fmt.Errorf("作业 %d 工序 %d 的标准工时不能为负数", job.Job, job.Operation)
	}

	return nil
}
