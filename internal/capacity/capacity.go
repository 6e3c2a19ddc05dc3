package capacity

import (
	"time"

	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/domain"
)

// HoursForDate 计算某道工序在 date 当天所占用的工时
//
// useScheduled 为 true 时优先使用排程开始日期和排程拆分，缺失时分别回退到计划值。
// 没有拆分数组时，只有开始当天计入全部标准工时；有拆分数组时按天偏移量取值，
// 超出数组范围（包括开始之前）的日期一律为 0，拆分数组不做外推。
func HoursForDate(job *domain.JobRecord, date time.Time, useScheduled bool, loc *time.Location) float64 {
	start := job.PlannedStartDate.Time
	if useScheduled && job.ScheduledStartDate != nil {
		start = job.ScheduledStartDate.Time
	}

	breakdown := job.PlannedMultiDayBreakdown
	if useScheduled && job.ScheduledMultiDayBreakdown != nil {
		breakdown = job.ScheduledMultiDayBreakdown
	}

	offset := DayOffset(start, date, loc)

	if breakdown == nil {
		if offset == 0 {
			return job.StandardProcessTimeHours
		}
		return 0
	}

	if offset < 0 || offset >= int64(len(breakdown)) {
		return 0
	}
	return breakdown[offset]
}

// WeeklyCapacity 按星期几（0 为周日，6 为周六）取资源组的可用产能
func WeeklyCapacity(record *domain.CapacityRecord, date time.Time) float64 {
	weekday := int(date.Weekday())
	if weekday >= len(record.DailyCapacities) {
		return 0
	}
	return record.DailyCapacities[weekday]
}

type Calculator struct {
	jobs []domain.JobRecord
	loc  *time.Location
}

// New 基于一组作业记录创建计算器，loc 为 nil 时使用本地时区
func New(jobs []domain.JobRecord, loc *time.Location) *Calculator {
	if loc == nil {
		loc = time.Local
	}
	return &Calculator{
		jobs: jobs,
		loc:  loc,
	}
}

func (c *Calculator) Location() *time.Location {
	return c.loc
}

func (c *Calculator) HoursForDate(job *domain.JobRecord, date time.Time, useScheduled bool) float64 {
	return HoursForDate(job, date, useScheduled, c.loc)
}

// GroupCapacityForDate 汇总属于该资源组的所有工序在当天的工时
func (c *Calculator) GroupCapacityForDate(resourceGroupID string, date time.Time, useScheduled bool) float64 {
	total := 0.0
	for i := range c.jobs {
		if c.jobs[i].ResourceGroupID != resourceGroupID {
			continue
		}
		total += HoursForDate(&c.jobs[i], date, useScheduled, c.loc)
	}
	return total
}

// JobCapacityForDate 汇总同一作业下所有工序在当天的工时
func (c *Calculator) JobCapacityForDate(jobID int64, date time.Time, useScheduled bool) float64 {
	total := 0.0
	for i := range c.jobs {
		if c.jobs[i].Job != jobID {
			continue
		}
		total += HoursForDate(&c.jobs[i], date, useScheduled, c.loc)
	}
	return total
}

// FirstOperation 返回该作业的第一条工序记录，不存在时返回 nil
func (c *Calculator) FirstOperation(jobID int64) *domain.JobRecord {
	for i := range c.jobs {
		if c.jobs[i].Job == jobID {
			return &c.jobs[i]
		}
	}
	return nil
}
