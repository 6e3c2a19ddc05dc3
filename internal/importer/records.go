package importer

import (
	"log/slog"

	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/domain"
)

// 作业字段名及其在表格中常见的列名
var (
	jobFieldNames                        = []string{"Job", "JobID", "JobNo"}
	operationFieldNames                  = []string{"Opr", "Operation", "Op"}
	resourceGroupFieldNames              = []string{"resourceGroupId", "ResourceGroup", "RG"}
	plannedStartDateFieldNames           = []string{"plannedStartDate"}
	scheduledStartDateFieldNames         = []string{"scheduledStartDate"}
	standardProcessTimeFieldNames        = []string{"standardProcessTimeHours", "standardProcessTime"}
	plannedMultiDayBreakdownFieldNames   = []string{"plannedMultiDayBreakdown"}
	scheduledMultiDayBreakdownFieldNames = []string{"scheduledMultiDayBreakdown"}
)

// CapacityRecords 按位置解析产能行：第一个字段为资源组，其后必须恰好有 7 个每日产能值，
// 否则整条记录使用默认产能；非数字的产能值使用默认值 24
func CapacityRecords(rows []Row) []domain.CapacityRecord {
	records := make([]domain.CapacityRecord, 0, len(rows))

	for i, row := range rows {
		if len(row) == 0 {
			continue
		}

		resourceGroupID := toString(row[0].Value)
		if resourceGroupID == "" {
			slog.Warn("跳过缺少资源组的产能行", "row", i)
			continue
		}

		values := row[1:]
		if len(values) != domain.DaysPerWeek {
			records = append(records, domain.CapacityRecord{
				ResourceGroupID: resourceGroupID,
				DailyCapacities: domain.DefaultDailyCapacities(),
			})
			continue
		}

		capacities := make([]float64, 0, domain.DaysPerWeek)
		for _, c := range values {
			f, ok := toFloat(c.Value)
			if !ok {
				f = domain.DefaultDailyCapacity
			}
			capacities = append(capacities, f)
		}

		records = append(records, domain.CapacityRecord{
			ResourceGroupID: resourceGroupID,
			DailyCapacities: capacities,
		})
	}

	return records
}

// JobRecords 按列名解析作业行，缺失的可选字段视为不存在
// 作业号无法解析或缺少计划开始日期的行会被跳过
func JobRecords(rows []Row) []domain.JobRecord {
	records := make([]domain.JobRecord, 0, len(rows))

	for i, row := range rows {
		jobValue, _ := row.Get(jobFieldNames...)
		job, ok := toInt(jobValue)
		if !ok {
			slog.Warn("跳过作业号无效的作业行", "row", i, "job", jobValue)
			continue
		}

		plannedValue, _ := row.Get(plannedStartDateFieldNames...)
		planned, err := domain.ParseTimestamp(toString(plannedValue))
		if err != nil {
			slog.Warn("跳过计划开始日期无效的作业行", "row", i, "job", job, "error", err)
			continue
		}

		record := domain.JobRecord{
			Job:              job,
			PlannedStartDate: planned,
		}

		if v, ok := row.Get(operationFieldNames...); ok {
			record.Operation, _ = toInt(v)
		}
		if v, ok := row.Get(resourceGroupFieldNames...); ok {
			record.ResourceGroupID = toString(v)
		}
		if v, ok := row.Get(standardProcessTimeFieldNames...); ok {
			record.StandardProcessTimeHours, _ = toFloat(v)
		}
		if v, ok := row.Get(scheduledStartDateFieldNames...); ok {
			if s := toString(v); s != "" {
				scheduled, err := domain.ParseTimestamp(s)
				if err != nil {
					slog.Warn("忽略无效的排程开始日期", "row", i, "job", job, "error", err)
				} else {
					record.ScheduledStartDate = &scheduled
				}
			}
		}
		if v, ok := row.Get(plannedMultiDayBreakdownFieldNames...); ok {
			record.PlannedMultiDayBreakdown = toBreakdown(v)
		}
		if v, ok := row.Get(scheduledMultiDayBreakdownFieldNames...); ok {
			record.ScheduledMultiDayBreakdown = toBreakdown(v)
		}

		records = append(records, record)
	}

	return records
}

// DefaultCapacities 为作业中出现的每个资源组（按首次出现顺序）生成默认产能记录
func DefaultCapacities(jobs []domain.JobRecord) []domain.CapacityRecord {
	seen := make(map[string]bool)
	records := make([]domain.CapacityRecord, 0)

	for _, job := range jobs {
		if seen[job.ResourceGroupID] {
			continue
		}
		seen[job.ResourceGroupID] = true
		records = append(records, domain.CapacityRecord{
			ResourceGroupID: job.ResourceGroupID,
			DailyCapacities: domain.DefaultDailyCapacities(),
		})
	}

	return records
}
