package report

import (
	"encoding/json"
	"errors"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/capacity"
	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/domain"
	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/store"
)

// ExportFileName 为导出调试数据时使用的文件名
const ExportFileName = "capacity-debug-data.json"

const dateLayout = "2006-01-02"

type Options struct {
	StartDate     time.Time // 为零值时使用今天，只取日期部分
	SelectedJobID *int64
	UseScheduled  bool
}

type Generator struct {
	store *store.Store
	loc   *time.Location
}

func NewGenerator(s *store.Store, loc *time.Location) *Generator {
	if loc == nil {
		loc = time.Local
	}
	return &Generator{
		store: s,
		loc:   loc,
	}
}

func (g *Generator) Location() *time.Location {
	return g.loc
}

// Build 基于 Store 当前的数据生成报表
func (g *Generator) Build(opts Options) *domain.Report {
	return Build(g.store.Snapshot(), opts, g.loc)
}

// Build 生成从 StartDate 开始连续 21 天、每个资源组每天一条的调试报表
//
// 可用产能对窗口内的每一天都取 dailyCapacities[0]，而不是按星期几取值，
// 这与 capacity.WeeklyCapacity 的结果不一致，这里保持现有报表的行为。
func Build(ds domain.Dataset, opts Options, loc *time.Location) *domain.Report {
	if loc == nil {
		loc = time.Local
	}

	startDate := opts.StartDate
	if startDate.IsZero() {
		startDate = time.Now()
	}
	start := capacity.StartOfDay(startDate, loc)

	calc := capacity.New(ds.Jobs, loc)

	report := &domain.Report{
		GeneratedAt:    time.Now(),
		StartDate:      start.Format(dateLayout),
		Days:           domain.ReportDays,
		UseScheduled:   opts.UseScheduled,
		ResourceGroups: make([]domain.ResourceGroupReport, 0),
	}

	// 选中作业的工序号和工时只取第一条匹配的记录
	var jobKey string
	var jobOperation int64
	var jobProcessTime float64
	if opts.SelectedJobID != nil {
		jobKey = strconv.FormatInt(*opts.SelectedJobID, 10)
		report.SelectedJob = &jobKey
		if first := calc.FirstOperation(*opts.SelectedJobID); first != nil {
			jobOperation = first.Operation
			jobProcessTime = first.StandardProcessTimeHours
		}
	}

	for _, group := range store.ResourceGroups(ds.Capacities) {
		availableCapacity := 0.0
		if record, ok := store.FindCapacity(ds.Capacities, group); ok && len(record.DailyCapacities) > 0 {
			availableCapacity = record.DailyCapacities[0]
		}

		groupReport := domain.ResourceGroupReport{
			ResourceGroupID: group,
			DailyData:       make([]domain.DailyReportEntry, 0, domain.ReportDays),
		}

		for i := 0; i < domain.ReportDays; i++ {
			date := start.AddDate(0, 0, i)

			entry := domain.DailyReportEntry{
				Date:              date.Format(dateLayout),
				AvailableCapacity: availableCapacity,
				PlannedCapacity:   calc.GroupCapacityForDate(group, date, false),
				ScheduledCapacity: calc.GroupCapacityForDate(group, date, true),
				JobUsage:          map[string]domain.JobUsage{},
			}

			if availableCapacity != 0 {
				entry.Utilization = entry.PlannedCapacity / availableCapacity
			}

			if opts.SelectedJobID != nil {
				entry.JobUsage[jobKey] = domain.JobUsage{
					Usage:       calc.JobCapacityForDate(*opts.SelectedJobID, date, opts.UseScheduled),
					Operation:   jobOperation,
					ProcessTime: jobProcessTime,
				}
			}

			groupReport.DailyData = append(groupReport.DailyData, entry)
		}

		report.ResourceGroups = append(report.ResourceGroups, groupReport)
	}

	return report
}

// Export 将报表写为缩进两个空格的 JSON
func Export(w io.Writer, report *domain.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// ExportFile 将报表写入 path，写入或关闭文件失败都会返回错误
func ExportFile(path string, report *domain.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := Export(f, report); err != nil {
		return errors.Join(err, f.Close())
	}

	return f.Close()
}
