package seed

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/domain"
	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/utils"
	"github.com/xuri/excelize/v2"
)

const (
	CapacityWorkbookName = "capacities.xlsx"
	JobWorkbookName      = "jobs.xlsx"
)

var (
	capacityHeader = []any{"resourceGroupId", "周日", "周一", "周二", "周三", "周四", "周五", "周六"}
	jobHeader      = []any{
		"Job", "Opr", "resourceGroupId", "plannedStartDate", "scheduledStartDate",
		"standardProcessTimeHours", "plannedMultiDayBreakdown", "scheduledMultiDayBreakdown",
	}
)

type DatasetWriter interface {
	ReplaceDataset(ds domain.Dataset) error
}

// SeedDataset 校验数据后整体写入数据库
func SeedDataset(w DatasetWriter, ds domain.Dataset) error {
	if err := utils.ValidateDataset(&ds); err != nil {
		return err
	}

	if err := w.ReplaceDataset(ds); err != nil {
		return err
	}

	slog.Info("插入数据完成", "capacities", len(ds.Capacities), "jobs", len(ds.Jobs))
	return nil
}

// WriteWorkbooks 将数据写为两个工作簿，可以直接用于导入接口
func WriteWorkbooks(dir string, ds domain.Dataset) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	capacityRows := make([][]any, 0, len(ds.Capacities))
	for _, c := range ds.Capacities {
		row := []any{c.ResourceGroupID}
		for _, v := range c.DailyCapacities {
			row = append(row, formatFloat(v))
		}
		capacityRows = append(capacityRows, row)
	}
	if err := writeWorkbook(filepath.Join(dir, CapacityWorkbookName), "产能", capacityHeader, capacityRows); err != nil {
		return err
	}

	jobRows := make([][]any, 0, len(ds.Jobs))
	for _, j := range ds.Jobs {
		scheduled := ""
		if j.ScheduledStartDate != nil {
			scheduled = strconv.FormatInt(j.ScheduledStartDate.Millis(), 10)
		}
		jobRows = append(jobRows, []any{
			strconv.FormatInt(j.Job, 10),
			strconv.FormatInt(j.Operation, 10),
			j.ResourceGroupID,
			strconv.FormatInt(j.PlannedStartDate.Millis(), 10),
			scheduled,
			formatFloat(j.StandardProcessTimeHours),
			formatBreakdown(j.PlannedMultiDayBreakdown),
			formatBreakdown(j.ScheduledMultiDayBreakdown),
		})
	}
	if err := writeWorkbook(filepath.Join(dir, JobWorkbookName), "作业", jobHeader, jobRows); err != nil {
		return err
	}

	slog.Info("已生成工作簿", "dir", dir, "capacities", len(capacityRows), "jobs", len(jobRows))
	return nil
}

func writeWorkbook(path, sheet string, header []any, rows [][]any) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return err
	}

	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("无法保存工作簿 %s: %w", path, err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// 空切片写为 [] 以区别于没有拆分
func formatBreakdown(breakdown []float64) string {
	if breakdown == nil {
		return ""
	}
	if len(breakdown) == 0 {
		return "[]"
	}

	parts := make([]string, 0, len(breakdown))
	for _, v := range breakdown {
		parts = append(parts, formatFloat(v))
	}
	return strings.Join(parts, ",")
}
