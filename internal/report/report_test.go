package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/capacity"
	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/domain"
	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/store"
)

// 2024-01-07 为周日
var sunday = time.Date(2024, time.January, 7, 0, 0, 0, 0, time.UTC)

func stamp(days int) domain.Timestamp {
	return domain.NewTimestamp(sunday.AddDate(0, 0, days))
}

func testDataset() domain.Dataset {
	scheduled := stamp(3)
	return domain.Dataset{
		Capacities: []domain.CapacityRecord{
			{ResourceGroupID: "A", DailyCapacities: []float64{8, 16, 16, 16, 16, 16, 4}},
			{ResourceGroupID: "B", DailyCapacities: []float64{0, 8, 8, 8, 8, 8, 0}},
			{ResourceGroupID: "A", DailyCapacities: []float64{1, 1, 1, 1, 1, 1, 1}},
		},
		Jobs: []domain.JobRecord{
			{Job: 1, Operation: 10, ResourceGroupID: "A", PlannedStartDate: stamp(0), StandardProcessTimeHours: 3},
			{Job: 2, Operation: 10, ResourceGroupID: "A", PlannedStartDate: stamp(0), StandardProcessTimeHours: 3},
			{Job: 1, Operation: 20, ResourceGroupID: "B", PlannedStartDate: stamp(1), StandardProcessTimeHours: 10,
				PlannedMultiDayBreakdown: []float64{5, 5}, ScheduledStartDate: &scheduled, ScheduledMultiDayBreakdown: []float64{4, 6}},
			{Job: 3, Operation: 10, ResourceGroupID: "missing", PlannedStartDate: stamp(0), StandardProcessTimeHours: 99},
		},
	}
}

func TestBuild_Window(t *testing.T) {
	report := Build(testDataset(), Options{StartDate: sunday.Add(13 * time.Hour)}, time.UTC)

	assert.Equal(t, "2024-01-07", report.StartDate)
	assert.Equal(t, domain.ReportDays, report.Days)
	assert.Nil(t, report.SelectedJob)
	require.Len(t, report.ResourceGroups, 2)
	assert.Equal(t, "A", report.ResourceGroups[0].ResourceGroupID)
	assert.Equal(t, "B", report.ResourceGroups[1].ResourceGroupID)

	for _, group := range report.ResourceGroups {
		require.Len(t, group.DailyData, 21)
		assert.Equal(t, "2024-01-07", group.DailyData[0].Date)
		assert.Equal(t, "2024-01-27", group.DailyData[20].Date)
		for _, entry := range group.DailyData {
			assert.NotNil(t, entry.JobUsage)
			assert.Empty(t, entry.JobUsage)
		}
	}
}

func TestBuild_PlannedAndScheduled(t *testing.T) {
	ds := testDataset()
	report := Build(ds, Options{StartDate: sunday}, time.UTC)
	calc := capacity.New(ds.Jobs, time.UTC)

	a := report.ResourceGroups[0].DailyData
	assert.Equal(t, 6.0, a[0].PlannedCapacity)
	assert.Equal(t, 6.0, a[0].ScheduledCapacity)
	assert.Equal(t, 0.75, a[0].Utilization)
	assert.Equal(t, 0.0, a[1].PlannedCapacity)

	b := report.ResourceGroups[1].DailyData
	assert.Equal(t, []float64{0, 5, 5, 0, 0}, []float64{b[0].PlannedCapacity, b[1].PlannedCapacity, b[2].PlannedCapacity, b[3].PlannedCapacity, b[4].PlannedCapacity})
	assert.Equal(t, []float64{0, 0, 0, 4, 6}, []float64{b[0].ScheduledCapacity, b[1].ScheduledCapacity, b[2].ScheduledCapacity, b[3].ScheduledCapacity, b[4].ScheduledCapacity})

	for _, group := range report.ResourceGroups {
		for i, entry := range group.DailyData {
			date := sunday.AddDate(0, 0, i)
			assert.Equal(t, calc.GroupCapacityForDate(group.ResourceGroupID, date, false), entry.PlannedCapacity)
			assert.Equal(t, calc.GroupCapacityForDate(group.ResourceGroupID, date, true), entry.ScheduledCapacity)
		}
	}
}

func TestBuild_ZeroCapacityUtilization(t *testing.T) {
	report := Build(testDataset(), Options{StartDate: sunday}, time.UTC)

	b := report.ResourceGroups[1].DailyData
	assert.Equal(t, 0.0, b[1].AvailableCapacity)
	assert.Equal(t, 5.0, b[1].PlannedCapacity)
	assert.Equal(t, 0.0, b[1].Utilization)
}

// 报表对每一天都使用 dailyCapacities[0] 作为可用产能，与按星期几取值的 WeeklyCapacity 不一致。
// 这里锁定现有行为，修改时需要同时更新这个测试。
func TestBuild_AvailableCapacityUsesFirstDayForWholeWindow(t *testing.T) {
	ds := testDataset()
	report := Build(ds, Options{StartDate: sunday}, time.UTC)

	a := report.ResourceGroups[0].DailyData
	for _, entry := range a {
		assert.Equal(t, 8.0, entry.AvailableCapacity, entry.Date)
	}

	// 周一按星期几应为 16，报表中仍为 8
	monday := sunday.AddDate(0, 0, 1)
	assert.Equal(t, 16.0, capacity.WeeklyCapacity(&ds.Capacities[0], monday))
	assert.NotEqual(t, capacity.WeeklyCapacity(&ds.Capacities[0], monday), a[1].AvailableCapacity)
}

func TestBuild_SelectedJob(t *testing.T) {
	ds := testDataset()
	jobID := int64(1)
	calc := capacity.New(ds.Jobs, time.UTC)

	report := Build(ds, Options{StartDate: sunday, SelectedJobID: &jobID, UseScheduled: true}, time.UTC)

	require.NotNil(t, report.SelectedJob)
	assert.Equal(t, "1", *report.SelectedJob)
	assert.True(t, report.UseScheduled)

	for _, group := range report.ResourceGroups {
		for i, entry := range group.DailyData {
			require.Len(t, entry.JobUsage, 1)
			usage, ok := entry.JobUsage["1"]
			require.True(t, ok)
			assert.Equal(t, calc.JobCapacityForDate(1, sunday.AddDate(0, 0, i), true), usage.Usage)
			assert.Equal(t, int64(10), usage.Operation)
			assert.Equal(t, 3.0, usage.ProcessTime)
		}
	}

	a := report.ResourceGroups[0].DailyData
	assert.Equal(t, 3.0, a[0].JobUsage["1"].Usage)
	assert.Equal(t, 4.0, a[3].JobUsage["1"].Usage)
	assert.Equal(t, 6.0, a[4].JobUsage["1"].Usage)
}

func TestBuild_SelectedJobNotFound(t *testing.T) {
	jobID := int64(404)
	report := Build(testDataset(), Options{StartDate: sunday, SelectedJobID: &jobID}, time.UTC)

	entry := report.ResourceGroups[0].DailyData[0]
	assert.Equal(t, domain.JobUsage{}, entry.JobUsage["404"])
}

func TestBuild_EmptyDataset(t *testing.T) {
	report := Build(domain.Dataset{}, Options{StartDate: sunday}, time.UTC)

	assert.NotNil(t, report.ResourceGroups)
	assert.Empty(t, report.ResourceGroups)
}

func TestGenerator_UsesStore(t *testing.T) {
	s := store.New(nil)
	s.Replace(testDataset())

	g := NewGenerator(s, time.UTC)
	report := g.Build(Options{StartDate: sunday})

	require.Len(t, report.ResourceGroups, 2)
	assert.Equal(t, time.UTC, g.Location())
}

func TestExport(t *testing.T) {
	report := Build(testDataset(), Options{StartDate: sunday}, time.UTC)

	var buf bytes.Buffer
	require.NoError(t, Export(&buf, report))

	assert.Contains(t, buf.String(), "\n  \"startDate\": \"2024-01-07\"")

	var decoded struct {
		ResourceGroups []struct {
			ResourceGroupID string `json:"resourceGroupId"`
			DailyData       []struct {
				Date     string                     `json:"date"`
				JobUsage map[string]json.RawMessage `json:"jobUsage"`
			} `json:"dailyData"`
		} `json:"resourceGroups"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded.ResourceGroups, 2)
	assert.NotNil(t, decoded.ResourceGroups[0].DailyData[0].JobUsage)
	assert.Empty(t, decoded.ResourceGroups[0].DailyData[0].JobUsage)
	assert.Contains(t, buf.String(), `"jobUsage": {}`)
}

func TestExportFile(t *testing.T) {
	report := Build(testDataset(), Options{StartDate: sunday}, time.UTC)
	path := filepath.Join(t.TempDir(), ExportFileName)

	require.NoError(t, ExportFile(path, report))

	var buf bytes.Buffer
	require.NoError(t, Export(&buf, report))

	written, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, buf.Bytes(), written)
}

func TestExportFile_CreateError(t *testing.T) {
	report := Build(testDataset(), Options{StartDate: sunday}, time.UTC)
	path := filepath.Join(t.TempDir(), "missing", ExportFileName)

	assert.Error(t, ExportFile(path, report))
}
