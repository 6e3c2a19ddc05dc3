package utils

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/mozillazg/go-pinyin"
	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/domain"
)

var workCenterNames = []string{
	"数控车床", "立式加工中心", "卧式加工中心", "平面磨床", "外圆磨床", "摇臂钻床",
	"线切割", "热处理", "喷涂线", "焊接工位", "总装线", "检测台",
}

// GenerateResourceGroupID 用工作中心名称的拼音首字母加序号生成资源组编号，例如 数控车床 -> SKCC-01
func GenerateResourceGroupID(workCenterName string, seq int) string {
	id := ""
	for _, p := range pinyin.LazyConvert(workCenterName, nil) {
		if p == "" {
			continue
		}
		id += strings.ToUpper(p[:1])
	}
	return fmt.Sprintf("%s-%02d", id, seq)
}

// GenerateRandomResourceGroups 随机选取 n 个工作中心并生成不重复的资源组编号
func GenerateRandomResourceGroups(n int) []string {
	names := append([]string{}, workCenterNames...)

	// Fisher-Yates 洗牌
	for i := len(names) - 1; i > 0; i-- {
		j := rand.Intn(i + 1)
		names[i], names[j] = names[j], names[i]
	}

	groups := make([]string, 0, n)
	for i := 0; i < n; i++ {
		groups = append(groups, GenerateResourceGroupID(names[i%len(names)], i/len(names)+1))
	}
	return groups
}

var shiftCapacities = []float64{8, 16, 24}

// GenerateRandomCapacityRecord 工作日按班次数给出产能，周末随机停工或单班
func GenerateRandomCapacityRecord(resourceGroupID string) domain.CapacityRecord {
	weekday := shiftCapacities[rand.Intn(len(shiftCapacities))]

	capacities := make([]float64, domain.DaysPerWeek)
	for i := range capacities {
		switch time.Weekday(i) {
		case time.Saturday, time.Sunday:
			capacities[i] = float64(rand.Intn(2)) * 8
		default:
			capacities[i] = weekday
		}
	}

	return domain.CapacityRecord{
		ResourceGroupID: resourceGroupID,
		DailyCapacities: capacities,
	}
}

// 工时以半小时为单位
func randomHours(lo, hi float64) float64 {
	return math.Round((lo+rand.Float64()*(hi-lo))*2) / 2
}

// GenerateRandomBreakdown 将工时拆分到多天，各天之和等于总工时
func GenerateRandomBreakdown(hours float64, days int) []float64 {
	breakdown := make([]float64, days)
	remaining := hours
	for i := 0; i < days-1; i++ {
		breakdown[i] = math.Round(remaining/float64(days-i)*2) / 2
		remaining -= breakdown[i]
	}
	breakdown[days-1] = remaining
	return breakdown
}

// GenerateRandomJobRecords 生成 n 个作业，每个作业有 1 到 3 道工序，计划开始日期在 start 之后的 21 天内
func GenerateRandomJobRecords(groups []string, n int, start time.Time) []domain.JobRecord {
	jobs := make([]domain.JobRecord, 0, n*2)
	base := start.Truncate(time.Hour)

	for i := 0; i < n; i++ {
		job := int64(10000 + i)
		operations := rand.Intn(3) + 1
		planned := base.AddDate(0, 0, rand.Intn(domain.ReportDays))

		for op := 1; op <= operations; op++ {
			hours := randomHours(2, 30)
			record := domain.JobRecord{
				Job:                      job,
				Operation:                int64(op * 10),
				ResourceGroupID:          groups[rand.Intn(len(groups))],
				PlannedStartDate:         domain.NewTimestamp(planned),
				StandardProcessTimeHours: hours,
			}

			// 超过一天产能的工序拆分到多天
			if hours > 8 {
				record.PlannedMultiDayBreakdown = GenerateRandomBreakdown(hours, int(math.Ceil(hours/8)))
			}

			// 一半的工序已经排程，排程日期在计划日期前后两天内
			if rand.Intn(2) == 0 {
				scheduled := domain.NewTimestamp(planned.AddDate(0, 0, rand.Intn(5)-2))
				record.ScheduledStartDate = &scheduled
				if record.PlannedMultiDayBreakdown != nil {
					record.ScheduledMultiDayBreakdown = GenerateRandomBreakdown(hours, len(record.PlannedMultiDayBreakdown)+rand.Intn(2))
				}
			}

			jobs = append(jobs, record)
			planned = planned.AddDate(0, 0, len(record.PlannedMultiDayBreakdown)+1)
		}
	}

	return jobs
}

// GenerateRandomDataset 生成 groups 个资源组和 n 个作业的随机数据
func GenerateRandomDataset(groups, n int, start time.Time) domain.Dataset {
	ids := GenerateRandomResourceGroups(groups)

	capacities := make([]domain.CapacityRecord, 0, len(ids))
	for _, id := range ids {
		capacities = append(capacities, GenerateRandomCapacityRecord(id))
	}

	return domain.Dataset{
		Capacities: capacities,
		Jobs:       GenerateRandomJobRecords(ids, n, start),
	}
}
