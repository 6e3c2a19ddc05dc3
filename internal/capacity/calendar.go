package capacity

import "time"

const secondsPerDay = 24 * 60 * 60

// dayNumber 将时间在 loc 时区下截断到零点，返回自 1970-01-01 起的日历天数
// 这里按日历日期计算而不是按毫秒差计算，避免夏令时切换导致的 23/25 小时误差
func dayNumber(t time.Time, loc *time.Location) int64 {
	y, m, d := t.In(loc).Date()
	// UTC 零点的 Unix 秒数恰好是整天数的倍数
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / secondsPerDay
}

// DayOffset 返回 date 相对于 start 的整天偏移量，date 早于 start 时为负数
func DayOffset(start, date time.Time, loc *time.Location) int64 {
	return dayNumber(date, loc) - dayNumber(start, loc)
}

// StartOfDay 返回 t 在 loc 时区下当天的零点
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
