package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/domain"
)

func (r *Repository) GetAllJobRecords() ([]domain.JobRecord, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	return queryJobRecords(ctx, r.dbpool)
}

func queryJobRecords(ctx context.Context, q queryer) ([]domain.JobRecord, error) {
	query := `
		SELECT
			job,
			operation,
			resource_group_id,
			planned_start_date,
			scheduled_start_date,
			standard_process_time_hours,
			planned_multi_day_breakdown,
			scheduled_multi_day_breakdown
		FROM job_records
		ORDER BY position
	`

	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]domain.JobRecord, 0)
	for rows.Next() {
		var row struct {
			Job                        int64
			Operation                  int64
			ResourceGroupID            string
			PlannedStartDate           int64
			ScheduledStartDate         sql.NullInt64
			StandardProcessTimeHours   float64
			PlannedMultiDayBreakdown   []byte
			ScheduledMultiDayBreakdown []byte
		}

		dst := []any{
			&row.Job,
			&row.Operation,
			&row.ResourceGroupID,
			&row.PlannedStartDate,
			&row.ScheduledStartDate,
			&row.StandardProcessTimeHours,
			&row.PlannedMultiDayBreakdown,
			&row.ScheduledMultiDayBreakdown,
		}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}

		record := domain.JobRecord{
			Job:                      row.Job,
			Operation:                row.Operation,
			ResourceGroupID:          row.ResourceGroupID,
			PlannedStartDate:         domain.NewTimestamp(time.UnixMilli(row.PlannedStartDate)),
			StandardProcessTimeHours: row.StandardProcessTimeHours,
		}

		// 排程开始日期为 NULL 表示尚未排程
		if row.ScheduledStartDate.Valid {
			scheduled := domain.NewTimestamp(time.UnixMilli(row.ScheduledStartDate.Int64))
			record.ScheduledStartDate = &scheduled
		}

		// 拆分数组为 NULL 表示没有按天拆分，空数组需要和 NULL 区分开
		if row.PlannedMultiDayBreakdown != nil {
			if err := json.Unmarshal(row.PlannedMultiDayBreakdown, &record.PlannedMultiDayBreakdown); err != nil {
				return nil, err
			}
		}
		if row.ScheduledMultiDayBreakdown != nil {
			if err := json.Unmarshal(row.ScheduledMultiDayBreakdown, &record.ScheduledMultiDayBreakdown); err != nil {
				return nil, err
			}
		}

		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

func insertJobRecords(ctx context.Context, tx *sql.Tx, records []domain.JobRecord) error {
	query := `
		INSERT INTO job_records (
			position,
			job,
			operation,
			resource_group_id,
			planned_start_date,
			scheduled_start_date,
			standard_process_time_hours,
			planned_multi_day_breakdown,
			scheduled_multi_day_breakdown
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	for i, record := range records {
		var scheduledStartDate sql.NullInt64
		if record.ScheduledStartDate != nil {
			scheduledStartDate = sql.NullInt64{Int64: record.ScheduledStartDate.Millis(), Valid: true}
		}

		plannedBreakdown, err := marshalBreakdown(record.PlannedMultiDayBreakdown)
		if err != nil {
			return err
		}
		scheduledBreakdown, err := marshalBreakdown(record.ScheduledMultiDayBreakdown)
		if err != nil {
			return err
		}

		params := []any{
			i,
			record.Job,
			record.Operation,
			record.ResourceGroupID,
			record.PlannedStartDate.Millis(),
			scheduledStartDate,
			record.StandardProcessTimeHours,
			plannedBreakdown,
			scheduledBreakdown,
		}
		if _, err := tx.ExecContext(ctx, query, params...); err != nil {
			return err
		}
	}

	return nil
}

// marshalBreakdown 将 nil 映射为 SQL NULL 而不是 JSON null
func marshalBreakdown(breakdown []float64) (any, error) {
	if breakdown == nil {
		return nil, nil
	}
	return json.Marshal(breakdown)
}
