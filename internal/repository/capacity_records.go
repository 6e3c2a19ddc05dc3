package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/domain"
)

func (r *Repository) GetAllCapacityRecords() ([]domain.CapacityRecord, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	return queryCapacityRecords(ctx, r.dbpool)
}

func queryCapacityRecords(ctx context.Context, q queryer) ([]domain.CapacityRecord, error) {
	query := `
		SELECT resource_group_id, daily_capacities
		FROM capacity_records
		ORDER BY position
	`

	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]domain.CapacityRecord, 0)
	for rows.Next() {
		var record domain.CapacityRecord
		var dailyCapacities []byte

		if err := rows.Scan(&record.ResourceGroupID, &dailyCapacities); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(dailyCapacities, &record.DailyCapacities); err != nil {
			return nil, err
		}

		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

func insertCapacityRecords(ctx context.Context, tx *sql.Tx, records []domain.CapacityRecord) error {
	query := `
		INSERT INTO capacity_records (position, resource_group_id, daily_capacities)
		VALUES ($1, $2, $3)
	`

	for i, record := range records {
		dailyCapacities, err := json.Marshal(record.DailyCapacities)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, query, i, record.ResourceGroupID, dailyCapacities); err != nil {
			return err
		}
	}

	return nil
}
