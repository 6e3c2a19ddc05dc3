package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/domain"
)

// ReplaceDataset 在同一个事务中整体替换产能记录和作业记录
func (r *Repository) ReplaceDataset(ds domain.Dataset) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.TransactionTimeout)*time.Second)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM capacity_records`); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM job_records`); err != nil {
		return err
	}

	if err := insertCapacityRecords(ctx, tx, ds.Capacities); err != nil {
		return err
	}
	if err := insertJobRecords(ctx, tx, ds.Jobs); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	return nil
}

// GetDataset 在同一个只读事务中读取最近一次保存的数据，避免读到替换到一半的数据
func (r *Repository) GetDataset() (*domain.Dataset, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.TransactionTimeout)*time.Second)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelRepeatableRead,
		ReadOnly:  true,
	})
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	capacities, err := queryCapacityRecords(ctx, tx)
	if err != nil {
		return nil, err
	}

	jobs, err := queryJobRecords(ctx, tx)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &domain.Dataset{
		Capacities: capacities,
		Jobs:       jobs,
	}, nil
}
