package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"slices"
	"sync"

	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/assets"
	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/domain"
	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/importer"
	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/utils"
)

// Store 保存当前的产能记录和作业记录
// 两个集合只会被整体替换，派生数据在每次读取时重新计算
type Store struct {
	mu         sync.RWMutex
	assets     fs.FS
	capacities []domain.CapacityRecord
	jobs       []domain.JobRecord
	version    uint64
}

// New 创建一个空的 Store，assets 为 Load 读取的静态数据
func New(assets fs.FS) *Store {
	return &Store{
		assets:     assets,
		capacities: []domain.CapacityRecord{},
		jobs:       []domain.JobRecord{},
	}
}

// Load 从静态数据中加载产能和作业记录
// 任何错误都只记录日志，此时两个集合都会被清空
func (s *Store) Load() {
	s.Replace(s.AssetsDataset())
}

// AssetsDataset 读取静态数据但不修改 Store，出错时返回空数据
func (s *Store) AssetsDataset() domain.Dataset {
	ds, err := s.readAssets()
	if err != nil {
		slog.Error("无法加载静态数据", "error", err)
		return domain.Dataset{}
	}

	slog.Info("已加载静态数据", "capacities", len(ds.Capacities), "jobs", len(ds.Jobs))
	return ds
}

func (s *Store) readAssets() (domain.Dataset, error) {
	ds := domain.Dataset{}

	if s.assets == nil {
		return ds, fmt.Errorf("没有可用的静态数据")
	}

	if err := readAsset(s.assets, assets.CapacityDataFile, &ds.Capacities); err != nil {
		return ds, err
	}
	if err := readAsset(s.assets, assets.JobDataFile, &ds.Jobs); err != nil {
		return ds, err
	}
	if err := utils.ValidateDataset(&ds); err != nil {
		return ds, err
	}

	return ds, nil
}

// readAsset 读取数组形式或 {"data": [...]} 形式的 JSON 文件
func readAsset[T any](fsys fs.FS, name string, dst *[]T) error {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return err
	}
	data = bytes.TrimSpace(data)

	if len(data) > 0 && data[0] == '{' {
		var wrapper struct {
			Data []T `json:"data"`
		}
		if err := json.Unmarshal(data, &wrapper); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		*dst = wrapper.Data
		return nil
	}

	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// SetJobs 用导入的行替换作业记录，同时把产能重置为这些作业所涉及资源组的默认产能
func (s *Store) SetJobs(rows []importer.Row) {
	s.Replace(s.JobsDataset(rows))
}

// JobsDataset 返回 SetJobs 之后的数据，不修改 Store
func (s *Store) JobsDataset(rows []importer.Row) domain.Dataset {
	jobs := importer.JobRecords(rows)

	return domain.Dataset{
		Capacities: importer.DefaultCapacities(jobs),
		Jobs:       jobs,
	}
}

// SetCapacities 用导入的行替换产能记录，作业记录保持不变
func (s *Store) SetCapacities(rows []importer.Row) {
	capacities := importer.CapacityRecords(rows)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.capacities = capacities
	s.version++
}

// CapacitiesDataset 返回 SetCapacities 之后的数据，不修改 Store
func (s *Store) CapacitiesDataset(rows []importer.Row) domain.Dataset {
	return domain.Dataset{
		Capacities: importer.CapacityRecords(rows),
		Jobs:       s.Snapshot().Jobs,
	}
}

// Replace 整体替换两个集合
func (s *Store) Replace(ds domain.Dataset) {
	if ds.Capacities == nil {
		ds.Capacities = []domain.CapacityRecord{}
	}
	if ds.Jobs == nil {
		ds.Jobs = []domain.JobRecord{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.capacities = ds.Capacities
	s.jobs = ds.Jobs
	s.version++
}

// Snapshot 返回当前两个集合，集合只会被整体替换，因此可以在锁外安全读取
func (s *Store) Snapshot() domain.Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return domain.Dataset{
		Capacities: s.capacities,
		Jobs:       s.jobs,
	}
}

// Version 每次替换数据后递增，用于缓存失效
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.version
}

// ResourceGroups 返回去重后的资源组，顺序为在产能记录中首次出现的顺序
func (s *Store) ResourceGroups() []string {
	return ResourceGroups(s.Snapshot().Capacities)
}

// MaxCapacity 返回所有资源组中最大的单日产能，没有数据时为 0
func (s *Store) MaxCapacity() float64 {
	return MaxCapacity(s.Snapshot().Capacities)
}

// Capacity 返回资源组的产能记录，存在重复时取第一条
func (s *Store) Capacity(resourceGroupID string) (domain.CapacityRecord, bool) {
	return FindCapacity(s.Snapshot().Capacities, resourceGroupID)
}

func ResourceGroups(capacities []domain.CapacityRecord) []string {
	groups := make([]string, 0, len(capacities))
	for _, c := range capacities {
		if slices.Contains(groups, c.ResourceGroupID) {
			continue
		}
		groups = append(groups, c.ResourceGroupID)
	}
	return groups
}

func MaxCapacity(capacities []domain.CapacityRecord) float64 {
	maxCapacity := 0.0
	for _, c := range capacities {
		for _, v := range c.DailyCapacities {
			maxCapacity = max(maxCapacity, v)
		}
	}
	return maxCapacity
}

func FindCapacity(capacities []domain.CapacityRecord, resourceGroupID string) (domain.CapacityRecord, bool) {
	for _, c := range capacities {
		if c.ResourceGroupID == resourceGroupID {
			return c, true
		}
	}
	return domain.CapacityRecord{}, false
}
