package store

import (
	"fmt"
	"os"

	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/importer"
)

// LoadFiles 从表格文件中导入数据，格式由扩展名决定
// 作业文件先导入，因此会先把产能重置为默认值，再由产能文件（如果有）覆盖
func (s *Store) LoadFiles(capacityPath, jobPath string) error {
	var jobRows, capacityRows []importer.Row

	if jobPath != "" {
		rows, err := readRowsFile(jobPath)
		if err != nil {
			return err
		}
		jobRows = rows
	}
	if capacityPath != "" {
		rows, err := readRowsFile(capacityPath)
		if err != nil {
			return err
		}
		capacityRows = rows
	}

	// 两个文件都读取成功后才修改数据
	if jobPath != "" {
		s.SetJobs(jobRows)
	}
	if capacityPath != "" {
		s.SetCapacities(capacityRows)
	}

	return nil
}

func readRowsFile(path string) ([]importer.Row, error) {
	format, err := importer.FormatFromFilename(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := importer.ReadRows(f, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, nil
}
