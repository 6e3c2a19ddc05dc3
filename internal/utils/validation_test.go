package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/domain"
)

func TestValidateDataset(t *testing.T) {
	start := domain.NewTimestamp(time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC))

	valid := domain.Dataset{
		Capacities: []domain.CapacityRecord{{ResourceGroupID: "A", DailyCapacities: domain.DefaultDailyCapacities()}},
		Jobs:       []domain.JobRecord{{Job: 1, ResourceGroupID: "A", PlannedStartDate: start, StandardProcessTimeHours: 8}},
	}
	assert.NoError(t, ValidateDataset(&valid))

	// 作业引用不存在的资源组是允许的
	valid.Jobs[0].ResourceGroupID = "missing"
	assert.NoError(t, ValidateDataset(&valid))

	short := domain.Dataset{
		Capacities: []domain.CapacityRecord{{ResourceGroupID: "A", DailyCapacities: []float64{8}}},
	}
	assert.Error(t, ValidateDataset(&short))

	negative := domain.Dataset{
		Capacities: []domain.CapacityRecord{{ResourceGroupID: "A", DailyCapacities: []float64{8, 8, 8, -1, 8, 8, 8}}},
	}
	assert.Error(t, ValidateDataset(&negative))

	unnamed := domain.Dataset{
		Capacities: []domain.CapacityRecord{{DailyCapacities: domain.DefaultDailyCapacities()}},
	}
	assert.Error(t, ValidateDataset(&unnamed))

	noStart := domain.Dataset{
		Jobs: []domain.JobRecord{{Job: 1, ResourceGroupID: "A"}},
	}
	assert.Error(t, ValidateDataset(&noStart))
}
