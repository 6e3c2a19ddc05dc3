package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/capacity"
	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/domain"
)

type hoursQuery struct {
	Date         string `validate:"required,datetime=2006-01-02"`
	UseScheduled string `validate:"omitempty,boolean"`
}

// parseHoursQuery 解析 date 与 useScheduled 查询参数，日期按日历时区解释
func (h *Handler) parseHoursQuery(r *http.Request) (time.Time, bool, error) {
	query := r.URL.Query()
	req := hoursQuery{
		Date:         query.Get("date"),
		UseScheduled: query.Get("useScheduled"),
	}
	if err := h.validate.Struct(req); err != nil {
		return time.Time{}, false, err
	}

	date, err := time.ParseInLocation(time.DateOnly, req.Date, h.location)
	if err != nil {
		return time.Time{}, false, err
	}

	useScheduled := false
	if req.UseScheduled != "" {
		useScheduled, _ = strconv.ParseBool(req.UseScheduled)
	}

	return date, useScheduled, nil
}

func (h *Handler) GetWeeklyCapacity(w http.ResponseWriter, r *http.Request) {
	record := r.Context().Value(CapacityRecordCtx).(*domain.CapacityRecord)

	req := struct {
		Date string `validate:"required,datetime=2006-01-02"`
	}{
		Date: r.URL.Query().Get("date"),
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	date, err := time.ParseInLocation(time.DateOnly, req.Date, h.location)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	h.successResponse(w, r, "获取产能成功", map[string]any{
		"resourceGroupId": record.ResourceGroupID,
		"date":            req.Date,
		"weekday":         int(date.Weekday()),
		"capacity":        capacity.WeeklyCapacity(record, date),
	})
}

func (h *Handler) GetResourceGroupHours(w http.ResponseWriter, r *http.Request) {
	resourceGroupID := chi.URLParam(r, "id")

	date, useScheduled, err := h.parseHoursQuery(r)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	calc := capacity.New(h.store.Snapshot().Jobs, h.location)

	h.successResponse(w, r, "获取资源组工时成功", map[string]any{
		"resourceGroupId": resourceGroupID,
		"date":            date.Format(time.DateOnly),
		"useScheduled":    useScheduled,
		"hours":           calc.GroupCapacityForDate(resourceGroupID, date, useScheduled),
	})
}

func (h *Handler) GetJobHours(w http.ResponseWriter, r *http.Request) {
	jobID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.errorResponse(w, r, "作业号无效")
		return
	}

	date, useScheduled, err := h.parseHoursQuery(r)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	calc := capacity.New(h.store.Snapshot().Jobs, h.location)

	h.successResponse(w, r, "获取作业工时成功", map[string]any{
		"job":          jobID,
		"date":         date.Format(time.DateOnly),
		"useScheduled": useScheduled,
		"hours":        calc.JobCapacityForDate(jobID, date, useScheduled),
	})
}
