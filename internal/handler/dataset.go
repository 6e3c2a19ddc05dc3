package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/domain"
	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/importer"
)

type datasetSummary struct {
	ResourceGroups []string `json:"resourceGroups"`
	MaxCapacity    float64  `json:"maxCapacity"`
	Capacities     int      `json:"capacities"`
	Jobs           int      `json:"jobs"`
	Version        uint64   `json:"version"`
}

func (h *Handler) summarizeDataset() datasetSummary {
	ds := h.store.Snapshot()

	return datasetSummary{
		ResourceGroups: h.store.ResourceGroups(),
		MaxCapacity:    h.store.MaxCapacity(),
		Capacities:     len(ds.Capacities),
		Jobs:           len(ds.Jobs),
		Version:        h.store.Version(),
	}
}

// commitDataset 先写入数据库，成功后才替换 Store 中的数据
func (h *Handler) commitDataset(ds domain.Dataset) error {
	if err := h.repository.ReplaceDataset(ds); err != nil {
		return err
	}

	h.store.Replace(ds)
	return nil
}

func (h *Handler) GetResourceGroups(w http.ResponseWriter, r *http.Request) {
	h.successResponse(w, r, "获取资源组成功", map[string]any{
		"resourceGroups": h.store.ResourceGroups(),
		"maxCapacity":    h.store.MaxCapacity(),
	})
}

func (h *Handler) GetCapacities(w http.ResponseWriter, r *http.Request) {
	h.successResponse(w, r, "获取产能数据成功", h.store.Snapshot().Capacities)
}

func (h *Handler) GetJobs(w http.ResponseWriter, r *http.Request) {
	h.successResponse(w, r, "获取作业数据成功", h.store.Snapshot().Jobs)
}

func (h *Handler) ReplaceCapacities(w http.ResponseWriter, r *http.Request) {
	var rows []importer.Row

	r.Body = http.MaxBytesReader(w, r.Body, h.config.Upload.MaxSize)
	if err := h.readJSON(r, &rows); err != nil {
		h.badRequest(w, r, err)
		return
	}

	if err := h.commitDataset(h.store.CapacitiesDataset(rows)); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "更新产能数据成功", h.summarizeDataset())
}

func (h *Handler) ReplaceJobs(w http.ResponseWriter, r *http.Request) {
	var rows []importer.Row

	r.Body = http.MaxBytesReader(w, r.Body, h.config.Upload.MaxSize)
	if err := h.readJSON(r, &rows); err != nil {
		h.badRequest(w, r, err)
		return
	}

	if err := h.commitDataset(h.store.JobsDataset(rows)); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "更新作业数据成功", h.summarizeDataset())
}

func (h *Handler) ImportCapacities(w http.ResponseWriter, r *http.Request) {
	rows, ok := h.readUploadedRows(w, r)
	if !ok {
		return
	}

	if err := h.commitDataset(h.store.CapacitiesDataset(rows)); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "导入产能数据成功", h.summarizeDataset())
}

func (h *Handler) ImportJobs(w http.ResponseWriter, r *http.Request) {
	rows, ok := h.readUploadedRows(w, r)
	if !ok {
		return
	}

	if err := h.commitDataset(h.store.JobsDataset(rows)); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "导入作业数据成功", h.summarizeDataset())
}

func (h *Handler) ReloadDataset(w http.ResponseWriter, r *http.Request) {
	if err := h.commitDataset(h.store.AssetsDataset()); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "重新加载静态数据成功", h.summarizeDataset())
}

// readUploadedRows 读取表单中名为 file 的表格文件，出错时已经写好了响应
func (h *Handler) readUploadedRows(w http.ResponseWriter, r *http.Request) ([]importer.Row, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.config.Upload.MaxSize)
	if err := r.ParseMultipartForm(h.config.Upload.MaxSize); err != nil {
		h.badRequest(w, r, err)
		return nil, false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		switch {
		case errors.Is(err, http.ErrMissingFile):
			h.errorResponse(w, r, "请上传文件")
		default:
			h.badRequest(w, r, err)
		}
		return nil, false
	}
	defer file.Close()

	format, err := importer.FormatFromFilename(header.Filename)
	if err != nil {
		h.badRequest(w, r, err)
		return nil, false
	}

	rows, err := importer.ReadRows(file, format)
	if err != nil {
		slog.Warn("无法解析上传的文件", "filename", header.Filename, "error", err)
		h.errorResponse(w, r, "无法解析上传的文件")
		return nil, false
	}

	return rows, true
}
