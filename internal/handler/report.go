package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/capacity"
	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/domain"
	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/report"
)

// newReportOptions 将查询参数转换为报表选项，起始日期为空时使用今天
func (h *Handler) newReportOptions(startDate string, jobID *int64, useScheduled bool) (report.Options, error) {
	opts := report.Options{
		SelectedJobID: jobID,
		UseScheduled:  useScheduled,
	}

	if startDate == "" {
		opts.StartDate = capacity.StartOfDay(time.Now(), h.location)
		return opts, nil
	}

	start, err := time.ParseInLocation(time.DateOnly, startDate, h.location)
	if err != nil {
		return opts, err
	}
	opts.StartDate = start

	return opts, nil
}

func reportCacheKey(version uint64, opts report.Options) string {
	job := "all"
	if opts.SelectedJobID != nil {
		job = strconv.FormatInt(*opts.SelectedJobID, 10)
	}
	return fmt.Sprintf("capacity_report_v%d_%s_%s_%t", version, opts.StartDate.Format(time.DateOnly), job, opts.UseScheduled)
}

func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	opts := r.Context().Value(ReportOptionsCtx).(report.Options)
	key := reportCacheKey(h.store.Version(), opts)

	ctx, cancel := context.WithTimeout(r.Context(), time.Duration(h.config.Redis.OperationExpiration)*time.Second)
	defer cancel()

	// 缓存只是加速手段，读写失败时直接重新生成
	cached, err := h.redisClient.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		h.successResponse(w, r, "获取报表成功", json.RawMessage(cached))
		return
	case errors.Is(err, redis.Nil):
	default:
		slog.Warn("无法读取报表缓存", "key", key, "error", err)
	}

	rep := h.generator.Build(opts)

	data, err := json.Marshal(rep)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	if err := h.redisClient.Set(ctx, key, data, time.Duration(h.config.Redis.ReportExpiration)*time.Second).Err(); err != nil {
		slog.Warn("无法写入报表缓存", "key", key, "error", err)
	}

	h.successResponse(w, r, "获取报表成功", json.RawMessage(data))
}

func (h *Handler) DownloadReport(w http.ResponseWriter, r *http.Request) {
	opts := r.Context().Value(ReportOptionsCtx).(report.Options)
	rep := h.generator.Build(opts)

	h.writeAttachment(w, r, report.ExportFileName, func(buf *bytes.Buffer) error {
		return report.Export(buf, rep)
	})
}

func (h *Handler) MailReport(w http.ResponseWriter, r *http.Request) {
	sub := r.Context().Value(SubCtxKey).(string)

	var req struct {
		To           string `json:"to" validate:"required,email"`
		StartDate    string `json:"startDate" validate:"omitempty,datetime=2006-01-02"`
		JobID        *int64 `json:"jobId"`
		UseScheduled bool   `json:"useScheduled"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	opts, err := h.newReportOptions(req.StartDate, req.JobID, req.UseScheduled)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	rep := h.generator.Build(opts)

	var buf bytes.Buffer
	if err := report.Export(&buf, rep); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	data, err := json.Marshal(domain.CapacityReportMailData{
		RequestedBy:    sub,
		StartDate:      rep.StartDate,
		SelectedJob:    rep.SelectedJob,
		UseScheduled:   rep.UseScheduled,
		ResourceGroups: len(rep.ResourceGroups),
		Report:         json.RawMessage(buf.Bytes()),
	})
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	mailData, err := json.Marshal(domain.MailMessage{
		Type: domain.MailTypeCapacityReport,
		To:   req.To,
		Data: data,
	})
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(h.config.RabbitMQ.PublishTimeout)*time.Second)
	defer cancel()

	if err := h.mailChannel.PublishWithContext(
		ctx,
		"",
		h.config.RabbitMQ.Queue,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        mailData,
		},
	); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "报表已加入发送队列", nil)
}
