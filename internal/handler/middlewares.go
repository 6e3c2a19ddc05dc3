package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
)

type ResponseWriter struct {
	http.ResponseWriter
	StatusCode int
}

func (rw *ResponseWriter) WriteHeader(statusCode int) {
	rw.StatusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

func (h *Handler) logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &ResponseWriter{ResponseWriter: w, StatusCode: http.StatusOK}
		next.ServeHTTP(rw, r)
		duration := time.Since(start)
		slog.Info("已处理请求", "status", rw.StatusCode, "ip", r.RemoteAddr, "method", r.Method, "path", r.URL.Path, "duration", duration)
	})
}

func (h *Handler) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				h.internalServerError(w, r, fmt.Errorf("panic: %v", err))
				stackTrace := string(debug.Stack())
				fmt.Print(stackTrace) // 这里如果用 slog 的话会很乱
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 从 cookie 中获取 token
		cookie, err := r.Cookie(tokenCookieName)
		if err != nil {
			switch {
			case errors.Is(err, http.ErrNoCookie):
				h.errorResponse(w, r, "用户未登录")
			default:
				h.internalServerError(w, r, err)
			}
			return
		}

		// 验证 token
		claims := &jwt.RegisteredClaims{}
		_, err = jwt.ParseWithClaims(cookie.Value, claims, func(t *jwt.Token) (interface{}, error) {
			return []byte(h.config.JWT.Secret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			h.errorResponse(w, r, "无效的令牌")
			return
		}

		// 目前只有一个管理员账号
		if claims.Subject != h.config.Admin.Username {
			h.errorResponse(w, r, "权限不足")
			return
		}

		ctx := context.WithValue(r.Context(), SubCtxKey, claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) capacityRecord(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resourceGroupID := chi.URLParam(r, "id")

		record, ok := h.store.Capacity(resourceGroupID)
		if !ok {
			h.errorResponse(w, r, "资源组不存在")
			return
		}

		ctx := context.WithValue(r.Context(), CapacityRecordCtx, &record)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) reportOptions(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()

		req := struct {
			StartDate    string `validate:"omitempty,datetime=2006-01-02"`
			JobID        string `validate:"omitempty,number"`
			UseScheduled string `validate:"omitempty,boolean"`
		}{
			StartDate:    query.Get("startDate"),
			JobID:        query.Get("jobId"),
			UseScheduled: query.Get("useScheduled"),
		}
		if err := h.validate.Struct(req); err != nil {
			h.badRequest(w, r, err)
			return
		}

		var jobID *int64
		if req.JobID != "" {
			id, err := strconv.ParseInt(req.JobID, 10, 64)
			if err != nil {
				h.errorResponse(w, r, "作业号无效")
				return
			}
			jobID = &id
		}

		useScheduled := false
		if req.UseScheduled != "" {
			useScheduled, _ = strconv.ParseBool(req.UseScheduled)
		}

		opts, err := h.newReportOptions(req.StartDate, jobID, useScheduled)
		if err != nil {
			h.badRequest(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), ReportOptionsCtx, opts)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
