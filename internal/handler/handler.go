package handler

import (
	"context"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/config"
	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/domain"
	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/report"
	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/store"
	"golang.org/x/crypto/bcrypt"
)

// DatasetRepository 用于持久化每次整体替换后的数据
type DatasetRepository interface {
	ReplaceDataset(ds domain.Dataset) error
}

// Publisher 为邮件队列的发布端，*amqp.Channel 满足该接口
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type Handler struct {
	validate          *validator.Validate
	config            *config.Config
	location          *time.Location
	store             *store.Store
	generator         *report.Generator
	repository        DatasetRepository
	translator        ut.Translator
	mailChannel       Publisher
	redisClient       *redis.Client
	adminPasswordHash []byte

	Mux *chi.Mux
}

func NewHandler(cfg *config.Config, st *store.Store, repo DatasetRepository, mailCh Publisher, rdb *redis.Client) (*Handler, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	zh := zh.New()
	uni := ut.New(zh, zh)
	trans, _ := uni.GetTranslator("zh")
	if err := zh_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(cfg.Admin.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	return &Handler{
		validate:          validate,
		config:            cfg,
		location:          loc,
		store:             st,
		generator:         report.NewGenerator(st, loc),
		repository:        repo,
		translator:        trans,
		mailChannel:       mailCh,
		redisClient:       rdb,
		adminPasswordHash: passwordHash,

		Mux: chi.NewRouter(),
	}, nil
}

func (h *Handler) RegisterRoutes() {
	h.Mux.Use(h.logger)
	h.Mux.Use(h.recoverer)

	// 认证相关
	h.Mux.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
	})

	h.Mux.Route("/resource-groups", func(r chi.Router) {
		r.Get("/", h.GetResourceGroups)
		r.Get("/{id}/hours", h.GetResourceGroupHours)
	})

	h.Mux.Route("/capacities", func(r chi.Router) {
		r.Get("/", h.GetCapacities)
		r.With(h.auth).Put("/", h.ReplaceCapacities)
		r.With(h.capacityRecord).Get("/{id}/weekly", h.GetWeeklyCapacity)
	})

	h.Mux.Route("/jobs", func(r chi.Router) {
		r.Get("/", h.GetJobs)
		r.With(h.auth).Put("/", h.ReplaceJobs)
		r.Get("/{id}/hours", h.GetJobHours)
	})

	h.Mux.Route("/report", func(r chi.Router) {
		r.With(h.reportOptions).Get("/", h.GetReport)
		r.With(h.reportOptions).Get("/download", h.DownloadReport)
		r.With(h.auth).Post("/mail", h.MailReport)
	})

	// 以下 API 必须要在登录后才允许调用
	h.Mux.Group(func(r chi.Router) {
		r.Use(h.auth)
		r.Route("/imports", func(r chi.Router) {
			r.Post("/capacities", h.ImportCapacities)
			r.Post("/jobs", h.ImportJobs)
		})
		r.Post("/dataset/reload", h.ReloadDataset)
	})
}
