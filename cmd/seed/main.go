package main

import (
	"context"
	"database/sql"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/assets"
	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/config"
	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/repository"
	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/seed"
	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/store"
	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/utils"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	var op int
	var n int
	var groups int
	var out string

	flag.IntVar(&op, "op", 0, "要执行的操作 (1: 插入随机数据, 2: 生成随机数据工作簿, 3: 插入静态数据)")
	flag.IntVar(&n, "n", 20, "要生成的作业数量")
	flag.IntVar(&groups, "groups", 4, "要生成的资源组数量")
	flag.StringVar(&out, "out", ".", "生成工作簿的目录")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if n <= 0 || groups <= 0 {
		slog.Error("请输入合法的作业数量和资源组数量")
		os.Exit(1)
	}

	// 生成工作簿不需要连接数据库
	switch op {
	case 0:
		slog.Error("未指定操作")
		return
	case 2:
		ds := utils.GenerateRandomDataset(groups, n, time.Now())
		if err := seed.WriteWorkbooks(out, ds); err != nil {
			slog.Error("无法生成工作簿", slog.String("error", err.Error()))
			os.Exit(1)
		}
		return
	}

	// 读取配置文件
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法读取配置文件", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 创建数据库连接池
	dbpool, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		logger.Error("无法创建数据库连接池", "error", err)
		return
	}
	defer dbpool.Close()

	dbpool.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	dbpool.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	dbpool.SetConnMaxIdleTime(time.Duration(cfg.Database.MaxIdleTime) * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Database.ConnectTimeout)*time.Second)
	defer cancel()

	// sql.Open 只是创建数据库连接池对象，并不会立即连接到数据库，因此需要显式地 ping 一下
	if err := dbpool.PingContext(ctx); err != nil {
		logger.Error("无法连接到数据库", "error", err)
		return
	}

	// 创建 repository
	repo := repository.NewRepository(cfg, dbpool)

	// 执行操作
	switch op {
	case 1:
		ds := utils.GenerateRandomDataset(groups, n, time.Now())
		if err := seed.SeedDataset(repo, ds); err != nil {
			slog.Error("无法插入随机数据", slog.String("error", err.Error()))
		}
	case 3:
		st := store.New(assets.FS())
		st.Load()
		if err := seed.SeedDataset(repo, st.Snapshot()); err != nil {
			slog.Error("无法插入静态数据", slog.String("error", err.Error()))
		}
	default:
		slog.Error("指定的操作非法")
	}
}
