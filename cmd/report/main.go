package main

import (
	"flag"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/assets"
	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/report"
	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/store"
)

func main() {
	var dataDir string
	var capacityFile string
	var jobFile string
	var jobID string
	var useScheduled bool
	var startDate string
	var timezone string
	var out string

	flag.StringVar(&dataDir, "data-dir", "", "静态数据目录，为空时使用随程序打包的数据")
	flag.StringVar(&capacityFile, "capacities", "", "产能表格文件 (.xlsx/.csv/.json)")
	flag.StringVar(&jobFile, "jobs", "", "作业表格文件 (.xlsx/.csv/.json)")
	flag.StringVar(&jobID, "job", "", "只统计该作业的工时")
	flag.BoolVar(&useScheduled, "scheduled", false, "作业工时使用排程时间线")
	flag.StringVar(&startDate, "start", "", "报表起始日期 (YYYY-MM-DD)，默认为今天")
	flag.StringVar(&timezone, "tz", "Local", "日历计算所用的时区")
	flag.StringVar(&out, "out", report.ExportFileName, "输出文件，- 表示标准输出")
	flag.Parse()

	// 日志输出到标准错误，避免和报表混在一起
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	loc, err := time.LoadLocation(timezone)
	if err != nil {
		slog.Error("无法加载时区", "timezone", timezone, "error", err)
		os.Exit(1)
	}

	opts := report.Options{UseScheduled: useScheduled}
	if startDate != "" {
		opts.StartDate, err = time.ParseInLocation(time.DateOnly, startDate, loc)
		if err != nil {
			slog.Error("起始日期格式错误", "start", startDate, "error", err)
			os.Exit(1)
		}
	}
	if jobID != "" {
		id, err := strconv.ParseInt(jobID, 10, 64)
		if err != nil {
			slog.Error("作业号无效", "job", jobID)
			os.Exit(1)
		}
		opts.SelectedJobID = &id
	}

	/**********************************************
	 * 加载数据
	 **********************************************/
	var assetFS fs.FS = assets.FS()
	if dataDir != "" {
		assetFS = os.DirFS(dataDir)
	}
	st := store.New(assetFS)
	st.Load()

	if capacityFile != "" || jobFile != "" {
		if err := st.LoadFiles(capacityFile, jobFile); err != nil {
			slog.Error("无法导入表格文件", "error", err)
			os.Exit(1)
		}
	}

	/**********************************************
	 * 生成报表
	 **********************************************/
	rep := report.NewGenerator(st, loc).Build(opts)

	if out == "-" {
		if err := report.Export(os.Stdout, rep); err != nil {
			slog.Error("无法输出报表", "error", err)
			os.Exit(1)
		}
		return
	}

	if err := report.ExportFile(out, rep); err != nil {
		slog.Error("无法写入报表", "out", out, "error", err)
		os.Exit(1)
	}

	slog.Info("已生成报表", "out", out, "resourceGroups", len(rep.ResourceGroups), "startDate", rep.StartDate)
}
