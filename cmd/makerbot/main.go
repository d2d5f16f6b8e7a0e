package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"makerbot/internal/app"
	"makerbot/internal/backtest"
	"makerbot/internal/config"
	"makerbot/internal/log"
	"makerbot/internal/metrics"
	"makerbot/internal/store"
)

func main() {
	var (
		configPath string
		envPath    string
		replayPath string
	)
	flag.StringVar(&configPath, "config", "", "配置文件路径，默认使用 configs/config.yaml")
	flag.StringVar(&envPath, "env", ".env", "环境变量文件路径，不存在时忽略")
	flag.StringVar(&replayPath, "replay", "", "盘口 CSV 文件路径，指定后以模拟交易所回放而不连接交易所")
	flag.Parse()

	if err := godotenv.Load(envPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "加载环境变量文件失败: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	logger, err := log.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer func(logger *zap.Logger) {
		_ = logger.Sync()
	}(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if replayPath != "" {
		if err := runReplay(ctx, cfg, replayPath, logger); err != nil {
			logger.Error("回放失败", zap.Error(err))
			os.Exit(1)
		}
		return
	}

	sqliteStore, err := store.NewSQLite(cfg.Database)
	if err != nil {
		logger.Error("初始化数据库失败", zap.Error(err))
		os.Exit(1)
	}
	defer func() {
		if closeErr := sqliteStore.Close(); closeErr != nil {
			logger.Warn("关闭数据库失败", zap.Error(closeErr))
		}
	}()

	makerApp := app.New(cfg, logger, sqliteStore)
	if err := makerApp.Run(ctx); err != nil {
		logger.Error("系统运行异常", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("系统已安全退出")
}

func runReplay(ctx context.Context, cfg *config.Config, path string, logger *zap.Logger) error {
	provider, err := backtest.NewCSVSnapshotProvider(path)
	if err != nil {
		return err
	}

	engine, err := backtest.NewEngine(backtest.Config{
		InitialBase:  cfg.Exchange.Paper.InitialBase,
		InitialQuote: cfg.Exchange.Paper.InitialQuote,
		Step:         cfg.Scheduler.Interval,
	}, cfg, provider, metrics.New(), logger.Named("replay"))
	if err != nil {
		return err
	}

	result, err := engine.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("cycles=%d orders=%d tripped=%d failed=%d orders_per_cycle=%.2f trip_ratio=%.4f total_return=%.6f max_drawdown=%.6f sharpe=%.4f final_equity=%.4f\n",
		result.Cycles, result.Orders, result.Tripped, result.Failed,
		result.Metrics.OrdersPerCycle, result.Metrics.TripRatio,
		result.Metrics.TotalReturn, result.Metrics.MaxDrawdown, result.Metrics.SharpeRatio, result.FinalEquity)
	return nil
}
