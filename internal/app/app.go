package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"makerbot/internal/config"
	"makerbot/internal/cycle"
	"makerbot/internal/exchange"
	"makerbot/internal/exchange/fcoin"
	"makerbot/internal/metrics"
	"makerbot/internal/monitor"
	"makerbot/internal/store"
)

// App 聚合核心依赖并驱动系统生命周期。
type App struct {
	cfg    *config.Config
	logger *zap.Logger
	store  *store.Store
}

// New 创建 App 实例。
func New(cfg *config.Config, logger *zap.Logger, store *store.Store) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &App{
		cfg:    cfg,
		logger: logger,
		store:  store,
	}
}

// Run 装配网关与控制器，运行调度器与监控接口直到 ctx 结束。
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("做市系统已初始化",
		zap.String("environment", a.cfg.App.Environment),
		zap.String("driver", a.cfg.Exchange.Driver),
		zap.String("exchange", a.cfg.Exchange.Name),
		zap.String("market", a.cfg.Exchange.Market),
	)

	gw, err := NewGateway(a.cfg.Exchange, a.logger.Named("exchange"))
	if err != nil {
		return err
	}

	monitorSvc, err := monitor.NewService(a.store, a.logger.Named("monitor"))
	if err != nil {
		return fmt.Errorf("app: 初始化监控服务失败: %w", err)
	}
	m := metrics.New()

	ctrl, canceller := cycle.NewFromConfig(a.cfg, gw, monitorSvc, m, a.logger)
	mem := cycle.NewMemory(a.cfg.Strategy.GapWindow)

	sched := NewScheduler(a.cfg.Scheduler, func(ctx context.Context) error {
		_, err := ctrl.RunCycle(ctx, mem)
		return err
	}, m, a.logger.Named("scheduler"))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sched.Run(gctx)
	})
	if a.cfg.Monitor.Enabled {
		handler := newMonitorHandler(monitorSvc, m, a.logger)
		g.Go(func() error {
			return serveMonitor(gctx, handler, a.cfg.Monitor.Port, a.logger)
		})
	}

	err = g.Wait()
	canceller.Wait()

	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("系统异常退出: %w", err)
	}
	a.logger.Info("系统收到退出信号，正在停止")
	return nil
}

// NewGateway 按 exchange.driver 构造网关，并附加单次调用超时。
func NewGateway(cfg config.ExchangeConfig, logger *zap.Logger) (exchange.Gateway, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var gw exchange.Gateway
	switch cfg.Driver {
	case config.DriverPaper:
		feedCfg := cfg
		feedCfg.APIKey, feedCfg.APISecret, feedCfg.APIPass = "", "", ""
		feed, err := exchange.NewCCXTGateway(feedCfg, logger.Named("feed"))
		if err != nil {
			return nil, fmt.Errorf("app: 初始化行情源失败: %w", err)
		}
		paper := exchange.NewPaperGateway(cfg.BaseCurrency, cfg.QuoteCurrency, cfg.Paper.InitialBase, cfg.Paper.InitialQuote)
		gw = exchange.NewSimulatedGateway(paper, feed, logger.Named("paper"))
		logger.Info("交易所处于模拟模式",
			zap.String("feed", cfg.Name),
			zap.Stringer("initial_base", cfg.Paper.InitialBase),
			zap.Stringer("initial_quote", cfg.Paper.InitialQuote),
		)
	case config.DriverCCXT:
		client, err := exchange.NewCCXTGateway(cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("app: 初始化交易客户端失败: %w", err)
		}
		gw = client
	case config.DriverFCoin:
		gw = fcoin.NewClient(cfg, logger)
	default:
		return nil, fmt.Errorf("app: 不支持的交易所驱动 %q", cfg.Driver)
	}

	return exchange.WithTimeout(gw, cfg.CallTimeout), nil
}
