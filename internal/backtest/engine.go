package backtest

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"makerbot/internal/config"
	"makerbot/internal/cycle"
	"makerbot/internal/exchange"
	"makerbot/internal/metrics"
)

// Result 汇总回放结果。
type Result struct {
	Metrics      Metrics
	EquityCurve  []float64
	ReturnSeries []float64
	Cycles       int
	Tripped      int
	Failed       int
	Orders       int
	FinalEquity  float64
}

// Engine 用真实的周期控制器驱动模拟交易所回放盘口序列。
type Engine struct {
	cfg       Config
	provider  SnapshotProvider
	paper     *exchange.PaperGateway
	ctrl      *cycle.Controller
	mem       *cycle.Memory
	simulator *Simulator
	logger    *zap.Logger
}

// NewEngine 构建回放引擎。撤单固定为等待模式，保证每轮在下一行快照前结束。
func NewEngine(cfg Config, appCfg *config.Config, provider SnapshotProvider, m *metrics.Metrics, logger *zap.Logger) (*Engine, error) {
	if provider == nil {
		return nil, fmt.Errorf("backtest: provider 不能为空")
	}
	if appCfg == nil {
		return nil, fmt.Errorf("backtest: 配置不能为空")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	cfg = cfg.normalize()

	replayCfg := *appCfg
	replayCfg.Scheduler.CancelPolicy = config.CancelWait

	paper := exchange.NewPaperGateway(replayCfg.Exchange.BaseCurrency, replayCfg.Exchange.QuoteCurrency, cfg.InitialBase, cfg.InitialQuote)
	ctrl, _ := cycle.NewFromConfig(&replayCfg, paper, nil, m, logger)

	return &Engine{
		cfg:       cfg,
		provider:  provider,
		paper:     paper,
		ctrl:      ctrl,
		mem:       cycle.NewMemory(replayCfg.Strategy.GapWindow),
		simulator: NewSimulator(paper),
		logger:    logger,
	}, nil
}

// Run 对每行快照：推进盘口（撮合已挂订单）、估值、执行一个周期。
func (e *Engine) Run(ctx context.Context) (Result, error) {
	var result Result
	for {
		ticker, ok, err := e.provider.Next(ctx)
		if err != nil {
			return Result{}, err
		}
		if !ok {
			break
		}

		e.paper.SetTicker(ticker)
		e.simulator.Mark(ticker)

		report, err := e.ctrl.RunCycle(ctx, e.mem)
		result.Cycles++
		if err != nil {
			if ctx.Err() != nil {
				return Result{}, ctx.Err()
			}
			result.Failed++
			e.logger.Warn("回放周期失败", zap.Int("cycle", result.Cycles), zap.Error(err))
			continue
		}
		if report.Tripped {
			result.Tripped++
		}
		if report.Result != nil {
			if report.Result.Sell.Succeeded() {
				result.Orders++
			}
			if report.Result.Buy.Succeeded() {
				result.Orders++
			}
		}
	}

	result.Metrics = calculateMetrics(e.simulator.EquityHistory(), e.simulator.ReturnHistory(), e.cfg.stepsPerYear(), activity{
		cycles:  result.Cycles,
		orders:  result.Orders,
		tripped: result.Tripped,
		failed:  result.Failed,
	})
	result.EquityCurve = e.simulator.EquityHistory()
	result.ReturnSeries = e.simulator.ReturnHistory()
	result.FinalEquity = e.simulator.Equity()

	e.logger.Info("回放完成",
		zap.Int("cycles", result.Cycles),
		zap.Int("orders", result.Orders),
		zap.Int("tripped", result.Tripped),
		zap.Float64("total_return", result.Metrics.TotalReturn),
		zap.Float64("max_drawdown", result.Metrics.MaxDrawdown),
		zap.Float64("sharpe", result.Metrics.SharpeRatio),
		zap.Float64("orders_per_cycle", result.Metrics.OrdersPerCycle),
		zap.Float64("trip_ratio", result.Metrics.TripRatio),
		zap.Float64("final_equity", result.FinalEquity),
	)
	return result, nil
}
