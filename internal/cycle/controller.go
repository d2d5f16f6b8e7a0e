package cycle

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"makerbot/internal/config"
	"makerbot/internal/exchange"
	"makerbot/internal/execution"
	"makerbot/internal/metrics"
	"makerbot/internal/position"
	"makerbot/internal/quote"
)

// Phase 为控制器所处阶段。
type Phase int32

const (
	PhaseIdle Phase = iota
	PhaseCancelPending
	PhaseQuoting
	PhasePlacing
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseCancelPending:
		return "cancel_pending"
	case PhaseQuoting:
		return "quoting"
	case PhasePlacing:
		return "placing"
	default:
		return "unknown"
	}
}

// Recorder 接收周期内的审计事件，写入失败不得影响周期。
type Recorder interface {
	RecordBalance(ctx context.Context, cycleID string, snap position.Snapshot)
	RecordQuote(ctx context.Context, cycleID string, t exchange.Ticker, q quote.Quote, signal decimal.Decimal, hasSignal bool)
	RecordCancel(ctx context.Context, cycleID string, order exchange.Order, err error)
	RecordOrder(ctx context.Context, cycleID string, outcome execution.Outcome)
	RecordBreaker(ctx context.Context, cycleID string, signal, threshold decimal.Decimal)
	RecordError(ctx context.Context, cycleID string, msg string, err error, ctxMap map[string]interface{})
}

type tickerGateway interface {
	GetTicker(ctx context.Context, symbol string) (exchange.TickerResponse, error)
}

type balanceRefresher interface {
	Refresh(ctx context.Context) (position.Snapshot, error)
}

type staleCanceller interface {
	CancelStale(ctx context.Context, onResult execution.CancelFunc) (execution.CancelReport, error)
}

// Deps 为 Controller 的协作者。
type Deps struct {
	Ticker    tickerGateway
	Balances  balanceRefresher
	Canceller staleCanceller
	Resolver  *quote.Resolver
	Sizer     *execution.Sizer
	Trader    execution.Trader
	Recorder  Recorder
	Metrics   *metrics.Metrics
}

// Report 为单个周期的结果。
type Report struct {
	CycleID   string
	Snapshot  position.Snapshot
	Cancel    *execution.CancelReport
	Ticker    exchange.Ticker
	Quote     *quote.Quote
	Signal    decimal.Decimal
	HasSignal bool
	Tripped   bool
	Plan      execution.Plan
	Result    *execution.Result
	Duration  time.Duration

	// Previous 为上一次成功刷新的余额，HasPrevious 为 false 时无意义。
	Previous    position.Snapshot
	HasPrevious bool
}

// Controller 执行 刷新余额 → 撤单 → 报价 → 下单 的周期。
type Controller struct {
	mu sync.Mutex

	deps      Deps
	symbol    string
	threshold decimal.Decimal
	logger    *zap.Logger
	phase     atomic.Int32
	newID     func() string
}

// New 创建控制器，threshold 为熔断阈值（波动指标严格大于时跳过下单）。
func New(deps Deps, symbol string, threshold decimal.Decimal, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Recorder == nil {
		deps.Recorder = nopRecorder{}
	}
	return &Controller{
		deps:      deps,
		symbol:    symbol,
		threshold: threshold,
		logger:    logger,
		newID:     uuid.NewString,
	}
}

// NewFromConfig 基于配置与交易所网关装配控制器，返回控制器与撤单器。
func NewFromConfig(cfg *config.Config, gw exchange.Gateway, recorder Recorder, m *metrics.Metrics, logger *zap.Logger) (*Controller, *execution.Canceller) {
	if logger == nil {
		logger = zap.NewNop()
	}
	market := cfg.Exchange.Market
	canceller := execution.NewCanceller(gw, market,
		execution.CancelPolicy(cfg.Scheduler.CancelPolicy), cfg.Scheduler.CancelConcurrency, logger.Named("cancel"))

	deps := Deps{
		Ticker:    gw,
		Balances:  position.NewManager(gw, cfg.Exchange.BaseCurrency, cfg.Exchange.QuoteCurrency, logger.Named("balance")),
		Canceller: canceller,
		Resolver:  quote.NewResolver(cfg.Strategy.PriceTick, cfg.Strategy.PricePrecision),
		Sizer:     execution.NewSizer(execution.RulesFromConfig(cfg.Strategy)),
		Trader:    execution.NewExecutor(gw, market, logger.Named("order")),
		Recorder:  recorder,
		Metrics:   m,
	}
	return New(deps, market, cfg.Strategy.GapThreshold, logger.Named("cycle")), canceller
}

// Phase 返回当前阶段。
func (c *Controller) Phase() Phase {
	return Phase(c.phase.Load())
}

func (c *Controller) enter(p Phase) {
	c.phase.Store(int32(p))
}

// RunCycle 执行一个完整周期。同一时刻最多一个周期修改 mem。
// 余额刷新、挂单查询或行情获取失败时返回 error，mem 中账本保持不变；
// 单侧下单失败只清空该侧账本，不返回 error。
func (c *Controller) RunCycle(ctx context.Context, mem *Memory) (Report, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.enter(PhaseIdle)

	start := time.Now()
	report := Report{CycleID: c.newID()}
	logger := c.logger.With(zap.String("cycle_id", report.CycleID))
	rec := c.deps.Recorder

	fail := func(msg string, err error) (Report, error) {
		report.Duration = time.Since(start)
		logger.Error(msg, zap.Error(err))
		rec.RecordError(ctx, report.CycleID, msg, err, nil)
		c.deps.Metrics.CycleDone(metrics.ResultError)
		return report, fmt.Errorf("cycle: %s: %w", msg, err)
	}

	snap, err := c.deps.Balances.Refresh(ctx)
	if err != nil {
		return fail("刷新余额失败", err)
	}
	if mem.HasSnapshot {
		report.Previous = mem.Snapshot
		report.HasPrevious = true
		logger.Debug("余额变化",
			zap.String("base_available_delta", snap.Base.Available.Sub(mem.Snapshot.Base.Available).String()),
			zap.String("quote_available_delta", snap.Quote.Available.Sub(mem.Snapshot.Quote.Available).String()),
		)
	}
	mem.Snapshot = snap
	mem.HasSnapshot = true
	report.Snapshot = snap
	rec.RecordBalance(ctx, report.CycleID, snap)

	if snap.HasFrozen() {
		c.enter(PhaseCancelPending)
		cancelReport, err := c.deps.Canceller.CancelStale(ctx, func(order exchange.Order, cancelErr error) {
			c.deps.Metrics.CancelDone(cancelErr == nil)
			rec.RecordCancel(context.WithoutCancel(ctx), report.CycleID, order, cancelErr)
		})
		if err != nil {
			return fail("撤销挂单失败", err)
		}
		report.Cancel = &cancelReport
	}

	c.enter(PhaseQuoting)
	tickerRes, err := c.deps.Ticker.GetTicker(ctx, c.symbol)
	if err == nil {
		err = tickerRes.Err("get_ticker")
	}
	if err != nil {
		return fail("获取行情失败", err)
	}
	report.Ticker = tickerRes.Ticker

	q := c.deps.Resolver.Resolve(tickerRes.Ticker)
	report.Quote = &q

	if mem.hasReference() {
		gap := q.BuyPrice.Sub(mem.LastPrice)
		report.Signal = mem.Filter.Update(gap)
		report.HasSignal = true
		logger.Info("价格变化",
			zap.Stringer("last_price", mem.LastPrice),
			zap.Stringer("current_price", q.BuyPrice),
			zap.Stringer("gap", gap),
			zap.Stringer("average_gap", report.Signal),
		)
	}
	mem.LastPrice = q.BuyPrice

	rec.RecordQuote(ctx, report.CycleID, tickerRes.Ticker, q, report.Signal, report.HasSignal)
	report.Tripped = report.HasSignal && report.Signal.GreaterThan(c.threshold)
	c.deps.Metrics.SetVolatility(report.Signal.InexactFloat64(), report.Tripped)

	if report.Tripped {
		logger.Warn("价格平均变化过大，本轮暂停下单",
			zap.Stringer("signal", report.Signal),
			zap.Stringer("threshold", c.threshold),
		)
		rec.RecordBreaker(ctx, report.CycleID, report.Signal, c.threshold)
		c.deps.Metrics.CycleDone(metrics.ResultTripped)
		report.Duration = time.Since(start)
		return report, nil
	}

	c.enter(PhasePlacing)
	report.Plan = c.deps.Sizer.Plan(snap, q)
	result := c.deps.Trader.Execute(ctx, report.Plan, mem.Ledger)
	report.Result = &result

	for _, outcome := range []execution.Outcome{result.Sell, result.Buy} {
		if !outcome.Attempted {
			continue
		}
		c.deps.Metrics.OrderPlaced(string(outcome.Leg.Side), outcome.Succeeded())
		rec.RecordOrder(ctx, report.CycleID, outcome)
	}

	c.deps.Metrics.CycleDone(metrics.ResultOK)
	report.Duration = time.Since(start)
	logger.Debug("周期完成", zap.Duration("latency", report.Duration))
	return report, nil
}

type nopRecorder struct{}

func (nopRecorder) RecordBalance(context.Context, string, position.Snapshot) {}
func (nopRecorder) RecordQuote(context.Context, string, exchange.Ticker, quote.Quote, decimal.Decimal, bool) {
}
func (nopRecorder) RecordCancel(context.Context, string, exchange.Order, error)           {}
func (nopRecorder) RecordOrder(context.Context, string, execution.Outcome)                {}
func (nopRecorder) RecordBreaker(context.Context, string, decimal.Decimal, decimal.Decimal) {}
func (nopRecorder) RecordError(context.Context, string, string, error, map[string]interface{}) {
}
