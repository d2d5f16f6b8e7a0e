package exchange

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	ccxt "github.com/ccxt/ccxt/go/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"makerbot/internal/config"
)

// ccxtClient 为 CCXTGateway 使用到的 ccxt 方法子集。
type ccxtClient interface {
	FetchTicker(symbol string, options ...ccxt.FetchTickerOptions) (ccxt.Ticker, error)
	FetchBalance(params ...interface{}) (ccxt.Balances, error)
	FetchOpenOrders(options ...ccxt.FetchOpenOrdersOptions) ([]ccxt.Order, error)
	CancelOrder(id string, options ...ccxt.CancelOrderOptions) (ccxt.Order, error)
	CreateLimitOrder(symbol string, side string, amount float64, price float64, options ...ccxt.CreateLimitOrderOptions) (ccxt.Order, error)
}

// CCXTGateway 通过 ccxt 对接现货交易所并实现传输层重试。
type CCXTGateway struct {
	cfg    config.ExchangeConfig
	logger *zap.Logger
	client ccxtClient
	load   func() error

	base  string
	quote string

	marketsMu     sync.Mutex
	marketsLoaded bool
}

// NewCCXTGateway 按 exchange.name 构造 ccxt 现货客户端。
func NewCCXTGateway(cfg config.ExchangeConfig, logger *zap.Logger) (*CCXTGateway, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	userConfig := map[string]interface{}{
		"enableRateLimit": true,
		"options": map[string]interface{}{
			"adjustForTimeDifference": true,
			"defaultType":             "spot",
		},
	}

	if cfg.APIKey != "" {
		userConfig["apiKey"] = cfg.APIKey
	}
	if cfg.APISecret != "" {
		userConfig["secret"] = cfg.APISecret
	}
	if cfg.APIPass != "" {
		userConfig["password"] = cfg.APIPass
	}

	var (
		client ccxtClient
		load   func() error
	)
	switch strings.ToLower(cfg.Name) {
	case "binance":
		ex := ccxt.NewBinance(userConfig)
		if cfg.UseSandbox {
			ex.SetSandboxMode(true)
		}
		client = ex
		load = func() error {
			_, err := ex.LoadMarkets()
			return err
		}
	case "okx":
		ex := ccxt.NewOkx(userConfig)
		if cfg.UseSandbox {
			ex.SetSandboxMode(true)
		}
		client = ex
		load = func() error {
			_, err := ex.LoadMarkets()
			return err
		}
	case "bybit":
		ex := ccxt.NewBybit(userConfig)
		if cfg.UseSandbox {
			ex.SetSandboxMode(true)
		}
		client = ex
		load = func() error {
			_, err := ex.LoadMarkets()
			return err
		}
	default:
		return nil, fmt.Errorf("exchange: 不支持的 ccxt 交易所 %q", cfg.Name)
	}

	return newCCXTGateway(cfg, client, load, logger), nil
}

func newCCXTGateway(cfg config.ExchangeConfig, client ccxtClient, load func() error, logger *zap.Logger) *CCXTGateway {
	if load == nil {
		load = func() error { return nil }
	}
	return &CCXTGateway{
		cfg:    cfg,
		logger: logger,
		client: client,
		load:   load,
		base:   strings.ToUpper(cfg.BaseCurrency),
		quote:  strings.ToUpper(cfg.QuoteCurrency),
	}
}

// GetTicker 获取最优买卖档。
func (g *CCXTGateway) GetTicker(ctx context.Context, symbol string) (TickerResponse, error) {
	var raw ccxt.Ticker
	err := g.callWithRetry(ctx, "fetch_ticker", func() error {
		if err := g.ensureMarketsLoaded(ctx); err != nil {
			return err
		}
		t, err := g.client.FetchTicker(symbol)
		if err != nil {
			return err
		}
		raw = t
		return nil
	})
	if err != nil {
		res, tErr := g.failure("fetch_ticker", err)
		return TickerResponse{Result: res}, tErr
	}

	if raw.Bid == nil || raw.Ask == nil {
		return TickerResponse{Result: Failed("行情缺少买一或卖一价格")}, nil
	}

	return TickerResponse{Ticker: Ticker{
		BidPrice: decimal.NewFromFloat(*raw.Bid),
		BidQty:   floatOrZero(raw.BidVolume),
		AskPrice: decimal.NewFromFloat(*raw.Ask),
		AskQty:   floatOrZero(raw.AskVolume),
	}}, nil
}

// GetBalances 获取基础币与计价币余额。
func (g *CCXTGateway) GetBalances(ctx context.Context) (BalancesResponse, error) {
	var raw ccxt.Balances
	err := g.callWithRetry(ctx, "fetch_balance", func() error {
		b, err := g.client.FetchBalance()
		if err != nil {
			return err
		}
		raw = b
		return nil
	})
	if err != nil {
		res, tErr := g.failure("fetch_balance", err)
		return BalancesResponse{Result: res}, tErr
	}

	balances := make([]Balance, 0, 2)
	for _, currency := range []string{g.base, g.quote} {
		free, freeOK := raw.Free[currency]
		used, usedOK := raw.Used[currency]
		total, totalOK := raw.Total[currency]
		if !freeOK && !usedOK && !totalOK {
			continue
		}
		balances = append(balances, Balance{
			Currency:  currency,
			Available: floatOrZero(free).String(),
			Frozen:    floatOrZero(used).String(),
			Total:     floatOrZero(total).String(),
		})
	}

	return BalancesResponse{Balances: balances}, nil
}

// GetOpenOrders 列出交易对上的挂单，按状态过滤。
func (g *CCXTGateway) GetOpenOrders(ctx context.Context, symbol string, states []OrderState) (OrdersResponse, error) {
	var raw []ccxt.Order
	err := g.callWithRetry(ctx, "fetch_open_orders", func() error {
		if err := g.ensureMarketsLoaded(ctx); err != nil {
			return err
		}
		orders, err := g.client.FetchOpenOrders(ccxt.WithFetchOpenOrdersSymbol(symbol))
		if err != nil {
			return err
		}
		raw = orders
		return nil
	})
	if err != nil {
		res, tErr := g.failure("fetch_open_orders", err)
		return OrdersResponse{Result: res}, tErr
	}

	wanted := make(map[OrderState]struct{}, len(states))
	for _, s := range states {
		wanted[s] = struct{}{}
	}

	orders := make([]Order, 0, len(raw))
	for _, item := range raw {
		order := convertOrder(item)
		if order.ID == "" {
			continue
		}
		if _, ok := wanted[order.State]; len(wanted) > 0 && !ok {
			continue
		}
		orders = append(orders, order)
	}

	return OrdersResponse{Orders: orders}, nil
}

// CancelOrder 撤销指定订单。
func (g *CCXTGateway) CancelOrder(ctx context.Context, symbol, id string) (StatusResponse, error) {
	err := g.callWithRetry(ctx, "cancel_order", func() error {
		_, err := g.client.CancelOrder(id, ccxt.WithCancelOrderSymbol(symbol))
		return err
	})
	if err != nil {
		res, tErr := g.failure("cancel_order", err)
		return StatusResponse{Result: res}, tErr
	}
	return StatusResponse{}, nil
}

// PlaceOrder 提交限价单。
func (g *CCXTGateway) PlaceOrder(ctx context.Context, req OrderRequest) (PlaceResponse, error) {
	if req.Type != "" && req.Type != OrderTypeLimit {
		return PlaceResponse{Result: Failed(fmt.Sprintf("不支持的订单类型 %s", req.Type))}, nil
	}

	var created ccxt.Order
	err := g.callWithRetry(ctx, "create_limit_order", func() error {
		if err := g.ensureMarketsLoaded(ctx); err != nil {
			return err
		}
		order, err := g.client.CreateLimitOrder(req.Symbol, string(req.Side), req.Size.InexactFloat64(), req.Price.InexactFloat64())
		if err != nil {
			return err
		}
		created = order
		return nil
	})
	if err != nil {
		res, tErr := g.failure("create_limit_order", err)
		return PlaceResponse{Result: res}, tErr
	}

	if created.Id == nil || *created.Id == "" {
		return PlaceResponse{Result: Failed("交易所未返回订单ID")}, nil
	}

	return PlaceResponse{OrderID: *created.Id}, nil
}

func (g *CCXTGateway) ensureMarketsLoaded(ctx context.Context) error {
	g.marketsMu.Lock()
	defer g.marketsMu.Unlock()

	if g.marketsLoaded {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := g.load(); err != nil {
		return err
	}

	g.marketsLoaded = true
	g.logger.Info("已完成市场元数据加载", zap.String("market", g.cfg.Market))
	return nil
}

// failure 将 ccxt 错误映射为契约：业务错误转为非零状态，网络错误转为 *TransportError。
func (g *CCXTGateway) failure(op string, err error) (Result, error) {
	normalized, transport := g.classifyError(err)
	if transport {
		return Result{}, &TransportError{Op: op, Err: normalized}
	}
	return Failed(errorMessage(normalized)), nil
}

func (g *CCXTGateway) callWithRetry(ctx context.Context, operation string, fn func() error) error {
	maxAttempts := g.cfg.Retry.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	delay := g.cfg.Retry.MinDelay
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}
	maxDelay := g.cfg.Retry.MaxDelay
	if maxDelay <= 0 {
		maxDelay = 5 * time.Second
	}

	attempt := 0
	for {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		attempt++
		start := time.Now()
		err := fn()
		latency := time.Since(start)
		if err == nil {
			if attempt > 1 {
				g.logger.Info("交易所调用重试后成功",
					zap.String("operation", operation),
					zap.Int("attempts", attempt),
					zap.Duration("latency", latency),
				)
			}
			return nil
		}

		normalized, transport := g.classifyError(err)
		if !transport || !IsRetryable(normalized) || attempt >= maxAttempts {
			g.logger.Debug("交易所调用失败",
				zap.String("operation", operation),
				zap.Int("attempts", attempt),
				zap.Duration("latency", latency),
				zap.Error(normalized),
			)
			return err
		}

		wait := delay
		if wait > maxDelay {
			wait = maxDelay
		}

		g.logger.Warn("交易所调用失败，等待重试",
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(normalized),
		)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay *= 2
		if delay > maxDelay {
			delay = maxDelay
		}
	}
}

// classifyError 返回规整后的错误，以及它是否属于传输层失败。
func (g *CCXTGateway) classifyError(err error) (error, bool) {
	if err == nil {
		return nil, false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err, true
	}

	var ccxtErr *ccxt.Error
	if errors.As(err, &ccxtErr) {
		if ccxtErr.Type == ccxt.OnMaintenanceErrType {
			message := strings.TrimSpace(ccxtErr.Message)
			if message == "" {
				message = "exchange under maintenance"
			}
			return fmt.Errorf("%w: %s", ErrMaintenance, message), false
		}
		return err, IsRetryable(err)
	}

	return err, IsRetryable(err)
}

func errorMessage(err error) string {
	var ccxtErr *ccxt.Error
	if errors.As(err, &ccxtErr) && strings.TrimSpace(ccxtErr.Message) != "" {
		return strings.TrimSpace(ccxtErr.Message)
	}
	return err.Error()
}

func convertOrder(item ccxt.Order) Order {
	order := Order{
		Price: floatOrZero(item.Price),
		Size:  floatOrZero(item.Amount),
	}
	if item.Id != nil {
		order.ID = *item.Id
	}
	if item.Side != nil {
		order.Side = Side(strings.ToLower(*item.Side))
	}

	status := ""
	if item.Status != nil {
		status = strings.ToLower(*item.Status)
	}
	filled := floatOrZero(item.Filled)
	switch status {
	case "", "open":
		if filled.IsPositive() {
			order.State = OrderPartialFilled
		} else {
			order.State = OrderSubmitted
		}
	case "closed":
		order.State = OrderFilled
	case "canceled", "cancelled", "expired", "rejected":
		if filled.IsPositive() {
			order.State = OrderPartialCanceled
		} else {
			order.State = OrderCanceled
		}
	default:
		order.State = OrderState(status)
	}

	return order
}

func floatOrZero(v *float64) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromFloat(*v)
}
