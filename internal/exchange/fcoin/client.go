package fcoin

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"makerbot/internal/config"
	"makerbot/internal/exchange"
)

const (
	defaultHost       = "https://api.fcoin.com"
	defaultOrderLimit = "100"
)

// Client 为 FCoin v2 REST 接口实现 exchange.Gateway。
type Client struct {
	host   string
	http   *resty.Client
	signer *Signer
	logger *zap.Logger
	now    func() time.Time
}

// NewClient 创建 FCoin 客户端。单次请求超时由外层 exchange.WithTimeout 控制。
func NewClient(cfg config.ExchangeConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	host := strings.TrimSuffix(cfg.BaseURL, "/")
	if host == "" {
		host = defaultHost
	}

	httpClient := resty.New().
		SetBaseURL(host).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "makerbot")

	return &Client{
		host:   host,
		http:   httpClient,
		signer: NewSigner(cfg.APIKey, cfg.APISecret),
		logger: logger,
		now:    time.Now,
	}
}

// Symbol 将 "BTC/USDT" 转为 FCoin 使用的 "btcusdt"。
func Symbol(market string) string {
	return strings.ToLower(strings.NewReplacer("/", "", "-", "", "_", "").Replace(market))
}

// GetTicker 获取行情。
func (c *Client) GetTicker(ctx context.Context, symbol string) (exchange.TickerResponse, error) {
	var data tickerData
	res, err := c.do(ctx, http.MethodGet, "/v2/market/ticker/"+Symbol(symbol), nil, nil, false, &data)
	if err != nil || !res.OK() {
		return exchange.TickerResponse{Result: res}, err
	}

	if len(data.Ticker) <= tickerAskQty {
		return exchange.TickerResponse{Result: exchange.Failed(fmt.Sprintf("行情数组长度异常: %d", len(data.Ticker)))}, nil
	}

	return exchange.TickerResponse{Ticker: exchange.Ticker{
		BidPrice: decimal.NewFromFloat(data.Ticker[tickerBidPrice]),
		BidQty:   decimal.NewFromFloat(data.Ticker[tickerBidQty]),
		AskPrice: decimal.NewFromFloat(data.Ticker[tickerAskPrice]),
		AskQty:   decimal.NewFromFloat(data.Ticker[tickerAskQty]),
	}}, nil
}

// GetBalances 获取账户余额。
func (c *Client) GetBalances(ctx context.Context) (exchange.BalancesResponse, error) {
	var items []balanceItem
	res, err := c.do(ctx, http.MethodGet, "/v2/accounts/balance", nil, nil, true, &items)
	if err != nil || !res.OK() {
		return exchange.BalancesResponse{Result: res}, err
	}

	balances := make([]exchange.Balance, 0, len(items))
	for _, item := range items {
		balances = append(balances, exchange.Balance{
			Currency:  item.Currency,
			Available: item.Available,
			Frozen:    item.Frozen,
			Total:     item.Balance,
		})
	}
	return exchange.BalancesResponse{Balances: balances}, nil
}

// GetOpenOrders 按状态查询订单。
func (c *Client) GetOpenOrders(ctx context.Context, symbol string, states []exchange.OrderState) (exchange.OrdersResponse, error) {
	query := map[string]string{
		"symbol": Symbol(symbol),
		"states": exchange.JoinStates(states),
		"limit":  defaultOrderLimit,
	}

	var items []orderItem
	res, err := c.do(ctx, http.MethodGet, "/v2/orders", query, nil, true, &items)
	if err != nil || !res.OK() {
		return exchange.OrdersResponse{Result: res}, err
	}

	orders := make([]exchange.Order, 0, len(items))
	for _, item := range items {
		orders = append(orders, exchange.Order{
			ID:    item.ID,
			Side:  exchange.Side(item.Side),
			State: exchange.OrderState(item.State),
			Price: parseDecimal(item.Price),
			Size:  parseDecimal(item.Amount),
		})
	}
	return exchange.OrdersResponse{Orders: orders}, nil
}

// CancelOrder 提交撤单请求。
func (c *Client) CancelOrder(ctx context.Context, _ string, id string) (exchange.StatusResponse, error) {
	res, err := c.do(ctx, http.MethodPost, "/v2/orders/"+id+"/submit-cancel", nil, map[string]string{}, true, nil)
	return exchange.StatusResponse{Result: res}, err
}

// PlaceOrder 提交限价单，成功时 data 为订单ID。
func (c *Client) PlaceOrder(ctx context.Context, req exchange.OrderRequest) (exchange.PlaceResponse, error) {
	orderType := req.Type
	if orderType == "" {
		orderType = exchange.OrderTypeLimit
	}
	body := map[string]string{
		"symbol": Symbol(req.Symbol),
		"side":   string(req.Side),
		"type":   orderType,
		"price":  req.Price.String(),
		"amount": req.Size.String(),
	}

	var orderID string
	res, err := c.do(ctx, http.MethodPost, "/v2/orders", nil, body, true, &orderID)
	if err != nil || !res.OK() {
		return exchange.PlaceResponse{Result: res}, err
	}
	return exchange.PlaceResponse{OrderID: orderID}, nil
}

// do 发送请求并解析通用应答。业务失败体现在返回的 Result 中，error 仅表示传输失败。
func (c *Client) do(ctx context.Context, method, path string, query, body map[string]string, signed bool, out interface{}) (exchange.Result, error) {
	endpoint := path
	if q := encodeParams(query); q != "" {
		endpoint += "?" + q
	}

	var env envelope
	r := c.http.R().
		SetContext(ctx).
		SetResult(&env).
		SetError(&env)

	if body != nil {
		r.SetHeader("Content-Type", "application/json").SetBody(body)
	}

	if signed {
		ts := c.now().UnixMilli()
		r.SetHeader("FC-ACCESS-KEY", c.signer.key).
			SetHeader("FC-ACCESS-TIMESTAMP", fmt.Sprintf("%d", ts)).
			SetHeader("FC-ACCESS-SIGNATURE", c.signer.Sign(method, c.host+endpoint, ts, body))
	}

	resp, err := r.Execute(method, endpoint)
	if err != nil {
		return exchange.Result{}, errors.Wrapf(err, "fcoin: %s %s", method, path)
	}

	if env.Status > 0 {
		msg := env.Msg
		if msg == "" {
			msg = fmt.Sprintf("status %d", env.Status)
		}
		c.logger.Debug("FCoin 返回业务错误",
			zap.String("path", path),
			zap.Int("status", env.Status),
			zap.String("msg", msg),
		)
		return exchange.Result{Status: env.Status, Message: msg}, nil
	}

	if resp.IsError() {
		return exchange.Result{}, errors.Errorf("fcoin: %s %s http %d: %s", method, path, resp.StatusCode(), strings.TrimSpace(resp.String()))
	}

	if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return exchange.Result{}, errors.Wrapf(err, "fcoin: 解析 %s 应答失败", path)
		}
	}

	return exchange.Result{}, nil
}

func parseDecimal(s string) decimal.Decimal {
	v, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero
	}
	return v
}
