package exchange

import (
	"strings"

	"github.com/shopspring/decimal"
)

// 交易所状态码约定：0 成功，正数失败并附带消息。
const (
	StatusOK     = 0
	StatusFailed = 1
)

// Side 为订单方向。
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// OrderTypeLimit 是唯一使用的订单类型。
const OrderTypeLimit = "limit"

// OrderState 为交易所侧订单状态。
type OrderState string

const (
	OrderSubmitted       OrderState = "submitted"
	OrderPartialFilled   OrderState = "partial_filled"
	OrderPartialCanceled OrderState = "partial_canceled"
	OrderFilled          OrderState = "filled"
	OrderCanceled        OrderState = "canceled"
	OrderPendingCancel   OrderState = "pending_cancel"
)

// RestingStates 为仍挂在盘口、需要撤销的状态。
var RestingStates = []OrderState{OrderSubmitted, OrderPartialFilled}

// JoinStates 以逗号拼接状态列表。
func JoinStates(states []OrderState) string {
	parts := make([]string, 0, len(states))
	for _, s := range states {
		parts = append(parts, string(s))
	}
	return strings.Join(parts, ",")
}

// Result 为所有应答共有的状态字段。
type Result struct {
	Status  int
	Message string
}

// OK 判断应答是否成功。
func (r Result) OK() bool {
	return r.Status == StatusOK
}

// Err 在失败时返回 *ExchangeError，成功时返回 nil。
func (r Result) Err(op string) error {
	if r.OK() {
		return nil
	}
	return &ExchangeError{Op: op, Status: r.Status, Message: r.Message}
}

// Failed 构造失败应答。
func Failed(message string) Result {
	return Result{Status: StatusFailed, Message: message}
}

// Ticker 为盘口最优买卖档。
type Ticker struct {
	BidPrice decimal.Decimal
	BidQty   decimal.Decimal
	AskPrice decimal.Decimal
	AskQty   decimal.Decimal
}

// Balance 为单币种余额，数值以字符串形式给出。
type Balance struct {
	Currency  string
	Available string
	Frozen    string
	Total     string
}

// Order 为挂单概要。
type Order struct {
	ID    string
	Side  Side
	State OrderState
	Price decimal.Decimal
	Size  decimal.Decimal
}

// OrderRequest 描述一次限价下单。
type OrderRequest struct {
	Symbol string
	Side   Side
	Type   string
	Price  decimal.Decimal
	Size   decimal.Decimal
}

// TickerResponse 为行情应答。
type TickerResponse struct {
	Result
	Ticker Ticker
}

// BalancesResponse 为余额应答。
type BalancesResponse struct {
	Result
	Balances []Balance
}

// OrdersResponse 为挂单列表应答。
type OrdersResponse struct {
	Result
	Orders []Order
}

// StatusResponse 为仅含状态的应答。
type StatusResponse struct {
	Result
}

// PlaceResponse 为下单应答。
type PlaceResponse struct {
	Result
	OrderID string
}
