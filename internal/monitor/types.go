package monitor

import (
	"time"

	"github.com/shopspring/decimal"

	"makerbot/internal/exchange"
	"makerbot/internal/execution"
	"makerbot/internal/position"
	"makerbot/internal/quote"
)

// EventType 表示监控事件类型。
type EventType string

const (
	EventBalance EventType = "balance"
	EventQuote   EventType = "quote"
	EventCancel  EventType = "cancel"
	EventOrder   EventType = "order"
	EventBreaker EventType = "breaker"
	EventError   EventType = "error"
)

// Event 封装通用监控事件。
type Event struct {
	Type      EventType   `json:"type"`
	CycleID   string      `json:"cycle_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// BalancePayload 记录刷新后的余额。
type BalancePayload struct {
	Snapshot position.Snapshot `json:"snapshot"`
}

// QuotePayload 记录盘口、报价与波动指标。
type QuotePayload struct {
	BidPrice  decimal.Decimal `json:"bid_price"`
	BidQty    decimal.Decimal `json:"bid_qty"`
	AskPrice  decimal.Decimal `json:"ask_price"`
	AskQty    decimal.Decimal `json:"ask_qty"`
	BuyPrice  decimal.Decimal `json:"buy_price"`
	SellPrice decimal.Decimal `json:"sell_price"`
	Crossed   bool            `json:"crossed"`
	Signal    decimal.Decimal `json:"signal"`
	HasSignal bool            `json:"has_signal"`
}

// NewQuotePayload 由盘口与报价组装事件内容。
func NewQuotePayload(t exchange.Ticker, q quote.Quote, signal decimal.Decimal, hasSignal bool) QuotePayload {
	return QuotePayload{
		BidPrice:  t.BidPrice,
		BidQty:    t.BidQty,
		AskPrice:  t.AskPrice,
		AskQty:    t.AskQty,
		BuyPrice:  q.BuyPrice,
		SellPrice: q.SellPrice,
		Crossed:   q.Crossed,
		Signal:    signal,
		HasSignal: hasSignal,
	}
}

// CancelPayload 记录单笔撤单。
type CancelPayload struct {
	OrderID string        `json:"order_id"`
	Side    exchange.Side `json:"side"`
	Success bool          `json:"success"`
	Error   string        `json:"error,omitempty"`
}

// OrderPayload 记录单侧下单结果。
type OrderPayload struct {
	Outcome execution.Outcome `json:"outcome"`
}

// BreakerPayload 记录熔断。
type BreakerPayload struct {
	Signal    decimal.Decimal `json:"signal"`
	Threshold decimal.Decimal `json:"threshold"`
}

// ErrorPayload 记录异常。
type ErrorPayload struct {
	Message string                 `json:"message"`
	Error   string                 `json:"error"`
	Context map[string]interface{} `json:"context,omitempty"`
}
