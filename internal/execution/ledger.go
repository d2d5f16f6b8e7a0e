package execution

import (
	"sync"

	"makerbot/internal/exchange"
)

// OrderRef 为某一侧最近一次提交的订单。
type OrderRef struct {
	ID   string        `json:"id"`
	Side exchange.Side `json:"side"`
}

// Ledger 记录每侧最近一次下单的订单ID，只作缓存，不与交易所对账。
type Ledger struct {
	mu   sync.RWMutex
	buy  string
	sell string
}

// Set 覆盖某侧的订单ID，空字符串表示清空。
func (l *Ledger) Set(side exchange.Side, id string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch side {
	case exchange.SideBuy:
		l.buy = id
	case exchange.SideSell:
		l.sell = id
	}
}

// Clear 清空某侧。
func (l *Ledger) Clear(side exchange.Side) {
	l.Set(side, "")
}

// Get 返回某侧的订单引用。
func (l *Ledger) Get(side exchange.Side) OrderRef {
	l.mu.RLock()
	defer l.mu.RUnlock()

	switch side {
	case exchange.SideBuy:
		return OrderRef{ID: l.buy, Side: side}
	case exchange.SideSell:
		return OrderRef{ID: l.sell, Side: side}
	}
	return OrderRef{Side: side}
}

// Snapshot 返回两侧引用，卖单在前。
func (l *Ledger) Snapshot() []OrderRef {
	return []OrderRef{l.Get(exchange.SideSell), l.Get(exchange.SideBuy)}
}
