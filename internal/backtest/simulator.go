package backtest

import (
	"github.com/shopspring/decimal"

	"makerbot/internal/exchange"
)

var two = decimal.NewFromInt(2)

type holdings interface {
	Holdings() (base, quote decimal.Decimal)
}

// Simulator 按盘口中间价对模拟账户估值，记录权益与收益序列。
type Simulator struct {
	account holdings

	equity        float64
	equityHistory []float64
	returnHistory []float64
}

// NewSimulator 创建估值器。
func NewSimulator(account holdings) *Simulator {
	return &Simulator{account: account}
}

// Mark 以 计价币 + 基础币 × 中间价 记录一次权益，中间价无效时跳过。
func (s *Simulator) Mark(t exchange.Ticker) {
	mid := t.BidPrice.Add(t.AskPrice).Div(two)
	if !mid.IsPositive() {
		return
	}

	base, quote := s.account.Holdings()
	equity := quote.Add(base.Mul(mid)).InexactFloat64()

	if n := len(s.equityHistory); n > 0 {
		prev := s.equityHistory[n-1]
		if prev != 0 {
			s.returnHistory = append(s.returnHistory, equity/prev-1)
		}
	}
	s.equity = equity
	s.equityHistory = append(s.equityHistory, equity)
}

func (s *Simulator) Equity() float64 {
	return s.equity
}

func (s *Simulator) EquityHistory() []float64 {
	return append([]float64(nil), s.equityHistory...)
}

func (s *Simulator) ReturnHistory() []float64 {
	return append([]float64(nil), s.returnHistory...)
}
