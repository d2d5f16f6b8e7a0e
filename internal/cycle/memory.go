package cycle

import (
	"github.com/shopspring/decimal"

	"makerbot/internal/execution"
	"makerbot/internal/position"
	"makerbot/internal/quote"
)

// Memory 为跨周期保留的状态：余额快照（供下一轮对比余额变化）、波动窗口、订单账本与上一轮买价。
// 只能在 Controller.RunCycle 内修改。
type Memory struct {
	Snapshot    position.Snapshot
	HasSnapshot bool
	Filter      *quote.GapFilter
	Ledger      *execution.Ledger
	LastPrice   decimal.Decimal
}

// NewMemory 创建空状态。
func NewMemory(gapWindow int) *Memory {
	return &Memory{
		Filter: quote.NewGapFilter(gapWindow),
		Ledger: &execution.Ledger{},
	}
}

// hasReference 判断是否已有上一轮买价可供计算价差。
func (m *Memory) hasReference() bool {
	return m.LastPrice.IsPositive()
}
