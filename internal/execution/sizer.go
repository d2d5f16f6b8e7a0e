package execution

import (
	"github.com/shopspring/decimal"

	"makerbot/internal/config"
	"makerbot/internal/exchange"
	"makerbot/internal/position"
	"makerbot/internal/quote"
)

var two = decimal.NewFromInt(2)

// SizingRules 为下单数量规则。
type SizingRules struct {
	DustBase     decimal.Decimal
	MinQuote     decimal.Decimal
	ExchangeUnit decimal.Decimal
	SizeMargin   decimal.Decimal
	SizePlaces   int32
}

// RulesFromConfig 从策略配置构造规则。
func RulesFromConfig(cfg config.StrategyConfig) SizingRules {
	return SizingRules{
		DustBase:     cfg.DustBase,
		MinQuote:     cfg.MinQuote,
		ExchangeUnit: cfg.ExchangeUnit,
		SizeMargin:   cfg.SizeMargin,
		SizePlaces:   cfg.SizePrecision,
	}
}

// Sizer 将余额与报价换算为挂单数量。
type Sizer struct {
	rules SizingRules
}

// NewSizer 创建 Sizer。
func NewSizer(rules SizingRules) *Sizer {
	return &Sizer{rules: rules}
}

// SellSize 可用基础币超过粉尘阈值时，卖出 (可用 - 余量) 并向下取整。
func (s *Sizer) SellSize(availableBase decimal.Decimal) (decimal.Decimal, bool) {
	if !availableBase.GreaterThan(s.rules.DustBase) {
		return decimal.Zero, false
	}
	size := availableBase.Sub(s.rules.SizeMargin).RoundFloor(s.rules.SizePlaces)
	return size, size.IsPositive()
}

// BuyNotional 计算买单计价金额：
// min(可用计价币, floor((可用计价币 + 可用基础币 × 卖价) / 2), 交易单元)。
func (s *Sizer) BuyNotional(availableQuote, availableBase, sellPrice decimal.Decimal) decimal.Decimal {
	middle := availableQuote.Add(availableBase.Mul(sellPrice)).Div(two).Floor()
	return decimal.Min(availableQuote, middle, s.rules.ExchangeUnit)
}

// BuySize 可用计价币超过门槛时，买入 (金额 / 买价 - 余量) 并向下取整。
func (s *Sizer) BuySize(availableQuote, availableBase, buyPrice, sellPrice decimal.Decimal) (size, notional decimal.Decimal, ok bool) {
	if !availableQuote.GreaterThan(s.rules.MinQuote) || !buyPrice.IsPositive() {
		return decimal.Zero, decimal.Zero, false
	}
	notional = s.BuyNotional(availableQuote, availableBase, sellPrice)
	size = notional.Div(buyPrice).Sub(s.rules.SizeMargin).RoundFloor(s.rules.SizePlaces)
	return size, notional, size.IsPositive()
}

// Plan 基于余额快照与报价生成两侧挂单。
func (s *Sizer) Plan(snap position.Snapshot, q quote.Quote) Plan {
	var plan Plan

	if size, ok := s.SellSize(snap.Base.Available); ok {
		plan.Sell = &Leg{Side: exchange.SideSell, Price: q.SellPrice, Size: size}
	}

	if size, notional, ok := s.BuySize(snap.Quote.Available, snap.Base.Available, q.BuyPrice, q.SellPrice); ok {
		plan.Buy = &Leg{Side: exchange.SideBuy, Price: q.BuyPrice, Size: size}
		plan.Notional = notional
	}

	return plan
}
