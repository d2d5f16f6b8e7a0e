package quote

import (
	"github.com/shopspring/decimal"

	"makerbot/internal/exchange"
)

// Quote 为本轮买卖挂单价格。
type Quote struct {
	BuyPrice  decimal.Decimal
	SellPrice decimal.Decimal
	Crossed   bool
}

// Resolver 从盘口最优档推导挂单价。
type Resolver struct {
	tick   decimal.Decimal
	places int32
}

// NewResolver 创建报价器，tick 为价格步长，places 为价格小数位。
func NewResolver(tick decimal.Decimal, places int32) *Resolver {
	return &Resolver{tick: tick, places: places}
}

// Resolve 计算挂单价：买价 = 买一 + tick，卖价 = 卖一 - tick。
//
// 两价交叉时向挂单量较少的一侧靠拢：卖一量小于买一量取买价，否则（含相等）取卖价。
// 未交叉时两侧都取两个调整后价格的中点，此时 tick 调整被抵消；
// 两个分支并不对称，保持现状。
func (r *Resolver) Resolve(t exchange.Ticker) Quote {
	buy := t.BidPrice.Add(r.tick).Round(r.places)
	sell := t.AskPrice.Sub(r.tick).Round(r.places)

	if sell.LessThan(buy) {
		if t.AskQty.LessThan(t.BidQty) {
			return Quote{BuyPrice: buy, SellPrice: buy, Crossed: true}
		}
		return Quote{BuyPrice: sell, SellPrice: sell, Crossed: true}
	}

	mid := buy.Add(sell).Div(decimal.NewFromInt(2)).Round(r.places)
	return Quote{BuyPrice: mid, SellPrice: mid}
}
