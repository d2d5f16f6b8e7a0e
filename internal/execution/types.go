package execution

import (
	"time"

	"github.com/shopspring/decimal"

	"makerbot/internal/exchange"
)

// Leg 为单侧挂单。
type Leg struct {
	Side  exchange.Side   `json:"side"`
	Price decimal.Decimal `json:"price"`
	Size  decimal.Decimal `json:"size"`
}

// Plan 描述本轮要挂的卖单与买单，nil 表示该侧不下单。
type Plan struct {
	Sell     *Leg            `json:"sell,omitempty"`
	Buy      *Leg            `json:"buy,omitempty"`
	Notional decimal.Decimal `json:"notional"`
}

// Empty 判断两侧是否都无需下单。
func (p Plan) Empty() bool {
	return p.Sell == nil && p.Buy == nil
}

// Outcome 为单侧下单结果。
type Outcome struct {
	Leg       Leg    `json:"leg"`
	Attempted bool   `json:"attempted"`
	OrderID   string `json:"order_id,omitempty"`
	Err       error  `json:"-"`
	Message   string `json:"message,omitempty"`
}

// Succeeded 判断是否下单成功。
func (o Outcome) Succeeded() bool {
	return o.Attempted && o.Err == nil
}

// Result 为执行结果摘要。
type Result struct {
	Sell          Outcome   `json:"sell"`
	Buy           Outcome   `json:"buy"`
	ExecutionTime time.Time `json:"execution_time"`
}
