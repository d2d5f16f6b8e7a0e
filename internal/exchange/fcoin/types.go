package fcoin

import "encoding/json"

// envelope 为 FCoin 所有接口的通用应答格式。
type envelope struct {
	Status int             `json:"status"`
	Msg    string          `json:"msg"`
	Data   json.RawMessage `json:"data"`
}

// tickerData 中 ticker 数组布局为
// [最新价, 最新成交量, 买一价, 买一量, 卖一价, 卖一量, ...]。
type tickerData struct {
	Type   string    `json:"type"`
	Seq    int64     `json:"seq"`
	Ticker []float64 `json:"ticker"`
}

const (
	tickerBidPrice = 2
	tickerBidQty   = 3
	tickerAskPrice = 4
	tickerAskQty   = 5
)

type balanceItem struct {
	Currency  string `json:"currency"`
	Available string `json:"available"`
	Frozen    string `json:"frozen"`
	Balance   string `json:"balance"`
}

type orderItem struct {
	ID           string `json:"id"`
	Symbol       string `json:"symbol"`
	Type         string `json:"type"`
	Side         string `json:"side"`
	Price        string `json:"price"`
	Amount       string `json:"amount"`
	State        string `json:"state"`
	FilledAmount string `json:"filled_amount"`
	CreatedAt    int64  `json:"created_at"`
}
