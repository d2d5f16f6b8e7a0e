package exchange

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaperGateway 是内存撮合的模拟交易所：下单冻结资金，撤单释放，
// 盘口穿过挂单价时按挂单价成交。
type PaperGateway struct {
	mu sync.Mutex

	base  string
	quote string

	ticker    Ticker
	hasTicker bool

	balances map[string]*paperBalance
	orders   map[string]*paperOrder
	seq      int64
}

type paperBalance struct {
	available decimal.Decimal
	frozen    decimal.Decimal
}

type paperOrder struct {
	Order
	symbol string
	seq    int64
}

// NewPaperGateway 创建带初始资金的模拟交易所。
func NewPaperGateway(baseCurrency, quoteCurrency string, initialBase, initialQuote decimal.Decimal) *PaperGateway {
	base := strings.ToUpper(baseCurrency)
	quote := strings.ToUpper(quoteCurrency)
	return &PaperGateway{
		base:  base,
		quote: quote,
		balances: map[string]*paperBalance{
			base:  {available: initialBase},
			quote: {available: initialQuote},
		},
		orders: make(map[string]*paperOrder),
	}
}

// SetTicker 更新盘口，并撮合被穿越的挂单。
func (p *PaperGateway) SetTicker(t Ticker) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.ticker = t
	p.hasTicker = true
	p.matchLocked()
}

// Holdings 返回基础币与计价币的总额（可用+冻结）。
func (p *PaperGateway) Holdings() (base, quote decimal.Decimal) {
	p.mu.Lock()
	defer p.mu.Unlock()

	b := p.balances[p.base]
	q := p.balances[p.quote]
	return b.available.Add(b.frozen), q.available.Add(q.frozen)
}

// GetTicker 返回当前盘口。
func (p *PaperGateway) GetTicker(ctx context.Context, _ string) (TickerResponse, error) {
	if err := ctx.Err(); err != nil {
		return TickerResponse{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.hasTicker {
		return TickerResponse{Result: Failed("暂无行情")}, nil
	}
	return TickerResponse{Ticker: p.ticker}, nil
}

// GetBalances 返回余额快照。
func (p *PaperGateway) GetBalances(ctx context.Context) (BalancesResponse, error) {
	if err := ctx.Err(); err != nil {
		return BalancesResponse{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]Balance, 0, len(p.balances))
	for _, currency := range []string{p.base, p.quote} {
		b := p.balances[currency]
		out = append(out, Balance{
			Currency:  strings.ToLower(currency),
			Available: b.available.String(),
			Frozen:    b.frozen.String(),
			Total:     b.available.Add(b.frozen).String(),
		})
	}
	return BalancesResponse{Balances: out}, nil
}

// GetOpenOrders 按状态列出订单，按下单先后排序。
func (p *PaperGateway) GetOpenOrders(ctx context.Context, symbol string, states []OrderState) (OrdersResponse, error) {
	if err := ctx.Err(); err != nil {
		return OrdersResponse{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	wanted := make(map[OrderState]struct{}, len(states))
	for _, s := range states {
		wanted[s] = struct{}{}
	}

	matched := make([]*paperOrder, 0, len(p.orders))
	for _, o := range p.orders {
		if symbol != "" && o.symbol != symbol {
			continue
		}
		if _, ok := wanted[o.State]; !ok {
			continue
		}
		matched = append(matched, o)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].seq < matched[j].seq })

	out := make([]Order, 0, len(matched))
	for _, o := range matched {
		out = append(out, o.Order)
	}
	return OrdersResponse{Orders: out}, nil
}

// CancelOrder 撤销挂单并释放冻结资金。
func (p *PaperGateway) CancelOrder(ctx context.Context, _ string, id string) (StatusResponse, error) {
	if err := ctx.Err(); err != nil {
		return StatusResponse{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	o, ok := p.orders[id]
	if !ok {
		return StatusResponse{Result: Failed(fmt.Sprintf("订单 %s 不存在", id))}, nil
	}
	if o.State != OrderSubmitted && o.State != OrderPartialFilled {
		return StatusResponse{Result: Failed(fmt.Sprintf("订单 %s 状态为 %s，无法撤销", id, o.State))}, nil
	}

	switch o.Side {
	case SideBuy:
		p.release(p.quote, o.Price.Mul(o.Size))
	case SideSell:
		p.release(p.base, o.Size)
	}
	o.State = OrderCanceled
	return StatusResponse{}, nil
}

// PlaceOrder 冻结资金并挂出限价单，若已穿越盘口则立即成交。
func (p *PaperGateway) PlaceOrder(ctx context.Context, req OrderRequest) (PlaceResponse, error) {
	if err := ctx.Err(); err != nil {
		return PlaceResponse{}, err
	}
	if req.Type != "" && req.Type != OrderTypeLimit {
		return PlaceResponse{Result: Failed(fmt.Sprintf("不支持的订单类型 %s", req.Type))}, nil
	}
	if !req.Price.IsPositive() || !req.Size.IsPositive() {
		return PlaceResponse{Result: Failed("价格与数量必须为正")}, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	switch req.Side {
	case SideBuy:
		if !p.freeze(p.quote, req.Price.Mul(req.Size)) {
			return PlaceResponse{Result: Failed(fmt.Sprintf("%s 可用余额不足", p.quote))}, nil
		}
	case SideSell:
		if !p.freeze(p.base, req.Size) {
			return PlaceResponse{Result: Failed(fmt.Sprintf("%s 可用余额不足", p.base))}, nil
		}
	default:
		return PlaceResponse{Result: Failed(fmt.Sprintf("非法的订单方向 %q", req.Side))}, nil
	}

	p.seq++
	o := &paperOrder{
		Order: Order{
			ID:    uuid.NewString(),
			Side:  req.Side,
			State: OrderSubmitted,
			Price: req.Price,
			Size:  req.Size,
		},
		symbol: req.Symbol,
		seq:    p.seq,
	}
	p.orders[o.ID] = o

	if p.hasTicker {
		p.matchLocked()
	}

	return PlaceResponse{OrderID: o.ID}, nil
}

func (p *PaperGateway) matchLocked() {
	for _, o := range p.orders {
		if o.State != OrderSubmitted {
			continue
		}
		switch o.Side {
		case SideBuy:
			if p.ticker.AskPrice.IsPositive() && p.ticker.AskPrice.LessThanOrEqual(o.Price) {
				cost := o.Price.Mul(o.Size)
				p.balances[p.quote].frozen = p.balances[p.quote].frozen.Sub(cost)
				p.balances[p.base].available = p.balances[p.base].available.Add(o.Size)
				o.State = OrderFilled
			}
		case SideSell:
			if p.ticker.BidPrice.IsPositive() && p.ticker.BidPrice.GreaterThanOrEqual(o.Price) {
				p.balances[p.base].frozen = p.balances[p.base].frozen.Sub(o.Size)
				p.balances[p.quote].available = p.balances[p.quote].available.Add(o.Price.Mul(o.Size))
				o.State = OrderFilled
			}
		}
	}
}

func (p *PaperGateway) freeze(currency string, amount decimal.Decimal) bool {
	b := p.balances[currency]
	if b.available.LessThan(amount) {
		return false
	}
	b.available = b.available.Sub(amount)
	b.frozen = b.frozen.Add(amount)
	return true
}

func (p *PaperGateway) release(currency string, amount decimal.Decimal) {
	b := p.balances[currency]
	b.frozen = b.frozen.Sub(amount)
	b.available = b.available.Add(amount)
}
