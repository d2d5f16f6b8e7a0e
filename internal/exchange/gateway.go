package exchange

import (
	"context"
	"time"
)

// Gateway 为交易所能力契约。应答中的 Status 表示业务成败，
// 返回的 error 仅用于传输层失败。
type Gateway interface {
	GetTicker(ctx context.Context, symbol string) (TickerResponse, error)
	GetBalances(ctx context.Context) (BalancesResponse, error)
	GetOpenOrders(ctx context.Context, symbol string, states []OrderState) (OrdersResponse, error)
	CancelOrder(ctx context.Context, symbol, id string) (StatusResponse, error)
	PlaceOrder(ctx context.Context, req OrderRequest) (PlaceResponse, error)
}

// WithTimeout 为每次调用附加独立的超时，超时以 *TransportError 返回。
// 底层实现即使忽略 ctx 也不会拖住调用方。
func WithTimeout(gw Gateway, timeout time.Duration) Gateway {
	if timeout <= 0 {
		return gw
	}
	return &timeoutGateway{next: gw, timeout: timeout}
}

type timeoutGateway struct {
	next    Gateway
	timeout time.Duration
}

func (g *timeoutGateway) GetTicker(ctx context.Context, symbol string) (TickerResponse, error) {
	return bounded(ctx, g.timeout, "get_ticker", func(c context.Context) (TickerResponse, error) {
		return g.next.GetTicker(c, symbol)
	})
}

func (g *timeoutGateway) GetBalances(ctx context.Context) (BalancesResponse, error) {
	return bounded(ctx, g.timeout, "get_balances", g.next.GetBalances)
}

func (g *timeoutGateway) GetOpenOrders(ctx context.Context, symbol string, states []OrderState) (OrdersResponse, error) {
	return bounded(ctx, g.timeout, "get_open_orders", func(c context.Context) (OrdersResponse, error) {
		return g.next.GetOpenOrders(c, symbol, states)
	})
}

func (g *timeoutGateway) CancelOrder(ctx context.Context, symbol, id string) (StatusResponse, error) {
	return bounded(ctx, g.timeout, "cancel_order", func(c context.Context) (StatusResponse, error) {
		return g.next.CancelOrder(c, symbol, id)
	})
}

func (g *timeoutGateway) PlaceOrder(ctx context.Context, req OrderRequest) (PlaceResponse, error) {
	return bounded(ctx, g.timeout, "place_order", func(c context.Context) (PlaceResponse, error) {
		return g.next.PlaceOrder(c, req)
	})
}

func bounded[T any](ctx context.Context, timeout time.Duration, op string, fn func(context.Context) (T, error)) (T, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		value T
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		v, err := fn(callCtx)
		done <- outcome{value: v, err: err}
	}()

	select {
	case out := <-done:
		return out.value, wrapTransport(op, out.err)
	case <-callCtx.Done():
		var zero T
		return zero, &TransportError{Op: op, Err: callCtx.Err()}
	}
}
