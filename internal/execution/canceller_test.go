package execution

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/multierr"

	"makerbot/internal/exchange"
)

type mockCancelGateway struct {
	mu        sync.Mutex
	orders    exchange.OrdersResponse
	listErr   error
	failIDs   map[string]bool
	cancelled []string
	gate      chan struct{}
	states    []exchange.OrderState
}

func (m *mockCancelGateway) GetOpenOrders(_ context.Context, _ string, states []exchange.OrderState) (exchange.OrdersResponse, error) {
	m.states = states
	return m.orders, m.listErr
}

func (m *mockCancelGateway) CancelOrder(_ context.Context, _ string, id string) (exchange.StatusResponse, error) {
	if m.gate != nil {
		<-m.gate
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelled = append(m.cancelled, id)
	if m.failIDs[id] {
		return exchange.StatusResponse{Result: exchange.Failed("order not found")}, nil
	}
	return exchange.StatusResponse{}, nil
}

func threeOrders() exchange.OrdersResponse {
	return exchange.OrdersResponse{Orders: []exchange.Order{
		{ID: "a", Side: exchange.SideBuy},
		{ID: "b", Side: exchange.SideSell},
		{ID: "c", Side: exchange.SideBuy},
	}}
}

func TestCancellerWait_IndependentCancels(t *testing.T) {
	gw := &mockCancelGateway{orders: threeOrders(), failIDs: map[string]bool{"b": true}}
	c := NewCanceller(gw, "BTC/USDT", CancelWait, 2, nil)

	var mu sync.Mutex
	results := map[string]error{}
	report, err := c.CancelStale(context.Background(), func(o exchange.Order, err error) {
		mu.Lock()
		results[o.ID] = err
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("CancelStale returned error: %v", err)
	}
	if report.Listed != 3 || report.Cancelled != 2 || report.Failed != 1 || report.Detached {
		t.Fatalf("unexpected report %+v", report)
	}
	if len(multierr.Errors(report.Err)) != 1 || !strings.Contains(report.Err.Error(), "order not found") {
		t.Fatalf("unexpected aggregated error %v", report.Err)
	}
	if len(gw.cancelled) != 3 {
		t.Fatalf("every order must be attempted, got %v", gw.cancelled)
	}
	seen := map[string]bool{}
	for _, id := range gw.cancelled {
		seen[id] = true
	}
	if !seen["a"] || !seen["b"] || !seen["c"] {
		t.Fatalf("each order must be cancelled exactly once, got %v", gw.cancelled)
	}
	if len(results) != 3 {
		t.Fatalf("expected one callback per order, got %v", results)
	}
	if results["b"] == nil || results["a"] != nil || results["c"] != nil {
		t.Fatalf("unexpected callbacks %v", results)
	}
	if exchange.JoinStates(gw.states) != "submitted,partial_filled" {
		t.Fatalf("unexpected state filter %v", gw.states)
	}
}

func TestCancellerDetach_ReturnsBeforeCancelsFinish(t *testing.T) {
	gw := &mockCancelGateway{orders: threeOrders(), gate: make(chan struct{})}
	c := NewCanceller(gw, "BTC/USDT", CancelDetach, 4, nil)

	ctx, cancel := context.WithCancel(context.Background())
	report, err := c.CancelStale(ctx, nil)
	cancel()
	if err != nil {
		t.Fatalf("CancelStale returned error: %v", err)
	}
	if !report.Detached || report.Listed != 3 {
		t.Fatalf("unexpected report %+v", report)
	}

	close(gw.gate)
	waited := make(chan struct{})
	go func() {
		c.Wait()
		close(waited)
	}()
	select {
	case <-waited:
	case <-time.After(2 * time.Second):
		t.Fatalf("detached batch did not finish")
	}

	gw.mu.Lock()
	defer gw.mu.Unlock()
	if len(gw.cancelled) != 3 {
		t.Fatalf("detached batch must survive the caller context, got %v", gw.cancelled)
	}
}

func TestCanceller_ListingFailureAborts(t *testing.T) {
	gw := &mockCancelGateway{orders: exchange.OrdersResponse{Result: exchange.Failed("forbidden")}}
	if _, err := NewCanceller(gw, "BTC/USDT", CancelWait, 1, nil).CancelStale(context.Background(), nil); err == nil {
		t.Fatalf("expected soft listing failure to abort")
	}

	gw = &mockCancelGateway{listErr: &exchange.TransportError{Op: "get_open_orders", Err: errors.New("reset")}}
	_, err := NewCanceller(gw, "BTC/USDT", CancelWait, 1, nil).CancelStale(context.Background(), nil)
	var te *exchange.TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if len(gw.cancelled) != 0 {
		t.Fatalf("no cancel may be issued after a listing failure")
	}
}

func TestCanceller_NothingToCancel(t *testing.T) {
	gw := &mockCancelGateway{}
	report, err := NewCanceller(gw, "BTC/USDT", "", 0, nil).CancelStale(context.Background(), nil)
	if err != nil || report.Listed != 0 {
		t.Fatalf("unexpected report %+v err=%v", report, err)
	}
}
