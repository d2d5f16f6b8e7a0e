package execution

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"makerbot/internal/exchange"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type mockOrderGateway struct {
	calls   []exchange.OrderRequest
	replies map[exchange.Side]exchange.PlaceResponse
	errs    map[exchange.Side]error
}

func (m *mockOrderGateway) PlaceOrder(_ context.Context, req exchange.OrderRequest) (exchange.PlaceResponse, error) {
	m.calls = append(m.calls, req)
	if err := m.errs[req.Side]; err != nil {
		return exchange.PlaceResponse{}, err
	}
	return m.replies[req.Side], nil
}

func TestExecutorExecute_SellBeforeBuy(t *testing.T) {
	gw := &mockOrderGateway{replies: map[exchange.Side]exchange.PlaceResponse{
		exchange.SideSell: {OrderID: "s-1"},
		exchange.SideBuy:  {OrderID: "b-1"},
	}}
	ledger := &Ledger{}
	plan := Plan{
		Sell: &Leg{Side: exchange.SideSell, Price: dec("100.5"), Size: dec("0.0024")},
		Buy:  &Leg{Side: exchange.SideBuy, Price: dec("100.5"), Size: dec("4.9750")},
	}

	result := NewExecutor(gw, "BTC/USDT", nil).Execute(context.Background(), plan, ledger)

	if len(gw.calls) != 2 || gw.calls[0].Side != exchange.SideSell || gw.calls[1].Side != exchange.SideBuy {
		t.Fatalf("unexpected call order %+v", gw.calls)
	}
	if gw.calls[0].Type != exchange.OrderTypeLimit || gw.calls[0].Symbol != "BTC/USDT" {
		t.Fatalf("unexpected request %+v", gw.calls[0])
	}
	if !result.Sell.Succeeded() || !result.Buy.Succeeded() {
		t.Fatalf("expected both sides to succeed: %+v", result)
	}
	if ledger.Get(exchange.SideSell).ID != "s-1" || ledger.Get(exchange.SideBuy).ID != "b-1" {
		t.Fatalf("ledger not updated: %+v", ledger.Snapshot())
	}
}

func TestExecutorExecute_FailureClearsOnlyThatSide(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	gw := &mockOrderGateway{
		replies: map[exchange.Side]exchange.PlaceResponse{
			exchange.SideSell: {Result: exchange.Failed("balance insufficient")},
			exchange.SideBuy:  {OrderID: "b-2"},
		},
	}
	ledger := &Ledger{}
	ledger.Set(exchange.SideSell, "old-sell")
	ledger.Set(exchange.SideBuy, "old-buy")

	plan := Plan{
		Sell: &Leg{Side: exchange.SideSell, Price: dec("100"), Size: dec("1")},
		Buy:  &Leg{Side: exchange.SideBuy, Price: dec("100"), Size: dec("1")},
	}
	result := NewExecutor(gw, "BTC/USDT", zap.New(core)).Execute(context.Background(), plan, ledger)

	if result.Sell.Succeeded() || !result.Buy.Succeeded() {
		t.Fatalf("unexpected outcome %+v", result)
	}
	var xe *exchange.ExchangeError
	if !errors.As(result.Sell.Err, &xe) || xe.Message != "balance insufficient" {
		t.Fatalf("expected ExchangeError, got %v", result.Sell.Err)
	}
	if ledger.Get(exchange.SideSell).ID != "" || ledger.Get(exchange.SideBuy).ID != "b-2" {
		t.Fatalf("unexpected ledger %+v", ledger.Snapshot())
	}
	if logs.FilterMessage("创建订单失败").Len() != 1 {
		t.Fatalf("expected one warning, got %d", logs.Len())
	}
}

func TestExecutorExecute_TransportFailureTreatedAlike(t *testing.T) {
	gw := &mockOrderGateway{
		errs:    map[exchange.Side]error{exchange.SideBuy: &exchange.TransportError{Op: "place_order", Err: context.DeadlineExceeded}},
		replies: map[exchange.Side]exchange.PlaceResponse{},
	}
	ledger := &Ledger{}
	ledger.Set(exchange.SideBuy, "old-buy")
	ledger.Set(exchange.SideSell, "old-sell")

	result := NewExecutor(gw, "BTC/USDT", nil).Execute(context.Background(), Plan{
		Buy: &Leg{Side: exchange.SideBuy, Price: dec("100"), Size: dec("1")},
	}, ledger)

	if result.Sell.Attempted {
		t.Fatalf("sell side must not be attempted")
	}
	if result.Buy.Err == nil || ledger.Get(exchange.SideBuy).ID != "" {
		t.Fatalf("buy failure must clear the slot: %+v", ledger.Snapshot())
	}
	if ledger.Get(exchange.SideSell).ID != "old-sell" {
		t.Fatalf("untouched side must keep its id, got %+v", ledger.Snapshot())
	}
}
