package position

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"makerbot/internal/exchange"
)

type fakeBalances struct {
	res exchange.BalancesResponse
	err error
}

func (f *fakeBalances) GetBalances(context.Context) (exchange.BalancesResponse, error) {
	return f.res, f.err
}

func TestManagerRefresh_ParsesAndLogs(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	gw := &fakeBalances{res: exchange.BalancesResponse{Balances: []exchange.Balance{
		{Currency: "usdt", Available: "1000.00", Frozen: "12.5", Total: "1012.5"},
		{Currency: "eth", Available: "3", Frozen: "0", Total: "3"},
		{Currency: "btc", Available: "0.0025", Frozen: "0", Total: "0.0025"},
	}}}

	snap, err := NewManager(gw, "BTC", "USDT", zap.New(core)).Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}
	if !snap.Base.Available.Equal(decimal.RequireFromString("0.0025")) {
		t.Errorf("unexpected base %+v", snap.Base)
	}
	if !snap.Quote.Frozen.Equal(decimal.RequireFromString("12.5")) || !snap.HasFrozen() {
		t.Errorf("unexpected quote %+v", snap.Quote)
	}
	if logs.Len() != 2 {
		t.Fatalf("expected one log line per currency, got %d", logs.Len())
	}
	if got := logs.All()[0].ContextMap()["currency"]; got != "btc" {
		t.Errorf("first line should describe btc, got %v", got)
	}
}

func TestManagerRefresh_MissingCurrencyIsZero(t *testing.T) {
	gw := &fakeBalances{res: exchange.BalancesResponse{Balances: []exchange.Balance{
		{Currency: "USDT", Available: "20", Frozen: "0", Total: "20"},
	}}}
	snap, err := NewManager(gw, "BTC", "USDT", nil).Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}
	if !snap.Base.Available.IsZero() || snap.HasFrozen() {
		t.Fatalf("missing currency must be zero, got %+v", snap)
	}
}

func TestManagerRefresh_Failures(t *testing.T) {
	cases := []struct {
		name string
		gw   *fakeBalances
		want string
	}{
		{"soft status", &fakeBalances{res: exchange.BalancesResponse{Result: exchange.Failed("api key invalid")}}, "api key invalid"},
		{"transport", &fakeBalances{err: &exchange.TransportError{Op: "get_balances", Err: errors.New("eof")}}, "eof"},
		{"unparseable", &fakeBalances{res: exchange.BalancesResponse{Balances: []exchange.Balance{{Currency: "btc", Available: "abc"}}}}, "解析"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewManager(tc.gw, "BTC", "USDT", nil).Refresh(context.Background())
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}

	_, err := NewManager(&fakeBalances{res: exchange.BalancesResponse{Result: exchange.Failed("x")}}, "BTC", "USDT", nil).Refresh(context.Background())
	var xe *exchange.ExchangeError
	if !errors.As(err, &xe) {
		t.Fatalf("soft status should unwrap to ExchangeError, got %v", err)
	}
}
