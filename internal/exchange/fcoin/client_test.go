package fcoin

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"makerbot/internal/config"
	"makerbot/internal/exchange"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient(config.ExchangeConfig{BaseURL: srv.URL, APIKey: "key", APISecret: "secret"}, nil)
	c.now = func() time.Time { return time.UnixMilli(1528000000000) }
	return c, srv
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func TestSymbol(t *testing.T) {
	if got := Symbol("BTC/USDT"); got != "btcusdt" {
		t.Fatalf("unexpected symbol %q", got)
	}
}

func TestSigner_Deterministic(t *testing.T) {
	s := NewSigner("key", "secret")
	a := s.Sign("post", "https://api.fcoin.com/v2/orders", 1, map[string]string{"side": "buy", "amount": "1"})
	b := s.Sign("POST", "https://api.fcoin.com/v2/orders", 1, map[string]string{"amount": "1", "side": "buy"})
	if a != b {
		t.Fatalf("signature must not depend on method case or map order")
	}
	if c := s.Sign("POST", "https://api.fcoin.com/v2/orders", 2, nil); c == a {
		t.Fatalf("timestamp must change the signature")
	}
	if got := encodeParams(map[string]string{"symbol": "btcusdt", "limit": "100", "states": "submitted,partial_filled"}); got != "limit=100&states=submitted,partial_filled&symbol=btcusdt" {
		t.Fatalf("unexpected param encoding %q", got)
	}
}

func TestClient_GetTickerParsesArrayLayout(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/market/ticker/btcusdt" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("FC-ACCESS-SIGNATURE") != "" {
			t.Errorf("market data must not be signed")
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status": 0,
			"data": map[string]interface{}{
				"type":   "ticker.btcusdt",
				"ticker": []float64{6500.5, 0.01, 6500.1, 1.2, 6500.9, 0.4, 6400, 6600, 6300, 100, 650000},
			},
		})
	})

	res, err := c.GetTicker(context.Background(), "BTC/USDT")
	if err != nil || !res.OK() {
		t.Fatalf("GetTicker: %+v %v", res, err)
	}
	want := exchange.Ticker{
		BidPrice: decimal.RequireFromString("6500.1"),
		BidQty:   decimal.RequireFromString("1.2"),
		AskPrice: decimal.RequireFromString("6500.9"),
		AskQty:   decimal.RequireFromString("0.4"),
	}
	if !res.Ticker.BidPrice.Equal(want.BidPrice) || !res.Ticker.BidQty.Equal(want.BidQty) ||
		!res.Ticker.AskPrice.Equal(want.AskPrice) || !res.Ticker.AskQty.Equal(want.AskQty) {
		t.Fatalf("unexpected ticker %+v", res.Ticker)
	}
}

func TestClient_SignedOrderListing(t *testing.T) {
	var gotSig, gotQuery string
	c, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotSig = r.Header.Get("FC-ACCESS-SIGNATURE")
		gotQuery = r.URL.RawQuery
		if r.Header.Get("FC-ACCESS-KEY") != "key" || r.Header.Get("FC-ACCESS-TIMESTAMP") != "1528000000000" {
			t.Errorf("missing auth headers: %v", r.Header)
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status": 0,
			"data": []map[string]interface{}{
				{"id": "o1", "side": "buy", "state": "submitted", "price": "6500.10", "amount": "0.0700"},
				{"id": "o2", "side": "sell", "state": "partial_filled", "price": "6500.90", "amount": "0.0100"},
			},
		})
	})

	res, err := c.GetOpenOrders(context.Background(), "BTC/USDT", exchange.RestingStates)
	if err != nil || !res.OK() {
		t.Fatalf("GetOpenOrders: %+v %v", res, err)
	}
	if len(res.Orders) != 2 || res.Orders[1].Side != exchange.SideSell || res.Orders[1].State != exchange.OrderPartialFilled {
		t.Fatalf("unexpected orders %+v", res.Orders)
	}

	wantQuery := "limit=100&states=submitted,partial_filled&symbol=btcusdt"
	if gotQuery != wantQuery {
		t.Fatalf("unexpected query %q", gotQuery)
	}
	wantSig := NewSigner("key", "secret").Sign(http.MethodGet, srv.URL+"/v2/orders?"+wantQuery, 1528000000000, nil)
	if gotSig != wantSig {
		t.Fatalf("signature mismatch: got %s want %s", gotSig, wantSig)
	}
}

func TestClient_PlaceOrderSuccessAndSoftFailure(t *testing.T) {
	fail := false
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var body map[string]string
		_ = json.Unmarshal(raw, &body)
		if body["type"] != "limit" || body["price"] != "6500.5" || body["amount"] != "0.0769" || body["symbol"] != "btcusdt" {
			t.Errorf("unexpected body %s", raw)
		}
		if fail {
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{"status": 1016, "msg": "account balance insufficient"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"status": 0, "data": "9cc2ea6a"})
	})

	req := exchange.OrderRequest{
		Symbol: "BTC/USDT",
		Side:   exchange.SideBuy,
		Type:   exchange.OrderTypeLimit,
		Price:  decimal.RequireFromString("6500.50"),
		Size:   decimal.RequireFromString("0.0769"),
	}
	res, err := c.PlaceOrder(context.Background(), req)
	if err != nil || res.OrderID != "9cc2ea6a" {
		t.Fatalf("PlaceOrder: %+v %v", res, err)
	}

	fail = true
	res, err = c.PlaceOrder(context.Background(), req)
	if err != nil {
		t.Fatalf("soft failure must not be a transport error: %v", err)
	}
	if res.Status != 1016 || res.Message != "account balance insufficient" {
		t.Fatalf("unexpected soft failure %+v", res)
	}
}

func TestClient_ServerErrorIsTransport(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	})

	if _, err := c.GetBalances(context.Background()); err == nil {
		t.Fatalf("expected transport error on 502")
	}
}

func TestClient_BalancesKeepStrings(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status": 0,
			"data": []map[string]string{
				{"currency": "btc", "available": "0.0025", "frozen": "0.0000", "balance": "0.0025"},
				{"currency": "usdt", "available": "1000.00", "frozen": "12.50", "balance": "1012.50"},
			},
		})
	})

	res, err := c.GetBalances(context.Background())
	if err != nil || !res.OK() || len(res.Balances) != 2 {
		t.Fatalf("GetBalances: %+v %v", res, err)
	}
	if res.Balances[1].Frozen != "12.50" || res.Balances[0].Currency != "btc" {
		t.Fatalf("unexpected balances %+v", res.Balances)
	}
}
