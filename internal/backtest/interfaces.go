package backtest

import (
	"context"

	"makerbot/internal/exchange"
)

// SnapshotProvider 按时间顺序提供盘口快照。
type SnapshotProvider interface {
	Next(ctx context.Context) (exchange.Ticker, bool, error)
}
