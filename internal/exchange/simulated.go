package exchange

import (
	"context"

	"go.uber.org/zap"
)

type tickerSource interface {
	GetTicker(ctx context.Context, symbol string) (TickerResponse, error)
}

// SimulatedGateway 使用真实行情驱动 PaperGateway：行情来自 feed，
// 余额、挂单与成交全部在本地模拟。
type SimulatedGateway struct {
	*PaperGateway
	feed   tickerSource
	logger *zap.Logger
}

// NewSimulatedGateway 创建模拟盘网关。
func NewSimulatedGateway(paper *PaperGateway, feed tickerSource, logger *zap.Logger) *SimulatedGateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SimulatedGateway{PaperGateway: paper, feed: feed, logger: logger}
}

// GetTicker 拉取真实盘口并推进模拟撮合，行情失败原样返回。
func (s *SimulatedGateway) GetTicker(ctx context.Context, symbol string) (TickerResponse, error) {
	res, err := s.feed.GetTicker(ctx, symbol)
	if err != nil || !res.OK() {
		return res, err
	}

	s.PaperGateway.SetTicker(res.Ticker)
	base, quote := s.PaperGateway.Holdings()
	s.logger.Debug("模拟盘撮合完成",
		zap.Stringer("bid", res.Ticker.BidPrice),
		zap.Stringer("ask", res.Ticker.AskPrice),
		zap.Stringer("base_total", base),
		zap.Stringer("quote_total", quote),
	)
	return res, nil
}
