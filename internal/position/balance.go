package position

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"makerbot/internal/exchange"
)

type balanceGateway interface {
	GetBalances(ctx context.Context) (exchange.BalancesResponse, error)
}

// CurrencyBalance 为单币种余额。
type CurrencyBalance struct {
	Currency  string          `json:"currency"`
	Available decimal.Decimal `json:"available"`
	Frozen    decimal.Decimal `json:"frozen"`
	Total     decimal.Decimal `json:"total"`
}

// Snapshot 为一次刷新得到的基础币与计价币余额，整体替换，不与上一轮合并。
type Snapshot struct {
	Base        CurrencyBalance `json:"base"`
	Quote       CurrencyBalance `json:"quote"`
	RefreshedAt time.Time       `json:"refreshed_at"`
}

// HasFrozen 判断是否存在冻结资金（即可能有未成交挂单）。
func (s Snapshot) HasFrozen() bool {
	return !s.Base.Frozen.IsZero() || !s.Quote.Frozen.IsZero()
}

// Manager 负责刷新账户余额。
type Manager struct {
	gw     balanceGateway
	base   string
	quote  string
	logger *zap.Logger
	now    func() time.Time
}

// NewManager 创建余额管理器。
func NewManager(gw balanceGateway, baseCurrency, quoteCurrency string, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		gw:     gw,
		base:   baseCurrency,
		quote:  quoteCurrency,
		logger: logger,
		now:    time.Now,
	}
}

// Refresh 拉取并解析余额。任一币种解析失败时整体失败，调用方保留旧快照。
// 应答中缺失的币种视为全零。
func (m *Manager) Refresh(ctx context.Context) (Snapshot, error) {
	res, err := m.gw.GetBalances(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("position: 获取余额失败: %w", err)
	}
	if err := res.Err("get_balances"); err != nil {
		return Snapshot{}, fmt.Errorf("position: 获取余额失败: %w", err)
	}

	base, err := pick(res.Balances, m.base)
	if err != nil {
		return Snapshot{}, err
	}
	quote, err := pick(res.Balances, m.quote)
	if err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{Base: base, Quote: quote, RefreshedAt: m.now().UTC()}
	for _, b := range []CurrencyBalance{snap.Base, snap.Quote} {
		m.logger.Info("账户余额",
			zap.String("currency", strings.ToLower(b.Currency)),
			zap.Stringer("available", b.Available),
			zap.Stringer("frozen", b.Frozen),
			zap.Stringer("total", b.Total),
		)
	}

	return snap, nil
}

func pick(balances []exchange.Balance, currency string) (CurrencyBalance, error) {
	out := CurrencyBalance{
		Currency:  strings.ToUpper(currency),
		Available: decimal.Zero,
		Frozen:    decimal.Zero,
		Total:     decimal.Zero,
	}
	for _, b := range balances {
		if !strings.EqualFold(b.Currency, currency) {
			continue
		}
		var err error
		if out.Available, err = parseAmount(b.Available); err != nil {
			return CurrencyBalance{}, fmt.Errorf("position: 解析 %s 可用余额失败: %w", currency, err)
		}
		if out.Frozen, err = parseAmount(b.Frozen); err != nil {
			return CurrencyBalance{}, fmt.Errorf("position: 解析 %s 冻结余额失败: %w", currency, err)
		}
		if out.Total, err = parseAmount(b.Total); err != nil {
			return CurrencyBalance{}, fmt.Errorf("position: 解析 %s 总额失败: %w", currency, err)
		}
		break
	}
	return out, nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}
