package backtest

import (
	"time"

	"github.com/shopspring/decimal"
)

// Config 定义回放参数。
type Config struct {
	InitialBase  decimal.Decimal // 初始基础币
	InitialQuote decimal.Decimal // 初始计价币
	Step         time.Duration   // 每行快照对应的周期间隔，用于年化
}

func (c *Config) normalize() Config {
	cfg := *c
	if cfg.InitialBase.IsNegative() {
		cfg.InitialBase = decimal.Zero
	}
	if !cfg.InitialQuote.IsPositive() && !cfg.InitialBase.IsPositive() {
		cfg.InitialQuote = decimal.NewFromInt(1000)
	}
	if cfg.Step <= 0 {
		cfg.Step = 10 * time.Second
	}
	return cfg
}

// stepsPerYear 返回一年内的周期数。
func (c Config) stepsPerYear() float64 {
	return float64(365*24*time.Hour) / float64(c.Step)
}
