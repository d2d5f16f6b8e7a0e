package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
)

// Config 聚合了系统运行所需的全部配置项。
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Exchange  ExchangeConfig  `mapstructure:"exchange"`
	Strategy  StrategyConfig  `mapstructure:"strategy"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Monitor   MonitorConfig   `mapstructure:"monitor"`
}

// AppConfig 控制应用级参数。
type AppConfig struct {
	Environment string `mapstructure:"environment"`
}

// 支持的交易所驱动。
const (
	DriverPaper = "paper"
	DriverCCXT  = "ccxt"
	DriverFCoin = "fcoin"
)

// ExchangeConfig 描述交易所连接信息。
type ExchangeConfig struct {
	Driver        string        `mapstructure:"driver"`
	Name          string        `mapstructure:"name"`
	Market        string        `mapstructure:"market"`
	BaseCurrency  string        `mapstructure:"base_currency"`
	QuoteCurrency string        `mapstructure:"quote_currency"`
	BaseURL       string        `mapstructure:"base_url"`
	APIKey        string        `mapstructure:"api_key"`
	APISecret     string        `mapstructure:"api_secret"`
	APIPass       string        `mapstructure:"api_password"`
	UseSandbox    bool          `mapstructure:"use_sandbox"`
	CallTimeout   time.Duration `mapstructure:"call_timeout"`
	Retry         RetryConfig   `mapstructure:"retry"`
	Paper         PaperConfig   `mapstructure:"paper"`
}

// RetryConfig 控制传输层重试，max_attempts=1 表示不重试。
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	MinDelay    time.Duration `mapstructure:"min_delay"`
	MaxDelay    time.Duration `mapstructure:"max_delay"`
}

// PaperConfig 为模拟撮合的初始资金。
type PaperConfig struct {
	InitialBase  decimal.Decimal `mapstructure:"initial_base"`
	InitialQuote decimal.Decimal `mapstructure:"initial_quote"`
}

// StrategyConfig 报价与下单参数。
type StrategyConfig struct {
	PriceTick      decimal.Decimal `mapstructure:"price_tick"`
	PricePrecision int32           `mapstructure:"price_precision"`
	SizePrecision  int32           `mapstructure:"size_precision"`
	SizeMargin     decimal.Decimal `mapstructure:"size_margin"`
	DustBase       decimal.Decimal `mapstructure:"dust_base"`
	MinQuote       decimal.Decimal `mapstructure:"min_quote"`
	ExchangeUnit   decimal.Decimal `mapstructure:"exchange_unit"`
	GapWindow      int             `mapstructure:"gap_window"`
	GapThreshold   decimal.Decimal `mapstructure:"gap_threshold"`
}

// 调度重叠策略。
const (
	OverlapSequential = "sequential"
	OverlapSkip       = "skip"
	OverlapQueue      = "queue"
)

// 撤单批次策略。
const (
	CancelWait   = "wait"
	CancelDetach = "detach"
)

// SchedulerConfig 控制主循环节奏。
type SchedulerConfig struct {
	Interval          time.Duration `mapstructure:"interval"`
	InitialDelay      time.Duration `mapstructure:"initial_delay"`
	Overlap           string        `mapstructure:"overlap"`
	CancelPolicy      string        `mapstructure:"cancel_policy"`
	CancelConcurrency int           `mapstructure:"cancel_concurrency"`
}

// DatabaseConfig 管理数据库连接。
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	InMemory        bool          `mapstructure:"in_memory"`
}

// LoggingConfig 控制日志输出。
type LoggingConfig struct {
	Level            string        `mapstructure:"level"`
	Encoding         string        `mapstructure:"encoding"`
	Development      bool          `mapstructure:"development"`
	OutputPaths      []string      `mapstructure:"output_paths"`
	ErrorOutputPaths []string      `mapstructure:"error_output_paths"`
	File             LogFileConfig `mapstructure:"file"`
}

// LogFileConfig 描述滚动日志文件，Path 为空时不写文件。
type LogFileConfig struct {
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// MonitorConfig 控制监控接口。
type MonitorConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// Validate 对配置进行基本校验。
func (c *Config) Validate() error {
	var err error

	if c.App.Environment == "" {
		err = multierr.Append(err, errors.New("app.environment 不能为空"))
	}

	switch strings.ToLower(c.Exchange.Driver) {
	case DriverPaper:
	case DriverCCXT:
		if c.Exchange.Name == "" {
			err = multierr.Append(err, errors.New("ccxt 驱动需要配置 exchange.name"))
		}
	case DriverFCoin:
		if c.Exchange.BaseURL == "" {
			err = multierr.Append(err, errors.New("fcoin 驱动需要配置 exchange.base_url"))
		}
	default:
		err = multierr.Append(err, fmt.Errorf("exchange.driver 取值非法: %q", c.Exchange.Driver))
	}
	if c.Exchange.Market == "" {
		err = multierr.Append(err, errors.New("exchange.market 不能为空"))
	}
	if c.Exchange.BaseCurrency == "" || c.Exchange.QuoteCurrency == "" {
		err = multierr.Append(err, errors.New("exchange.base_currency 与 quote_currency 不能为空"))
	}
	if c.Exchange.CallTimeout <= 0 {
		err = multierr.Append(err, errors.New("exchange.call_timeout 必须大于0"))
	}
	if c.Exchange.Retry.MaxAttempts <= 0 {
		err = multierr.Append(err, errors.New("exchange.retry.max_attempts 必须大于0"))
	}
	if c.Exchange.Retry.MinDelay <= 0 || c.Exchange.Retry.MaxDelay <= 0 {
		err = multierr.Append(err, errors.New("exchange.retry.delay 必须为正"))
	}
	if c.Exchange.Retry.MinDelay > c.Exchange.Retry.MaxDelay {
		err = multierr.Append(err, errors.New("exchange.retry.min_delay 不能大于 max_delay"))
	}
	if c.Exchange.Paper.InitialBase.IsNegative() || c.Exchange.Paper.InitialQuote.IsNegative() {
		err = multierr.Append(err, errors.New("exchange.paper 初始资金不能为负"))
	}

	s := c.Strategy
	if !s.PriceTick.IsPositive() {
		err = multierr.Append(err, errors.New("strategy.price_tick 必须大于0"))
	}
	if s.PricePrecision < 0 || s.SizePrecision < 0 {
		err = multierr.Append(err, errors.New("strategy 精度不能为负"))
	}
	if s.SizeMargin.IsNegative() {
		err = multierr.Append(err, errors.New("strategy.size_margin 不能为负"))
	}
	if s.DustBase.IsNegative() || s.MinQuote.IsNegative() {
		err = multierr.Append(err, errors.New("strategy 下单门槛不能为负"))
	}
	if !s.ExchangeUnit.IsPositive() {
		err = multierr.Append(err, errors.New("strategy.exchange_unit 必须大于0"))
	}
	if s.GapWindow <= 0 {
		err = multierr.Append(err, errors.New("strategy.gap_window 必须大于0"))
	}
	if !s.GapThreshold.IsPositive() {
		err = multierr.Append(err, errors.New("strategy.gap_threshold 必须大于0"))
	}

	if c.Scheduler.Interval <= 0 {
		err = multierr.Append(err, errors.New("scheduler.interval 必须大于0"))
	}
	if c.Scheduler.InitialDelay < 0 {
		err = multierr.Append(err, errors.New("scheduler.initial_delay 不能为负"))
	}
	switch c.Scheduler.Overlap {
	case OverlapSequential, OverlapSkip, OverlapQueue:
	default:
		err = multierr.Append(err, fmt.Errorf("scheduler.overlap 取值非法: %q", c.Scheduler.Overlap))
	}
	switch c.Scheduler.CancelPolicy {
	case CancelWait, CancelDetach:
	default:
		err = multierr.Append(err, fmt.Errorf("scheduler.cancel_policy 取值非法: %q", c.Scheduler.CancelPolicy))
	}
	if c.Scheduler.CancelConcurrency <= 0 {
		err = multierr.Append(err, errors.New("scheduler.cancel_concurrency 必须大于0"))
	}

	if c.Database.Path == "" && !c.Database.InMemory {
		err = multierr.Append(err, errors.New("database.path 不能为空"))
	}
	if c.Database.MaxOpenConns <= 0 {
		err = multierr.Append(err, errors.New("database.max_open_conns 必须大于0"))
	}
	if c.Database.MaxIdleConns < 0 {
		err = multierr.Append(err, errors.New("database.max_idle_conns 不能为负"))
	}
	if c.Database.ConnMaxLifetime < 0 {
		err = multierr.Append(err, errors.New("database.conn_max_lifetime 不能为负"))
	}

	if c.Logging.Level == "" {
		err = multierr.Append(err, errors.New("logging.level 不能为空"))
	}
	if c.Logging.Encoding == "" {
		err = multierr.Append(err, errors.New("logging.encoding 不能为空"))
	}
	if len(c.Logging.OutputPaths) == 0 {
		err = multierr.Append(err, errors.New("logging.output_paths 至少包含一个输出目标"))
	}
	if len(c.Logging.ErrorOutputPaths) == 0 {
		err = multierr.Append(err, errors.New("logging.error_output_paths 至少包含一个输出目标"))
	}

	if c.Monitor.Enabled && (c.Monitor.Port <= 0 || c.Monitor.Port > 65535) {
		err = multierr.Append(err, errors.New("monitor.port 必须位于(0,65535]"))
	}

	if err != nil {
		return fmt.Errorf("配置校验失败: %w", err)
	}

	return nil
}
