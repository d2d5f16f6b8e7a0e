package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

const (
	defaultConfigPath = "configs/config.yaml"
	envPrefix         = "maker"
)

// Load 读取配置文件并结合环境变量返回 Config。
func Load(path string) (*Config, error) {
	v := viper.New()

	if path == "" {
		path = defaultConfigPath
	}

	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix(envPrefix)
	replacer := strings.NewReplacer(".", "_")
	v.SetEnvKeyReplacer(replacer)
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("未找到配置文件 %q: %w", path, err)
		}
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	return decode(v)
}

// Default 返回仅由默认值构成的配置，供回放与测试使用。
func Default() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.environment", "development")

	v.SetDefault("exchange.driver", DriverPaper)
	v.SetDefault("exchange.name", "binance")
	v.SetDefault("exchange.market", "BTC/USDT")
	v.SetDefault("exchange.base_currency", "BTC")
	v.SetDefault("exchange.quote_currency", "USDT")
	v.SetDefault("exchange.base_url", "https://api.fcoin.com")
	v.SetDefault("exchange.api_key", "")
	v.SetDefault("exchange.api_secret", "")
	v.SetDefault("exchange.api_password", "")
	v.SetDefault("exchange.use_sandbox", false)
	v.SetDefault("exchange.call_timeout", "5s")
	v.SetDefault("exchange.retry.max_attempts", 1)
	v.SetDefault("exchange.retry.min_delay", "500ms")
	v.SetDefault("exchange.retry.max_delay", "5s")
	v.SetDefault("exchange.paper.initial_base", "0.01")
	v.SetDefault("exchange.paper.initial_quote", "1000")

	v.SetDefault("strategy.price_tick", "0.01")
	v.SetDefault("strategy.price_precision", 2)
	v.SetDefault("strategy.size_precision", 4)
	v.SetDefault("strategy.size_margin", "0.0001")
	v.SetDefault("strategy.dust_base", "0.001")
	v.SetDefault("strategy.min_quote", "10")
	v.SetDefault("strategy.exchange_unit", "500")
	v.SetDefault("strategy.gap_window", 20)
	v.SetDefault("strategy.gap_threshold", "2")

	v.SetDefault("scheduler.interval", "10s")
	v.SetDefault("scheduler.initial_delay", "10s")
	v.SetDefault("scheduler.overlap", OverlapSequential)
	v.SetDefault("scheduler.cancel_policy", CancelWait)
	v.SetDefault("scheduler.cancel_concurrency", 4)

	v.SetDefault("database.path", "data/makerbot.db")
	v.SetDefault("database.max_open_conns", 4)
	v.SetDefault("database.max_idle_conns", 4)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.in_memory", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.encoding", "console")
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.output_paths", []string{"stdout"})
	v.SetDefault("logging.error_output_paths", []string{"stderr"})
	v.SetDefault("logging.file.path", "logs/application.log")
	v.SetDefault("logging.file.max_size_mb", 10)
	v.SetDefault("logging.file.max_backups", 3)
	v.SetDefault("logging.file.max_age_days", 28)
	v.SetDefault("logging.file.compress", true)

	v.SetDefault("monitor.enabled", false)
	v.SetDefault("monitor.port", 9100)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
			stringToDecimalHookFunc(),
		)
	}
}

var decimalType = reflect.TypeOf(decimal.Decimal{})

// stringToDecimalHookFunc 将 yaml/env 中的数字或字符串转换为 decimal.Decimal。
func stringToDecimalHookFunc() mapstructure.DecodeHookFuncType {
	return func(_ reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
		if t != decimalType {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			s := strings.TrimSpace(v)
			if s == "" {
				return decimal.Zero, nil
			}
			d, err := decimal.NewFromString(s)
			if err != nil {
				return nil, fmt.Errorf("无法解析数值 %q: %w", v, err)
			}
			return d, nil
		case float64:
			return decimal.NewFromFloat(v), nil
		case float32:
			return decimal.NewFromFloat32(v), nil
		case int:
			return decimal.NewFromInt(int64(v)), nil
		case int64:
			return decimal.NewFromInt(v), nil
		case int32:
			return decimal.NewFromInt32(v), nil
		default:
			return data, nil
		}
	}
}
