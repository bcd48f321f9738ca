package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/kr/pretty"
	"github.com/shopspring/decimal"
	"gopkg.in/validator.v2"
	"gopkg.in/yaml.v2"
)

var (
	conf *Config
	once sync.Once
)

type Config struct {
	Env      string
	Hertz    Hertz    `yaml:"hertz"`
	Postgres Postgres `yaml:"postgres"`
	Redis    Redis    `yaml:"redis"`
	Kafka    Kafka    `yaml:"kafka"`
	Registry Registry `yaml:"registry"`
	Trading  Trading  `yaml:"trading"`
}

type Postgres struct {
	// Driver 部署环境为 postgres，本地运行和测试为 sqlite
	Driver string `yaml:"driver" validate:"nonzero,regexp=^(postgres|sqlite)$"`
	DSN    string `yaml:"dsn" validate:"nonzero"`
}

// Redis 可选，地址为空时不启用共享汇率
type Redis struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	Username string `yaml:"username"`
	DB       int    `yaml:"db"`
}

// Kafka 可选，未配置 brokers 时不发布成交事件
type Kafka struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type Registry struct {
	RegistryAddress []string `yaml:"registry_address"`
	Username        string   `yaml:"username"`
	Password        string   `yaml:"password"`
	NodeID          string   `yaml:"node_id"`
}

type Hertz struct {
	Service         string `yaml:"service" validate:"nonzero"`
	Address         string `yaml:"address" validate:"nonzero"`
	EnablePprof     bool   `yaml:"enable_pprof"`
	EnableGzip      bool   `yaml:"enable_gzip"`
	EnableAccessLog bool   `yaml:"enable_access_log"`
	LogLevel        string `yaml:"log_level"`
	LogFileName     string `yaml:"log_file_name"`
	LogMaxSize      int    `yaml:"log_max_size"`
	LogMaxBackups   int    `yaml:"log_max_backups"`
	LogMaxAge       int    `yaml:"log_max_age"`
}

type Trading struct {
	StartingCash     string   `yaml:"starting_cash" validate:"nonzero"`
	FeeRate          string   `yaml:"fee_rate" validate:"nonzero"`
	DomesticTimezone string   `yaml:"domestic_timezone" validate:"nonzero"`
	DomesticOpen     string   `yaml:"domestic_open" validate:"regexp=^[0-2][0-9]:[0-5][0-9]$"`
	DomesticClose    string   `yaml:"domestic_close" validate:"regexp=^[0-2][0-9]:[0-5][0-9]$"`
	Holidays         []string `yaml:"holidays"`
	QuoteEndpoint    string   `yaml:"quote_endpoint" validate:"nonzero"`
	QuoteTimeoutMS   int      `yaml:"quote_timeout_ms" validate:"min=1"`
	FXEndpoint       string   `yaml:"fx_endpoint" validate:"nonzero"`
	FXCurrency       string   `yaml:"fx_currency" validate:"nonzero"`
	FXTimeoutMS      int      `yaml:"fx_timeout_ms" validate:"min=1"`
	FXTTLSeconds     int      `yaml:"fx_ttl_seconds" validate:"min=1"`
	FXDefaultRate    string   `yaml:"fx_default_rate" validate:"nonzero"`
	LookupPoolSize   int      `yaml:"lookup_pool_size" validate:"min=1"`
}

func (t Trading) QuoteTimeout() time.Duration {
	return time.Duration(t.QuoteTimeoutMS) * time.Millisecond
}

func (t Trading) FXTimeout() time.Duration {
	return time.Duration(t.FXTimeoutMS) * time.Millisecond
}

func (t Trading) FXTTL() time.Duration {
	return time.Duration(t.FXTTLSeconds) * time.Second
}

// Decimals 解析金额类配置，Load 时已校验
func (t Trading) Decimals() (startingCash, feeRate, fxDefault decimal.Decimal) {
	return decimal.RequireFromString(t.StartingCash),
		decimal.RequireFromString(t.FeeRate),
		decimal.RequireFromString(t.FXDefaultRate)
}

// GetConf gets configuration instance
func GetConf() *Config {
	once.Do(initConf)
	return conf
}

func initConf() {
	prefix := "conf"
	confFileRelPath := filepath.Join(prefix, filepath.Join(GetEnv(), "conf.yaml"))
	c, err := Load(confFileRelPath)
	if err != nil {
		hlog.Errorf("load config error - %v", err)
		panic(err)
	}
	c.Env = GetEnv()
	conf = c

	pretty.Printf("%+v\n", conf)
}

// Load 读取、解析并校验 conf.yaml
func Load(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := new(Config)
	if err := yaml.Unmarshal(content, c); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if err := validator.Validate(c); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	for name, v := range map[string]string{
		"starting_cash":   c.Trading.StartingCash,
		"fee_rate":        c.Trading.FeeRate,
		"fx_default_rate": c.Trading.FXDefaultRate,
	} {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return nil, fmt.Errorf("trading.%s: %w", name, err)
		}
		if d.IsNegative() {
			return nil, fmt.Errorf("trading.%s must not be negative", name)
		}
	}
	return c, nil
}

func GetEnv() string {
	e := os.Getenv("GO_ENV")
	if len(e) == 0 {
		return "test"
	}
	return e
}

func LogLevel() hlog.Level {
	level := GetConf().Hertz.LogLevel
	switch level {
	case "trace":
		return hlog.LevelTrace
	case "debug":
		return hlog.LevelDebug
	case "info":
		return hlog.LevelInfo
	case "notice":
		return hlog.LevelNotice
	case "warn":
		return hlog.LevelWarn
	case "error":
		return hlog.LevelError
	case "fatal":
		return hlog.LevelFatal
	default:
		return hlog.LevelInfo
	}
}
