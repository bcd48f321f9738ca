package market

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/singleflight"

	"papertrade-hertz/biz/model"
)

const (
	DefaultFXEndpoint = "https://open.er-api.com/v6/latest/USD"
	DefaultFXTTL      = 60 * time.Second
)

// Rate 一次汇率拉取结果
type Rate struct {
	Value     decimal.Decimal
	FetchedAt time.Time
}

// RateStore 跨实例共享的汇率存储
type RateStore interface {
	SaveRate(ctx context.Context, pair string, rate decimal.Decimal, fetchedAt time.Time) error
	LoadRate(ctx context.Context, pair string) (decimal.Decimal, time.Time, bool, error)
}

// Conversion 一次价格换算的结果，Rate 仅在发生换算时有效
type Conversion struct {
	Class  model.AssetClass
	Native decimal.Decimal
	Price  decimal.Decimal
	Rate   decimal.NullDecimal
}

func (c Conversion) Converted() bool {
	return c.Rate.Valid
}

// Convert 将原始币种价格换算为本币，非外币资产原样返回
func Convert(class model.AssetClass, native, rate decimal.Decimal) Conversion {
	if !class.NeedsConversion() {
		return Conversion{Class: class, Native: native, Price: native}
	}
	return Conversion{
		Class:  class,
		Native: native,
		Price:  native.Mul(rate),
		Rate:   decimal.NewNullDecimal(rate),
	}
}

type FXConfig struct {
	Endpoint    string
	Currency    string
	Timeout     time.Duration
	TTL         time.Duration
	DefaultRate decimal.Decimal
}

type FXOption func(*CurrencyNormalizer)

// WithRateStore 启用共享汇率存储
func WithRateStore(store RateStore) FXOption {
	return func(n *CurrencyNormalizer) {
		n.store = store
	}
}

func WithClock(now func() time.Time) FXOption {
	return func(n *CurrencyNormalizer) {
		n.now = now
	}
}

// CurrencyNormalizer 缓存 USD 对本币汇率，过期后最多一个请求去刷新
type CurrencyNormalizer struct {
	client   *http.Client
	endpoint string
	currency string
	timeout  time.Duration
	ttl      time.Duration
	fallback decimal.Decimal
	store    RateStore
	now      func() time.Time

	mu     sync.RWMutex
	cached Rate
	group  singleflight.Group
}

func NewCurrencyNormalizer(client *http.Client, cfg FXConfig, opts ...FXOption) *CurrencyNormalizer {
	if client == nil {
		client = &http.Client{}
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultFXEndpoint
	}
	if cfg.Currency == "" {
		cfg.Currency = "INR"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultFXTTL
	}
	n := &CurrencyNormalizer{
		client:   client,
		endpoint: cfg.Endpoint,
		currency: cfg.Currency,
		timeout:  cfg.Timeout,
		ttl:      cfg.TTL,
		fallback: cfg.DefaultRate,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

func (n *CurrencyNormalizer) pair() string {
	return "USD" + n.currency
}

// Seed 直接写入缓存，FetchedAt 决定其是否新鲜
func (n *CurrencyNormalizer) Seed(rate Rate) {
	n.mu.Lock()
	n.cached = rate
	n.mu.Unlock()
}

// Cached 返回当前缓存的汇率
func (n *CurrencyNormalizer) Cached() Rate {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.cached
}

// Warm 启动时从共享存储载入最近一次汇率
func (n *CurrencyNormalizer) Warm(ctx context.Context) {
	if n.store == nil {
		return
	}
	rate, fetchedAt, ok, err := n.store.LoadRate(ctx, n.pair())
	if err != nil {
		hlog.Warnf("[FX] 读取共享汇率失败: %v", err)
		return
	}
	if ok && rate.IsPositive() {
		n.Seed(Rate{Value: rate, FetchedAt: fetchedAt})
		hlog.Infof("[FX] 载入共享汇率 %s=%s, fetched_at=%s", n.pair(), rate, fetchedAt.Format(time.RFC3339))
	}
}

func (n *CurrencyNormalizer) fresh(r Rate) bool {
	return !r.FetchedAt.IsZero() && n.now().Sub(r.FetchedAt) < n.ttl
}

// RateForForeign 返回 1 USD 兑本币的汇率。
// 刷新失败时返回最后一次成功的汇率，从未成功过则返回默认汇率，不会返回错误。
func (n *CurrencyNormalizer) RateForForeign(ctx context.Context) decimal.Decimal {
	if r := n.Cached(); n.fresh(r) {
		return r.Value
	}
	v, _, _ := n.group.Do(n.pair(), func() (interface{}, error) {
		return n.refresh(ctx), nil
	})
	return v.(decimal.Decimal)
}

func (n *CurrencyNormalizer) refresh(ctx context.Context) decimal.Decimal {
	if r := n.Cached(); n.fresh(r) {
		return r.Value
	}
	// 共享拉取不受单个调用方取消影响
	ctx = context.WithoutCancel(ctx)
	if n.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}

	if n.store != nil {
		rate, fetchedAt, ok, err := n.store.LoadRate(ctx, n.pair())
		if err == nil && ok && rate.IsPositive() {
			if r := (Rate{Value: rate, FetchedAt: fetchedAt}); n.fresh(r) {
				n.Seed(r)
				return rate
			}
		}
	}

	rate, err := n.fetch(ctx)
	if err != nil {
		last := n.Cached()
		if last.Value.IsPositive() {
			hlog.Warnf("[FX] 汇率刷新失败, 使用上次汇率 %s: %v", last.Value, err)
			return last.Value
		}
		hlog.Warnf("[FX] 汇率刷新失败, 使用默认汇率 %s: %v", n.fallback, err)
		return n.fallback
	}
	now := n.now()
	n.Seed(Rate{Value: rate, FetchedAt: now})
	if n.store != nil {
		if err := n.store.SaveRate(ctx, n.pair(), rate, now); err != nil {
			hlog.Warnf("[FX] 写入共享汇率失败: %v", err)
		}
	}
	hlog.Debugf("[FX] 汇率已刷新 %s=%s", n.pair(), rate)
	return rate
}

func (n *CurrencyNormalizer) fetch(ctx context.Context) (decimal.Decimal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.endpoint, nil)
	if err != nil {
		return decimal.Zero, err
	}
	resp, err := n.client.Do(req)
	if err != nil {
		return decimal.Zero, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("fx http %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return decimal.Zero, err
	}
	if result := gjson.GetBytes(body, "result").String(); result != "success" {
		return decimal.Zero, fmt.Errorf("fx result %q", result)
	}
	v := gjson.GetBytes(body, "rates."+n.currency)
	if v.Type != gjson.Number || v.Float() <= 0 {
		return decimal.Zero, fmt.Errorf("fx response has no %s rate", n.currency)
	}
	return decimal.NewFromFloat(v.Float()), nil
}

// ToBase 按资产类别换算原始价格，仅外币资产会读取汇率
func (n *CurrencyNormalizer) ToBase(ctx context.Context, symbol string, native decimal.Decimal) Conversion {
	class := model.Classify(symbol)
	if !class.NeedsConversion() {
		return Convert(class, native, decimal.Zero)
	}
	return Convert(class, native, n.RateForForeign(ctx))
}
