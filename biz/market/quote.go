package market

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"papertrade-hertz/biz/model"
)

// ErrPriceUnavailable 行情源未返回任何可用价格
var ErrPriceUnavailable = errors.New("price unavailable")

const DefaultQuoteEndpoint = "https://query2.finance.yahoo.com"

// 按顺序尝试的报价字段
var quotePaths = []string{
	"chart.result.0.meta.regularMarketPrice",
	"chart.result.0.meta.previousClose",
	"chart.result.0.meta.chartPreviousClose",
}

// Period 图表区间
type Period string

const (
	PeriodDay   Period = "1d"
	PeriodWeek  Period = "1w"
	PeriodMonth Period = "1m"
)

type periodParams struct {
	rng      string
	interval string
}

var periods = map[Period]periodParams{
	PeriodDay:   {rng: "1d", interval: "5m"},
	PeriodWeek:  {rng: "5d", interval: "1h"},
	PeriodMonth: {rng: "1mo", interval: "1d"},
}

func ParsePeriod(s string) (Period, bool) {
	if s == "" {
		return PeriodDay, true
	}
	p := Period(s)
	_, ok := periods[p]
	return p, ok
}

// PricePoint 原始币种的历史收盘价
type PricePoint struct {
	Timestamp time.Time
	Price     decimal.Decimal
}

// YahooQuoteSource 基于 Yahoo chart v8 接口的行情源
type YahooQuoteSource struct {
	client    *http.Client
	endpoint  string
	timeout   time.Duration
	userAgent string
}

func NewYahooQuoteSource(client *http.Client, endpoint string, timeout time.Duration) *YahooQuoteSource {
	if client == nil {
		client = &http.Client{}
	}
	if endpoint == "" {
		endpoint = DefaultQuoteEndpoint
	}
	return &YahooQuoteSource{
		client:    client,
		endpoint:  strings.TrimRight(endpoint, "/"),
		timeout:   timeout,
		userAgent: "papertrade/1.0",
	}
}

// GetPrice 获取最新价，依次回退到昨收和最后一个有效收盘价。
// 返回的价格为行情源原始币种，可能为 0 或负数，由调用方判断。
func (y *YahooQuoteSource) GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	body, err := y.chart(ctx, symbol, "1d", "1m")
	if err != nil {
		return decimal.Zero, err
	}
	for _, path := range quotePaths {
		if v := gjson.GetBytes(body, path); v.Type == gjson.Number {
			return decimal.NewFromFloat(v.Float()), nil
		}
	}
	closes := gjson.GetBytes(body, "chart.result.0.indicators.quote.0.close").Array()
	for i := len(closes) - 1; i >= 0; i-- {
		if closes[i].Type == gjson.Number {
			return decimal.NewFromFloat(closes[i].Float()), nil
		}
	}
	return decimal.Zero, fmt.Errorf("%s: %w", symbol, ErrPriceUnavailable)
}

// History 获取区间内的收盘价序列，跳过空值
func (y *YahooQuoteSource) History(ctx context.Context, symbol string, period Period) ([]PricePoint, error) {
	params, ok := periods[period]
	if !ok {
		return nil, fmt.Errorf("unsupported period %q", period)
	}
	body, err := y.chart(ctx, symbol, params.rng, params.interval)
	if err != nil {
		return nil, err
	}
	timestamps := gjson.GetBytes(body, "chart.result.0.timestamp").Array()
	closes := gjson.GetBytes(body, "chart.result.0.indicators.quote.0.close").Array()
	points := make([]PricePoint, 0, len(timestamps))
	for i, ts := range timestamps {
		if i >= len(closes) || closes[i].Type != gjson.Number {
			continue
		}
		points = append(points, PricePoint{
			Timestamp: time.Unix(ts.Int(), 0),
			Price:     decimal.NewFromFloat(closes[i].Float()),
		})
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("%s: %w", symbol, ErrPriceUnavailable)
	}
	return points, nil
}

func (y *YahooQuoteSource) chart(ctx context.Context, symbol, rng, interval string) ([]byte, error) {
	if y.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, y.timeout)
		defer cancel()
	}
	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=%s&range=%s",
		y.endpoint, url.PathEscape(model.NormalizeSymbol(symbol)), interval, rng)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", y.userAgent)

	resp, err := y.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", symbol, ErrPriceUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: %w: yahoo http %d", symbol, ErrPriceUnavailable, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", symbol, ErrPriceUnavailable, err)
	}
	if !gjson.GetBytes(body, "chart.result.0").Exists() {
		return nil, fmt.Errorf("%s: %w: no result", symbol, ErrPriceUnavailable)
	}
	return body, nil
}
