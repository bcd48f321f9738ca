package market

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/cloudwego/hertz/pkg/common/test/assert"
	"github.com/jarcoal/httpmock"
	"github.com/shopspring/decimal"
)

const testQuoteEndpoint = "https://quotes.test"

func newMockQuoteSource() (*YahooQuoteSource, *httpmock.MockTransport) {
	mt := httpmock.NewMockTransport()
	src := NewYahooQuoteSource(&http.Client{Transport: mt}, testQuoteEndpoint, time.Second)
	return src, mt
}

func TestGetPriceRegularMarketPrice(t *testing.T) {
	src, mt := newMockQuoteSource()
	mt.RegisterResponder(http.MethodGet, testQuoteEndpoint+"/v8/finance/chart/RELIANCE.NS",
		httpmock.NewStringResponder(200, `{"chart":{"result":[{"meta":{"regularMarketPrice":3500,"previousClose":3400}}],"error":null}}`))

	price, err := src.GetPrice(context.Background(), "reliance.ns")
	assert.Nil(t, err)
	assert.Assert(t, price.Equal(decimal.NewFromInt(3500)), price.String())
	assert.DeepEqual(t, 1, mt.GetTotalCallCount())
}

func TestGetPriceFallbackChain(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"previous close", `{"chart":{"result":[{"meta":{"previousClose":182.5}}]}}`, "182.5"},
		{"chart previous close", `{"chart":{"result":[{"meta":{"chartPreviousClose":181.25}}]}}`, "181.25"},
		{"last non-null close", `{"chart":{"result":[{"meta":{},"indicators":{"quote":[{"close":[10.5,11.25,null]}]}}]}}`, "11.25"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			src, mt := newMockQuoteSource()
			mt.RegisterResponder(http.MethodGet, `=~^https://quotes\.test/v8/finance/chart/AAPL`,
				httpmock.NewStringResponder(200, tc.body))
			price, err := src.GetPrice(context.Background(), "AAPL")
			assert.Nil(t, err)
			assert.Assert(t, price.Equal(decimal.RequireFromString(tc.want)), price.String())
		})
	}
}

func TestGetPriceUnavailable(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
	}{
		{"no result", 200, `{"chart":{"result":null,"error":{"code":"Not Found"}}}`},
		{"no price fields", 200, `{"chart":{"result":[{"meta":{},"indicators":{"quote":[{"close":[null,null]}]}}]}}`},
		{"upstream error", 500, `oops`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			src, mt := newMockQuoteSource()
			mt.RegisterResponder(http.MethodGet, `=~^https://quotes\.test/v8/finance/chart/`,
				httpmock.NewStringResponder(tc.status, tc.body))
			_, err := src.GetPrice(context.Background(), "NOPE")
			assert.Assert(t, errors.Is(err, ErrPriceUnavailable), err)
		})
	}
}

func TestGetPriceTransportError(t *testing.T) {
	src, mt := newMockQuoteSource()
	mt.RegisterResponder(http.MethodGet, `=~^https://quotes\.test/`, httpmock.NewErrorResponder(errors.New("connection reset")))
	_, err := src.GetPrice(context.Background(), "AAPL")
	assert.Assert(t, errors.Is(err, ErrPriceUnavailable), err)
}

func TestHistorySkipsNullCloses(t *testing.T) {
	src, mt := newMockQuoteSource()
	mt.RegisterResponder(http.MethodGet, testQuoteEndpoint+"/v8/finance/chart/TCS.NS",
		func(req *http.Request) (*http.Response, error) {
			assert.DeepEqual(t, "5d", req.URL.Query().Get("range"))
			assert.DeepEqual(t, "1h", req.URL.Query().Get("interval"))
			return httpmock.NewStringResponse(200,
				`{"chart":{"result":[{"timestamp":[1700000000,1700003600,1700007200],"indicators":{"quote":[{"close":[4000.5,null,4010]}]}}]}}`), nil
		})

	points, err := src.History(context.Background(), "TCS.NS", PeriodWeek)
	assert.Nil(t, err)
	assert.DeepEqual(t, 2, len(points))
	assert.DeepEqual(t, int64(1700007200), points[1].Timestamp.Unix())
	assert.Assert(t, points[0].Price.Equal(decimal.RequireFromString("4000.5")))
}

func TestParsePeriod(t *testing.T) {
	p, ok := ParsePeriod("")
	assert.Assert(t, ok)
	assert.DeepEqual(t, PeriodDay, p)
	_, ok = ParsePeriod("1m")
	assert.Assert(t, ok)
	_, ok = ParsePeriod("5y")
	assert.Assert(t, !ok)
}
