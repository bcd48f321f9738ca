package service

import (
	"context"
	"testing"
	"time"

	"github.com/cloudwego/hertz/pkg/common/test/assert"

	"papertrade-hertz/biz/dal/pg"
	"papertrade-hertz/biz/model"
)

func seedPortfolio(t *testing.T, store *pg.Store, cash string, holdings ...model.Holding) *model.Portfolio {
	t.Helper()
	ctx := context.Background()
	p, _, err := store.GetOrCreatePortfolio(ctx, testUser, dec(cash))
	assert.Nil(t, err)
	err = store.Transaction(ctx, func(tx *pg.Tx) error {
		for i := range holdings {
			holdings[i].PortfolioID = p.ID
			if err := tx.CreateHolding(&holdings[i]); err != nil {
				return err
			}
		}
		return nil
	})
	assert.Nil(t, err)
	return p
}

func TestSummarizeMixedPortfolio(t *testing.T) {
	store := newTestStore(t)
	p := seedPortfolio(t, store, "50000",
		model.Holding{Symbol: "RELIANCE.NS", Quantity: dec("10"), AveragePrice: dec("3500")},
		model.Holding{Symbol: "AAPL", Quantity: dec("2"), AveragePrice: dec("12000")},
		model.Holding{Symbol: "BTC-USD", Quantity: dec("0.5"), AveragePrice: dec("4000000")},
	)
	quotes := newFakeQuotes()
	quotes.set("RELIANCE.NS", "3600")
	quotes.set("AAPL", "150")
	quotes.fail("BTC-USD", errUpstream)
	fx := newFixedFX("83")
	v := NewValuator(store, quotes, fx, newTestPool(t, 4), time.Second, dec("100000"))

	s, err := v.Summarize(context.Background(), p)
	assert.Nil(t, err)
	assert.DeepEqual(t, 3, len(s.Holdings))
	assert.DeepEqual(t, 1, fx.callCount())
	assert.Assert(t, s.FXRate.Decimal.Equal(dec("83")))

	bySymbol := map[string]HoldingValuation{}
	for _, h := range s.Holdings {
		bySymbol[h.Symbol] = h
	}

	rel := bySymbol["RELIANCE.NS"]
	assert.Assert(t, rel.Priced)
	assert.Assert(t, rel.CurrentValue.Equal(dec("36000")))
	assert.Assert(t, rel.ProfitLoss.Equal(dec("1000")))
	assert.DeepEqual(t, "2.86", rel.ProfitLossPercent.StringFixed(2))

	aapl := bySymbol["AAPL"]
	assert.Assert(t, aapl.Conversion.Converted())
	assert.Assert(t, aapl.CurrentPrice.Equal(dec("12450")))
	assert.Assert(t, aapl.CurrentValue.Equal(dec("24900")))
	assert.Assert(t, aapl.ProfitLoss.Equal(dec("900")))
	assert.Assert(t, aapl.ProfitLossPercent.Equal(dec("3.75")), aapl.ProfitLossPercent)

	btc := bySymbol["BTC-USD"]
	assert.Assert(t, !btc.Priced)
	assert.Assert(t, btc.CurrentPrice.Equal(dec("4000000")))
	assert.Assert(t, btc.CurrentValue.Equal(dec("2000000")))
	assert.Assert(t, btc.ProfitLoss.IsZero())
	assert.Assert(t, btc.ProfitLossPercent.IsZero())

	assert.Assert(t, s.TotalHoldingsValue.Equal(dec("2060900")), s.TotalHoldingsValue)
	assert.Assert(t, s.TotalValue.Equal(dec("2110900")), s.TotalValue)
}

func TestSummarizeSkipsFXWithoutForeignQuotes(t *testing.T) {
	store := newTestStore(t)
	p := seedPortfolio(t, store, "1000",
		model.Holding{Symbol: "TCS.NS", Quantity: dec("1"), AveragePrice: dec("3000")},
		model.Holding{Symbol: "MSFT", Quantity: dec("1"), AveragePrice: dec("30000")},
	)
	quotes := newFakeQuotes()
	quotes.set("TCS.NS", "3100")
	quotes.fail("MSFT", errUpstream)
	fx := newFixedFX("83")
	v := NewValuator(store, quotes, fx, newTestPool(t, 4), time.Second, dec("100000"))

	s, err := v.Summarize(context.Background(), p)
	assert.Nil(t, err)
	assert.DeepEqual(t, 0, fx.callCount())
	assert.Assert(t, !s.FXRate.Valid)
	assert.Assert(t, s.TotalValue.Equal(dec("34100")), s.TotalValue)
}

func TestSummarizeNonPositiveQuoteFallsBack(t *testing.T) {
	store := newTestStore(t)
	p := seedPortfolio(t, store, "0",
		model.Holding{Symbol: "ODD.NS", Quantity: dec("4"), AveragePrice: dec("25")},
	)
	quotes := newFakeQuotes()
	quotes.set("ODD.NS", "-1")
	v := NewValuator(store, quotes, newFixedFX("83"), newTestPool(t, 2), time.Second, dec("100000"))

	s, err := v.Summarize(context.Background(), p)
	assert.Nil(t, err)
	assert.Assert(t, !s.Holdings[0].Priced)
	assert.Assert(t, s.TotalValue.Equal(dec("100")))
}

func TestSummarizeFansOutConcurrently(t *testing.T) {
	store := newTestStore(t)
	var holdings []model.Holding
	quotes := newFakeQuotes()
	for _, sym := range []string{"A.NS", "B.NS", "C.NS", "D.NS", "E.NS"} {
		holdings = append(holdings, model.Holding{Symbol: sym, Quantity: dec("1"), AveragePrice: dec("10")})
		quotes.set(sym, "11")
	}
	p := seedPortfolio(t, store, "0", holdings...)
	quotes.delay = 50 * time.Millisecond
	v := NewValuator(store, quotes, newFixedFX("83"), newTestPool(t, 5), time.Second, dec("100000"))

	s, err := v.Summarize(context.Background(), p)
	assert.Nil(t, err)
	assert.Assert(t, s.TotalValue.Equal(dec("55")), s.TotalValue)
	assert.Assert(t, quotes.maxInFlight > 1, quotes.maxInFlight)
}

func TestCancelledValuationSkipsPendingLookups(t *testing.T) {
	store := newTestStore(t)
	quotes := newFakeQuotes()
	quotes.set("A.NS", "50")
	quotes.set("B.NS", "60")
	v := NewValuator(store, quotes, newFixedFX("83"), newTestPool(t, 2), time.Second, dec("100000"))
	holdings := []model.Holding{
		{Symbol: "A.NS", Quantity: dec("1"), AveragePrice: dec("10")},
		{Symbol: "B.NS", Quantity: dec("1"), AveragePrice: dec("10")},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results := v.fetchQuotes(ctx, holdings)
	assert.DeepEqual(t, 2, len(results))
	for _, r := range results {
		assert.DeepEqual(t, context.Canceled, r.err)
	}
	assert.DeepEqual(t, 0, quotes.callCount())
}

func TestSummaryForWithoutPortfolio(t *testing.T) {
	store := newTestStore(t)
	v := NewValuator(store, newFakeQuotes(), newFixedFX("83"), newTestPool(t, 2), time.Second, dec("100000"))
	ctx := context.Background()

	s, err := v.SummaryFor(ctx, testUser)
	assert.Nil(t, err)
	assert.Assert(t, s.Cash.Equal(dec("100000")))
	assert.Assert(t, s.TotalValue.Equal(dec("100000")))
	assert.DeepEqual(t, 0, len(s.Holdings))

	p, err := store.FindPortfolio(ctx, testUser)
	assert.Nil(t, err)
	assert.Assert(t, p == nil)

	_, err = v.SummaryFor(ctx, "ghost")
	assert.DeepEqual(t, ErrUserNotFound, err)
}
