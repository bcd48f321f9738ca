package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/shopspring/decimal"

	"papertrade-hertz/biz/dal/pg"
	"papertrade-hertz/biz/market"
	"papertrade-hertz/biz/model"
)

const testUser = "user-1"

// 2026-10-19 周一 12:00 IST
var tradingNoon = time.Date(2026, 10, 19, 6, 30, 0, 0, time.UTC)

func newTestStore(t *testing.T) *pg.Store {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := pg.Open(pg.DriverSQLite, fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	if err != nil {
		t.Fatal(err)
	}
	if err := pg.AutoMigrate(db); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	store := pg.NewStore(db)
	if err := store.CreateUser(context.Background(), &model.User{ID: testUser, Email: "user-1@example.com"}); err != nil {
		t.Fatal(err)
	}
	return store
}

type fakeQuotes struct {
	mu     sync.Mutex
	prices map[string]decimal.Decimal
	errs   map[string]error
	calls  int
	delay  time.Duration

	inFlight    int32
	maxInFlight int32
}

func newFakeQuotes() *fakeQuotes {
	return &fakeQuotes{prices: map[string]decimal.Decimal{}, errs: map[string]error{}}
}

func (f *fakeQuotes) set(symbol, price string) {
	f.mu.Lock()
	f.prices[symbol] = decimal.RequireFromString(price)
	f.mu.Unlock()
}

func (f *fakeQuotes) fail(symbol string, err error) {
	f.mu.Lock()
	f.errs[symbol] = err
	f.mu.Unlock()
}

func (f *fakeQuotes) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeQuotes) GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	n := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		m := atomic.LoadInt32(&f.maxInFlight)
		if n <= m || atomic.CompareAndSwapInt32(&f.maxInFlight, m, n) {
			break
		}
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return decimal.Zero, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err, ok := f.errs[symbol]; ok {
		return decimal.Zero, err
	}
	p, ok := f.prices[symbol]
	if !ok {
		return decimal.Zero, market.ErrPriceUnavailable
	}
	return p, nil
}

type fixedFX struct {
	rate  decimal.Decimal
	calls int32
}

func newFixedFX(rate string) *fixedFX {
	return &fixedFX{rate: decimal.RequireFromString(rate)}
}

func (f *fixedFX) RateForForeign(context.Context) decimal.Decimal {
	atomic.AddInt32(&f.calls, 1)
	return f.rate
}

func (f *fixedFX) ToBase(ctx context.Context, symbol string, native decimal.Decimal) market.Conversion {
	class := model.Classify(symbol)
	if !class.NeedsConversion() {
		return market.Convert(class, native, decimal.Zero)
	}
	return market.Convert(class, native, f.RateForForeign(ctx))
}

func (f *fixedFX) callCount() int {
	return int(atomic.LoadInt32(&f.calls))
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []model.TradeEvent
}

func (r *recordingPublisher) Publish(_ context.Context, ev model.TradeEvent) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func sequentialIDs() IDGenerator {
	var n int64
	return func() (string, error) {
		return fmt.Sprintf("T%06d", atomic.AddInt64(&n, 1)), nil
	}
}

func newTestEngine(t *testing.T, store *pg.Store, quotes QuoteSource, fx CurrencyNormalizer, at time.Time, opts ...EngineOption) *TradeEngine {
	t.Helper()
	opts = append([]EngineOption{
		WithEngineClock(func() time.Time { return at }),
		WithIDGenerator(sequentialIDs()),
	}, opts...)
	return NewTradeEngine(store, quotes, fx, market.DefaultCalendar(), DefaultSettings(), opts...)
}

func newTestPool(t *testing.T, size int) *ants.Pool {
	t.Helper()
	pool, err := ants.NewPool(size)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(pool.Release)
	return pool
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func loadState(t *testing.T, store *pg.Store) (decimal.Decimal, []model.Holding, []model.Transaction) {
	t.Helper()
	ctx := context.Background()
	p, err := store.FindPortfolio(ctx, testUser)
	if err != nil {
		t.Fatal(err)
	}
	if p == nil {
		t.Fatal("portfolio not created")
	}
	holdings, err := store.ListHoldings(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	txs, err := store.ListTransactions(ctx, testUser, 0)
	if err != nil {
		t.Fatal(err)
	}
	return p.Cash, holdings, txs
}

var errUpstream = errors.New("upstream timeout")
