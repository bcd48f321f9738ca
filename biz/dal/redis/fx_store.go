package redis

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const fxKeyPrefix = "papertrade:fx:"

// FXRateStore 在多个实例之间共享最近一次拉取的汇率
type FXRateStore struct {
	client redis.UniversalClient
}

func NewFXRateStore(client redis.UniversalClient) *FXRateStore {
	return &FXRateStore{client: client}
}

// SaveRate 保存汇率及拉取时间
func (s *FXRateStore) SaveRate(ctx context.Context, pair string, rate decimal.Decimal, fetchedAt time.Time) error {
	return s.client.HSet(ctx, fxKeyPrefix+pair,
		"rate", rate.String(),
		"fetched_at", strconv.FormatInt(fetchedAt.UnixMilli(), 10),
	).Err()
}

// LoadRate 读取共享汇率，不存在时 ok 为 false
func (s *FXRateStore) LoadRate(ctx context.Context, pair string) (rate decimal.Decimal, fetchedAt time.Time, ok bool, err error) {
	vals, err := s.client.HGetAll(ctx, fxKeyPrefix+pair).Result()
	if err != nil || len(vals) == 0 {
		return decimal.Zero, time.Time{}, false, err
	}
	rate, err = decimal.NewFromString(vals["rate"])
	if err != nil {
		return decimal.Zero, time.Time{}, false, err
	}
	ms, err := strconv.ParseInt(vals["fetched_at"], 10, 64)
	if err != nil {
		return decimal.Zero, time.Time{}, false, err
	}
	return rate, time.UnixMilli(ms), true, nil
}
