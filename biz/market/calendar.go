package market

import (
	"fmt"
	"sync"
	"time"

	"github.com/huandu/skiplist"

	"papertrade-hertz/biz/model"
)

const (
	DefaultTimezone = "Asia/Kolkata"
	dateLayout      = "2006-01-02"
	clockLayout     = "15:04"
)

type CalendarConfig struct {
	Timezone string
	Open     string
	Close    string
	Holidays []string
}

// Calendar 本地交易所交易时段，外币股票和加密资产全天可交易
type Calendar struct {
	loc       *time.Location
	openHour  int
	openMin   int
	closeHour int
	closeMin  int

	mu       sync.RWMutex
	holidays *skiplist.SkipList // yyyymmdd -> date
}

func NewCalendar(cfg CalendarConfig) (*Calendar, error) {
	if cfg.Timezone == "" {
		cfg.Timezone = DefaultTimezone
	}
	if cfg.Open == "" {
		cfg.Open = "09:15"
	}
	if cfg.Close == "" {
		cfg.Close = "15:30"
	}
	open, err := time.Parse(clockLayout, cfg.Open)
	if err != nil {
		return nil, fmt.Errorf("invalid open time %q: %w", cfg.Open, err)
	}
	closing, err := time.Parse(clockLayout, cfg.Close)
	if err != nil {
		return nil, fmt.Errorf("invalid close time %q: %w", cfg.Close, err)
	}
	if !closing.After(open) {
		return nil, fmt.Errorf("close time %s must be after open time %s", cfg.Close, cfg.Open)
	}
	c := &Calendar{
		loc:       loadLocation(cfg.Timezone),
		openHour:  open.Hour(),
		openMin:   open.Minute(),
		closeHour: closing.Hour(),
		closeMin:  closing.Minute(),
		holidays:  skiplist.New(skiplist.Int),
	}
	for _, d := range cfg.Holidays {
		if err := c.AddHoliday(d); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// DefaultCalendar NSE/BSE 常规时段 09:15-15:30 IST，无假期
func DefaultCalendar() *Calendar {
	c, _ := NewCalendar(CalendarConfig{})
	return c
}

// 容器内可能缺少 tzdata，退回固定 +05:30
func loadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err == nil {
		return loc
	}
	if name == DefaultTimezone {
		return time.FixedZone("IST", 5*3600+30*60)
	}
	return time.UTC
}

func (c *Calendar) Location() *time.Location {
	return c.loc
}

// AddHoliday 添加休市日，格式 2006-01-02
func (c *Calendar) AddHoliday(date string) error {
	d, err := time.ParseInLocation(dateLayout, date, c.loc)
	if err != nil {
		return fmt.Errorf("invalid holiday %q: %w", date, err)
	}
	c.mu.Lock()
	c.holidays.Set(dayKey(d), d)
	c.mu.Unlock()
	return nil
}

func dayKey(t time.Time) int {
	return t.Year()*10000 + int(t.Month())*100 + t.Day()
}

func (c *Calendar) isTradingDay(local time.Time) bool {
	switch local.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.holidays.Get(dayKey(local)) == nil
}

func (c *Calendar) session(local time.Time) (openAt, closeAt time.Time) {
	y, m, d := local.Date()
	openAt = time.Date(y, m, d, c.openHour, c.openMin, 0, 0, c.loc)
	closeAt = time.Date(y, m, d, c.closeHour, c.closeMin, 0, 0, c.loc)
	return openAt, closeAt
}

// IsOpen 判断该资产此刻是否可交易，开盘和收盘时刻均视为开市
func (c *Calendar) IsOpen(symbol string, now time.Time) bool {
	if model.Classify(symbol) != model.DomesticEquity {
		return true
	}
	local := now.In(c.loc)
	if !c.isTradingDay(local) {
		return false
	}
	openAt, closeAt := c.session(local)
	return !local.Before(openAt) && !local.After(closeAt)
}

// NextOpen 返回不早于 now 的最近开市时刻
func (c *Calendar) NextOpen(symbol string, now time.Time) time.Time {
	if c.IsOpen(symbol, now) {
		return now
	}
	local := now.In(c.loc)
	day := local
	if openAt, _ := c.session(local); !local.Before(openAt) {
		day = local.AddDate(0, 0, 1)
	}
	// 一年内必然存在交易日，除非假期配置异常
	for i := 0; i < 366; i++ {
		if c.isTradingDay(day) {
			openAt, _ := c.session(day)
			return openAt
		}
		day = day.AddDate(0, 0, 1)
	}
	return time.Time{}
}
