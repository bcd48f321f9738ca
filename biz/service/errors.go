package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrValidation           = errors.New("invalid order")
	ErrUserNotFound         = errors.New("user not found")
	ErrPortfolioNotFound    = errors.New("portfolio not found")
	ErrMarketClosed         = errors.New("market is closed")
	ErrPriceUnavailable     = errors.New("price unavailable")
	ErrInvalidPrice         = errors.New("invalid price")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrInsufficientHoldings = errors.New("insufficient holdings")
	ErrNoHolding            = errors.New("no holding")
	ErrTransactionFailed    = errors.New("transaction failed")
)

// ValidationError 请求参数不合法，在任何外部调用之前返回
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Message)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

type MarketClosedError struct {
	Symbol   string
	NextOpen time.Time
}

func (e *MarketClosedError) Error() string {
	if e.NextOpen.IsZero() {
		return fmt.Sprintf("market is closed for %s", e.Symbol)
	}
	return fmt.Sprintf("market is closed for %s, next open at %s", e.Symbol, e.NextOpen.Format(time.RFC3339))
}

func (e *MarketClosedError) Is(target error) bool { return target == ErrMarketClosed }

type PriceUnavailableError struct {
	Symbol string
	Err    error
}

func (e *PriceUnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("price unavailable for %s: %v", e.Symbol, e.Err)
	}
	return fmt.Sprintf("price unavailable for %s", e.Symbol)
}

func (e *PriceUnavailableError) Unwrap() error { return e.Err }

func (e *PriceUnavailableError) Is(target error) bool { return target == ErrPriceUnavailable }

// InvalidPriceError 行情源返回了非正价格
type InvalidPriceError struct {
	Symbol string
	Price  decimal.Decimal
}

func (e *InvalidPriceError) Error() string {
	return fmt.Sprintf("invalid price %s for %s", e.Price, e.Symbol)
}

func (e *InvalidPriceError) Is(target error) bool { return target == ErrInvalidPrice }

type InsufficientFundsError struct {
	Required  decimal.Decimal
	Available decimal.Decimal
	Fee       decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: required %s (including fee %s), available %s",
		e.Required.StringFixed(2), e.Fee.StringFixed(2), e.Available.StringFixed(2))
}

func (e *InsufficientFundsError) Is(target error) bool { return target == ErrInsufficientFunds }

type InsufficientHoldingsError struct {
	Symbol    string
	Held      decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientHoldingsError) Error() string {
	return fmt.Sprintf("insufficient quantity of %s: requested %s, held %s", e.Symbol, e.Requested, e.Held)
}

func (e *InsufficientHoldingsError) Is(target error) bool { return target == ErrInsufficientHoldings }

type NoHoldingError struct {
	Symbol string
}

func (e *NoHoldingError) Error() string {
	return fmt.Sprintf("no holding of %s", e.Symbol)
}

func (e *NoHoldingError) Is(target error) bool { return target == ErrNoHolding }

// TransactionFailure 提交阶段失败，事务已整体回滚
type TransactionFailure struct {
	Op  string
	Err error
}

func (e *TransactionFailure) Error() string {
	return fmt.Sprintf("%s failed and was rolled back: %v", e.Op, e.Err)
}

func (e *TransactionFailure) Unwrap() error { return e.Err }

func (e *TransactionFailure) Is(target error) bool { return target == ErrTransactionFailed }

// Kind 错误分类，用于接口返回
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrUserNotFound):
		return "user_not_found"
	case errors.Is(err, ErrPortfolioNotFound):
		return "portfolio_not_found"
	case errors.Is(err, ErrMarketClosed):
		return "market_closed"
	case errors.Is(err, ErrPriceUnavailable):
		return "price_unavailable"
	case errors.Is(err, ErrInvalidPrice):
		return "invalid_price"
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ErrInsufficientHoldings):
		return "insufficient_holdings"
	case errors.Is(err, ErrNoHolding):
		return "no_holding"
	case errors.Is(err, ErrTransactionFailed):
		return "transaction_failed"
	default:
		return "internal"
	}
}

// isBusinessError 业务规则拒绝，不应包装为事务失败
func isBusinessError(err error) bool {
	return errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrInsufficientHoldings) ||
		errors.Is(err, ErrNoHolding)
}
