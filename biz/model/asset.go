package model

import "strings"

// AssetClass 资产类别，仅由代码推断，决定交易时段和是否需要换汇
type AssetClass int

const (
	DomesticEquity AssetClass = iota
	ForeignEquity
	Crypto
)

var (
	domesticSuffixes = []string{".NS", ".BO"}
	cryptoMarkers    = []string{"-USD", "-INR"}
)

// Classify 先匹配国内交易所后缀，再匹配加密货币交易对，其余按美股处理
func Classify(symbol string) AssetClass {
	s := NormalizeSymbol(symbol)
	for _, suffix := range domesticSuffixes {
		if strings.HasSuffix(s, suffix) {
			return DomesticEquity
		}
	}
	for _, marker := range cryptoMarkers {
		if strings.Contains(s, marker) {
			return Crypto
		}
	}
	return ForeignEquity
}

func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// NeedsConversion 报价是否为美元
func (c AssetClass) NeedsConversion() bool {
	return c == ForeignEquity
}

func (c AssetClass) String() string {
	switch c {
	case DomesticEquity:
		return "domestic_equity"
	case ForeignEquity:
		return "foreign_equity"
	case Crypto:
		return "crypto"
	default:
		return "unknown"
	}
}

// Currency 行情源对该类别的报价币种
func (c AssetClass) Currency() string {
	if c == ForeignEquity {
		return "USD"
	}
	return "INR"
}
