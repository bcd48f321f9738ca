package market

import (
	"strings"

	"papertrade-hertz/biz/model"
)

// Listing 可搜索的标的，Symbol 为可直接下单的代码
type Listing struct {
	Name    string
	Symbol  string
	Aliases []string
}

// Catalog 常用标的名录，按国内、海外、加密货币的顺序匹配
type Catalog struct {
	listings []Listing
}

func NewCatalog(listings []Listing) *Catalog {
	return &Catalog{listings: listings}
}

// DefaultCatalog 内置名录
func DefaultCatalog() *Catalog {
	return NewCatalog(defaultListings)
}

// Match 名称或别名包含 query（忽略大小写）的标的，最多 limit 个
func (c *Catalog) Match(query string, limit int) []Listing {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	var res []Listing
	for _, l := range c.listings {
		if limit > 0 && len(res) >= limit {
			break
		}
		if strings.Contains(strings.ToLower(l.Name), q) {
			res = append(res, l)
			continue
		}
		for _, a := range l.Aliases {
			if strings.Contains(a, q) {
				res = append(res, l)
				break
			}
		}
	}
	return res
}

// Exchange 展示用的交易所标签
func Exchange(symbol string) string {
	switch model.Classify(symbol) {
	case model.DomesticEquity:
		return "NSE/BSE"
	case model.Crypto:
		return "Crypto"
	default:
		return "US"
	}
}

var defaultListings = []Listing{
	{"Reliance Industries", "RELIANCE.NS", []string{"reliance"}},
	{"Tata Consultancy Services", "TCS.NS", []string{"tcs"}},
	{"Infosys Ltd", "INFY.NS", []string{"infosys", "infy"}},
	{"HDFC Bank", "HDFCBANK.NS", []string{"hdfc", "hdfcbank"}},
	{"ICICI Bank", "ICICIBANK.NS", []string{"icici", "icicibank"}},
	{"State Bank of India", "SBIN.NS", []string{"sbi", "sbin"}},
	{"Bharti Airtel", "BHARTIARTL.NS", []string{"bharti", "airtel"}},
	{"ITC Ltd", "ITC.NS", []string{"itc"}},
	{"Wipro Ltd", "WIPRO.NS", []string{"wipro"}},
	{"HCL Technologies", "HCLTECH.NS", []string{"hcl", "hcltech"}},
	{"Kotak Mahindra Bank", "KOTAKBANK.NS", []string{"kotak", "kotakbank"}},
	{"Axis Bank", "AXISBANK.NS", []string{"axis", "axisbank"}},
	{"Maruti Suzuki", "MARUTI.NS", []string{"maruti"}},
	{"Bajaj Finance", "BAJFINANCE.NS", []string{"bajaj", "bajfinance"}},
	{"Titan Company", "TITAN.NS", []string{"titan"}},
	{"Asian Paints", "ASIANPAINT.NS", []string{"asian", "asianpaint"}},
	{"Larsen & Toubro", "LT.NS", []string{"lt", "larsen"}},
	{"Tata Motors", "TATAMOTORS.NS", []string{"tata", "tatamotors"}},
	{"Tata Steel", "TATASTEEL.NS", []string{"tatasteel"}},
	{"Sun Pharma", "SUNPHARMA.NS", []string{"sunpharma", "sun"}},
	{"Power Grid Corp", "POWERGRID.NS", []string{"powergrid"}},
	{"NTPC Ltd", "NTPC.NS", []string{"ntpc"}},
	{"ONGC", "ONGC.NS", []string{"ongc"}},
	{"Coal India", "COALINDIA.NS", []string{"coal", "coalindia"}},
	{"Adani Enterprises", "ADANIENT.NS", []string{"adani", "adanient"}},
	{"Adani Ports", "ADANIPORTS.NS", []string{"adaniports"}},
	{"UltraTech Cement", "ULTRACEMCO.NS", []string{"ultracemco", "ultratech"}},
	{"JSW Steel", "JSWSTEEL.NS", []string{"jswsteel", "jsw"}},
	{"Hindalco Industries", "HINDALCO.NS", []string{"hindalco"}},
	{"Tech Mahindra", "TECHM.NS", []string{"techm", "tech mahindra"}},
	{"Dr. Reddy's Labs", "DRREDDY.NS", []string{"drreddy"}},
	{"Cipla Ltd", "CIPLA.NS", []string{"cipla"}},
	{"Divi's Laboratories", "DIVISLAB.NS", []string{"divislab", "divi"}},
	{"Britannia Industries", "BRITANNIA.NS", []string{"britannia"}},
	{"Nestle India", "NESTLEIND.NS", []string{"nestle", "nestleind"}},
	{"Hindustan Unilever", "HINDUNILVR.NS", []string{"hindunilvr", "hul", "unilever"}},

	{"Apple Inc.", "AAPL", []string{"apple", "aapl"}},
	{"Microsoft Corp", "MSFT", []string{"microsoft", "msft"}},
	{"Alphabet Inc.", "GOOGL", []string{"google", "googl", "alphabet"}},
	{"Amazon.com Inc.", "AMZN", []string{"amazon", "amzn"}},
	{"Tesla Inc.", "TSLA", []string{"tesla", "tsla"}},
	{"Meta Platforms", "META", []string{"meta", "facebook"}},
	{"NVIDIA Corp", "NVDA", []string{"nvidia", "nvda"}},
	{"Netflix Inc.", "NFLX", []string{"netflix", "nflx"}},
	{"Advanced Micro Devices", "AMD", []string{"amd"}},
	{"Intel Corp", "INTC", []string{"intel", "intc"}},
	{"Walt Disney Co", "DIS", []string{"disney", "dis"}},
	{"Spotify Technology", "SPOT", []string{"spotify", "spot"}},
	{"PayPal Holdings", "PYPL", []string{"paypal", "pypl"}},
	{"Adobe Inc.", "ADBE", []string{"adobe", "adbe"}},
	{"Salesforce Inc.", "CRM", []string{"salesforce", "crm"}},
	{"Visa Inc.", "V", []string{"visa"}},
	{"Mastercard Inc.", "MA", []string{"mastercard"}},
	{"JPMorgan Chase", "JPM", []string{"jpmorgan", "jpm"}},
	{"Goldman Sachs", "GS", []string{"goldman", "gs"}},
	{"Berkshire Hathaway", "BRK-B", []string{"berkshire"}},
	{"Walmart Inc.", "WMT", []string{"walmart", "wmt"}},
	{"Coca-Cola Co", "KO", []string{"coca", "ko"}},
	{"PepsiCo Inc.", "PEP", []string{"pepsi", "pep"}},

	{"Bitcoin", "BTC-INR", []string{"bitcoin", "btc"}},
	{"Ethereum", "ETH-INR", []string{"ethereum", "eth"}},
	{"Dogecoin", "DOGE-INR", []string{"dogecoin", "doge"}},
}
