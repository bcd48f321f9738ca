package model

import "testing"

func TestClassify(t *testing.T) {
	cases := []struct {
		symbol string
		want   AssetClass
	}{
		{"RELIANCE.NS", DomesticEquity},
		{"tcs.bo", DomesticEquity},
		{" INFY.NS ", DomesticEquity},
		{"BTC-USD", Crypto},
		{"ETH-INR", Crypto},
		{"AAPL", ForeignEquity},
		{"MSFT", ForeignEquity},
		{"BRK.B", ForeignEquity},
	}
	for _, tc := range cases {
		if got := Classify(tc.symbol); got != tc.want {
			t.Errorf("Classify(%q) = %v, want %v", tc.symbol, got, tc.want)
		}
	}
}

func TestNeedsConversion(t *testing.T) {
	if !ForeignEquity.NeedsConversion() {
		t.Fatal("foreign equity should convert")
	}
	if DomesticEquity.NeedsConversion() || Crypto.NeedsConversion() {
		t.Fatal("domestic and crypto prices are used as quoted")
	}
	if ForeignEquity.Currency() != "USD" || Crypto.Currency() != "INR" {
		t.Fatal("unexpected currency")
	}
}
