package model_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/claimdesk/pkg/domain/model"
)

func TestExtractCurrency(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{name: "rupee symbol", text: "Estimated total: ₹45,000 for repairs", want: "₹45,000"},
		{name: "literal only", text: "₹45,000", want: "₹45,000"},
		{name: "Rs prefix", text: "Bumper Rs. 12,500", want: "Rs. 12,500"},
		{name: "INR prefix", text: "about INR 3,000 total", want: "INR 3,000"},
		{name: "dollar with cents", text: "cost $1,200.50 approx", want: "$1,200.50"},
		{name: "first of many", text: "₹1,000 then ₹2,000", want: "₹1,000"},
		{name: "none", text: "no estimate available", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gt.Value(t, model.ExtractCurrency(tt.text)).Equal(tt.want)
		})
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		literal string
		want    int64
		ok      bool
	}{
		{literal: "₹45,000", want: 45000, ok: true},
		{literal: "Rs. 12,500", want: 12500, ok: true},
		{literal: "$1,200.50", want: 1200, ok: true},
		{literal: "₹1,25,000", want: 125000, ok: true},
		{literal: "n/a", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.literal, func(t *testing.T) {
			got, ok := model.ParseAmount(tt.literal)
			gt.Value(t, ok).Equal(tt.ok)
			gt.Value(t, got).Equal(tt.want)
		})
	}
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		amount int64
		symbol string
		want   string
	}{
		{amount: 45000, symbol: "₹", want: "₹45,000"},
		{amount: 0, symbol: "₹", want: "₹0"},
		{amount: 999, symbol: "$", want: "$999"},
		{amount: 1234567, symbol: "$", want: "$1,234,567"},
		{amount: -2500, symbol: "₹", want: "-₹2,500"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			gt.Value(t, model.FormatAmount(tt.amount, tt.symbol)).Equal(tt.want)
		})
	}
}
