package model

import "github.com/shopspring/decimal"

// Quote is the provider-agnostic price lookup result.
type Quote struct {
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
}

// Overview holds optional fundamentals; providers that don't expose a field leave it nil.
type Overview struct {
	MarketCap *string `json:"marketCap,omitempty"`
	PER       *string `json:"PER,omitempty"`
}

type EnrichedPosition struct {
	Symbol    string          `json:"symbol"`
	Quantity  decimal.Decimal `json:"quantity"`
	AvgPrice  decimal.Decimal `json:"avg_price"`
	Price     decimal.Decimal `json:"price"`
	MarketCap *string         `json:"marketCap,omitempty"`
	PER       *string         `json:"PER,omitempty"`
	Value     decimal.Decimal `json:"value"`
}

type EnrichedPortfolio struct {
	Cash           decimal.Decimal             `json:"cash"`
	Positions      map[string]EnrichedPosition `json:"positions"`
	PositionsArray []EnrichedPosition          `json:"positionsArray"`
	Transactions   []Transaction               `json:"transactions"`
	TotalValue     decimal.Decimal             `json:"total_value"`
}
