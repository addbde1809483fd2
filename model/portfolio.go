package model

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// portfolio.json and the dashboard front end exchange plain JSON numbers
	decimal.MarshalJSONWithoutQuotes = true
}

type Portfolio struct {
	Cash         decimal.Decimal     `json:"cash"`
	Positions    map[string]Position `json:"positions"`
	Transactions []Transaction       `json:"transactions"`
}

type Position struct {
	Quantity decimal.Decimal `json:"quantity"`
	AvgPrice decimal.Decimal `json:"avg_price"`
}

// Transaction is an append-only log entry recorded by the external writer.
type Transaction struct {
	Timestamp time.Time       `json:"timestamp"`
	Symbol    string          `json:"symbol"`
	Quantity  decimal.Decimal `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Total     decimal.Decimal `json:"total"`
	Rationale string          `json:"rationale"`
}

// DefaultPortfolio is what an absent portfolio file reads as.
func DefaultPortfolio() Portfolio {
	return Portfolio{
		Cash:         decimal.Zero,
		Positions:    map[string]Position{},
		Transactions: []Transaction{},
	}
}
