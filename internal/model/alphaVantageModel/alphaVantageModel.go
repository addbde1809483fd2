package alphaVantageModel

// RawGlobalQuote is the GLOBAL_QUOTE response envelope. Alpha Vantage returns
// every field as a string and keys them with ordinal prefixes.
type RawGlobalQuote struct {
	GlobalQuote GlobalQuote `json:"Global Quote"`
}

type GlobalQuote struct {
	Symbol string `json:"01. symbol"`
	Price  string `json:"05. price"`
}

// RawOverview carries the subset of the OVERVIEW response the dashboard uses.
// An unknown symbol comes back as an empty object, not an error status.
type RawOverview struct {
	Symbol               string `json:"Symbol"`
	MarketCapitalization string `json:"MarketCapitalization"`
	PERatio              string `json:"PERatio"`
	PE                   string `json:"PE"`
}
