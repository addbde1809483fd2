package yahooModel

import "encoding/json"

// RawQuote is the RapidAPI Yahoo quote response. Field shapes differ between
// plan versions (bare numbers vs {"raw": ...} wrappers), so the values are kept
// raw and decoded leniently.
type RawQuote struct {
	Quote map[string]json.RawMessage `json:"quote"`
	Price map[string]json.RawMessage `json:"price"`
}
