package externalApi

import "errors"

var (
	// ErrQuoteUnavailable means no live price could be obtained for a symbol.
	// Callers recover with cost-basis fallback pricing; there are no retries.
	ErrQuoteUnavailable = errors.New("quote unavailable")

	// ErrOverviewUnavailable means fundamentals could not be obtained. It is
	// independent of the quote lookup and never degrades the price.
	ErrOverviewUnavailable = errors.New("overview unavailable")
)
