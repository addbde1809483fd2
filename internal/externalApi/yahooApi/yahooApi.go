package yahooApi

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/KotFed0t/portfolio_dashboard/config"
	"github.com/KotFed0t/portfolio_dashboard/internal/externalApi"
	"github.com/KotFed0t/portfolio_dashboard/internal/model/yahooModel"
	"github.com/KotFed0t/portfolio_dashboard/model"
	"github.com/KotFed0t/portfolio_dashboard/utils"
	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

// YahooApi is the RapidAPI Yahoo quote provider, used as the fallback leg of
// the provider chain when Alpha Vantage can't serve a symbol.
type YahooApi struct {
	client *resty.Client
	apiKey string
}

func New(cfg *config.Config) *YahooApi {
	client := resty.New().
		SetDebug(cfg.API.Debug).
		SetTimeout(cfg.API.Timeout).
		SetBaseURL(cfg.API.Yahoo.Url).
		SetHeader("x-rapidapi-host", "yahoo-finance15.p.rapidapi.com")
	return &YahooApi{client: client, apiKey: cfg.API.Yahoo.Key}
}

func (a *YahooApi) Enabled() bool {
	return a.apiKey != ""
}

func (a *YahooApi) GetQuote(ctx context.Context, symbol string) (model.Quote, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "YahooApi.GetQuote"

	if !a.Enabled() {
		return model.Quote{}, externalApi.ErrQuoteUnavailable
	}

	slog.Debug("GetQuote start", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol))

	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("x-rapidapi-key", a.apiKey).
		Get("/api/yahoo/qu/quote/" + symbol)

	if err != nil {
		slog.Error("error while dialing RapidAPI Yahoo", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Quote{}, externalApi.ErrQuoteUnavailable
	}

	if resp.IsError() {
		slog.Error("RapidAPI Yahoo returned error status", slog.String("rqID", rqID), slog.String("op", op), slog.Int("status", resp.StatusCode()))
		return model.Quote{}, externalApi.ErrQuoteUnavailable
	}

	rawQuote := yahooModel.RawQuote{}
	if err := json.Unmarshal(resp.Body(), &rawQuote); err != nil {
		slog.Error("can't unmarshall response into yahooModel.RawQuote", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Quote{}, externalApi.ErrQuoteUnavailable
	}

	fields := rawQuote.Quote
	if fields == nil {
		fields = rawQuote.Price
	}

	price, ok := extractDecimal(fields, "regularMarketPrice")
	if !ok {
		price, ok = extractDecimal(fields, "regularMarketPreviousClose")
	}
	if !ok {
		slog.Warn("RapidAPI Yahoo response has no price", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol))
		return model.Quote{}, externalApi.ErrQuoteUnavailable
	}

	slog.Debug("GetQuote completed", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol))

	return model.Quote{Symbol: symbol, Price: price}, nil
}

func (a *YahooApi) GetOverview(ctx context.Context, symbol string) (model.Overview, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "YahooApi.GetOverview"

	if !a.Enabled() {
		return model.Overview{}, externalApi.ErrOverviewUnavailable
	}

	slog.Debug("GetOverview start", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol))

	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("x-rapidapi-key", a.apiKey).
		Get("/api/yahoo/qu/quote/" + symbol)

	if err != nil {
		slog.Error("error while dialing RapidAPI Yahoo", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Overview{}, externalApi.ErrOverviewUnavailable
	}

	if resp.IsError() {
		slog.Error("RapidAPI Yahoo returned error status", slog.String("rqID", rqID), slog.String("op", op), slog.Int("status", resp.StatusCode()))
		return model.Overview{}, externalApi.ErrOverviewUnavailable
	}

	rawQuote := yahooModel.RawQuote{}
	if err := json.Unmarshal(resp.Body(), &rawQuote); err != nil {
		slog.Error("can't unmarshall response into yahooModel.RawQuote", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Overview{}, externalApi.ErrOverviewUnavailable
	}

	fields := rawQuote.Quote
	if fields == nil {
		fields = rawQuote.Price
	}

	marketCap, ok := extractDecimal(fields, "marketCap")
	if !ok {
		return model.Overview{}, externalApi.ErrOverviewUnavailable
	}

	mc := marketCap.String()

	slog.Debug("GetOverview completed", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol))

	return model.Overview{MarketCap: &mc}, nil
}

// extractDecimal reads a numeric field that may be a bare number, a quoted
// number, or a {"raw": ...} wrapper.
func extractDecimal(fields map[string]json.RawMessage, key string) (decimal.Decimal, bool) {
	raw, ok := fields[key]
	if !ok || len(raw) == 0 {
		return decimal.Decimal{}, false
	}

	var d decimal.Decimal
	if err := json.Unmarshal(raw, &d); err == nil {
		return d, true
	}

	// pointer keeps a legitimate {"raw": 0} distinct from an absent field
	var wrapped struct {
		Raw *decimal.Decimal `json:"raw"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Raw != nil {
		return *wrapped.Raw, true
	}

	return decimal.Decimal{}, false
}
