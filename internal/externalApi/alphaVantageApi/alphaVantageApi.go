package alphaVantageApi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/KotFed0t/portfolio_dashboard/config"
	"github.com/KotFed0t/portfolio_dashboard/internal/externalApi"
	"github.com/KotFed0t/portfolio_dashboard/internal/model/alphaVantageModel"
	"github.com/KotFed0t/portfolio_dashboard/model"
	"github.com/KotFed0t/portfolio_dashboard/utils"
	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

type AlphaVantageApi struct {
	client *resty.Client
	apiKey string
}

func New(cfg *config.Config) *AlphaVantageApi {
	client := resty.New().
		SetDebug(cfg.API.Debug).
		SetTimeout(cfg.API.Timeout).
		SetBaseURL(cfg.API.AlphaVantage.Url)
	return &AlphaVantageApi{client: client, apiKey: cfg.API.AlphaVantage.Key}
}

// Enabled reports whether a credential is configured. A disabled adapter
// reports unavailable without attempting network I/O.
func (a *AlphaVantageApi) Enabled() bool {
	return a.apiKey != ""
}

func (a *AlphaVantageApi) GetQuote(ctx context.Context, symbol string) (model.Quote, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "AlphaVantageApi.GetQuote"

	if !a.Enabled() {
		return model.Quote{}, externalApi.ErrQuoteUnavailable
	}

	slog.Debug("GetQuote start", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol))

	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetQueryParams(map[string]string{
			"function": "GLOBAL_QUOTE",
			"symbol":   symbol,
			"apikey":   a.apiKey,
		}).
		Get("/query")

	if err != nil {
		slog.Error("error while dialing AlphaVantage", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Quote{}, externalApi.ErrQuoteUnavailable
	}

	if resp.IsError() {
		slog.Error("AlphaVantage returned error status", slog.String("rqID", rqID), slog.String("op", op), slog.Int("status", resp.StatusCode()))
		return model.Quote{}, externalApi.ErrQuoteUnavailable
	}

	rawQuote := alphaVantageModel.RawGlobalQuote{}
	if err := json.Unmarshal(resp.Body(), &rawQuote); err != nil {
		slog.Error("can't unmarshall response into RawGlobalQuote", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Quote{}, externalApi.ErrQuoteUnavailable
	}

	// rate-limit notes and unknown symbols come back as 200 with no quote block
	if rawQuote.GlobalQuote.Price == "" {
		slog.Warn("AlphaVantage response has no price", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol))
		return model.Quote{}, externalApi.ErrQuoteUnavailable
	}

	price, err := decimal.NewFromString(rawQuote.GlobalQuote.Price)
	if err != nil {
		slog.Error(
			"can't parse price",
			slog.String("rqID", rqID),
			slog.String("op", op),
			slog.String("price", rawQuote.GlobalQuote.Price),
			slog.String("err", err.Error()),
		)
		return model.Quote{}, externalApi.ErrQuoteUnavailable
	}

	slog.Debug("GetQuote completed", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol))

	return model.Quote{Symbol: symbol, Price: price}, nil
}

func (a *AlphaVantageApi) GetOverview(ctx context.Context, symbol string) (model.Overview, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "AlphaVantageApi.GetOverview"

	if !a.Enabled() {
		return model.Overview{}, externalApi.ErrOverviewUnavailable
	}

	slog.Debug("GetOverview start", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol))

	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetQueryParams(map[string]string{
			"function": "OVERVIEW",
			"symbol":   symbol,
			"apikey":   a.apiKey,
		}).
		Get("/query")

	if err != nil {
		slog.Error("error while dialing AlphaVantage", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Overview{}, externalApi.ErrOverviewUnavailable
	}

	if resp.IsError() {
		slog.Error("AlphaVantage returned error status", slog.String("rqID", rqID), slog.String("op", op), slog.Int("status", resp.StatusCode()))
		return model.Overview{}, externalApi.ErrOverviewUnavailable
	}

	rawOverview := alphaVantageModel.RawOverview{}
	if err := json.Unmarshal(resp.Body(), &rawOverview); err != nil {
		slog.Error("can't unmarshall response into RawOverview", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Overview{}, externalApi.ErrOverviewUnavailable
	}

	overview := model.Overview{}
	if rawOverview.MarketCapitalization != "" {
		overview.MarketCap = &rawOverview.MarketCapitalization
	}
	per := rawOverview.PERatio
	if per == "" {
		per = rawOverview.PE
	}
	if per != "" {
		overview.PER = &per
	}

	if overview.MarketCap == nil && overview.PER == nil {
		return model.Overview{}, fmt.Errorf("%w: empty overview for %s", externalApi.ErrOverviewUnavailable, symbol)
	}

	slog.Debug("GetOverview completed", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol))

	return overview, nil
}
