package portfolioService

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/KotFed0t/portfolio_dashboard/config"
	"github.com/KotFed0t/portfolio_dashboard/model"
	"github.com/KotFed0t/portfolio_dashboard/utils"
)

type Repository interface {
	Read(ctx context.Context) (model.Portfolio, error)
}

type QuoteProvider interface {
	Enabled() bool
	GetQuote(ctx context.Context, symbol string) (model.Quote, error)
	GetOverview(ctx context.Context, symbol string) (model.Overview, error)
}

type Cache interface {
	GetQuote(ctx context.Context, symbol string) (model.Quote, error)
	SetQuote(ctx context.Context, quote model.Quote) error
}

type ReportGenerator interface {
	Generate(ctx context.Context, portfolio model.EnrichedPortfolio) (fileBytes []byte, fileExtension string, err error)
}

type Broadcaster interface {
	Publish(payload []byte)
}

type PortfolioService struct {
	cfg       *config.Config
	repo      Repository
	cache     Cache
	providers []QuoteProvider
	reportGen ReportGenerator
	hub       Broadcaster
}

func New(cfg *config.Config, repo Repository, cache Cache, providers []QuoteProvider, reportGen ReportGenerator, hub Broadcaster) *PortfolioService {
	return &PortfolioService{
		cfg:       cfg,
		repo:      repo,
		cache:     cache,
		providers: providers,
		reportGen: reportGen,
		hub:       hub,
	}
}

// GetPortfolio returns the raw document. An absent backing file reads as the
// empty document; only a corrupt file is an error.
func (s *PortfolioService) GetPortfolio(ctx context.Context) (model.Portfolio, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.GetPortfolio"

	slog.Debug("GetPortfolio start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("GetPortfolio finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	portfolio, err := s.repo.Read(ctx)
	if err != nil {
		slog.Error("got error from repo.Read", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Portfolio{}, err
	}

	return portfolio, nil
}

// GetEnrichedPortfolio reads the document and augments every position with a
// live price. Reading the store is the only failure mode; enrichment itself
// degrades per symbol and never fails.
func (s *PortfolioService) GetEnrichedPortfolio(ctx context.Context) (model.EnrichedPortfolio, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.GetEnrichedPortfolio"

	slog.Debug("GetEnrichedPortfolio start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("GetEnrichedPortfolio finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	portfolio, err := s.repo.Read(ctx)
	if err != nil {
		slog.Error("got error from repo.Read", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.EnrichedPortfolio{}, err
	}

	return s.enrich(ctx, portfolio), nil
}

func (s *PortfolioService) quotesEnabled() bool {
	for _, p := range s.providers {
		if p.Enabled() {
			return true
		}
	}
	return false
}

// enrich resolves every position concurrently. Each goroutine writes only its
// own slot, so no locking is needed. A symbol whose lookups all fail keeps its
// avg_price; the whole-portfolio result is always total over the input symbols.
func (s *PortfolioService) enrich(ctx context.Context, portfolio model.Portfolio) model.EnrichedPortfolio {
	symbols := make([]string, 0, len(portfolio.Positions))
	for symbol := range portfolio.Positions {
		symbols = append(symbols, symbol)
	}

	enrichedPositions := make([]model.EnrichedPosition, len(symbols))

	if s.quotesEnabled() {
		var wg sync.WaitGroup
		for i, symbol := range symbols {
			wg.Add(1)
			go func(i int, symbol string) {
				defer wg.Done()
				enrichedPositions[i] = s.enrichPosition(ctx, symbol, portfolio.Positions[symbol])
			}(i, symbol)
		}
		wg.Wait()
	} else {
		// pure fallback path: no network or cache calls at all
		for i, symbol := range symbols {
			enrichedPositions[i] = fallbackPosition(symbol, portfolio.Positions[symbol])
		}
	}

	res := model.EnrichedPortfolio{
		Cash:           portfolio.Cash,
		Positions:      make(map[string]model.EnrichedPosition, len(symbols)),
		PositionsArray: enrichedPositions,
		Transactions:   portfolio.Transactions,
		TotalValue:     portfolio.Cash,
	}

	for _, pos := range enrichedPositions {
		res.Positions[pos.Symbol] = pos
		res.TotalValue = res.TotalValue.Add(pos.Value)
	}

	return res
}

// enrichPosition resolves one symbol: cache, then the provider chain, then
// best-effort fundamentals. Any failure downgrades to fallback pricing.
func (s *PortfolioService) enrichPosition(ctx context.Context, symbol string, position model.Position) model.EnrichedPosition {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.enrichPosition"

	quote, quoteProvider, err := s.lookupQuote(ctx, symbol)
	if err != nil {
		slog.Warn(
			"no live quote, using avg_price fallback",
			slog.String("rqID", rqID),
			slog.String("op", op),
			slog.String("symbol", symbol),
			slog.String("err", err.Error()),
		)
		return fallbackPosition(symbol, position)
	}

	enriched := model.EnrichedPosition{
		Symbol:   symbol,
		Quantity: position.Quantity,
		AvgPrice: position.AvgPrice,
		Price:    quote.Price,
		Value:    quote.Price.Mul(position.Quantity),
	}

	if quoteProvider != nil {
		overview, err := quoteProvider.GetOverview(ctx, symbol)
		if err != nil {
			slog.Debug("overview unavailable", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol))
		} else {
			enriched.MarketCap = overview.MarketCap
			enriched.PER = overview.PER
		}
	}

	return enriched
}

// lookupQuote returns the first answer from cache or the provider chain. The
// provider that served the quote is returned so fundamentals come from the
// same source; a cache hit returns a nil provider and skips fundamentals.
func (s *PortfolioService) lookupQuote(ctx context.Context, symbol string) (model.Quote, QuoteProvider, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.lookupQuote"

	if s.cache != nil {
		quote, err := s.cache.GetQuote(ctx, symbol)
		if err == nil {
			return quote, nil, nil
		}
	}

	var lastErr error
	for _, provider := range s.providers {
		if !provider.Enabled() {
			continue
		}

		quote, err := provider.GetQuote(ctx, symbol)
		if err != nil {
			lastErr = err
			continue
		}

		if s.cache != nil {
			go func() {
				if err := s.cache.SetQuote(context.WithoutCancel(ctx), quote); err != nil {
					slog.Warn("can't cache quote", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol))
				}
			}()
		}

		return quote, provider, nil
	}

	return model.Quote{}, nil, lastErr
}

func fallbackPosition(symbol string, position model.Position) model.EnrichedPosition {
	return model.EnrichedPosition{
		Symbol:   symbol,
		Quantity: position.Quantity,
		AvgPrice: position.AvgPrice,
		Price:    position.AvgPrice,
		Value:    position.AvgPrice.Mul(position.Quantity),
	}
}

// BuildReport renders the current enriched portfolio as a spreadsheet.
func (s *PortfolioService) BuildReport(ctx context.Context) (fileBytes []byte, fileExtension string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.BuildReport"

	slog.Debug("BuildReport start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("BuildReport finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	enriched, err := s.GetEnrichedPortfolio(ctx)
	if err != nil {
		return nil, "", err
	}

	return s.reportGen.Generate(ctx, enriched)
}

// RefreshAndBroadcast is the scheduler job body: build a fresh enriched
// snapshot and push the complete document to every connected stream client.
func (s *PortfolioService) RefreshAndBroadcast(ctx context.Context) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.RefreshAndBroadcast"

	enriched, err := s.GetEnrichedPortfolio(ctx)
	if err != nil {
		slog.Error("can't build enriched portfolio for broadcast", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	payload, err := json.Marshal(enriched)
	if err != nil {
		slog.Error("can't marshall enriched portfolio", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	s.hub.Publish(payload)

	return nil
}
