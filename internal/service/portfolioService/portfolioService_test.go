package portfolioService

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/KotFed0t/portfolio_dashboard/config"
	"github.com/KotFed0t/portfolio_dashboard/internal/externalApi"
	"github.com/KotFed0t/portfolio_dashboard/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	portfolio model.Portfolio
	err       error
}

func (r *fakeRepo) Read(ctx context.Context) (model.Portfolio, error) {
	return r.portfolio, r.err
}

type fakeProvider struct {
	enabled       bool
	quotes        map[string]model.Quote
	overviews     map[string]model.Overview
	quoteCalls    atomic.Int64
	overviewCalls atomic.Int64
}

func (p *fakeProvider) Enabled() bool { return p.enabled }

func (p *fakeProvider) GetQuote(ctx context.Context, symbol string) (model.Quote, error) {
	p.quoteCalls.Add(1)
	quote, ok := p.quotes[symbol]
	if !ok {
		return model.Quote{}, externalApi.ErrQuoteUnavailable
	}
	return quote, nil
}

func (p *fakeProvider) GetOverview(ctx context.Context, symbol string) (model.Overview, error) {
	p.overviewCalls.Add(1)
	overview, ok := p.overviews[symbol]
	if !ok {
		return model.Overview{}, externalApi.ErrOverviewUnavailable
	}
	return overview, nil
}

type fakeHub struct {
	payloads [][]byte
}

func (h *fakeHub) Publish(payload []byte) {
	h.payloads = append(h.payloads, payload)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func acmePortfolio() model.Portfolio {
	return model.Portfolio{
		Cash: dec("100"),
		Positions: map[string]model.Position{
			"ACME": {Quantity: dec("2"), AvgPrice: dec("10")},
		},
		Transactions: []model.Transaction{},
	}
}

func newService(repo Repository, providers ...QuoteProvider) *PortfolioService {
	return New(&config.Config{}, repo, nil, providers, nil, &fakeHub{})
}

func TestGetEnrichedPortfolioFallbackWhenDisabled(t *testing.T) {
	provider := &fakeProvider{enabled: false}
	srv := newService(&fakeRepo{portfolio: acmePortfolio()}, provider)

	enriched, err := srv.GetEnrichedPortfolio(context.Background())
	require.NoError(t, err)

	pos, ok := enriched.Positions["ACME"]
	require.True(t, ok)
	assert.True(t, pos.Price.Equal(dec("10")), "price = %s", pos.Price)
	assert.True(t, pos.Value.Equal(dec("20")), "value = %s", pos.Value)
	assert.True(t, enriched.TotalValue.Equal(dec("120")), "total = %s", enriched.TotalValue)

	// disabled adapter must not issue lookups at all
	assert.Zero(t, provider.quoteCalls.Load())
}

func TestGetEnrichedPortfolioFallbackWhenQuoteFails(t *testing.T) {
	// enabled provider with no quote for ACME: same result as disabled adapter
	provider := &fakeProvider{enabled: true, quotes: map[string]model.Quote{}}
	srv := newService(&fakeRepo{portfolio: acmePortfolio()}, provider)

	enriched, err := srv.GetEnrichedPortfolio(context.Background())
	require.NoError(t, err)

	pos := enriched.Positions["ACME"]
	assert.True(t, pos.Price.Equal(dec("10")))
	assert.True(t, pos.Value.Equal(dec("20")))
	assert.True(t, enriched.TotalValue.Equal(dec("120")))
	assert.Equal(t, int64(1), provider.quoteCalls.Load())
}

func TestGetEnrichedPortfolioLiveQuote(t *testing.T) {
	mc := "1000000"
	per := "15.5"
	provider := &fakeProvider{
		enabled:   true,
		quotes:    map[string]model.Quote{"ACME": {Symbol: "ACME", Price: dec("12.5")}},
		overviews: map[string]model.Overview{"ACME": {MarketCap: &mc, PER: &per}},
	}
	srv := newService(&fakeRepo{portfolio: acmePortfolio()}, provider)

	enriched, err := srv.GetEnrichedPortfolio(context.Background())
	require.NoError(t, err)

	pos := enriched.Positions["ACME"]
	assert.True(t, pos.Price.Equal(dec("12.5")))
	assert.True(t, pos.AvgPrice.Equal(dec("10")))
	assert.True(t, pos.Value.Equal(dec("25")))
	require.NotNil(t, pos.MarketCap)
	assert.Equal(t, "1000000", *pos.MarketCap)
	require.NotNil(t, pos.PER)
	assert.Equal(t, "15.5", *pos.PER)
	assert.True(t, enriched.TotalValue.Equal(dec("125")))
}

func TestGetEnrichedPortfolioProviderChainFallback(t *testing.T) {
	primary := &fakeProvider{enabled: true, quotes: map[string]model.Quote{}}
	secondary := &fakeProvider{
		enabled: true,
		quotes:  map[string]model.Quote{"ACME": {Symbol: "ACME", Price: dec("11")}},
	}
	srv := newService(&fakeRepo{portfolio: acmePortfolio()}, primary, secondary)

	enriched, err := srv.GetEnrichedPortfolio(context.Background())
	require.NoError(t, err)

	pos := enriched.Positions["ACME"]
	assert.True(t, pos.Price.Equal(dec("11")))
	assert.Equal(t, int64(1), primary.quoteCalls.Load())
	assert.Equal(t, int64(1), secondary.quoteCalls.Load())
	// fundamentals must come from the provider that served the quote
	assert.Zero(t, primary.overviewCalls.Load())
	assert.Equal(t, int64(1), secondary.overviewCalls.Load())
}

func TestGetEnrichedPortfolioIsTotal(t *testing.T) {
	portfolio := model.Portfolio{
		Cash: dec("0"),
		Positions: map[string]model.Position{
			"AAA": {Quantity: dec("1"), AvgPrice: dec("5")},
			"BBB": {Quantity: dec("3"), AvgPrice: dec("7")},
			"CCC": {Quantity: dec("0.5"), AvgPrice: dec("40")},
		},
	}
	// live price only for BBB, the rest degrade per symbol
	provider := &fakeProvider{
		enabled: true,
		quotes:  map[string]model.Quote{"BBB": {Symbol: "BBB", Price: dec("8")}},
	}
	srv := newService(&fakeRepo{portfolio: portfolio}, provider)

	enriched, err := srv.GetEnrichedPortfolio(context.Background())
	require.NoError(t, err)

	require.Len(t, enriched.Positions, 3)
	require.Len(t, enriched.PositionsArray, 3)

	seen := map[string]bool{}
	for _, pos := range enriched.PositionsArray {
		assert.False(t, seen[pos.Symbol], "symbol %s produced twice", pos.Symbol)
		seen[pos.Symbol] = true
	}

	assert.True(t, enriched.Positions["AAA"].Value.Equal(dec("5")))
	assert.True(t, enriched.Positions["BBB"].Value.Equal(dec("24")))
	assert.True(t, enriched.Positions["CCC"].Value.Equal(dec("20")))
	assert.True(t, enriched.TotalValue.Equal(dec("49")))
}

type fakeCache struct {
	quotes map[string]model.Quote
	stored chan model.Quote
}

func (c *fakeCache) GetQuote(ctx context.Context, symbol string) (model.Quote, error) {
	quote, ok := c.quotes[symbol]
	if !ok {
		return model.Quote{}, errors.New("cache miss")
	}
	return quote, nil
}

func (c *fakeCache) SetQuote(ctx context.Context, quote model.Quote) error {
	if c.stored != nil {
		c.stored <- quote
	}
	return nil
}

func TestGetEnrichedPortfolioCacheHitSkipsProviders(t *testing.T) {
	provider := &fakeProvider{enabled: true, quotes: map[string]model.Quote{"ACME": {Symbol: "ACME", Price: dec("99")}}}
	quoteCache := &fakeCache{quotes: map[string]model.Quote{"ACME": {Symbol: "ACME", Price: dec("13")}}}
	srv := New(&config.Config{}, &fakeRepo{portfolio: acmePortfolio()}, quoteCache, []QuoteProvider{provider}, nil, &fakeHub{})

	enriched, err := srv.GetEnrichedPortfolio(context.Background())
	require.NoError(t, err)

	assert.True(t, enriched.Positions["ACME"].Price.Equal(dec("13")))
	assert.Zero(t, provider.quoteCalls.Load())
}

func TestGetEnrichedPortfolioCacheMissStoresQuote(t *testing.T) {
	provider := &fakeProvider{enabled: true, quotes: map[string]model.Quote{"ACME": {Symbol: "ACME", Price: dec("12")}}}
	quoteCache := &fakeCache{quotes: map[string]model.Quote{}, stored: make(chan model.Quote, 1)}
	srv := New(&config.Config{}, &fakeRepo{portfolio: acmePortfolio()}, quoteCache, []QuoteProvider{provider}, nil, &fakeHub{})

	enriched, err := srv.GetEnrichedPortfolio(context.Background())
	require.NoError(t, err)
	assert.True(t, enriched.Positions["ACME"].Price.Equal(dec("12")))

	stored := <-quoteCache.stored
	assert.Equal(t, "ACME", stored.Symbol)
	assert.True(t, stored.Price.Equal(dec("12")))
}

func TestGetEnrichedPortfolioEmptyPositions(t *testing.T) {
	portfolio := model.Portfolio{
		Cash:      dec("50"),
		Positions: map[string]model.Position{},
	}
	srv := newService(&fakeRepo{portfolio: portfolio}, &fakeProvider{enabled: true})

	enriched, err := srv.GetEnrichedPortfolio(context.Background())
	require.NoError(t, err)

	assert.Empty(t, enriched.PositionsArray)
	assert.Empty(t, enriched.Positions)
	assert.True(t, enriched.TotalValue.Equal(dec("50")))
}

func TestGetEnrichedPortfolioStoreError(t *testing.T) {
	storeErr := errors.New("portfolio file corrupt: unexpected end of JSON input")
	srv := newService(&fakeRepo{err: storeErr}, &fakeProvider{})

	_, err := srv.GetEnrichedPortfolio(context.Background())
	assert.ErrorIs(t, err, storeErr)
}

func TestGetPortfolioRaw(t *testing.T) {
	srv := newService(&fakeRepo{portfolio: acmePortfolio()})

	portfolio, err := srv.GetPortfolio(context.Background())
	require.NoError(t, err)
	assert.True(t, portfolio.Cash.Equal(dec("100")))
	assert.Len(t, portfolio.Positions, 1)
}

type fakeReportGenerator struct {
	got model.EnrichedPortfolio
}

func (g *fakeReportGenerator) Generate(ctx context.Context, portfolio model.EnrichedPortfolio) ([]byte, string, error) {
	g.got = portfolio
	return []byte("report"), ".xlsx", nil
}

func TestBuildReport(t *testing.T) {
	gen := &fakeReportGenerator{}
	srv := New(&config.Config{}, &fakeRepo{portfolio: acmePortfolio()}, nil, nil, gen, &fakeHub{})

	fileBytes, ext, err := srv.BuildReport(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ".xlsx", ext)
	assert.Equal(t, []byte("report"), fileBytes)
	assert.True(t, gen.got.TotalValue.Equal(dec("120")))
}

func TestRefreshAndBroadcastPublishesCompleteDocument(t *testing.T) {
	hub := &fakeHub{}
	srv := New(&config.Config{}, &fakeRepo{portfolio: acmePortfolio()}, nil, []QuoteProvider{&fakeProvider{}}, nil, hub)

	err := srv.RefreshAndBroadcast(context.Background())
	require.NoError(t, err)
	require.Len(t, hub.payloads, 1)

	var enriched model.EnrichedPortfolio
	require.NoError(t, json.Unmarshal(hub.payloads[0], &enriched))
	assert.True(t, enriched.TotalValue.Equal(dec("120")))
	assert.Contains(t, enriched.Positions, "ACME")
}

func TestRefreshAndBroadcastStoreError(t *testing.T) {
	hub := &fakeHub{}
	srv := New(&config.Config{}, &fakeRepo{err: errors.New("boom")}, nil, nil, nil, hub)

	err := srv.RefreshAndBroadcast(context.Background())
	assert.Error(t, err)
	assert.Empty(t, hub.payloads)
}
