package rest

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/KotFed0t/portfolio_dashboard/config"
	"github.com/KotFed0t/portfolio_dashboard/internal/broadcast"
	"github.com/KotFed0t/portfolio_dashboard/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	portfolio model.Portfolio
	enriched  model.EnrichedPortfolio
	err       error
}

func (s *fakeService) GetPortfolio(ctx context.Context) (model.Portfolio, error) {
	return s.portfolio, s.err
}

func (s *fakeService) GetEnrichedPortfolio(ctx context.Context) (model.EnrichedPortfolio, error) {
	return s.enriched, s.err
}

func (s *fakeService) BuildReport(ctx context.Context) ([]byte, string, error) {
	if s.err != nil {
		return nil, "", s.err
	}
	return []byte("xlsx-bytes"), ".xlsx", nil
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testEnriched() model.EnrichedPortfolio {
	acme := model.EnrichedPosition{
		Symbol:   "ACME",
		Quantity: dec("2"),
		AvgPrice: dec("10"),
		Price:    dec("10"),
		Value:    dec("20"),
	}
	return model.EnrichedPortfolio{
		Cash:           dec("100"),
		Positions:      map[string]model.EnrichedPosition{"ACME": acme},
		PositionsArray: []model.EnrichedPosition{acme},
		Transactions:   []model.Transaction{},
		TotalValue:     dec("120"),
	}
}

func newTestRouter(t *testing.T, srv PortfolioService, hub Subscriber) http.Handler {
	t.Helper()

	cfg := &config.Config{}
	cfg.Portfolio.File = "portfolio.json"
	if hub == nil {
		h := broadcast.NewHub()
		t.Cleanup(h.Close)
		hub = h
	}
	return NewRouter(NewController(cfg, srv, hub), filepath.Join(t.TempDir(), "missing"))
}

func TestGetPortfolioRaw(t *testing.T) {
	srv := &fakeService{portfolio: model.DefaultPortfolio()}
	router := newTestRouter(t, srv, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/portfolio", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
	assert.JSONEq(t, `{"cash": 0, "positions": {}, "transactions": []}`, rec.Body.String())
}

func TestGetPortfolioEnriched(t *testing.T) {
	srv := &fakeService{enriched: testEnriched()}
	router := newTestRouter(t, srv, nil)

	for _, param := range []string{"enrich=1", "enrich=true"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/portfolio?"+param, nil))

		require.Equal(t, http.StatusOK, rec.Code)

		var enriched model.EnrichedPortfolio
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &enriched))
		assert.True(t, enriched.TotalValue.Equal(dec("120")))
		assert.Len(t, enriched.PositionsArray, 1)
	}
}

func TestGetPortfolioStoreCorrupt(t *testing.T) {
	srv := &fakeService{err: errors.New("portfolio file corrupt: invalid character '}'")}
	router := newTestRouter(t, srv, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/portfolio", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body["error"], "portfolio file corrupt")
}

func TestGetReport(t *testing.T) {
	router := newTestRouter(t, &fakeService{}, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/portfolio/report", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "portfolio_report.xlsx")
	assert.Equal(t, "xlsx-bytes", rec.Body.String())
}

func TestHealthCheck(t *testing.T) {
	router := newTestRouter(t, &fakeService{}, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var health map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health["status"])
}

func TestPlaceholderWhenBundleMissing(t *testing.T) {
	router := newTestRouter(t, &fakeService{}, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "front end not built")
}

func TestStaticBundleServing(t *testing.T) {
	staticDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(staticDir, "index.html"), []byte("<html>dashboard</html>"), 0o644))

	cfg := &config.Config{}
	hub := broadcast.NewHub()
	t.Cleanup(hub.Close)
	router := NewRouter(NewController(cfg, &fakeService{}, hub), staticDir)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "dashboard")

	// unknown paths fall through to the SPA entry point
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/some/client/route", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "dashboard")
}

func TestStreamPortfolio(t *testing.T) {
	hub := broadcast.NewHub()
	t.Cleanup(hub.Close)

	router := newTestRouter(t, &fakeService{enriched: testEnriched()}, hub)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/sse", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)

	readEvent := func() model.EnrichedPortfolio {
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			line = strings.TrimRight(line, "\n")
			if payload, ok := strings.CutPrefix(line, "data: "); ok {
				var enriched model.EnrichedPortfolio
				require.NoError(t, json.Unmarshal([]byte(payload), &enriched))
				return enriched
			}
		}
	}

	// initial snapshot arrives without waiting for a refresh cycle
	initial := readEvent()
	assert.True(t, initial.TotalValue.Equal(dec("120")))

	// broadcast payloads are forwarded verbatim
	update := testEnriched()
	update.TotalValue = dec("150")
	payload, err := json.Marshal(update)
	require.NoError(t, err)
	hub.Publish(payload)

	pushed := readEvent()
	assert.True(t, pushed.TotalValue.Equal(dec("150")))
}
