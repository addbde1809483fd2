package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/KotFed0t/portfolio_dashboard/config"
	"github.com/KotFed0t/portfolio_dashboard/model"
	"github.com/KotFed0t/portfolio_dashboard/utils"
)

const heartbeatInterval = 30 * time.Second

type PortfolioService interface {
	GetPortfolio(ctx context.Context) (model.Portfolio, error)
	GetEnrichedPortfolio(ctx context.Context) (model.EnrichedPortfolio, error)
	BuildReport(ctx context.Context) (fileBytes []byte, fileExtension string, err error)
}

type Subscriber interface {
	Subscribe() (<-chan []byte, func())
}

type Controller struct {
	cfg *config.Config
	srv PortfolioService
	hub Subscriber
}

func NewController(cfg *config.Config, srv PortfolioService, hub Subscriber) *Controller {
	return &Controller{cfg: cfg, srv: srv, hub: hub}
}

// GetPortfolio handles GET /api/portfolio. With ?enrich=1 (or true) the
// document is returned with live prices and totals; otherwise raw.
func (c *Controller) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	enrich := r.URL.Query().Get("enrich")

	if enrich == "1" || enrich == "true" {
		enriched, err := c.srv.GetEnrichedPortfolio(r.Context())
		if err != nil {
			respondError(w, http.StatusInternalServerError, err)
			return
		}
		respondJSON(w, http.StatusOK, enriched)
		return
	}

	portfolio, err := c.srv.GetPortfolio(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}

	respondJSON(w, http.StatusOK, portfolio)
}

// GetReport handles GET /api/portfolio/report: the enriched portfolio as a
// downloadable spreadsheet.
func (c *Controller) GetReport(w http.ResponseWriter, r *http.Request) {
	fileBytes, fileExtension, err := c.srv.BuildReport(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=portfolio_report%s", fileExtension))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(fileBytes)
}

// HealthCheck handles GET /health.
func (c *Controller) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"services": map[string]string{
			"store":  c.cfg.Portfolio.File,
			"quotes": quotesStatus(c.cfg),
		},
	}

	respondJSON(w, http.StatusOK, health)
}

func quotesStatus(cfg *config.Config) string {
	if cfg.QuotesEnabled() {
		return "configured"
	}
	return "disabled (fallback pricing)"
}

// StreamPortfolio handles GET /sse. Every event carries a complete enriched
// portfolio document; clients replace their view wholesale. Heartbeats are SSE
// comments so the event stream stays documents-only.
func (c *Controller) StreamPortfolio(w http.ResponseWriter, r *http.Request) {
	rqID := utils.GetRequestIDFromCtx(r.Context())
	op := "Controller.StreamPortfolio"

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	events, unsubscribe := c.hub.Subscribe()
	defer unsubscribe()

	slog.Info("client connected to portfolio stream", slog.String("rqID", rqID), slog.String("op", op))

	// initial snapshot so the client doesn't wait a full refresh cycle
	if enriched, err := c.srv.GetEnrichedPortfolio(r.Context()); err == nil {
		if payload, err := json.Marshal(enriched); err == nil {
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		}
	} else {
		slog.Error("can't build initial stream snapshot", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	done := r.Context().Done()

	for {
		select {
		case <-done:
			slog.Info("client disconnected from portfolio stream", slog.String("rqID", rqID), slog.String("op", op))
			return

		case payload, ok := <-events:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()

		case <-heartbeat.C:
			fmt.Fprint(w, ": heartbeat\n\n")
			flusher.Flush()
		}
	}
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, err error) {
	respondJSON(w, status, map[string]string{"error": err.Error()})
}
