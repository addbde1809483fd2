package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/KotFed0t/portfolio_dashboard/config"
	"github.com/KotFed0t/portfolio_dashboard/data"
	"github.com/KotFed0t/portfolio_dashboard/data/cache"
	"github.com/KotFed0t/portfolio_dashboard/data/repository/jsonfile"
	"github.com/KotFed0t/portfolio_dashboard/internal/broadcast"
	"github.com/KotFed0t/portfolio_dashboard/internal/externalApi/alphaVantageApi"
	"github.com/KotFed0t/portfolio_dashboard/internal/externalApi/yahooApi"
	"github.com/KotFed0t/portfolio_dashboard/internal/reportGenerator/xlsxGenerator"
	"github.com/KotFed0t/portfolio_dashboard/internal/scheduler"
	"github.com/KotFed0t/portfolio_dashboard/internal/service/portfolioService"
	"github.com/KotFed0t/portfolio_dashboard/internal/transport/rest"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg := config.MustLoad()

	setupLogger(cfg)

	slog.Debug("config", slog.Any("cfg", cfg))

	store := jsonfile.New(cfg)

	var quoteCache portfolioService.Cache
	if redisClient := data.NewRedisClient(cfg); redisClient != nil {
		defer redisClient.Close()
		quoteCache = cache.NewRedisCache(redisClient, cfg)
	}

	providers := []portfolioService.QuoteProvider{
		alphaVantageApi.New(cfg),
		yahooApi.New(cfg),
	}
	if !cfg.QuotesEnabled() {
		slog.Warn("no quote provider credential configured, enrichment uses fallback pricing only")
	}

	reportGenerator := xlsxGenerator.New()

	hub := broadcast.NewHub()
	defer hub.Close()

	portfolioSrv := portfolioService.New(cfg, store, quoteCache, providers, reportGenerator, hub)

	sched := scheduler.New()
	sched.NewIntervalJob("refresh portfolio", portfolioSrv.RefreshAndBroadcast, cfg.Jobs.RefreshInterval, true)
	sched.Start()
	defer sched.Stop()

	controller := rest.NewController(cfg, portfolioSrv, hub)
	router := rest.NewRouter(controller, cfg.HTTP.StaticDir)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		slog.Info("starting server", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", slog.String("err", err.Error()))
			os.Exit(1)
		}
	}()

	// Waiting interruption signal
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	<-interrupt

	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", slog.String("err", err.Error()))
	}

	slog.Info("server stopped")
}

func setupLogger(cfg *config.Config) {
	var logLevel slog.Level

	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warning":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(log)
}
