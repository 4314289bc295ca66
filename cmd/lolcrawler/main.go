// lolcrawler crawls the competitive match graph of the Riot API: it seeds
// from high-tier players, ingests each player's recent matches, and expands
// through discovered participants while honoring the upstream rate limits.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"lolcrawler/pkg/config"
	"lolcrawler/pkg/crawler"
	"lolcrawler/pkg/logx"
	"lolcrawler/pkg/metrics"
	"lolcrawler/pkg/persistence"
	"lolcrawler/pkg/ratelimit"
	"lolcrawler/pkg/riot"
)

func main() {
	os.Exit(run())
}

func run() int {
	logger := logx.NewLogger("main")

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration: %v", err)
		return 1
	}
	if strings.EqualFold(cfg.Logging.Level, "debug") {
		logx.SetDebug(true)
	}

	sessionID := uuid.New().String()
	logger.Info("starting crawl session %s", sessionID)

	store, err := persistence.Open(cfg.DatabaseURL, sessionID)
	if err != nil {
		logger.Error("failed to open store: %v", err)
		return 1
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close store: %v", err)
		}
	}()

	recorder := metrics.NewRecorder()
	if cfg.MetricsAddr != "" {
		go serveMetrics(cfg.MetricsAddr, logger)
	}

	limiter := ratelimit.NewLimiter(cfg.RateLimits, recorder)
	gateway := riot.NewClient(&cfg, limiter, store, recorder)
	engine := crawler.NewEngine(&cfg, gateway, store, recorder)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	engine.Start(ctx)

	<-ctx.Done()
	logger.Info("shutdown signal received")
	engine.Stop()
	engine.Wait()

	logger.Info("crawler stopped cleanly")
	return 0
}

func serveMetrics(addr string, logger *logx.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	logger.Info("metrics listening on %s", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("metrics server failed: %v", err)
	}
}
