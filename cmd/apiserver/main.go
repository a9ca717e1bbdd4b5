// Command apiserver exposes a single-instrument order book over HTTP, a
// WebSocket trade/depth feed, and a Prometheus scrape endpoint.
package main

import (
	"flag"
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kairos-exchange/orderbook/internal/book"
	cfgpkg "github.com/kairos-exchange/orderbook/internal/config"
	"github.com/kairos-exchange/orderbook/internal/feed"
	"github.com/kairos-exchange/orderbook/internal/httpapi"
	"github.com/kairos-exchange/orderbook/internal/telemetry"
	"github.com/kairos-exchange/orderbook/pkg/logger"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	bootstrapLogger, err := logger.New("info", "apiserver")
	if err != nil {
		log.Fatalf("failed to create bootstrap logger: %v", err)
	}

	mgr, err := cfgpkg.Load(*configPath, bootstrapLogger)
	if err != nil {
		bootstrapLogger.Fatal("failed to load configuration", zap.Error(err))
	}
	cfg := mgr.Current()

	zapLogger, err := logger.New(cfg.LogLevel, "apiserver")
	if err != nil {
		bootstrapLogger.Fatal("failed to create logger", zap.Error(err))
	}
	defer zapLogger.Sync()

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		zapLogger.Fatal("invalid timezone", zap.String("timezone", cfg.Timezone), zap.Error(err))
	}

	if err := mgr.Watch(); err != nil {
		zapLogger.Warn("config hot-reload disabled", zap.Error(err))
	}
	defer mgr.Close()

	b := book.NewBook(book.WithLocation(loc), book.WithCutoffHour(cfg.DailyCutoffHour))
	defer b.Close()

	hub := feed.NewHub(cfg.FeedShardCount, cfg.FeedReplaySize)

	registry := prometheus.NewRegistry()
	metrics := telemetry.New(registry)

	scale := book.TickScale{Exponent: cfg.TickExponent}

	srv := httpapi.New(b, hub, metrics, registry, scale, zapLogger)

	zapLogger.Info("starting order book API server", zap.String("addr", cfg.HTTPAddr))
	if err := srv.Router().Run(cfg.HTTPAddr); err != nil {
		zapLogger.Fatal("server exited", zap.Error(err))
	}
}
