// cmd/signalbot follows closed Binance klines for the configured pairs and
// emits buy/sell signals to the journal, CSV, Redis and alert channels.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"signalbot/config"
	"signalbot/internal/api"
	"signalbot/internal/gateway"
	"signalbot/internal/logger"
	"signalbot/internal/marketdata/binance"
	"signalbot/internal/metrics"
	"signalbot/internal/notification"
	"signalbot/internal/pipeline"
	"signalbot/internal/staleness"
	"signalbot/internal/store/csvlog"
	redisstore "signalbot/internal/store/redis"
	sqlitestore "signalbot/internal/store/sqlite"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	log.Println("[signalbot] starting...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[signalbot] config: %v", err)
	}
	level := logger.ParseLevel(cfg.LogLevel)
	if cfg.Debug {
		level = slog.LevelDebug
	}
	lg := logger.Init("signalbot", level)
	log.Printf("[signalbot] pairs=%v interval=%s history=%d", cfg.Pairs, cfg.Interval, cfg.HistoryLimit)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	// ---- Metrics & health ----
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom := metrics.NewMetrics(reg)
	health := metrics.NewHealthStatus()
	metricsSrv := metrics.NewServer(cfg.MetricsAddr, health, reg)
	metricsSrv.Start()

	// ---- Market data ----
	rest := binance.NewClient(cfg.BinanceRESTURL, cfg.RESTRatePerSec, 10*time.Second)
	stream := binance.NewStream(binance.StreamConfig{
		BaseURL:        cfg.BinanceWSURL,
		Pairs:          cfg.Pairs,
		Interval:       cfg.Interval,
		ReconnectDelay: cfg.ReconnectDelay,
	})
	stream.OnConnect = func() { health.SetStreamConnected(true) }
	stream.OnDisconnect = func(error) {
		health.SetStreamConnected(false)
		prom.StreamReconnects.Inc()
	}

	// ---- Signal sinks ----
	bus := pipeline.NewSignalBus(256)
	bus.OnDrop = func(sink string) {
		prom.SinkDrops.WithLabelValues(sink).Inc()
		log.Printf("[signalbot] sink %s queue full, dropped signal", sink)
	}
	bus.OnError = func(sink string, err error) {
		prom.SinkErrors.WithLabelValues(sink).Inc()
		log.Printf("[signalbot] sink %s: %v", sink, err)
	}

	journal, err := sqlitestore.Open(cfg.SQLitePath)
	if err != nil {
		log.Fatalf("[signalbot] journal: %v", err)
	}
	defer journal.Close()
	bus.Attach(journal)
	health.SetSQLiteOK(true)

	if cfg.SaveCSV {
		csvw, err := csvlog.New(cfg.CSVDir)
		if err != nil {
			log.Fatalf("[signalbot] csv: %v", err)
		}
		bus.Attach(csvw)
	}

	var publisher *redisstore.Publisher
	if cfg.RedisAddr != "" {
		health.SetRedisEnabled(true)
		publisher, err = redisstore.Connect(ctx, redisstore.PublisherConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err != nil {
			// Keep running; the breaker fails writes fast until Redis is back.
			log.Printf("[signalbot] WARNING: %v (publishing anyway)", err)
			publisher = redisstore.NewPublisher(redisstore.PublisherConfig{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		}
		defer publisher.Close()
		publisher.Breaker().OnStateChange = func(from, to redisstore.State) {
			prom.RedisCircuitBreakerState.Set(float64(to))
			log.Printf("[signalbot] redis breaker %s → %s", from, to)
		}
		bus.Attach(publisher)
	}

	bus.Attach(notification.NewSignalAlerts(buildNotifier(cfg, lg), cfg.Precision))

	hub := gateway.NewHub(200, lg)
	defer hub.Close()
	bus.Attach(hub)

	var rdb *goredis.Client
	if publisher != nil {
		rdb = publisher.Client()
	}
	health.StartLivenessChecker(ctx, rdb, journal.DB(), 15*time.Second)

	// ---- Pipeline ----
	registry := pipeline.NewRegistry(cfg.WindowCapacity)
	monitor := &staleness.Monitor{
		ResyncAfter:    cfg.ResyncAfter,
		ReconnectAfter: cfg.ReconnectAfter,
		Now:            time.Now,
	}
	processor := pipeline.NewProcessor(pipeline.ProcessorConfig{
		Interval:     cfg.Interval,
		HistoryLimit: cfg.HistoryLimit,
		Debug:        cfg.Debug,
	}, registry, rest, monitor, lg, prom)

	svc := &pipeline.Service{
		Pairs:     cfg.Pairs,
		Interval:  cfg.Interval,
		History:   cfg.HistoryLimit,
		Stream:    stream,
		Fetcher:   rest,
		Processor: processor,
		Registry:  registry,
		Bus:       bus,
		Health:    health,
	}
	if publisher != nil {
		svc.Snapshots = publisher
	}
	svc.Preload(ctx)

	// ---- HTTP API ----
	gin.SetMode(gin.ReleaseMode)
	apiSrv := api.NewServer(registry, journal)
	apiSrv.MountStream(hub)
	go func() {
		log.Printf("[signalbot] API listening on %s", cfg.HTTPAddr)
		if err := apiSrv.Start(ctx, cfg.HTTPAddr); err != nil {
			log.Printf("[signalbot] API server error: %v", err)
		}
	}()

	log.Printf("[signalbot] ✅ all systems running (sinks %v). Press Ctrl+C to stop.", bus.Sinks())
	if err := svc.Run(ctx); err != nil {
		log.Printf("[signalbot] run: %v", err)
	}

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer shutCancel()
	metricsSrv.Stop(shutCtx)
	log.Println("[signalbot] shutdown complete.")
}

// buildNotifier always logs alerts and adds Telegram / webhook delivery
// when configured.
func buildNotifier(cfg *config.Config, lg *slog.Logger) notification.Notifier {
	multi := notification.Multi{notification.NewLogNotifier(lg)}
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != "" {
		multi = append(multi, notification.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID))
	}
	if cfg.WebhookURL != "" {
		multi = append(multi, notification.NewWebhookNotifier(cfg.WebhookURL))
	}
	return multi
}
