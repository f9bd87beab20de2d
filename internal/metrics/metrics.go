package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the signal engine.
type Metrics struct {
	CandlesTotal      *prometheus.CounterVec // labels: pair
	MalformedCandles  *prometheus.CounterVec // labels: pair
	InsufficientData  *prometheus.CounterVec // labels: pair
	SignalsTotal      *prometheus.CounterVec // labels: pair, action
	StalenessOutcomes *prometheus.CounterVec // labels: outcome
	CandleDelay       *prometheus.GaugeVec   // labels: pair
	ComputeDur        prometheus.Histogram

	HistoryFetches   *prometheus.CounterVec // labels: result=ok|empty|error
	StreamReconnects prometheus.Counter
	SinkDrops        *prometheus.CounterVec // labels: sink
	SinkErrors       *prometheus.CounterVec // labels: sink

	RedisCircuitBreakerState prometheus.Gauge // 0=closed, 1=open, 2=half-open
}

// NewMetrics creates all metrics and registers them with reg.
// A nil reg registers with the Prometheus default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		CandlesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signalbot_candles_total",
			Help: "Closed candles processed",
		}, []string{"pair"}),
		MalformedCandles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signalbot_malformed_candles_total",
			Help: "Candles dropped at ingestion for non-finite or non-positive fields",
		}, []string{"pair"}),
		InsufficientData: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signalbot_insufficient_data_total",
			Help: "Updates skipped because the window held fewer than 50 candles",
		}, []string{"pair"}),
		SignalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signalbot_signals_total",
			Help: "Trade signals emitted",
		}, []string{"pair", "action"}),
		StalenessOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signalbot_staleness_outcomes_total",
			Help: "Staleness classifications (ok, resync, force_reconnect)",
		}, []string{"outcome"}),
		CandleDelay: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "signalbot_candle_delay_seconds",
			Help: "Delay between the newest candle open time and processing time",
		}, []string{"pair"}),
		ComputeDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "signalbot_evaluate_duration_seconds",
			Help:    "Indicator computation plus decision latency per candle",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
		}),

		HistoryFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signalbot_history_fetches_total",
			Help: "Historical kline fetches by result",
		}, []string{"result"}),
		StreamReconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signalbot_stream_reconnects_total",
			Help: "Kline stream reconnections (failures and forced)",
		}),
		SinkDrops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signalbot_sink_drops_total",
			Help: "Signals dropped because a sink queue was full",
		}, []string{"sink"}),
		SinkErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signalbot_sink_errors_total",
			Help: "Signal sink write failures",
		}, []string{"sink"}),

		RedisCircuitBreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "signalbot_redis_circuit_breaker_state",
			Help: "Redis circuit breaker state (0=closed, 1=open, 2=half-open)",
		}),
	}

	reg.MustRegister(
		m.CandlesTotal,
		m.MalformedCandles,
		m.InsufficientData,
		m.SignalsTotal,
		m.StalenessOutcomes,
		m.CandleDelay,
		m.ComputeDur,
		m.HistoryFetches,
		m.StreamReconnects,
		m.SinkDrops,
		m.SinkErrors,
		m.RedisCircuitBreakerState,
	)

	return m
}

// HealthStatus tracks liveness of the stream and the stores.
type HealthStatus struct {
	mu sync.RWMutex

	StreamConnected bool      `json:"stream_connected"`
	LastCandleTime  time.Time `json:"last_candle_time"`
	RedisEnabled    bool      `json:"redis_enabled"`
	RedisConnected  bool      `json:"redis_connected"`
	SQLiteOK        bool      `json:"sqlite_ok"`
	Pairs           []string  `json:"pairs"`

	RedisLatencyMs  float64   `json:"redis_latency_ms"`
	SQLiteLatencyMs float64   `json:"sqlite_latency_ms"`
	LastCheckAt     time.Time `json:"last_check_at"`
	StartedAt       time.Time `json:"started_at"`
}

// NewHealthStatus returns a default health status.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{
		StartedAt: time.Now(),
	}
}

func (h *HealthStatus) SetStreamConnected(v bool) {
	h.mu.Lock()
	h.StreamConnected = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetLastCandleTime(t time.Time) {
	h.mu.Lock()
	h.LastCandleTime = t
	h.mu.Unlock()
}

func (h *HealthStatus) SetRedisEnabled(v bool) {
	h.mu.Lock()
	h.RedisEnabled = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetSQLiteOK(v bool) {
	h.mu.Lock()
	h.SQLiteOK = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetPairs(pairs []string) {
	h.mu.Lock()
	h.Pairs = pairs
	h.mu.Unlock()
}

// CheckRedis pings Redis and records latency + connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start)

	h.mu.Lock()
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// CheckSQLite pings the journal database and records latency + health.
func (h *HealthStatus) CheckSQLite(ctx context.Context, db *sql.DB) {
	start := time.Now()
	err := db.PingContext(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.SQLiteOK = err == nil
	h.SQLiteLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// StartLivenessChecker runs periodic dependency checks. Either store may be nil.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, rdb *goredis.Client, sqlDB *sql.DB, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
				if rdb != nil {
					h.CheckRedis(probeCtx, rdb)
				}
				if sqlDB != nil {
					h.CheckSQLite(probeCtx, sqlDB)
				}
				cancel()
			}
		}
	}()
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	overallStatus := "healthy"
	httpCode := http.StatusOK

	redisDown := h.RedisEnabled && !h.RedisConnected
	if !h.StreamConnected || redisDown || !h.SQLiteOK {
		overallStatus = "degraded"
		httpCode = http.StatusServiceUnavailable
	}
	if !h.StreamConnected && !h.SQLiteOK {
		overallStatus = "unhealthy"
	}

	candleAge := ""
	if !h.LastCandleTime.IsZero() {
		candleAge = time.Since(h.LastCandleTime).Round(time.Second).String()
	}

	status := struct {
		Status          string   `json:"status"`
		Uptime          string   `json:"uptime"`
		StreamConnected bool     `json:"stream_connected"`
		LastCandleTime  string   `json:"last_candle_time"`
		CandleAge       string   `json:"candle_age"`
		RedisEnabled    bool     `json:"redis_enabled"`
		RedisConnected  bool     `json:"redis_connected"`
		RedisLatencyMs  float64  `json:"redis_latency_ms"`
		SQLiteOK        bool     `json:"sqlite_ok"`
		SQLiteLatencyMs float64  `json:"sqlite_latency_ms"`
		Pairs           []string `json:"pairs"`
		LastCheckAt     string   `json:"last_check_at"`
	}{
		Status:          overallStatus,
		Uptime:          time.Since(h.StartedAt).Round(time.Second).String(),
		StreamConnected: h.StreamConnected,
		LastCandleTime:  h.LastCandleTime.Format(time.RFC3339),
		CandleAge:       candleAge,
		RedisEnabled:    h.RedisEnabled,
		RedisConnected:  h.RedisConnected,
		RedisLatencyMs:  h.RedisLatencyMs,
		SQLiteOK:        h.SQLiteOK,
		SQLiteLatencyMs: h.SQLiteLatencyMs,
		Pairs:           h.Pairs,
		LastCheckAt:     h.LastCheckAt.Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(status)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	health *HealthStatus
	addr   string
	srv    *http.Server
}

// NewServer creates a metrics and health server. gatherer is the registry
// the metrics were registered with; nil selects the default registry.
func NewServer(addr string, health *HealthStatus, gatherer prometheus.Gatherer) *Server {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", health.ServeHTTP)

	return &Server{
		health: health,
		addr:   addr,
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Handler returns the underlying mux (used by tests).
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[metrics] server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[metrics] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
