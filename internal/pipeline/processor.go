package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"signalbot/internal/indicator"
	"signalbot/internal/logger"
	"signalbot/internal/metrics"
	"signalbot/internal/model"
	"signalbot/internal/staleness"
	"signalbot/internal/strategy"
	"signalbot/internal/window"
)

// ErrNoHistory is returned when the history fetcher yields no candles for a
// pair that needs seeding. The update is skipped without touching the window.
var ErrNoHistory = errors.New("pipeline: no history available")

// Result describes what one Process call did.
type Result struct {
	Pair    string
	Outcome staleness.Outcome
	Delay   time.Duration

	// Evaluated is false when the update stopped before the strategy ran
	// (seed failure, malformed candle, short window, forced reconnect).
	Evaluated bool
	Snapshot  indicator.Snapshot
	Signal    *model.Signal
}

// ProcessorConfig controls history refills and debug output.
type ProcessorConfig struct {
	Interval     string // kline interval passed to the fetcher, e.g. "1m"
	HistoryLimit int    // candles requested per refill
	Debug        bool   // dump the indicator row when no signal fires
}

// Processor is the live-mode driver step. It is not safe for concurrent
// use: run it from the single goroutine that owns the registry's contexts.
type Processor struct {
	cfg      ProcessorConfig
	registry *Registry
	fetcher  model.HistoryFetcher
	monitor  *staleness.Monitor
	log      *slog.Logger
	prom     *metrics.Metrics // nil disables metrics
}

// NewProcessor wires a processor. A nil monitor uses staleness defaults and
// a nil logger uses slog.Default().
func NewProcessor(cfg ProcessorConfig, reg *Registry, fetcher model.HistoryFetcher, mon *staleness.Monitor, log *slog.Logger, prom *metrics.Metrics) *Processor {
	if cfg.Interval == "" {
		cfg.Interval = "1m"
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = window.DefaultCapacity
	}
	if mon == nil {
		mon = staleness.New()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Processor{
		cfg:      cfg,
		registry: reg,
		fetcher:  fetcher,
		monitor:  mon,
		log:      log,
		prom:     prom,
	}
}

// Process ingests one closed candle and returns the decision outcome.
// The returned error is informational; the pair stays usable afterwards.
func (p *Processor) Process(ctx context.Context, c model.Candle) (Result, error) {
	ctx = logger.WithCandleID(ctx, logger.NewCandleID(c.Pair, c.OpenTime))
	res := Result{Pair: c.Pair}

	if err := c.Validate(); err != nil {
		p.malformed(ctx, c.Pair, err)
		return res, err
	}
	if p.prom != nil {
		p.prom.CandlesTotal.WithLabelValues(c.Pair).Inc()
	}

	pc := p.registry.Context(c.Pair)
	defer func() {
		pc.updatedAt = time.Now()
		p.registry.Publish(pc)
	}()

	// Seed an unseen pair from history; the candle is appended on top.
	if pc.Window.Len() == 0 {
		if err := p.refill(ctx, pc, c); err != nil {
			p.log.Warn("seed skipped", append(logger.Attrs(ctx), "pair", c.Pair, "error", err)...)
			return res, err
		}
	} else if err := pc.Window.Append(c); err != nil {
		p.malformed(ctx, c.Pair, err)
		return res, err
	}

	if pc.Window.Len() < window.MinLength {
		if err := p.refill(ctx, pc, c); err != nil {
			p.log.Warn("refill failed", append(logger.Attrs(ctx), "pair", c.Pair, "error", err)...)
		}
		if pc.Window.Len() < window.MinLength {
			if p.prom != nil {
				p.prom.InsufficientData.WithLabelValues(c.Pair).Inc()
			}
			p.log.Info("insufficient data", append(logger.Attrs(ctx), "pair", c.Pair, "window_len", pc.Window.Len())...)
			return res, fmt.Errorf("%s: %w", c.Pair, indicator.ErrInsufficientData)
		}
	}

	outcome, delay := p.monitor.Check(c.OpenTime)
	res.Outcome, res.Delay = outcome, delay
	pc.outcome, pc.delay = outcome, delay
	if p.prom != nil {
		p.prom.StalenessOutcomes.WithLabelValues(outcome.String()).Inc()
		p.prom.CandleDelay.WithLabelValues(c.Pair).Set(delay.Seconds())
	}

	if outcome.NeedsResync() {
		p.log.Warn("stale candle, resyncing", append(logger.Attrs(ctx),
			"pair", c.Pair, "delay_sec", delay.Seconds(), "outcome", outcome.String())...)
		if err := p.refill(ctx, pc, c); err != nil {
			// refill leaves the window alone on error, and c is already in it.
			p.log.Warn("resync failed", append(logger.Attrs(ctx), "pair", c.Pair, "error", err)...)
		}
	}
	if outcome.NeedsReconnect() {
		return res, nil
	}

	start := time.Now()
	sig, next, snap, err := strategy.Evaluate(closedUpTo(pc.Window.Candles(), c.OpenTime), pc.State)
	if p.prom != nil {
		p.prom.ComputeDur.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		return res, err
	}

	pc.State = next
	pc.snapshot, pc.hasSnapshot = snap, true
	res.Evaluated = true
	res.Snapshot = snap

	if sig == nil {
		if p.cfg.Debug && !pc.LastDebugAt.Equal(snap.OpenTime) {
			pc.LastDebugAt = snap.OpenTime
			p.log.Debug("no signal", append(logger.Attrs(ctx), "row", snap.String())...)
		}
		return res, nil
	}

	sig.ID = uuid.NewString()
	pc.lastSignal = sig
	res.Signal = sig
	if p.prom != nil {
		p.prom.SignalsTotal.WithLabelValues(sig.Pair, sig.Action.String()).Inc()
	}
	p.log.Info("signal", append(logger.Attrs(ctx),
		"pair", sig.Pair, "action", sig.Action.String(), "price", sig.Price,
		"conditions", sig.ConditionCount, "reason", sig.Reason)...)
	return res, nil
}

// refill replaces the window with fresh history and re-appends c, which may
// be newer than the last bar the exchange has published.
//
// Bars opening after c are dropped: the exchange returns the still-open
// kline as its last row. A window already holding MinLength candles is not
// replaced by a history too short to reach MinLength.
func (p *Processor) refill(ctx context.Context, pc *PairContext, c model.Candle) error {
	history, err := p.fetcher.FetchHistory(ctx, pc.Pair, p.cfg.Interval, p.cfg.HistoryLimit)
	if err != nil {
		p.countFetch("error")
		return fmt.Errorf("fetch history %s: %w", pc.Pair, err)
	}
	history = closedUpTo(history, c.OpenTime)
	if len(history) == 0 {
		p.countFetch("empty")
		return fmt.Errorf("%s: %w", pc.Pair, ErrNoHistory)
	}
	p.countFetch("ok")

	if pc.Window.Ready() && len(history)+1 < window.MinLength {
		return fmt.Errorf("%s: history of %d candles is shorter than the current window", pc.Pair, len(history))
	}

	if skipped := pc.Window.Reset(history); skipped > 0 {
		p.log.Warn("history contained malformed candles", append(logger.Attrs(ctx), "pair", pc.Pair, "skipped", skipped)...)
	}
	return pc.Window.Append(c)
}

// closedUpTo filters history in place down to candles opening no later than t.
func closedUpTo(history []model.Candle, t time.Time) []model.Candle {
	out := history[:0]
	for _, h := range history {
		if !h.OpenTime.After(t) {
			out = append(out, h)
		}
	}
	return out
}

func (p *Processor) countFetch(result string) {
	if p.prom != nil {
		p.prom.HistoryFetches.WithLabelValues(result).Inc()
	}
}

func (p *Processor) malformed(ctx context.Context, pair string, err error) {
	if p.prom != nil {
		p.prom.MalformedCandles.WithLabelValues(pair).Inc()
	}
	p.log.Warn("dropping malformed candle", append(logger.Attrs(ctx), "pair", pair, "error", err)...)
}
