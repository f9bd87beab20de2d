// cmd/backtest fetches kline history from Binance and replays it through the
// same evaluation step the live bot uses, printing every signal.
//
// Usage:
//
//	go run ./cmd/backtest --pairs=BTCUSDT,ETHUSDT --limit=1000 --csv=data/backtest
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"signalbot/config"
	"signalbot/internal/marketdata/binance"
	"signalbot/internal/pipeline"
	"signalbot/internal/store/csvlog"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[backtest] config: %v", err)
	}

	pairsFlag := flag.String("pairs", strings.Join(cfg.Pairs, ","), "Comma-separated pairs to replay")
	interval := flag.String("interval", cfg.Interval, "Kline interval")
	limit := flag.Int("limit", 1000, "Candles of history per pair (max 1000)")
	capacity := flag.Int("window", cfg.WindowCapacity, "Rolling window capacity")
	csvDir := flag.String("csv", "", "Directory to write signals_<PAIR>.csv into (empty = no CSV)")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	var csvw *csvlog.Writer
	if *csvDir != "" {
		csvw, err = csvlog.New(*csvDir)
		if err != nil {
			log.Fatalf("[backtest] csv: %v", err)
		}
	}

	client := binance.NewClient(cfg.BinanceRESTURL, cfg.RESTRatePerSec, 15*time.Second)
	totalSignals := 0
	for _, pair := range strings.Split(*pairsFlag, ",") {
		pair = strings.ToUpper(strings.TrimSpace(pair))
		if pair == "" {
			continue
		}

		candles, err := client.FetchHistory(ctx, pair, *interval, *limit)
		if err != nil {
			log.Printf("[backtest] %s: %v", pair, err)
			continue
		}

		res := pipeline.Backtest(pair, candles, *capacity)
		prec := cfg.Precision(pair)
		for _, s := range res.Signals {
			fmt.Printf("  [%s] %-8s %-4s price=%.*f tp1=%.*f tp2=%.*f sl=%.*f  %s\n",
				s.Time.Format("2006-01-02 15:04"), s.Pair, strings.ToUpper(s.Action.String()),
				prec, s.Price, prec, s.TP1Price, prec, s.TP2Price, prec, s.StopLossPrice, s.Reason)
			if csvw != nil {
				if err := csvw.WriteSignal(ctx, s); err != nil {
					log.Printf("[backtest] csv %s: %v", pair, err)
				}
			}
		}
		totalSignals += len(res.Signals)

		fmt.Println()
		fmt.Println("╔══════════════════════════════════════╗")
		fmt.Printf("║  %-36s║\n", pair+" BACKTEST")
		fmt.Println("╠══════════════════════════════════════╣")
		fmt.Printf("║  Candles:           %-16d ║\n", res.Bars)
		fmt.Printf("║  Evaluated bars:    %-16d ║\n", res.Evaluated)
		fmt.Printf("║  Malformed skipped: %-16d ║\n", res.Malformed)
		fmt.Printf("║  Signals:           %-16d ║\n", len(res.Signals))
		fmt.Printf("║  Final state:       %-16s ║\n", fmt.Sprintf("%s/%d", res.Final.LastAction, res.Final.HighestConditionCount))
		fmt.Println("╚══════════════════════════════════════╝")
	}
	log.Printf("[backtest] done, %d signals", totalSignals)
}
