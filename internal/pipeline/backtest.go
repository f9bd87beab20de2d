package pipeline

import (
	"github.com/google/uuid"

	"signalbot/internal/model"
	"signalbot/internal/strategy"
	"signalbot/internal/window"
)

// BacktestResult is the outcome of replaying a candle history.
type BacktestResult struct {
	Pair      string
	Bars      int // candles fed to the window
	Evaluated int // bars with a full indicator window
	Malformed int
	Signals   []model.Signal
	Final     strategy.TradeState
}

// Backtest replays candles oldest first through a rolling window of
// capacity candles, evaluating every bar with state carried forward from a
// fresh TradeState. It is the batch-mode counterpart of Processor.Process
// and shares the same pure strategy.Evaluate step.
func Backtest(pair string, candles []model.Candle, capacity int) BacktestResult {
	res := BacktestResult{Pair: pair}
	w := window.New(pair, capacity)
	var state strategy.TradeState

	for _, c := range candles {
		if c.Pair == "" {
			c.Pair = pair
		}
		if err := w.Append(c); err != nil {
			res.Malformed++
			continue
		}
		res.Bars++
		if !w.Ready() {
			continue
		}

		sig, next, _, err := strategy.Evaluate(w.Candles(), state)
		if err != nil {
			continue
		}
		res.Evaluated++
		state = next
		if sig != nil {
			sig.ID = uuid.NewString()
			res.Signals = append(res.Signals, *sig)
		}
	}

	res.Final = state
	return res
}
