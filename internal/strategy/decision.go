package strategy

import (
	"signalbot/internal/indicator"
	"signalbot/internal/model"
)

// MinConditions is the number of conditions that must hold for a signal.
const MinConditions = 3

// Price target multipliers.
const (
	BuyTP1      = 1.05
	BuyTP2      = 1.075
	BuyStopLoss = 0.95

	SellTP1      = 0.95
	SellTP2      = 0.925
	SellStopLoss = 1.05
)

// Decide evaluates snap against state and returns the signal to emit (nil
// for none) together with the next state. It has no side effects; the
// caller owns storing the returned state.
//
// Rules, first match wins:
//  1. buy_count >= 3 and (not armed, or buy_count > highest) → buy
//  2. sell_count >= 3 and armed → sell
//  3. otherwise nothing, state unchanged
func Decide(snap indicator.Snapshot, state TradeState) (*model.Signal, TradeState) {
	buy := BuyConditions(snap)
	sell := SellConditions(snap)
	buyCount, sellCount := buy.Count(), sell.Count()

	if buyCount >= MinConditions && (!state.Armed() || buyCount > state.HighestConditionCount) {
		sig := newSignal(snap, model.ActionBuy, buyCount, reason("Buy", buy))
		return sig, TradeState{LastAction: model.ActionBuy, HighestConditionCount: buyCount}
	}

	if sellCount >= MinConditions && state.Armed() {
		sig := newSignal(snap, model.ActionSell, sellCount, reason("Sell", sell))
		return sig, TradeState{LastAction: model.ActionSell, HighestConditionCount: 0}
	}

	return nil, state
}

// Evaluate computes the indicator snapshot for candles and decides on it.
// Both the live and the backtest drivers call this once per bar. On
// indicator.ErrInsufficientData the state is returned unchanged.
func Evaluate(candles []model.Candle, state TradeState) (*model.Signal, TradeState, indicator.Snapshot, error) {
	snap, err := indicator.Compute(candles)
	if err != nil {
		return nil, state, indicator.Snapshot{}, err
	}
	sig, next := Decide(snap, state)
	return sig, next, snap, nil
}

func newSignal(snap indicator.Snapshot, action model.Action, count int, why string) *model.Signal {
	price := snap.Close
	sig := &model.Signal{
		Time:           snap.OpenTime,
		Pair:           snap.Pair,
		Action:         action,
		Price:          price,
		Reason:         why,
		ConditionCount: count,
	}
	switch action {
	case model.ActionBuy:
		sig.TP1Price = price * BuyTP1
		sig.TP2Price = price * BuyTP2
		sig.StopLossPrice = price * BuyStopLoss
	case model.ActionSell:
		sig.TP1Price = price * SellTP1
		sig.TP2Price = price * SellTP2
		sig.StopLossPrice = price * SellStopLoss
	}
	return sig
}
