// Package strategy turns an indicator snapshot into trade signals.
//
// Decisions are gated by a per-pair hysteresis state machine:
//
//	Idle  (last action none or sell) --buy_count>=3-------------------> Armed
//	Armed (last action buy)          --buy_count>highest--------------> Armed (upgraded)
//	Armed                            --sell_count>=3------------------> Idle
//
// A repeated buy only fires on strictly greater strength, and a sell only
// fires directly after a buy.
package strategy

import "signalbot/internal/model"

// TradeState is the per-pair decision memory. The zero value is the initial
// state {none, 0}. It lives for the process lifetime and is never persisted.
type TradeState struct {
	LastAction            model.Action `json:"last_action"`
	HighestConditionCount int          `json:"highest_condition_count"`
}

// Armed reports whether the last emitted signal was a buy.
func (s TradeState) Armed() bool { return s.LastAction == model.ActionBuy }
