package strategy

import (
	"fmt"
	"strconv"
	"strings"

	"signalbot/internal/indicator"
)

// NumConditions is the size of each condition set.
const NumConditions = 5

// Thresholds used by the condition sets.
const (
	RSIMidline      = 50.0
	StochOverbought = 80.0
	StochOversold   = 20.0
)

// Conditions holds the outcome of one condition set, in table order:
// RSI, MACD vs signal, EMA50 slope, close vs Bollinger band, %K.
type Conditions [NumConditions]bool

// BuyConditions evaluates the five buy conditions against s.
func BuyConditions(s indicator.Snapshot) Conditions {
	return Conditions{
		s.RSI < RSIMidline,
		s.MACD > s.MACDSignal,
		s.Bullish(),
		s.Close < s.BBUpper,
		s.StochK < StochOverbought,
	}
}

// SellConditions evaluates the five sell conditions against s.
func SellConditions(s indicator.Snapshot) Conditions {
	return Conditions{
		s.RSI > RSIMidline,
		s.MACD < s.MACDSignal,
		!s.Bullish(),
		s.Close > s.BBLower,
		s.StochK > StochOversold,
	}
}

// Count returns how many conditions hold.
func (c Conditions) Count() int {
	n := 0
	for _, ok := range c {
		if ok {
			n++
		}
	}
	return n
}

// Met returns the 1-based indices of the conditions that hold.
func (c Conditions) Met() []int {
	var met []int
	for i, ok := range c {
		if ok {
			met = append(met, i+1)
		}
	}
	return met
}

// RiskLabel maps a condition count to its label.
// The ordering (3 "Quite Strong", 5 "Strong") is kept as the bot has always
// reported it.
func RiskLabel(count int) string {
	switch count {
	case 3:
		return "Quite Strong"
	case 4:
		return "Intermediate"
	default:
		return "Strong"
	}
}

// reason renders e.g. "Buy: 4/5 conditions met (Risk: Intermediate, Met: Cond 1, Cond 2, Cond 3, Cond 5)".
func reason(side string, c Conditions) string {
	met := c.Met()
	conds := make([]string, len(met))
	for i, idx := range met {
		conds[i] = "Cond " + strconv.Itoa(idx)
	}
	count := c.Count()
	return fmt.Sprintf("%s: %d/%d conditions met (Risk: %s, Met: %s)",
		side, count, NumConditions, RiskLabel(count), strings.Join(conds, ", "))
}
