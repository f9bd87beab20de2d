package model

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestCandle_Validate(t *testing.T) {
	ok := Candle{Pair: "BTCUSDT", OpenTime: time.Now(), Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 3}
	if err := ok.Validate(); err != nil {
		t.Fatalf("expected valid candle, got %v", err)
	}

	bad := ok
	bad.Close = math.Inf(-1)
	if err := bad.Validate(); !errors.Is(err, ErrMalformedCandle) {
		t.Errorf("expected ErrMalformedCandle for -Inf close, got %v", err)
	}

	bad = ok
	bad.Volume = -2
	if err := bad.Validate(); !errors.Is(err, ErrMalformedCandle) {
		t.Errorf("expected ErrMalformedCandle for negative volume, got %v", err)
	}
}

func TestAction_String(t *testing.T) {
	if ActionNone.String() != "none" {
		t.Errorf("expected none, got %q", ActionNone.String())
	}
	if ActionBuy.String() != "buy" || ActionSell.String() != "sell" {
		t.Errorf("unexpected action strings %q %q", ActionBuy, ActionSell)
	}
}
