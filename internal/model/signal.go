package model

import (
	"encoding/json"
	"time"
)

// Action is the side of a trade signal.
type Action string

const (
	ActionNone Action = ""
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
)

func (a Action) String() string {
	if a == ActionNone {
		return "none"
	}
	return string(a)
}

// Signal is an emitted trade signal. It is never modified after creation.
type Signal struct {
	ID             string    `json:"id"`
	Time           time.Time `json:"datetime"` // open time of the candle that produced it
	Pair           string    `json:"pair"`
	Action         Action    `json:"action"`
	Price          float64   `json:"price"`
	TP1Price       float64   `json:"tp1_price"`
	TP2Price       float64   `json:"tp2_price"`
	StopLossPrice  float64   `json:"stop_loss_price"`
	Reason         string    `json:"reason"`
	ConditionCount int       `json:"condition_count"`
}

// JSON returns the JSON-encoded signal.
func (s *Signal) JSON() []byte {
	b, _ := json.Marshal(s)
	return b
}
