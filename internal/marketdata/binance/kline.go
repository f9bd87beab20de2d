package binance

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"signalbot/internal/model"
)

// klineEvent is the raw "<symbol>@kline_<interval>" payload.
//
// encoding/json matches keys case-insensitively when no exact match exists,
// so the upper-case siblings ("E", "T", "L", "V", "Q") must be declared or
// they would overwrite "e", "t", "l", "v" and "q".
type klineEvent struct {
	Event     string `json:"e"`
	EventTime int64  `json:"E"`
	Symbol    string `json:"s"`
	Kline     struct {
		OpenTime      int64  `json:"t"`
		CloseTime     int64  `json:"T"`
		Symbol        string `json:"s"`
		Interval      string `json:"i"`
		Open          string `json:"o"`
		Close         string `json:"c"`
		High          string `json:"h"`
		Low           string `json:"l"`
		Volume        string `json:"v"`
		QuoteVolume   string `json:"q"`
		LastTradeID   int64  `json:"L"`
		TakerBuyBase  string `json:"V"`
		TakerBuyQuote string `json:"Q"`
		Closed        bool   `json:"x"`
	} `json:"k"`
}

// combinedEnvelope wraps events on the /stream?streams= endpoint.
type combinedEnvelope struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

// ParseKlineMessage decodes a websocket frame. ok is false for frames that
// are not closed klines (subscription acks, in-progress bars, other events).
func ParseKlineMessage(msg []byte) (c model.Candle, ok bool, err error) {
	var env combinedEnvelope
	if err := json.Unmarshal(msg, &env); err == nil && env.Stream != "" && len(env.Data) > 0 {
		msg = env.Data
	}

	var ev klineEvent
	if err := json.Unmarshal(msg, &ev); err != nil {
		return model.Candle{}, false, fmt.Errorf("decode kline: %w", err)
	}
	if ev.Event != "kline" || !ev.Kline.Closed {
		return model.Candle{}, false, nil
	}

	k := ev.Kline
	pair := k.Symbol
	if pair == "" {
		pair = ev.Symbol
	}
	if pair == "" {
		return model.Candle{}, false, fmt.Errorf("kline without symbol")
	}
	return model.Candle{
		Pair:     strings.ToUpper(pair),
		OpenTime: time.UnixMilli(k.OpenTime).UTC(),
		Open:     toFloat(k.Open),
		High:     toFloat(k.High),
		Low:      toFloat(k.Low),
		Close:    toFloat(k.Close),
		Volume:   toFloat(k.Volume),
	}, true, nil
}

// StreamName returns the kline stream name for pair, e.g. "btcusdt@kline_1m".
func StreamName(pair, interval string) string {
	return strings.ToLower(pair) + "@kline_" + interval
}

func nan() float64 { return math.NaN() }
