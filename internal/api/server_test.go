package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"signalbot/internal/model"
	"signalbot/internal/pipeline"
	"signalbot/internal/strategy"
)

type stubPairs map[string]pipeline.PairView

func (s stubPairs) Views() []pipeline.PairView {
	out := make([]pipeline.PairView, 0, len(s))
	for _, v := range s {
		out = append(out, v)
	}
	return out
}

func (s stubPairs) View(pair string) (pipeline.PairView, bool) {
	v, ok := s[pair]
	return v, ok
}

type stubSignals struct {
	sigs      []model.Signal
	err       error
	lastPair  string
	lastLimit int
}

func (s *stubSignals) Recent(_ context.Context, limit int) ([]model.Signal, error) {
	s.lastPair, s.lastLimit = "", limit
	return s.sigs, s.err
}

func (s *stubSignals) ByPair(_ context.Context, pair string, limit int) ([]model.Signal, error) {
	s.lastPair, s.lastLimit = pair, limit
	return s.sigs, s.err
}

func newTestServer(sigs SignalStore) *Server {
	gin.SetMode(gin.TestMode)
	pairs := stubPairs{
		"BTCUSDT": {Pair: "BTCUSDT", WindowLen: 100, State: strategy.TradeState{LastAction: model.ActionBuy, HighestConditionCount: 4}},
	}
	return NewServer(pairs, sigs)
}

func do(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealth(t *testing.T) {
	rec := do(t, newTestServer(nil), "/api/v1/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var body map[string]any
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["status"] != "ok" || body["pairs"] != float64(1) || body["journal"] != false {
		t.Errorf("unexpected body %v", body)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}
}

func TestGetPair(t *testing.T) {
	s := newTestServer(nil)

	rec := do(t, s, "/api/v1/pairs/btcusdt")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var v pipeline.PairView
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatal(err)
	}
	if v.Pair != "BTCUSDT" || v.WindowLen != 100 || v.State.LastAction != model.ActionBuy || v.State.HighestConditionCount != 4 {
		t.Errorf("unexpected view %+v", v)
	}

	if rec := do(t, s, "/api/v1/pairs/DOGEUSDT"); rec.Code != http.StatusNotFound {
		t.Errorf("unknown pair: status %d", rec.Code)
	}
}

func TestListPairs(t *testing.T) {
	rec := do(t, newTestServer(nil), "/api/v1/pairs")
	var body struct {
		Pairs []pipeline.PairView `json:"pairs"`
	}
	json.Unmarshal(rec.Body.Bytes(), &body)
	if len(body.Pairs) != 1 || body.Pairs[0].Pair != "BTCUSDT" {
		t.Errorf("unexpected pairs %+v", body.Pairs)
	}
}

func TestListSignals(t *testing.T) {
	store := &stubSignals{sigs: []model.Signal{{ID: "a", Pair: "ETHUSDT", Action: model.ActionSell}}}
	s := newTestServer(store)

	rec := do(t, s, "/api/v1/signals?pair=ethusdt&limit=10000")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if store.lastPair != "ETHUSDT" || store.lastLimit != maxSignalLimit {
		t.Errorf("store called with pair=%q limit=%d", store.lastPair, store.lastLimit)
	}
	var body struct {
		Signals []model.Signal `json:"signals"`
		Count   int            `json:"count"`
	}
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body.Count != 1 || body.Signals[0].Action != model.ActionSell {
		t.Errorf("unexpected body %+v", body)
	}

	do(t, s, "/api/v1/signals")
	if store.lastPair != "" || store.lastLimit != defaultSignalLimit {
		t.Errorf("default query: pair=%q limit=%d", store.lastPair, store.lastLimit)
	}
}

func TestListSignals_Errors(t *testing.T) {
	if rec := do(t, newTestServer(nil), "/api/v1/signals"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("no journal: status %d", rec.Code)
	}

	s := newTestServer(&stubSignals{})
	for _, q := range []string{"limit=0", "limit=-3", "limit=abc"} {
		if rec := do(t, s, "/api/v1/signals?"+q); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status %d", q, rec.Code)
		}
	}

	s = newTestServer(&stubSignals{err: errors.New("disk I/O error")})
	if rec := do(t, s, "/api/v1/signals"); rec.Code != http.StatusInternalServerError {
		t.Errorf("store error: status %d", rec.Code)
	}
}
