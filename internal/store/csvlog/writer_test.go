package csvlog

import (
	"context"
	"encoding/csv"
	"os"
	"testing"
	"time"

	"signalbot/internal/model"
)

func TestWriter_HeaderOnceThenAppend(t *testing.T) {
	w, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	buy := model.Signal{
		ID: "id-1", Time: at, Pair: "ETHUSDT", Action: model.ActionBuy,
		Price: 3000.5, TP1Price: 3150.525, TP2Price: 3225.5375, StopLossPrice: 2850.475,
		Reason: "Buy: 4/5 conditions met (Risk: Intermediate, Met: Cond 1, Cond 2, Cond 3, Cond 5)", ConditionCount: 4,
	}
	sell := buy
	sell.ID, sell.Action, sell.Time = "id-2", model.ActionSell, at.Add(time.Minute)

	ctx := context.Background()
	if err := w.WriteSignal(ctx, buy); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteSignal(ctx, sell); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(w.Path("ETHUSDT"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "datetime" || rows[0][7] != "condition_count" {
		t.Errorf("unexpected header %v", rows[0])
	}
	if rows[1][0] != "2024-03-01T12:00:00Z" || rows[1][2] != "buy" || rows[1][3] != "3000.5" || rows[1][6] != buy.Reason {
		t.Errorf("unexpected buy row %v", rows[1])
	}
	if rows[2][2] != "sell" || rows[2][9] != "id-2" {
		t.Errorf("unexpected sell row %v", rows[2])
	}
}

func TestWriter_FilePerPair(t *testing.T) {
	w, _ := New(t.TempDir())
	ctx := context.Background()
	w.WriteSignal(ctx, model.Signal{Pair: "BTCUSDT", Action: model.ActionBuy})
	w.WriteSignal(ctx, model.Signal{Pair: "SOLUSDT", Action: model.ActionBuy})

	for _, p := range []string{"BTCUSDT", "SOLUSDT"} {
		if _, err := os.Stat(w.Path(p)); err != nil {
			t.Errorf("%s: %v", p, err)
		}
	}
}
