// Package csvlog appends emitted signals to one CSV file per pair.
package csvlog

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"signalbot/internal/model"
)

// Header is written once, when a pair's file is created.
var Header = []string{
	"datetime", "pair", "action", "price", "tp1_price", "tp2_price",
	"reason", "condition_count", "stop_loss_price", "id",
}

// Writer appends signals to <dir>/signals_<PAIR>.csv.
type Writer struct {
	mu  sync.Mutex
	dir string
}

// New creates the output directory if needed.
func New(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("csvlog mkdir %s: %w", dir, err)
	}
	return &Writer{dir: dir}, nil
}

// Path returns the CSV file for pair.
func (w *Writer) Path(pair string) string {
	return filepath.Join(w.dir, "signals_"+pair+".csv")
}

// Name implements model.SignalSink.
func (w *Writer) Name() string { return "csv" }

// WriteSignal appends one row, writing the header first if the file is new.
func (w *Writer) WriteSignal(_ context.Context, sig model.Signal) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	path := w.Path(sig.Pair)
	_, statErr := os.Stat(path)
	isNew := errors.Is(statErr, fs.ErrNotExist)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("csvlog open %s: %w", path, err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if isNew {
		cw.Write(Header)
	}
	cw.Write(Record(sig))
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("csvlog write %s: %w", path, err)
	}
	return nil
}

// Record renders sig in Header column order.
func Record(sig model.Signal) []string {
	return []string{
		sig.Time.UTC().Format(time.RFC3339),
		sig.Pair,
		sig.Action.String(),
		formatFloat(sig.Price),
		formatFloat(sig.TP1Price),
		formatFloat(sig.TP2Price),
		sig.Reason,
		strconv.Itoa(sig.ConditionCount),
		formatFloat(sig.StopLossPrice),
		sig.ID,
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
