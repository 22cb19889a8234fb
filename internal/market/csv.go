package market

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"illuminator/internal/model"
)

// Result file names are fixed; they are one-way observability artifacts
// and never read back during a run.
const (
	dayAheadResultFile = "Emarket_results.csv"
	p2pResultFile      = "Ftrading_results.csv"
	realtimeResultFile = "RTprice_result.csv"
)

func writeDayAheadCSV(dir string, settlements map[string]*Settlement) error {
	f, err := createResultFile(dir, dayAheadResultFile)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{"player", "book", "slot", "quantity", "price", "cleared_quantity", "revenue", "cost"}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, player := range sortedKeys(settlements) {
		s := settlements[player]
		for _, b := range s.Received {
			row := []string{player, "received", b.Slot.Format(), fmtFloat(b.Quantity), fmtFloat(b.Price), "", "", ""}
			if err := w.Write(row); err != nil {
				return err
			}
		}
		for _, ab := range s.Accepted {
			row := []string{player, "accepted", ab.Slot.Format(), fmtFloat(ab.Quantity), fmtFloat(ab.Price), fmtFloat(ab.ClearedQuantity), "", ""}
			if err := w.Write(row); err != nil {
				return err
			}
		}
		row := []string{player, "total", "", "", "", "", fmtFloat(s.Revenue), fmtFloat(s.Cost)}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	return w.Error()
}

func writeP2PCSV(dir string, trades []Trade, transactions map[string]*TransactionBook, revenue, cost map[string]float64) error {
	f, err := createResultFile(dir, p2pResultFile)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{"record", "slot", "player", "counterparty", "quantity", "price", "original_quantity", "original_price", "revenue", "cost"}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, t := range trades {
		row := []string{"trade", t.Slot.Format(), t.Requester, t.Offerer, fmtFloat(t.Quantity), fmtFloat(t.Price), fmtFloat(t.RequestQty), fmtFloat(t.RequestPrice), "", ""}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	for _, player := range sortedKeys(transactions) {
		row := []string{"total", "", player, "", "", "", "", "", fmtFloat(revenue[player]), fmtFloat(cost[player])}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	return w.Error()
}

// appendRows appends one row per known agent for this settlement step.
// The file is opened in append mode; the header is written only when the
// file is created.
func (b *RealTimeBalancer) appendRows(now model.Slot, buyPrice, sellPrice float64, buys, sells map[string]float64) error {
	if err := os.MkdirAll(b.outputDir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(b.outputDir, realtimeResultFile)

	writeHeader := false
	if !b.wroteHeader {
		if info, err := os.Stat(path); err != nil || info.Size() == 0 {
			writeHeader = true
		}
		b.wroteHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if writeHeader {
		header := []string{"slot", "agent", "buy_quantity", "sell_quantity", "buy_price", "sell_price", "cum_cost", "cum_revenue"}
		if err := w.Write(header); err != nil {
			return err
		}
	}

	for _, name := range b.knownAgents() {
		row := []string{
			now.Format(),
			name,
			fmtFloat(buys[name]),
			fmtFloat(sells[name]),
			fmtFloat(buyPrice),
			fmtFloat(sellPrice),
			fmtFloat(b.cost[name]),
			fmtFloat(b.revenue[name]),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	return w.Error()
}

func createResultFile(dir, name string) (*os.File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return os.Create(filepath.Join(dir, name))
}

func fmtFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
