package sim

import (
	"encoding/csv"
	"os"
	"strconv"
)

// WriteLedgerCSV writes the per-slot run ledger.
func WriteLedgerCSV(path string, ledger []LedgerRow) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{
		"index",
		"slot",
		"dayahead_price",
		"dayahead_quantity",
		"p2p_quantity_traded",
		"delivered_em",
		"delivered_p2p",
		"rt_buy_price",
		"rt_sell_price",
		"rt_bought",
		"rt_sold",
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, r := range ledger {
		row := []string{
			strconv.Itoa(r.Index),
			r.Slot.Format(),
			fmtFloat(r.DayAheadPrice),
			fmtFloat(r.DayAheadQuantity),
			fmtFloat(r.P2PQuantityTraded),
			fmtFloat(r.DeliveredEM),
			fmtFloat(r.DeliveredP2P),
			fmtFloat(r.RTBuyPrice),
			fmtFloat(r.RTSellPrice),
			fmtFloat(r.RTBought),
			fmtFloat(r.RTSold),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	return w.Error()
}

func fmtFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
