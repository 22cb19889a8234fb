package models

// SimulateResponse is the response from a scenario run.
type SimulateResponse struct {
	RunID   string      `json:"run_id"`
	Status  string      `json:"status"`
	Summary RunSummary  `json:"summary"`
	Ranking []Rank      `json:"ranking"`
	Ledger  []LedgerRow `json:"ledger,omitempty"`
}

// RunSummary aggregates a run's clearing prices and traded volume.
type RunSummary struct {
	Slots        int     `json:"slots"`
	ClearedSlots int     `json:"cleared_slots"`
	MinPrice     float64 `json:"min_price"`
	MaxPrice     float64 `json:"max_price"`
	MeanPrice    float64 `json:"mean_price"`
	SpreadP95P05 float64 `json:"spread_p95_p05"`

	DayAheadVolume float64 `json:"dayahead_volume"`
	P2PVolume      float64 `json:"p2p_volume"`
	RTBought       float64 `json:"rt_bought"`
	RTSold         float64 `json:"rt_sold"`
}

// Rank is one participant's settled day-ahead position.
type Rank struct {
	Name    string  `json:"name"`
	Revenue float64 `json:"revenue"`
	Cost    float64 `json:"cost"`
	Net     float64 `json:"net"`
}

// LedgerRow is one slot of the run ledger.
type LedgerRow struct {
	Index             int     `json:"index"`
	Slot              string  `json:"slot"`
	DayAheadPrice     float64 `json:"dayahead_price"`
	DayAheadQuantity  float64 `json:"dayahead_quantity"`
	P2PQuantityTraded float64 `json:"p2p_quantity_traded"`
	DeliveredEM       float64 `json:"delivered_em"`
	DeliveredP2P      float64 `json:"delivered_p2p"`
	RTBought          float64 `json:"rt_bought"`
	RTSold            float64 `json:"rt_sold"`
}

// StrategyInfo describes one agent strategy.
type StrategyInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
