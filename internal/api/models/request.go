package models

// SimulateRequest is the request body for running a scenario. The shape
// mirrors the YAML scenario file so the same scenarios work in both
// places.
type SimulateRequest struct {
	Start string `json:"start" binding:"required"`
	End   string `json:"end" binding:"required"`

	Realtime RealtimeConfig `json:"realtime"`
	Agents   []AgentConfig  `json:"agents" binding:"required"`

	Options SimulateOptions `json:"options,omitempty"`
}

type RealtimeConfig struct {
	BuyPrice  float64 `json:"buy_price"`
	SellPrice float64 `json:"sell_price"`
}

type AgentConfig struct {
	Name     string `json:"name" binding:"required"`
	Strategy string `json:"strategy" binding:"required"`
	Strict   bool   `json:"strict,omitempty"`

	Generators []AssetConfig `json:"generators,omitempty"`
	Demands    []AssetConfig `json:"demands,omitempty"`
	Storages   []AssetConfig `json:"storages,omitempty"`
}

type AssetConfig struct {
	Name         string             `json:"name" binding:"required"`
	MarketMetric float64            `json:"market_metric"`
	PeerMetric   float64            `json:"peer_metric"`
	Profile      map[string]float64 `json:"profile,omitempty"`
	Battery      *BatteryConfig     `json:"battery,omitempty"`
}

type BatteryConfig struct {
	EnergyCapacityKWh   float64 `json:"energy_capacity_kwh"`
	PowerCapacityKW     float64 `json:"power_capacity_kw"`
	ChargeEfficiency    float64 `json:"charge_efficiency"`
	DischargeEfficiency float64 `json:"discharge_efficiency"`
	MinSOC              float64 `json:"min_soc"`
	MaxSOC              float64 `json:"max_soc"`
	InitialSOC          float64 `json:"initial_soc,omitempty"`
}

// SimulateOptions contains optional run parameters.
type SimulateOptions struct {
	// IncludeLedger returns the full per-slot ledger (default: false).
	IncludeLedger bool `json:"include_ledger,omitempty"`
	// WriteCSV writes the market result files to output_dir.
	WriteCSV  bool   `json:"write_csv,omitempty"`
	OutputDir string `json:"output_dir,omitempty"`
}
