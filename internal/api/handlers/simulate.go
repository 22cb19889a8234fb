package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"illuminator/internal/analysis"
	"illuminator/internal/api/models"
	"illuminator/internal/config"
	"illuminator/internal/sim"
)

// SimulateHandler runs scenarios submitted over HTTP.
type SimulateHandler struct{}

func NewSimulateHandler() *SimulateHandler { return &SimulateHandler{} }

// Run handles POST /api/v1/simulate.
func (h *SimulateHandler) Run(c *gin.Context) {
	var req models.SimulateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: models.ErrorDetail{Code: "INVALID_REQUEST", Message: err.Error()},
		})
		return
	}

	cfg := toConfig(req)
	if err := cfg.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: models.ErrorDetail{Code: "INVALID_SCENARIO", Message: err.Error()},
		})
		return
	}

	scenario, err := sim.BuildScenario(cfg)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: models.ErrorDetail{Code: "INVALID_SCENARIO", Message: err.Error()},
		})
		return
	}

	res, err := sim.New().Run(scenario)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, models.ErrorResponse{
			Error: models.ErrorDetail{Code: "RUN_FAILED", Message: err.Error()},
		})
		return
	}

	c.JSON(http.StatusOK, toResponse(req, res))
}

// toConfig maps the request onto the scenario config shape used by the CLI
// path, so validation and wiring stay in one place.
func toConfig(req models.SimulateRequest) *config.Config {
	cfg := &config.Config{
		Start: req.Start,
		End:   req.End,
		Realtime: config.RealtimeConfig{
			BuyPrice:  req.Realtime.BuyPrice,
			SellPrice: req.Realtime.SellPrice,
		},
	}
	if req.Options.WriteCSV {
		cfg.OutputDir = req.Options.OutputDir
		if cfg.OutputDir == "" {
			cfg.OutputDir = "Result"
		}
	}
	for _, a := range req.Agents {
		cfg.Agents = append(cfg.Agents, config.AgentConfig{
			Name:       a.Name,
			Strategy:   a.Strategy,
			Strict:     a.Strict,
			Generators: toAssetConfigs(a.Generators),
			Demands:    toAssetConfigs(a.Demands),
			Storages:   toAssetConfigs(a.Storages),
		})
	}
	return cfg
}

func toAssetConfigs(assets []models.AssetConfig) []config.AssetConfig {
	out := make([]config.AssetConfig, 0, len(assets))
	for _, a := range assets {
		ac := config.AssetConfig{
			Name:         a.Name,
			MarketMetric: a.MarketMetric,
			PeerMetric:   a.PeerMetric,
			Profile:      a.Profile,
		}
		if a.Battery != nil {
			ac.Battery = &config.BatteryConfig{
				EnergyCapacityKWh:   a.Battery.EnergyCapacityKWh,
				PowerCapacityKW:     a.Battery.PowerCapacityKW,
				ChargeEfficiency:    a.Battery.ChargeEfficiency,
				DischargeEfficiency: a.Battery.DischargeEfficiency,
				MinSOC:              a.Battery.MinSOC,
				MaxSOC:              a.Battery.MaxSOC,
				InitialSOC:          a.Battery.InitialSOC,
			}
		}
		out = append(out, ac)
	}
	return out
}

func toResponse(req models.SimulateRequest, res *sim.Result) models.SimulateResponse {
	summary := analysis.Summarize(res.Ledger)
	resp := models.SimulateResponse{
		RunID:  res.RunID,
		Status: "completed",
		Summary: models.RunSummary{
			Slots:          summary.Slots,
			ClearedSlots:   summary.ClearedSlots,
			MinPrice:       summary.MinPrice,
			MaxPrice:       summary.MaxPrice,
			MeanPrice:      summary.MeanPrice,
			SpreadP95P05:   summary.SpreadP95P05,
			DayAheadVolume: summary.DayAheadVolume,
			P2PVolume:      summary.P2PVolume,
			RTBought:       summary.RTBought,
			RTSold:         summary.RTSold,
		},
	}
	for _, r := range analysis.RankByNet(res.Settlements) {
		resp.Ranking = append(resp.Ranking, models.Rank{
			Name:    r.Name,
			Revenue: r.Revenue,
			Cost:    r.Cost,
			Net:     r.Net,
		})
	}
	if req.Options.IncludeLedger {
		for _, row := range res.Ledger {
			resp.Ledger = append(resp.Ledger, models.LedgerRow{
				Index:             row.Index,
				Slot:              row.Slot.Format(),
				DayAheadPrice:     row.DayAheadPrice,
				DayAheadQuantity:  row.DayAheadQuantity,
				P2PQuantityTraded: row.P2PQuantityTraded,
				DeliveredEM:       row.DeliveredEM,
				DeliveredP2P:      row.DeliveredP2P,
				RTBought:          row.RTBought,
				RTSold:            row.RTSold,
			})
		}
	}
	return resp
}
