package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"illuminator/internal/api/models"
)

func testRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/v1/simulate", NewSimulateHandler().Run)
	r.GET("/api/v1/strategies", ListStrategies)
	return r
}

func postSimulate(t *testing.T, r *gin.Engine, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/simulate", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func validRequest() models.SimulateRequest {
	profile := map[string]float64{}
	load := map[string]float64{}
	for _, s := range []string{
		"2024-06-01 08:00:00",
		"2024-06-01 08:15:00",
		"2024-06-01 08:30:00",
		"2024-06-01 08:45:00",
	} {
		profile[s] = 10
		load[s] = 8
	}
	return models.SimulateRequest{
		Start:    "2024-06-01 08:00:00",
		End:      "2024-06-01 09:00:00",
		Realtime: models.RealtimeConfig{BuyPrice: 0.40, SellPrice: 0.05},
		Agents: []models.AgentConfig{
			{
				Name:     "seller",
				Strategy: "market_only",
				Generators: []models.AssetConfig{
					{Name: "pv", MarketMetric: 0.1, Profile: profile},
				},
			},
			{
				Name:     "buyer",
				Strategy: "market_only",
				Demands: []models.AssetConfig{
					{Name: "load", MarketMetric: 0.3, Profile: load},
				},
			},
		},
	}
}

func TestSimulateEndpoint(t *testing.T) {
	w := postSimulate(t, testRouter(), validRequest())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp models.SimulateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.RunID)
	assert.Equal(t, "completed", resp.Status)
	assert.Equal(t, 4, resp.Summary.Slots)
	assert.Equal(t, 3, resp.Summary.ClearedSlots)
	assert.InDelta(t, 0.1, resp.Summary.MeanPrice, 1e-9)
	require.Len(t, resp.Ranking, 2)
	assert.Equal(t, "seller", resp.Ranking[0].Name)
	assert.Empty(t, resp.Ledger)
}

func TestSimulateIncludesLedgerOnRequest(t *testing.T) {
	req := validRequest()
	req.Options.IncludeLedger = true

	w := postSimulate(t, testRouter(), req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp models.SimulateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Ledger, 4)
	assert.Equal(t, "2024-06-01 08:00:00", resp.Ledger[0].Slot)
}

func TestSimulateRejectsMalformedBody(t *testing.T) {
	r := testRouter()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/simulate", bytes.NewReader([]byte("{")))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSimulateRejectsInvalidScenario(t *testing.T) {
	req := validRequest()
	req.End = req.Start

	w := postSimulate(t, testRouter(), req)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "INVALID_SCENARIO", resp.Error.Code)
}

func TestStrategiesEndpoint(t *testing.T) {
	r := testRouter()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/strategies", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var infos []models.StrategyInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &infos))
	require.Len(t, infos, 3)
	assert.Equal(t, "market_first", infos[0].Name)
}
