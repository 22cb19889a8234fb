package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"illuminator/internal/api/models"
)

// ListStrategies handles GET /api/v1/strategies.
func ListStrategies(c *gin.Context) {
	c.JSON(http.StatusOK, []models.StrategyInfo{
		{
			Name:        "market_first",
			Description: "Settle the wholesale market, then trade flexibility peer-to-peer",
		},
		{
			Name:        "p2p_first",
			Description: "Trade flexibility peer-to-peer, then settle the wholesale market",
		},
		{
			Name:        "market_only",
			Description: "Wholesale market only, no peer trading",
		},
	})
}
