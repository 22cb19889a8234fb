package model

import "errors"

// AssetRow is one managed asset of a prosumer: a forecast series plus the
// merit-order metrics used to rank it against the agent's other assets.
//
// For generators the series is forecast output (kW) and MarketMetric is the
// marginal cost of dispatch; for demands the series is forecast consumption
// and MarketMetric is the marginal benefit. PeerMetric plays the same role
// for peer-to-peer trading.
type AssetRow struct {
	Name         string
	Series       Series
	MarketMetric float64
	PeerMetric   float64
}

func (a AssetRow) Validate() error {
	if a.Name == "" {
		return errors.New("asset name is required")
	}
	if a.Series == nil {
		return errors.New("asset series is required")
	}
	return nil
}
