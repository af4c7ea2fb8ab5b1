package processor

import (
	"tradescanner/logger"
	"tradescanner/models"
)

// Keep reports whether p passes the volume and price thresholds.
func Keep(p models.TradingPair, minVolume, minPrice float64) bool {
	return p.Volume24h >= minVolume && p.Price >= minPrice
}

// Filter returns the pairs that pass Keep, preserving order. The input slice
// is not modified.
func Filter(pairs []models.TradingPair, minVolume, minPrice float64, log *logger.Log) []models.TradingPair {
	out := make([]models.TradingPair, 0, len(pairs))
	for _, p := range pairs {
		if Keep(p, minVolume, minPrice) {
			out = append(out, p)
		}
	}
	log.WithComponent("filter").WithFields(logger.Fields{
		"input":      len(pairs),
		"kept":       len(out),
		"min_volume": minVolume,
		"min_price":  minPrice,
	}).Debug("pairs filtered")
	return out
}
