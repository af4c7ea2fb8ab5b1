package processor

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"tradescanner/logger"
	"tradescanner/models"
)

func TestFilterThresholds(t *testing.T) {
	pairs := []models.TradingPair{
		{Symbol: "BTCUSDT", Price: 45000, Volume24h: 1000000},
		{Symbol: "XYZUSDT", Price: 0.001, Volume24h: 5},
		{Symbol: "EDGE", Price: 0.01, Volume24h: 1000},
		{Symbol: "THIN", Price: 10, Volume24h: 999.99},
	}

	kept := Filter(pairs, 1000, 0.01, logger.Discard())
	assert.Equal(t, []string{"BTCUSDT", "EDGE"}, symbols(kept))
	assert.Len(t, pairs, 4, "input is untouched")
}

func TestFilterIsIdempotent(t *testing.T) {
	pairs := []models.TradingPair{
		{Symbol: "A", Price: 1, Volume24h: 10},
		{Symbol: "B", Price: 0.5, Volume24h: 100},
		{Symbol: "C", Price: 3, Volume24h: 1},
	}
	once := Filter(pairs, 5, 0.75, logger.Discard())
	twice := Filter(once, 5, 0.75, logger.Discard())
	assert.Equal(t, once, twice)
}

func symbols(pairs []models.TradingPair) []string {
	out := make([]string, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, p.Symbol)
	}
	return out
}
