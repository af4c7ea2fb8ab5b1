package exchanges

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradescanner/config"
	"tradescanner/logger"
	"tradescanner/models"
	"tradescanner/reader"
)

func TestNewRegistryCoversEveryExchange(t *testing.T) {
	cfg := config.Default()
	reg := NewRegistry(cfg, logger.Discard())
	require.Equal(t, len(models.Exchanges()), reg.Len())

	for _, ex := range models.Exchanges() {
		a, err := reg.Get(ex)
		require.NoError(t, err)
		assert.Equal(t, ex, a.Exchange())
		assert.False(t, a.RequiresCredentials())
	}
}

func TestPoliciesFollowConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Fetch.CoinbaseStatsCap = 7
	cfg.Fetch.KrakenBatchSize = 3
	log := logger.Discard()

	assert.Equal(t, reader.Bulk, New(models.Binance, cfg, log).TickerPolicy().Mode)

	cb := New(models.Coinbase, cfg, log).TickerPolicy()
	assert.Equal(t, reader.PerInstrument, cb.Mode)
	assert.Equal(t, 7, cb.MaxInstruments)

	kr := New(models.Kraken, cfg, log).TickerPolicy()
	assert.Equal(t, reader.Batched, kr.Mode)
	assert.Equal(t, 3, kr.BatchSize)
}

func TestUnknownExchange(t *testing.T) {
	assert.Nil(t, New(models.Exchange("ftx"), config.Default(), logger.Discard()))
}
