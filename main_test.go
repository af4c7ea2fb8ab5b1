package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradescanner/config"
)

func TestOverridesFromFlags(t *testing.T) {
	ov, err := options{exchanges: "binance, kraken", minVolume: "5000", noCache: true}.overrides()
	require.NoError(t, err)
	assert.Equal(t, []string{"binance", "kraken"}, ov.Exchanges)
	require.NotNil(t, ov.MinVolume)
	assert.Equal(t, 5000.0, *ov.MinVolume)
	assert.Nil(t, ov.MinPrice)
	assert.True(t, ov.NoCache)

	cfg, err := config.Default().WithOverrides(ov)
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.CacheDuration)
	assert.Equal(t, []string{"binance", "kraken"}, cfg.EnabledExchanges)
}

func TestOverridesRejectBadNumbers(t *testing.T) {
	_, err := options{minPrice: "cheap"}.overrides()
	var cfgErr *config.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "min_price", cfgErr.Field)
}
