// Package exchanges wires the concrete exchange adapters from configuration.
package exchanges

import (
	"tradescanner/config"
	"tradescanner/internal/fetch"
	"tradescanner/logger"
	"tradescanner/models"
	"tradescanner/reader"
	"tradescanner/reader/binance"
	"tradescanner/reader/coinbase"
	"tradescanner/reader/kraken"
)

// New builds the adapter for ex. Each exchange gets its own pooled HTTP
// client and retry policy.
func New(ex models.Exchange, cfg *config.Config, log *logger.Log) reader.Adapter {
	httpClient := fetch.NewHTTPClient(ex, cfg.RequestTimeout(), cfg.Fetch.MaxIdleConns, log)
	retrier := fetch.NewRetrier(cfg.RetryAttempts, cfg.RetryDelay(), log)

	switch ex {
	case models.Binance:
		return binance.New(cfg.Endpoint(ex, binance.DefaultBaseURL), httpClient, retrier, log)
	case models.Coinbase:
		client := fetch.NewClient(ex, cfg.Endpoint(ex, coinbase.DefaultBaseURL), httpClient, retrier, log)
		return coinbase.New(client, cfg.Fetch.CoinbaseStatsCap, log)
	case models.Kraken:
		client := fetch.NewClient(ex, cfg.Endpoint(ex, kraken.DefaultBaseURL), httpClient, retrier, log)
		return kraken.New(client, cfg.Fetch.KrakenBatchSize, log)
	default:
		return nil
	}
}

// NewRegistry registers an adapter for every supported exchange, enabled or
// not, so single-exchange operations can still reach disabled venues.
func NewRegistry(cfg *config.Config, log *logger.Log) *reader.Registry {
	adapters := make([]reader.Adapter, 0, len(models.Exchanges()))
	for _, ex := range models.Exchanges() {
		if a := New(ex, cfg, log); a != nil {
			adapters = append(adapters, a)
		}
	}
	log.WithComponent("exchanges").WithField("adapters", len(adapters)).Debug("adapter registry built")
	return reader.NewRegistry(adapters...)
}
