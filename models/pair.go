package models

import (
	"time"
)

// TradingPair is a normalized 24h market snapshot for one instrument.
type TradingPair struct {
	Symbol    string    `json:"symbol"`
	Exchange  Exchange  `json:"exchange"`
	Price     float64   `json:"price"`
	Volume24h float64   `json:"volume_24h"`
	Bid       *float64  `json:"bid"`
	Ask       *float64  `json:"ask"`
	Change24h *float64  `json:"change_24h"`
	Timestamp time.Time `json:"timestamp"`
}

// ScanResult is the outcome of scanning a single exchange.
// A failed result never carries pairs.
type ScanResult struct {
	Exchange  Exchange      `json:"exchange"`
	Pairs     []TradingPair `json:"pairs"`
	Duration  time.Duration `json:"duration"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// Failed builds an unsuccessful ScanResult.
func Failed(exchange Exchange, err error, duration time.Duration, at time.Time) ScanResult {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return ScanResult{
		Exchange:  exchange,
		Pairs:     []TradingPair{},
		Duration:  duration,
		Success:   false,
		Error:     msg,
		Timestamp: at,
	}
}

// Snapshot is the full result set of one scan-all round, ordered like the
// enabled exchanges. Timestamp is zero when no scan has completed.
type Snapshot struct {
	Timestamp time.Time    `json:"timestamp"`
	Results   []ScanResult `json:"results"`
}

// Result returns the entry for exchange.
func (s Snapshot) Result(exchange Exchange) (ScanResult, bool) {
	for _, r := range s.Results {
		if r.Exchange == exchange {
			return r, true
		}
	}
	return ScanResult{}, false
}

// Pairs flattens all pairs in result order.
func (s Snapshot) Pairs() []TradingPair {
	var out []TradingPair
	for _, r := range s.Results {
		out = append(out, r.Pairs...)
	}
	return out
}

// Statistics summarises the cached result set.
type Statistics struct {
	LastUpdated      *time.Time       `json:"last_updated"`
	ExchangesScanned int              `json:"exchanges_scanned"`
	TotalPairs       int              `json:"total_pairs"`
	PairsByExchange  map[Exchange]int `json:"pairs_by_exchange"`
	AverageVolume24h float64          `json:"avg_volume"`
	AveragePrice     float64          `json:"avg_price"`
}

// Float returns a pointer to v, for optional TradingPair fields.
func Float(v float64) *float64 { return &v }
