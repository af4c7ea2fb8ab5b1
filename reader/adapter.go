package reader

import (
	"context"
	"time"

	"tradescanner/models"
)

// Instrument is one tradable symbol as listed by an exchange.
type Instrument struct {
	Symbol string
	Base   string
	Quote  string
	Status string
	// Tradable is false for halted, delisted or internal (dark pool) listings.
	Tradable bool
}

// Ticker carries one instrument's raw 24h statistics exactly as the exchange
// reported them. Empty strings mean the field was absent.
type Ticker struct {
	Symbol        string
	Last          string
	Volume        string
	ChangePercent string
	Open          string
	Bid           string
	Ask           string
	// CloseTime is the exchange supplied statistics time, zero when absent.
	CloseTime time.Time
}

// TickerMode describes how an exchange exposes 24h statistics.
type TickerMode int

const (
	// Bulk exchanges return every instrument from one call.
	Bulk TickerMode = iota
	// PerInstrument exchanges need one call per instrument.
	PerInstrument
	// Batched exchanges accept several instruments joined into one call.
	Batched
)

// TickerPolicy tells the normalizer how to gather and validate tickers.
type TickerPolicy struct {
	Mode TickerMode
	// BatchSize bounds the instruments per call in Batched mode.
	BatchSize int
	// MaxInstruments caps how many instruments are queried (0 = no cap).
	MaxInstruments int
	// PositiveVolume rejects records whose volume is not strictly positive.
	PositiveVolume bool
}

// CandleQuery asks for at most Limit candles opening in [Start, End].
type CandleQuery struct {
	Symbol   string
	Interval Interval
	Start    time.Time
	End      time.Time
	Limit    int
}

// Adapter translates one exchange's REST API into the scanner's vocabulary.
// Adapters are stateless apart from their HTTP client and return
// fetch.RequestFailure errors unchanged.
type Adapter interface {
	Exchange() models.Exchange
	RequiresCredentials() bool
	TickerPolicy() TickerPolicy
	// PageLimit is the maximum number of candles returned by one Candles call.
	PageLimit() int

	ListInstruments(ctx context.Context) ([]Instrument, error)
	// TickerSnapshot returns tickers for symbols. Bulk adapters ignore
	// symbols and return everything.
	TickerSnapshot(ctx context.Context, symbols []string) ([]Ticker, error)
	Candles(ctx context.Context, q CandleQuery) ([]models.Candle, error)
}

// CandleSource is the part of an Adapter needed for range fetches.
type CandleSource interface {
	PageLimit() int
	Candles(ctx context.Context, q CandleQuery) ([]models.Candle, error)
}

// WindowedSource is implemented by candle sources that answer a query with
// the fixed window [Start, Start+(Limit-1)*interval] and leave out intervals
// without trades, so a short page does not mean the series has ended.
type WindowedSource interface {
	WindowedPages() bool
}
