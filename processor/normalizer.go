package processor

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"tradescanner/internal/fetch"
	"tradescanner/internal/numeric"
	"tradescanner/logger"
	"tradescanner/models"
	"tradescanner/reader"
)

// Outcome is the result of normalizing one ticker record: either a pair or
// the reason the record was skipped.
type Outcome struct {
	Pair   models.TradingPair
	Reason error
}

// Skipped reports whether the record produced no pair.
func (o Outcome) Skipped() bool { return o.Reason != nil }

func skip(err error) Outcome { return Outcome{Reason: err} }

// Normalize maps one raw ticker to a TradingPair. Price must be strictly
// positive and volume non-negative, or strictly positive under a
// PositiveVolume policy. Optional fields that fail to parse are left unset.
func Normalize(t reader.Ticker, exchange models.Exchange, policy reader.TickerPolicy, now time.Time) Outcome {
	fail := func(field, value string, err error) Outcome {
		return skip(&ParseFailure{Exchange: exchange, Symbol: t.Symbol, Field: field, Value: value, Err: err})
	}

	price, err := numeric.Decimal(t.Last)
	if err != nil {
		return fail("price", t.Last, err)
	}
	if !price.IsPositive() {
		return skip(ErrNonPositivePrice)
	}

	volume, err := numeric.Decimal(t.Volume)
	if err != nil {
		return fail("volume", t.Volume, err)
	}
	if volume.IsNegative() {
		return skip(ErrNegativeVolume)
	}
	if policy.PositiveVolume && !volume.IsPositive() {
		return skip(ErrEmptyVolume)
	}

	pair := models.TradingPair{
		Symbol:    t.Symbol,
		Exchange:  exchange,
		Price:     price.InexactFloat64(),
		Volume24h: volume.InexactFloat64(),
		Bid:       optionalPositive(t.Bid),
		Ask:       optionalPositive(t.Ask),
		Timestamp: now.UTC(),
	}
	if !t.CloseTime.IsZero() {
		pair.Timestamp = t.CloseTime.UTC()
	}

	switch {
	case t.ChangePercent != "":
		change, err := numeric.Float(t.ChangePercent)
		if err != nil {
			return fail("change_24h", t.ChangePercent, err)
		}
		pair.Change24h = models.Float(change)
	case t.Open != "":
		if open, err := numeric.Decimal(t.Open); err == nil {
			if change, ok := numeric.ChangePercent(open, price); ok {
				pair.Change24h = models.Float(change)
			}
		}
	}

	return Outcome{Pair: pair}
}

func optionalPositive(s string) *float64 {
	if s == "" {
		return nil
	}
	d, err := numeric.Decimal(s)
	if err != nil || !d.GreaterThan(decimal.Zero) {
		return nil
	}
	return models.Float(d.InexactFloat64())
}

// Normalizer gathers tickers from an adapter according to its TickerPolicy
// and turns them into TradingPairs.
type Normalizer struct {
	requestDelay time.Duration
	log          *logger.Log
}

// NewNormalizer returns a Normalizer that spaces sequential per-instrument or
// per-batch calls by requestDelay.
func NewNormalizer(requestDelay time.Duration, log *logger.Log) *Normalizer {
	return &Normalizer{requestDelay: requestDelay, log: log}
}

// Pairs returns every pair a can produce. Instrument listing and bulk ticker
// failures are returned; a failed per-instrument or per-batch call is logged
// and skipped.
func (n *Normalizer) Pairs(ctx context.Context, a reader.Adapter, now time.Time) ([]models.TradingPair, error) {
	ex := a.Exchange()
	policy := a.TickerPolicy()
	log := n.log.WithComponent("normalizer").WithFields(logger.Fields{"exchange": ex.String()})

	tickers, failed, err := n.collect(ctx, a, policy, log)
	if err != nil {
		return nil, err
	}

	pairs := make([]models.TradingPair, 0, len(tickers))
	skipped := 0
	for _, t := range tickers {
		out := Normalize(t, ex, policy, now)
		if out.Skipped() {
			skipped++
			log.WithFields(logger.Fields{"symbol": t.Symbol, "reason": out.Reason.Error()}).Trace("record skipped")
			continue
		}
		pairs = append(pairs, out.Pair)
	}

	fields := logger.Fields{
		"tickers": len(tickers),
		"pairs":   len(pairs),
		"skipped": skipped,
	}
	if failed > 0 {
		fields["failed_calls"] = failed
		log.WithFields(fields).Warn("some ticker requests failed and were skipped")
	} else {
		log.WithFields(fields).Debug("normalization complete")
	}
	return pairs, nil
}

func (n *Normalizer) collect(ctx context.Context, a reader.Adapter, policy reader.TickerPolicy, log *logger.Entry) ([]reader.Ticker, int, error) {
	if policy.Mode == reader.Bulk {
		tickers, err := a.TickerSnapshot(ctx, nil)
		return tickers, 0, err
	}

	instruments, err := a.ListInstruments(ctx)
	if err != nil {
		return nil, 0, err
	}
	symbols := Tradable(instruments, policy.MaxInstruments)

	size := 1
	if policy.Mode == reader.Batched {
		size = policy.BatchSize
	}
	batches := Batches(symbols, size)
	log.WithFields(logger.Fields{
		"instruments": len(instruments),
		"selected":    len(symbols),
		"requests":    len(batches),
	}).Debug("collecting tickers")

	pacer := fetch.NewPacer(n.requestDelay)
	var (
		tickers []reader.Ticker
		failed  int
	)
	for _, batch := range batches {
		if err := pacer.Wait(ctx); err != nil {
			return nil, failed, err
		}
		got, err := a.TickerSnapshot(ctx, batch)
		if err != nil {
			if ctx.Err() != nil {
				return nil, failed, ctx.Err()
			}
			failed++
			log.WithFields(logger.Fields{"symbols": batch}).WithError(err).Debug("ticker request failed, skipping")
			continue
		}
		tickers = append(tickers, got...)
	}
	return tickers, failed, nil
}

// Tradable returns the symbols of tradable instruments in listing order,
// truncated to max when max > 0.
func Tradable(instruments []reader.Instrument, max int) []string {
	out := make([]string, 0, len(instruments))
	for _, in := range instruments {
		if !in.Tradable {
			continue
		}
		out = append(out, in.Symbol)
		if max > 0 && len(out) == max {
			break
		}
	}
	return out
}

// Batches splits symbols into consecutive groups of at most size.
func Batches(symbols []string, size int) [][]string {
	if size <= 0 {
		size = 1
	}
	var out [][]string
	for start := 0; start < len(symbols); start += size {
		end := start + size
		if end > len(symbols) {
			end = len(symbols)
		}
		out = append(out, symbols[start:end])
	}
	return out
}
