package coinbase

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"time"

	"tradescanner/internal/fetch"
	"tradescanner/logger"
	"tradescanner/models"
	"tradescanner/reader"
)

const (
	// DefaultBaseURL is the public Coinbase Exchange REST endpoint.
	DefaultBaseURL = "https://api.exchange.coinbase.com"
	// Coinbase returns at most 300 candles per request.
	pageLimit = 300
	// DefaultStatsCap bounds the per-product stats calls of one scan.
	DefaultStatsCap = 100
)

var granularity = map[reader.Interval]int{
	reader.Minute:         60,
	reader.FiveMinutes:    300,
	reader.FifteenMinutes: 900,
	reader.Hour:           3600,
	reader.SixHours:       21600,
	reader.Day:            86400,
}

type product struct {
	ID              string `json:"id"`
	BaseCurrency    string `json:"base_currency"`
	QuoteCurrency   string `json:"quote_currency"`
	Status          string `json:"status"`
	TradingDisabled bool   `json:"trading_disabled"`
}

type stats struct {
	Open   string `json:"open"`
	High   string `json:"high"`
	Low    string `json:"low"`
	Last   string `json:"last"`
	Volume string `json:"volume"`
}

// Adapter reads Coinbase Exchange public market data. Coinbase has no bulk
// ticker, so 24h statistics are requested one product at a time.
type Adapter struct {
	client   *fetch.Client
	statsCap int
	log      *logger.Log
}

// New returns an Adapter using client. statsCap <= 0 selects DefaultStatsCap.
func New(client *fetch.Client, statsCap int, log *logger.Log) *Adapter {
	if statsCap <= 0 {
		statsCap = DefaultStatsCap
	}
	return &Adapter{client: client, statsCap: statsCap, log: log}
}

func (a *Adapter) Exchange() models.Exchange { return models.Coinbase }

func (a *Adapter) RequiresCredentials() bool { return false }

func (a *Adapter) PageLimit() int { return pageLimit }

// WindowedPages reports that candle pages cover a fixed time window and omit
// minutes without trades.
func (a *Adapter) WindowedPages() bool { return true }

func (a *Adapter) TickerPolicy() reader.TickerPolicy {
	return reader.TickerPolicy{
		Mode:           reader.PerInstrument,
		MaxInstruments: a.statsCap,
		PositiveVolume: true,
	}
}

// ListInstruments returns every product; only online products with trading
// enabled are tradable.
func (a *Adapter) ListInstruments(ctx context.Context) ([]reader.Instrument, error) {
	var products []product
	if err := a.client.GetJSON(ctx, "/products", nil, &products); err != nil {
		return nil, err
	}

	out := make([]reader.Instrument, 0, len(products))
	for _, p := range products {
		out = append(out, reader.Instrument{
			Symbol:   p.ID,
			Base:     p.BaseCurrency,
			Quote:    p.QuoteCurrency,
			Status:   p.Status,
			Tradable: p.Status == "online" && !p.TradingDisabled,
		})
	}
	return out, nil
}

// TickerSnapshot requests /products/{id}/stats for each symbol in order. The
// first failure aborts the remaining symbols.
func (a *Adapter) TickerSnapshot(ctx context.Context, symbols []string) ([]reader.Ticker, error) {
	out := make([]reader.Ticker, 0, len(symbols))
	for _, symbol := range symbols {
		var s stats
		if err := a.client.GetJSON(ctx, "/products/"+url.PathEscape(symbol)+"/stats", nil, &s); err != nil {
			return out, err
		}
		out = append(out, reader.Ticker{
			Symbol: symbol,
			Last:   s.Last,
			Volume: s.Volume,
			Open:   s.Open,
		})
	}
	return out, nil
}

// Candles returns up to q.Limit candles starting at q.Start in ascending
// order. Rows arrive newest first as [time, low, high, open, close, volume].
func (a *Adapter) Candles(ctx context.Context, q reader.CandleQuery) ([]models.Candle, error) {
	gran, ok := granularity[q.Interval]
	if !ok {
		return nil, reader.Unsupported("coinbase", q.Interval)
	}
	limit := q.Limit
	if limit <= 0 || limit > pageLimit {
		limit = pageLimit
	}

	params := url.Values{"granularity": {strconv.Itoa(gran)}}
	if !q.Start.IsZero() {
		// Coinbase works in whole seconds; round up so the cursor never
		// steps back onto an already returned candle.
		start := q.Start.UTC()
		if t := start.Truncate(time.Second); !t.Equal(start) {
			start = t.Add(time.Second)
		}
		end := start.Add(time.Duration(limit-1) * time.Duration(gran) * time.Second)
		if !q.End.IsZero() && q.End.Before(end) {
			end = q.End.UTC()
		}
		params.Set("start", start.Format(time.RFC3339))
		params.Set("end", end.Format(time.RFC3339))
	}

	var rows [][]float64
	endpoint := fmt.Sprintf("/products/%s/candles", url.PathEscape(q.Symbol))
	if err := a.client.GetJSON(ctx, endpoint, params, &rows); err != nil {
		return nil, err
	}

	out := make([]models.Candle, 0, len(rows))
	for _, row := range rows {
		if len(row) < 6 {
			a.log.WithComponent("coinbase_reader").WithField("row", row).Debug("skipping short candle row")
			continue
		}
		out = append(out, models.Candle{
			OpenTime: time.Unix(int64(row[0]), 0).UTC(),
			Low:      row[1],
			High:     row[2],
			Open:     row[3],
			Close:    row[4],
			Volume:   row[5],
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OpenTime.Before(out[j].OpenTime) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
