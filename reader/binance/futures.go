package binance

import (
	"context"
	"net/http"
	"strings"
	"time"

	futures "github.com/adshao/go-binance/v2/futures"

	"tradescanner/internal/fetch"
	"tradescanner/internal/numeric"
	"tradescanner/logger"
	"tradescanner/models"
	"tradescanner/reader"
)

const (
	// DefaultBaseURL is the public USDⓈ-M futures REST endpoint.
	DefaultBaseURL = "https://fapi.binance.com"
	pageLimit      = 1500
)

var intervals = map[reader.Interval]string{
	reader.Minute:         "1m",
	reader.FiveMinutes:    "5m",
	reader.FifteenMinutes: "15m",
	reader.ThirtyMinutes:  "30m",
	reader.Hour:           "1h",
	reader.FourHours:      "4h",
	reader.SixHours:       "6h",
	reader.Day:            "1d",
	reader.Week:           "1w",
}

// Adapter reads Binance USDⓈ-M futures market data through the go-binance
// futures client. Every call goes through the shared flat retry policy.
type Adapter struct {
	client  *futures.Client
	retrier *fetch.Retrier
	log     *logger.Log
}

// New returns an Adapter talking to baseURL with httpClient.
func New(baseURL string, httpClient *http.Client, retrier *fetch.Retrier, log *logger.Log) *Adapter {
	client := futures.NewClient("", "")
	client.HTTPClient = httpClient
	client.SetApiEndpoint(strings.TrimRight(baseURL, "/"))

	log.WithComponent("binance_reader").WithFields(logger.Fields{
		"base_url": baseURL,
		"timeout":  httpClient.Timeout,
	}).Debug("binance adapter initialized")

	return &Adapter{client: client, retrier: retrier, log: log}
}

func (a *Adapter) Exchange() models.Exchange { return models.Binance }

func (a *Adapter) RequiresCredentials() bool { return false }

func (a *Adapter) PageLimit() int { return pageLimit }

// TickerPolicy reports the bulk 24h ticker endpoint.
func (a *Adapter) TickerPolicy() reader.TickerPolicy {
	return reader.TickerPolicy{Mode: reader.Bulk}
}

// ListInstruments returns every futures symbol; only perpetual contracts in
// TRADING status are marked tradable.
func (a *Adapter) ListInstruments(ctx context.Context) ([]reader.Instrument, error) {
	var info *futures.ExchangeInfo
	err := a.retrier.Do(ctx, "/fapi/v1/exchangeInfo", func(ctx context.Context) error {
		var err error
		info, err = a.client.NewExchangeInfoService().Do(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	for _, rl := range info.RateLimits {
		if rl.RateLimitType == "REQUEST_WEIGHT" && rl.Interval == "MINUTE" {
			a.log.WithComponent("binance_reader").WithField("limit", rl.Limit).Debug("request weight limit per minute")
		}
	}

	out := make([]reader.Instrument, 0, len(info.Symbols))
	for _, s := range info.Symbols {
		out = append(out, reader.Instrument{
			Symbol:   s.Symbol,
			Base:     s.BaseAsset,
			Quote:    s.QuoteAsset,
			Status:   s.Status,
			Tradable: s.Status == "TRADING" && string(s.ContractType) == "PERPETUAL",
		})
	}
	return out, nil
}

// TickerSnapshot returns the 24h statistics for every symbol, or only for
// symbols when given.
func (a *Adapter) TickerSnapshot(ctx context.Context, symbols []string) ([]reader.Ticker, error) {
	var stats []*futures.PriceChangeStats
	err := a.retrier.Do(ctx, "/fapi/v1/ticker/24hr", func(ctx context.Context) error {
		var err error
		stats, err = a.client.NewListPriceChangeStatsService().Do(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	var want map[string]bool
	if len(symbols) > 0 {
		want = make(map[string]bool, len(symbols))
		for _, s := range symbols {
			want[s] = true
		}
	}

	out := make([]reader.Ticker, 0, len(stats))
	for _, s := range stats {
		if s == nil || (want != nil && !want[s.Symbol]) {
			continue
		}
		t := reader.Ticker{
			Symbol:        s.Symbol,
			Last:          s.LastPrice,
			Volume:        s.Volume,
			ChangePercent: s.PriceChangePercent,
			Open:          s.OpenPrice,
		}
		if s.CloseTime > 0 {
			t.CloseTime = time.UnixMilli(s.CloseTime).UTC()
		}
		out = append(out, t)
	}
	return out, nil
}

// Candles returns up to q.Limit klines opening at or after q.Start.
func (a *Adapter) Candles(ctx context.Context, q reader.CandleQuery) ([]models.Candle, error) {
	interval, ok := intervals[q.Interval]
	if !ok {
		return nil, reader.Unsupported("binance", q.Interval)
	}
	limit := q.Limit
	if limit <= 0 || limit > pageLimit {
		limit = pageLimit
	}

	var klines []*futures.Kline
	err := a.retrier.Do(ctx, "/fapi/v1/klines", func(ctx context.Context) error {
		svc := a.client.NewKlinesService().Symbol(q.Symbol).Interval(interval).Limit(limit)
		if !q.Start.IsZero() {
			svc = svc.StartTime(q.Start.UnixMilli())
		}
		if !q.End.IsZero() {
			svc = svc.EndTime(q.End.UnixMilli())
		}
		var err error
		klines, err = svc.Do(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	out := make([]models.Candle, 0, len(klines))
	for _, k := range klines {
		c, err := parseKline(k)
		if err != nil {
			a.log.WithComponent("binance_reader").WithFields(logger.Fields{
				"symbol":    q.Symbol,
				"open_time": k.OpenTime,
			}).WithError(err).Debug("skipping malformed kline")
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func parseKline(k *futures.Kline) (models.Candle, error) {
	var (
		c   = models.Candle{OpenTime: time.UnixMilli(k.OpenTime).UTC()}
		err error
	)
	fields := []struct {
		raw string
		dst *float64
	}{
		{k.Open, &c.Open},
		{k.High, &c.High},
		{k.Low, &c.Low},
		{k.Close, &c.Close},
		{k.Volume, &c.Volume},
	}
	for _, f := range fields {
		if *f.dst, err = numeric.Float(f.raw); err != nil {
			return models.Candle{}, err
		}
	}
	return c, nil
}
