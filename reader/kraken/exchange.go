package kraken

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"tradescanner/internal/fetch"
	"tradescanner/internal/numeric"
	"tradescanner/logger"
	"tradescanner/models"
	"tradescanner/reader"
)

const (
	// DefaultBaseURL is the public Kraken spot REST endpoint.
	DefaultBaseURL = "https://api.kraken.com"
	// Kraken returns at most 720 OHLC rows per request.
	pageLimit = 720
	// DefaultBatchSize bounds the pairs joined into one Ticker request.
	DefaultBatchSize = 10
	// darkPoolSuffix marks dark pool pairs in AssetPairs.
	darkPoolSuffix = ".d"
)

var intervalMinutes = map[reader.Interval]int{
	reader.Minute:         1,
	reader.FiveMinutes:    5,
	reader.FifteenMinutes: 15,
	reader.ThirtyMinutes:  30,
	reader.Hour:           60,
	reader.FourHours:      240,
	reader.Day:            1440,
	reader.Week:           10080,
}

type envelope struct {
	Error  []string        `json:"error"`
	Result json.RawMessage `json:"result"`
}

func (e *envelope) check() error {
	if len(e.Error) > 0 {
		return errors.New(strings.Join(e.Error, "; "))
	}
	return nil
}

type assetPair struct {
	Altname string `json:"altname"`
	Wsname  string `json:"wsname"`
	Base    string `json:"base"`
	Quote   string `json:"quote"`
	Status  string `json:"status"`
}

type tickerInfo struct {
	Ask    []string `json:"a"`
	Bid    []string `json:"b"`
	Last   []string `json:"c"`
	Volume []string `json:"v"`
	Open   string   `json:"o"`
}

// Adapter reads Kraken public market data.
type Adapter struct {
	client    *fetch.Client
	batchSize int
	log       *logger.Log
}

// New returns an Adapter using client. batchSize <= 0 selects DefaultBatchSize.
func New(client *fetch.Client, batchSize int, log *logger.Log) *Adapter {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Adapter{client: client, batchSize: batchSize, log: log}
}

func (a *Adapter) Exchange() models.Exchange { return models.Kraken }

func (a *Adapter) RequiresCredentials() bool { return false }

func (a *Adapter) PageLimit() int { return pageLimit }

func (a *Adapter) TickerPolicy() reader.TickerPolicy {
	return reader.TickerPolicy{
		Mode:           reader.Batched,
		BatchSize:      a.batchSize,
		PositiveVolume: true,
	}
}

func (a *Adapter) call(ctx context.Context, endpoint string, params url.Values, out interface{}) error {
	var env envelope
	if err := a.client.GetJSON(ctx, endpoint, params, &env, env.check); err != nil {
		return err
	}
	if len(env.Result) == 0 {
		return fmt.Errorf("kraken %s: empty result", endpoint)
	}
	return json.Unmarshal(env.Result, out)
}

// ListInstruments returns asset pairs sorted by name. Dark pool pairs and
// pairs that are not online are not tradable.
func (a *Adapter) ListInstruments(ctx context.Context) ([]reader.Instrument, error) {
	var pairs map[string]assetPair
	if err := a.call(ctx, "/0/public/AssetPairs", nil, &pairs); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(pairs))
	for name := range pairs {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]reader.Instrument, 0, len(names))
	for _, name := range names {
		p := pairs[name]
		out = append(out, reader.Instrument{
			Symbol:   name,
			Base:     p.Base,
			Quote:    p.Quote,
			Status:   p.Status,
			Tradable: !IsDarkPool(name) && (p.Status == "" || p.Status == "online"),
		})
	}
	return out, nil
}

// IsDarkPool reports whether pair names a dark pool variant.
func IsDarkPool(pair string) bool {
	return strings.HasSuffix(pair, darkPoolSuffix)
}

// TickerSnapshot requests all symbols in one Ticker call. Callers keep the
// batch small enough for the URL length limit.
func (a *Adapter) TickerSnapshot(ctx context.Context, symbols []string) ([]reader.Ticker, error) {
	if len(symbols) == 0 {
		return nil, nil
	}
	params := url.Values{"pair": {strings.Join(symbols, ",")}}

	var infos map[string]tickerInfo
	if err := a.call(ctx, "/0/public/Ticker", params, &infos); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(infos))
	for name := range infos {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]reader.Ticker, 0, len(names))
	for _, name := range names {
		info := infos[name]
		t := reader.Ticker{Symbol: name, Open: info.Open}
		if len(info.Last) > 0 {
			t.Last = info.Last[0]
		}
		// v holds [today, last 24 hours].
		if len(info.Volume) > 1 {
			t.Volume = info.Volume[1]
		}
		if len(info.Bid) > 0 {
			t.Bid = info.Bid[0]
		}
		if len(info.Ask) > 0 {
			t.Ask = info.Ask[0]
		}
		out = append(out, t)
	}
	return out, nil
}

// Candles returns up to q.Limit OHLC rows opening after q.Start and no later
// than q.End. Rows are [time, open, high, low, close, vwap, volume, count].
func (a *Adapter) Candles(ctx context.Context, q reader.CandleQuery) ([]models.Candle, error) {
	minutes, ok := intervalMinutes[q.Interval]
	if !ok {
		return nil, reader.Unsupported("kraken", q.Interval)
	}
	limit := q.Limit
	if limit <= 0 || limit > pageLimit {
		limit = pageLimit
	}

	params := url.Values{
		"pair":     {q.Symbol},
		"interval": {strconv.Itoa(minutes)},
	}
	if !q.Start.IsZero() {
		params.Set("since", strconv.FormatInt(q.Start.Unix(), 10))
	}

	var result map[string]json.RawMessage
	if err := a.call(ctx, "/0/public/OHLC", params, &result); err != nil {
		return nil, err
	}

	var rows [][]json.RawMessage
	for key, raw := range result {
		if key == "last" {
			continue
		}
		if err := json.Unmarshal(raw, &rows); err != nil {
			return nil, fmt.Errorf("decode kraken ohlc for %s: %w", key, err)
		}
		break
	}

	out := make([]models.Candle, 0, len(rows))
	for _, row := range rows {
		c, err := parseRow(row)
		if err != nil {
			a.log.WithComponent("kraken_reader").WithField("symbol", q.Symbol).WithError(err).Debug("skipping malformed ohlc row")
			continue
		}
		if c.OpenTime.Before(q.Start) || (!q.End.IsZero() && c.OpenTime.After(q.End)) {
			continue
		}
		out = append(out, c)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func parseRow(row []json.RawMessage) (models.Candle, error) {
	if len(row) < 7 {
		return models.Candle{}, fmt.Errorf("short ohlc row: %d fields", len(row))
	}
	var ts int64
	if err := json.Unmarshal(row[0], &ts); err != nil {
		return models.Candle{}, fmt.Errorf("ohlc time: %w", err)
	}
	c := models.Candle{OpenTime: time.Unix(ts, 0).UTC()}
	fields := []struct {
		idx int
		dst *float64
	}{{1, &c.Open}, {2, &c.High}, {3, &c.Low}, {4, &c.Close}, {6, &c.Volume}}
	for _, f := range fields {
		var s string
		if err := json.Unmarshal(row[f.idx], &s); err != nil {
			return models.Candle{}, fmt.Errorf("ohlc field %d: %w", f.idx, err)
		}
		v, err := numeric.Float(s)
		if err != nil {
			return models.Candle{}, err
		}
		*f.dst = v
	}
	return c, nil
}
