package binance

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradescanner/internal/fetch"
	"tradescanner/logger"
	"tradescanner/reader"
)

const tickerBody = `[
 {"symbol":"BTCUSDT","priceChange":"1000","priceChangePercent":"2.5","weightedAvgPrice":"44000","lastPrice":"45000","lastQty":"1","openPrice":"44000","highPrice":"46000","lowPrice":"43000","volume":"1000000","quoteVolume":"1","openTime":1700000000000,"closeTime":1700086399999,"firstId":1,"lastId":2,"count":2},
 {"symbol":"XYZUSDT","priceChange":"0","priceChangePercent":"0","weightedAvgPrice":"0","lastPrice":"0.001","lastQty":"1","openPrice":"0.001","highPrice":"0.001","lowPrice":"0.001","volume":"5","quoteVolume":"1","openTime":1700000000000,"closeTime":1700086399999,"firstId":1,"lastId":2,"count":2}
]`

const exchangeInfoBody = `{
 "timezone":"UTC","serverTime":1700000000000,
 "rateLimits":[{"rateLimitType":"REQUEST_WEIGHT","interval":"MINUTE","intervalNum":1,"limit":2400}],
 "symbols":[
  {"symbol":"BTCUSDT","pair":"BTCUSDT","contractType":"PERPETUAL","status":"TRADING","baseAsset":"BTC","quoteAsset":"USDT"},
  {"symbol":"BTCUSDT_240329","pair":"BTCUSDT","contractType":"CURRENT_QUARTER","status":"TRADING","baseAsset":"BTC","quoteAsset":"USDT"},
  {"symbol":"OLDUSDT","pair":"OLDUSDT","contractType":"PERPETUAL","status":"SETTLING","baseAsset":"OLD","quoteAsset":"USDT"}
 ]
}`

func newServer(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/fapi/v1/ticker/24hr", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		_, _ = w.Write([]byte(tickerBody))
	})
	mux.HandleFunc("/fapi/v1/exchangeInfo", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		_, _ = w.Write([]byte(exchangeInfoBody))
	})
	mux.HandleFunc("/fapi/v1/klines", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		assert.Equal(t, "BTCUSDT", r.URL.Query().Get("symbol"))
		assert.Equal(t, "1m", r.URL.Query().Get("interval"))
		assert.Equal(t, "1500", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`[
 [1700000000000,"100","101","99","100.5","10",1700000059999,"1000",5,"4","400","0"],
 [1700000060000,"100.5","bad","99","100.5","10",1700000119999,"1000",5,"4","400","0"],
 [1700000120000,"100.5","102","100","101","12",1700000179999,"1000",5,"4","400","0"]
]`))
	})
	return httptest.NewServer(mux)
}

func newAdapter(srv *httptest.Server, attempts int) *Adapter {
	log := logger.Discard()
	httpClient := fetch.NewHTTPClient("binance", 2*time.Second, 2, log)
	return New(srv.URL, httpClient, fetch.NewRetrier(attempts, 0, log), log)
}

func TestTickerSnapshot(t *testing.T) {
	var hits int32
	srv := newServer(t, &hits)
	defer srv.Close()

	a := newAdapter(srv, 3)
	tickers, err := a.TickerSnapshot(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, tickers, 2)
	assert.Equal(t, "BTCUSDT", tickers[0].Symbol)
	assert.Equal(t, "45000", tickers[0].Last)
	assert.Equal(t, "1000000", tickers[0].Volume)
	assert.Equal(t, "2.5", tickers[0].ChangePercent)
	assert.Equal(t, time.UnixMilli(1700086399999).UTC(), tickers[0].CloseTime)

	only, err := a.TickerSnapshot(context.Background(), []string{"XYZUSDT"})
	require.NoError(t, err)
	require.Len(t, only, 1)
	assert.Equal(t, "XYZUSDT", only[0].Symbol)
}

func TestListInstruments(t *testing.T) {
	var hits int32
	srv := newServer(t, &hits)
	defer srv.Close()

	instruments, err := newAdapter(srv, 1).ListInstruments(context.Background())
	require.NoError(t, err)
	require.Len(t, instruments, 3)
	assert.True(t, instruments[0].Tradable)
	assert.False(t, instruments[1].Tradable, "quarterly contracts are not perpetual")
	assert.False(t, instruments[2].Tradable, "settling contracts are not trading")
	assert.Equal(t, "BTC", instruments[0].Base)
}

func TestCandlesSkipsMalformedRows(t *testing.T) {
	var hits int32
	srv := newServer(t, &hits)
	defer srv.Close()

	start := time.UnixMilli(1700000000000)
	candles, err := newAdapter(srv, 1).Candles(context.Background(), reader.CandleQuery{
		Symbol:   "BTCUSDT",
		Interval: reader.Minute,
		Start:    start,
		End:      start.Add(time.Hour),
		Limit:    5000,
	})
	require.NoError(t, err)
	require.Len(t, candles, 2)
	assert.Equal(t, start.UTC(), candles[0].OpenTime)
	assert.Equal(t, 101.0, candles[0].High)
	assert.Equal(t, 12.0, candles[1].Volume)
}

func TestCandlesRejectsUnsupportedInterval(t *testing.T) {
	var hits int32
	srv := newServer(t, &hits)
	defer srv.Close()

	_, err := newAdapter(srv, 1).Candles(context.Background(), reader.CandleQuery{Symbol: "BTCUSDT", Interval: "3d"})
	assert.ErrorIs(t, err, reader.ErrUnsupportedInterval)
	assert.Zero(t, atomic.LoadInt32(&hits))
}

func TestFailuresBecomeRequestFailure(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"code":-1000,"msg":"internal"}`))
	}))
	defer srv.Close()

	_, err := newAdapter(srv, 3).TickerSnapshot(context.Background(), nil)
	var failure *fetch.RequestFailure
	require.True(t, errors.As(err, &failure), "got %v", err)
	assert.Equal(t, 3, failure.Attempts)
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
}
