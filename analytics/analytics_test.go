package analytics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradescanner/config"
	"tradescanner/logger"
	"tradescanner/models"
	"tradescanner/reader"
)

func eastern(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	return loc
}

func window(t *testing.T) SessionWindow {
	return SessionWindow{Location: eastern(t), Weekday: time.Friday, StartHour: 19, EndHour: 23}
}

func candle(at time.Time, open, high, low, closePrice float64) models.Candle {
	return models.Candle{OpenTime: at.UTC(), Open: open, High: high, Low: low, Close: closePrice, Volume: 1}
}

func fridaySeries(t *testing.T) []models.Candle {
	loc := eastern(t)
	return []models.Candle{
		candle(time.Date(2024, 2, 23, 19, 30, 0, 0, loc), 500, 600, 400, 550),
		candle(time.Date(2024, 3, 1, 18, 59, 0, 0, loc), 1, 1000, 1, 1),
		candle(time.Date(2024, 3, 1, 19, 0, 0, 0, loc), 100, 105, 99, 102),
		candle(time.Date(2024, 3, 1, 21, 0, 0, 0, loc), 102, 103, 97, 98),
		candle(time.Date(2024, 3, 1, 23, 59, 0, 0, loc), 98, 101.5, 96, 101),
		candle(time.Date(2024, 3, 2, 0, 0, 0, 0, loc), 101, 2000, 0.5, 101),
	}
}

func TestFindSessionPicksMostRecentWindow(t *testing.T) {
	loc := eastern(t)
	s := FindSession(fridaySeries(t), window(t))
	require.NotNil(t, s)

	assert.Equal(t, 3, s.Candles)
	assert.True(t, s.Start.Equal(time.Date(2024, 3, 1, 19, 0, 0, 0, loc)))
	assert.True(t, s.End.Equal(time.Date(2024, 3, 1, 23, 59, 0, 0, loc)))
	assert.Equal(t, 105.0, s.BodyHigh)
	assert.Equal(t, 96.0, s.BodyLow)
	assert.Equal(t, 105.0, s.WickHigh)
	assert.Equal(t, 96.0, s.WickLow)
	assert.GreaterOrEqual(t, s.BodyHigh, s.BodyLow)
	assert.Equal(t, 100.5, s.Midline())
}

func TestFindSessionStrictBody(t *testing.T) {
	w := window(t)
	w.StrictBody = true
	s := FindSession(fridaySeries(t), w)
	require.NotNil(t, s)
	assert.Equal(t, 102.0, s.BodyHigh)
	assert.Equal(t, 98.0, s.BodyLow)
	assert.Equal(t, 105.0, s.WickHigh)
	assert.Equal(t, 96.0, s.WickLow)
}

func TestFindSessionNone(t *testing.T) {
	assert.Nil(t, FindSession(nil, window(t)))

	loc := eastern(t)
	thursday := []models.Candle{candle(time.Date(2024, 2, 29, 20, 0, 0, 0, loc), 1, 2, 1, 2)}
	assert.Nil(t, FindSession(thursday, window(t)))
}

func TestFirstTouchExcludesSessionEnd(t *testing.T) {
	end := time.Date(2024, 3, 2, 4, 59, 0, 0, time.UTC)
	candles := []models.Candle{
		candle(end.Add(2*time.Minute), 100, 101, 99, 100),
		candle(end, 100, 101, 99, 100),
		candle(end.Add(time.Minute), 100, 101, 99, 100),
	}

	touch := FirstTouch(candles, end, 100)
	require.NotNil(t, touch)
	assert.Equal(t, end.Add(time.Minute), touch.Time)
	assert.Equal(t, 100.0, touch.Price)

	assert.Nil(t, FirstTouch(candles, end, 150))
	assert.Nil(t, FirstTouch(nil, end, 100))
}

func TestFibLevel(t *testing.T) {
	cases := []struct {
		name     string
		ratio    float64
		logScale bool
		reverse  bool
		want     float64
	}{
		{"linear", 0.618, false, false, 69.1},
		{"linear reverse", 0.618, false, true, 80.9},
		{"log midpoint", 0.5, true, false, 70.7107},
		{"log", 0.25, true, false, 84.0896},
		{"log reverse", 0.25, true, true, 59.4604},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := FibLevel(100, 50, tc.ratio, tc.logScale, tc.reverse)
			require.True(t, ok)
			assert.InDelta(t, tc.want, got, 1e-3)
		})
	}

	_, ok := FibLevel(0, 50, 0.5, false, false)
	assert.False(t, ok)
	_, ok = FibLevel(100, -1, 0.5, true, false)
	assert.False(t, ok)
}

func TestExtremes(t *testing.T) {
	_, _, ok := Extremes(nil)
	assert.False(t, ok)

	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ath, atl, ok := Extremes([]models.Candle{
		candle(day, 10, 20, 5, 15),
		candle(day.AddDate(0, 0, 1), 15, 69000, 14, 30),
		candle(day.AddDate(0, 0, 2), 30, 31, 3, 4),
	})
	require.True(t, ok)
	assert.Equal(t, 69000.0, ath)
	assert.Equal(t, 3.0, atl)
}

func TestBuildWithoutSessionScansWholeSeriesForFib(t *testing.T) {
	base := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)
	minutes := []models.Candle{
		candle(base, 70, 71, 69, 70),
		candle(base.Add(time.Minute), 75, 76, 74, 75),
	}
	daily := []models.Candle{candle(base.AddDate(0, 0, -3), 60, 100, 50, 90)}

	opts := OptionsFrom(config.Default().Analytics)
	opts.Window.Weekday = time.Sunday
	r := Build("BTCUSDT", models.Binance, minutes, daily, opts)

	assert.Nil(t, r.Session)
	assert.Nil(t, r.Midline)
	assert.Nil(t, r.Touches.Midline)
	require.NotNil(t, r.FibLevel)
	assert.Equal(t, 75.0, *r.FibLevel)
	require.NotNil(t, r.Touches.Fib)
	assert.Equal(t, base.Add(time.Minute), r.Touches.Fib.Time)
}

func TestBuildEmptySeries(t *testing.T) {
	r := Build("BTCUSDT", models.Binance, nil, nil, OptionsFrom(config.Default().Analytics))
	assert.Nil(t, r.Session)
	assert.Nil(t, r.ATH)
	assert.Nil(t, r.ATL)
	assert.Nil(t, r.FibLevel)
	assert.Nil(t, r.Touches.Fib)
}

type seriesAdapter struct {
	series map[reader.Interval][]models.Candle
	err    error
}

func (s *seriesAdapter) Exchange() models.Exchange { return models.Binance }
func (s *seriesAdapter) RequiresCredentials() bool { return false }
func (s *seriesAdapter) TickerPolicy() reader.TickerPolicy { return reader.TickerPolicy{} }
func (s *seriesAdapter) PageLimit() int { return 1000 }

func (s *seriesAdapter) ListInstruments(ctx context.Context) ([]reader.Instrument, error) {
	return nil, nil
}

func (s *seriesAdapter) TickerSnapshot(ctx context.Context, symbols []string) ([]reader.Ticker, error) {
	return nil, nil
}

func (s *seriesAdapter) Candles(ctx context.Context, q reader.CandleQuery) ([]models.Candle, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []models.Candle
	for _, c := range s.series[q.Interval] {
		if c.OpenTime.Before(q.Start) || c.OpenTime.After(q.End) {
			continue
		}
		out = append(out, c)
		if len(out) == q.Limit {
			break
		}
	}
	return out, nil
}

func TestAnalyze(t *testing.T) {
	loc := eastern(t)
	minutes := fridaySeries(t)[2:5]
	after := time.Date(2024, 3, 2, 9, 30, 0, 0, loc)
	minutes = append(minutes,
		candle(after, 101, 102, 100, 101),
		candle(after.Add(time.Minute), 104, 106, 104, 105),
		candle(after.Add(2*time.Minute), 90, 97, 80, 91),
	)
	now := time.Date(2024, 3, 2, 17, 0, 0, 0, time.UTC)
	daily := []models.Candle{
		candle(now.AddDate(0, 0, -400), 20, 30, 10, 25),
		candle(now.AddDate(0, 0, -2), 100, 170, 90, 95),
	}

	src := &seriesAdapter{series: map[reader.Interval][]models.Candle{
		reader.Minute: minutes,
		reader.Day:    daily,
	}}
	a := NewAnalyzer(src, 0, OptionsFrom(config.Default().Analytics), logger.Discard())

	r, err := a.Analyze(context.Background(), "BTCUSDT", now)
	require.NoError(t, err)
	require.NotNil(t, r.Session)
	assert.Equal(t, 6, r.Candles)
	assert.Equal(t, now, r.GeneratedAt)

	require.NotNil(t, r.Midline)
	assert.Equal(t, 100.5, *r.Midline)
	require.NotNil(t, r.Touches.Midline)
	assert.True(t, r.Touches.Midline.Time.Equal(after))

	require.NotNil(t, r.Touches.BodyHigh)
	assert.True(t, r.Touches.BodyHigh.Time.Equal(after.Add(time.Minute)))
	require.NotNil(t, r.Touches.BodyLow)
	assert.True(t, r.Touches.BodyLow.Time.Equal(after.Add(2*time.Minute)))

	assert.Equal(t, 170.0, *r.ATH)
	assert.Equal(t, 10.0, *r.ATL)
	require.NotNil(t, r.FibLevel)
	assert.Equal(t, 90.0, *r.FibLevel)
	require.NotNil(t, r.Touches.Fib)
	assert.True(t, r.Touches.Fib.Time.Equal(after.Add(2*time.Minute)))
}

func TestAnalyzeFetchError(t *testing.T) {
	a := NewAnalyzer(&seriesAdapter{err: errors.New("boom")}, 0, OptionsFrom(config.Default().Analytics), logger.Discard())
	_, err := a.Analyze(context.Background(), "BTCUSDT", time.Now())
	assert.ErrorContains(t, err, "boom")
}
