package analytics

import (
	"context"
	"fmt"
	"time"

	"tradescanner/config"
	"tradescanner/internal/fetch"
	"tradescanner/logger"
	"tradescanner/models"
	"tradescanner/reader"
)

// Options configures an Analyzer.
type Options struct {
	Window       SessionWindow
	Ratio        float64
	LogScale     bool
	Reverse      bool
	MinuteDays   int
	LookbackDays int
}

// OptionsFrom converts the analytics configuration section.
func OptionsFrom(cfg config.AnalyticsConfig) Options {
	return Options{
		Window: SessionWindow{
			Location:   cfg.Location(),
			Weekday:    cfg.SessionWeekday(),
			StartHour:  cfg.StartHour,
			EndHour:    cfg.EndHour,
			StrictBody: cfg.StrictBody,
		},
		Ratio:        cfg.Ratio,
		LogScale:     cfg.LogScale,
		Reverse:      cfg.Reverse,
		MinuteDays:   cfg.MinuteDays,
		LookbackDays: cfg.LookbackDays,
	}
}

// Touches holds the first touch of each tracked level; nil means untouched.
type Touches struct {
	Midline  *models.Touch `json:"midline"`
	BodyHigh *models.Touch `json:"body_high"`
	BodyLow  *models.Touch `json:"body_low"`
	Fib      *models.Touch `json:"fib"`
}

// Report is the analytics result for one symbol.
type Report struct {
	Symbol      string          `json:"symbol"`
	Exchange    models.Exchange `json:"exchange"`
	GeneratedAt time.Time       `json:"generated_at"`
	Candles     int             `json:"candles"`
	Session     *models.Session `json:"session"`
	Midline     *float64        `json:"midline"`
	ATH         *float64        `json:"ath"`
	ATL         *float64        `json:"atl"`
	Ratio       float64         `json:"ratio"`
	FibLevel    *float64        `json:"fib_level"`
	Touches     Touches         `json:"touches"`
}

// Analyzer pulls candles through a range fetcher and builds Reports.
type Analyzer struct {
	exchange models.Exchange
	fetcher  *reader.RangeFetcher
	opts     Options
	log      *logger.Log
}

// NewAnalyzer returns an Analyzer reading from a. Pages are spaced by
// pageDelay.
func NewAnalyzer(a reader.Adapter, pageDelay time.Duration, opts Options, log *logger.Log) *Analyzer {
	return &Analyzer{
		exchange: a.Exchange(),
		fetcher:  reader.NewRangeFetcher(a, fetch.NewPacer(pageDelay), log),
		opts:     opts,
		log:      log,
	}
}

// Analyze fetches the minute series for the last MinuteDays and the daily
// series for the last LookbackDays before now, then derives the session,
// fibonacci level and touches.
func (a *Analyzer) Analyze(ctx context.Context, symbol string, now time.Time) (Report, error) {
	log := a.log.WithComponent("analytics").WithFields(logger.Fields{
		"exchange": a.exchange.String(),
		"symbol":   symbol,
	})
	start := time.Now()

	minutes, err := a.fetcher.Fetch(ctx, symbol, reader.Minute, now.AddDate(0, 0, -a.opts.MinuteDays), now)
	if err != nil {
		return Report{}, fmt.Errorf("fetch minute candles for %s: %w", symbol, err)
	}
	daily, err := a.fetcher.Fetch(ctx, symbol, reader.Day, now.AddDate(0, 0, -a.opts.LookbackDays), now)
	if err != nil {
		return Report{}, fmt.Errorf("fetch daily candles for %s: %w", symbol, err)
	}

	r := Build(symbol, a.exchange, minutes, daily, a.opts)
	r.GeneratedAt = now.UTC()

	logger.LogPerformanceEntry(log, "analytics", "analyze", time.Since(start), logger.Fields{
		"minute_candles": len(minutes),
		"daily_candles":  len(daily),
		"session":        r.Session != nil,
	})
	if r.Session == nil {
		log.Info("no session found in minute series")
	}
	return r, nil
}

// Build derives a Report from already fetched series.
func Build(symbol string, exchange models.Exchange, minutes, daily []models.Candle, opts Options) Report {
	r := Report{
		Symbol:   symbol,
		Exchange: exchange,
		Candles:  len(minutes),
		Ratio:    opts.Ratio,
	}

	var after time.Time
	r.Session = FindSession(minutes, opts.Window)
	if s := r.Session; s != nil {
		after = s.End
		mid := s.Midline()
		r.Midline = &mid
		r.Touches.Midline = FirstTouch(minutes, after, mid)
		r.Touches.BodyHigh = FirstTouch(minutes, after, s.BodyHigh)
		r.Touches.BodyLow = FirstTouch(minutes, after, s.BodyLow)
	}

	if ath, atl, ok := Extremes(daily); ok {
		r.ATH, r.ATL = models.Float(ath), models.Float(atl)
		if level, ok := FibLevel(ath, atl, opts.Ratio, opts.LogScale, opts.Reverse); ok {
			r.FibLevel = &level
			r.Touches.Fib = FirstTouch(minutes, after, level)
		}
	}
	return r
}
