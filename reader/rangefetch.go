package reader

import (
	"context"
	"fmt"
	"time"

	"tradescanner/internal/fetch"
	"tradescanner/logger"
	"tradescanner/models"
)

// RangeFetcher walks a time range in page-capped requests.
type RangeFetcher struct {
	source CandleSource
	pacer  *fetch.Pacer
	log    *logger.Log
}

// NewRangeFetcher returns a RangeFetcher pacing pages with pacer.
func NewRangeFetcher(source CandleSource, pacer *fetch.Pacer, log *logger.Log) *RangeFetcher {
	return &RangeFetcher{source: source, pacer: pacer, log: log}
}

// Fetch returns every candle of symbol opening in [start, end), ordered by
// strictly increasing open time. Every page, the first included, waits on the
// pacer. The cursor moves to one millisecond past the last returned open time
// after each page, and the fetch stops on an empty or short page, on a page
// that makes no progress, or once the cursor reaches end.
//
// A WindowedSource is walked window by window instead: the cursor advances by
// Limit intervals per page and short or empty pages do not stop the fetch.
func (f *RangeFetcher) Fetch(ctx context.Context, symbol string, interval Interval, start, end time.Time) ([]models.Candle, error) {
	step, err := interval.Duration()
	if err != nil {
		return nil, err
	}
	if !start.Before(end) {
		return nil, nil
	}

	limit := f.source.PageLimit()
	if limit <= 0 {
		return nil, fmt.Errorf("candle source reports page limit %d", limit)
	}
	maxPages := int(end.Sub(start)/step) + 1
	windowed := false
	if ws, ok := f.source.(WindowedSource); ok {
		windowed = ws.WindowedPages()
	}

	log := f.log.WithComponent("range_fetch").WithFields(logger.Fields{
		"symbol":   symbol,
		"interval": string(interval),
		"windowed": windowed,
	})

	var (
		out    []models.Candle
		last   time.Time
		cursor = start
		pages  int
	)
	for cursor.Before(end) && pages < maxPages {
		if err := f.pacer.Wait(ctx); err != nil {
			return nil, err
		}
		pages++

		batch, err := f.source.Candles(ctx, CandleQuery{
			Symbol:   symbol,
			Interval: interval,
			Start:    cursor,
			End:      end,
			Limit:    limit,
		})
		if err != nil {
			return nil, err
		}
		if len(batch) == 0 && !windowed {
			break
		}

		appended := 0
		for _, c := range batch {
			if c.OpenTime.Before(cursor) || !c.OpenTime.Before(end) {
				continue
			}
			if !last.IsZero() && !c.OpenTime.After(last) {
				continue
			}
			out = append(out, c)
			last = c.OpenTime
			appended++
		}

		if windowed {
			cursor = cursor.Add(time.Duration(limit) * step)
			continue
		}
		if len(batch) < limit || appended == 0 {
			break
		}
		cursor = last.Add(time.Millisecond)
	}

	log.WithFields(logger.Fields{"pages": pages, "candles": len(out)}).Debug("range fetch complete")
	return out, nil
}
