package reader

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnsupportedInterval is returned when an exchange cannot serve an interval.
var ErrUnsupportedInterval = errors.New("unsupported interval")

// Interval is the canonical candle interval vocabulary.
type Interval string

const (
	Minute         Interval = "1m"
	FiveMinutes    Interval = "5m"
	FifteenMinutes Interval = "15m"
	ThirtyMinutes  Interval = "30m"
	Hour           Interval = "1h"
	FourHours      Interval = "4h"
	SixHours       Interval = "6h"
	Day            Interval = "1d"
	Week           Interval = "1w"
)

var intervalDurations = map[Interval]time.Duration{
	Minute:         time.Minute,
	FiveMinutes:    5 * time.Minute,
	FifteenMinutes: 15 * time.Minute,
	ThirtyMinutes:  30 * time.Minute,
	Hour:           time.Hour,
	FourHours:      4 * time.Hour,
	SixHours:       6 * time.Hour,
	Day:            24 * time.Hour,
	Week:           7 * 24 * time.Hour,
}

// Duration returns the bar length of i.
func (i Interval) Duration() (time.Duration, error) {
	d, ok := intervalDurations[i]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedInterval, i)
	}
	return d, nil
}

// Unsupported wraps ErrUnsupportedInterval for exchange.
func Unsupported(exchange string, i Interval) error {
	return fmt.Errorf("%w: %s does not support %s", ErrUnsupportedInterval, exchange, i)
}
