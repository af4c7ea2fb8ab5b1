package models

import "time"

// Candle is one OHLCV bar. OpenTime is the bar's opening instant.
type Candle struct {
	OpenTime time.Time `json:"open_time"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	Volume   float64   `json:"volume"`
}

// Contains reports whether price lies within the candle's [low, high] range.
func (c Candle) Contains(price float64) bool {
	return c.Low <= price && price <= c.High
}

// Session is a detected weekly reference window.
type Session struct {
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	BodyHigh float64   `json:"body_high"`
	BodyLow  float64   `json:"body_low"`
	WickHigh float64   `json:"wick_high"`
	WickLow  float64   `json:"wick_low"`
	Candles  int       `json:"candles"`
}

// Midline is the midpoint of the session body.
func (s Session) Midline() float64 {
	return (s.BodyHigh + s.BodyLow) / 2
}

// Touch records the first later candle whose range contains a level.
// Price is the level itself, not the candle's own price.
type Touch struct {
	Time  time.Time `json:"time"`
	Price float64   `json:"price"`
}
