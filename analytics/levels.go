// Package analytics derives weekly session levels, fibonacci retracements and
// their later touches from candle series.
package analytics

import (
	"math"
	"sort"
	"time"

	"tradescanner/models"
)

// SessionWindow selects the weekly reference window in a local timezone.
// Hours are inclusive: 19-23 covers 19:00 through 23:59.
type SessionWindow struct {
	Location  *time.Location
	Weekday   time.Weekday
	StartHour int
	EndHour   int
	// StrictBody limits body extremes to candle opens and closes.
	StrictBody bool
}

func (w SessionWindow) contains(t time.Time) bool {
	local := t.In(w.location())
	return local.Weekday() == w.Weekday && local.Hour() >= w.StartHour && local.Hour() <= w.EndHour
}

func (w SessionWindow) location() *time.Location {
	if w.Location == nil {
		return time.UTC
	}
	return w.Location
}

// FindSession returns the session on the most recent local day matching the
// window, or nil when no candle falls inside it.
func FindSession(candles []models.Candle, w SessionWindow) *models.Session {
	var day time.Time
	for _, c := range candles {
		if !w.contains(c.OpenTime) {
			continue
		}
		local := c.OpenTime.In(w.location())
		d := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, w.location())
		if d.After(day) {
			day = d
		}
	}
	if day.IsZero() {
		return nil
	}

	var s *models.Session
	for _, c := range sorted(candles) {
		if !w.contains(c.OpenTime) {
			continue
		}
		local := c.OpenTime.In(w.location())
		if local.Year() != day.Year() || local.YearDay() != day.YearDay() {
			continue
		}

		hi, lo := math.Max(c.Open, c.Close), math.Min(c.Open, c.Close)
		if !w.StrictBody {
			hi, lo = math.Max(hi, c.High), math.Min(lo, c.Low)
		}
		if s == nil {
			s = &models.Session{
				Start:    c.OpenTime,
				BodyHigh: hi,
				BodyLow:  lo,
				WickHigh: c.High,
				WickLow:  c.Low,
			}
		}
		s.End = c.OpenTime
		s.BodyHigh = math.Max(s.BodyHigh, hi)
		s.BodyLow = math.Min(s.BodyLow, lo)
		s.WickHigh = math.Max(s.WickHigh, c.High)
		s.WickLow = math.Min(s.WickLow, c.Low)
		s.Candles++
	}
	return s
}

// FirstTouch returns the earliest candle opening strictly after after whose
// [low, high] range contains level.
func FirstTouch(candles []models.Candle, after time.Time, level float64) *models.Touch {
	for _, c := range sorted(candles) {
		if !c.OpenTime.After(after) {
			continue
		}
		if c.Contains(level) {
			return &models.Touch{Time: c.OpenTime, Price: level}
		}
	}
	return nil
}

// FibLevel interpolates between high and low at ratio, measured down from the
// high, or up from the low when reverse is set. Non-positive inputs yield
// false.
func FibLevel(high, low, ratio float64, logScale, reverse bool) (float64, bool) {
	if high <= 0 || low <= 0 {
		return 0, false
	}
	if logScale {
		lh, ll := math.Log(high), math.Log(low)
		if reverse {
			return math.Exp(ll + (lh-ll)*ratio), true
		}
		return math.Exp(lh - (lh-ll)*ratio), true
	}
	if reverse {
		return low + (high-low)*ratio, true
	}
	return high - (high-low)*ratio, true
}

// Extremes returns the highest high and lowest low of a daily series.
func Extremes(daily []models.Candle) (ath, atl float64, ok bool) {
	if len(daily) == 0 {
		return 0, 0, false
	}
	ath, atl = daily[0].High, daily[0].Low
	for _, c := range daily[1:] {
		ath = math.Max(ath, c.High)
		atl = math.Min(atl, c.Low)
	}
	return ath, atl, true
}

func sorted(candles []models.Candle) []models.Candle {
	if sort.SliceIsSorted(candles, func(i, j int) bool { return candles[i].OpenTime.Before(candles[j].OpenTime) }) {
		return candles
	}
	out := make([]models.Candle, len(candles))
	copy(out, candles)
	sort.SliceStable(out, func(i, j int) bool { return out[i].OpenTime.Before(out[j].OpenTime) })
	return out
}
