package models

import (
	"fmt"
	"strings"
)

// Exchange identifies one of the supported upstream venues.
type Exchange string

const (
	Binance  Exchange = "binance"
	Coinbase Exchange = "coinbase"
	Kraken   Exchange = "kraken"
)

// Exchanges lists every supported exchange in canonical order.
func Exchanges() []Exchange {
	return []Exchange{Binance, Coinbase, Kraken}
}

// ParseExchange converts a user supplied name into an Exchange.
func ParseExchange(name string) (Exchange, error) {
	ex := Exchange(strings.ToLower(strings.TrimSpace(name)))
	if !ex.Valid() {
		return "", fmt.Errorf("unknown exchange '%s'", name)
	}
	return ex, nil
}

// Valid reports whether e belongs to the supported set.
func (e Exchange) Valid() bool {
	switch e {
	case Binance, Coinbase, Kraken:
		return true
	default:
		return false
	}
}

func (e Exchange) String() string { return string(e) }
