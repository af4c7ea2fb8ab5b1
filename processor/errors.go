package processor

import (
	"errors"
	"fmt"

	"tradescanner/models"
)

var (
	ErrNonPositivePrice = errors.New("price is not positive")
	ErrNegativeVolume   = errors.New("volume is negative")
	ErrEmptyVolume      = errors.New("volume is not positive")
)

// ParseFailure reports a malformed numeric field in one ticker record.
type ParseFailure struct {
	Exchange models.Exchange
	Symbol   string
	Field    string
	Value    string
	Err      error
}

func (e *ParseFailure) Error() string {
	return fmt.Sprintf("%s %s: cannot parse %s %q: %v", e.Exchange, e.Symbol, e.Field, e.Value, e.Err)
}

func (e *ParseFailure) Unwrap() error { return e.Err }
