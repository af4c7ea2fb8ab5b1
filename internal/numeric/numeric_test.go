package numeric

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFloat(t *testing.T) {
	v, err := Float(" 45000.50 ")
	require.NoError(t, err)
	assert.Equal(t, 45000.5, v)

	v, err = Float("-5")
	require.NoError(t, err)
	assert.Equal(t, -5.0, v)

	_, err = Float("")
	assert.True(t, errors.Is(err, ErrEmpty))

	_, err = Float("abc")
	assert.Error(t, err)
}

func TestChangePercent(t *testing.T) {
	open, _ := Decimal("100")
	last, _ := Decimal("102.5")
	pct, ok := ChangePercent(open, last)
	require.True(t, ok)
	assert.InDelta(t, 2.5, pct, 1e-9)

	zero, _ := Decimal("0")
	_, ok = ChangePercent(zero, last)
	assert.False(t, ok)
}
