package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	token, err := Encode(Cursor{ID: 42, CreatedUnix: 1700000000000})
	require.NoError(t, err)

	c, err := Decode(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), c.ID)
	assert.False(t, c.IsZero())
}

func TestDecodeEmptyAndInvalid(t *testing.T) {
	c, err := Decode("")
	require.NoError(t, err)
	assert.True(t, c.IsZero())

	_, err = Decode("%%%")
	assert.Error(t, err)
}
