package dsuid_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dsvdc/vdchost/dsuid"
)

func TestParseValid(t *testing.T) {
	good := "CC0000000000000000000000000000C1CC"[:34]
	id, err := dsuid.Parse(good)
	require.NoError(t, err)
	assert.Equal(t, good, id.String())
}

func TestParseRejectsWrongLength(t *testing.T) {
	_, err := dsuid.Parse("ABCD")
	assert.ErrorIs(t, err, dsuid.ErrMalformed)
}

func TestParseRejectsNonHex(t *testing.T) {
	bad := "ZZ0000000000000000000000000000C1C1"
	_, err := dsuid.Parse(bad)
	assert.ErrorIs(t, err, dsuid.ErrMalformed)
}

func TestEqualIsCaseInsensitive(t *testing.T) {
	a, err := dsuid.Parse("aabb0000000000000000000000000000c1")
	require.NoError(t, err)
	b, err := dsuid.Parse("AABB0000000000000000000000000000C1")
	require.NoError(t, err)
	assert.True(t, a.Equal(b))
}

func TestEqualStringDoesNotRequireParse(t *testing.T) {
	a, err := dsuid.Parse("aabb0000000000000000000000000000c1")
	require.NoError(t, err)
	assert.True(t, a.EqualString("AABB0000000000000000000000000000C1"))
	assert.False(t, a.EqualString("short"))
}
