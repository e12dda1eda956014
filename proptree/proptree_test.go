package proptree_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dsvdc/vdchost/proptree"
)

func TestRoundTrip(t *testing.T) {
	fields := []proptree.Field{
		{Name: "dSUID", Value: "CC0000000000000000000000000000C1"},
		{Name: "name", Value: "Living Room Light"},
		{Name: "deviceClass", Value: "Light"},
		{Name: "output", Value: []proptree.Field{
			{Name: "value", Value: float64(75)},
			{Name: "mode", Value: int(0)},
		}},
	}

	elements, err := proptree.Build(fields)
	require.NoError(t, err)

	got := proptree.Lower(elements)
	require.Len(t, got, len(fields))
	for i := range fields {
		assert.Equal(t, fields[i].Name, got[i].Name)
	}
	assert.Equal(t, "CC0000000000000000000000000000C1", got[0].Value)
	nested, ok := got[3].Value.([]proptree.Field)
	require.True(t, ok)
	assert.Equal(t, float64(75), nested[0].Value)
	assert.Equal(t, uint64(0), nested[1].Value)
}

func TestSignSplitsIntVariant(t *testing.T) {
	elements, err := proptree.Build([]proptree.Field{
		{Name: "positive", Value: int(5)},
		{Name: "negative", Value: int(-5)},
	})
	require.NoError(t, err)
	assert.Equal(t, proptree.KindUint64, elements[0].Value.Kind())
	assert.Equal(t, proptree.KindInt64, elements[1].Value.Kind())
	assert.Equal(t, uint64(5), elements[0].Value.Any())
	assert.Equal(t, int64(-5), elements[1].Value.Any())
}

func TestAbsentValue(t *testing.T) {
	elements, err := proptree.Build([]proptree.Field{{Name: "empty", Value: nil}})
	require.NoError(t, err)
	assert.True(t, elements[0].Value.IsAbsent())
	assert.False(t, elements[0].HasValue)

	got := proptree.Lower(elements)
	assert.Nil(t, got[0].Value)
}

func TestUnsupportedValueErrors(t *testing.T) {
	_, err := proptree.Build([]proptree.Field{{Name: "bad", Value: struct{}{}}})
	assert.ErrorIs(t, err, proptree.ErrUnsupportedValue)
}
