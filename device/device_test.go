package device_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dsvdc/vdchost/device"
	"github.com/dsvdc/vdchost/proptree"
)

func newLight() *device.Device {
	return device.New("CC0000000000000000000000000000C1", "Living Room Light", "m1", "mu1", device.Light)
}

func fieldValue(fields []proptree.Field, name string) (interface{}, bool) {
	for _, f := range fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

func TestCallSceneAppliesDefaultMap(t *testing.T) {
	d := newLight()
	require.NoError(t, d.CallScene(5, false))
	output, ok := fieldValue(d.PropertyFields(), "output")
	require.True(t, ok)
	nested := output.([]proptree.Field)
	value, _ := fieldValue(nested, "value")
	assert.Equal(t, 100.0, value)

	require.NoError(t, d.CallScene(0, false))
	output, _ = fieldValue(d.PropertyFields(), "output")
	nested = output.([]proptree.Field)
	value, _ = fieldValue(nested, "value")
	assert.Equal(t, 0.0, value)
}

func TestCallSceneUnknownSceneIsNoop(t *testing.T) {
	d := newLight()
	require.NoError(t, d.SetOutputValue(42, true))
	require.NoError(t, d.CallScene(99, false))
	output, _ := fieldValue(d.PropertyFields(), "output")
	value, _ := fieldValue(output.([]proptree.Field), "value")
	assert.Equal(t, 42.0, value)
}

func TestDimChannelClampsToRange(t *testing.T) {
	d := newLight()
	for i := 0; i < 12; i++ {
		require.NoError(t, d.DimChannel(1, 0))
	}
	output, _ := fieldValue(d.PropertyFields(), "output")
	value, _ := fieldValue(output.([]proptree.Field), "value")
	assert.Equal(t, 100.0, value)

	for i := 0; i < 12; i++ {
		require.NoError(t, d.DimChannel(-1, 0))
	}
	output, _ = fieldValue(d.PropertyFields(), "output")
	value, _ = fieldValue(output.([]proptree.Field), "value")
	assert.Equal(t, 0.0, value)
}

func TestSetPropertyName(t *testing.T) {
	d := newLight()
	require.NoError(t, d.SetProperty("name", "Kitchen Light"))
	name, _ := fieldValue(d.PropertyFields(), "name")
	assert.Equal(t, "Kitchen Light", name)
}

func TestSetPropertyOutputValueAliases(t *testing.T) {
	d := newLight()
	require.NoError(t, d.SetProperty("outputValue", float64(33)))
	output, _ := fieldValue(d.PropertyFields(), "output")
	value, _ := fieldValue(output.([]proptree.Field), "value")
	assert.Equal(t, 33.0, value)
}

func TestSetPropertyCustomPreservesOrderOnOverwrite(t *testing.T) {
	d := newLight()
	require.NoError(t, d.SetProperty("zone", "living-room"))
	require.NoError(t, d.SetProperty("floor", "1"))
	require.NoError(t, d.SetProperty("zone", "den"))

	fields := d.PropertyFields()
	zone, _ := fieldValue(fields, "zone")
	floor, _ := fieldValue(fields, "floor")
	assert.Equal(t, "den", zone)
	assert.Equal(t, "1", floor)

	var order []string
	for _, f := range fields {
		if f.Name == "zone" || f.Name == "floor" {
			order = append(order, f.Name)
		}
	}
	assert.Equal(t, []string{"zone", "floor"}, order)
}

func TestSetPropertyInvalidTypeErrors(t *testing.T) {
	d := newLight()
	err := d.SetProperty("name", 42)
	assert.ErrorIs(t, err, device.ErrInvalidValueType)
}

func TestPropertyFieldsOmitsOutputForClassesWithoutIt(t *testing.T) {
	d := device.New("CC0000000000000000000000000000C2", "Front Door", "m1", "mu1", device.Access)
	_, ok := fieldValue(d.PropertyFields(), "output")
	assert.False(t, ok)
}
