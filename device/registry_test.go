package device_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dsvdc/vdchost/device"
)

func TestAddStampsOwningVDC(t *testing.T) {
	r := device.NewRegistry("VDC0000000000000000000000000000C1")
	d := newLight()
	r.Add(d)
	assert.Equal(t, "VDC0000000000000000000000000000C1", d.VDCDSUID())
}

func TestAddDoesNotAnnounceWhenInactive(t *testing.T) {
	r := device.NewRegistry("VDC0000000000000000000000000000C1")
	var announced []*device.Device
	r.SetHooks(func(d *device.Device) { announced = append(announced, d) }, nil)

	r.Add(newLight())
	assert.Empty(t, announced)
}

func TestAddAnnouncesWhenActive(t *testing.T) {
	r := device.NewRegistry("VDC0000000000000000000000000000C1")
	var announced []*device.Device
	r.SetHooks(func(d *device.Device) { announced = append(announced, d) }, nil)
	r.SetActive(true)

	d := newLight()
	r.Add(d)
	require.Len(t, announced, 1)
	assert.Equal(t, d.DSUID(), announced[0].DSUID())
}

func TestRemoveVanishesWhenActive(t *testing.T) {
	r := device.NewRegistry("VDC0000000000000000000000000000C1")
	var vanished []*device.Device
	r.SetHooks(nil, func(d *device.Device) { vanished = append(vanished, d) })

	d := newLight()
	r.Add(d)
	r.SetActive(true)
	r.Remove(d.DSUID())

	require.Len(t, vanished, 1)
	_, ok := r.Lookup(d.DSUID())
	assert.False(t, ok)
}

func TestLookupMiss(t *testing.T) {
	r := device.NewRegistry("VDC0000000000000000000000000000C1")
	_, ok := r.Lookup("nonexistent")
	assert.False(t, ok)
}

func TestListPreservesInsertionOrder(t *testing.T) {
	r := device.NewRegistry("VDC0000000000000000000000000000C1")
	a := device.New("CC0000000000000000000000000000AA", "A", "m", "mu", device.Light)
	b := device.New("CC0000000000000000000000000000BB", "B", "m", "mu", device.Light)
	r.Add(a)
	r.Add(b)

	list := r.List()
	require.Len(t, list, 2)
	assert.Equal(t, a.DSUID(), list[0].DSUID())
	assert.Equal(t, b.DSUID(), list[1].DSUID())
}
