// Package device implements the vDC device model: identity, static
// description, mutable output state, and the capability verbs the session
// dispatcher invokes against it (spec §4.2/§4.3).
package device

import (
	"fmt"
	"sync"

	"github.com/dsvdc/vdchost/proptree"
)

// Class is a device's declared role, drawn from the closed set named in
// spec §4.2.
type Class string

const (
	Light          Class = "Light"
	Shade          Class = "Shade"
	Heating        Class = "Heating"
	Cooling        Class = "Cooling"
	Ventilation    Class = "Ventilation"
	Window         Class = "Window"
	Joker          Class = "Joker"
	Audio          Class = "Audio"
	Video          Class = "Video"
	SecuritySystem Class = "SecuritySystem"
	Access         Class = "Access"
	SingleButton   Class = "SingleButton"
)

// hasOutput reports whether class carries an output{value,mode} subtree in
// its property tree (spec §4.3).
func (c Class) hasOutput() bool {
	switch c {
	case Light, Shade, Heating, Cooling:
		return true
	default:
		return false
	}
}

// Valid reports whether c is one of the twelve named classes.
func (c Class) Valid() bool {
	switch c {
	case Light, Shade, Heating, Cooling, Ventilation, Window, Joker, Audio, Video, SecuritySystem, Access, SingleButton:
		return true
	default:
		return false
	}
}

// sceneDefaults maps a scene number to the output value it applies, for the
// scenes the default call_scene policy recognizes (spec §4.3). Scenes absent
// from this table are a no-op under the default policy.
var sceneDefaults = map[uint8]float64{
	0:  0.0,
	5:  100.0,
	12: 75.0,
	13: 50.0,
	14: 25.0,
}

// Device is one virtual device: identity and static description plus
// mutable output state and custom properties, guarded by a mutex since the
// dispatcher and registry mutation calls (spec §4.3 Shared resources) may
// run from different goroutines.
type Device struct {
	mu sync.Mutex

	dsuid       string
	name        string
	model       string
	modelUID    string
	class       Class
	vdcDSUID    string // set by Registry.Add
	outputValue float64
	outputMode  int64
	custom      []proptree.Field // insertion-ordered, per set_property
}

// New constructs a Device. vdcDSUID is unset until the device is inserted
// into a Registry.
func New(dsuid, name, model, modelUID string, class Class) *Device {
	return &Device{
		dsuid:    dsuid,
		name:     name,
		model:    model,
		modelUID: modelUID,
		class:    class,
	}
}

// DSUID returns the device's identifier.
func (d *Device) DSUID() string { return d.dsuid }

// VDCDSUID returns the owning vDC's dsuid, set once the device has been
// inserted into a Registry; empty until then.
func (d *Device) VDCDSUID() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.vdcDSUID
}

// setVDC records the owning vDC's dsuid; called by Registry.Add.
func (d *Device) setVDC(vdcDSUID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.vdcDSUID = vdcDSUID
}

// CallScene applies the default scene→output policy (spec §4.3). Scenes
// outside sceneDefaults are a no-op. force is accepted but not used.
func (d *Device) CallScene(scene uint8, force bool) error {
	value, ok := sceneDefaults[scene]
	if !ok {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.outputValue = value
	return nil
}

// SetOutputValue replaces the output value immediately when applyNow is
// true. When false, the default policy does not retain a staged value (spec
// §4.3 explicitly marks this overridable; the default simply drops it).
func (d *Device) SetOutputValue(value float64, applyNow bool) error {
	if !applyNow {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.outputValue = value
	return nil
}

// DimChannel nudges the output value by ±10, clamped to [0, 100] (spec
// §4.3, P5). mode 0 is a no-op; channel is accepted but not used, since a
// Device has a single output value.
func (d *Device) DimChannel(mode int8, channel uint16) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch mode {
	case 1:
		d.outputValue = min(100, d.outputValue+10)
	case -1:
		d.outputValue = max(0, d.outputValue-10)
	case 0:
		// no-op
	}
	return nil
}

// Identify is the identify verb; it does nothing. Device is a concrete type
// and the session calls these verb methods directly, so there is no hook
// for replacing a verb's behavior per device.
func (d *Device) Identify() error { return nil }

// ErrInvalidValueType is returned by SetProperty when value cannot be
// coerced to the target field's type (spec §4.4: such a failure aborts the
// request with *invalid-value-type* and abandons any remaining entries).
var ErrInvalidValueType = errInvalidValueType{}

type errInvalidValueType struct{}

func (errInvalidValueType) Error() string { return "device: invalid value type for property" }

// SetProperty applies one (name, value) pair per spec §4.3: "name" replaces
// the display name; "output.value"/"outputValue" coerce to double and
// replace the output value; anything else is stored into custom
// properties, overwriting an existing entry of the same name in place so
// that a repeated set preserves original sibling order.
func (d *Device) SetProperty(name string, value interface{}) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch name {
	case "name":
		s, ok := value.(string)
		if !ok {
			return ErrInvalidValueType
		}
		d.name = s
		return nil
	case "output.value", "outputValue":
		f, ok := toFloat64(value)
		if !ok {
			return ErrInvalidValueType
		}
		d.outputValue = f
		return nil
	default:
		for i, f := range d.custom {
			if f.Name == name {
				d.custom[i].Value = value
				return nil
			}
		}
		d.custom = append(d.custom, proptree.Field{Name: name, Value: value})
		return nil
	}
}

func toFloat64(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint64:
		return float64(v), true
	default:
		return 0, false
	}
}

// PropertyFields returns the device's property tree as an ordered field
// list: basic descriptive fields, any custom properties, and — for classes
// that carry one — an output subtree (spec §4.3).
func (d *Device) PropertyFields() []proptree.Field {
	d.mu.Lock()
	defer d.mu.Unlock()

	fields := []proptree.Field{
		{Name: "dSUID", Value: d.dsuid},
		{Name: "name", Value: d.name},
		{Name: "model", Value: d.model},
		{Name: "modelUID", Value: d.modelUID},
		{Name: "type", Value: "vdSD"},
		{Name: "deviceClass", Value: string(d.class)},
	}
	fields = append(fields, d.custom...)
	if d.class.hasOutput() {
		fields = append(fields, proptree.Field{
			Name: "output",
			Value: []proptree.Field{
				{Name: "value", Value: d.outputValue},
				{Name: "mode", Value: d.outputMode},
			},
		})
	}
	return fields
}

// String renders the device for logging, mirroring the compact
// "Type[fields]" convention the protocol layer uses for frame types.
func (d *Device) String() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return fmt.Sprintf("Device[dsuid=%s name=%q class=%s]", d.dsuid, d.name, d.class)
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func max(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
