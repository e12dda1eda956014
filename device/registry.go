package device

import "sync"

// Registry is the Host's keyed collection of devices (spec §4.3). Add
// stamps the device's owning vDC, Remove deletes it, and both may fire
// hooks that the session layer wires up to emit announce/vanish frames
// while a session is Active — the registry itself holds no socket and
// knows nothing about framing; it only decides when to call the hooks.
type Registry struct {
	mu       sync.RWMutex
	vdcDSUID string
	order    []string
	devices  map[string]*Device

	active     bool
	onAnnounce func(*Device)
	onVanish   func(*Device)
}

// NewRegistry constructs an empty Registry owned by the given vDC.
func NewRegistry(vdcDSUID string) *Registry {
	return &Registry{
		vdcDSUID: vdcDSUID,
		devices:  make(map[string]*Device),
	}
}

// SetHooks installs the callbacks invoked by Add/Remove while the registry
// is marked active. Either may be nil. Per spec §4.3's shared-resources
// rule, hooks are called with no registry lock held, so a hook may safely
// call back into Add/Remove/Lookup without deadlocking.
func (r *Registry) SetHooks(onAnnounce, onVanish func(*Device)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onAnnounce = onAnnounce
	r.onVanish = onVanish
}

// SetActive marks whether a session is currently Active; Add/Remove only
// fire hooks while this is true (spec §4.3, §4.4 Announcement task).
func (r *Registry) SetActive(active bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = active
}

// Add inserts d, stamping its owning vDC dsuid, and — if a session is
// Active — invokes the announce hook for it. Re-adding an already-present
// dsuid replaces the entry in place, preserving its position in List order.
func (r *Registry) Add(d *Device) {
	d.setVDC(r.vdcDSUIDSnapshot())

	r.mu.Lock()
	_, existed := r.devices[d.dsuid]
	r.devices[d.dsuid] = d
	if !existed {
		r.order = append(r.order, d.dsuid)
	}
	active := r.active
	hook := r.onAnnounce
	r.mu.Unlock()

	if active && hook != nil {
		hook(d)
	}
}

func (r *Registry) vdcDSUIDSnapshot() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.vdcDSUID
}

// Remove deletes the device with the given dsuid, if present, and — if a
// session is Active — invokes the vanish hook for it first (spec §4.3).
func (r *Registry) Remove(dsuid string) {
	r.mu.Lock()
	d, ok := r.devices[dsuid]
	if !ok {
		r.mu.Unlock()
		return
	}
	active := r.active
	hook := r.onVanish
	r.mu.Unlock()

	if active && hook != nil {
		hook(d)
	}

	r.mu.Lock()
	delete(r.devices, dsuid)
	for i, id := range r.order {
		if id == dsuid {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.mu.Unlock()
}

// Lookup returns the device with the given dsuid, if present.
func (r *Registry) Lookup(dsuid string) (*Device, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.devices[dsuid]
	return d, ok
}

// List returns the currently registered devices in insertion order, for
// the announcement task's one-pass sweep over the registry at session
// start.
func (r *Registry) List() []*Device {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Device, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.devices[id])
	}
	return out
}

// VDCDSUID returns the vDC dsuid this registry stamps onto added devices.
func (r *Registry) VDCDSUID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.vdcDSUID
}
