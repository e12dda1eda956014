// Package host implements the vDC host listener: the top-level server that
// accepts at most one active vdSM session at a time over the Device
// Registry it owns (spec §4.5).
package host

import (
	"context"
	"errors"
	"net"
	"strconv"
	"sync"

	"github.com/dsvdc/vdchost/clog"
	"github.com/dsvdc/vdchost/device"
	"github.com/dsvdc/vdchost/metrics"
	"github.com/dsvdc/vdchost/session"
)

// DefaultPort is the port a Host binds when none is configured (spec §6).
const DefaultPort = 8444

// Host is the top-level server: one listener, one Device Registry, the
// stable (host dsuid, vDC dsuid) pair, and at most one active Session.
type Host struct {
	identities session.Identities
	port       int
	config     session.Config
	log        clog.Clog
	metrics    *metrics.Metrics

	registry *device.Registry

	mu       sync.Mutex
	listener net.Listener
	active   *session.Session
}

// Identity is the construction-time identity and descriptive fields for
// both the host process and the vDC it exposes (spec §6 "Configuration
// surface": Host construction takes (host_dsuid, vdc_dsuid, port)).
type Identity = session.Identities

// New constructs a Host listening on port (0 uses DefaultPort).
func New(identities Identity, port int, cfg session.Config, log clog.Clog, m *metrics.Metrics) *Host {
	if port == 0 {
		port = DefaultPort
	}
	return &Host{
		identities: identities,
		port:       port,
		config:     cfg,
		log:        log,
		metrics:    m,
		registry:   device.NewRegistry(identities.VDCDSUID),
	}
}

// Registry returns the Host's device registry, for seeding and for
// AddDevice/RemoveDevice to build on.
func (h *Host) Registry() *device.Registry { return h.registry }

// Addr returns the listener's bound address, or nil before ListenAndServe
// has bound it. Useful in tests that need to dial the running Host. (A port
// of 0 passed to New means DefaultPort, not an ephemeral port.)
func (h *Host) Addr() net.Addr {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.listener == nil {
		return nil
	}
	return h.listener.Addr()
}

// AddDevice inserts d into the registry, triggering an announcement frame
// if a session is currently Active (spec §4.3).
func (h *Host) AddDevice(d *device.Device) { h.registry.Add(d) }

// RemoveDevice deletes the device with the given dsuid, triggering a
// vanish frame first if a session is currently Active (spec §4.3).
func (h *Host) RemoveDevice(dsuid string) { h.registry.Remove(dsuid) }

// ListenAndServe binds the listening socket and accepts sessions, one at a
// time, until ctx is cancelled or Stop is called. A bind failure is
// host-fatal and is returned; a session's own errors never propagate here
// (spec §7: "Host-fatal errors are limited to listener socket failure").
func (h *Host) ListenAndServe(ctx context.Context) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", net.JoinHostPort("0.0.0.0", strconv.Itoa(h.port)))
	if err != nil {
		return err
	}

	h.mu.Lock()
	h.listener = ln
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.Stop()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}

		sess, err := session.New(conn, h.registry, h.identities, h.config, h.log, h.metrics)
		if err != nil {
			h.log.Error("session setup failed: %v", err)
			_ = conn.Close()
			continue
		}

		h.mu.Lock()
		h.active = sess
		h.mu.Unlock()

		if h.metrics != nil {
			h.metrics.SessionAccepted()
		}

		// One active session at a time (spec §2, §4.5): the accept loop
		// blocks on Run until this session ends before calling Accept again.
		if err := sess.Run(ctx); err != nil {
			h.log.Warn("session ended with error: %v", err)
		}

		h.mu.Lock()
		h.active = nil
		h.mu.Unlock()
	}
}

// Stop closes the listening socket and any active session's connection.
// In-flight handlers observe the closed sockets and return (spec §4.5,
// §5 Cancellation).
func (h *Host) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.listener != nil {
		_ = h.listener.Close()
	}
	if h.active != nil {
		_ = h.active.Close()
	}
}
