package session

import (
	"context"
	"time"

	"github.com/dsvdc/vdchost/device"
	"github.com/dsvdc/vdchost/message"
)

// announce runs once per session, after the hello response has been
// written (spec §4.4 Announcement task, §5 pacing). It emits one
// VDC_SEND_ANNOUNCE_VDC followed by one VDC_SEND_ANNOUNCE_DEVICE per
// currently registered device, all with message-id 0. Devices added later
// are announced individually through the registry's announce hook
// (wired in handleHello), not by this sweep.
func (s *Session) announce(ctx context.Context) {
	if !s.sleep(ctx, s.config.PostHelloDelay) {
		return
	}

	if err := s.send(&message.Message{
		Type:        message.VDCSendAnnounceVDC,
		MessageID:   0,
		AnnounceVDC: &message.AnnounceVDCPayload{DSUID: s.identities.VDCDSUID},
	}); err != nil {
		s.log.Warn("aborting announcement phase: %v", err)
		return
	}

	for _, d := range s.registry.List() {
		if !s.sleep(ctx, s.config.AnnouncementPacingDelay) {
			return
		}
		if err := s.sendDeviceAnnouncement(d); err != nil {
			s.log.Warn("aborting announcement phase: %v", err)
			return
		}
	}
}

// sendDeviceAnnouncement emits one VDC_SEND_ANNOUNCE_DEVICE for d. Defined
// at the Session level (not Registry) since it needs the Session's sender.
func (s *Session) sendDeviceAnnouncement(d *device.Device) error {
	return s.send(&message.Message{
		Type:      message.VDCSendAnnounceDevice,
		MessageID: 0,
		AnnounceDevice: &message.AnnounceDevicePayload{
			DSUID:    d.DSUID(),
			VDCDSUID: d.VDCDSUID(),
		},
	})
}

// sendVanish emits one VDC_SEND_VANISH for d.
func (s *Session) sendVanish(d *device.Device) error {
	return s.send(&message.Message{
		Type:      message.VDCSendVanish,
		MessageID: 0,
		Vanish:    &message.VanishPayload{DSUID: d.DSUID()},
	})
}

// sleep waits for d, returning false early if ctx is cancelled first (so
// the announcer exits promptly on session teardown instead of outliving
// its socket, per spec §5 Cancellation: "announcer threads observe
// session_active == false before each send and exit").
func (s *Session) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
