package session

import (
	"errors"
	"time"
)

// defines the tunable range for a Session's timing and framing behavior.
// Named ranges plus a Valid()/DefaultConfig() pair, following the teacher's
// cs104.Config convention (rob-gra/go-iecp5/cs104/config.go): zero means
// "apply the default", non-zero out of range is rejected.
const (
	// AnnouncementPacingDelayMin/Max bound the inter-announcement delay
	// (spec §5: "a small inter-announcement pacing delay of ~50ms").
	AnnouncementPacingDelayMin = 0
	AnnouncementPacingDelayMax = 5 * time.Second

	// PostHelloDelayMin/Max bound the delay between the hello response and
	// the first unsolicited frame (spec §5: "a ~100ms delay after hello").
	PostHelloDelayMin = 0
	PostHelloDelayMax = 5 * time.Second

	// MaxFrameSizeMin/Max bound the payload size ceiling (spec §3 I1 fixes
	// this at 16384; the range exists so tests can exercise small frames
	// without waiting on the production constant).
	MaxFrameSizeMin = 1024
	MaxFrameSizeMax = 16384
)

// Config tunes one Session's timing and framing behavior.
type Config struct {
	// AnnouncementPacingDelay separates consecutive VDC_SEND_ANNOUNCE_DEVICE
	// frames in the announcement task.
	AnnouncementPacingDelay time.Duration

	// PostHelloDelay is observed once, after the hello response is written
	// and before the first unsolicited frame.
	PostHelloDelay time.Duration

	// MaxFrameSize caps accepted and emitted payload sizes.
	MaxFrameSize int
}

// Valid fills zero fields with their defaults and rejects out-of-range
// non-zero values.
func (c *Config) Valid() error {
	if c == nil {
		return errors.New("session: nil config")
	}

	if c.AnnouncementPacingDelay == 0 {
		c.AnnouncementPacingDelay = 50 * time.Millisecond
	} else if c.AnnouncementPacingDelay < AnnouncementPacingDelayMin || c.AnnouncementPacingDelay > AnnouncementPacingDelayMax {
		return errors.New("session: AnnouncementPacingDelay out of range")
	}

	if c.PostHelloDelay == 0 {
		c.PostHelloDelay = 100 * time.Millisecond
	} else if c.PostHelloDelay < PostHelloDelayMin || c.PostHelloDelay > PostHelloDelayMax {
		return errors.New("session: PostHelloDelay out of range")
	}

	if c.MaxFrameSize == 0 {
		c.MaxFrameSize = MaxFrameSizeMax
	} else if c.MaxFrameSize < MaxFrameSizeMin || c.MaxFrameSize > MaxFrameSizeMax {
		return errors.New("session: MaxFrameSize out of range")
	}

	return nil
}

// DefaultConfig returns a Config with every field at its spec-recommended
// default.
func DefaultConfig() Config {
	return Config{
		AnnouncementPacingDelay: 50 * time.Millisecond,
		PostHelloDelay:          100 * time.Millisecond,
		MaxFrameSize:            MaxFrameSizeMax,
	}
}
