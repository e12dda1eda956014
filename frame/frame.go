// Package frame implements the vDC wire framing: a 2-byte big-endian length
// prefix followed by that many payload bytes, matching spec §4.1. Framing is
// transport-level and knows nothing about message contents; it only bounds
// and delimits them.
package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
)

// MaxPayloadSize is the largest payload a single frame may carry (spec
// §4.1/§7): a payload whose encoded length would exceed this is a framing
// error, not a protocol error, and closes the session.
const MaxPayloadSize = 16384

// lengthPrefixSize is the width, in bytes, of the frame's length prefix.
const lengthPrefixSize = 2

// ErrFrameTooLarge is returned by Read when the declared payload length
// exceeds MaxPayloadSize, and by Write when the caller hands it too large a
// payload to send.
var ErrFrameTooLarge = errors.New("frame: payload exceeds maximum size")

// ErrClosed is returned by Send once the Sender has been closed.
var ErrClosed = errors.New("frame: sender closed")

// Read blocks until one full frame has arrived on r, returning its payload.
// A truncated read (EOF mid-frame) surfaces as the underlying io error,
// which by convention (§7) the caller treats the same as any other framing
// error: close the session, do not attempt to resynchronize. Read enforces
// the package-level MaxPayloadSize; a caller that needs a smaller, session-
// configured ceiling should use a Reader instead.
func Read(r io.Reader) ([]byte, error) {
	return NewReader(r, MaxPayloadSize).Read()
}

// Write sends one frame containing payload to w, rejecting payloads over
// MaxPayloadSize. A caller that needs a smaller, session-configured
// ceiling should use a Sender built with NewSenderSize instead.
func Write(w io.Writer, payload []byte) error {
	if len(payload) > MaxPayloadSize {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(payload))
	}
	buf := make([]byte, lengthPrefixSize+len(payload))
	binary.BigEndian.PutUint16(buf, uint16(len(payload)))
	copy(buf[lengthPrefixSize:], payload)
	_, err := w.Write(buf)
	return err
}

// Reader reads length-prefixed frames bounded by its own maxPayloadSize
// rather than the package-level MaxPayloadSize, so a Session configured
// with a smaller Config.MaxFrameSize enforces it on the read path too.
type Reader struct {
	r              io.Reader
	maxPayloadSize int
}

// NewReader wraps r, bounding accepted payloads at maxPayloadSize. A value
// outside (0, MaxPayloadSize] falls back to MaxPayloadSize.
func NewReader(r io.Reader, maxPayloadSize int) *Reader {
	if maxPayloadSize <= 0 || maxPayloadSize > MaxPayloadSize {
		maxPayloadSize = MaxPayloadSize
	}
	return &Reader{r: r, maxPayloadSize: maxPayloadSize}
}

// Read blocks until one full frame has arrived, returning its payload.
func (fr *Reader) Read() ([]byte, error) {
	var lenBuf [lengthPrefixSize]byte
	if _, err := io.ReadFull(fr.r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint16(lenBuf[:])
	if int(n) > fr.maxPayloadSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, n)
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(fr.r, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// Sender serializes writes to a connection behind a mutex. A vDC host has
// exactly one writer goroutine's worth of logical output — the dispatch loop
// answering requests and the announcer emitting unsolicited frames both call
// Send — so without this lock two frames could interleave on the wire and
// violate the ordering invariants in spec §5/§9 (hello response must precede
// any unsolicited frame; two concurrent writers give no such guarantee).
// This is the actual correctness mechanism; any pacing delays elsewhere are
// separate and cosmetic, not a substitute for this lock.
type Sender struct {
	mu             sync.Mutex
	w              io.Writer
	closed         bool
	maxPayloadSize int
}

// NewSender wraps w for serialized frame writes bounded by MaxPayloadSize.
func NewSender(w io.Writer) *Sender {
	return NewSenderSize(w, MaxPayloadSize)
}

// NewSenderSize wraps w for serialized frame writes, bounding outgoing
// payloads at maxPayloadSize rather than the package-level MaxPayloadSize.
// A value outside (0, MaxPayloadSize] falls back to MaxPayloadSize.
func NewSenderSize(w io.Writer, maxPayloadSize int) *Sender {
	if maxPayloadSize <= 0 || maxPayloadSize > MaxPayloadSize {
		maxPayloadSize = MaxPayloadSize
	}
	return &Sender{w: w, maxPayloadSize: maxPayloadSize}
}

// Send writes one frame, serialized against concurrent callers.
func (s *Sender) Send(payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if len(payload) > s.maxPayloadSize {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(payload))
	}
	return Write(s.w, payload)
}

// Close marks the Sender closed; subsequent Send calls return ErrClosed.
// It does not close the underlying writer, which the caller (typically the
// session owning the net.Conn) is responsible for.
func (s *Sender) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}
