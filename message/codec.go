package message

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/dsvdc/vdchost/proptree"
)

// ErrUnknownType is returned by Decode when the wire type tag matches no
// known variant (spec §4.1: "unknown tags on decode produce a
// not-implemented response" — the session layer is responsible for turning
// this error into that response, per §7).
var ErrUnknownType = errors.New("message: unknown type tag")

// ErrTruncated is returned by Decode when the payload ends before a field
// it names can be read in full.
var ErrTruncated = errors.New("message: truncated payload")

// dsuidLen is the wire width reserved for a single dSUID field: exactly
// dsuid.Length ASCII bytes, no length prefix needed since the width is
// fixed by the protocol's data model (spec §3). A shorter value is padded
// with NUL bytes on encode, and trailing NULs are stripped again on decode.
const dsuidLen = 34

// Encode serializes m to its wire payload (excluding the 2-byte frame length
// prefix, which belongs to the frame package). Encoding an unknown Type is a
// programmer error, per §4.1, and returns an error rather than panicking so
// that misuse surfaces through the normal error path in tests.
func Encode(m *Message) ([]byte, error) {
	e := &encoder{}
	e.u8(uint8(m.Type))
	e.u32(m.MessageID)

	switch m.Type {
	case VDSMRequestHello:
		e.dsuid(m.Hello.DSUID)
		e.u8(m.Hello.APIVersion)
	case VDSMRequestGetProperty:
		e.dsuid(m.GetProperty.DSUID)
		e.tree(m.GetProperty.Query)
	case VDSMRequestSetProperty:
		e.dsuid(m.SetProperty.DSUID)
		e.tree(m.SetProperty.Properties)
	case VDSMRequestGenericRequest:
		e.str(m.GenericRequest.MethodName)
	case VDSMSendPing:
		e.dsuid(m.Ping.DSUID)
	case VDSMSendBye:
		// no payload
	case VDSMNotificationCallScene:
		e.dsuidList(m.CallScene.DSUIDs)
		e.u8(m.CallScene.Scene)
		e.boolField(m.CallScene.HasForce, m.CallScene.Force)
	case VDSMNotificationSetOutputChannelValue:
		e.dsuidList(m.SetOutputChannelValue.DSUIDs)
		e.f64(m.SetOutputChannelValue.Value)
		e.u8(boolByte(m.SetOutputChannelValue.ApplyNow))
	case VDSMNotificationDimChannel:
		e.dsuidList(m.DimChannel.DSUIDs)
		e.i8(m.DimChannel.Mode)
		e.optionalU16(m.DimChannel.HasChannel, m.DimChannel.Channel)
	case VDSMNotificationIdentify:
		e.dsuidList(m.Identify.DSUIDs)
	case VDSMNotificationSaveScene:
		e.dsuidList(m.SaveScene.DSUIDs)
		e.u8(m.SaveScene.Scene)
	case VDSMNotificationUndoScene:
		e.dsuidList(m.UndoScene.DSUIDs)
		e.u8(m.UndoScene.Scene)
	case VDCResponseHello:
		e.dsuid(m.ResponseHello.DSUID)
	case VDCResponseGetProperty:
		e.tree(m.ResponseGetProperty.Properties)
	case VDCSendPong:
		e.dsuid(m.Pong.DSUID)
	case VDCSendAnnounceVDC:
		e.dsuid(m.AnnounceVDC.DSUID)
	case VDCSendAnnounceDevice:
		e.dsuid(m.AnnounceDevice.DSUID)
		e.dsuid(m.AnnounceDevice.VDCDSUID)
	case VDCSendVanish:
		e.dsuid(m.Vanish.DSUID)
	case GenericResponse:
		e.u8(uint8(m.Generic.Code))
		e.str(m.Generic.Description)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownType, m.Type)
	}
	return e.buf, e.err
}

// Decode parses a wire payload (as delivered by the frame reader, i.e. with
// the length prefix already stripped) into a Message.
func Decode(data []byte) (*Message, error) {
	d := &decoder{buf: data}
	typ := Type(d.u8())
	id := d.u32()
	if d.err != nil {
		return nil, d.err
	}

	m := &Message{Type: typ, MessageID: id}
	switch typ {
	case VDSMRequestHello:
		m.Hello = &HelloRequest{DSUID: d.dsuid(), APIVersion: d.u8()}
	case VDSMRequestGetProperty:
		m.GetProperty = &GetPropertyRequest{DSUID: d.dsuid(), Query: d.tree()}
	case VDSMRequestSetProperty:
		m.SetProperty = &SetPropertyRequest{DSUID: d.dsuid(), Properties: d.tree()}
	case VDSMRequestGenericRequest:
		m.GenericRequest = &GenericRequestPayload{MethodName: d.str()}
	case VDSMSendPing:
		m.Ping = &PingPayload{DSUID: d.dsuid()}
	case VDSMSendBye:
		// no payload
	case VDSMNotificationCallScene:
		dsuids := d.dsuidList()
		scene := d.u8()
		has, force := d.boolField()
		m.CallScene = &CallScenePayload{DSUIDs: dsuids, Scene: scene, HasForce: has, Force: force}
	case VDSMNotificationSetOutputChannelValue:
		dsuids := d.dsuidList()
		value := d.f64()
		applyNow := d.u8() != 0
		m.SetOutputChannelValue = &SetOutputChannelValuePayload{DSUIDs: dsuids, Value: value, ApplyNow: applyNow}
	case VDSMNotificationDimChannel:
		dsuids := d.dsuidList()
		mode := d.i8()
		has, channel := d.optionalU16()
		m.DimChannel = &DimChannelPayload{DSUIDs: dsuids, Mode: mode, HasChannel: has, Channel: channel}
	case VDSMNotificationIdentify:
		m.Identify = &IdentifyPayload{DSUIDs: d.dsuidList()}
	case VDSMNotificationSaveScene:
		m.SaveScene = &SceneDSUIDsPayload{DSUIDs: d.dsuidList(), Scene: d.u8()}
	case VDSMNotificationUndoScene:
		m.UndoScene = &SceneDSUIDsPayload{DSUIDs: d.dsuidList(), Scene: d.u8()}
	case VDCResponseHello:
		m.ResponseHello = &HelloResponse{DSUID: d.dsuid()}
	case VDCResponseGetProperty:
		m.ResponseGetProperty = &GetPropertyResponse{Properties: d.tree()}
	case VDCSendPong:
		m.Pong = &PongPayload{DSUID: d.dsuid()}
	case VDCSendAnnounceVDC:
		m.AnnounceVDC = &AnnounceVDCPayload{DSUID: d.dsuid()}
	case VDCSendAnnounceDevice:
		m.AnnounceDevice = &AnnounceDevicePayload{DSUID: d.dsuid(), VDCDSUID: d.dsuid()}
	case VDCSendVanish:
		m.Vanish = &VanishPayload{DSUID: d.dsuid()}
	case GenericResponse:
		m.Generic = &GenericResponsePayload{Code: ResultCode(d.u8()), Description: d.str()}
	default:
		// Type and MessageID were read successfully before the tag proved
		// unknown; return them alongside the error so a caller can still
		// answer with a correctly correlated GENERIC_RESPONSE (spec §7:
		// "unimplemented message kind" is a protocol error, not a framing
		// one, and must not simply drop the frame).
		return m, fmt.Errorf("%w: %d", ErrUnknownType, typ)
	}
	if d.err != nil {
		return nil, d.err
	}
	return m, nil
}

func boolByte(v bool) uint8 {
	if v {
		return 1
	}
	return 0
}

// encoder appends fields to a growing byte buffer, mirroring the teacher's
// cursor-based asdu.ASDU Append*/Decode* methods (asdu/codec.go) adapted to
// carry an explicit error instead of assuming well-formed callers. A field
// over its length limit is skipped and recorded in err, which Encode
// returns; appends after it still run.
type encoder struct {
	buf []byte
	err error
}

func (e *encoder) u8(v uint8)   { e.buf = append(e.buf, v) }
func (e *encoder) i8(v int8)    { e.buf = append(e.buf, byte(v)) }
func (e *encoder) u32(v uint32) { e.buf = binary.BigEndian.AppendUint32(e.buf, v) }
func (e *encoder) u16(v uint16) { e.buf = binary.BigEndian.AppendUint16(e.buf, v) }

func (e *encoder) f64(v float64) {
	e.buf = binary.BigEndian.AppendUint64(e.buf, math.Float64bits(v))
}

func (e *encoder) dsuid(s string) {
	b := make([]byte, dsuidLen)
	copy(b, s)
	e.buf = append(e.buf, b...)
}

func (e *encoder) dsuidList(ids []string) {
	if len(ids) > 0xFFFF {
		e.err = fmt.Errorf("message: dSUID list too long: %d", len(ids))
		return
	}
	e.u16(uint16(len(ids)))
	for _, id := range ids {
		e.dsuid(id)
	}
}

func (e *encoder) str(s string) {
	if len(s) > 0xFFFF {
		e.err = fmt.Errorf("message: string field too long: %d bytes", len(s))
		return
	}
	e.u16(uint16(len(s)))
	e.buf = append(e.buf, s...)
}

func (e *encoder) boolField(has, v bool) {
	e.u8(boolByte(has))
	e.u8(boolByte(v))
}

func (e *encoder) optionalU16(has bool, v uint16) {
	e.u8(boolByte(has))
	e.u16(v)
}

// tree encodes a property tree. A nil tree (the "no query filter" / "empty
// result" case) is distinguished from an empty-but-present one with a
// leading presence byte.
func (e *encoder) tree(elements []*proptree.Element) {
	if elements == nil {
		e.u8(0)
		return
	}
	e.u8(1)
	e.elements(elements)
}

func (e *encoder) elements(elements []*proptree.Element) {
	if len(elements) > 0xFFFF {
		e.err = fmt.Errorf("message: property tree has too many siblings: %d", len(elements))
		return
	}
	e.u16(uint16(len(elements)))
	for _, el := range elements {
		e.str(el.Name)
		var flags uint8
		if el.HasValue {
			flags |= 0x01
		}
		if len(el.Children) > 0 {
			flags |= 0x02
		}
		e.u8(flags)
		if el.HasValue {
			e.value(el.Value)
		}
		if len(el.Children) > 0 {
			e.elements(el.Children)
		}
	}
}

func (e *encoder) value(v proptree.Value) {
	e.u8(uint8(v.Kind()))
	switch v.Kind() {
	case proptree.KindBool:
		e.u8(boolByte(v.Any().(bool)))
	case proptree.KindUint64:
		e.buf = binary.BigEndian.AppendUint64(e.buf, v.Any().(uint64))
	case proptree.KindInt64:
		e.buf = binary.BigEndian.AppendUint64(e.buf, uint64(v.Any().(int64)))
	case proptree.KindDouble:
		e.f64(v.Any().(float64))
	case proptree.KindString:
		e.str(v.Any().(string))
	case proptree.KindBytes:
		b := v.Any().([]byte)
		if len(b) > 0xFFFF {
			e.err = fmt.Errorf("message: bytes value too long: %d", len(b))
			return
		}
		e.u16(uint16(len(b)))
		e.buf = append(e.buf, b...)
	case proptree.KindAbsent:
		// nothing further
	}
}

// decoder reads fields off a byte slice cursor. Like encoder, errors are
// sticky: once a read has failed the cursor stops advancing and every
// subsequent read returns the zero value.
type decoder struct {
	buf []byte
	err error
}

func (d *decoder) need(n int) bool {
	if d.err != nil {
		return false
	}
	if len(d.buf) < n {
		d.err = ErrTruncated
		return false
	}
	return true
}

func (d *decoder) u8() uint8 {
	if !d.need(1) {
		return 0
	}
	v := d.buf[0]
	d.buf = d.buf[1:]
	return v
}

func (d *decoder) i8() int8 { return int8(d.u8()) }

func (d *decoder) u16() uint16 {
	if !d.need(2) {
		return 0
	}
	v := binary.BigEndian.Uint16(d.buf)
	d.buf = d.buf[2:]
	return v
}

func (d *decoder) u32() uint32 {
	if !d.need(4) {
		return 0
	}
	v := binary.BigEndian.Uint32(d.buf)
	d.buf = d.buf[4:]
	return v
}

func (d *decoder) f64() float64 {
	if !d.need(8) {
		return 0
	}
	v := binary.BigEndian.Uint64(d.buf)
	d.buf = d.buf[8:]
	return math.Float64frombits(v)
}

func (d *decoder) dsuid() string {
	if !d.need(dsuidLen) {
		return ""
	}
	s := strings.TrimRight(string(d.buf[:dsuidLen]), "\x00")
	d.buf = d.buf[dsuidLen:]
	return s
}

func (d *decoder) dsuidList() []string {
	n := d.u16()
	if d.err != nil {
		return nil
	}
	ids := make([]string, 0, n)
	for i := uint16(0); i < n; i++ {
		ids = append(ids, d.dsuid())
	}
	return ids
}

func (d *decoder) str() string {
	n := d.u16()
	if !d.need(int(n)) {
		return ""
	}
	s := string(d.buf[:n])
	d.buf = d.buf[n:]
	return s
}

func (d *decoder) boolField() (has, v bool) {
	has = d.u8() != 0
	v = d.u8() != 0
	return has, v
}

func (d *decoder) optionalU16() (has bool, v uint16) {
	has = d.u8() != 0
	v = d.u16()
	return has, v
}

func (d *decoder) tree() []*proptree.Element {
	present := d.u8()
	if d.err != nil || present == 0 {
		return nil
	}
	return d.elements()
}

func (d *decoder) elements() []*proptree.Element {
	n := d.u16()
	if d.err != nil {
		return nil
	}
	out := make([]*proptree.Element, 0, n)
	for i := uint16(0); i < n; i++ {
		name := d.str()
		flags := d.u8()
		el := &proptree.Element{Name: name}
		if flags&0x01 != 0 {
			el.HasValue = true
			el.Value = d.value()
		}
		if flags&0x02 != 0 {
			el.Children = d.elements()
		}
		if d.err != nil {
			return nil
		}
		out = append(out, el)
	}
	return out
}

func (d *decoder) value() proptree.Value {
	kind := proptree.Kind(d.u8())
	switch kind {
	case proptree.KindBool:
		return proptree.Bool(d.u8() != 0)
	case proptree.KindUint64:
		if !d.need(8) {
			return proptree.Value{}
		}
		v := binary.BigEndian.Uint64(d.buf)
		d.buf = d.buf[8:]
		return proptree.Uint64(v)
	case proptree.KindInt64:
		if !d.need(8) {
			return proptree.Value{}
		}
		v := binary.BigEndian.Uint64(d.buf)
		d.buf = d.buf[8:]
		return proptree.Int64(int64(v))
	case proptree.KindDouble:
		return proptree.Double(d.f64())
	case proptree.KindString:
		return proptree.String(d.str())
	case proptree.KindBytes:
		n := d.u16()
		if !d.need(int(n)) {
			return proptree.Value{}
		}
		b := make([]byte, n)
		copy(b, d.buf[:n])
		d.buf = d.buf[n:]
		return proptree.Bytes(b)
	default:
		return proptree.Value{}
	}
}
