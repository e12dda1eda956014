// Package message defines the vDC wire message: a discriminated union keyed
// by a Type tag plus one populated variant payload, matching spec §6. The
// concrete byte layout (§4.1/§6 leave the schema an external artifact; this
// package supplies a concrete one) is implemented in codec.go.
package message

import (
	"fmt"

	"github.com/dsvdc/vdchost/proptree"
)

// Type enumerates the message kinds consumed and emitted by a vDC host.
// Following the teacher's TypeID convention (asdu.TypeID): an iota block
// with a reserved zero value and a String method for logging.
type Type uint8

const (
	_ Type = iota // 0: unused, matches asdu.TypeID's reserved zero

	// Requests and notifications accepted from the vdSM (inbound).
	VDSMRequestHello
	VDSMRequestGetProperty
	VDSMRequestSetProperty
	VDSMRequestGenericRequest
	VDSMSendPing
	VDSMSendBye
	VDSMNotificationCallScene
	VDSMNotificationSetOutputChannelValue
	VDSMNotificationDimChannel
	VDSMNotificationIdentify
	VDSMNotificationSaveScene
	VDSMNotificationUndoScene

	// Responses and unsolicited frames emitted by the vDC host (outbound).
	VDCResponseHello
	VDCResponseGetProperty
	VDCSendPong
	VDCSendAnnounceVDC
	VDCSendAnnounceDevice
	VDCSendVanish
	GenericResponse
)

func (t Type) String() string {
	switch t {
	case VDSMRequestHello:
		return "VDSM_REQUEST_HELLO"
	case VDSMRequestGetProperty:
		return "VDSM_REQUEST_GET_PROPERTY"
	case VDSMRequestSetProperty:
		return "VDSM_REQUEST_SET_PROPERTY"
	case VDSMRequestGenericRequest:
		return "VDSM_REQUEST_GENERIC_REQUEST"
	case VDSMSendPing:
		return "VDSM_SEND_PING"
	case VDSMSendBye:
		return "VDSM_SEND_BYE"
	case VDSMNotificationCallScene:
		return "VDSM_NOTIFICATION_CALL_SCENE"
	case VDSMNotificationSetOutputChannelValue:
		return "VDSM_NOTIFICATION_SET_OUTPUT_CHANNEL_VALUE"
	case VDSMNotificationDimChannel:
		return "VDSM_NOTIFICATION_DIM_CHANNEL"
	case VDSMNotificationIdentify:
		return "VDSM_NOTIFICATION_IDENTIFY"
	case VDSMNotificationSaveScene:
		return "VDSM_NOTIFICATION_SAVE_SCENE"
	case VDSMNotificationUndoScene:
		return "VDSM_NOTIFICATION_UNDO_SCENE"
	case VDCResponseHello:
		return "VDC_RESPONSE_HELLO"
	case VDCResponseGetProperty:
		return "VDC_RESPONSE_GET_PROPERTY"
	case VDCSendPong:
		return "VDC_SEND_PONG"
	case VDCSendAnnounceVDC:
		return "VDC_SEND_ANNOUNCE_VDC"
	case VDCSendAnnounceDevice:
		return "VDC_SEND_ANNOUNCE_DEVICE"
	case VDCSendVanish:
		return "VDC_SEND_VANISH"
	case GenericResponse:
		return "GENERIC_RESPONSE"
	default:
		return fmt.Sprintf("Type(%d)", uint8(t))
	}
}

// ResultCode is the GENERIC_RESPONSE.code value (spec §6).
type ResultCode uint8

const (
	ErrOK ResultCode = iota
	ErrNotImplemented
	ErrNotFound
	ErrInvalidValueType
)

func (c ResultCode) String() string {
	switch c {
	case ErrOK:
		return "ERR_OK"
	case ErrNotImplemented:
		return "ERR_NOT_IMPLEMENTED"
	case ErrNotFound:
		return "ERR_NOT_FOUND"
	case ErrInvalidValueType:
		return "ERR_INVALID_VALUE_TYPE"
	default:
		return fmt.Sprintf("ResultCode(%d)", uint8(c))
	}
}

// Message is the discriminated union. MessageID is 0 for notifications and
// unsolicited frames (§3 I2); exactly one of the variant pointer fields
// below is non-nil, selected by Type.
type Message struct {
	Type      Type
	MessageID uint32

	// Inbound request/notification variants.
	Hello                 *HelloRequest
	GetProperty           *GetPropertyRequest
	SetProperty           *SetPropertyRequest
	GenericRequest        *GenericRequestPayload
	Ping                  *PingPayload
	CallScene             *CallScenePayload
	SetOutputChannelValue *SetOutputChannelValuePayload
	DimChannel            *DimChannelPayload
	Identify              *IdentifyPayload
	SaveScene             *SceneDSUIDsPayload
	UndoScene             *SceneDSUIDsPayload

	// Outbound response/unsolicited variants.
	ResponseHello       *HelloResponse
	ResponseGetProperty *GetPropertyResponse
	Pong                *PongPayload
	AnnounceVDC         *AnnounceVDCPayload
	AnnounceDevice      *AnnounceDevicePayload
	Vanish              *VanishPayload
	Generic             *GenericResponsePayload
}

// HelloRequest is VDSM_REQUEST_HELLO.
type HelloRequest struct {
	DSUID      string
	APIVersion uint8
}

// HelloResponse is VDC_RESPONSE_HELLO.
type HelloResponse struct {
	DSUID string
}

// GetPropertyRequest is VDSM_REQUEST_GET_PROPERTY. Query is carried on the
// wire (nil and empty stay distinct) but the session does not apply it:
// every GET_PROPERTY response holds the target's full tree (spec §4.4, §9
// Open Questions).
type GetPropertyRequest struct {
	DSUID string
	Query []*proptree.Element // decoded but not used for filtering
}

// GetPropertyResponse is VDC_RESPONSE_GET_PROPERTY.
type GetPropertyResponse struct {
	Properties []*proptree.Element
}

// SetPropertyRequest is VDSM_REQUEST_SET_PROPERTY.
type SetPropertyRequest struct {
	DSUID      string
	Properties []*proptree.Element
}

// GenericRequestPayload is VDSM_REQUEST_GENERIC_REQUEST.
type GenericRequestPayload struct {
	MethodName string
}

// PingPayload is VDSM_SEND_PING and, reused, VDC_SEND_PONG.
type PingPayload struct {
	DSUID string
}

// PongPayload mirrors PingPayload; kept distinct for clarity at call sites.
type PongPayload struct {
	DSUID string
}

// CallScenePayload is VDSM_NOTIFICATION_CALL_SCENE.
type CallScenePayload struct {
	DSUIDs   []string
	Scene    uint8
	Force    bool
	HasForce bool
}

// SetOutputChannelValuePayload is VDSM_NOTIFICATION_SET_OUTPUT_CHANNEL_VALUE.
type SetOutputChannelValuePayload struct {
	DSUIDs   []string
	Value    float64
	ApplyNow bool
}

// DimChannelPayload is VDSM_NOTIFICATION_DIM_CHANNEL.
type DimChannelPayload struct {
	DSUIDs     []string
	Mode       int8
	Channel    uint16
	HasChannel bool
}

// IdentifyPayload is VDSM_NOTIFICATION_IDENTIFY.
type IdentifyPayload struct {
	DSUIDs []string
}

// SceneDSUIDsPayload covers VDSM_NOTIFICATION_SAVE_SCENE and
// VDSM_NOTIFICATION_UNDO_SCENE, which carry only a scene number and a dSUID
// list (spec §9 Open Questions: no default behavior is mandated).
type SceneDSUIDsPayload struct {
	DSUIDs []string
	Scene  uint8
}

// AnnounceVDCPayload is VDC_SEND_ANNOUNCE_VDC.
type AnnounceVDCPayload struct {
	DSUID string
}

// AnnounceDevicePayload is VDC_SEND_ANNOUNCE_DEVICE.
type AnnounceDevicePayload struct {
	DSUID    string
	VDCDSUID string
}

// VanishPayload is VDC_SEND_VANISH.
type VanishPayload struct {
	DSUID string
}

// GenericResponsePayload is GENERIC_RESPONSE.
type GenericResponsePayload struct {
	Code        ResultCode
	Description string
}
