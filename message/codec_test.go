package message_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dsvdc/vdchost/message"
	"github.com/dsvdc/vdchost/proptree"
)

func roundTrip(t *testing.T, m *message.Message) *message.Message {
	t.Helper()
	b, err := message.Encode(m)
	require.NoError(t, err)
	got, err := message.Decode(b)
	require.NoError(t, err)
	return got
}

const testDSUID = "CC0000000000000000000000000000C1"

func TestRoundTripHello(t *testing.T) {
	m := &message.Message{
		Type:      message.VDSMRequestHello,
		MessageID: 7,
		Hello:     &message.HelloRequest{DSUID: testDSUID, APIVersion: 3},
	}
	got := roundTrip(t, m)
	assert.Equal(t, message.VDSMRequestHello, got.Type)
	assert.Equal(t, uint32(7), got.MessageID)
	require.NotNil(t, got.Hello)
	assert.Equal(t, testDSUID, got.Hello.DSUID)
	assert.Equal(t, uint8(3), got.Hello.APIVersion)
}

func TestRoundTripBye(t *testing.T) {
	m := &message.Message{Type: message.VDSMSendBye, MessageID: 0}
	got := roundTrip(t, m)
	assert.Equal(t, message.VDSMSendBye, got.Type)
}

func TestRoundTripGetPropertyWithTree(t *testing.T) {
	elements, err := proptree.Build([]proptree.Field{
		{Name: "name", Value: "Living Room Light"},
		{Name: "output", Value: []proptree.Field{
			{Name: "value", Value: float64(75)},
		}},
	})
	require.NoError(t, err)

	m := &message.Message{
		Type:        message.VDCResponseGetProperty,
		MessageID:   42,
		ResponseGetProperty: &message.GetPropertyResponse{Properties: elements},
	}
	got := roundTrip(t, m)
	require.NotNil(t, got.ResponseGetProperty)
	fields := proptree.Lower(got.ResponseGetProperty.Properties)
	require.Len(t, fields, 2)
	assert.Equal(t, "Living Room Light", fields[0].Value)
	nested, ok := fields[1].Value.([]proptree.Field)
	require.True(t, ok)
	assert.Equal(t, float64(75), nested[0].Value)
}

func TestRoundTripGetPropertyNilQueryStaysNil(t *testing.T) {
	m := &message.Message{
		Type:        message.VDSMRequestGetProperty,
		MessageID:   1,
		GetProperty: &message.GetPropertyRequest{DSUID: testDSUID, Query: nil},
	}
	got := roundTrip(t, m)
	assert.Nil(t, got.GetProperty.Query)
}

func TestRoundTripCallSceneWithForce(t *testing.T) {
	m := &message.Message{
		Type:      message.VDSMNotificationCallScene,
		MessageID: 0,
		CallScene: &message.CallScenePayload{
			DSUIDs:   []string{testDSUID, testDSUID},
			Scene:    5,
			HasForce: true,
			Force:    true,
		},
	}
	got := roundTrip(t, m)
	require.Len(t, got.CallScene.DSUIDs, 2)
	assert.Equal(t, uint8(5), got.CallScene.Scene)
	assert.True(t, got.CallScene.HasForce)
	assert.True(t, got.CallScene.Force)
}

func TestRoundTripDimChannelWithoutChannel(t *testing.T) {
	m := &message.Message{
		Type:       message.VDSMNotificationDimChannel,
		MessageID:  0,
		DimChannel: &message.DimChannelPayload{DSUIDs: []string{testDSUID}, Mode: -1},
	}
	got := roundTrip(t, m)
	assert.Equal(t, int8(-1), got.DimChannel.Mode)
	assert.False(t, got.DimChannel.HasChannel)
}

func TestRoundTripGenericResponse(t *testing.T) {
	m := &message.Message{
		Type:      message.GenericResponse,
		MessageID: 9,
		Generic:   &message.GenericResponsePayload{Code: message.ErrNotFound, Description: "no such dSUID"},
	}
	got := roundTrip(t, m)
	assert.Equal(t, message.ErrNotFound, got.Generic.Code)
	assert.Equal(t, "no such dSUID", got.Generic.Description)
}

func TestDecodeUnknownTypeErrors(t *testing.T) {
	_, err := message.Decode([]byte{0xFF, 0, 0, 0, 0})
	assert.ErrorIs(t, err, message.ErrUnknownType)
}

func TestDecodeTruncatedErrors(t *testing.T) {
	_, err := message.Decode([]byte{uint8(message.VDSMSendPing)})
	assert.ErrorIs(t, err, message.ErrTruncated)
}

func TestEncodeUnknownTypeErrors(t *testing.T) {
	_, err := message.Encode(&message.Message{Type: 0xFF})
	assert.ErrorIs(t, err, message.ErrUnknownType)
}
