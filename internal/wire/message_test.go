package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	payload := []byte("hello world")
	frame, err := Encode(ServiceApplication, OpSessionMessage, payload)
	require.NoError(t, err)

	total, err := PeekFrameLen(frame)
	require.NoError(t, err)
	assert.Equal(t, len(frame), total)

	msg, err := Decode(frame)
	require.NoError(t, err)
	assert.Equal(t, ServiceApplication, msg.Service)
	assert.Equal(t, OpSessionMessage, msg.Opcode)
	assert.Equal(t, payload, msg.Payload)
}

func TestEncode_HeaderBytes(t *testing.T) {
	frame, err := Encode(ServiceChannel, OpChannelMessage, nil)
	require.NoError(t, err)

	require.Len(t, frame, HeaderLen)
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x03}, frame[0:4])
	assert.Equal(t, Version, frame[4])
	assert.Equal(t, byte(ServiceChannel), frame[5])
	assert.Equal(t, byte(OpChannelMessage), frame[6])
}

func TestEncode_PayloadTooLarge(t *testing.T) {
	_, err := Encode(ServiceApplication, OpSessionMessage, make([]byte, MaxPayloadSize+1))
	assert.ErrorIs(t, err, ErrPayloadTooLarge)
}

func TestPeekFrameLen_ShortBuffer(t *testing.T) {
	_, err := PeekFrameLen([]byte{0x00, 0x00})
	assert.ErrorIs(t, err, ErrShortFrame)
}

func TestDecode_ShortFrame(t *testing.T) {
	_, err := Decode([]byte{0x00, 0x00, 0x00, 0x03, Version})
	assert.ErrorIs(t, err, ErrShortFrame)
}

func TestDecode_WrongVersion(t *testing.T) {
	frame, err := Encode(ServiceApplication, OpLoginRequest, nil)
	require.NoError(t, err)
	frame[4] = 9

	_, err = Decode(frame)
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestOpcodeString(t *testing.T) {
	assert.Equal(t, "LOGIN_REQUEST", OpLoginRequest.String())
	assert.Equal(t, "CHANNEL_MESSAGE", OpChannelMessage.String())
	assert.Contains(t, Opcode(0xAB).String(), "UNKNOWN")
}

func TestOpcodeIsChannel(t *testing.T) {
	assert.True(t, OpChannelJoin.IsChannel())
	assert.False(t, OpLoginRequest.IsChannel())
}
