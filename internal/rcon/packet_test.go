package rcon

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DSroD/PyCon/internal/model"
)

func TestEncodeLoginPacket(t *testing.T) {
	got, err := LoginPacket("passwrd", 0).Encode(EncodingASCII)
	require.NoError(t, err)

	want := []byte{
		0x11, 0x00, 0x00, 0x00, // length: 17
		0x00, 0x00, 0x00, 0x00, // request id
		0x03, 0x00, 0x00, 0x00, // type: login
		'p', 'a', 's', 's', 'w', 'r', 'd', 0x00,
		0x00,
	}
	assert.Equal(t, want, got)
}

func TestEncodeCommandPacket(t *testing.T) {
	got, err := CommandPacket("list", 5).Encode(EncodingUTF8)
	require.NoError(t, err)

	want := []byte{
		0x0e, 0x00, 0x00, 0x00,
		0x05, 0x00, 0x00, 0x00,
		0x02, 0x00, 0x00, 0x00,
		'l', 'i', 's', 't', 0x00,
		0x00,
	}
	assert.Equal(t, want, got)
}

func TestEncodeCommandEndPacket(t *testing.T) {
	got, err := CommandEndPacket(6).Encode(EncodingUTF8)
	require.NoError(t, err)

	want := []byte{
		0x0a, 0x00, 0x00, 0x00,
		0x06, 0x00, 0x00, 0x00,
		0x63, 0x00, 0x00, 0x00, // type: command end
		0x00,
		0x00,
	}
	assert.Equal(t, want, got)
}

func TestEncodeNegativeRequestID(t *testing.T) {
	got, err := CommandEndPacket(-2147483648).Encode(EncodingUTF8)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x80}, got[4:8])
}

func TestEncodeRejectsNonASCIIForSource(t *testing.T) {
	_, err := CommandPacket("sv_motd héllo", 1).Encode(EncodingASCII)
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestEncodingForServerType(t *testing.T) {
	assert.Equal(t, EncodingASCII, EncodingFor(model.SourceServer))
	assert.Equal(t, EncodingUTF8, EncodingFor(model.MinecraftServer))
}

func frame(requestID, packetType int32, payload []byte) []byte {
	packet := Packet{RequestID: requestID, Type: packetType, Payload: string(payload)}
	encoded, err := packet.Encode(EncodingUTF8)
	if err != nil {
		panic(err)
	}
	return encoded
}

func TestReadLoginSuccess(t *testing.T) {
	resp, err := ReadPacket(bytes.NewReader(frame(12, typeAuthResponse, nil)))
	require.NoError(t, err)
	assert.Equal(t, LoginSuccess{RequestID: 12}, resp)
}

func TestReadInvalidPassword(t *testing.T) {
	resp, err := ReadPacket(bytes.NewReader(frame(-1, typeAuthResponse, nil)))
	require.NoError(t, err)
	assert.Equal(t, InvalidPassword{}, resp)
}

func TestReadCommandResponse(t *testing.T) {
	resp, err := ReadPacket(bytes.NewReader(frame(3, typeResponseValue, []byte("pong"))))
	require.NoError(t, err)
	assert.Equal(t, CommandResponse{RequestID: 3, Payload: []byte("pong")}, resp)
}

func TestReadUnknownTypeIsUnprocessable(t *testing.T) {
	resp, err := ReadPacket(bytes.NewReader(frame(3, 42, nil)))
	require.NoError(t, err)
	unproc, ok := resp.(Unprocessable)
	require.True(t, ok)
	assert.Equal(t, int32(3), unproc.RequestID)
}

func TestReadPaddingMismatchIsUnprocessable(t *testing.T) {
	raw := frame(3, typeResponseValue, []byte("ok"))
	raw[len(raw)-1] = 0x01

	resp, err := ReadPacket(bytes.NewReader(raw))
	require.NoError(t, err)
	_, ok := resp.(Unprocessable)
	assert.True(t, ok)
}

func TestReadTruncatedStream(t *testing.T) {
	raw := frame(3, typeResponseValue, []byte("partial"))

	_, err := ReadPacket(bytes.NewReader(raw[:2]))
	assert.ErrorIs(t, err, ErrIncompleteRead)

	_, err = ReadPacket(bytes.NewReader(raw[:len(raw)-3]))
	assert.ErrorIs(t, err, ErrIncompleteRead)
}

func TestReadImpossibleLength(t *testing.T) {
	_, err := ReadPacket(bytes.NewReader([]byte{0x02, 0x00, 0x00, 0x00, 0x00, 0x00}))
	assert.ErrorIs(t, err, ErrInvalidPacket)
}
