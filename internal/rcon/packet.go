// Package rcon implements the Source/Minecraft remote console protocol:
// binary frame codec, a client with request correlation and multi-fragment
// response reassembly, and a connect-with-retry manager.
package rcon

import (
	"encoding/binary"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/DSroD/PyCon/internal/model"
)

// Outgoing packet types.
const (
	typeLogin   int32 = 3
	typeCommand int32 = 2
	// typeCommandEnd is deliberately outside the server's vocabulary: the
	// server echoes the request id back in an empty response, which acts
	// as a fence marking the end of a command's fragments.
	typeCommandEnd int32 = 99
)

// Incoming packet types.
const (
	typeResponseValue int32 = 0
	typeAuthResponse  int32 = 2
)

// Encoding is the payload text encoding a server speaks.
type Encoding int

const (
	// EncodingASCII is used by Source servers.
	EncodingASCII Encoding = iota
	// EncodingUTF8 is used by Minecraft servers.
	EncodingUTF8
)

// EncodingFor selects the payload encoding for a server type.
func EncodingFor(t model.ServerType) Encoding {
	if t == model.SourceServer {
		return EncodingASCII
	}
	return EncodingUTF8
}

func (e Encoding) encode(s string) ([]byte, error) {
	switch e {
	case EncodingASCII:
		for i := 0; i < len(s); i++ {
			if s[i] > 0x7f {
				return nil, fmt.Errorf("%w: %q is not ascii", ErrInvalidPayload, s)
			}
		}
		return []byte(s), nil
	default:
		if !utf8.ValidString(s) {
			return nil, fmt.Errorf("%w: %q is not valid utf-8", ErrInvalidPayload, s)
		}
		return []byte(s), nil
	}
}

func (e Encoding) decode(b []byte) (string, error) {
	switch e {
	case EncodingASCII:
		for _, c := range b {
			if c > 0x7f {
				return "", fmt.Errorf("%w: response is not ascii", ErrInvalidPayload)
			}
		}
		return string(b), nil
	default:
		if !utf8.Valid(b) {
			return "", fmt.Errorf("%w: response is not valid utf-8", ErrInvalidPayload)
		}
		return string(b), nil
	}
}

// Packet is an outgoing RCON frame.
type Packet struct {
	RequestID int32
	Type      int32
	Payload   string
}

// LoginPacket is sent right after establishing the connection.
func LoginPacket(password string, requestID int32) Packet {
	return Packet{RequestID: requestID, Type: typeLogin, Payload: password}
}

// CommandPacket carries a single command to execute.
func CommandPacket(command string, requestID int32) Packet {
	return Packet{RequestID: requestID, Type: typeCommand, Payload: command}
}

// CommandEndPacket is the correlation fence sent after each command.
func CommandEndPacket(requestID int32) Packet {
	return Packet{RequestID: requestID, Type: typeCommandEnd}
}

// Encode renders the frame: little-endian length, request id and type,
// followed by the null-terminated payload and one extra pad byte. The
// length counts all bytes after itself.
func (p Packet) Encode(enc Encoding) ([]byte, error) {
	payload, err := enc.encode(p.Payload)
	if err != nil {
		return nil, err
	}

	body := 4 + 4 + len(payload) + 2
	buf := make([]byte, 4+body)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(body))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(p.RequestID))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(p.Type))
	copy(buf[12:], payload)
	return buf, nil
}

// Response is the sum of decoded incoming frames.
type Response interface {
	isResponse()
}

// LoginSuccess is the server's acknowledgement of a login packet.
type LoginSuccess struct {
	RequestID int32
}

// InvalidPassword is the server's rejection of a login packet.
type InvalidPassword struct{}

// CommandResponse is one fragment of a command's reply.
type CommandResponse struct {
	RequestID int32
	Payload   []byte
}

// Unprocessable is a frame that could not be interpreted. It carries a
// diagnostic for the caller's error callback; it is not a decode failure.
type Unprocessable struct {
	RequestID int32
	Reason    string
}

func (LoginSuccess) isResponse()    {}
func (InvalidPassword) isResponse() {}
func (CommandResponse) isResponse() {}
func (Unprocessable) isResponse()   {}

// ReadPacket reads and decodes exactly one frame. A stream that ends
// mid-frame fails with ErrIncompleteRead.
func ReadPacket(r io.Reader) (Response, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, fmt.Errorf("%w: reading frame length: %v", ErrIncompleteRead, err)
	}
	length := int32(binary.LittleEndian.Uint32(lenBuf[:]))
	if length < 10 {
		return nil, fmt.Errorf("%w: frame length %d too short", ErrInvalidPacket, length)
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("%w: reading frame body: %v", ErrIncompleteRead, err)
	}

	requestID := int32(binary.LittleEndian.Uint32(body[0:4]))
	packetType := int32(binary.LittleEndian.Uint32(body[4:8]))
	payload := body[8 : len(body)-2]
	padding := body[len(body)-2:]

	if padding[0] != 0 || padding[1] != 0 {
		return Unprocessable{RequestID: requestID, Reason: "padding mismatch"}, nil
	}

	switch packetType {
	case typeResponseValue:
		return CommandResponse{RequestID: requestID, Payload: payload}, nil
	case typeAuthResponse:
		if requestID == -1 {
			return InvalidPassword{}, nil
		}
		return LoginSuccess{RequestID: requestID}, nil
	default:
		return Unprocessable{
			RequestID: requestID,
			Reason:    fmt.Sprintf("invalid packet type %d", packetType),
		}, nil
	}
}
