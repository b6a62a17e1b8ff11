package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// HeaderLen is the size in bytes of the fixed frame header: a 4-byte length
// field followed by version, service, and opcode bytes.
const HeaderLen = 7

// MaxFrameSize is the largest total frame size (header + payload) the wire
// format allows; the length field is effectively 16 bits wide in practice.
const MaxFrameSize = 65535

// MaxPayloadSize is the largest payload a single frame can carry.
const MaxPayloadSize = MaxFrameSize - HeaderLen

var (
	// ErrShortFrame is returned when fewer bytes than a field requires are
	// available to read it.
	ErrShortFrame = errors.New("wire: buffer shorter than frame header")
	// ErrPayloadTooLarge is returned when encoding a payload that would
	// push the frame past MaxFrameSize, and by PeekFrameLen when a length
	// prefix describes such a frame.
	ErrPayloadTooLarge = errors.New("wire: payload exceeds maximum frame size")
	// ErrUnsupportedVersion is returned by Decode when a frame's version
	// byte isn't the one this client speaks.
	ErrUnsupportedVersion = errors.New("wire: unsupported protocol version")
)

// Message is a single decoded or to-be-encoded protocol frame.
type Message struct {
	Service Service
	Opcode  Opcode
	Payload []byte
}

// PeekFrameLen reads the 4-byte length prefix from the front of buf and
// returns the total frame size (header included) it describes, without
// consuming anything. It returns ErrShortFrame if buf doesn't yet hold the
// length prefix itself.
func PeekFrameLen(buf []byte) (int, error) {
	if len(buf) < 4 {
		return 0, ErrShortFrame
	}
	rest := binary.BigEndian.Uint32(buf[:4])
	total := 4 + int(rest)
	if total > MaxFrameSize {
		return 0, fmt.Errorf("wire: %w: frame claims %d bytes", ErrPayloadTooLarge, total)
	}
	return total, nil
}

// Encode serializes a message into its wire representation.
func Encode(svc Service, op Opcode, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadSize {
		return nil, fmt.Errorf("wire: %w: payload is %d bytes", ErrPayloadTooLarge, len(payload))
	}

	total := HeaderLen + len(payload)
	buf := make([]byte, total)
	binary.BigEndian.PutUint32(buf[0:4], uint32(total-4))
	buf[4] = Version
	buf[5] = byte(svc)
	buf[6] = byte(op)
	copy(buf[7:], payload)
	return buf, nil
}

// Decode parses exactly one frame from buf, which must contain the full
// frame (as reported by PeekFrameLen) and nothing more. The returned
// Message's Payload aliases buf; callers that retain it across further
// buffer mutation must copy it.
func Decode(buf []byte) (Message, error) {
	if len(buf) < HeaderLen {
		return Message{}, ErrShortFrame
	}
	if buf[4] != Version {
		return Message{}, fmt.Errorf("%w: got %d, want %d", ErrUnsupportedVersion, buf[4], Version)
	}
	return Message{
		Service: Service(buf[5]),
		Opcode:  Opcode(buf[6]),
		Payload: buf[HeaderLen:],
	}, nil
}
