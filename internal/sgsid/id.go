// Package sgsid implements the compact-id wire format used throughout the
// session protocol to identify sessions, channels, and message recipients.
//
// An ID is a variable-length byte string (1..maxUncompressedLen bytes) that
// is carried on the wire in one of four compressed forms (2, 4, 8, or
// 9..24 bytes) depending on how many significant bits it holds. See
// Encode/Decode for the exact bit layout.
package sgsid

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
)

// maxUncompressedLen is the largest uncompressed id this type can hold:
// an 8-byte compact form's payload (8 bytes) plus the largest additional
// large-form length nibble (15), for 23 bytes total.
const maxUncompressedLen = 23

var (
	// ErrTooLong is returned when raw id bytes exceed maxUncompressedLen.
	ErrTooLong = errors.New("sgsid: id exceeds maximum length")
	// ErrEmpty is returned when constructing an id from zero bytes.
	ErrEmpty = errors.New("sgsid: id must be at least one byte")
	// ErrShortBuffer is returned when Decode is given fewer bytes than the
	// encoded form requires.
	ErrShortBuffer = errors.New("sgsid: buffer too short to decode id")
	// ErrBadTag is returned when the first byte's size-tag bits are invalid
	// (the reserved 11xx pattern with either of bits 4-5 set).
	ErrBadTag = errors.New("sgsid: invalid compact-id size tag")
)

// ID is an immutable, self-describing identifier. The zero value is not a
// valid ID; construct one with New, FromHex, or Decode.
type ID struct {
	b [maxUncompressedLen]byte
	n uint8
}

// Server is the canonical id the server uses to identify itself, e.g. as the
// sender of a channel broadcast it originated rather than relayed.
var Server = ID{n: 1}

// New builds an ID from raw uncompressed bytes. data must be 1..23 bytes and
// must not have a leading zero byte unless it is the single-byte canonical
// server id {0x00}.
func New(data []byte) (ID, error) {
	var id ID
	if len(data) == 0 {
		return id, ErrEmpty
	}
	if len(data) > maxUncompressedLen {
		return id, ErrTooLong
	}
	if len(data) > 1 && data[0] == 0 {
		return id, fmt.Errorf("sgsid: leading zero byte in multi-byte id")
	}
	copy(id.b[:], data)
	id.n = uint8(len(data))
	return id, nil
}

// FromHex decodes a hex string into an ID.
func FromHex(s string) (ID, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return ID{}, fmt.Errorf("sgsid: decode hex: %w", err)
	}
	return New(raw)
}

// Bytes returns a copy of the id's uncompressed byte representation.
func (id ID) Bytes() []byte {
	out := make([]byte, id.n)
	copy(out, id.b[:id.n])
	return out
}

// Len returns the number of uncompressed bytes the id occupies.
func (id ID) Len() int {
	return int(id.n)
}

// Hex returns the hex encoding of the id's uncompressed bytes.
func (id ID) Hex() string {
	return hex.EncodeToString(id.b[:id.n])
}

func (id ID) String() string {
	return id.Hex()
}

// IsServer reports whether id is the single-byte canonical server id.
func (id ID) IsServer() bool {
	return id.n == 1 && id.b[0] == 0
}

// Equal reports whether two ids have identical uncompressed byte
// representations.
func (id ID) Equal(other ID) bool {
	return Compare(id, other) == 0
}

// Compare orders ids by uncompressed length first, then by lexicographic
// byte comparison within equal lengths.
func Compare(a, b ID) int {
	if a.n != b.n {
		if a.n < b.n {
			return -1
		}
		return 1
	}
	return bytes.Compare(a.b[:a.n], b.b[:b.n])
}

// byteCount returns the total size (in bytes, including the tag byte) of the
// compact form whose first byte is lengthByte, or -1 if the tag bits are
// malformed.
func byteCount(lengthByte byte) int {
	switch lengthByte & 0xC0 {
	case 0x00:
		return 2
	case 0x40:
		return 4
	case 0x80:
		return 8
	default:
		if lengthByte&0x30 == 0 {
			return 9 + int(lengthByte&0x0F)
		}
		return -1
	}
}

// Encode serializes id into its compact wire form.
func Encode(id ID) []byte {
	src := id.b[:id.n]

	zeroBits := 0
	b := src[0]
	for zeroBits < 8 && b&0x80 == 0 {
		b <<= 1
		zeroBits++
	}
	bitCount := (int(id.n)-1)*8 + (8 - zeroBits)

	var size int
	var mask byte
	switch {
	case bitCount <= 14:
		size = 2
	case bitCount <= 30:
		size, mask = 4, 0x40
	case bitCount <= 62:
		size, mask = 8, 0x80
	default:
		size, mask = int(id.n)+1, byte(0xC0+int(id.n)-8)
	}

	dst := make([]byte, size)
	copy(dst[size-int(id.n):], src)
	dst[0] |= mask
	return dst
}

// Decode reads one compact-form id from the front of buf, returning the
// decoded id and the number of bytes consumed.
func Decode(buf []byte) (ID, int, error) {
	var id ID
	if len(buf) == 0 {
		return id, 0, ErrShortBuffer
	}

	size := byteCount(buf[0])
	if size == -1 {
		return id, 0, ErrBadTag
	}
	if len(buf) < size {
		return id, 0, ErrShortBuffer
	}

	var datalen int
	if size <= 8 {
		firstByte := buf[0] & 0x3F
		first := 0
		if firstByte == 0 {
			for first = 1; first < size && buf[first] == 0; first++ {
			}
		}
		if first == size {
			// every byte, including the tag byte, was zero: canonical
			// server id, preserved as the single zero byte.
			first = size - 1
		}
		datalen = size - first
		copy(id.b[:datalen], buf[first:size])
		if first == 0 {
			id.b[0] = firstByte
		}
	} else {
		datalen = size - 1
		copy(id.b[:datalen], buf[1:size])
	}

	id.n = uint8(datalen)
	return id, size, nil
}
