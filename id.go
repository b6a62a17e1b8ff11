package sgs

import "github.com/kulaginds/sgs-go-client/internal/sgsid"

// ID is a variable-length, self-describing identifier used for sessions,
// channels, and message recipients throughout the protocol.
type ID = sgsid.ID

// ServerID is the canonical identifier the server itself is addressed by,
// e.g. as the apparent sender of a channel message it originated.
var ServerID = sgsid.Server

// NewID builds an ID from its raw uncompressed bytes.
func NewID(data []byte) (ID, error) {
	return sgsid.New(data)
}

// IDFromHex decodes a hex string into an ID.
func IDFromHex(s string) (ID, error) {
	return sgsid.FromHex(s)
}
