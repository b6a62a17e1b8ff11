package sgs

import "encoding/hex"

// HexString returns the hex encoding of data, for use in log lines and
// error messages where raw bytes aren't printable.
func HexString(data []byte) string {
	return hex.EncodeToString(data)
}

// HexDecode decodes a hex string back into bytes.
func HexDecode(s string) ([]byte, error) {
	return hex.DecodeString(s)
}
