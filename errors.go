package sgs

import (
	"errors"
	"fmt"
)

// Code is a protocol-level error code, distinct from the generic I/O errors
// a connection can also return.
type Code int

// Protocol error codes. Values match the ones the reference server and its
// other client implementations use, so they can be logged or compared
// across implementations.
const (
	CodeIllegalState    Code = 180
	CodeBadMsgVersion   Code = 181
	CodeBadMsgService   Code = 182
	CodeBadMsgOpcode    Code = 183
	CodeSizeArgTooLarge Code = 184
	CodeCheckDNS        Code = 185
	CodeBadFd           Code = 186
	CodeUnknownChannel  Code = 187
)

func (c Code) String() string {
	switch c {
	case CodeIllegalState:
		return "IllegalState"
	case CodeBadMsgVersion:
		return "BadMsgVersion"
	case CodeBadMsgService:
		return "BadMsgService"
	case CodeBadMsgOpcode:
		return "BadMsgOpcode"
	case CodeSizeArgTooLarge:
		return "SizeArgTooLarge"
	case CodeCheckDNS:
		return "CheckDnsError"
	case CodeBadFd:
		return "BadFd"
	case CodeUnknownChannel:
		return "UnknownChannel"
	default:
		return fmt.Sprintf("Code(%d)", int(c))
	}
}

// ProtocolError reports a violation of the protocol's own rules, as opposed
// to a transport-level I/O failure.
type ProtocolError struct {
	Code Code
	Msg  string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("sgs: %s: %s", e.Code, e.Msg)
}

// Is reports two *ProtocolError values equal for errors.Is purposes if they
// carry the same Code, so callers can compare a returned error against the
// package's sentinel values (e.g. ErrBadMsgVersion) without caring about the
// specific message text attached to a given occurrence.
func (e *ProtocolError) Is(target error) bool {
	other, ok := target.(*ProtocolError)
	if !ok {
		return false
	}
	return e.Code == other.Code
}

func protoErr(code Code, msg string) error {
	return &ProtocolError{Code: code, Msg: msg}
}

func protoErrf(code Code, format string, args ...any) error {
	return &ProtocolError{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// AsProtocolError extracts a *ProtocolError from err, if any is present in
// its chain.
func AsProtocolError(err error) (*ProtocolError, bool) {
	var pe *ProtocolError
	ok := errors.As(err, &pe)
	return pe, ok
}

// Sentinel errors for the fixed protocol-violation conditions a connection
// can hit. Compare against these with errors.Is; most already carry a
// ProtocolError with the matching Code.
var (
	ErrIllegalState    = protoErr(CodeIllegalState, "operation is not valid in the current connection state")
	ErrBadMsgVersion   = protoErr(CodeBadMsgVersion, "message header carries an unsupported protocol version")
	ErrBadMsgService   = protoErr(CodeBadMsgService, "message header names an unknown service")
	ErrBadMsgOpcode    = protoErr(CodeBadMsgOpcode, "message header names an unknown opcode for its service")
	ErrSizeArgTooLarge = protoErr(CodeSizeArgTooLarge, "requested size exceeds the protocol's limit")
	ErrCheckDNS        = protoErr(CodeCheckDNS, "hostname could not be resolved")
	ErrBadFd           = protoErr(CodeBadFd, "operation was attempted on an invalid file descriptor")
	ErrUnknownChannel  = protoErr(CodeUnknownChannel, "channel id was not found in the local registry")
)

// Transport-level errors, named after the errno conditions the original
// implementation surfaced directly.
var (
	// ErrNoBufferSpace is returned when an outbound queue cannot accept any
	// more data until the peer drains some.
	ErrNoBufferSpace = errors.New("sgs: no buffer space available for outbound data")
	// ErrMessageTooLarge is returned when a caller tries to send a payload
	// that would not fit in a single frame.
	ErrMessageTooLarge = errors.New("sgs: message payload exceeds the maximum frame size")
	// ErrNotConnected is returned by operations that require an active
	// connection to the server.
	ErrNotConnected = errors.New("sgs: not connected")
	// ErrInvalidArgument names the failure of a caller-supplied argument to
	// pass basic validation. No function in this package returns it.
	ErrInvalidArgument = errors.New("sgs: invalid argument")
)
