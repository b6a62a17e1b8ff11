// Package session implements the client-side session state machine: login,
// logout, reconnection, sequence-numbered outbound messages, and dispatch
// of inbound application- and channel-service frames to host callbacks.
package session

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/kulaginds/sgs-go-client/internal/sgsid"
	"github.com/kulaginds/sgs-go-client/internal/wire"
)

// ErrUnknownChannel is returned when an inbound frame references a channel
// id the session has not joined.
var ErrUnknownChannel = errors.New("session: unknown channel id")

// ErrUnknownService is returned when an inbound frame names a service this
// client does not recognize.
var ErrUnknownService = errors.New("session: unknown service")

// State is the session's position in the login/logout lifecycle.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateLoggedIn
	StateLoggingOut
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateLoggedIn:
		return "LOGGED_IN"
	case StateLoggingOut:
		return "LOGGING_OUT"
	case StateFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(s))
	}
}

// Hooks are the event sinks and the outbound transport a Session is wired
// to. Send is called for every frame the session needs to emit; the caller
// (the connection driver) is responsible for actually queuing the bytes.
type Hooks struct {
	Send func(svc wire.Service, op wire.Opcode, payload []byte) error

	LoggedIn       func()
	LoginFailed    func(reason []byte)
	Reconnected    func()
	RecvMessage    func(data []byte)
	Disconnected   func()
	ChannelJoined  func(ch *Channel)
	ChannelLeft    func(channelID sgsid.ID)
	// ChannelRecvMsg reports a message received on a channel. fromServer is
	// true when the sender id in the frame was the canonical server id, in
	// which case sender should be ignored.
	ChannelRecvMsg func(channelID, sender sgsid.ID, fromServer bool, data []byte)
}

// ErrIllegalState indicates an operation was attempted while the session
// was not in a state that permits it.
type ErrIllegalState struct {
	Op    string
	State State
}

func (e *ErrIllegalState) Error() string {
	return fmt.Sprintf("session: %s: illegal in state %s", e.Op, e.State)
}

// ErrBadOpcode indicates an inbound frame named an opcode this client does
// not recognize for the frame's service.
type ErrBadOpcode struct {
	Service wire.Service
	Opcode  wire.Opcode
}

func (e *ErrBadOpcode) Error() string {
	return fmt.Sprintf("session: unrecognized opcode %s for service %s", e.Opcode, e.Service)
}

// Session tracks login state, the sequence counter for outbound
// session/channel messages, and the set of joined channels.
type Session struct {
	mu sync.Mutex

	state        State
	id           sgsid.ID
	reconnectKey []byte
	seqHi, seqLo uint32

	hooks    Hooks
	channels map[sgsid.ID]*Channel
}

// New creates a Session in the Connected state, ready to log in. hooks.Send
// must be non-nil.
func New(hooks Hooks) *Session {
	return &Session{
		state:    StateConnected,
		hooks:    hooks,
		channels: make(map[sgsid.ID]*Channel),
	}
}

// State returns the session's current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ID returns the session id assigned by the server at login. It is the zero
// value until login succeeds.
func (s *Session) ID() sgsid.ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// ReconnectKey returns the opaque reconnection token handed out at login.
func (s *Session) ReconnectKey() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]byte, len(s.reconnectKey))
	copy(out, s.reconnectKey)
	return out
}

// Login sends a LOGIN_REQUEST carrying the given credentials. It is only
// valid while Connected.
func (s *Session) Login(name, password []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateConnected {
		return &ErrIllegalState{Op: "login", State: s.state}
	}

	payload := append(putArb(nil, name), putArb(nil, password)...)
	return s.hooks.Send(wire.ServiceApplication, wire.OpLoginRequest, payload)
}

// Logout sends a LOGOUT_REQUEST and transitions to LoggingOut. It is only
// valid while LoggedIn.
func (s *Session) Logout() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateLoggedIn {
		return &ErrIllegalState{Op: "logout", State: s.state}
	}

	if err := s.hooks.Send(wire.ServiceApplication, wire.OpLogoutRequest, nil); err != nil {
		return err
	}
	s.state = StateLoggingOut
	return nil
}

// Send sends an application-level message directly to the server. It is
// only valid while LoggedIn.
func (s *Session) Send(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateLoggedIn {
		return &ErrIllegalState{Op: "send", State: s.state}
	}

	payload := s.seqBytes()
	payload = putArb(payload, data)
	if err := s.hooks.Send(wire.ServiceApplication, wire.OpSessionMessage, payload); err != nil {
		return err
	}
	s.incrementSeq()
	return nil
}

// ChannelSend sends data on the named channel, optionally restricted to a
// set of recipients (nil/empty means "all members").
func (s *Session) ChannelSend(channelID sgsid.ID, recipients []sgsid.ID, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateLoggedIn {
		return &ErrIllegalState{Op: "channel send", State: s.state}
	}

	payload := sgsid.Encode(channelID)
	payload = append(payload, s.seqBytes()...)

	countBuf := make([]byte, 2)
	binary.BigEndian.PutUint16(countBuf, uint16(len(recipients)))
	payload = append(payload, countBuf...)
	for _, r := range recipients {
		payload = append(payload, sgsid.Encode(r)...)
	}

	payload = putArb(payload, data)

	if err := s.hooks.Send(wire.ServiceChannel, wire.OpChannelSendRequest, payload); err != nil {
		return err
	}
	s.incrementSeq()
	return nil
}

// Channel looks up a joined channel by id.
func (s *Session) Channel(id sgsid.ID) (*Channel, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.channels[id]
	return ch, ok
}

// Channels returns every channel currently joined, ordered by channel id so
// that repeated calls are stable regardless of map iteration order.
func (s *Session) Channels() []*Channel {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Channel, 0, len(s.channels))
	for _, ch := range s.channels {
		out = append(out, ch)
	}
	sort.Slice(out, func(i, j int) bool {
		return sgsid.Compare(out[i].id, out[j].id) < 0
	})
	return out
}

// Reconnect sends a RECONNECT_REQUEST carrying a reconnect key obtained from
// a prior session's LOGIN_SUCCESS. Like Login, it is only valid immediately
// after the session is created, while Connected; the host is responsible for
// deciding when a reconnect attempt is warranted (the wire protocol defines
// the request but never triggers it on its own).
func (s *Session) Reconnect(key sgsid.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateConnected {
		return &ErrIllegalState{Op: "reconnect", State: s.state}
	}

	return s.hooks.Send(wire.ServiceApplication, wire.OpReconnectRequest, sgsid.Encode(key))
}

func (s *Session) seqBytes() []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint32(buf[0:4], s.seqHi)
	binary.BigEndian.PutUint32(buf[4:8], s.seqLo)
	return buf
}

func (s *Session) incrementSeq() {
	s.seqLo++
	if s.seqLo == 0 {
		s.seqHi++
	}
}

func putArb(dst, data []byte) []byte {
	lenBuf := make([]byte, 2)
	binary.BigEndian.PutUint16(lenBuf, uint16(len(data)))
	dst = append(dst, lenBuf...)
	return append(dst, data...)
}

// getArb reads a u16-length-prefixed string/byte-array field from the front
// of buf, returning the field and the number of bytes consumed.
func getArb(buf []byte) ([]byte, int, error) {
	if len(buf) < 2 {
		return nil, 0, fmt.Errorf("session: buffer shorter than a length prefix")
	}
	n := int(binary.BigEndian.Uint16(buf))
	if len(buf) < 2+n {
		return nil, 0, fmt.Errorf("session: buffer shorter than its declared length")
	}
	return buf[2 : 2+n], 2 + n, nil
}

// Recv dispatches one decoded inbound frame, updating session state and
// invoking the matching hook.
func (s *Session) Recv(msg wire.Message) error {
	switch msg.Service {
	case wire.ServiceApplication:
		return s.recvApplication(msg.Opcode, msg.Payload)
	case wire.ServiceChannel:
		return s.recvChannel(msg.Opcode, msg.Payload)
	default:
		return fmt.Errorf("%w: 0x%02x", ErrUnknownService, uint8(msg.Service))
	}
}

func (s *Session) recvApplication(op wire.Opcode, payload []byte) error {
	s.mu.Lock()

	switch op {
	case wire.OpLoginSuccess:
		id, n, err := sgsid.Decode(payload)
		if err != nil {
			s.mu.Unlock()
			return fmt.Errorf("session: decode login success id: %w", err)
		}
		key, _, err := sgsid.Decode(payload[n:])
		if err != nil {
			s.mu.Unlock()
			return fmt.Errorf("session: decode login success reconnect key: %w", err)
		}
		s.id = id
		s.reconnectKey = key.Bytes()
		s.state = StateLoggedIn
		hook := s.hooks.LoggedIn
		s.mu.Unlock()
		if hook != nil {
			hook()
		}
		return nil

	case wire.OpLoginFailure:
		reason, _, err := getArb(payload)
		if err != nil {
			s.mu.Unlock()
			return fmt.Errorf("session: decode login failure reason: %w", err)
		}
		s.state = StateConnected
		hook := s.hooks.LoginFailed
		s.mu.Unlock()
		if hook != nil {
			hook(reason)
		}
		return nil

	case wire.OpReconnectSuccess:
		key, _, err := sgsid.Decode(payload)
		if err != nil {
			s.mu.Unlock()
			return fmt.Errorf("session: decode reconnect success key: %w", err)
		}
		s.reconnectKey = key.Bytes()
		s.state = StateLoggedIn
		hook := s.hooks.Reconnected
		s.mu.Unlock()
		if hook != nil {
			hook()
		}
		return nil

	case wire.OpReconnectFailure:
		s.state = StateDisconnected
		hook := s.hooks.Disconnected
		s.mu.Unlock()
		if hook != nil {
			hook()
		}
		return nil

	case wire.OpSessionMessage:
		if len(payload) < 8 {
			s.mu.Unlock()
			return fmt.Errorf("session: session message shorter than its sequence field")
		}
		data, _, err := getArb(payload[8:])
		if err != nil {
			s.mu.Unlock()
			return fmt.Errorf("session: decode session message payload: %w", err)
		}
		hook := s.hooks.RecvMessage
		s.mu.Unlock()
		if hook != nil {
			hook(data)
		}
		return nil

	case wire.OpLogoutSuccess:
		s.state = StateDisconnected
		hook := s.hooks.Disconnected
		s.mu.Unlock()
		if hook != nil {
			hook()
		}
		return nil

	default:
		s.mu.Unlock()
		return &ErrBadOpcode{Service: wire.ServiceApplication, Opcode: op}
	}
}

func (s *Session) recvChannel(op wire.Opcode, payload []byte) error {
	switch op {
	case wire.OpChannelJoin:
		nameBytes, n, err := getArb(payload)
		if err != nil {
			return fmt.Errorf("session: decode channel-join name: %w", err)
		}
		id, _, err := sgsid.Decode(payload[n:])
		if err != nil {
			return fmt.Errorf("session: decode channel-join id: %w", err)
		}
		name := string(nameBytes)

		s.mu.Lock()
		ch := &Channel{id: id, name: name, session: s}
		s.channels[id] = ch
		hook := s.hooks.ChannelJoined
		s.mu.Unlock()

		if hook != nil {
			hook(ch)
		}
		return nil

	case wire.OpChannelLeave:
		id, _, err := sgsid.Decode(payload)
		if err != nil {
			return fmt.Errorf("session: decode channel-leave id: %w", err)
		}

		s.mu.Lock()
		if _, ok := s.channels[id]; !ok {
			s.mu.Unlock()
			return ErrUnknownChannel
		}
		delete(s.channels, id)
		hook := s.hooks.ChannelLeft
		s.mu.Unlock()

		if hook != nil {
			hook(id)
		}
		return nil

	case wire.OpChannelMessage:
		channelID, n, err := sgsid.Decode(payload)
		if err != nil {
			return fmt.Errorf("session: decode channel-message channel id: %w", err)
		}
		rest := payload[n:]
		if len(rest) < 8 {
			return fmt.Errorf("session: channel message shorter than its sequence field")
		}
		rest = rest[8:]

		sender, n, err := sgsid.Decode(rest)
		if err != nil {
			return fmt.Errorf("session: decode channel-message sender id: %w", err)
		}
		data, _, err := getArb(rest[n:])
		if err != nil {
			return fmt.Errorf("session: decode channel-message payload: %w", err)
		}
		fromServer := sender.IsServer()

		s.mu.Lock()
		if _, ok := s.channels[channelID]; !ok {
			s.mu.Unlock()
			return ErrUnknownChannel
		}
		hook := s.hooks.ChannelRecvMsg
		s.mu.Unlock()

		if hook != nil {
			hook(channelID, sender, fromServer, data)
		}
		return nil

	default:
		return &ErrBadOpcode{Service: wire.ServiceChannel, Opcode: op}
	}
}
