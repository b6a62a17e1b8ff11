package sgs

import (
	"errors"
	"fmt"
	"net"

	"github.com/rs/xid"
	"golang.org/x/sys/unix"

	"github.com/kulaginds/sgs-go-client/internal/logging"
	"github.com/kulaginds/sgs-go-client/internal/metrics"
	"github.com/kulaginds/sgs-go-client/internal/ringbuf"
	"github.com/kulaginds/sgs-go-client/internal/session"
	"github.com/kulaginds/sgs-go-client/internal/wire"
)

// defaultBufferSize is the initial capacity of each connection's inbound
// and outbound ring buffers.
const defaultBufferSize = 64 * 1024

// readBlock and writeBlock cap the number of bytes fillIn/flushOut will
// move in a single Read/Write syscall, so one fd's traffic can't hog a
// DoIO pass when a host is multiplexing many connections off one
// poll/select loop.
const (
	readBlock  = 1024
	writeBlock = 1024
)

// connState tracks the raw socket's lifecycle, separately from the
// session's own login state: a Connection starts connecting before its
// Session considers itself usable for login.
type connState int

const (
	csDisconnected connState = iota
	csConnecting
	csConnected
)

// Connection drives one non-blocking TCP connection to the server. All of
// its methods are meant to be called from a single goroutine: the one
// running the host's I/O readiness loop. Create one with NewConnection,
// start it with Login, and feed it readiness notifications with DoIO.
type Connection struct {
	ctx   *Context
	fd    int
	state connState

	expectDisconnect bool

	sess *session.Session
	in   *ringbuf.Buffer
	out  *ringbuf.Buffer

	log     *logging.Logger
	handle  xid.ID
	metrics *metrics.Collector
}

// NewConnection creates a Connection bound to ctx. The connection does
// nothing until Login is called.
func NewConnection(ctx *Context) *Connection {
	return &Connection{
		ctx:     ctx,
		fd:      -1,
		state:   csDisconnected,
		log:     logging.Default(),
		handle:  xid.New(),
		metrics: ctx.Metrics,
	}
}

// newConnectionWithFD wires a Connection around an already-connected
// socket, skipping hostname resolution and connect(2). Used by tests that
// supply their own peer (e.g. a socketpair) in place of a real server.
func newConnectionWithFD(ctx *Context, fd int, state connState) *Connection {
	c := &Connection{
		ctx:     ctx,
		fd:      fd,
		state:   state,
		log:     logging.Default(),
		handle:  xid.New(),
		metrics: ctx.Metrics,
		in:      ringbuf.New(defaultBufferSize),
		out:     ringbuf.New(defaultBufferSize),
	}
	c.sess = session.New(c.sessionHooks())
	return c
}

// FD returns the connection's socket file descriptor, or -1 if it has none.
func (c *Connection) FD() int { return c.fd }

// State reports the session-level lifecycle state: Disconnected until
// Login is called, then Connecting/Connected/LoggedIn/LoggingOut as the
// handshake and login proceed.
func (c *Connection) State() session.State {
	if c.sess == nil {
		return session.StateDisconnected
	}
	if c.state == csConnecting {
		return session.StateConnecting
	}
	return c.sess.State()
}

// Login begins connecting to hostname:port and queues a login request
// carrying name and password, to be sent as soon as the socket is
// writable. It is only valid on a fresh or previously-closed Connection.
func (c *Connection) Login(hostname string, port int, name, password []byte) error {
	return c.dial(hostname, port, func() error {
		return c.sess.Login(name, password)
	})
}

// Reconnect begins connecting to hostname:port and queues a RECONNECT_REQUEST
// carrying key, a reconnect token previously obtained from a LOGIN_SUCCESS or
// RECONNECT_SUCCESS on an earlier, now-disconnected Connection. The wire
// protocol defines the request but the reference client never emits it
// itself; deciding when a reconnect attempt is warranted (e.g. after an
// unexpected Disconnected callback) is left entirely to the host.
func (c *Connection) Reconnect(hostname string, port int, key ID) error {
	return c.dial(hostname, port, func() error {
		return c.sess.Reconnect(key)
	})
}

// dial resolves hostname, opens a non-blocking socket, and begins an
// asynchronous connect to it. queue is called once the session has been
// created (but before the connect syscall) to enqueue the first outbound
// message, so its bytes are ready to flush the instant the socket reports
// writable.
func (c *Connection) dial(hostname string, port int, queue func() error) error {
	if c.state != csDisconnected {
		return protoErr(CodeIllegalState, "connect attempted on a connection that is already active")
	}

	ip, err := resolveIPv4(hostname)
	if err != nil {
		return err
	}

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return fmt.Errorf("sgs: create socket: %w", err)
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		_ = unix.Close(fd)
		return fmt.Errorf("sgs: set nonblocking: %w", err)
	}

	c.fd = fd
	c.in = ringbuf.New(defaultBufferSize)
	c.out = ringbuf.New(defaultBufferSize)
	c.sess = session.New(c.sessionHooks())
	c.state = csConnecting
	c.expectDisconnect = false

	if err := queue(); err != nil {
		_ = unix.Close(fd)
		c.fd, c.state = -1, csDisconnected
		return err
	}

	sa := &unix.SockaddrInet4{Port: port}
	copy(sa.Addr[:], ip)

	if err := unix.Connect(fd, sa); err != nil {
		if err != unix.EINPROGRESS {
			_ = unix.Close(fd)
			c.fd, c.state = -1, csDisconnected
			return fmt.Errorf("sgs: connect: %w", err)
		}
	} else {
		c.state = csConnected
	}

	if c.metrics != nil {
		c.metrics.Add(c.handle.String())
	}
	c.ctx.registerInterest(c, fd, EventWrite)
	return nil
}

func resolveIPv4(hostname string) (net.IP, error) {
	ips, err := net.LookupHost(hostname)
	if err != nil || len(ips) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrCheckDNS, hostname)
	}
	ip := net.ParseIP(ips[0]).To4()
	if ip == nil {
		return nil, fmt.Errorf("%w: %s has no IPv4 address", ErrCheckDNS, hostname)
	}
	return ip, nil
}

// Logout ends the session. A graceful logout sends a LOGOUT_REQUEST and
// waits for the server's LOGOUT_SUCCESS before closing; force closes the
// socket immediately without notifying the server.
func (c *Connection) Logout(force bool) error {
	if c.sess == nil {
		return ErrNotConnected
	}
	if force {
		c.expectDisconnect = true
		c.closeNow()
		return nil
	}
	return c.sess.Logout()
}

// Send sends data directly to the server, outside of any channel. Only
// valid once the Context's LoggedIn callback has fired.
func (c *Connection) Send(data []byte) error {
	if c.sess == nil {
		return ErrNotConnected
	}
	return c.sess.Send(data)
}

// Channel looks up a joined channel by id.
func (c *Connection) Channel(id ID) (*Channel, bool) {
	if c.sess == nil {
		return nil, false
	}
	return c.sess.Channel(id)
}

// Channels returns every channel currently joined, in a stable order.
func (c *Connection) Channels() []*Channel {
	if c.sess == nil {
		return nil
	}
	return c.sess.Channels()
}

// Handle returns an opaque identifier for this Connection, stable for its
// lifetime and unique across every Connection a process creates. It is
// meant for correlating log lines and metric samples with a specific
// connection instance, never for protocol identification (use ID for that).
func (c *Connection) Handle() string {
	return c.handle.String()
}

func (c *Connection) sessionHooks() session.Hooks {
	return session.Hooks{
		Send: c.enqueue,
		LoggedIn: func() {
			if c.ctx.LoggedIn != nil {
				c.ctx.LoggedIn(c)
			}
		},
		LoginFailed: func(reason []byte) {
			if c.ctx.LoginFailed != nil {
				c.ctx.LoginFailed(c, reason)
			}
		},
		Reconnected: func() {
			if c.ctx.Reconnected != nil {
				c.ctx.Reconnected(c)
			}
		},
		RecvMessage: func(data []byte) {
			if c.ctx.RecvMessage != nil {
				c.ctx.RecvMessage(c, data)
			}
		},
		Disconnected: c.handleSessionDisconnected,
		ChannelJoined: func(ch *Channel) {
			if c.ctx.ChannelJoined != nil {
				c.ctx.ChannelJoined(c, ch.ID(), ch.Name())
			}
		},
		ChannelLeft: func(id ID) {
			if c.ctx.ChannelLeft != nil {
				c.ctx.ChannelLeft(c, id)
			}
		},
		ChannelRecvMsg: func(channelID, sender ID, fromServer bool, data []byte) {
			if c.ctx.ChannelRecvMsg != nil {
				c.ctx.ChannelRecvMsg(c, channelID, sender, fromServer, data)
			}
		},
	}
}

// enqueue is session.Hooks.Send: it frames one message and appends it to
// the outbound buffer, registering write interest if the socket is already
// connected (if it's still connecting, write interest is already
// registered and will flush this data once the connect completes).
func (c *Connection) enqueue(svc wire.Service, op wire.Opcode, payload []byte) error {
	frame, err := wire.Encode(svc, op, payload)
	if err != nil {
		if errors.Is(err, wire.ErrPayloadTooLarge) {
			return fmt.Errorf("%w: %v", ErrMessageTooLarge, err)
		}
		return err
	}
	if !c.out.CanWrite(len(frame)) {
		return ErrNoBufferSpace
	}
	c.out.Write(frame)
	if c.metrics != nil {
		c.metrics.RecordFrameSent(c.handle.String(), len(frame))
	}
	if c.state == csConnected {
		c.ctx.registerInterest(c, c.fd, EventWrite)
	}
	return nil
}

// DoIO services one readiness notification for this connection's file
// descriptor, as reported by the host's external poll/select loop.
func (c *Connection) DoIO(events Events) error {
	if c.fd < 0 {
		return ErrNotConnected
	}

	if events.Has(EventError) {
		return c.handleIOError()
	}

	if events.Has(EventWrite) {
		if c.state == csConnecting {
			if err := c.finishConnect(); err != nil {
				return err
			}
		}
		if c.fd >= 0 {
			if err := c.flushOut(); err != nil {
				return err
			}
		}
	}

	if c.fd >= 0 && events.Has(EventRead) {
		if err := c.fillIn(); err != nil {
			return err
		}
		if c.fd >= 0 {
			if err := c.consumeFrames(); err != nil {
				return err
			}
		}
	}

	c.updateInterest()
	return nil
}

// updateInterest re-registers or unregisters read/write interest to match
// the current buffer state, per the connection driver's post-pass
// bookkeeping rule: read interest tracks whether inbuf has room left, write
// interest tracks whether outbuf still has bytes queued.
func (c *Connection) updateInterest() {
	if c.fd < 0 || c.state != csConnected {
		return
	}
	if c.in.Free() > 0 {
		c.ctx.registerInterest(c, c.fd, EventRead)
	} else {
		c.ctx.unregisterInterest(c, c.fd, EventRead)
	}
	if c.out.Size() > 0 {
		c.ctx.registerInterest(c, c.fd, EventWrite)
	} else {
		c.ctx.unregisterInterest(c, c.fd, EventWrite)
	}
}

func (c *Connection) finishConnect() error {
	errno, err := unix.GetsockoptInt(c.fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return fmt.Errorf("sgs: getsockopt SO_ERROR: %w", err)
	}
	if errno != 0 {
		c.closeNow()
		return fmt.Errorf("sgs: connect failed: %w", unix.Errno(errno))
	}
	c.state = csConnected
	return nil
}

// flushOut writes at most writeBlock bytes of queued outbound data to the
// socket in a single syscall, the same per-call cap the reference
// implementation applies, so one connection's backlog can't monopolize a
// DoIO pass on a host multiplexing many fds off one poll/select loop.
func (c *Connection) flushOut() error {
	want := c.out.Size()
	if want > writeBlock {
		want = writeBlock
	}
	if want == 0 {
		return nil
	}

	span := c.out.ReadSpace(want)
	n, err := unix.Write(c.fd, span)
	if n > 0 {
		c.out.CommitRead(n)
	}
	if err != nil {
		if err == unix.EAGAIN {
			return nil
		}
		return c.handleIOError()
	}

	if c.out.Size() == 0 {
		c.ctx.unregisterInterest(c, c.fd, EventWrite)
	}
	return nil
}

// fillIn reads at most readBlock bytes from the socket into the inbound
// buffer in a single syscall, mirroring flushOut's per-call cap.
func (c *Connection) fillIn() error {
	want := c.in.Free()
	if want > readBlock {
		want = readBlock
	}
	if want == 0 {
		return nil
	}

	span := c.in.WriteSpace(want)
	n, err := unix.Read(c.fd, span)
	if n > 0 {
		c.in.CommitWrite(n)
	}
	if err != nil {
		if err == unix.EAGAIN {
			return nil
		}
		return c.handleIOError()
	}
	if n == 0 {
		c.in.SetEOF()
		return c.handlePeerClosed()
	}
	return nil
}

// consumeFrames extracts and dispatches as many complete frames as are
// currently buffered. It marks the buffer before each attempt so a
// not-yet-fully-buffered frame can be rewound and retried once more bytes
// arrive, instead of being lost.
func (c *Connection) consumeFrames() error {
	for {
		if !c.in.CanRead(4) {
			break
		}

		c.in.Mark()
		total, err := wire.PeekFrameLen(c.in.Peek(4))
		if err != nil {
			c.in.Unmark()
			c.closeNow()
			return err
		}

		if !c.in.CanRead(total) {
			c.in.Reset()
			break
		}

		frame := c.in.Peek(total)
		msg, err := wire.Decode(frame)
		c.in.Unmark()
		c.in.Read(total)
		if err != nil {
			c.closeNow()
			if errors.Is(err, wire.ErrUnsupportedVersion) {
				return protoErrf(CodeBadMsgVersion, "%v", err)
			}
			return err
		}
		if c.metrics != nil {
			c.metrics.RecordFrameRecv(c.handle.String(), total)
		}

		if err := c.sess.Recv(msg); err != nil {
			var badOpcode *session.ErrBadOpcode
			switch {
			case errors.As(err, &badOpcode):
				c.closeNow()
				return protoErrf(CodeBadMsgOpcode, "%v", err)
			case errors.Is(err, session.ErrUnknownService):
				c.closeNow()
				return protoErrf(CodeBadMsgService, "%v", err)
			case errors.Is(err, session.ErrUnknownChannel):
				c.log.Warn("dropping frame for unjoined channel: %v", err)
			default:
				c.log.Warn("dropping unrecognized frame: %v", err)
			}
		}
		if msg.Service == wire.ServiceApplication && msg.Opcode == wire.OpReconnectFailure {
			c.closeNow()
			if c.ctx.Disconnected != nil {
				c.ctx.Disconnected(c)
			}
			return nil
		}
		if c.fd < 0 {
			return nil
		}
		if c.metrics != nil {
			c.metrics.SetState(c.handle.String(), int(c.State()))
		}
	}
	return nil
}

func (c *Connection) handleIOError() error {
	fd := c.fd
	c.closeNow()
	if c.ctx.Disconnected != nil {
		c.ctx.Disconnected(c)
	}
	return fmt.Errorf("sgs: connection %d: I/O error", fd)
}

func (c *Connection) handlePeerClosed() error {
	wasExpected := c.expectDisconnect
	c.closeNow()
	if !wasExpected && c.ctx.Disconnected != nil {
		c.ctx.Disconnected(c)
	}
	return nil
}

// handleSessionDisconnected runs when the session reaches LOGOUT_SUCCESS or
// RECONNECT_FAILURE. It only marks the close as expected; after a logout the
// peer is the one that actually tears down the socket, and handlePeerClosed
// stays silent for an expected close so a clean logout never surfaces as a
// Disconnected callback. After RECONNECT_FAILURE, consumeFrames closes the
// socket itself and fires Disconnected.
func (c *Connection) handleSessionDisconnected() {
	c.expectDisconnect = true
}

func (c *Connection) closeNow() {
	if c.fd < 0 {
		return
	}
	c.ctx.unregisterInterest(c, c.fd, EventRead|EventWrite)
	_ = unix.Close(c.fd)
	c.fd = -1
	c.state = csDisconnected
	if c.metrics != nil {
		c.metrics.Remove(c.handle.String())
	}
}
