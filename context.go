package sgs

import "github.com/kulaginds/sgs-go-client/internal/metrics"

// Context holds the host-supplied event callbacks and file-descriptor
// registration hooks shared by every Connection created from it. A Context
// carries no per-connection state of its own, so a single one can be reused
// to create many connections.
//
// Every event callback receives the Connection that produced it as its
// first argument, so a host managing multiple connections from one Context
// can tell them apart without extra bookkeeping.
type Context struct {
	// RegisterInterest is called when a Connection needs its host to start
	// watching fd for the given Events on the host's external poll/select
	// loop. Though it accepts a slice of descriptors for symmetry with the
	// original batch-oriented API, this implementation always calls it
	// with exactly one.
	RegisterInterest func(conn *Connection, fds []int, events Events)
	// UnregisterInterest is the inverse of RegisterInterest.
	UnregisterInterest func(conn *Connection, fds []int, events Events)

	// ChannelJoined fires when the server adds the connection to a channel.
	ChannelJoined func(conn *Connection, channelID ID, name string)
	// ChannelLeft fires when the server removes the connection from a
	// channel.
	ChannelLeft func(conn *Connection, channelID ID)
	// ChannelRecvMsg fires when a message arrives on a joined channel.
	// fromServer is true when the message originated from the server
	// itself rather than from another client; sender is meaningless in
	// that case.
	ChannelRecvMsg func(conn *Connection, channelID, sender ID, fromServer bool, data []byte)
	// Disconnected fires when the connection is torn down by an I/O
	// failure, an unexpected peer close, or a RECONNECT_FAILURE from the
	// server. A clean logout (Logout followed
	// by LOGOUT_SUCCESS and the peer closing its end) is silent.
	Disconnected func(conn *Connection)
	// LoggedIn fires once a login request completes successfully.
	LoggedIn func(conn *Connection)
	// LoginFailed fires when the server rejects a login request, with its
	// explanatory message.
	LoginFailed func(conn *Connection, reason []byte)
	// Reconnected fires once a reconnect request completes successfully.
	Reconnected func(conn *Connection)
	// RecvMessage fires when a message arrives directly from the server,
	// outside of any channel.
	RecvMessage func(conn *Connection, data []byte)

	// Metrics, if set, receives per-connection traffic and state samples
	// for every Connection created from this Context. Register it with a
	// Prometheus registry (it implements prometheus.Collector) to expose
	// them; leave nil to skip the bookkeeping entirely.
	Metrics *metrics.Collector
}

// NewMetricsCollector creates a Collector suitable for assigning to
// Context.Metrics. prefix namespaces the metric names (e.g. "sgs") and
// constLabels are attached to every sample it produces.
func NewMetricsCollector(prefix string, constLabels map[string]string) *metrics.Collector {
	return metrics.NewCollector(prefix, constLabels)
}

func (ctx *Context) registerInterest(conn *Connection, fd int, events Events) {
	if ctx.RegisterInterest != nil {
		ctx.RegisterInterest(conn, []int{fd}, events)
	}
}

func (ctx *Context) unregisterInterest(conn *Connection, fd int, events Events) {
	if ctx.UnregisterInterest != nil {
		ctx.UnregisterInterest(conn, []int{fd}, events)
	}
}
