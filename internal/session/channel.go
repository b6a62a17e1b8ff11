package session

import "github.com/kulaginds/sgs-go-client/internal/sgsid"

// Channel is a thin handle for a joined broadcast channel. It holds no send
// state of its own; every operation delegates back to the owning Session,
// which is the sole place sequence numbers and the wire encoding live.
type Channel struct {
	id      sgsid.ID
	name    string
	session *Session
}

// ID returns the channel's server-assigned id.
func (c *Channel) ID() sgsid.ID { return c.id }

// Name returns the channel's human-readable name.
func (c *Channel) Name() string { return c.name }

// Send broadcasts data on the channel, optionally restricted to a set of
// recipients. A nil or empty recipients slice means "all members".
func (c *Channel) Send(recipients []sgsid.ID, data []byte) error {
	return c.session.ChannelSend(c.id, recipients, data)
}
