package sgs

import "github.com/kulaginds/sgs-go-client/internal/session"

// Channel is a handle to a channel the connection has joined. Obtain one
// from Connection.Channel or from the Context's ChannelJoined callback.
type Channel = session.Channel
