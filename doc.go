// Package sgs implements the client side of a session-oriented game
// networking protocol: login, channel messaging, and logout over a single
// length-prefixed binary connection.
//
// The engine is single-threaded and non-blocking. It never starts a
// goroutine or makes a blocking socket call itself; instead a Context
// supplies RegisterInterest/UnregisterInterest hooks so the host's own
// external poll/select/epoll loop can watch each Connection's file
// descriptor, and the host calls Connection.DoIO whenever that descriptor
// becomes ready.
//
// A typical host:
//
//	ctx := &sgs.Context{
//		RegisterInterest:   host.watch,
//		UnregisterInterest:  host.unwatch,
//		LoggedIn:           onLoggedIn,
//		ChannelRecvMsg:     onChannelMessage,
//	}
//	conn := sgs.NewConnection(ctx)
//	if err := conn.Login("game.example.com", 2502, []byte("alice"), []byte("hunter2")); err != nil {
//		log.Fatal(err)
//	}
//	// in the host's reactor loop, once conn.FD() is ready:
//	conn.DoIO(sgs.EventRead | sgs.EventWrite)
//
// A host that wants per-connection wire traffic exposed as Prometheus
// metrics can set Context.Metrics to a collector built with
// NewMetricsCollector and register it with its own registry; leaving it
// nil (the default) costs nothing beyond a nil check per frame.
package sgs
