// Command sgsclient is a minimal example host: it loads a connection
// profile, logs in to a server, joins whatever channels the server puts it
// in, and prints every message it receives until the connection drops or
// it is interrupted. It exists to demonstrate wiring internal/config,
// internal/logging, and internal/metrics around the sgs package's
// callback-driven Connection — not to be the full chat client the original
// project shipped (that CLI is out of this repo's scope).
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/kulaginds/sgs-go-client"
	"github.com/kulaginds/sgs-go-client/internal/config"
	"github.com/kulaginds/sgs-go-client/internal/logging"
)

func main() {
	host := flag.String("host", "", "server host (overrides SGS_HOST)")
	port := flag.String("port", "", "server port (overrides SGS_PORT)")
	logLevel := flag.String("log-level", "", "log level: debug, info, warn, error (overrides LOG_LEVEL)")
	configFile := flag.String("config", "", "optional YAML connection profile")
	user := flag.String("user", "guest", "login name")
	pass := flag.String("pass", "", "login password")
	flag.Parse()

	cfg, err := config.LoadWithOverrides(config.LoadOptions{
		Host:       *host,
		Port:       *port,
		LogLevel:   *logLevel,
		ConfigFile: *configFile,
	})
	if err != nil {
		log.Fatalf("sgsclient: load config: %v", err)
	}

	logging.SetLevelFromString(cfg.Logging.Level)

	if err := run(cfg, *user, *pass); err != nil {
		log.Fatalf("sgsclient: %v", err)
	}
}

// run wires a reactor around a single Connection. sgs never polls a
// descriptor itself; register/unregister just update the single pollfd
// this loop watches, since one process here drives exactly one session.
func run(cfg *config.Config, user, pass string) error {
	var pfd unix.PollFd
	done := make(chan struct{})
	var closeDone sync.Once
	stop := func() { closeDone.Do(func() { close(done) }) }

	ctx := &sgs.Context{
		Metrics: sgs.NewMetricsCollector("sgsclient", nil),

		RegisterInterest: func(_ *sgs.Connection, fds []int, events sgs.Events) {
			pfd.Fd = int32(fds[0])
			pfd.Events |= pollEventsFor(events)
		},
		UnregisterInterest: func(_ *sgs.Connection, fds []int, events sgs.Events) {
			pfd.Events &^= pollEventsFor(events)
		},

		LoggedIn: func(conn *sgs.Connection) {
			logging.Info("logged in (state=%s)", conn.State())
		},
		LoginFailed: func(_ *sgs.Connection, reason []byte) {
			logging.Error("login failed: %s", string(reason))
			stop()
		},
		Disconnected: func(_ *sgs.Connection) {
			logging.Info("disconnected")
			stop()
		},
		RecvMessage: func(_ *sgs.Connection, data []byte) {
			logging.Info("server: %s", string(data))
		},
		ChannelJoined: func(_ *sgs.Connection, id sgs.ID, name string) {
			logging.Info("joined channel %q (%s)", name, id)
		},
		ChannelLeft: func(_ *sgs.Connection, id sgs.ID) {
			logging.Info("left channel %s", id)
		},
		ChannelRecvMsg: func(_ *sgs.Connection, channelID, sender sgs.ID, fromServer bool, data []byte) {
			if fromServer {
				logging.Info("[%s] server: %s", channelID, string(data))
				return
			}
			logging.Info("[%s] %s: %s", channelID, sender, string(data))
		},
	}

	conn := sgs.NewConnection(ctx)
	if err := conn.Login(cfg.Connection.Host, cfg.Connection.Port, []byte(user), []byte(pass)); err != nil {
		return fmt.Errorf("login: %w", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-done:
			return nil
		case <-sigCh:
			return conn.Logout(true)
		default:
		}

		fds := []unix.PollFd{pfd}
		n, err := unix.Poll(fds, 250)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return fmt.Errorf("poll: %w", err)
		}
		if n == 0 {
			continue
		}

		var events sgs.Events
		if fds[0].Revents&unix.POLLIN != 0 {
			events |= sgs.EventRead
		}
		if fds[0].Revents&unix.POLLOUT != 0 {
			events |= sgs.EventWrite
		}
		if fds[0].Revents&(unix.POLLERR|unix.POLLHUP) != 0 {
			events |= sgs.EventError
		}
		if events != 0 {
			if err := conn.DoIO(events); err != nil {
				logging.Warn("do_io: %v", err)
			}
		}
	}
}

func pollEventsFor(events sgs.Events) int16 {
	var bits int16
	if events.Has(sgs.EventRead) {
		bits |= unix.POLLIN
	}
	if events.Has(sgs.EventWrite) {
		bits |= unix.POLLOUT
	}
	return bits
}
