package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/zenoh-pico/pico/internal/transport"
)

// DefaultLease is the liveness window a session assumes for its peer absent
// any explicit negotiation; the lease task checks in at one third of it.
const DefaultLease = 30 * time.Second

// StartReadTask spawns the goroutine draining the transport's Recv channel
// and classifying every inbound frame. It runs until the transport closes
// its Recv channel; StopReadTask waits for that exit.
func (s *Session) StartReadTask(ctx context.Context) {
	go func() {
		defer close(s.readDone)
		s.dispatchLoop()
	}()
}

// StopReadTask waits for the read task to observe the transport closing.
// Since dispatchLoop's only exit condition is Recv() closing, this does not
// itself force that closure — callers that want an immediate stop should
// close the transport first.
func (s *Session) StopReadTask() {
	<-s.readDone
}

// StartLeaseTask spawns the goroutine sending periodic keep-alives and
// watching for lease expiry: if no activity (send or receive) is observed
// for a full lease window, the session is forced to Closing.
func (s *Session) StartLeaseTask(ctx context.Context) {
	go func() {
		defer close(s.leaseDone)
		ticker := time.NewTicker(DefaultLease / 3)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.readDone:
				return
			case <-ticker.C:
				if s.State() != StateEstablished {
					return
				}
				if time.Since(s.transport.LastActivity()) > DefaultLease {
					s.logger.Warn("lease expired, closing session")
					go s.Close()
					return
				}
				if s.transport.Kind() == transport.KindMulticast {
					if err := s.transport.SendJoin(ctx, s.zid, s.whatami, DefaultLease); err != nil {
						s.logger.Warn("join send failed", slog.Any("err", err))
					}
				} else if err := s.transport.SendKeepAlive(ctx); err != nil {
					s.logger.Warn("keep-alive send failed", slog.Any("err", err))
				}
			}
		}
	}()
}

// StopLeaseTask waits for the lease task to exit.
func (s *Session) StopLeaseTask() {
	<-s.leaseDone
}
