// Package session implements the client-side session/protocol engine: the
// lifecycle state machine, key-expression-addressed dispatch, the entity
// registries a user declares against, and the pending-query table a get
// drives. A Session owns exactly one Transport and never forwards between
// sessions it owns — routing between peers is a router's job, out of scope
// for this engine.
package session

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/zenoh-pico/pico/config"
	"github.com/zenoh-pico/pico/internal/domain/model"
	"github.com/zenoh-pico/pico/internal/domain/registry"
	"github.com/zenoh-pico/pico/internal/status"
	"github.com/zenoh-pico/pico/internal/transport"
)

// ProtocolErrorBudget is the number of Protocol-kind dispatch errors a
// session tolerates before forcing itself to Closing, per the taxonomy's
// "repeated protocol errors" escalation rule.
const ProtocolErrorBudget = 8

// Session is the engine's central object: one open connection to a peer (or
// to a multicast scouting group), the registries declared against it, and
// the background tasks keeping it alive.
type Session struct {
	zid     model.ZenohId
	cfg     *config.Config
	logger  *slog.Logger
	whatami model.WhatAmI

	transport transport.Transport

	resources  *registry.ResourceTable
	subs       *registry.SubscriptionTable
	queryables *registry.QueryableTable
	pubs       *registry.PublisherTable
	pending    *registry.PendingQueryTable

	state int32 // atomic State
	refs  int32 // atomic refcount; Open() starts at 1

	protocolErrors int32 // atomic

	lifecycle *gochannel.GoChannel

	closeOnce sync.Once
	readDone  chan struct{}
	leaseDone chan struct{}

	helloMu sync.RWMutex
	helloCb *model.Closure[*model.Hello]
}

// Open builds a Session around an already-connected Transport and starts
// its read and lease tasks. The returned Session holds one reference; the
// caller releases it with Close.
func Open(ctx context.Context, cfg *config.Config, zid model.ZenohId, t transport.Transport, logger *slog.Logger) (*Session, error) {
	if cfg != nil && cfg.GetOrDefault(config.KeyMode, "client") == "router" {
		return nil, status.New(status.KindInput, "router mode is not supported by this engine")
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("zid", zid.String()), slog.String("transport", t.Kind().String()))

	s := &Session{
		zid:        zid,
		cfg:        cfg,
		logger:     logger,
		whatami:    modeFromConfig(cfg),
		transport:  t,
		resources:  registry.NewResourceTable(),
		subs:       registry.NewSubscriptionTable(),
		queryables: registry.NewQueryableTable(),
		pubs:       registry.NewPublisherTable(),
		pending:    registry.NewPendingQueryTable(),
		refs:       1,
		readDone:   make(chan struct{}),
		leaseDone:  make(chan struct{}),
		lifecycle: gochannel.NewGoChannel(
			gochannel.Config{},
			watermill.NopLogger{},
		),
	}
	atomic.StoreInt32(&s.state, int32(StateOpening))
	s.publishLifecycle(StateOpening)

	if !s.transition(StateOpening, StateEstablished) {
		return nil, status.New(status.KindProtocol, "session failed to reach established state")
	}
	s.publishLifecycle(StateEstablished)

	s.StartReadTask(ctx)
	s.StartLeaseTask(ctx)

	logger.Info("session established")
	return s, nil
}

// Zid returns the session's local identifier.
func (s *Session) Zid() model.ZenohId { return s.zid }

// whatAmI returns the role this session advertises to scouting peers.
func (s *Session) whatAmI() model.WhatAmI { return s.whatami }

func modeFromConfig(cfg *config.Config) model.WhatAmI {
	if cfg == nil {
		return model.WhatAmIClient
	}
	switch cfg.GetOrDefault(config.KeyMode, "client") {
	case "peer":
		return model.WhatAmIPeer
	default:
		return model.WhatAmIClient
	}
}

// Retain increments the session's reference count, mirroring the
// ownership/refcount discipline entities hold on their owning session.
func (s *Session) Retain() {
	atomic.AddInt32(&s.refs, 1)
}

// Release decrements the reference count; the last release tears the
// session down.
func (s *Session) Release() error {
	if atomic.AddInt32(&s.refs, -1) > 0 {
		return nil
	}
	return s.Close()
}

// Close tears the session down: closes the underlying transport, stops the
// read and lease tasks, and undeclares every entity (releasing every user
// closure exactly once). Idempotent. Pending queries are not released here;
// each is finished, and its drop run, when its own Get timeout or context
// ends.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.forceClosing()
		s.publishLifecycle(StateClosing)

		// Closing the transport first unblocks both background tasks:
		// dispatchLoop exits once Recv() closes, and the lease task's
		// select already watches readDone.
		err = s.transport.Close()
		s.StopReadTask()
		s.StopLeaseTask()

		s.subs.CloseAll()
		s.queryables.CloseAll()
		s.pubs.CloseAll()

		atomic.StoreInt32(&s.state, int32(StateClosed))
		s.publishLifecycle(StateClosed)
		s.lifecycle.Close()
		s.logger.Info("session closed")
	})
	return err
}

// noteProtocolError increments the session's protocol-error counter and
// forces Closing once ProtocolErrorBudget is exceeded.
func (s *Session) noteProtocolError(cause error) {
	s.logger.Warn("protocol error", slog.Any("err", cause))
	if atomic.AddInt32(&s.protocolErrors, 1) > ProtocolErrorBudget {
		s.logger.Error("protocol error budget exceeded, closing session")
		go s.Close()
	}
}

// safeInvoke calls fn, recovering and logging any panic raised by user
// callback code so a single misbehaving callback cannot take down the
// session's dispatch loop.
func (s *Session) safeInvoke(label string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("callback panic recovered",
				slog.String("callback", label),
				slog.Any("panic", r),
			)
		}
	}()
	fn()
}
