package session

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zenoh-pico/pico/internal/domain/model"
	"github.com/zenoh-pico/pico/internal/transport"
	"github.com/zenoh-pico/pico/internal/transport/link"
	"github.com/zenoh-pico/pico/internal/wire"
)

// InfoPeersZid returns the zids of currently alive Peer/Client-role
// entities observed on a Multicast transport's scouting group. Empty on
// Unicast, which has exactly one peer and no group to enumerate.
func (s *Session) InfoPeersZid() []model.ZenohId {
	mc, ok := s.transport.(*transport.Multicast)
	if !ok {
		return nil
	}
	return mc.PeersMatching(model.WhatAmIPeer | model.WhatAmIClient)
}

// InfoRoutersZid returns the zids of currently alive Router-role entities
// observed on a Multicast transport's scouting group. Empty on Unicast.
func (s *Session) InfoRoutersZid() []model.ZenohId {
	mc, ok := s.transport.(*transport.Multicast)
	if !ok {
		return nil
	}
	return mc.PeersMatching(model.WhatAmIRouter)
}

// dialerFor resolves a link.Dialer for a locator's scheme. Scouting fans
// out across every configured locator concurrently, so a misconfigured or
// unreachable locator does not hold up the others.
func dialerFor(locator string) link.Dialer {
	switch {
	case hasScheme(locator, "tcp/"):
		return link.TCPDialer{}
	case hasScheme(locator, "ws/"):
		return link.WSDialer{}
	case hasScheme(locator, "udp/"):
		return link.UDPMulticastJoiner{}
	case hasScheme(locator, "amqp/"):
		return link.BrokerDialer{InTopic: "pico.inbound", OutTopic: "pico.outbound"}
	default:
		return nil
	}
}

func hasScheme(locator, scheme string) bool {
	return len(locator) >= len(scheme) && locator[:len(scheme)] == scheme
}

// Scout probes every locator in locators concurrently for peers matching
// what, invoking cb for every Hello received before timeout elapses. Each
// locator's probe runs as its own errgroup member so one unreachable
// locator cannot block discovery on the others.
func Scout(ctx context.Context, locators []string, what model.WhatAmI, timeout time.Duration, cb model.Closure[*model.Hello]) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	for _, locator := range locators {
		locator := locator
		g.Go(func() error {
			return scoutOne(ctx, locator, what, cb)
		})
	}
	return g.Wait()
}

func scoutOne(ctx context.Context, locator string, what model.WhatAmI, cb model.Closure[*model.Hello]) error {
	dialer := dialerFor(locator)
	if dialer == nil {
		return nil
	}
	lk, err := dialer.Dial(ctx, locator)
	if err != nil {
		return nil // unreachable locators are not fatal to the overall scout
	}
	defer lk.Close()

	probe := wire.Envelope{Kind: wire.KindScout, Scout: &wire.ScoutBody{What: what}}
	payload, err := wire.Encode(probe)
	if err != nil {
		return err
	}
	if _, err := lk.Write(payload); err != nil {
		return nil
	}

	buf := make([]byte, 4096)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		n, err := lk.Read(buf)
		if err != nil {
			return nil
		}
		env, err := wire.Decode(buf[:n])
		if err != nil || env.Kind != wire.KindHello || env.Hello == nil {
			continue
		}
		hello := &model.Hello{WhatAmI: env.Hello.WhatAmI, Zid: env.Hello.Zid, Locators: env.Hello.Locators}
		cb.Invoke(hello)
	}
}

// deliverHello is the session's own Hello sink, used when this session's
// already-open transport (typically Multicast) delivers an unsolicited
// Hello from dispatch.go rather than from a standalone Scout call.
func (s *Session) deliverHello(hello model.Hello) {
	s.helloMu.RLock()
	cb := s.helloCb
	s.helloMu.RUnlock()
	if cb == nil {
		return
	}
	s.safeInvoke("hello", func() { cb.Invoke(&hello) })
}

// OnHello registers cb to receive every unsolicited Hello this session's
// transport observes (typically Join/Hello traffic on a Multicast group),
// replacing any previously registered callback.
func (s *Session) OnHello(cb model.Closure[*model.Hello]) {
	s.helloMu.Lock()
	defer s.helloMu.Unlock()
	if s.helloCb != nil {
		s.helloCb.Release()
	}
	s.helloCb = &cb
}
