package session

import (
	"context"

	"github.com/zenoh-pico/pico/internal/domain/keyexpr"
	"github.com/zenoh-pico/pico/internal/domain/model"
	"github.com/zenoh-pico/pico/internal/domain/registry"
	"github.com/zenoh-pico/pico/internal/status"
	"github.com/zenoh-pico/pico/internal/transport"
	"github.com/zenoh-pico/pico/internal/wire"
)

// canonOrError canonizes a user-supplied key expression string, rejecting
// it outright if it carries a real syntax violation Canonize cannot fix by
// itself (a lone "$" not followed by "*", "*" adjacent to "**", and so on).
func canonOrError(s string) (string, error) {
	canon, before := keyexpr.Canonize(s)
	if before != keyexpr.StatusOK && keyexpr.IsCanon(canon) != keyexpr.StatusOK {
		return "", status.New(status.KindInput, "key expression is not canon: "+before.Error())
	}
	return canon, nil
}

// autoDeclareResource declares a resource id for the wildcard-free leading
// prefix of full, so the wire traffic this declare generates references
// the stable part of the expression by a 16-bit alias instead of repeating
// it on every message. The wildcard-bearing tail, if any, is returned
// unchanged for the caller to match against.
func (s *Session) autoDeclareResource(full string) (id uint16, tail string, err error) {
	prefix, tail := registry.SplitWildcardPrefix(full)
	id, err = s.resources.Declare(prefix)
	if err != nil {
		return 0, "", err
	}
	return id, tail, nil
}

// DeclareSubscriber registers cb to be invoked for every sample whose key
// expression intersects keyExpr, and announces the subscription (and its
// auto-declared resource alias) to the peer.
func (s *Session) DeclareSubscriber(ctx context.Context, keyExprStr string, reliability model.Reliability, cb model.Closure[model.Sample]) (*registry.Subscription, error) {
	return s.declareSubscriber(ctx, keyExprStr, reliability, model.SubModePush, cb)
}

// DeclarePullSubscriber registers cb to be invoked only when SubscriberPull
// is called: matching samples are buffered (the latest overwriting any
// earlier, un-pulled one) rather than delivered as they arrive.
func (s *Session) DeclarePullSubscriber(ctx context.Context, keyExprStr string, reliability model.Reliability, cb model.Closure[model.Sample]) (*registry.Subscription, error) {
	return s.declareSubscriber(ctx, keyExprStr, reliability, model.SubModePull, cb)
}

func (s *Session) declareSubscriber(ctx context.Context, keyExprStr string, reliability model.Reliability, mode model.SubMode, cb model.Closure[model.Sample]) (*registry.Subscription, error) {
	full, err := canonOrError(keyExprStr)
	if err != nil {
		return nil, err
	}
	sub := s.subs.DeclareWithMode(full, reliability, mode, cb)

	id, tail, err := s.autoDeclareResource(full)
	if err != nil {
		s.subs.Undeclare(sub.ID)
		return nil, err
	}
	env := wire.Envelope{Kind: wire.KindDeclare, Declare: &wire.DeclareBody{
		Entity:      wire.EntitySubscriber,
		ResourceId:  id,
		KeyExpr:     model.WithResourceId(id, tail),
		Reliability: reliability,
	}}
	if err := s.sendEnvelope(ctx, env, model.DefaultQoS); err != nil {
		s.subs.Undeclare(sub.ID)
		return nil, err
	}
	return sub, nil
}

// SubscriberPull drains a pull subscription's buffered sample, invoking its
// callback if one is waiting. Reports whether a sample was delivered; a
// no-op returning false on a push subscription or an empty buffer.
func (s *Session) SubscriberPull(sub *registry.Subscription) bool {
	var delivered bool
	s.safeInvoke("subscriberPull", func() { delivered = sub.Pull() })
	return delivered
}

// UndeclareSubscriber removes sub's callback (releasing it exactly once)
// and announces the removal to the peer.
func (s *Session) UndeclareSubscriber(ctx context.Context, sub *registry.Subscription) error {
	s.subs.Undeclare(sub.ID)
	env := wire.Envelope{Kind: wire.KindUndeclare, Undeclare: &wire.UndeclareBody{
		Entity: wire.EntitySubscriber,
	}}
	return s.sendEnvelope(ctx, env, model.DefaultQoS)
}

// DeclareQueryable registers cb to answer queries whose selector intersects
// keyExpr. complete advertises whether this queryable alone can answer the
// full namespace it covers (used by QueryTargetAllComplete).
func (s *Session) DeclareQueryable(ctx context.Context, keyExprStr string, complete bool, cb model.Closure[*model.Query]) (*registry.Queryable, error) {
	full, err := canonOrError(keyExprStr)
	if err != nil {
		return nil, err
	}
	q := s.queryables.Declare(full, complete, cb)

	id, tail, err := s.autoDeclareResource(full)
	if err != nil {
		s.queryables.Undeclare(q.ID)
		return nil, err
	}
	env := wire.Envelope{Kind: wire.KindDeclare, Declare: &wire.DeclareBody{
		Entity:     wire.EntityQueryable,
		ResourceId: id,
		KeyExpr:    model.WithResourceId(id, tail),
		Complete:   complete,
	}}
	if err := s.sendEnvelope(ctx, env, model.DefaultQoS); err != nil {
		s.queryables.Undeclare(q.ID)
		return nil, err
	}
	return q, nil
}

// UndeclareQueryable removes q's callback and announces the removal.
func (s *Session) UndeclareQueryable(ctx context.Context, q *registry.Queryable) error {
	s.queryables.Undeclare(q.ID)
	env := wire.Envelope{Kind: wire.KindUndeclare, Undeclare: &wire.UndeclareBody{
		Entity: wire.EntityQueryable,
	}}
	return s.sendEnvelope(ctx, env, model.DefaultQoS)
}

// DeclarePublisher registers a publisher bound to keyExpr with the given
// default QoS, for use with publish.go's Publisher-scoped Put/Delete. Over a
// Unicast transport it also auto-declares a resource alias for keyExpr's
// wildcard-free prefix, the same resource the peer learns about via a
// resource-only Declare, so every Put/Delete this publisher issues can
// address the peer by a 16-bit id instead of repeating the literal key.
// Multicast carries no per-peer resource negotiation, so on that transport
// the publisher is left unaliased.
func (s *Session) DeclarePublisher(ctx context.Context, keyExprStr string, qos model.QoS) (*registry.Publisher, error) {
	full, err := canonOrError(keyExprStr)
	if err != nil {
		return nil, err
	}
	pub := s.pubs.Declare(full, qos)

	if s.transport.Kind() != transport.KindUnicast {
		return pub, nil
	}

	id, _, err := s.autoDeclareResource(full)
	if err != nil {
		s.pubs.Undeclare(pub.ID)
		return nil, err
	}
	prefix, _ := s.resources.Lookup(id)
	env := wire.Envelope{Kind: wire.KindDeclare, Declare: &wire.DeclareBody{
		Entity:     wire.EntityResource,
		ResourceId: id,
		KeyExpr:    model.FromString(prefix),
	}}
	if err := s.sendEnvelope(ctx, env, model.DefaultQoS); err != nil {
		s.resources.Undeclare(id)
		s.pubs.Undeclare(pub.ID)
		return nil, err
	}
	pub.ResourceId = id
	return pub, nil
}

// UndeclarePublisher removes pub. Publishers carry no closure, so no
// release step is needed.
func (s *Session) UndeclarePublisher(pub *registry.Publisher) {
	s.pubs.Undeclare(pub.ID)
}

// DeclareKeyExpr pre-declares a resource alias for keyExpr without binding
// it to a subscriber, queryable, or publisher, and announces it to the peer
// immediately. The returned handle carries the alias id; Session.Put and
// Session.Get take a key-expression string and send it literally, so they
// do not address the peer through this alias.
// Like DeclarePublisher, resource aliasing is a Unicast-only concern:
// Multicast carries no per-peer resource negotiation, so on that transport
// DeclareKeyExpr returns an id-less handle and callers fall back to the
// literal key expression.
func (s *Session) DeclareKeyExpr(ctx context.Context, keyExprStr string) (*registry.DeclaredKeyExpr, error) {
	full, err := canonOrError(keyExprStr)
	if err != nil {
		return nil, err
	}
	if s.transport.Kind() != transport.KindUnicast {
		return &registry.DeclaredKeyExpr{KeyExpr: full}, nil
	}

	id, _, err := s.autoDeclareResource(full)
	if err != nil {
		return nil, err
	}
	prefix, _ := s.resources.Lookup(id)
	env := wire.Envelope{Kind: wire.KindDeclare, Declare: &wire.DeclareBody{
		Entity:     wire.EntityResource,
		ResourceId: id,
		KeyExpr:    model.FromString(prefix),
	}}
	if err := s.sendEnvelope(ctx, env, model.DefaultQoS); err != nil {
		s.resources.Undeclare(id)
		return nil, err
	}
	return &registry.DeclaredKeyExpr{ID: id, KeyExpr: full}, nil
}

// UndeclareKeyExpr releases a resource alias registered by DeclareKeyExpr
// and announces the removal to the peer. A no-op if keyExpr was never
// aliased (a Multicast-transport handle, which carries no resource id).
func (s *Session) UndeclareKeyExpr(ctx context.Context, dke *registry.DeclaredKeyExpr) error {
	if dke.ID == 0 {
		return nil
	}
	s.resources.Undeclare(dke.ID)
	env := wire.Envelope{Kind: wire.KindUndeclare, Undeclare: &wire.UndeclareBody{
		Entity:     wire.EntityResource,
		ResourceId: dke.ID,
	}}
	return s.sendEnvelope(ctx, env, model.DefaultQoS)
}
