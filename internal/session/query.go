package session

import (
	"context"
	"time"

	"github.com/zenoh-pico/pico/internal/domain/model"
	"github.com/zenoh-pico/pico/internal/domain/registry"
	"github.com/zenoh-pico/pico/internal/wire"
)

// Get issues a query against selector, consolidating replies per mode
// (resolving ConsolidationAuto against selector's parameters the same way
// the wire path does) and delivering them to cb until timeout elapses, at
// which point the pending query is finished (flushing any buffered Latest
// replies) and forgotten.
//
// Matching queryables declared on this same session answer synchronously,
// in the same call, before the query is also sent to the peer — the local
// short-circuit publish.go's Put already applies to samples applies here
// too.
func (s *Session) Get(ctx context.Context, selector string, parameters string, value *model.Value, target model.QueryTarget, mode model.ConsolidationMode, timeout time.Duration, cb model.Closure[model.Reply]) error {
	full, err := canonOrError(selector)
	if err != nil {
		return err
	}

	token, err := model.NewZenohId()
	if err != nil {
		return err
	}
	resolved := registry.ResolveConsolidation(mode, parameters)
	pq := s.pending.Register(token, resolved, cb)

	q := model.NewQuery(full, parameters, value, target, resolved, s.zid, token)
	s.deliverQuery(q)

	env := wire.Envelope{Kind: wire.KindQuery, Query: &wire.QueryBody{
		Token:         token,
		ReplierId:     s.zid,
		KeyExpr:       model.FromString(full),
		Parameters:    parameters,
		Value:         value,
		Target:        target,
		Consolidation: resolved,
	}}
	if err := s.sendEnvelope(ctx, env, model.DefaultQoS); err != nil {
		pq.Finish()
		s.pending.Remove(token)
		return err
	}

	go func() {
		t := time.NewTimer(timeout)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
		}
		pq.Finish()
		s.pending.Remove(token)
	}()
	return nil
}

// deliverQuery invokes every declared queryable whose key expression
// intersects q's selector, synchronously and in registration order.
func (s *Session) deliverQuery(q *model.Query) {
	s.queryables.MatchingQueryables(q.KeyExpr, func(qbl *registry.Queryable) {
		s.safeInvoke("queryable", func() { qbl.Deliver(q) })
	})
}

// QueryReply sends one successful reply to q. If q originated from this
// same session's Get (the common case for a purely local round trip, and
// always the case for a session that is not acting as a queryable for a
// remote peer), it is delivered directly to the pending query's
// consolidation accumulator instead of round-tripping through the wire.
func (s *Session) QueryReply(ctx context.Context, q *model.Query, sample model.Sample) error {
	reply := model.Reply{Ok: true, Data: model.ReplyData{Sample: sample, ReplierId: s.zid}}
	if pq, ok := s.pending.Lookup(q.Token()); ok {
		s.safeInvoke("pendingQueryReply", func() { pq.HandleReply(reply) })
		return nil
	}

	env := wire.Envelope{Kind: wire.KindReply, Reply: &wire.ReplyBody{
		Token:     q.Token(),
		Ok:        true,
		ReplierId: s.zid,
		Data: wire.DataBody{
			KeyExpr:   model.FromString(sample.KeyExpr),
			Payload:   sample.Payload,
			Encoding:  sample.Encoding,
			Kind:      sample.Kind,
			Timestamp: sample.Timestamp,
			QoS:       sample.QoS,
		},
	}}
	return s.sendEnvelope(ctx, env, sample.QoS)
}

// QueryReplyErr sends an error reply to q.
func (s *Session) QueryReplyErr(ctx context.Context, q *model.Query, errValue model.Value) error {
	if pq, ok := s.pending.Lookup(q.Token()); ok {
		reply := model.Reply{Ok: false, Err: errValue}
		s.safeInvoke("pendingQueryReply", func() { pq.HandleReply(reply) })
		return nil
	}
	env := wire.Envelope{Kind: wire.KindReply, Reply: &wire.ReplyBody{
		Token: q.Token(),
		Ok:    false,
		Err:   errValue,
	}}
	return s.sendEnvelope(ctx, env, model.DefaultQoS)
}
