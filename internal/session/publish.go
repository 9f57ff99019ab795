package session

import (
	"context"

	"github.com/zenoh-pico/pico/internal/domain/model"
	"github.com/zenoh-pico/pico/internal/domain/registry"
	"github.com/zenoh-pico/pico/internal/transport"
	"github.com/zenoh-pico/pico/internal/wire"
)

// sendEnvelope encodes env and sends it over the session's transport with
// the given QoS. A full send-queue under CongestionControlDrop surfaces as
// the transport package's ErrBackpressure, returned unchanged.
func (s *Session) sendEnvelope(ctx context.Context, env wire.Envelope, qos model.QoS) error {
	payload, err := wire.Encode(env)
	if err != nil {
		return err
	}
	return s.transport.Send(ctx, transport.Message{Payload: payload, Priority: qos.Priority, QoS: qos})
}

// Put publishes value under keyExpr: the sample is sent to the peer and,
// before that, delivered synchronously to every subscription this same
// session holds that matches keyExpr, so a session never waits on its own
// wire round-trip to observe its own publication.
func (s *Session) Put(ctx context.Context, keyExprStr string, value model.Value, qos model.QoS) error {
	return s.publish(ctx, keyExprStr, value, model.SampleKindPut, qos, nil)
}

// Delete publishes a tombstone sample under keyExpr.
func (s *Session) Delete(ctx context.Context, keyExprStr string, qos model.QoS) error {
	return s.publish(ctx, keyExprStr, model.Value{}, model.SampleKindDelete, qos, nil)
}

// publish encodes and sends one sample. When pub holds a resource id (see
// DeclarePublisher), the outgoing frame addresses the peer by that alias
// plus the declared key's wildcard-bearing tail instead of the full literal
// key, mirroring the aliasing DeclareSubscriber/DeclareQueryable already do.
func (s *Session) publish(ctx context.Context, keyExprStr string, value model.Value, kind model.SampleKind, qos model.QoS, pub *registry.Publisher) error {
	full, err := canonOrError(keyExprStr)
	if err != nil {
		return err
	}

	sample := model.Sample{
		KeyExpr:  full,
		Payload:  value.Payload,
		Encoding: value.Encoding,
		Kind:     kind,
		QoS:      qos,
	}
	s.dispatchSample(sample)

	wireKey := model.FromString(full)
	if pub != nil && pub.ResourceId != 0 {
		_, tail := registry.SplitWildcardPrefix(full)
		wireKey = model.WithResourceId(pub.ResourceId, tail)
	}

	env := wire.Envelope{Kind: wire.KindData, Data: &wire.DataBody{
		KeyExpr:  wireKey,
		Payload:  value.Payload,
		Encoding: value.Encoding,
		Kind:     kind,
		QoS:      qos,
	}}
	return s.sendEnvelope(ctx, env, qos)
}

// PublisherPut publishes through a previously declared Publisher, using its
// bound key expression, resource alias (if any), and default QoS.
func (s *Session) PublisherPut(ctx context.Context, pub *registry.Publisher, value model.Value) error {
	return s.publish(ctx, pub.KeyExpr, value, model.SampleKindPut, pub.QoS, pub)
}

// PublisherDelete publishes a tombstone through a previously declared
// Publisher.
func (s *Session) PublisherDelete(ctx context.Context, pub *registry.Publisher) error {
	return s.publish(ctx, pub.KeyExpr, model.Value{}, model.SampleKindDelete, pub.QoS, pub)
}
