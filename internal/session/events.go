package session

import (
	"context"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// LifecycleTopic is the watermill gochannel topic session state
// transitions are published to. Purely observational: a consumer reaches it
// through Subscribe, and nothing in the dispatch hot path does — sample
// delivery is always the synchronous, in-process path in dispatch.go,
// never routed through this bus.
const LifecycleTopic = "session.lifecycle"

// Subscribe returns the channel of lifecycle events (one message per state
// transition, its payload the new State's name) for a diagnostics consumer
// to range over.
func (s *Session) Subscribe(ctx context.Context) (<-chan *message.Message, error) {
	return s.lifecycle.Subscribe(ctx, LifecycleTopic)
}

func (s *Session) publishLifecycle(st State) {
	msg := message.NewMessage(watermill.NewUUID(), []byte(st.String()))
	if err := s.lifecycle.Publish(LifecycleTopic, msg); err != nil {
		s.logger.Warn("lifecycle publish failed", slog.Any("err", err))
	}
}
