package session

import (
	"context"
	"fmt"
	"log/slog"

	"go.uber.org/fx"

	"github.com/zenoh-pico/pico/config"
	"github.com/zenoh-pico/pico/internal/domain/model"
	"github.com/zenoh-pico/pico/internal/transport"
	"github.com/zenoh-pico/pico/internal/transport/codec"
	"github.com/zenoh-pico/pico/internal/transport/link"
)

// Module wires the session package into the long-running serve command:
// it provides a *Session into the dependency graph (dialing the
// configured transport and opening it eagerly) and registers an
// fx.Lifecycle hook that releases it on OnStop — the same shape the
// teacher's amqp.Module uses for router.Run/router.Close, except the
// "run" side of a Session happens at construction rather than OnStart,
// since other modules (diagnostics) need the live *Session to build their
// own providers against.
var Module = fx.Module("session",
	fx.Provide(newZenohId, newSession),
	fx.Invoke(func(lc fx.Lifecycle, s *Session) {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return s.Release()
			},
		})
	}),
)

func newSession(cfg *config.Config, zid model.ZenohId, logger *slog.Logger) (*Session, error) {
	ctx := context.Background()
	t, err := DialTransport(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("session: dial transport: %w", err)
	}
	s, err := Open(ctx, cfg, zid, t, logger)
	if err != nil {
		t.Close()
		return nil, fmt.Errorf("session: open: %w", err)
	}
	return s, nil
}

func newZenohId(cfg *config.Config) (model.ZenohId, error) {
	if hexID, ok := cfg.Get(config.KeySessionZID); ok {
		return model.ParseZenohId(hexID)
	}
	return model.NewZenohId()
}

// DialTransport builds the Transport a session should open over: the first
// reachable CONNECT locator as a Unicast link, falling back to the
// scouting MULTICAST_LOCATOR group when none are configured or reachable.
// Shared by newSession above (the serve command's fx provider) and by the
// one-shot CLI commands (pub, sub, get, queryable), which drive a Session
// directly without fx.
func DialTransport(ctx context.Context, cfg *config.Config) (transport.Transport, error) {
	cd := codec.VarintLengthCodec{}

	for _, locator := range cfg.Connect() {
		dialer := dialerFor(locator)
		if dialer == nil {
			continue
		}
		lk, err := dialer.Dial(ctx, locator)
		if err != nil {
			continue
		}
		return transport.NewUnicast(lk, cd, transport.DefaultQueueCapacity), nil
	}

	mcastLocator := cfg.GetOrDefault(config.KeyMulticastLocator, config.DefaultMulticastLocator)
	joiner := link.UDPMulticastJoiner{}
	lk, err := joiner.Join(ctx, mcastLocator)
	if err != nil {
		return nil, fmt.Errorf("no reachable connect locator and multicast join failed: %w", err)
	}
	return transport.NewMulticast(lk, cd, transport.DefaultQueueCapacity, nil), nil
}
