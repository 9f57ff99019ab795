package diag

import (
	"context"
	"log/slog"
	"net"
	"net/http"

	"go.uber.org/fx"

	"github.com/zenoh-pico/pico/config"
	"github.com/zenoh-pico/pico/internal/session"
)

// Module starts the diagnostics HTTP server alongside the session built by
// session.Module, serving it until OnStop.
var Module = fx.Module("diag",
	fx.Invoke(func(lc fx.Lifecycle, sess *session.Session, cfg *config.Config, logger *slog.Logger) {
		addr := cfg.GetOrDefault(config.KeyDiagAddr, config.DefaultAddr)
		srv := &http.Server{Addr: addr, Handler: NewServer(sess)}

		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				ln, err := net.Listen("tcp", addr)
				if err != nil {
					return err
				}
				go func() {
					if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
						logger.Error("diag server error", slog.Any("err", err))
					}
				}()
				logger.Info("diag server listening", slog.String("addr", addr))
				return nil
			},
			OnStop: func(ctx context.Context) error {
				return srv.Shutdown(ctx)
			},
		})
	}),
)
