package cmd

import (
	"log/slog"
	"os"

	"go.uber.org/fx"

	"github.com/zenoh-pico/pico/config"
	"github.com/zenoh-pico/pico/internal/diag"
	"github.com/zenoh-pico/pico/internal/session"
)

// ProvideLogger builds the slog.Logger every module in the app logs
// through, text-formatted for terminal use.
func ProvideLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	if cfg.GetOrDefault(config.KeyMode, "client") == "peer" {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NewApp assembles the serve command's fx.App: the session lifecycle
// module plus the diagnostics surface exposing it over HTTP.
func NewApp(cfg *config.Config) *fx.App {
	return fx.New(
		fx.Provide(
			func() *config.Config { return cfg },
			ProvideLogger,
		),
		session.Module,
		diag.Module,
	)
}
