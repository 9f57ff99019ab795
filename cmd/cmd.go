package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/zenoh-pico/pico/config"
	"github.com/zenoh-pico/pico/internal/domain/model"
	"github.com/zenoh-pico/pico/internal/session"
)

const (
	ServiceName = "pico"
	ServiceUsage = "client-side runtime for a Zenoh pub/sub/query session"
)

var (
	version    = "0.0.0"
	commit     = "hash"
	commitDate = time.Now().String()
)

// Run builds and executes the CLI app: a long-running serve command wired
// through fx, plus one-shot scout/pub/sub/queryable/get commands that open
// a Session directly and exit once their single operation completes.
func Run() error {
	app := &cli.App{
		Name:    ServiceName,
		Usage:   ServiceUsage,
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "path to a config file (TOML/YAML/JSON)"},
			&cli.StringFlag{Name: "mode", Value: "client", Usage: "client or peer"},
			&cli.StringFlag{Name: "connect", Usage: "comma-separated list of remote locators"},
			&cli.StringFlag{Name: "listen", Usage: "comma-separated list of locators to bind"},
			&cli.StringFlag{Name: "multicast-locator", Usage: "scouting group locator"},
		},
		Commands: []*cli.Command{
			serveCmd(),
			scoutCmd(),
			pubCmd(),
			subCmd(),
			queryableCmd(),
			getCmd(),
		},
	}
	return app.Run(os.Args)
}

// loadConfig reads the shared top-level flags (present on every
// subcommand by inheritance) into a Config.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"), nil)
	if err != nil {
		return nil, err
	}
	if v := c.String("mode"); v != "" {
		cfg.Insert(config.KeyMode, v)
	}
	if v := c.String("connect"); v != "" {
		cfg.Insert(config.KeyConnect, v)
	}
	if v := c.String("listen"); v != "" {
		cfg.Insert(config.KeyListen, v)
	}
	if v := c.String("multicast-locator"); v != "" {
		cfg.Insert(config.KeyMulticastLocator, v)
	}
	return cfg, nil
}

// openSession dials the configured transport and opens a Session over it,
// the same steps session.Module's session provider performs for the serve
// command, for a one-shot CLI command to drive directly.
func openSession(ctx context.Context, cfg *config.Config) (*session.Session, error) {
	zid, err := model.NewZenohId()
	if err != nil {
		return nil, err
	}
	t, err := session.DialTransport(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("dial transport: %w", err)
	}
	s, err := session.Open(ctx, cfg, zid, t, slog.Default())
	if err != nil {
		t.Close()
		return nil, fmt.Errorf("open session: %w", err)
	}
	return s, nil
}

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run a long-lived session, keeping it alive until interrupted",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			app := NewApp(cfg)
			if err := app.Start(c.Context); err != nil {
				return err
			}

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
			<-stop

			slog.Info("shutting down")
			return app.Stop(context.Background())
		},
	}
}

func scoutCmd() *cli.Command {
	return &cli.Command{
		Name:  "scout",
		Usage: "probe configured locators for peers and print every Hello received",
		Flags: []cli.Flag{
			&cli.DurationFlag{Name: "timeout", Value: time.Second, Usage: "scouting window"},
			&cli.UintFlag{Name: "what", Value: uint(model.WhatAmIPeer | model.WhatAmIRouter), Usage: "scouting bitmask"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			locators := cfg.Connect()
			if len(locators) == 0 {
				locators = []string{cfg.GetOrDefault(config.KeyMulticastLocator, config.DefaultMulticastLocator)}
			}
			what := model.WhatAmI(c.Uint("what"))
			return session.Scout(c.Context, locators, what, c.Duration("timeout"), model.Closure[*model.Hello]{
				Call: func(h *model.Hello) {
					fmt.Printf("hello zid=%s whatami=%s locators=%v\n", h.Zid, h.WhatAmI, h.Locators)
				},
			})
		},
	}
}

func pubCmd() *cli.Command {
	return &cli.Command{
		Name:      "pub",
		Usage:     "put one value onto a key expression",
		ArgsUsage: "<key-expression> <payload>",
		Action: func(c *cli.Context) error {
			if c.NArg() < 2 {
				return fmt.Errorf("pub requires <key-expression> <payload>")
			}
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			s, err := openSession(c.Context, cfg)
			if err != nil {
				return err
			}
			defer s.Close()
			return s.Put(c.Context, c.Args().Get(0), model.Value{Payload: []byte(c.Args().Get(1))}, model.DefaultQoS)
		},
	}
}

func subCmd() *cli.Command {
	return &cli.Command{
		Name:      "sub",
		Usage:     "subscribe to a key expression and print every sample until interrupted",
		ArgsUsage: "<key-expression>",
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("sub requires <key-expression>")
			}
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			s, err := openSession(c.Context, cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			_, err = s.DeclareSubscriber(c.Context, c.Args().Get(0), model.ReliabilityReliable, model.Closure[model.Sample]{
				Call: func(sample model.Sample) {
					fmt.Printf("%s: %s\n", sample.KeyExpr, sample.Payload)
				},
			})
			if err != nil {
				return err
			}

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
			<-stop
			return nil
		},
	}
}

func queryableCmd() *cli.Command {
	return &cli.Command{
		Name:      "queryable",
		Usage:     "answer get requests against a key expression with a fixed value until interrupted",
		ArgsUsage: "<key-expression> <reply-payload>",
		Action: func(c *cli.Context) error {
			if c.NArg() < 2 {
				return fmt.Errorf("queryable requires <key-expression> <reply-payload>")
			}
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			s, err := openSession(c.Context, cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			reply := []byte(c.Args().Get(1))
			_, err = s.DeclareQueryable(c.Context, c.Args().Get(0), true, model.Closure[*model.Query]{
				Call: func(q *model.Query) {
					s.QueryReply(c.Context, q, model.Sample{KeyExpr: q.KeyExpr, Payload: reply})
				},
			})
			if err != nil {
				return err
			}

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
			<-stop
			return nil
		},
	}
}

func getCmd() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "query a selector and print every reply received before timeout",
		ArgsUsage: "<selector>",
		Flags: []cli.Flag{
			&cli.DurationFlag{Name: "timeout", Value: 500 * time.Millisecond},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("get requires <selector>")
			}
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			s, err := openSession(c.Context, cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			done := make(chan struct{})
			var n int
			err = s.Get(c.Context, c.Args().Get(0), "", nil, model.QueryTargetAll, model.ConsolidationAuto, c.Duration("timeout"),
				model.Closure[model.Reply]{
					Call: func(r model.Reply) {
						n++
						if r.Ok {
							fmt.Printf("reply #%d from %s: %s\n", n, r.Data.ReplierId, r.Data.Sample.Payload)
						} else {
							fmt.Printf("reply #%d error: %s\n", n, r.Err.Payload)
						}
					},
					Drop: func() { close(done) },
				})
			if err != nil {
				return err
			}
			select {
			case <-done:
			case <-time.After(c.Duration("timeout") + time.Second):
			}
			if n == 0 {
				fmt.Println("no replies")
			}
			return nil
		},
	}
}
