package cmd

import (
	"fmt"
	"os"

	"rssagg/aggregator"
	"rssagg/config"
	"rssagg/feeds"
	"rssagg/models"
	"rssagg/proxy"
	"rssagg/store"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

const configKey = "config"

func RootApp() *cli.App {
	return &cli.App{
		Name:     "rssagg",
		Usage:    "An RSS aggregator that keeps your feeds up to date",
		Metadata: map[string]interface{}{},
		Description: `Tracks a set of RSS feeds and keeps their posts up to date.

		Feeds are downloaded through a CORS proxy, parsed and merged into an
		observable state. Every few seconds all tracked feeds are fetched again
		and posts with titles not seen before are added to the top of the list.

		Flags can generally be set via environment variables, e.g.:

		--config => RSSAGG_CONFIG=rssagg.toml
		--listen => RSSAGG_LISTEN=:8080
		`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the TOML configuration file",
				EnvVars: []string{"RSSAGG_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level: trace, debug, info, warn or error",
				EnvVars: []string{"RSSAGG_LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "Log format: text or json",
				EnvVars: []string{"RSSAGG_LOG_FORMAT"},
			},
			&cli.StringFlag{
				Name:    "proxy",
				Usage:   "Base URL of the CORS proxy",
				EnvVars: []string{"RSSAGG_PROXY"},
			},
			&cli.BoolFlag{
				Name:    "direct",
				Usage:   "Download feeds directly instead of through the proxy",
				EnvVars: []string{"RSSAGG_DIRECT"},
			},
			&cli.DurationFlag{
				Name:    "poll-interval",
				Usage:   "Wait between two poll cycles",
				EnvVars: []string{"RSSAGG_POLL_INTERVAL"},
			},
		},
		Before: func(ctx *cli.Context) error {
			cfg, err := config.LoadConfig(ctx.String("config"))
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			applyFlags(ctx, cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := configureLogging(cfg.Log); err != nil {
				return err
			}
			ctx.App.Metadata[configKey] = cfg
			return nil
		},
		Commands: []*cli.Command{
			serveCmd(),
			watchCmd(),
			fetchCmd(),
		},
		Action: func(ctx *cli.Context) error {
			// Show help if no command is specified
			return ctx.App.Run([]string{"", "help"})
		},
	}
}

func Execute() {
	if err := RootApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func applyFlags(ctx *cli.Context, cfg *config.TomlConfig) {
	if ctx.IsSet("log-level") {
		cfg.Log.Level = ctx.String("log-level")
	}
	if ctx.IsSet("log-format") {
		cfg.Log.Format = ctx.String("log-format")
	}
	if ctx.IsSet("proxy") {
		cfg.Proxy = ctx.String("proxy")
	}
	if ctx.Bool("direct") {
		cfg.Proxy = ""
	}
	if ctx.IsSet("poll-interval") {
		cfg.PollInterval = ctx.Duration("poll-interval")
	}
}

func configureLogging(settings config.TomlLog) error {
	level, err := log.ParseLevel(settings.Level)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	log.SetLevel(level)

	if settings.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	return nil
}

func loadedConfig(ctx *cli.Context) *config.TomlConfig {
	if cfg, ok := ctx.App.Metadata[configKey].(*config.TomlConfig); ok {
		return cfg
	}
	return config.Default()
}

// newAggregator wires a fresh store, the proxy client and the engine from
// the loaded configuration
func newAggregator(cfg *config.TomlConfig) (*aggregator.Aggregator, error) {
	ids, err := feeds.NewMinter(cfg.IDs)
	if err != nil {
		return nil, err
	}

	client := proxy.NewClient(proxy.Config{
		Base:      cfg.Proxy,
		UserAgent: cfg.UserAgent,
	})

	s := store.New(models.NewState())
	return aggregator.New(s, client, aggregator.Config{
		LoadTimeout:  cfg.LoadTimeout,
		PollDelay:    cfg.PollDelay,
		PollInterval: cfg.PollInterval,
	}, aggregator.WithMinter(ids)), nil
}
