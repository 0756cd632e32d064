package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rssagg/aggregator"
	"rssagg/server"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

// serveCmd represents the serve command
func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the aggregator over HTTP",
		Description: `Starts the HTTP server and the polling loop.

Feeds listed in the configuration file are loaded on startup. More feeds can
be added with POST /api/feeds. Every state change is streamed to clients
connected to /events as Server-Sent Events.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "listen",
				Aliases: []string{"l"},
				Usage:   "Address to listen on",
				EnvVars: []string{"RSSAGG_LISTEN"},
			},
			&cli.StringFlag{
				Name:    "allow-origins",
				Usage:   "Comma separated origins allowed by CORS",
				EnvVars: []string{"RSSAGG_ALLOW_ORIGINS"},
			},
		},
		Action: func(ctx *cli.Context) error {
			cfg := loadedConfig(ctx)
			listen := cfg.Listen
			if ctx.IsSet("listen") {
				listen = ctx.String("listen")
			}

			agg, err := newAggregator(cfg)
			if err != nil {
				return err
			}

			bc := server.NewBroadcaster()
			bc.Attach(agg.Store())

			app := server.Server(&server.ServerConfig{
				Aggregator:   agg,
				Broadcaster:  bc,
				AllowOrigins: ctx.String("allow-origins"),
			})

			runCtx, stop := signal.NotifyContext(ctx.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			errs := make(chan error, 2)

			go func() {
				log.WithFields(log.Fields{
					"listen": listen,
				}).Info("Starting server")
				if err := app.Listen(listen); err != nil {
					errs <- fmt.Errorf("server stopped: %w", err)
				}
			}()

			go func() {
				loadFeeds(runCtx, agg, cfg.Feeds)
				if err := agg.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
					errs <- fmt.Errorf("polling stopped: %w", err)
				}
			}()

			select {
			case <-runCtx.Done():
				log.Info("Gracefully shutting down...")
			case err = <-errs:
				log.WithFields(log.Fields{
					"error": err,
				}).Error("Shutting down")
			}

			stop()
			bc.Shutdown()
			if shutdownErr := app.ShutdownWithTimeout(60 * time.Second); shutdownErr != nil {
				log.Warnf("Error shutting down server: %v", shutdownErr)
			}

			return err
		},
	}
}

// loadFeeds submits the configured feeds one after another. Failures are
// logged and the remaining feeds are still loaded.
func loadFeeds(ctx context.Context, agg *aggregator.Aggregator, urls []string) {
	for _, feedURL := range urls {
		if ctx.Err() != nil {
			return
		}
		if err := agg.Submit(ctx, feedURL); err != nil {
			log.WithFields(log.Fields{
				"url":   feedURL,
				"error": err,
			}).Warn("Could not load configured feed")
		}
	}
}
