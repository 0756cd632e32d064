package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"rssagg/aggregator"
	"rssagg/parser"
	"rssagg/proxy"

	"github.com/urfave/cli/v2"
)

// fetchCmd represents the fetch command
func fetchCmd() *cli.Command {
	return &cli.Command{
		Name:      "fetch",
		Usage:     "Download and parse a single feed",
		ArgsUsage: "<feed url>",
		Description: `Downloads one feed through the proxy, parses it and prints the channel
with all of its items as JSON. Nothing is tracked or polled.

Exits with an error naming the failure kind (noRss, network or unknown)
when the feed cannot be loaded.`,
		Action: func(ctx *cli.Context) error {
			cfg := loadedConfig(ctx)

			feedURL := aggregator.NormalizeURL(ctx.Args().First())
			if key := aggregator.Validate(feedURL, nil); key != "" {
				return fmt.Errorf("invalid feed url %q: %s", feedURL, key)
			}

			fetchCtx, cancel := context.WithTimeout(ctx.Context, cfg.LoadTimeout)
			defer cancel()

			client := proxy.NewClient(proxy.Config{Base: cfg.Proxy, UserAgent: cfg.UserAgent})
			doc, err := fetchDocument(fetchCtx, client, feedURL)
			if err != nil {
				return fmt.Errorf("%s: %w", aggregator.Classify(err), err)
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(doc)
		},
	}
}

func fetchDocument(ctx context.Context, fetcher aggregator.Fetcher, feedURL string) (*parser.Document, error) {
	raw, err := fetcher.Fetch(ctx, feedURL)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("timed out fetching %s: %w", feedURL, err)
		}
		return nil, err
	}
	return parser.Parse(raw)
}
