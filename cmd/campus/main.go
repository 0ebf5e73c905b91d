// Command campus is a terminal client for the university portal: it lists
// departments, clubs, buildings, infos and news, and can serve the same
// data over a local HTTP API.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/pevans/campus/app"
	"github.com/pevans/campus/cache"
	"github.com/pevans/campus/config"
	"github.com/pevans/campus/fetcher"
	"github.com/pevans/campus/logger"
	"github.com/pevans/campus/newsfeed"
	"github.com/pevans/campus/portalapi"
	"github.com/pevans/campus/scraper"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// cli holds global flags and the runtime built from them.
type cli struct {
	configPath string
	debug      bool
	format     string
	newsPages  int

	cfg   config.Config
	log   *zap.Logger
	store *cache.Store
	app   *app.App
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "campus",
		Short:         "University portal client",
		Long:          `campus browses the university portal and news from the terminal.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return c.close()
		},
	}

	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default is ~/.campus/config.yaml)")
	root.PersistentFlags().BoolVar(&c.debug, "debug", false, "enable debug logging")
	root.PersistentFlags().StringVarP(&c.format, "output", "o", formatTable, "output format: table, json or compact")

	root.AddCommand(
		newListCmd(c),
		newDepartmentCmd(c),
		newClubCmd(c),
		newBuildingCmd(c),
		newInfoCmd(c),
		newNoticesCmd(c),
		newCalendarCmd(c),
		newNewsCmd(c),
		newVersionCmd(c),
		newCacheCmd(c),
		newServeCmd(c),
	)
	return root
}

// setup loads configuration and wires the application.
func (c *cli) setup() error {
	if err := validateFormat(c.format); err != nil {
		return err
	}

	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	if c.newsPages > 0 {
		cfg.Scrape.Pages = c.newsPages
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	if c.debug {
		cfg.Log.Level = "debug"
	}
	c.cfg = cfg

	log, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}
	c.log = log

	store, err := cache.New(cfg.Cache.DSN, log)
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}
	c.store = store

	httpClient := &http.Client{Timeout: cfg.API.Timeout}
	client := portalapi.NewClient(fetcher.New(cfg.API.BaseURL, httpClient, log))

	s, err := scraper.New(cfg.Scrape.BaseURL,
		scraper.WithClient(httpClient),
		scraper.WithSelectors(cfg.Scrape.Selectors),
		scraper.WithConcurrency(cfg.Scrape.Concurrency),
		scraper.WithLogger(log),
	)
	if err != nil {
		return err
	}
	feed := newsfeed.NewFeed(s, newsfeed.Config{
		FeedURL: cfg.Scrape.FeedURL,
		Pages:   cfg.Scrape.Pages,
		Client:  httpClient,
	}, log)

	c.app = app.New(client, feed, store, app.Config{PageSize: cfg.API.PageSize}, log)
	return nil
}

func (c *cli) close() error {
	if c.log != nil {
		_ = c.log.Sync()
	}
	if c.store != nil {
		return c.store.Close()
	}
	return nil
}
