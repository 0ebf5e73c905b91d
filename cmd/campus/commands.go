package main

import (
	"fmt"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/pevans/campus/api"
	"github.com/pevans/campus/app"
	"github.com/pevans/campus/paging"
	"github.com/spf13/cobra"
)

func newListCmd(c *cli) *cobra.Command {
	var (
		search string
		tag    string
		all    bool
		pages  int
	)

	cmd := &cobra.Command{
		Use:   "list <feature>",
		Short: "List departments, clubs, buildings, infos or news",
		Long: `List a portal feature.

Examples:
  # First page of science clubs
  campus list clubs

  # Every department tagged "engineering"
  campus list departments --tag engineering

  # Search buildings by name or address
  campus list buildings --all --search "czarnowiejska"`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"departments", "clubs", "buildings", "infos", "news"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			list, err := c.app.List(args[0])
			if err != nil {
				return fmt.Errorf("%w (choose from %v)", err, c.app.Features())
			}

			if all {
				if err := list.LoadAll(ctx); err != nil {
					return err
				}
			} else {
				for range max(pages, 1) {
					if err := list.LoadMore(ctx); err != nil {
						return err
					}
				}
			}

			list.SetSearch(search)
			if tag != "" {
				if err := c.app.SelectTag(ctx, args[0], &paging.Tag{Name: tag}); err != nil {
					return err
				}
			}

			return printView(cmd.OutOrStdout(), c.format, list.View())
		},
	}

	cmd.Flags().StringVarP(&search, "search", "s", "", "case-insensitive text filter")
	cmd.Flags().StringVarP(&tag, "tag", "t", "", "only items with this tag (loads the whole list)")
	cmd.Flags().BoolVar(&all, "all", false, "load the whole list instead of pages")
	cmd.Flags().IntVarP(&pages, "pages", "p", 1, "number of pages to load")
	return cmd
}

func newDepartmentCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "department <id>",
		Short: "Show a department with its science clubs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("department", args[0])
			if err != nil {
				return err
			}

			dept, err := c.app.OpenDepartment(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printDepartment(cmd.OutOrStdout(), c.format, dept)
		},
	}
}

// parseID parses a positive integer ID argument.
func parseID(what, arg string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s ID: %s", what, arg)
	}
	return id, nil
}

func newClubCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "club <id>",
		Short: "Show a science club",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("club", args[0])
			if err != nil {
				return err
			}

			club, err := c.app.OpenClub(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printClub(cmd.OutOrStdout(), c.format, club)
		},
	}
}

func newBuildingCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "building <id>",
		Short: "Show a campus building",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("building", args[0])
			if err != nil {
				return err
			}

			building, err := c.app.OpenBuilding(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printBuilding(cmd.OutOrStdout(), c.format, building)
		},
	}
}

func newInfoCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "info <id>",
		Short: "Show an informational page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("info", args[0])
			if err != nil {
				return err
			}

			info, err := c.app.OpenInfo(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printInfo(cmd.OutOrStdout(), c.format, info)
		},
	}
}

func newNoticesCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "notices",
		Short: "Show what's new",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			notices, err := c.app.Notices(cmd.Context())
			if err != nil {
				return err
			}
			return printNotices(cmd.OutOrStdout(), c.format, notices)
		},
	}
}

func newCalendarCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "calendar",
		Short: "Show timetable exception days and the academic year end",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cal, err := c.app.Calendar(cmd.Context())
			if err != nil {
				return err
			}
			return printCalendar(cmd.OutOrStdout(), c.format, cal)
		},
	}
}

func newNewsCmd(c *cli) *cobra.Command {
	news := &cobra.Command{
		Use:   "news",
		Short: "Browse university news",
	}
	news.PersistentFlags().IntVar(&c.newsPages, "pages", 0, "listing pages to scrape (default from config)")

	news.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List news summaries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.app.News.LoadAll(cmd.Context()); err != nil {
				return err
			}
			list, err := c.app.List(string(app.FeatureNews))
			if err != nil {
				return err
			}
			return printView(cmd.OutOrStdout(), c.format, list.View())
		},
	})

	news.AddCommand(&cobra.Command{
		Use:   "show <url>",
		Short: "Show an article",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			components, err := c.app.ArticleAt(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printArticle(cmd.OutOrStdout(), c.format, components)
		},
	})

	return news
}

func newVersionCmd(c *cli) *cobra.Command {
	version := &cobra.Command{
		Use:   "version",
		Short: "Manage the cached content version",
	}

	version.AddCommand(&cobra.Command{
		Use:   "sync",
		Short: "Fetch the content version and reset local state when it changed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			changed, err := c.app.SyncVersion(cmd.Context())
			if err != nil {
				return err
			}
			if changed {
				fmt.Fprintln(cmd.OutOrStdout(), "Content version changed; local state reset.")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "Content version unchanged.")
			}
			return nil
		},
	})

	return version
}

func newCacheCmd(c *cli) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the local cache",
	}

	cacheCmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove every cached entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, err := c.store.Keys()
			if err != nil {
				return err
			}
			if err := c.store.Clear(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cache entries.\n", len(keys))
			return nil
		},
	})

	return cacheCmd
}

func newServeCmd(c *cli) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the portal over a local HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = c.cfg.Server.Addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return api.NewServer(c.app, c.log).Run(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}
