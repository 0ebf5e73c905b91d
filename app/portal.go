package app

import (
	"context"
	"fmt"
	"strconv"

	"github.com/pevans/campus/nav"
	"github.com/pevans/campus/newsfeed"
	"github.com/pevans/campus/paging"
	"github.com/pevans/campus/portalapi"
	"golang.org/x/sync/errgroup"
)

// Calendar combines the timetable exceptions with the academic year end.
type Calendar struct {
	Exceptions portalapi.ExceptionDays `json:"exceptions"`
	YearEnd    portalapi.SessionDay    `json:"year_end"`
}

// OpenDepartment fetches a department with its clubs and navigates to it.
func (a *App) OpenDepartment(ctx context.Context, id int) (portalapi.Department, error) {
	dept, err := a.client.Department(ctx, id)
	if err != nil {
		return portalapi.Department{}, fmt.Errorf("failed to fetch department %d: %w", id, err)
	}
	a.nav.Push(nav.DepartmentDestination{ID: id})
	return dept, nil
}

// OpenClub navigates to a science club of the clubs list.
func (a *App) OpenClub(ctx context.Context, id int) (portalapi.ScienceClub, error) {
	club, err := findItem(ctx, a.Clubs, id)
	if err != nil {
		return portalapi.ScienceClub{}, err
	}
	a.nav.Push(nav.ClubDestination{ID: id})
	return club, nil
}

// OpenBuilding navigates to a building of the campus map.
func (a *App) OpenBuilding(ctx context.Context, id int) (portalapi.Building, error) {
	building, err := findItem(ctx, a.Buildings, id)
	if err != nil {
		return portalapi.Building{}, err
	}
	a.nav.Push(nav.BuildingDestination{ID: id})
	return building, nil
}

// OpenInfo navigates to an informational page.
func (a *App) OpenInfo(ctx context.Context, id int) (portalapi.Info, error) {
	info, err := findItem(ctx, a.Infos, id)
	if err != nil {
		return portalapi.Info{}, err
	}
	a.nav.Push(nav.InfoDestination{ID: id})
	return info, nil
}

// findItem looks id up among the loaded items of c. A list that is not
// exhausted is fully loaded before giving up.
func findItem[T paging.Item](ctx context.Context, c *paging.Controller[T], id int) (T, error) {
	var zero T
	key := strconv.Itoa(id)

	if item, ok := lookup(c.Items(), key); ok {
		return item, nil
	}
	if c.State() != paging.StateExhausted {
		if err := c.LoadAll(ctx); err != nil {
			return zero, err
		}
		if item, ok := lookup(c.Items(), key); ok {
			return item, nil
		}
	}
	return zero, fmt.Errorf("%w: %s %d", ErrUnknownItem, c.Name(), id)
}

func lookup[T paging.Item](items []T, key string) (T, bool) {
	for _, item := range items {
		if item.ItemKey() == key {
			return item, true
		}
	}
	var zero T
	return zero, false
}

// Notices fetches the "what's new" notices.
func (a *App) Notices(ctx context.Context) ([]portalapi.WhatsNew, error) {
	notices, err := a.client.Notices(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch notices: %w", err)
	}
	return notices, nil
}

// Calendar fetches the exception days and the year end in parallel.
func (a *App) Calendar(ctx context.Context) (Calendar, error) {
	var cal Calendar
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		days, err := a.client.WeekDayExceptions(ctx)
		if err != nil {
			return fmt.Errorf("failed to fetch week day exceptions: %w", err)
		}
		cal.Exceptions = days
		return nil
	})
	g.Go(func() error {
		end, err := a.client.AcademicYearEnd(ctx)
		if err != nil {
			return fmt.Errorf("failed to fetch academic year end: %w", err)
		}
		cal.YearEnd = end
		return nil
	})

	if err := g.Wait(); err != nil {
		return Calendar{}, err
	}
	return cal, nil
}

// Summary looks up a loaded news summary by ID.
func (a *App) Summary(id string) (newsfeed.Summary, error) {
	if s, ok := lookup(a.News.Items(), id); ok {
		return s, nil
	}
	return newsfeed.Summary{}, fmt.Errorf("%w: %s", ErrUnknownArticle, id)
}

// OpenArticle resolves the article of a loaded summary and navigates to it.
func (a *App) OpenArticle(ctx context.Context, id string) (newsfeed.Summary, []newsfeed.Component, error) {
	summary, err := a.Summary(id)
	if err != nil {
		return newsfeed.Summary{}, nil, err
	}

	components, err := a.feed.Article(ctx, summary)
	if err != nil {
		return summary, nil, err
	}
	a.nav.Push(nav.ArticleDestination{Summary: summary})
	return summary, components, nil
}

// ArticleAt scrapes the article at url without a loaded summary.
func (a *App) ArticleAt(ctx context.Context, url string) ([]newsfeed.Component, error) {
	return a.feed.Article(ctx, newsfeed.NewSummary(url, "", "", "", &url))
}
