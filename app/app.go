// Package app composes the portal features: one paginated list per feature,
// the news feed, the local cache and the navigation stack.
package app

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/pevans/campus/cache"
	"github.com/pevans/campus/fetcher"
	"github.com/pevans/campus/logger"
	"github.com/pevans/campus/nav"
	"github.com/pevans/campus/newsfeed"
	"github.com/pevans/campus/paging"
	"github.com/pevans/campus/portalapi"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Feature names a list feature.
type Feature string

const (
	FeatureDepartments Feature = "departments"
	FeatureClubs       Feature = "clubs"
	FeatureBuildings   Feature = "buildings"
	FeatureInfos       Feature = "infos"
	FeatureNews        Feature = "news"
)

var (
	// ErrUnknownFeature is returned for a feature name that does not exist.
	ErrUnknownFeature = errors.New("unknown feature")
	// ErrUnknownArticle is returned when a news ID is not among the loaded
	// summaries.
	ErrUnknownArticle = errors.New("unknown article")
	// ErrUnknownItem is returned when a club, building or info ID is not in
	// its feature's collection.
	ErrUnknownItem = errors.New("unknown item")
)

// Config tunes an App.
type Config struct {
	PageSize int
}

// App is the top-level client state.
type App struct {
	client *portalapi.Client
	feed   *newsfeed.Feed
	cache  *cache.Store
	nav    *nav.Stack
	log    *zap.Logger

	Departments *paging.Controller[portalapi.Department]
	Clubs       *paging.Controller[portalapi.ScienceClub]
	Buildings   *paging.Controller[portalapi.Building]
	Infos       *paging.Controller[portalapi.Info]
	News        *paging.Controller[newsfeed.Summary]

	lists map[Feature]List
}

// New wires the features of the portal client.
func New(client *portalapi.Client, feed *newsfeed.Feed, store *cache.Store, cfg Config, log *zap.Logger) *App {
	log = logger.OrNop(log)
	opts := []paging.Option{paging.WithPageSize(cfg.PageSize), paging.WithLogger(log)}

	a := &App{
		client: client,
		feed:   feed,
		cache:  store,
		nav:    &nav.Stack{},
		log:    log.With(zap.String("component", "app")),
	}

	a.Departments = paging.NewController[portalapi.Department](string(FeatureDepartments), client.Departments, opts...)
	a.Clubs = paging.NewController[portalapi.ScienceClub](string(FeatureClubs), client.ScienceClubs, opts...)
	a.Buildings = paging.NewController[portalapi.Building](string(FeatureBuildings), unpaginated(func(ctx context.Context) ([]portalapi.Building, error) {
		return client.Buildings(ctx, nil)
	}), opts...)
	a.Infos = paging.NewController[portalapi.Info](string(FeatureInfos), client.Infos, opts...)
	a.News = paging.NewController[newsfeed.Summary](string(FeatureNews), unpaginated(feed.Summaries), opts...)

	a.lists = map[Feature]List{
		FeatureDepartments: listOf(a.Departments),
		FeatureClubs:       listOf(a.Clubs),
		FeatureBuildings:   listOf(a.Buildings),
		FeatureInfos:       listOf(a.Infos),
		FeatureNews:        listOf(a.News),
	}
	return a
}

// unpaginated adapts a source that always returns its whole collection. The
// first page is the collection and later pages are empty, so LoadMore
// exhausts the list on its second call.
func unpaginated[T paging.Item](load func(ctx context.Context) ([]T, error)) paging.Loader[T] {
	return func(ctx context.Context, page *fetcher.Page) ([]T, error) {
		if page != nil && page.Offset > 0 {
			return nil, nil
		}
		return load(ctx)
	}
}

// Features lists the known feature names in lexical order.
func (a *App) Features() []Feature {
	features := make([]Feature, 0, len(a.lists))
	for f := range a.lists {
		features = append(features, f)
	}
	sort.Slice(features, func(i, j int) bool { return features[i] < features[j] })
	return features
}

// List returns the list of the named feature.
func (a *App) List(name string) (List, error) {
	list, ok := a.lists[Feature(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFeature, name)
	}
	return list, nil
}

// Navigation returns the navigation stack.
func (a *App) Navigation() *nav.Stack {
	return a.nav
}

// SelectTag filters the named feature by tag. Tags only make sense against
// the full collection, so a list that is not exhausted is fully loaded
// first. A nil or All tag clears the filter without loading.
func (a *App) SelectTag(ctx context.Context, name string, tag *paging.Tag) error {
	list, err := a.List(name)
	if err != nil {
		return err
	}

	if tag != nil && !tag.IsAll() && list.State() != paging.StateExhausted {
		if err := list.LoadAll(ctx); err != nil {
			return err
		}
	}
	list.SelectTag(tag)
	return nil
}

// SyncVersion fetches the content version and compares it with the cached
// one. When they differ, or nothing is cached yet, every list and the
// navigation stack are reset and the new version is stored.
func (a *App) SyncVersion(ctx context.Context) (changed bool, err error) {
	current, err := a.client.Version(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to fetch version: %w", err)
	}

	cached, ok := cache.Load[portalapi.Version](a.cache, cache.KeyAPIVersion)
	if ok && cached == current {
		a.log.Debug("content version unchanged", zap.String("version", current.Version))
		return false, nil
	}

	for _, list := range a.lists {
		list.Reset()
	}
	a.nav.Reset()

	if err := a.cache.Save(cache.KeyAPIVersion, current); err != nil {
		return true, err
	}

	a.log.Info("content version changed",
		zap.String("previous", cached.Version),
		zap.String("current", current.Version),
	)
	return true, nil
}

// Refresh fully loads every feature concurrently. Features share no state,
// so one failing does not stop the others; all failures are returned
// joined.
func (a *App) Refresh(ctx context.Context) error {
	var g errgroup.Group
	features := a.Features()
	errs := make([]error, len(features))

	for i, f := range features {
		list := a.lists[f]
		g.Go(func() error {
			errs[i] = list.LoadAll(ctx)
			return nil
		})
	}
	_ = g.Wait()

	return errors.Join(errs...)
}
