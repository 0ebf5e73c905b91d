// Package paging implements the "load more" list state machine shared by
// every list feature of the portal: departments, clubs, buildings, infos
// and news.
package paging

import (
	"context"
	"fmt"
	"sync"

	"github.com/pevans/campus/fetcher"
	"github.com/pevans/campus/logger"
	"go.uber.org/zap"
)

// DefaultPageSize is the number of items requested per LoadMore.
const DefaultPageSize = 10

// State is the position of a Controller in its load cycle.
type State int

const (
	// StateIdle means no fetch is running and more items may exist.
	StateIdle State = iota
	// StateFetching means exactly one fetch is in flight.
	StateFetching
	// StateExhausted means the full collection is loaded; nothing is fetched
	// again until Reset.
	StateExhausted
	// StateFailed means the last fetch failed. It behaves like StateIdle for
	// LoadMore and LoadAll but lets a UI offer retry instead of a spinner.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateExhausted:
		return "exhausted"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// MarshalText renders the state by name in JSON output.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Loader fetches one window of the collection, or all of it when page is nil.
type Loader[T Item] func(ctx context.Context, page *fetcher.Page) ([]T, error)

// Snapshot is a consistent copy of a controller's state.
type Snapshot[T Item] struct {
	Items   []T    `json:"items"`
	Visible []T    `json:"visible"`
	Tags    []Tag  `json:"tags"`
	Filter  Filter `json:"filter"`
	State   State  `json:"state"`
	LastErr error  `json:"-"`
}

// Controller drives paginated loading of a single list. It is owned by one
// feature; its methods may be called from multiple goroutines and at most
// one fetch is ever in flight.
type Controller[T Item] struct {
	name     string
	load     Loader[T]
	pageSize int
	log      *zap.Logger

	mu      sync.Mutex
	state   State
	gen     uint64
	items   []T
	seen    map[string]struct{}
	tags    []Tag
	filter  Filter
	lastErr error
}

// Option configures a Controller.
type Option func(*options)

type options struct {
	pageSize int
	log      *zap.Logger
}

// WithPageSize overrides DefaultPageSize. Non-positive sizes are ignored.
func WithPageSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.pageSize = n
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(log *zap.Logger) Option {
	return func(o *options) { o.log = log }
}

// NewController creates an idle controller named name that loads through
// load.
func NewController[T Item](name string, load Loader[T], opts ...Option) *Controller[T] {
	o := options{pageSize: DefaultPageSize}
	for _, opt := range opts {
		opt(&o)
	}

	return &Controller[T]{
		name:     name,
		load:     load,
		pageSize: o.pageSize,
		log:      logger.OrNop(o.log).With(zap.String("list", name)),
		seen:     make(map[string]struct{}),
		tags:     []Tag{AllTag},
	}
}

// Name returns the controller's list name.
func (c *Controller[T]) Name() string {
	return c.name
}

// PageSize returns the number of items requested per LoadMore.
func (c *Controller[T]) PageSize() int {
	return c.pageSize
}

// begin moves the controller to StateFetching. It returns false when a fetch
// is already running or the list is exhausted. gen identifies the list
// contents the fetch was started against.
func (c *Controller[T]) begin() (offset int, gen uint64, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateFetching || c.state == StateExhausted {
		return 0, 0, false
	}
	c.state = StateFetching
	return len(c.items), c.gen, true
}

// staleLocked reports whether Reset ran since the fetch for gen began. A stale
// fetch leaves the controller idle and its result is dropped. c.mu must be
// held.
func (c *Controller[T]) staleLocked(gen uint64) bool {
	if gen == c.gen {
		return false
	}
	c.state = StateIdle
	c.log.Debug("discarding result of a fetch started before reset")
	return true
}

// fail records err and leaves the controller retryable.
func (c *Controller[T]) fail(gen uint64, err error) error {
	c.mu.Lock()
	if !c.staleLocked(gen) {
		c.state = StateFailed
		c.lastErr = err
	}
	c.mu.Unlock()

	c.log.Warn("load failed", zap.Error(err))
	return fmt.Errorf("failed to load %s: %w", c.name, err)
}

// LoadMore fetches the next page. It is a no-op returning nil while a fetch
// is running or once the list is exhausted. An empty page exhausts the list.
// Failures are returned and never retried.
func (c *Controller[T]) LoadMore(ctx context.Context) error {
	offset, gen, ok := c.begin()
	if !ok {
		return nil
	}

	page := &fetcher.Page{Offset: offset, Limit: c.pageSize}
	batch, err := c.load(ctx, page)
	if err != nil {
		return c.fail(gen, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.staleLocked(gen) {
		return nil
	}

	c.lastErr = nil
	if len(batch) == 0 {
		c.state = StateExhausted
		c.log.Debug("list exhausted", zap.Int("items", len(c.items)))
		return nil
	}

	added := c.appendLocked(batch)
	c.tags = Facets(c.items)
	c.state = StateIdle
	if added == 0 {
		// The next offset is unchanged, so the same page comes back again.
		c.log.Warn("page held only known items; list cannot advance",
			zap.Int("offset", offset),
			zap.Int("received", len(batch)),
		)
		return nil
	}
	c.log.Debug("page loaded",
		zap.Int("offset", offset),
		zap.Int("received", len(batch)),
		zap.Int("added", added),
	)
	return nil
}

// LoadAll fetches the whole collection without pagination and replaces the
// current items on success. The list is exhausted afterwards. It is a no-op
// while a fetch is running or once the list is exhausted.
func (c *Controller[T]) LoadAll(ctx context.Context) error {
	_, gen, ok := c.begin()
	if !ok {
		return nil
	}

	all, err := c.load(ctx, nil)
	if err != nil {
		return c.fail(gen, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.staleLocked(gen) {
		return nil
	}

	c.items = nil
	c.seen = make(map[string]struct{}, len(all))
	c.appendLocked(all)
	c.tags = Facets(c.items)
	c.lastErr = nil
	c.state = StateExhausted
	c.log.Debug("list fully loaded", zap.Int("items", len(c.items)))
	return nil
}

// appendLocked appends items whose key is not yet present and returns how
// many were added. c.mu must be held.
func (c *Controller[T]) appendLocked(batch []T) int {
	added := 0
	for _, item := range batch {
		key := item.ItemKey()
		if _, dup := c.seen[key]; dup {
			continue
		}
		c.seen[key] = struct{}{}
		c.items = append(c.items, item)
		added++
	}
	return added
}

// Reset discards loaded items and returns to StateIdle. The filter is kept.
// A fetch still in flight when Reset is called keeps the controller in
// StateFetching until it returns; its result is then discarded.
func (c *Controller[T]) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gen++
	c.items = nil
	c.seen = make(map[string]struct{})
	c.tags = []Tag{AllTag}
	c.lastErr = nil
	if c.state != StateFetching {
		c.state = StateIdle
	}
}

// SetSearch replaces the search text. It never triggers a fetch.
func (c *Controller[T]) SetSearch(text string) {
	c.mu.Lock()
	c.filter.Search = text
	c.mu.Unlock()
}

// SelectTag replaces the selected tag; nil or AllTag clears it. It never
// triggers a fetch.
func (c *Controller[T]) SelectTag(tag *Tag) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if tag == nil || tag.IsAll() {
		c.filter.Tag = nil
		return
	}
	t := *tag
	c.filter.Tag = &t
}

// State returns the current state.
func (c *Controller[T]) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Items returns a copy of every loaded item in fetch order.
func (c *Controller[T]) Items() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]T(nil), c.items...)
}

// Tags returns the tag facets, AllTag first.
func (c *Controller[T]) Tags() []Tag {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Tag(nil), c.tags...)
}

// Visible returns the items matching the current filter. The view is
// recomputed on every call.
func (c *Controller[T]) Visible() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]T(nil), Apply(c.items, c.filter)...)
}

// Snapshot returns items, facets, filter and state read under one lock.
func (c *Controller[T]) Snapshot() Snapshot[T] {
	c.mu.Lock()
	defer c.mu.Unlock()

	items := append([]T(nil), c.items...)
	return Snapshot[T]{
		Items:   items,
		Visible: Apply(items, c.filter),
		Tags:    append([]Tag(nil), c.tags...),
		Filter:  c.filter,
		State:   c.state,
		LastErr: c.lastErr,
	}
}
