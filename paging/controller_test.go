package paging

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pevans/campus/fetcher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type club struct {
	ID          int
	Name        string
	Description string
	Tags        []Tag
}

func (c club) ItemKey() string        { return strconv.Itoa(c.ID) }
func (c club) SearchFields() []string { return []string{c.Name, c.Description} }
func (c club) ItemTags() []Tag        { return c.Tags }

var (
	tagRobotics = Tag{ID: 1, Name: "Robotics"}
	tagSpace    = Tag{ID: 2, Name: "Space"}
	tagMusic    = Tag{ID: 3, Name: "Music"}
)

// Test helper: a backend that serves a slice by offset/limit and counts calls
type fakeBackend struct {
	mu    sync.Mutex
	data  []club
	calls int
	pages []*fetcher.Page
	err   error
}

func (b *fakeBackend) load(_ context.Context, page *fetcher.Page) ([]club, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.calls++
	b.pages = append(b.pages, page)
	if b.err != nil {
		return nil, b.err
	}
	if page == nil {
		return append([]club(nil), b.data...), nil
	}
	if page.Offset >= len(b.data) {
		return nil, nil
	}
	end := min(page.Offset+page.Limit, len(b.data))
	return append([]club(nil), b.data[page.Offset:end]...), nil
}

func (b *fakeBackend) callCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

func makeClubs(n int) []club {
	clubs := make([]club, n)
	for i := range clubs {
		clubs[i] = club{ID: i + 1, Name: "Club " + strconv.Itoa(i+1)}
	}
	return clubs
}

func TestNewController_Defaults(t *testing.T) {
	c := NewController("clubs", (&fakeBackend{}).load)

	assert.Equal(t, "clubs", c.Name())
	assert.Equal(t, DefaultPageSize, c.PageSize())
	assert.Equal(t, StateIdle, c.State())
	assert.Empty(t, c.Items())
	assert.Equal(t, []Tag{AllTag}, c.Tags())
}

func TestWithPageSize_IgnoresNonPositive(t *testing.T) {
	c := NewController("clubs", (&fakeBackend{}).load, WithPageSize(0))
	assert.Equal(t, DefaultPageSize, c.PageSize())

	c = NewController("clubs", (&fakeBackend{}).load, WithPageSize(3))
	assert.Equal(t, 3, c.PageSize())
}

// TestLoadMore_RequestsNextOffset verifies offset = len(items) and fixed limit
func TestLoadMore_RequestsNextOffset(t *testing.T) {
	backend := &fakeBackend{data: makeClubs(25)}
	c := NewController("clubs", backend.load)
	ctx := context.Background()

	require.NoError(t, c.LoadMore(ctx))
	require.NoError(t, c.LoadMore(ctx))
	require.NoError(t, c.LoadMore(ctx))

	require.Len(t, backend.pages, 3)
	assert.Equal(t, &fetcher.Page{Offset: 0, Limit: 10}, backend.pages[0])
	assert.Equal(t, &fetcher.Page{Offset: 10, Limit: 10}, backend.pages[1])
	assert.Equal(t, &fetcher.Page{Offset: 20, Limit: 10}, backend.pages[2])
	assert.Len(t, c.Items(), 25)
	assert.Equal(t, StateIdle, c.State())
}

// TestLoadMore_EmptyPageExhausts verifies the exhaustion invariant
func TestLoadMore_EmptyPageExhausts(t *testing.T) {
	backend := &fakeBackend{data: makeClubs(5)}
	c := NewController("clubs", backend.load)
	ctx := context.Background()

	require.NoError(t, c.LoadMore(ctx))
	require.NoError(t, c.LoadMore(ctx))
	assert.Equal(t, StateExhausted, c.State())
	calls := backend.callCount()

	for range 5 {
		require.NoError(t, c.LoadMore(ctx))
	}
	assert.Equal(t, calls, backend.callCount(), "exhausted list must not fetch again")
	assert.Len(t, c.Items(), 5)
}

// TestLoadMore_DeduplicatesOverlappingPages verifies the dedup invariant
func TestLoadMore_DeduplicatesOverlappingPages(t *testing.T) {
	pages := [][]club{
		{{ID: 1, Name: "A"}, {ID: 2, Name: "B"}},
		{{ID: 2, Name: "B changed"}, {ID: 3, Name: "C"}, {ID: 1, Name: "A again"}},
		{{ID: 3, Name: "C"}, {ID: 3, Name: "C"}, {ID: 4, Name: "D"}},
	}
	call := 0
	load := func(_ context.Context, _ *fetcher.Page) ([]club, error) {
		if call >= len(pages) {
			return nil, nil
		}
		call++
		return pages[call-1], nil
	}

	c := NewController("clubs", load, WithPageSize(2))
	for range 4 {
		require.NoError(t, c.LoadMore(context.Background()))
	}

	items := c.Items()
	keys := make([]string, len(items))
	for i, item := range items {
		keys[i] = item.ItemKey()
	}
	assert.Equal(t, []string{"1", "2", "3", "4"}, keys)
	assert.Equal(t, "B", items[1].Name, "first-seen item should win")
	assert.Equal(t, StateExhausted, c.State())
}

// TestLoadMore_FailureIsRetryable verifies failures do not exhaust the list
func TestLoadMore_FailureIsRetryable(t *testing.T) {
	boom := errors.New("boom")
	backend := &fakeBackend{data: makeClubs(3), err: boom}
	c := NewController("clubs", backend.load)
	ctx := context.Background()

	err := c.LoadMore(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, StateFailed, c.State())
	assert.ErrorIs(t, c.Snapshot().LastErr, boom)
	assert.Equal(t, 1, backend.callCount(), "should not retry automatically")

	backend.mu.Lock()
	backend.err = nil
	backend.mu.Unlock()

	require.NoError(t, c.LoadMore(ctx))
	assert.Equal(t, StateIdle, c.State())
	assert.Len(t, c.Items(), 3)
	assert.NoError(t, c.Snapshot().LastErr)
}

// TestLoadMore_ReentrancyGuard verifies two overlapping calls issue one fetch
func TestLoadMore_ReentrancyGuard(t *testing.T) {
	defer goleak.VerifyNone(t)

	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	load := func(_ context.Context, _ *fetcher.Page) ([]club, error) {
		calls.Add(1)
		close(started)
		<-release
		return makeClubs(2), nil
	}

	c := NewController("clubs", load)
	done := make(chan error, 1)
	go func() { done <- c.LoadMore(context.Background()) }()

	<-started
	assert.Equal(t, StateFetching, c.State())
	require.NoError(t, c.LoadMore(context.Background()), "overlapping call should be a no-op")
	require.NoError(t, c.LoadAll(context.Background()), "LoadAll should also respect the guard")

	close(release)
	require.NoError(t, <-done)

	assert.Equal(t, int32(1), calls.Load())
	assert.Len(t, c.Items(), 2)
}

// TestLoadMore_ConcurrentCallers verifies the guard under many goroutines
func TestLoadMore_ConcurrentCallers(t *testing.T) {
	defer goleak.VerifyNone(t)

	var inFlight, maxInFlight atomic.Int32
	backend := &fakeBackend{data: makeClubs(40)}
	load := func(ctx context.Context, page *fetcher.Page) ([]club, error) {
		n := inFlight.Add(1)
		for {
			m := maxInFlight.Load()
			if n <= m || maxInFlight.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		defer inFlight.Add(-1)
		return backend.load(ctx, page)
	}

	c := NewController("clubs", load)
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, c.LoadMore(context.Background()))
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInFlight.Load(), "at most one fetch may be in flight")

	items := c.Items()
	seen := map[string]bool{}
	for _, item := range items {
		assert.False(t, seen[item.ItemKey()], "duplicate key %s", item.ItemKey())
		seen[item.ItemKey()] = true
	}
}

// TestLoadAll_ReplacesAndExhausts verifies LoadAll semantics
func TestLoadAll_ReplacesAndExhausts(t *testing.T) {
	backend := &fakeBackend{data: makeClubs(25)}
	c := NewController("clubs", backend.load)
	ctx := context.Background()

	require.NoError(t, c.LoadMore(ctx))
	require.Len(t, c.Items(), 10)

	require.NoError(t, c.LoadAll(ctx))
	assert.Nil(t, backend.pages[1], "LoadAll should request without pagination")
	assert.Len(t, c.Items(), 25)
	assert.Equal(t, StateExhausted, c.State())

	calls := backend.callCount()
	require.NoError(t, c.LoadMore(ctx))
	require.NoError(t, c.LoadAll(ctx))
	assert.Equal(t, calls, backend.callCount())
}

func TestLoadAll_FailureKeepsItems(t *testing.T) {
	backend := &fakeBackend{data: makeClubs(15)}
	c := NewController("clubs", backend.load)
	ctx := context.Background()
	require.NoError(t, c.LoadMore(ctx))

	backend.err = errors.New("down")
	require.Error(t, c.LoadAll(ctx))

	assert.Len(t, c.Items(), 10, "failed LoadAll should not replace items")
	assert.Equal(t, StateFailed, c.State())
}

func TestReset(t *testing.T) {
	backend := &fakeBackend{data: []club{{ID: 1, Name: "A", Tags: []Tag{tagSpace}}}}
	c := NewController("clubs", backend.load)
	ctx := context.Background()

	require.NoError(t, c.LoadAll(ctx))
	c.SetSearch("a")
	c.Reset()

	snap := c.Snapshot()
	assert.Empty(t, snap.Items)
	assert.Equal(t, []Tag{AllTag}, snap.Tags)
	assert.Equal(t, StateIdle, snap.State)
	assert.Equal(t, "a", snap.Filter.Search, "reset should keep the filter")

	require.NoError(t, c.LoadMore(ctx))
	assert.Len(t, c.Items(), 1)
}

// Test helper: a loader whose first offset-N call blocks until released
type gatedBackend struct {
	fakeBackend
	gateOffset int
	once       sync.Once
	started    chan struct{}
	release    chan struct{}
}

func newGatedBackend(data []club, gateOffset int) *gatedBackend {
	return &gatedBackend{
		fakeBackend: fakeBackend{data: data},
		gateOffset:  gateOffset,
		started:     make(chan struct{}),
		release:     make(chan struct{}),
	}
}

func (b *gatedBackend) load(ctx context.Context, page *fetcher.Page) ([]club, error) {
	if page != nil && page.Offset == b.gateOffset {
		b.once.Do(func() {
			close(b.started)
			<-b.release
		})
	}
	return b.fakeBackend.load(ctx, page)
}

// TestReset_DiscardsInFlightLoadMore verifies a page fetched before Reset is
// never applied to the cleared list
func TestReset_DiscardsInFlightLoadMore(t *testing.T) {
	defer goleak.VerifyNone(t)

	backend := newGatedBackend(makeClubs(25), 10)
	c := NewController("clubs", backend.load)
	ctx := context.Background()
	require.NoError(t, c.LoadMore(ctx))
	require.Len(t, c.Items(), 10)

	done := make(chan error, 1)
	go func() { done <- c.LoadMore(ctx) }()
	<-backend.started

	c.Reset()
	assert.Equal(t, StateFetching, c.State(), "reset should not admit a second fetch")
	close(backend.release)
	require.NoError(t, <-done)

	assert.Empty(t, c.Items())
	assert.Equal(t, StateIdle, c.State())

	require.NoError(t, c.LoadMore(ctx))
	backend.mu.Lock()
	last := backend.pages[len(backend.pages)-1]
	backend.mu.Unlock()
	assert.Equal(t, 0, last.Offset)
	require.Len(t, c.Items(), 10)
	assert.Equal(t, 1, c.Items()[0].ID)

	require.NoError(t, c.LoadMore(ctx))
	require.NoError(t, c.LoadMore(ctx))
	require.NoError(t, c.LoadMore(ctx))
	assert.Len(t, c.Items(), 25)
	assert.Equal(t, StateExhausted, c.State())
}

// TestReset_DiscardsInFlightLoadAll verifies LoadAll after Reset neither
// fills nor exhausts the list
func TestReset_DiscardsInFlightLoadAll(t *testing.T) {
	defer goleak.VerifyNone(t)

	started := make(chan struct{})
	release := make(chan struct{})
	load := func(_ context.Context, _ *fetcher.Page) ([]club, error) {
		close(started)
		<-release
		return makeClubs(3), nil
	}

	c := NewController("clubs", load)
	done := make(chan error, 1)
	go func() { done <- c.LoadAll(context.Background()) }()
	<-started

	c.Reset()
	close(release)
	require.NoError(t, <-done)

	assert.Empty(t, c.Items())
	assert.Equal(t, StateIdle, c.State())
}

// TestReset_InFlightFailureLeavesIdle verifies a failure from before Reset is
// returned but not recorded
func TestReset_InFlightFailureLeavesIdle(t *testing.T) {
	defer goleak.VerifyNone(t)

	started := make(chan struct{})
	release := make(chan struct{})
	load := func(_ context.Context, _ *fetcher.Page) ([]club, error) {
		close(started)
		<-release
		return nil, errors.New("down")
	}

	c := NewController("clubs", load)
	done := make(chan error, 1)
	go func() { done <- c.LoadMore(context.Background()) }()
	<-started

	c.Reset()
	close(release)
	assert.Error(t, <-done)

	snap := c.Snapshot()
	assert.Equal(t, StateIdle, snap.State)
	assert.NoError(t, snap.LastErr)
}

// TestLoadMore_AllDuplicatePageKeepsOffset verifies a page of known items
// adds nothing and leaves the list idle
func TestLoadMore_AllDuplicatePageKeepsOffset(t *testing.T) {
	load := func(_ context.Context, _ *fetcher.Page) ([]club, error) {
		return makeClubs(2), nil
	}
	c := NewController("clubs", load, WithPageSize(2))
	ctx := context.Background()

	require.NoError(t, c.LoadMore(ctx))
	require.NoError(t, c.LoadMore(ctx))

	assert.Len(t, c.Items(), 2)
	assert.Equal(t, StateIdle, c.State())
}

// TestTags_FirstSeenOrderWithAllFirst verifies facet derivation
func TestTags_FirstSeenOrderWithAllFirst(t *testing.T) {
	backend := &fakeBackend{data: []club{
		{ID: 1, Tags: []Tag{tagSpace}},
		{ID: 2, Tags: []Tag{tagRobotics, tagSpace}},
		{ID: 3, Tags: nil},
		{ID: 4, Tags: []Tag{tagMusic, tagRobotics}},
	}}
	c := NewController("clubs", backend.load, WithPageSize(2))
	ctx := context.Background()

	require.NoError(t, c.LoadMore(ctx))
	assert.Equal(t, []Tag{AllTag, tagSpace, tagRobotics}, c.Tags())

	require.NoError(t, c.LoadMore(ctx))
	assert.Equal(t, []Tag{AllTag, tagSpace, tagRobotics, tagMusic}, c.Tags())
}

func TestSelectTag_DoesNotFetch(t *testing.T) {
	backend := &fakeBackend{data: makeClubs(3)}
	c := NewController("clubs", backend.load)

	c.SelectTag(&tagSpace)
	c.SetSearch("club")
	assert.Zero(t, backend.callCount())

	c.SelectTag(&AllTag)
	assert.Nil(t, c.Snapshot().Filter.Tag, "AllTag should clear the selection")
}

func TestSelectTag_CopiesTag(t *testing.T) {
	c := NewController("clubs", (&fakeBackend{}).load)
	tag := Tag{ID: 9, Name: "Chess"}
	c.SelectTag(&tag)
	tag.Name = "Changed"

	assert.Equal(t, "Chess", c.Snapshot().Filter.Tag.Name)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "fetching", StateFetching.String())
	assert.Equal(t, "exhausted", StateExhausted.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.Equal(t, "State(42)", State(42).String())
}
