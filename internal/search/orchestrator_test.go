package search

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arawak/thankyou/internal/catalog"
)

type searchCall struct {
	query   string
	page    int
	perPage int
}

type fakeProvider struct {
	mu          sync.Mutex
	randomCalls int
	searches    []searchCall
	randomErr   error
	searchErr   error
	gates       map[string]chan struct{}
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{gates: map[string]chan struct{}{}}
}

func (f *fakeProvider) Random(_ context.Context, count int) ([]catalog.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.randomCalls++
	if f.randomErr != nil {
		return nil, f.randomErr
	}
	out := make([]catalog.Image, count)
	for i := range out {
		out[i] = catalog.Image{ID: fmt.Sprintf("random-%d", i)}
	}
	return out, nil
}

func (f *fakeProvider) Search(ctx context.Context, query string, page, perPage int) (*catalog.Page, error) {
	f.mu.Lock()
	f.searches = append(f.searches, searchCall{query: query, page: page, perPage: perPage})
	gate := f.gates[query]
	err := f.searchErr
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return &catalog.Page{
		Results:    []catalog.Image{{ID: fmt.Sprintf("%s-p%d-0", query, page)}, {ID: fmt.Sprintf("%s-p%d-1", query, page)}},
		Total:      40,
		TotalPages: 4,
	}, nil
}

func (f *fakeProvider) searchCalls() []searchCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]searchCall{}, f.searches...)
}

func (f *fakeProvider) randomCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.randomCalls
}

func (f *fakeProvider) block(query string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[query] = ch
	return ch
}

const (
	testDebounce = 30 * time.Millisecond
	waitFor      = 2 * time.Second
	tick         = 5 * time.Millisecond
)

func newTestOrchestrator(t *testing.T, p Provider) *Orchestrator {
	t.Helper()
	o := New(context.Background(), p, WithDebounce(testDebounce))
	t.Cleanup(o.Close)
	return o
}

func idle(o *Orchestrator) func() bool {
	return func() bool { return !o.Snapshot().Loading }
}

func searchTo(t *testing.T, o *Orchestrator, query string) {
	t.Helper()
	o.SetQuery(query)
	require.Eventually(t, func() bool {
		st := o.Snapshot()
		return !st.Loading && st.Query() == query
	}, waitFor, tick)
}

func TestStartFetchesRandomImages(t *testing.T) {
	p := newFakeProvider()
	o := newTestOrchestrator(t, p)
	require.NoError(t, o.Start())
	require.Eventually(t, func() bool { return len(o.Snapshot().View.Images()) == 4 }, waitFor, tick)

	st := o.Snapshot()
	assert.Equal(t, ModeRandom, st.View.Mode())
	assert.False(t, st.Loading)
	assert.NoError(t, st.Err)
	assert.Equal(t, 1, p.randomCount())
}

func TestStartFailureLeavesListEmpty(t *testing.T) {
	p := newFakeProvider()
	p.randomErr = errors.New("boom")
	o := newTestOrchestrator(t, p)
	require.NoError(t, o.Start())
	require.Eventually(t, func() bool { return o.Snapshot().Err != nil }, waitFor, tick)

	st := o.Snapshot()
	assert.Equal(t, ModeRandom, st.View.Mode())
	assert.Empty(t, st.View.Images())
	assert.False(t, st.Loading)
}

func TestFailedRefreshKeepsRandomImages(t *testing.T) {
	p := newFakeProvider()
	o := newTestOrchestrator(t, p)
	require.NoError(t, o.Start())
	require.Eventually(t, func() bool { return len(o.Snapshot().View.Images()) == 4 }, waitFor, tick)

	p.mu.Lock()
	p.randomErr = errors.New("boom")
	p.mu.Unlock()

	require.NoError(t, o.Refresh())
	require.Eventually(t, func() bool {
		st := o.Snapshot()
		return !st.Loading && st.Err != nil
	}, waitFor, tick)

	st := o.Snapshot()
	assert.EqualError(t, st.Err, "boom")
	require.Len(t, st.View.Images(), 4)
	assert.Equal(t, "random-0", st.View.Images()[0].ID)
	assert.Equal(t, 2, p.randomCount())
}

func TestDebounceDispatchesOnlyLastQuery(t *testing.T) {
	p := newFakeProvider()
	o := newTestOrchestrator(t, p)

	for _, q := range []string{"c", "ca", "cat", "cats"} {
		o.SetQuery(q)
		time.Sleep(2 * time.Millisecond)
	}
	require.Eventually(t, func() bool { return len(p.searchCalls()) == 1 }, waitFor, tick)
	require.Eventually(t, idle(o), waitFor, tick)
	time.Sleep(3 * testDebounce)

	calls := p.searchCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, searchCall{query: "cats", page: 1, perPage: 12}, calls[0])

	st := o.Snapshot()
	assert.Equal(t, ModeSearch, st.View.Mode())
	assert.Equal(t, "cats", st.Query())
	assert.Equal(t, catalog.Pagination{Page: 1, PerPage: 12, Total: 40, TotalPages: 4}, st.Pagination())
}

func TestDebounceTrimsQuery(t *testing.T) {
	p := newFakeProvider()
	o := newTestOrchestrator(t, p)
	o.SetQuery("  sunset  ")
	require.Eventually(t, func() bool { return len(p.searchCalls()) == 1 }, waitFor, tick)
	assert.Equal(t, "sunset", p.searchCalls()[0].query)
	assert.Equal(t, "  sunset  ", o.Snapshot().Input)
}

func TestBlankQueryReturnsToRandomWithoutFetching(t *testing.T) {
	p := newFakeProvider()
	o := newTestOrchestrator(t, p)
	require.NoError(t, o.Start())
	require.Eventually(t, idle(o), waitFor, tick)
	searchTo(t, o, "cats")

	o.SetQuery("   ")
	require.Eventually(t, func() bool { return o.Snapshot().View.Mode() == ModeRandom }, waitFor, tick)

	st := o.Snapshot()
	assert.Len(t, st.View.Images(), 4)
	assert.Equal(t, catalog.EmptyPagination(), st.Pagination())
	assert.Equal(t, 1, p.randomCount())
	assert.Len(t, p.searchCalls(), 1)
}

func TestClearResetsWithoutRandomFetch(t *testing.T) {
	p := newFakeProvider()
	o := newTestOrchestrator(t, p)
	require.NoError(t, o.Start())
	require.Eventually(t, idle(o), waitFor, tick)
	searchTo(t, o, "dogs")

	o.Clear()
	st := o.Snapshot()
	assert.Equal(t, ModeRandom, st.View.Mode())
	assert.Equal(t, "", st.Input)
	assert.Equal(t, "", st.Query())
	assert.Equal(t, catalog.Pagination{Page: 1, PerPage: 12, Total: 0, TotalPages: 0}, st.Pagination())
	assert.Len(t, st.View.Images(), 4)
	assert.Equal(t, 1, p.randomCount())
}

func TestClearCancelsPendingDebounce(t *testing.T) {
	p := newFakeProvider()
	o := newTestOrchestrator(t, p)
	o.SetQuery("birds")
	o.Clear()
	time.Sleep(4 * testDebounce)
	assert.Empty(t, p.searchCalls())
	assert.Equal(t, ModeRandom, o.Snapshot().View.Mode())
}

func TestClearDiscardsInFlightSearch(t *testing.T) {
	p := newFakeProvider()
	gate := p.block("slow")
	o := newTestOrchestrator(t, p)

	o.SetQuery("slow")
	require.Eventually(t, func() bool { return len(p.searchCalls()) == 1 }, waitFor, tick)
	o.Clear()
	close(gate)
	require.Eventually(t, idle(o), waitFor, tick)

	st := o.Snapshot()
	assert.Equal(t, ModeRandom, st.View.Mode())
	assert.Equal(t, catalog.EmptyPagination(), st.Pagination())
}

func TestPageReissuesSearch(t *testing.T) {
	p := newFakeProvider()
	o := newTestOrchestrator(t, p)
	searchTo(t, o, "trees")

	for page := 1; page <= 4; page++ {
		require.NoError(t, o.Page(page))
		require.Eventually(t, idle(o), waitFor, tick)

		st := o.Snapshot()
		assert.Equal(t, page, st.Pagination().Page)
		assert.Equal(t, "trees", st.Query())
		assert.Equal(t, fmt.Sprintf("trees-p%d-0", page), st.View.Images()[0].ID)

		calls := p.searchCalls()
		assert.Equal(t, searchCall{query: "trees", page: page, perPage: 12}, calls[len(calls)-1])
	}
}

func TestPageRequiresSearchMode(t *testing.T) {
	o := newTestOrchestrator(t, newFakeProvider())
	assert.ErrorIs(t, o.Page(2), ErrNotSearching)
}

func TestSearchFailureKeepsPriorResults(t *testing.T) {
	p := newFakeProvider()
	o := newTestOrchestrator(t, p)
	searchTo(t, o, "owls")

	p.mu.Lock()
	p.searchErr = errors.New("Unsplash API error: 500")
	p.mu.Unlock()

	require.NoError(t, o.Page(2))
	require.Eventually(t, func() bool {
		st := o.Snapshot()
		return !st.Loading && st.Err != nil
	}, waitFor, tick)

	st := o.Snapshot()
	assert.EqualError(t, st.Err, "Unsplash API error: 500")
	assert.Equal(t, 1, st.Pagination().Page)
	assert.Equal(t, "owls-p1-0", st.View.Images()[0].ID)
}

func TestStaleSearchResponseIsDiscarded(t *testing.T) {
	p := newFakeProvider()
	gate := p.block("cats")
	o := newTestOrchestrator(t, p)

	o.SetQuery("cats")
	require.Eventually(t, func() bool { return len(p.searchCalls()) == 1 }, waitFor, tick)
	o.SetQuery("dogs")
	require.Eventually(t, func() bool { return o.Snapshot().Query() == "dogs" }, waitFor, tick)

	close(gate)
	require.Eventually(t, idle(o), waitFor, tick)

	st := o.Snapshot()
	assert.Equal(t, "dogs", st.Query())
	assert.Equal(t, "dogs-p1-0", st.View.Images()[0].ID)
}

func TestLoadingWhileCallOutstanding(t *testing.T) {
	p := newFakeProvider()
	gate := p.block("rain")
	o := newTestOrchestrator(t, p)

	o.SetQuery("rain")
	require.Eventually(t, func() bool { return o.Snapshot().Loading }, waitFor, tick)
	close(gate)
	require.Eventually(t, idle(o), waitFor, tick)
}

func TestSubscribeReceivesTransitions(t *testing.T) {
	p := newFakeProvider()
	o := newTestOrchestrator(t, p)

	var mu sync.Mutex
	var seen []Mode
	o.Subscribe(func(st State) {
		mu.Lock()
		seen = append(seen, st.View.Mode())
		mu.Unlock()
	})
	searchTo(t, o, "moon")
	o.Clear()

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, seen, ModeSearch)
	assert.Contains(t, seen, ModeRandom)
}

func TestClosedOrchestratorRejectsWork(t *testing.T) {
	p := newFakeProvider()
	o := New(context.Background(), p, WithDebounce(testDebounce))
	o.Close()
	assert.ErrorIs(t, o.Start(), ErrClosed)
	o.SetQuery("ignored")
	time.Sleep(2 * testDebounce)
	assert.Empty(t, p.searchCalls())
}
