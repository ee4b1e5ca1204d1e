package search

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/arawak/thankyou/internal/catalog"
)

const (
	DefaultDebounce    = 500 * time.Millisecond
	DefaultRandomCount = 4
)

var ErrNotSearching = errors.New("no active search")
var ErrClosed = errors.New("orchestrator closed")

// Provider is the subset of the image provider client the orchestrator uses.
type Provider interface {
	Random(ctx context.Context, count int) ([]catalog.Image, error)
	Search(ctx context.Context, query string, page, perPage int) (*catalog.Page, error)
}

type Option func(*Orchestrator)

func WithDebounce(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.debounce = d
		}
	}
}

func WithRandomCount(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.randomCount = n
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// Orchestrator owns the search state machine for one user.
//
// Searches and random fetches run in their own goroutines. Each dispatch
// takes a generation token; a completion is applied only while its token is
// still current, so a slow response can never overwrite a newer one.
type Orchestrator struct {
	provider    Provider
	debounce    time.Duration
	randomCount int
	logger      *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu          sync.Mutex
	view        View
	random      []catalog.Image
	input       string
	err         error
	inflight    int
	timer       *time.Timer
	debounceSeq uint64
	searchGen   uint64
	randomGen   uint64
	closed      bool
	observers   []func(State)
}

func New(ctx context.Context, p Provider, opts ...Option) *Orchestrator {
	ctx, cancel := context.WithCancel(ctx)
	o := &Orchestrator{
		provider:    p,
		debounce:    DefaultDebounce,
		randomCount: DefaultRandomCount,
		logger:      slog.Default(),
		ctx:         ctx,
		cancel:      cancel,
		view:        RandomView{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Subscribe registers fn to be called with a snapshot after every applied
// transition. fn runs outside the orchestrator lock.
func (o *Orchestrator) Subscribe(fn func(State)) {
	o.mu.Lock()
	o.observers = append(o.observers, fn)
	o.mu.Unlock()
}

// Start performs the initial random fetch.
func (o *Orchestrator) Start() error {
	return o.Refresh()
}

// Refresh re-fetches the random image set.
func (o *Orchestrator) Refresh() error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return ErrClosed
	}
	o.randomGen++
	gen := o.randomGen
	o.begin()
	st := o.snapshotLocked()
	o.mu.Unlock()
	o.notify(st)

	count := o.randomCount
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		images, err := o.provider.Random(o.ctx, count)
		o.finishRandom(gen, images, err)
	}()
	return nil
}

// SetQuery records a keystroke and (re)arms the debounce timer. Only the
// last query of a burst is dispatched.
func (o *Orchestrator) SetQuery(raw string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	o.input = raw
	if o.timer != nil {
		o.timer.Stop()
	}
	o.debounceSeq++
	seq := o.debounceSeq
	o.timer = time.AfterFunc(o.debounce, func() { o.fire(seq) })
}

func (o *Orchestrator) fire(seq uint64) {
	o.mu.Lock()
	if o.closed || seq != o.debounceSeq {
		o.mu.Unlock()
		return
	}
	o.timer = nil
	query := strings.TrimSpace(o.input)
	if query == "" {
		o.resetLocked()
		st := o.snapshotLocked()
		o.mu.Unlock()
		o.notify(st)
		return
	}
	st := o.dispatchSearchLocked(query, 1)
	o.mu.Unlock()
	o.notify(st)
}

// Page requests page n of the active search. Range checking is the
// caller's job.
func (o *Orchestrator) Page(n int) error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return ErrClosed
	}
	sv, ok := o.view.(SearchView)
	if !ok {
		o.mu.Unlock()
		return ErrNotSearching
	}
	st := o.dispatchSearchLocked(sv.Query, n)
	o.mu.Unlock()
	o.notify(st)
	return nil
}

// Clear drops the search and returns to the random set without re-fetching.
func (o *Orchestrator) Clear() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
	o.debounceSeq++
	o.input = ""
	o.resetLocked()
	st := o.snapshotLocked()
	o.mu.Unlock()
	o.notify(st)
}

func (o *Orchestrator) Snapshot() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

// Close stops the debounce timer, cancels outstanding calls and waits for
// their goroutines to exit.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
	o.mu.Unlock()
	o.cancel()
	o.wg.Wait()
}

func (o *Orchestrator) dispatchSearchLocked(query string, page int) State {
	o.searchGen++
	gen := o.searchGen
	o.begin()
	st := o.snapshotLocked()

	o.logger.Debug("search dispatched", "query", query, "page", page, "generation", gen)
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		res, err := o.provider.Search(o.ctx, query, page, catalog.PageSize)
		o.finishSearch(gen, query, page, res, err)
	}()
	return st
}

func (o *Orchestrator) finishSearch(gen uint64, query string, page int, res *catalog.Page, err error) {
	o.mu.Lock()
	o.inflight--
	if o.closed {
		o.mu.Unlock()
		return
	}
	switch {
	case gen != o.searchGen:
		o.logger.Debug("stale search result discarded", "query", query, "page", page, "generation", gen, "current", o.searchGen)
	case err != nil:
		o.logger.Warn("search failed", "query", query, "page", page, "error", err)
		o.err = err
	default:
		o.view = SearchView{
			Query: query,
			Page:  *res,
			Pagination: catalog.Pagination{
				Page:       page,
				PerPage:    catalog.PageSize,
				Total:      res.Total,
				TotalPages: res.TotalPages,
			},
		}
	}
	st := o.snapshotLocked()
	o.mu.Unlock()
	o.notify(st)
}

func (o *Orchestrator) finishRandom(gen uint64, images []catalog.Image, err error) {
	o.mu.Lock()
	o.inflight--
	if o.closed {
		o.mu.Unlock()
		return
	}
	switch {
	case gen != o.randomGen:
		o.logger.Debug("stale random result discarded", "generation", gen, "current", o.randomGen)
	case err != nil:
		// a failed refresh keeps the last good set; before one has loaded it stays empty
		o.logger.Warn("random fetch failed", "error", err)
		o.err = err
	default:
		o.random = images
	}
	if _, ok := o.view.(RandomView); ok {
		o.view = RandomView{Random: o.random}
	}
	st := o.snapshotLocked()
	o.mu.Unlock()
	o.notify(st)
}

// begin marks a call as outstanding and clears the previous error.
func (o *Orchestrator) begin() {
	o.inflight++
	o.err = nil
}

// resetLocked switches to random mode and invalidates in-flight searches.
func (o *Orchestrator) resetLocked() {
	o.searchGen++
	o.view = RandomView{Random: o.random}
}

func (o *Orchestrator) snapshotLocked() State {
	return State{
		View:    o.view,
		Input:   o.input,
		Loading: o.inflight > 0,
		Err:     o.err,
	}
}

func (o *Orchestrator) notify(st State) {
	o.mu.Lock()
	observers := append([]func(State){}, o.observers...)
	o.mu.Unlock()
	for _, fn := range observers {
		fn(st)
	}
}
