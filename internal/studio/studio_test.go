package studio

import (
	"context"
	"fmt"
	"image"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arawak/thankyou/internal/card"
	"github.com/arawak/thankyou/internal/catalog"
	"github.com/arawak/thankyou/internal/design"
	"github.com/arawak/thankyou/internal/search"
	"github.com/arawak/thankyou/internal/store"
)

type stubProvider struct{}

func (stubProvider) Random(_ context.Context, count int) ([]catalog.Image, error) {
	out := make([]catalog.Image, count)
	for i := range out {
		out[i] = catalog.Image{ID: fmt.Sprintf("r-%d", i), URLs: catalog.URLs{Regular: fmt.Sprintf("https://img.example/r-%d", i)}}
	}
	return out, nil
}

func (stubProvider) Search(_ context.Context, query string, page, perPage int) (*catalog.Page, error) {
	return &catalog.Page{
		Results:    []catalog.Image{{ID: query + "-1"}},
		Total:      1,
		TotalPages: 1,
	}, nil
}

type stubComposer struct{}

func (stubComposer) Render(_ context.Context, d *design.Config) (*image.NRGBA, error) {
	return image.NewNRGBA(image.Rect(0, 0, card.Width, card.Height)), nil
}

func ptr(s string) *string { return &s }

func newManager(t *testing.T, idx store.Index) *Manager {
	t.Helper()
	m := NewManager(context.Background(), stubProvider{}, stubComposer{}, idx, WithDebounce(10*time.Millisecond))
	t.Cleanup(m.Close)
	return m
}

func waitLoaded(t *testing.T, s *Session) {
	t.Helper()
	require.Eventually(t, func() bool {
		st := s.Search().Snapshot()
		return !st.Loading && len(st.View.Images()) > 0
	}, time.Second, 5*time.Millisecond)
}

func TestCreateIndexesRandomImages(t *testing.T) {
	idx := store.NewMemory()
	m := newManager(t, idx)

	s, err := m.Create()
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, 1, m.Len())

	require.Eventually(t, func() bool {
		_, err := idx.GetImage(context.Background(), "r-0")
		return err == nil
	}, time.Second, 5*time.Millisecond)
}

func TestSetDesignBuildsAndExports(t *testing.T) {
	m := newManager(t, nil)
	s, err := m.Create()
	require.NoError(t, err)
	waitLoaded(t, s)

	st := s.DesignStatus()
	assert.False(t, st.HasDesign)
	assert.Equal(t, "Select an image to preview your card", st.Prompt)
	assert.Equal(t, design.Fonts[0], st.Font)
	assert.Equal(t, design.Colors[0], st.Color)

	st, err = s.SetDesign(context.Background(), DesignInput{ImageID: ptr("r-1"), Name: ptr("   ")})
	require.NoError(t, err)
	assert.False(t, st.HasDesign)
	assert.Equal(t, "Please enter your name to generate the card", st.Prompt)

	st, err = s.SetDesign(context.Background(), DesignInput{Name: ptr("  Ada "), Font: ptr("Georgia"), Color: ptr("#ff6b6b")})
	require.NoError(t, err)
	assert.True(t, st.HasDesign)
	assert.Empty(t, st.Prompt)
	assert.Equal(t, "r-1", st.ImageID)
	assert.Equal(t, design.FontGeorgia, st.Font)
	assert.Equal(t, design.Color("#FF6B6B"), st.Color)

	cfg := s.Preview().Design()
	require.NotNil(t, cfg)
	assert.Equal(t, "Ada", cfg.UserName)

	require.NoError(t, s.Preview().Wait(context.Background()))
	exp, err := s.Preview().Export()
	require.NoError(t, err)
	assert.Regexp(t, `^thank-you-card-\d+\.png$`, exp.Filename)
	assert.True(t, s.DesignStatus().Preview.Ready)
}

func TestSetDesignDeselectClearsDesign(t *testing.T) {
	m := newManager(t, nil)
	s, err := m.Create()
	require.NoError(t, err)
	waitLoaded(t, s)

	_, err = s.SetDesign(context.Background(), DesignInput{ImageID: ptr("r-0"), Name: ptr("Ada")})
	require.NoError(t, err)
	st, err := s.SetDesign(context.Background(), DesignInput{ImageID: ptr("")})
	require.NoError(t, err)
	assert.False(t, st.HasDesign)
	assert.Equal(t, "Ada", st.Name)
	_, ok := s.Preview().Frame()
	assert.False(t, ok)
}

func TestSetDesignResolvesFromIndex(t *testing.T) {
	idx := store.NewMemory()
	require.NoError(t, idx.PutImages(context.Background(), []catalog.Image{{ID: "older"}}))
	m := newManager(t, idx)
	s, err := m.Create()
	require.NoError(t, err)

	st, err := s.SetDesign(context.Background(), DesignInput{ImageID: ptr("older"), Name: ptr("Ada")})
	require.NoError(t, err)
	assert.Equal(t, "older", st.ImageID)
}

func TestSetDesignRejectsBadInput(t *testing.T) {
	m := newManager(t, nil)
	s, err := m.Create()
	require.NoError(t, err)
	waitLoaded(t, s)

	_, err = s.SetDesign(context.Background(), DesignInput{ImageID: ptr("nope")})
	assert.ErrorIs(t, err, ErrUnknownImage)

	_, err = s.SetDesign(context.Background(), DesignInput{Font: ptr("Comic Sans MS")})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = s.SetDesign(context.Background(), DesignInput{Color: ptr("#123456")})
	assert.ErrorIs(t, err, ErrInvalidInput)

	// rejected updates leave the inputs untouched
	st := s.DesignStatus()
	assert.Equal(t, design.Fonts[0], st.Font)
	assert.Equal(t, design.Colors[0], st.Color)
}

func TestDeleteSession(t *testing.T) {
	m := newManager(t, nil)
	s, err := m.Create()
	require.NoError(t, err)

	got, err := m.Get(s.ID)
	require.NoError(t, err)
	assert.Same(t, s, got)

	require.NoError(t, m.Delete(s.ID))
	_, err = m.Get(s.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, m.Delete(s.ID), ErrSessionNotFound)
	assert.Equal(t, 0, m.Len())
}

type fakeClock struct {
	nanos atomic.Int64
}

func newFakeClock() *fakeClock {
	c := &fakeClock{}
	c.nanos.Store(time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC).UnixNano())
	return c
}

func (c *fakeClock) Now() time.Time {
	return time.Unix(0, c.nanos.Load())
}

func (c *fakeClock) Advance(d time.Duration) {
	c.nanos.Add(int64(d))
}

func withClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

func TestSweepEvictsIdleSessions(t *testing.T) {
	clock := newFakeClock()
	m := NewManager(context.Background(), stubProvider{}, stubComposer{}, nil,
		WithDebounce(10*time.Millisecond), WithSessionTTL(time.Minute), withClock(clock.Now))
	t.Cleanup(m.Close)

	idle, err := m.Create()
	require.NoError(t, err)
	busy, err := m.Create()
	require.NoError(t, err)

	clock.Advance(40 * time.Second)
	_, err = m.Get(busy.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, m.Sweep())

	clock.Advance(40 * time.Second)
	assert.Equal(t, 1, m.Sweep())
	_, err = m.Get(idle.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = m.Get(busy.ID)
	require.NoError(t, err)

	assert.ErrorIs(t, idle.Search().Page(2), search.ErrClosed)

	clock.Advance(2 * time.Minute)
	assert.Equal(t, 1, m.Sweep())
	assert.Equal(t, 0, m.Len())
}

func TestIdleSessionExpiresInBackground(t *testing.T) {
	m := NewManager(context.Background(), stubProvider{}, stubComposer{}, nil,
		WithDebounce(10*time.Millisecond), WithSessionTTL(30*time.Millisecond))
	t.Cleanup(m.Close)

	s, err := m.Create()
	require.NoError(t, err)
	require.Eventually(t, func() bool { return m.Len() == 0 }, 2*time.Second, 5*time.Millisecond)
	_, err = m.Get(s.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSweepDisabledWithoutTTL(t *testing.T) {
	clock := newFakeClock()
	m := NewManager(context.Background(), stubProvider{}, stubComposer{}, nil, withClock(clock.Now))
	t.Cleanup(m.Close)

	_, err := m.Create()
	require.NoError(t, err)
	clock.Advance(24 * time.Hour)
	assert.Equal(t, 0, m.Sweep())
	assert.Equal(t, 1, m.Len())
}

func TestCreateRespectsMaxSessions(t *testing.T) {
	clock := newFakeClock()
	m := NewManager(context.Background(), stubProvider{}, stubComposer{}, nil,
		WithSessionTTL(time.Hour), WithMaxSessions(2), withClock(clock.Now))
	t.Cleanup(m.Close)

	first, err := m.Create()
	require.NoError(t, err)
	_, err = m.Create()
	require.NoError(t, err)

	_, err = m.Create()
	assert.ErrorIs(t, err, ErrTooManySessions)
	assert.Equal(t, 2, m.Len())

	require.NoError(t, m.Delete(first.ID))
	_, err = m.Create()
	require.NoError(t, err)

	// a full manager makes room by evicting idle sessions first
	clock.Advance(2 * time.Hour)
	_, err = m.Create()
	require.NoError(t, err)
	assert.Equal(t, 1, m.Len())
}
