package studio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arawak/thankyou/internal/card"
	"github.com/arawak/thankyou/internal/catalog"
	"github.com/arawak/thankyou/internal/design"
	"github.com/arawak/thankyou/internal/search"
	"github.com/arawak/thankyou/internal/store"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrUnknownImage    = errors.New("unknown image")
	ErrInvalidInput    = errors.New("invalid input")
	ErrTooManySessions = errors.New("too many sessions")
)

const indexTimeout = 5 * time.Second

// DesignInput carries a partial update of the design inputs. Nil fields are
// left unchanged; an empty ImageID deselects the image.
type DesignInput struct {
	ImageID *string `json:"imageId,omitempty"`
	Name    *string `json:"name,omitempty"`
	Font    *string `json:"font,omitempty"`
	Color   *string `json:"color,omitempty"`
}

type DesignStatus struct {
	HasDesign bool
	Prompt    string
	ImageID   string
	Name      string
	Font      design.Font
	Color     design.Color
	Preview   card.Status
}

// Session is one user's workspace.
type Session struct {
	ID      string
	Created time.Time

	search  *search.Orchestrator
	preview *card.Preview
	index   store.Index
	logger  *slog.Logger

	// unix nanoseconds of the last lookup through the manager
	lastUsed atomic.Int64

	mu    sync.Mutex
	image *catalog.Image
	name  string
	font  design.Font
	color design.Color
}

// LastUsed reports when the session was last looked up.
func (s *Session) LastUsed() time.Time {
	return time.Unix(0, s.lastUsed.Load()).UTC()
}

func (s *Session) touch(now time.Time) {
	s.lastUsed.Store(now.UnixNano())
}

func (s *Session) Search() *search.Orchestrator {
	return s.search
}

func (s *Session) Preview() *card.Preview {
	return s.preview
}

// SetDesign applies in and recomputes the design.
func (s *Session) SetDesign(ctx context.Context, in DesignInput) (DesignStatus, error) {
	var (
		img      *catalog.Image
		imgSet   bool
		font     design.Font
		fontSet  bool
		color    design.Color
		colorSet bool
	)
	if in.ImageID != nil {
		imgSet = true
		if *in.ImageID != "" {
			resolved, err := s.resolveImage(ctx, *in.ImageID)
			if err != nil {
				return DesignStatus{}, err
			}
			img = resolved
		}
	}
	if in.Font != nil {
		f, err := design.ParseFont(*in.Font)
		if err != nil {
			return DesignStatus{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		font, fontSet = f, true
	}
	if in.Color != nil {
		c, err := design.ParseColor(*in.Color)
		if err != nil {
			return DesignStatus{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		color, colorSet = c, true
	}

	s.mu.Lock()
	if imgSet {
		s.image = img
	}
	if in.Name != nil {
		s.name = *in.Name
	}
	if fontSet {
		s.font = font
	}
	if colorSet {
		s.color = color
	}
	cfg := design.Build(s.image, s.name, s.font, s.color)
	s.preview.Update(cfg)
	s.mu.Unlock()

	return s.DesignStatus(), nil
}

func (s *Session) DesignStatus() DesignStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := DesignStatus{
		HasDesign: s.preview.Design() != nil,
		Prompt:    design.Prompt(s.image, s.name),
		Name:      s.name,
		Font:      s.font,
		Color:     s.color,
		Preview:   s.preview.Status(),
	}
	if s.image != nil {
		st.ImageID = s.image.ID
	}
	return st
}

// resolveImage looks the id up in the images currently on screen first,
// then in the catalog index.
func (s *Session) resolveImage(ctx context.Context, id string) (*catalog.Image, error) {
	images := s.search.Snapshot().View.Images()
	for i := range images {
		if images[i].ID == id {
			img := images[i]
			return &img, nil
		}
	}
	img, err := s.index.GetImage(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownImage, id)
	}
	if err != nil {
		return nil, fmt.Errorf("resolve image: %w", err)
	}
	return img, nil
}

// remember feeds the catalog index with whatever the user is shown.
func (s *Session) remember(st search.State) {
	images := st.View.Images()
	if len(images) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), indexTimeout)
	defer cancel()
	if err := s.index.PutImages(ctx, images); err != nil {
		s.logger.Warn("index images failed", "session", s.ID, "count", len(images), "error", err)
	}
}

func (s *Session) close() {
	s.search.Close()
	s.preview.Close()
}
