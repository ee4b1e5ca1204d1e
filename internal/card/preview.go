package card

import (
	"context"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/arawak/thankyou/internal/design"
)

// Composer renders a design into a finished surface.
type Composer interface {
	Render(ctx context.Context, d *design.Config) (*image.NRGBA, error)
}

// Status describes the preview for callers that show it.
type Status struct {
	HasDesign bool
	Rendering bool
	// Ready is true when the frame belongs to the current design.
	Ready bool
	Err   error
}

// Preview keeps the live card frame for one design stream. Every Update
// starts a new render attempt with its own generation; results from
// superseded attempts are dropped, and a failed attempt leaves the last good
// frame in place.
type Preview struct {
	composer Composer
	logger   *slog.Logger
	now      func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu            sync.Mutex
	gen           uint64
	design        *design.Config
	frame         *image.NRGBA
	frameGen      uint64
	lastErr       error
	settled       chan struct{}
	cancelAttempt context.CancelFunc
}

type PreviewOption func(*Preview)

func WithClock(now func() time.Time) PreviewOption {
	return func(p *Preview) {
		if now != nil {
			p.now = now
		}
	}
}

func WithPreviewLogger(l *slog.Logger) PreviewOption {
	return func(p *Preview) {
		if l != nil {
			p.logger = l
		}
	}
}

func NewPreview(ctx context.Context, c Composer, opts ...PreviewOption) *Preview {
	ctx, cancel := context.WithCancel(ctx)
	settled := make(chan struct{})
	close(settled)
	p := &Preview{
		composer: c,
		logger:   slog.Default(),
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
		settled:  settled,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Update replaces the design and re-renders it from scratch. A nil design
// clears the preview back to the placeholder.
func (p *Preview) Update(d *design.Config) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.gen++
	gen := p.gen
	p.design = d
	if p.cancelAttempt != nil {
		p.cancelAttempt()
		p.cancelAttempt = nil
	}
	if d == nil {
		p.frame = nil
		p.frameGen = gen
		p.lastErr = nil
		p.settled = closedChan()
		return
	}
	if p.ctx.Err() != nil {
		p.lastErr = p.ctx.Err()
		p.settled = closedChan()
		return
	}

	ctx, cancel := context.WithCancel(p.ctx)
	p.cancelAttempt = cancel
	done := make(chan struct{})
	p.settled = done

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer close(done)
		defer cancel()
		frame, err := p.composer.Render(ctx, d)
		p.finish(gen, frame, err)
	}()
}

func (p *Preview) finish(gen uint64, frame *image.NRGBA, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.gen {
		p.logger.Debug("superseded render discarded", "generation", gen, "current", p.gen)
		return
	}
	p.cancelAttempt = nil
	if err != nil {
		p.logger.Warn("card render failed", "error", err)
		p.lastErr = err
		return
	}
	p.frame = frame
	p.frameGen = gen
	p.lastErr = nil
}

// Wait blocks until the most recent render attempt has settled.
func (p *Preview) Wait(ctx context.Context) error {
	p.mu.Lock()
	settled := p.settled
	p.mu.Unlock()
	select {
	case <-settled:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Frame returns the last successfully rendered surface, if any.
func (p *Preview) Frame() (*image.NRGBA, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.frame, p.frame != nil
}

func (p *Preview) Design() *design.Config {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.design
}

func (p *Preview) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	ready := p.design != nil && p.frame != nil && p.frameGen == p.gen
	return Status{
		HasDesign: p.design != nil,
		Rendering: p.design != nil && p.cancelAttempt != nil,
		Ready:     ready,
		Err:       p.lastErr,
	}
}

// Export encodes the frame of the current design. It is a no-op returning
// ErrNoDesign without a design, and ErrNotReady until that design has been
// rendered successfully.
func (p *Preview) Export() (*Export, error) {
	p.mu.Lock()
	if p.design == nil {
		p.mu.Unlock()
		return nil, ErrNoDesign
	}
	if p.frame == nil || p.frameGen != p.gen {
		p.mu.Unlock()
		return nil, ErrNotReady
	}
	frame := p.frame
	p.mu.Unlock()

	data, err := EncodePNG(frame)
	if err != nil {
		return nil, err
	}
	return &Export{Filename: FileName(p.now()), Data: data}, nil
}

// Close cancels any render in flight and waits for it to exit.
func (p *Preview) Close() {
	p.cancel()
	p.wg.Wait()
}

func closedChan() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
