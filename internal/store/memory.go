package store

import (
	"context"
	"sync"

	"github.com/arawak/thankyou/internal/catalog"
)

// Memory is an in-process Index used when no database is configured.
type Memory struct {
	mu     sync.RWMutex
	images map[string]catalog.Image
}

func NewMemory() *Memory {
	return &Memory{images: make(map[string]catalog.Image)}
}

func (m *Memory) PutImages(_ context.Context, images []catalog.Image) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, img := range images {
		if img.ID == "" {
			continue
		}
		m.images[img.ID] = img
	}
	return nil
}

func (m *Memory) GetImage(_ context.Context, id string) (*catalog.Image, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	img, ok := m.images[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &img, nil
}

func (m *Memory) Ping(context.Context) error {
	return nil
}
