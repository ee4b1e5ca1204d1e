package media

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

const (
	VariantSource = "source"
)

var ErrTooLarge = errors.New("image too large")
var ErrInvalidImage = errors.New("invalid image")

// Manager downloads and decodes remote photos. When root is set, raw
// downloads are cached on disk keyed by the SHA-256 of the URL.
type Manager struct {
	root       string
	httpClient *http.Client
	maxBytes   int64
	maxPixels  int
	logger     *slog.Logger
}

type Option func(*Manager)

func WithHTTPClient(hc *http.Client) Option {
	return func(m *Manager) {
		if hc != nil {
			m.httpClient = hc
		}
	}
}

func WithLimits(maxBytes int64, maxPixels int) Option {
	return func(m *Manager) {
		if maxBytes > 0 {
			m.maxBytes = maxBytes
		}
		if maxPixels > 0 {
			m.maxPixels = maxPixels
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

func NewManager(root string, opts ...Option) *Manager {
	m := &Manager{
		root:       root,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		maxBytes:   20 * 1024 * 1024,
		maxPixels:  50_000_000,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Load returns the fully decoded bitmap at url.
func (m *Manager) Load(ctx context.Context, url string) (image.Image, error) {
	key := cacheKey(url)
	if m.root != "" {
		if data, err := os.ReadFile(m.pathFor(key, VariantSource, ".img")); err == nil {
			img, err := m.decode(data)
			if err == nil {
				return img, nil
			}
			m.logger.Warn("discarding unreadable cached image", "url", url, "error", err)
		}
	}

	data, err := m.fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	img, err := m.decode(data)
	if err != nil {
		return nil, err
	}
	if m.root != "" {
		if err := m.save(key, data); err != nil {
			m.logger.Warn("failed to cache image", "url", url, "error", err)
		}
	}
	return img, nil
}

func (m *Manager) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build image request: %w", err)
	}
	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image URL returned status %d", resp.StatusCode)
	}

	lim := &io.LimitedReader{R: resp.Body, N: m.maxBytes + 1}
	data, err := io.ReadAll(lim)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if int64(len(data)) > m.maxBytes {
		return nil, ErrTooLarge
	}
	return data, nil
}

func (m *Manager) decode(data []byte) (image.Image, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, ErrInvalidImage
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width*cfg.Height > m.maxPixels {
		return nil, ErrInvalidImage
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return img, nil
}

func (m *Manager) save(key string, data []byte) error {
	path := m.pathFor(key, VariantSource, ".img")
	if err := m.ensureDir(path); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "download-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func (m *Manager) ensureDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}

func cacheKey(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])
}

func (m *Manager) pathFor(sha, variant, ext string) string {
	prefix1 := sha[0:2]
	prefix2 := sha[2:4]
	return filepath.Join(m.root, variant, prefix1, prefix2, sha+ext)
}

// IsWritable reports whether the cache directory accepts writes. A manager
// without a cache directory is always writable.
func (m *Manager) IsWritable() error {
	if m.root == "" {
		return nil
	}
	testPath := filepath.Join(m.root, ".writetest")
	if err := os.MkdirAll(m.root, 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(testPath, []byte("ok"), 0o644); err != nil {
		return err
	}
	return os.Remove(testPath)
}
