package unsplash

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/arawak/thankyou/internal/catalog"
)

const (
	DefaultBaseURL = "https://api.unsplash.com"

	// Cards are portrait, so every request pins the orientation.
	orientation = "portrait"
)

// Client talks to the Unsplash REST API.
type Client struct {
	baseURL    string
	accessKey  string
	httpClient *http.Client
	logger     *slog.Logger
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(u, "/")
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a client. A blank access key is a StartupError.
func New(accessKey string, opts ...Option) (*Client, error) {
	accessKey = strings.TrimSpace(accessKey)
	if accessKey == "" {
		return nil, &StartupError{Reason: "missing access key"}
	}
	c := &Client{
		baseURL:   DefaultBaseURL,
		accessKey: accessKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Random fetches count random portrait photos.
func (c *Client) Random(ctx context.Context, count int) ([]catalog.Image, error) {
	if count <= 0 {
		return nil, fmt.Errorf("random count must be positive, got %d", count)
	}
	params := url.Values{}
	params.Set("count", strconv.Itoa(count))
	params.Set("orientation", orientation)

	var images []catalog.Image
	if err := c.get(ctx, "/photos/random", params, &images); err != nil {
		return nil, err
	}
	return images, nil
}

// Search runs a keyword search. Callers must trim the query first.
func (c *Client) Search(ctx context.Context, query string, page, perPage int) (*catalog.Page, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if page <= 0 || perPage <= 0 {
		return nil, fmt.Errorf("invalid paging page=%d per_page=%d", page, perPage)
	}
	params := url.Values{}
	params.Set("query", query)
	params.Set("page", strconv.Itoa(page))
	params.Set("per_page", strconv.Itoa(perPage))
	params.Set("orientation", orientation)

	var result catalog.Page
	if err := c.get(ctx, "/search/photos", params, &result); err != nil {
		return nil, err
	}
	if result.Results == nil {
		result.Results = []catalog.Image{}
	}
	return &result, nil
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values, out any) error {
	reqURL := c.baseURL + endpoint + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return &ProviderError{Kind: KindNetwork, Endpoint: endpoint, Err: err}
	}
	req.Header.Set("Authorization", "Client-ID "+c.accessKey)
	req.Header.Set("Accept-Version", "v1")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("unsplash request failed", "endpoint", endpoint, "error", err)
		return &ProviderError{Kind: KindNetwork, Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	c.logger.Debug("unsplash request", "endpoint", endpoint, "status", resp.StatusCode, "duration", time.Since(start).String())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return &ProviderError{Kind: KindStatus, Endpoint: endpoint, StatusCode: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ProviderError{Kind: KindNetwork, Endpoint: endpoint, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
