package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/ariefcatur/go-storefront/internal/model"
)

// TokenHeader carries the session token on every authenticated call.
const TokenHeader = "x-auth-token"

type Config struct {
	BaseURL    string
	Timeout    time.Duration
	ProductTTL time.Duration
	UserAgent  string
}

type cachedProduct struct {
	product model.Product
	expiry  time.Time
}

// Client talks JSON to the storefront backend.
type Client struct {
	client *http.Client
	config Config

	cacheMu  sync.RWMutex
	products map[int64]cachedProduct
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "go-storefront"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		client: &http.Client{
			Transport: &HeaderTransport{UserAgent: cfg.UserAgent, Base: http.DefaultTransport},
			Timeout:   cfg.Timeout,
		},
		config:   cfg,
		products: make(map[int64]cachedProduct),
	}
}

// HeaderTransport sets the headers every backend call carries.
type HeaderTransport struct {
	UserAgent string
	Base      http.RoundTripper
}

func (t *HeaderTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", "br")
	req.Header.Set("User-Agent", t.UserAgent)
	return t.Base.RoundTrip(req)
}

func (c *Client) newRequest(ctx context.Context, method, path, token string, body any) (*http.Request, error) {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, r)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set(TokenHeader, token)
	}
	return req, nil
}

// call sends a JSON request and decodes the JSON response into out, when out
// is non-nil.
func (c *Client) call(ctx context.Context, method, path, token string, body, out any) error {
	req, err := c.newRequest(ctx, method, path, token, body)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	if resp.Header.Get("Content-Encoding") == "br" {
		resp.Body = &readCloserWrapper{Reader: brotli.NewReader(resp.Body), Closer: resp.Body}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", req.Method, req.URL.Path, err)
	}
	return nil
}

type readCloserWrapper struct {
	io.Reader
	io.Closer
}

func (r *readCloserWrapper) Read(p []byte) (n int, err error) {
	return r.Reader.Read(p)
}

func (r *readCloserWrapper) Close() error {
	return r.Closer.Close()
}
