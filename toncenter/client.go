package toncenter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	MainnetURL = "https://toncenter.com"
	TestnetURL = "https://testnet.toncenter.com"
)

type Client struct {
	http    *http.Client
	baseURL string // e.g. "https://toncenter.com"
	apiKey  string // used as X-API-Key; if empty, no auth header is set

	rl  *slidingLimiter
	log *slog.Logger
}

// Option configures Client.
type Option func(*Client)

// WithAPIKey sets X-API-Key header.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithHTTPClient allows custom http.Client (retries, tracing, proxy, etc).
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithRateLimit limits requests per second, set 0 for no limit, default 0
func WithRateLimit(maxPerSec float64) Option {
	return func(c *Client) {
		if maxPerSec > 0 {
			period := 1 * time.Second
			if maxPerSec < 1 {
				period = time.Duration(math.Round(float64(time.Second) / maxPerSec))
				if period < time.Millisecond {
					period = time.Millisecond
				}
				maxPerSec = 1
			}

			c.rl = newSlidingLimiter(int(maxPerSec), period)
		}
	}
}

// WithTimeout sets http.Client timeout if a default client is used.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if c.http == nil {
			c.http = &http.Client{Timeout: d}
			return
		}
		c.http.Timeout = d
	}
}

// WithLogger enables debug records of every request, api key is never logged.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.log = l
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   10 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout:   10 * time.Second,
				ExpectContinueTimeout: 1 * time.Second,
				MaxIdleConns:          100,
				IdleConnTimeout:       90 * time.Second,
			},
		},
	}

	for _, opt := range opts {
		opt(c)
	}
	return c
}

type slidingLimiter struct {
	mu     sync.Mutex
	window time.Duration
	max    int
	times  []time.Time // sorted start times of the requests in the window
}

func newSlidingLimiter(max int, window time.Duration) *slidingLimiter {
	return &slidingLimiter{
		window: window,
		max:    max,
		times:  make([]time.Time, 0, max),
	}
}

func (l *slidingLimiter) wait(ctx context.Context) error {
	for {
		now := time.Now()
		cutoff := now.Add(-l.window)

		l.mu.Lock()
		i := 0
		for i < len(l.times) && l.times[i].Before(cutoff) {
			i++
		}
		if i > 0 {
			l.times = l.times[i:]
		}

		if len(l.times) < l.max {
			l.times = append(l.times, now)
			l.mu.Unlock()
			return nil
		}

		waitUntil := l.times[0].Add(l.window)
		l.mu.Unlock()

		d := time.Until(waitUntil)
		if d <= 0 {
			continue
		}

		timer := time.NewTimer(d)
		select {
		case <-ctx.Done():
			if !timer.Stop() {
				<-timer.C
			}
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// APIError is returned when toncenter responds with an error status or ok=false.
type APIError struct {
	StatusCode int
	Code       int
	Message    string
}

func (e *APIError) Error() string {
	code := e.Code
	if code == 0 {
		code = e.StatusCode
	}
	return fmt.Sprintf("toncenter api error, code %d: %s", code, e.Message)
}

// IsNotFound reports whether the requested entity doesn't exist.
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound || e.Code == http.StatusNotFound ||
		strings.Contains(strings.ToLower(e.Message), "not found")
}

type Response[T any] struct {
	Ok     bool   `json:"ok"`
	Result T      `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
	Code   *int   `json:"code,omitempty"`
}

func doGET[T any](ctx context.Context, c *Client, path string, q url.Values) (*T, error) {
	u := path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	return do[T](c, req)
}

func doPOST[T any](ctx context.Context, c *Client, path string, body any) (*T, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, path, &buf)
	if err != nil {
		return nil, err
	}

	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	req.Header.Set("Content-Type", "application/json")

	return do[T](c, req)
}

func do[T any](c *Client, req *http.Request) (*T, error) {
	if c.rl != nil {
		if err := c.rl.wait(req.Context()); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if c.log != nil {
		c.log.Debug("toncenter request",
			slog.String("method", req.Method),
			slog.String("path", req.URL.Path),
			slog.Int("status", resp.StatusCode),
			slog.Duration("took", time.Since(start)),
		)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 150<<20)) // 150MB cap
	if err != nil {
		return nil, err
	}

	var tr Response[T]
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}

		var trErr Response[json.RawMessage]
		if err = json.Unmarshal(body, &trErr); err == nil && trErr.Error != "" {
			apiErr.Message = trErr.Error
			if trErr.Code != nil {
				apiErr.Code = *trErr.Code
			}
		} else {
			apiErr.Message = strings.TrimSpace(string(body))
		}
		return nil, apiErr
	}

	if err = json.Unmarshal(body, &tr); err != nil {
		return nil, fmt.Errorf("toncenter response decode error: %w; body=%s", err, string(body))
	}

	if !tr.Ok {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: tr.Error}
		if tr.Code != nil {
			apiErr.Code = *tr.Code
		}
		return nil, apiErr
	}
	return &tr.Result, nil
}
