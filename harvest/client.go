package harvest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/brequin/catalog/config"
	"github.com/brequin/catalog/metrics"
)

var ErrAttemptsExhausted = errors.New("harvest: attempts exhausted")

type statusError struct {
	code int
}

func (e statusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.code)
}

// Request is a GET, or a form POST when Form is set. NoCache bypasses the
// page cache in both directions.
type Request struct {
	URL     string
	Form    url.Values
	NoCache bool
}

func (r Request) key() string {
	if r.Form == nil {
		return "GET " + r.URL
	}
	return "POST " + r.URL + "?" + r.Form.Encode()
}

// Client fetches catalog pages through a dispatcher pool, retrying failed
// attempts on whichever dispatcher frees up next.
type Client struct {
	pool        *Pool
	cache       PageCache
	log         *zap.Logger
	metrics     *metrics.Metrics
	timeout     time.Duration
	maxAttempts int
	userAgent   string
}

// NewClient builds a client from harvest settings. cache may be nil.
func NewClient(pool *Pool, cache PageCache, cfg config.HarvestConfig, log *zap.Logger, m *metrics.Metrics) *Client {
	return &Client{
		pool:        pool,
		cache:       cache,
		log:         log,
		metrics:     m,
		timeout:     cfg.Timeout,
		maxAttempts: max(cfg.MaxAttempts, 1),
		userAgent:   cfg.UserAgent,
	}
}

func (c *Client) Get(ctx context.Context, rawURL string) ([]byte, error) {
	return c.Do(ctx, Request{URL: rawURL})
}

func (c *Client) Post(ctx context.Context, rawURL string, form url.Values) ([]byte, error) {
	return c.Do(ctx, Request{URL: rawURL, Form: form})
}

func (c *Client) Do(ctx context.Context, req Request) ([]byte, error) {
	key := req.key()
	cache := c.cache
	if req.NoCache {
		cache = nil
	}
	if cache != nil {
		page, ok, err := cache.Get(ctx, key)
		if err != nil {
			c.log.Warn("page cache read failed", zap.Error(err))
		}
		c.metrics.ObservePageCache(ok)
		if ok {
			return page, nil
		}
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		d, err := c.pool.Acquire(ctx)
		if err != nil {
			return nil, err
		}

		page, err := c.attempt(ctx, d, req)
		c.pool.Release(d, err != nil)
		if err == nil {
			c.metrics.ObserveRequest(d.Name, "ok")
			if cache != nil {
				if err := cache.Set(ctx, key, page); err != nil {
					c.log.Warn("page cache write failed", zap.Error(err))
				}
			}
			return page, nil
		}

		c.metrics.ObserveRequest(d.Name, "error")
		c.log.Debug("request failed",
			zap.String("url", req.URL),
			zap.String("dispatcher", d.Name),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		lastErr = err

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("%w: %s after %d attempts: %v", ErrAttemptsExhausted, req.URL, c.maxAttempts, lastErr)
}

func (c *Client) attempt(ctx context.Context, d *Dispatcher, req Request) ([]byte, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	method, body := http.MethodGet, io.Reader(nil)
	if req.Form != nil {
		method, body = http.MethodPost, strings.NewReader(req.Form.Encode())
	}

	request, err := http.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return nil, err
	}
	if req.Form != nil {
		request.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if c.userAgent != "" {
		request.Header.Set("User-Agent", c.userAgent)
	}
	request.Header.Add("X-Requested-With", "XMLHttpRequest")

	response, err := d.client.Do(request)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return nil, statusError{code: response.StatusCode}
	}
	return io.ReadAll(response.Body)
}
