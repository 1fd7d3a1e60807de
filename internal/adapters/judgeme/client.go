// internal/adapters/judgeme/client.go
package judgeme

import (
	"bytes"
	"context"
	crand "crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"review_proxy/internal/adapters/observability"
	"review_proxy/internal/domain"
)

const (
	PageSize = 100
	MaxPages = 10

	service = "judgeme"
)

type Client struct {
	base  string
	token string
	shop  string
	hc    *http.Client
	rl    *rate.Limiter
	cb    *gobreaker.CircuitBreaker[[]byte]
}

func New(base, token, shop string, rps int) (*Client, error) {
	if token == "" || shop == "" {
		return nil, fmt.Errorf("judge.me api token and shop domain are required")
	}
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		base:  strings.TrimRight(base, "/"),
		token: token,
		shop:  shop,
		hc:    &http.Client{Timeout: 20 * time.Second},
		rl:    rate.NewLimiter(rate.Limit(rps), rps),
		cb: gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
			Name:        service,
			MaxRequests: 1,
			Interval:    60 * time.Second,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.Requests >= 5 && float64(c.TotalFailures)/float64(c.Requests) >= 0.5
			},
			// 4xx are answers, not outages.
			IsSuccessful: func(err error) bool {
				var se *StatusError
				if errors.As(err, &se) {
					return se.Status < 500
				}
				return err == nil
			},
		}),
	}, nil
}

// StatusError is a non-2xx upstream answer.
type StatusError struct {
	Status int
	Body   []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("judge.me status %d: %s", e.Status, strings.TrimSpace(string(e.Body)))
}

// ---- Public API ----

// FetchAllReviews walks the review listing page by page, at most MaxPages pages.
// Any failing page aborts the whole call.
func (c *Client) FetchAllReviews(ctx context.Context) ([]domain.RawReview, error) {
	var all []domain.RawReview
	for page := 1; page <= MaxPages; page++ {
		q := c.authQuery()
		q.Set("per_page", strconv.Itoa(PageSize))
		q.Set("page", strconv.Itoa(page))

		var out struct {
			Reviews []domain.RawReview `json:"reviews"`
		}
		if err := c.getJSON(ctx, "reviews", "/reviews?"+q.Encode(), &out); err != nil {
			return nil, fetchError(err)
		}
		all = append(all, out.Reviews...)
		if len(out.Reviews) < PageSize {
			break
		}
	}
	return all, nil
}

// LookupProductByHandle resolves a storefront handle to the platform product id.
// Judge.me addresses "lookup by handle" as product -1.
func (c *Client) LookupProductByHandle(ctx context.Context, handle string) (int64, error) {
	q := c.authQuery()
	q.Set("handle", handle)

	var out struct {
		Product map[string]any `json:"product"`
	}
	if err := c.getJSON(ctx, "products", "/products/-1?"+q.Encode(), &out); err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.Status == http.StatusNotFound {
			return 0, domain.ErrNotFound
		}
		return 0, err
	}
	switch v := out.Product["external_id"].(type) {
	case json.Number:
		if n, err := v.Int64(); err == nil && n > 0 {
			return n, nil
		}
	case string:
		if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil && n > 0 {
			return n, nil
		}
	}
	return 0, domain.ErrNotFound
}

// SubmitReview posts a new review. Rejections come back as *domain.UpstreamSubmitError.
func (c *Client) SubmitReview(ctx context.Context, p domain.SubmissionPayload) (map[string]any, error) {
	if p.ShopDomain == "" {
		p.ShopDomain = c.shop
	}
	body, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode review payload: %w", err)
	}

	q := c.authQuery()
	raw, err := c.do(ctx, http.MethodPost, "submit", c.base+"/reviews?"+q.Encode(), body, 1)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) {
			return nil, &domain.UpstreamSubmitError{Status: se.Status, Detail: decodeDetail(se.Body), Err: err}
		}
		return nil, &domain.UpstreamSubmitError{Status: http.StatusBadGateway, Detail: err.Error(), Err: err}
	}

	ack := map[string]any{}
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := decode(raw, &ack); err != nil {
			ack = map[string]any{"message": strings.TrimSpace(string(raw))}
		}
	}
	return ack, nil
}

// ---- Internals ----

func (c *Client) authQuery() url.Values {
	q := url.Values{}
	q.Set("api_token", c.token)
	q.Set("shop_domain", c.shop)
	return q
}

func (c *Client) getJSON(ctx context.Context, endpoint, pathAndQuery string, out any) error {
	raw, err := c.do(ctx, http.MethodGet, endpoint, c.base+pathAndQuery, nil, 4)
	if err != nil {
		return err
	}
	if err := decode(raw, out); err != nil {
		return fmt.Errorf("decode %s: %w", endpoint, err)
	}
	return nil
}

// decode keeps numbers as json.Number so large ids survive.
func decode(raw []byte, out any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(out)
}

func decodeDetail(b []byte) any {
	var v any
	if err := decode(b, &v); err == nil {
		return v
	}
	return strings.TrimSpace(string(b))
}

func fetchError(err error) error {
	var se *StatusError
	if errors.As(err, &se) {
		return &domain.UpstreamFetchError{Status: se.Status, Payload: decodeDetail(se.Body), Err: err}
	}
	return &domain.UpstreamFetchError{Status: http.StatusBadGateway, Payload: err.Error(), Err: err}
}

// do runs one logical request through the circuit breaker.
func (c *Client) do(ctx context.Context, method, endpoint, u string, body []byte, attempts int) ([]byte, error) {
	return c.cb.Execute(func() ([]byte, error) {
		return c.send(ctx, method, endpoint, u, body, attempts)
	})
}

// send performs the request with client-side rate limiting. Retries on 429 and
// transient 5xx, honoring Retry-After when provided; attempts=1 disables retries.
func (c *Client) send(ctx context.Context, method, endpoint, u string, body []byte, attempts int) ([]byte, error) {
	if err := c.rl.Wait(ctx); err != nil {
		return nil, err
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		var rd io.Reader
		if body != nil {
			rd = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, u, rd)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "review-proxy/1.0")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			observability.ObserveExternal(service, endpoint, 0, time.Since(start))
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			if i < attempts-1 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, lastErr
		}
		observability.ObserveExternal(service, endpoint, resp.StatusCode, time.Since(start))

		b, rerr := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
		resp.Body.Close()

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return b, rerr

		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			lastErr = &StatusError{Status: resp.StatusCode, Body: b}
			wait := retryAfter(resp)
			if wait == 0 {
				wait = backoff(i)
			}
			if i < attempts-1 && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, lastErr

		default:
			if len(b) > 4096 {
				b = b[:4096]
			}
			return nil, &StatusError{Status: resp.StatusCode, Body: b}
		}
	}
	return nil, lastErr
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After header (seconds or HTTP-date). Returns 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff doubles from 200ms per attempt with up to +50% jitter.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	return base + time.Duration(0.5*f*float64(base))
}
