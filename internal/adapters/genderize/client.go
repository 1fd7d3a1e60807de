package genderize

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"review_proxy/internal/adapters/observability"
	"review_proxy/internal/domain"
)

// Client asks genderize.io for the likely gender of a first name. Every call is
// bounded by timeout regardless of the caller's context.
type Client struct {
	base    string
	hc      *http.Client
	timeout time.Duration
}

func New(base string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Client{base: strings.TrimRight(base, "/"), hc: &http.Client{}, timeout: timeout}
}

// GuessGender returns "male" or "female"; domain.ErrNotFound when the service has no answer.
func (c *Client) GuessGender(ctx context.Context, firstName string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/?name="+url.QueryEscape(firstName), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		observability.ObserveExternal("genderize", "guess", 0, time.Since(start))
		return "", err
	}
	defer resp.Body.Close()
	observability.ObserveExternal("genderize", "guess", resp.StatusCode, time.Since(start))

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("genderize status %d", resp.StatusCode)
	}
	var out struct {
		Gender *string `json:"gender"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode genderize: %w", err)
	}
	if out.Gender == nil {
		return "", domain.ErrNotFound
	}
	switch g := strings.ToLower(*out.Gender); g {
	case "male", "female":
		return g, nil
	default:
		return "", domain.ErrNotFound
	}
}
