package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"

	"review_proxy/internal/domain"
)

// ---- fakes ----

type fakeSource struct {
	reviews []domain.RawReview
	err     error
	calls   int32
}

func (f *fakeSource) FetchAllReviews(ctx context.Context) ([]domain.RawReview, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.reviews, f.err
}

// memStore round-trips through JSON like the real backends do.
type memStore struct {
	mu     sync.Mutex
	docs   map[string][]byte
	puts   int
	getErr error
}

func newMemStore() *memStore { return &memStore{docs: map[string][]byte{}} }

func (s *memStore) Get(ctx context.Context, key string, dst any) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return false, s.getErr
	}
	b, ok := s.docs[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (s *memStore) Put(ctx context.Context, key string, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.docs[key] = b
	s.puts++
	return nil
}

type fakeGuesser struct {
	mu      sync.Mutex
	answers map[string]string
	calls   map[string]int
	err     error
}

func (g *fakeGuesser) GuessGender(ctx context.Context, name string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.calls == nil {
		g.calls = map[string]int{}
	}
	g.calls[name]++
	if g.err != nil {
		return "", g.err
	}
	if a, ok := g.answers[name]; ok {
		return a, nil
	}
	return "", domain.ErrNotFound
}

func (g *fakeGuesser) callsFor(name string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[name]
}

type fakeUploader struct {
	fail map[string]bool
}

func (u *fakeUploader) UploadFromURL(ctx context.Context, src, publicID string) (string, error) {
	if u.fail[src] {
		return "", errors.New("upload refused")
	}
	return "https://res.cloudinary.com/demo/" + publicID, nil
}

type fakeSubmitter struct {
	got  domain.SubmissionPayload
	ack  map[string]any
	err  error
	hits int
}

func (s *fakeSubmitter) SubmitReview(ctx context.Context, p domain.SubmissionPayload) (map[string]any, error) {
	s.hits++
	s.got = p
	return s.ack, s.err
}

type fakeLookup struct {
	ids   map[string]int64
	calls int
}

func (l *fakeLookup) LookupProductByHandle(ctx context.Context, handle string) (int64, error) {
	l.calls++
	if id, ok := l.ids[handle]; ok {
		return id, nil
	}
	return 0, domain.ErrNotFound
}

type mapCache struct {
	m map[string][]byte
}

func (c *mapCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	b, ok := c.m[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (c *mapCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	if c.m == nil {
		c.m = map[string][]byte{}
	}
	b, err := json.Marshal(v)
	c.m[key] = b
	return err
}

func (c *mapCache) Del(ctx context.Context, key string) error {
	delete(c.m, key)
	return nil
}

// ---- helpers ----

func review(id int, handle string, rating any, extra map[string]any) domain.RawReview {
	r := domain.RawReview{
		"id":             json.Number(strconv.Itoa(id)),
		"product_handle": handle,
		"rating":         rating,
		"published":      true,
		"reviewer":       map[string]any{"name": "Jane Doe"},
		"body":           "Great",
	}
	for k, v := range extra {
		if v == nil {
			delete(r, k)
			continue
		}
		r[k] = v
	}
	return r
}
