package app

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"review_proxy/internal/domain"
)

const reviewsCacheKey = "judgeme:reviews:all"

// CachedReviewSource is a read-through cache over the full review listing.
type CachedReviewSource struct {
	inner    domain.ReviewSource
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewCachedReviewSource(inner domain.ReviewSource, c domain.Cache, ttl time.Duration) *CachedReviewSource {
	return &CachedReviewSource{inner: inner, cache: c, cacheTTL: ttl}
}

func (s *CachedReviewSource) FetchAllReviews(ctx context.Context) ([]domain.RawReview, error) {
	var out []domain.RawReview
	if ok, err := s.cache.Get(ctx, reviewsCacheKey, &out); err != nil {
		log.Warn().Err(err).Msg("review cache read failed")
	} else if ok {
		return out, nil
	}

	rs, err := s.inner.FetchAllReviews(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, reviewsCacheKey, rs, int(s.cacheTTL.Seconds())); err != nil {
		log.Warn().Err(err).Msg("review cache write failed")
	}
	return rs, nil
}

// Invalidate drops the cached listing, e.g. after a new review is accepted.
func (s *CachedReviewSource) Invalidate(ctx context.Context) {
	_ = s.cache.Del(ctx, reviewsCacheKey)
}

// SnapshotSource fetches once and serves that result for its lifetime. Used by
// batch jobs that query many handles against the same listing.
type SnapshotSource struct {
	inner domain.ReviewSource
	once  sync.Once
	rs    []domain.RawReview
	err   error
}

func NewSnapshotSource(inner domain.ReviewSource) *SnapshotSource {
	return &SnapshotSource{inner: inner}
}

func (s *SnapshotSource) FetchAllReviews(ctx context.Context) ([]domain.RawReview, error) {
	s.once.Do(func() { s.rs, s.err = s.inner.FetchAllReviews(ctx) })
	return s.rs, s.err
}
