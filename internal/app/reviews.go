package app

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"review_proxy/internal/domain"
)

const sampleHandles = 10

type ReviewService struct {
	source  domain.ReviewSource
	pins    *PinService
	avatars *AvatarBuilder
}

func NewReviewService(src domain.ReviewSource, pins *PinService, avatars *AvatarBuilder) *ReviewService {
	return &ReviewService{source: src, pins: pins, avatars: avatars}
}

// GetReviewsForHandle returns the published reviews of one product, decorated and
// in upstream order, with rating statistics.
func (s *ReviewService) GetReviewsForHandle(ctx context.Context, handle string) (domain.ProductReviews, error) {
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return domain.ProductReviews{}, domain.NewValidationError("handle", "is required")
	}

	pinnedIDs, err := s.pins.Load(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("pinned ids unavailable; continuing without pins")
		pinnedIDs = nil
	}
	pinned := pinSet(pinnedIDs)

	all, err := s.source.FetchAllReviews(ctx)
	if err != nil {
		return domain.ProductReviews{}, err
	}

	matched := make([]domain.RawReview, 0, 16)
	seenHandles := map[string]struct{}{}
	samples := make([]string, 0, sampleHandles)
	for _, r := range all {
		h := reviewHandle(r)
		if _, ok := seenHandles[h]; !ok && h != "" && len(samples) < sampleHandles {
			seenHandles[h] = struct{}{}
			samples = append(samples, h)
		}
		if strings.EqualFold(h, handle) && isPublished(r) {
			matched = append(matched, r)
		}
	}

	views := make([]domain.ReviewView, len(matched))
	names := make([]string, len(matched))
	for i, r := range matched {
		views[i] = mapReviewView(r, pinned)
		names[i] = firstName(views[i].Author)
	}

	s.avatars.Prefetch(ctx, names)

	ratings := make([]int, len(views))
	for i := range views {
		views[i].Avatar = s.avatars.Build(ctx, views[i].ID, views[i].Author, views[i].Rating)
		views[i].AvatarURL = views[i].Avatar.URL
		ratings[i] = views[i].Rating
	}

	log.Debug().Str("handle", handle).Int("fetched", len(all)).Int("matched", len(views)).Msg("reviews aggregated")

	return domain.ProductReviews{
		Stats:   computeStats(ratings),
		Reviews: views,
		Meta: domain.Meta{
			Handle:        handle,
			TotalFetched:  len(all),
			Matched:       len(views),
			SampleHandles: samples,
		},
	}, nil
}

// Handles lists the distinct product handles present in the listing, in
// first-seen order.
func (s *ReviewService) Handles(ctx context.Context) ([]string, error) {
	all, err := s.source.FetchAllReviews(ctx)
	if err != nil {
		return nil, err
	}
	seen := map[string]struct{}{}
	out := []string{}
	for _, r := range all {
		h := strings.ToLower(reviewHandle(r))
		if _, ok := seen[h]; ok || h == "" {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, h)
	}
	return out, nil
}
