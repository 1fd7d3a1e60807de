package app_test

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"review_proxy/internal/adapters/memory"
	"review_proxy/internal/app"
	"review_proxy/internal/domain"
)

func newReviewService(src domain.ReviewSource, store domain.DocumentStore) *app.ReviewService {
	avatars := app.NewAvatarBuilder(
		&fakeGuesser{answers: map[string]string{"jane": "female"}},
		memory.NewGenderCache(),
		rand.New(rand.NewPCG(1, 2)),
	)
	return app.NewReviewService(src, app.NewPinService(store), avatars)
}

func TestGetReviewsForHandle_StatsExample(t *testing.T) {
	src := &fakeSource{reviews: []domain.RawReview{
		review(1, "version-h1", "5", nil),
		review(2, "other", 1, nil),
		review(3, "version-h1", 4.0, nil),
		review(4, "version-h1", 1, map[string]any{"published": false, "hidden": true, "curated": "spam"}),
		review(5, "version-h1", "3", nil),
	}}
	svc := newReviewService(src, newMemStore())

	out, err := svc.GetReviewsForHandle(context.Background(), "version-h1")
	require.NoError(t, err)

	want := domain.Stats{
		Average:      "4.0",
		Count:        3,
		Distribution: map[string]int{"1": 0, "2": 0, "3": 1, "4": 1, "5": 1},
	}
	if diff := cmp.Diff(want, out.Stats); diff != "" {
		t.Fatalf("stats mismatch (-want +got):\n%s", diff)
	}

	var ids []string
	for _, r := range out.Reviews {
		ids = append(ids, r.ID)
	}
	require.Equal(t, []string{"1", "3", "5"}, ids, "upstream order is kept")
	require.Equal(t, 5, out.Meta.TotalFetched)
}

func TestGetReviewsForHandle_PublishedPredicateAndCase(t *testing.T) {
	src := &fakeSource{reviews: []domain.RawReview{
		review(1, "Version-H1", 5, nil),
		review(2, "version-h1", 5, map[string]any{"published": false, "curated": "ok"}),
		review(3, "version-h1", 5, map[string]any{"published": nil, "hidden": false}),
		review(4, "version-h1", 5, map[string]any{"published": nil}),
		review(5, "version-h1", 5, map[string]any{"published": false, "hidden": true, "curated": "not-yet"}),
		review(6, "version-h10", 5, nil),
	}}
	svc := newReviewService(src, newMemStore())

	out, err := svc.GetReviewsForHandle(context.Background(), "VERSION-h1")
	require.NoError(t, err)

	var ids []string
	for _, r := range out.Reviews {
		ids = append(ids, r.ID)
		require.True(t, strings.EqualFold(r.Handle, "version-h1"))
	}
	require.Equal(t, []string{"1", "2", "3"}, ids)
}

func TestGetReviewsForHandle_EmptyResult(t *testing.T) {
	svc := newReviewService(&fakeSource{}, newMemStore())

	out, err := svc.GetReviewsForHandle(context.Background(), "nothing-here")
	require.NoError(t, err)
	require.Equal(t, "0.0", out.Stats.Average)
	require.Equal(t, 0, out.Stats.Count)
	require.NotNil(t, out.Reviews)
	require.Empty(t, out.Reviews)

	sum := 0
	for _, n := range out.Stats.Distribution {
		sum += n
	}
	require.Equal(t, 0, sum)
}

func TestGetReviewsForHandle_DistributionSumsToCount(t *testing.T) {
	var rs []domain.RawReview
	ratings := []any{1, 2, 2, "x", 9, -3, 3.6, "4", 5}
	for i, r := range ratings {
		rs = append(rs, review(i+1, "h", r, nil))
	}
	svc := newReviewService(&fakeSource{reviews: rs}, newMemStore())

	out, err := svc.GetReviewsForHandle(context.Background(), "h")
	require.NoError(t, err)

	sum := 0
	for _, n := range out.Stats.Distribution {
		sum += n
	}
	require.Equal(t, out.Stats.Count, sum)
	require.Len(t, out.Stats.Distribution, 5)
	// 1,2,2,5(unparsable),5(clamped),1(clamped),4(rounded),4,5
	require.Equal(t, map[string]int{"1": 2, "2": 2, "3": 0, "4": 2, "5": 3}, out.Stats.Distribution)
	require.Equal(t, "3.2", out.Stats.Average)
}

func TestGetReviewsForHandle_Decoration(t *testing.T) {
	store := newMemStore()
	require.NoError(t, app.NewPinService(store).Save(context.Background(), []string{"2"}))

	src := &fakeSource{reviews: []domain.RawReview{
		review(1, "h", 5, map[string]any{
			"verified": "buyer",
			"pictures": []any{
				map[string]any{"urls": map[string]any{"original": "https://img/1-o.jpg", "small": "https://img/1-s.jpg"}},
				map[string]any{"urls": map[string]any{"original": "https://img/hidden.jpg"}, "hidden": true},
				"https://img/plain.jpg",
			},
		}),
		review(2, "h", 2, map[string]any{"reviewer": map[string]any{"name": "   "}, "verified": "nothing"}),
		review(3, "h", 4, map[string]any{"reviewer": map[string]any{"email": "x@y.z"}}),
	}}
	svc := newReviewService(src, store)

	out, err := svc.GetReviewsForHandle(context.Background(), "h")
	require.NoError(t, err)
	require.Len(t, out.Reviews, 3)

	r1, r2, r3 := out.Reviews[0], out.Reviews[1], out.Reviews[2]

	require.Equal(t, "Jane Doe", r1.Author)
	require.True(t, r1.Verified)
	require.False(t, r1.Pinned)
	require.Equal(t, []string{"https://img/1-o.jpg", "https://img/plain.jpg"}, r1.Media)
	require.Equal(t, "female", r1.Avatar.Gender)
	require.Equal(t, 0, r1.Avatar.FacialHairProbability)
	require.Equal(t, "smile", r1.Avatar.Mouth)
	require.Equal(t, r1.Avatar.URL, r1.AvatarURL)
	require.True(t, strings.HasPrefix(r1.AvatarURL, "https://api.dicebear.com/9.x/avataaars/svg?seed=1&"))

	require.Equal(t, "Verified Buyer", r2.Author)
	require.False(t, r2.Verified)
	require.True(t, r2.Pinned)
	require.Empty(t, r2.Media)
	require.Equal(t, "male", r2.Avatar.Gender)
	require.Equal(t, 50, r2.Avatar.FacialHairProbability)

	require.Equal(t, "Anonymous", r3.Author)
}

func TestGetReviewsForHandle_FetchFailureSurfaces(t *testing.T) {
	upstream := &domain.UpstreamFetchError{Status: 401, Payload: map[string]any{"error": "bad token"}}
	svc := newReviewService(&fakeSource{err: upstream}, newMemStore())

	_, err := svc.GetReviewsForHandle(context.Background(), "h")
	var fe *domain.UpstreamFetchError
	require.True(t, errors.As(err, &fe))
	require.Equal(t, 401, fe.Status)
}

func TestGetReviewsForHandle_PinStoreDownIsNotFatal(t *testing.T) {
	store := newMemStore()
	store.getErr = errors.New("firestore unavailable")
	svc := newReviewService(&fakeSource{reviews: []domain.RawReview{review(1, "h", 5, nil)}}, store)

	out, err := svc.GetReviewsForHandle(context.Background(), "h")
	require.NoError(t, err)
	require.Len(t, out.Reviews, 1)
	require.False(t, out.Reviews[0].Pinned)
}

func TestGetReviewsForHandle_RequiresHandle(t *testing.T) {
	svc := newReviewService(&fakeSource{}, newMemStore())
	_, err := svc.GetReviewsForHandle(context.Background(), "  ")
	var ve *domain.ValidationError
	require.True(t, errors.As(err, &ve))
}

func TestHandles_DistinctInFirstSeenOrder(t *testing.T) {
	src := &fakeSource{reviews: []domain.RawReview{
		review(1, "b", 5, nil),
		review(2, "A", 5, nil),
		review(3, "B", 5, nil),
		review(4, "", 5, nil),
		review(5, "a", 5, nil),
	}}
	svc := newReviewService(src, newMemStore())

	hs, err := svc.Handles(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"b", "a"}, hs)
}

func TestGetReviewsForHandle_AverageRoundsHalfUp(t *testing.T) {
	cases := []struct {
		ratings []int
		want    string
	}{
		{[]int{4, 4, 4, 5}, "4.3"},
		{[]int{2, 2, 2, 3}, "2.3"},
		{[]int{1, 1, 1, 2, 1, 1, 1, 2}, "1.3"},
		{[]int{5, 4}, "4.5"},
		{[]int{1, 2, 2}, "1.7"},
		{[]int{5}, "5.0"},
	}
	for _, tc := range cases {
		var rs []domain.RawReview
		for i, r := range tc.ratings {
			rs = append(rs, review(i+1, "h", r, nil))
		}
		svc := newReviewService(&fakeSource{reviews: rs}, newMemStore())

		out, err := svc.GetReviewsForHandle(context.Background(), "h")
		require.NoError(t, err)
		require.Equal(t, tc.want, out.Stats.Average, "ratings %v", tc.ratings)
	}
}
