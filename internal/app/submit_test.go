package app_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"review_proxy/internal/app"
	"review_proxy/internal/domain"
)

func validInput() domain.SubmitInput {
	return domain.SubmitInput{
		Name:   " Jane ",
		Email:  "jane@example.com",
		Rating: 4,
		Title:  "Nice",
		Body:   "Fits well",
		Handle: "version-h1",
	}
}

func TestSubmitReview_UnresolvedProductIsNull(t *testing.T) {
	sub := &fakeSubmitter{ack: map[string]any{"message": "queued"}}
	svc := app.NewSubmissionService(&fakeUploader{}, sub, app.ResolveChain(), "shop.myshopify.com")

	in := validInput()
	in.ClientIP = "::ffff:10.0.0.9, 172.16.0.1"
	res, err := svc.SubmitReview(context.Background(), in)
	require.NoError(t, err)

	require.Equal(t, "success", res.Status)
	require.Equal(t, "queued", res.Message)
	require.False(t, res.AsyncMedia)
	require.Empty(t, res.UploadedImages)

	p := sub.got
	require.Nil(t, p.ProductID)
	require.Equal(t, "shop.myshopify.com", p.ShopDomain)
	require.Equal(t, "shopify", p.Platform)
	require.Equal(t, "Jane", p.Name)
	require.Equal(t, 4, p.Rating)
	require.Equal(t, "10.0.0.9", p.IPAddr)
	require.NotNil(t, p.PictureURLs)
	require.Empty(t, p.PictureURLs)
}

func TestSubmitReview_ResolverChainOrder(t *testing.T) {
	src := &fakeSource{reviews: []domain.RawReview{
		review(1, "version-h1", 5, map[string]any{"product_external_id": "0"}),
		review(2, "Version-H1", 5, map[string]any{"product_external_id": "111"}),
	}}
	lookup := &fakeLookup{ids: map[string]int64{"version-h1": 222, "other": 333}}
	chain := app.ResolveChain(
		app.FromFetchedReviews(src),
		nil,
		app.FromProductLookup(lookup),
		app.FromOverrides(map[string]int64{"VERSION_H1": 444, "THIRD": 555}),
	)
	ctx := context.Background()

	id, ok := chain(ctx, "version-h1")
	require.True(t, ok)
	require.Equal(t, int64(111), id)
	require.Equal(t, 0, lookup.calls, "later resolvers are not consulted after a hit")

	id, ok = chain(ctx, "other")
	require.True(t, ok)
	require.Equal(t, int64(333), id)

	id, ok = chain(ctx, "third")
	require.True(t, ok)
	require.Equal(t, int64(555), id)

	_, ok = chain(ctx, "missing")
	require.False(t, ok)
}

func TestSubmitReview_FailedUploadsAreDropped(t *testing.T) {
	up := &fakeUploader{fail: map[string]bool{"https://cdn/bad.png": true}}
	sub := &fakeSubmitter{ack: map[string]any{}}
	resolve := app.FromOverrides(map[string]int64{"VERSION_H1": 99})
	svc := app.NewSubmissionService(up, sub, resolve, "shop")

	in := validInput()
	in.Pictures = []string{"https://cdn/a.png", "https://cdn/bad.png", "data:image/webp;base64,AAAA", "  "}
	res, err := svc.SubmitReview(context.Background(), in)
	require.NoError(t, err)

	require.True(t, res.AsyncMedia)
	require.Equal(t, "Review submitted successfully", res.Message)
	require.Len(t, res.UploadedImages, 2)
	require.Len(t, sub.got.PictureURLs, 2)
	require.Equal(t, int64(99), *sub.got.ProductID)

	var exts []string
	for name, u := range sub.got.PictureURLs {
		require.True(t, strings.HasPrefix(u, "https://res.cloudinary.com/demo/"))
		exts = append(exts, name[strings.LastIndex(name, "."):])
	}
	require.ElementsMatch(t, []string{".png", ".webp"}, exts)
}

func TestSubmitReview_Validation(t *testing.T) {
	cases := map[string]struct {
		mutate func(*domain.SubmitInput)
		field  string
	}{
		"missing name":  {func(in *domain.SubmitInput) { in.Name = "  " }, "name"},
		"missing email": {func(in *domain.SubmitInput) { in.Email = "" }, "email"},
		"bad email":     {func(in *domain.SubmitInput) { in.Email = "not-an-email" }, "email"},
		"rating zero":   {func(in *domain.SubmitInput) { in.Rating = 0 }, "rating"},
		"rating six":    {func(in *domain.SubmitInput) { in.Rating = 6 }, "rating"},
		"no handle":     {func(in *domain.SubmitInput) { in.Handle = "" }, "handle"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			sub := &fakeSubmitter{}
			svc := app.NewSubmissionService(&fakeUploader{}, sub, nil, "shop")
			in := validInput()
			tc.mutate(&in)

			_, err := svc.SubmitReview(context.Background(), in)
			var ve *domain.ValidationError
			require.True(t, errors.As(err, &ve))
			require.Equal(t, tc.field, ve.Field)
			require.Equal(t, 0, sub.hits, "nothing is sent upstream")
		})
	}
}

func TestSubmitReview_UpstreamRejectionKeepsUploads(t *testing.T) {
	sub := &fakeSubmitter{err: &domain.UpstreamSubmitError{Status: 422, Detail: map[string]any{"error": "duplicate"}}}
	accepted := false
	svc := app.NewSubmissionService(&fakeUploader{}, sub, nil, "shop")
	svc.OnAccepted(func(context.Context) { accepted = true })

	in := validInput()
	in.Pictures = []string{"https://cdn/a.jpg"}
	_, err := svc.SubmitReview(context.Background(), in)

	var se *domain.UpstreamSubmitError
	require.True(t, errors.As(err, &se))
	require.Equal(t, 422, se.Status)
	require.Len(t, se.UploadedImages, 1)
	require.False(t, accepted)
}

func TestSubmitReview_TransportErrorIsWrapped(t *testing.T) {
	sub := &fakeSubmitter{err: errors.New("connection reset")}
	svc := app.NewSubmissionService(nil, sub, nil, "shop")

	in := validInput()
	in.Pictures = []string{"https://cdn/a.jpg"}
	_, err := svc.SubmitReview(context.Background(), in)

	var se *domain.UpstreamSubmitError
	require.True(t, errors.As(err, &se))
	require.Equal(t, 502, se.Status)
	require.Empty(t, se.UploadedImages, "no uploader means no uploads")
}

func TestSubmitReview_AcceptedHookRuns(t *testing.T) {
	calls := 0
	svc := app.NewSubmissionService(nil, &fakeSubmitter{}, nil, "shop")
	svc.OnAccepted(func(context.Context) { calls++ })

	_, err := svc.SubmitReview(context.Background(), validInput())
	require.NoError(t, err)
	require.Equal(t, 1, calls)
}
