package domain

import "context"

type ReviewSource interface {
	FetchAllReviews(ctx context.Context) ([]RawReview, error)
}

type ProductLookup interface {
	// LookupProductByHandle returns the shop platform's numeric product id.
	LookupProductByHandle(ctx context.Context, handle string) (int64, error)
}

type ReviewSubmitter interface {
	SubmitReview(ctx context.Context, p SubmissionPayload) (map[string]any, error)
}

type ImageUploader interface {
	// UploadFromURL copies a remote image to the media host and returns its public URL.
	UploadFromURL(ctx context.Context, src, publicID string) (string, error)
}

type GenderGuesser interface {
	GuessGender(ctx context.Context, firstName string) (string, error)
}

type GenderCache interface {
	Get(name string) (string, bool)
	// Set stores gender unless name already has an entry.
	Set(name, gender string)
}

// DocumentStore keeps small JSON documents addressed by key. Put replaces the
// whole document.
type DocumentStore interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Put(ctx context.Context, key string, v any) error
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}
