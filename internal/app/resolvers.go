package app

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"

	"review_proxy/internal/domain"
)

// ProductIDResolver maps a storefront handle to the platform's numeric product id.
type ProductIDResolver func(ctx context.Context, handle string) (int64, bool)

// ResolveChain tries each resolver in order and stops at the first hit.
func ResolveChain(rs ...ProductIDResolver) ProductIDResolver {
	return func(ctx context.Context, handle string) (int64, bool) {
		for _, r := range rs {
			if r == nil {
				continue
			}
			if id, ok := r(ctx, handle); ok {
				return id, true
			}
		}
		return 0, false
	}
}

// FromFetchedReviews looks for an existing review of the same product that
// already carries the product id.
func FromFetchedReviews(src domain.ReviewSource) ProductIDResolver {
	return func(ctx context.Context, handle string) (int64, bool) {
		rs, err := src.FetchAllReviews(ctx)
		if err != nil {
			log.Debug().Err(err).Str("handle", handle).Msg("product id: review scan unavailable")
			return 0, false
		}
		for _, r := range rs {
			if !strings.EqualFold(reviewHandle(r), handle) {
				continue
			}
			if id := productExternalID(r); id != nil {
				return *id, true
			}
		}
		return 0, false
	}
}

func FromProductLookup(l domain.ProductLookup) ProductIDResolver {
	return func(ctx context.Context, handle string) (int64, bool) {
		id, err := l.LookupProductByHandle(ctx, handle)
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				log.Warn().Err(err).Str("handle", handle).Msg("product id: lookup failed")
			}
			return 0, false
		}
		return id, id > 0
	}
}

// FromOverrides reads ids configured as PRODUCT_ID_<SANITIZED HANDLE>.
func FromOverrides(ids map[string]int64) ProductIDResolver {
	return func(_ context.Context, handle string) (int64, bool) {
		id, ok := ids[SanitizeHandleKey(handle)]
		return id, ok && id > 0
	}
}

// SanitizeHandleKey turns "version-h1" into "VERSION_H1".
func SanitizeHandleKey(handle string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(strings.TrimSpace(handle)) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}
