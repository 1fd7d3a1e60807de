package app

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"review_proxy/internal/domain"
)

/********** alias registries (single source of truth) **********/

var reviewAliases = map[string][]string{
	"id":         {"id", "review_id", "uuid"},
	"title":      {"title", "review_title", "headline"},
	"body":       {"body", "content", "text", "review"},
	"rating":     {"rating", "score", "stars"},
	"author":     {"reviewer.name", "name", "author", "reviewer_name"},
	"handle":     {"product_handle", "handle", "product.handle"},
	"created_at": {"created_at", "createdAt", "date"},
	"verified":   {"verified", "verified_buyer", "reviewer.verified"},
	"curated":    {"curated", "curation_status"},
	"product_id": {"product_external_id", "product.external_id", "external_id"},
}

// picture containers in the order they are tried
var pictureFields = []string{"pictures", "picture_urls", "images", "media"}

// per picture, best rendition first
var pictureURLKeys = []string{"urls.original", "urls.huge", "urls.compact", "urls.small", "original", "url", "src"}

var verifiedValues = map[string]struct{}{
	"buyer":             {},
	"confirmed-buyer":   {},
	"verified-buyer":    {},
	"verified-purchase": {},
}

/********** tiny helpers **********/

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

// scalarString renders strings and numbers; everything else is "".
func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	}
	return ""
}

// firstNonEmptyAlias: first non-empty scalar for a named alias set.
func firstNonEmptyAlias(m map[string]any, aliases map[string][]string, key string) *string {
	for _, p := range aliases[key] {
		if s := scalarString(lookupAny(m, p)); s != "" {
			return &s
		}
	}
	return nil
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// getFloatFlexible: number from several paths (json.Number/float64/int/string like "4,5").
func getFloatFlexible(m map[string]any, paths ...string) *float64 {
	for _, k := range paths {
		switch v := lookupAny(m, k).(type) {
		case json.Number:
			if f, err := v.Float64(); err == nil {
				return &f
			}
		case float64:
			f := v
			return &f
		case int:
			f := float64(v)
			return &f
		case string:
			s := strings.TrimSpace(strings.ReplaceAll(v, ",", "."))
			if s == "" {
				continue
			}
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return &f
			}
		}
	}
	return nil
}

// firstInt64Flexible: int64 from several paths (json.Number/float64/int/string).
func firstInt64Flexible(m map[string]any, paths ...string) *int64 {
	for _, k := range paths {
		switch v := lookupAny(m, k).(type) {
		case json.Number:
			if n, err := v.Int64(); err == nil {
				return &n
			}
		case float64:
			x := int64(v)
			return &x
		case int:
			x := int64(v)
			return &x
		case int64:
			x := v
			return &x
		case string:
			s := strings.TrimSpace(v)
			if s == "" {
				continue
			}
			if n, err := strconv.ParseInt(s, 10, 64); err == nil {
				return &n
			}
		}
	}
	return nil
}

// firstSliceStrings: accept []any with either strings or picture objects.
func firstSliceStrings(m map[string]any, paths ...string) []string {
	for _, k := range paths {
		raw, ok := lookupAny(m, k).([]any)
		if !ok {
			continue
		}
		out := make([]string, 0, len(raw))
		for _, it := range raw {
			switch t := it.(type) {
			case string:
				if t != "" {
					out = append(out, t)
				}
			case map[string]any:
				if hidden, _ := t["hidden"].(bool); hidden {
					continue
				}
				for _, key := range pictureURLKeys {
					if u, ok := lookupAny(t, key).(string); ok && u != "" {
						out = append(out, u)
						break
					}
				}
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

/********** review field readers **********/

func reviewID(r domain.RawReview) string {
	return deref(firstNonEmptyAlias(r, reviewAliases, "id"))
}

func reviewHandle(r domain.RawReview) string {
	return strings.TrimSpace(deref(firstNonEmptyAlias(r, reviewAliases, "handle")))
}

// isPublished accepts any of three upstream signals; the API has used each of
// them at some point, so none is dropped.
func isPublished(r domain.RawReview) bool {
	if b, ok := r["published"].(bool); ok && b {
		return true
	}
	if strings.EqualFold(deref(firstNonEmptyAlias(r, reviewAliases, "curated")), "ok") {
		return true
	}
	if b, ok := r["hidden"].(bool); ok && !b {
		return true
	}
	return false
}

// authorName: a missing name is "Anonymous"; a present but blank one is "Verified Buyer".
func authorName(r domain.RawReview) string {
	for _, p := range reviewAliases["author"] {
		v, ok := lookupAny(r, p).(string)
		if !ok {
			continue
		}
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
		return "Verified Buyer"
	}
	return "Anonymous"
}

// parseRating rounds and clamps to 1..5; anything unreadable counts as 5.
func parseRating(r domain.RawReview) int {
	f := getFloatFlexible(r, reviewAliases["rating"]...)
	if f == nil || math.IsNaN(*f) {
		return 5
	}
	n := int(math.Round(*f))
	switch {
	case n < 1:
		return 1
	case n > 5:
		return 5
	}
	return n
}

func isVerified(r domain.RawReview) bool {
	v := strings.ToLower(strings.TrimSpace(deref(firstNonEmptyAlias(r, reviewAliases, "verified"))))
	_, ok := verifiedValues[v]
	return ok
}

func mediaURLs(r domain.RawReview) []string {
	if out := firstSliceStrings(r, pictureFields...); out != nil {
		return out
	}
	return []string{}
}

func productExternalID(r domain.RawReview) *int64 {
	if n := firstInt64Flexible(r, reviewAliases["product_id"]...); n != nil && *n > 0 {
		return n
	}
	return nil
}

// firstName lowercases the first word of a display name.
func firstName(author string) string {
	f := strings.Fields(author)
	if len(f) == 0 {
		return ""
	}
	return strings.ToLower(f[0])
}

/********** view mapper **********/

func mapReviewView(r domain.RawReview, pinned map[string]struct{}) domain.ReviewView {
	id := reviewID(r)
	_, isPinned := pinned[id]
	return domain.ReviewView{
		ID:        id,
		Title:     deref(firstNonEmptyAlias(r, reviewAliases, "title")),
		Body:      deref(firstNonEmptyAlias(r, reviewAliases, "body")),
		Rating:    parseRating(r),
		Author:    authorName(r),
		Verified:  isVerified(r),
		Pinned:    isPinned,
		Handle:    reviewHandle(r),
		CreatedAt: deref(firstNonEmptyAlias(r, reviewAliases, "created_at")),
		Media:     mediaURLs(r),
	}
}
