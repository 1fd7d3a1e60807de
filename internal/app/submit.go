package app

import (
	"context"
	"errors"
	"net/url"
	"path"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"review_proxy/internal/domain"
)

const platform = "shopify"

var imageExts = map[string]struct{}{
	".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {}, ".webp": {}, ".heic": {}, ".avif": {},
}

var validate = validator.New(validator.WithRequiredStructEnabled())

type SubmissionService struct {
	uploader   domain.ImageUploader
	submitter  domain.ReviewSubmitter
	resolve    ProductIDResolver
	shopDomain string
	newName    func() string
	onAccepted func(ctx context.Context)
}

// NewSubmissionService: uploader may be nil, in which case pictures are skipped.
func NewSubmissionService(up domain.ImageUploader, sub domain.ReviewSubmitter, resolve ProductIDResolver, shopDomain string) *SubmissionService {
	return &SubmissionService{
		uploader:   up,
		submitter:  sub,
		resolve:    resolve,
		shopDomain: shopDomain,
		newName:    func() string { return uuid.NewString() },
	}
}

// OnAccepted registers a hook run after Judge.me accepts a review.
func (s *SubmissionService) OnAccepted(fn func(ctx context.Context)) { s.onAccepted = fn }

// SubmitReview uploads pictures, resolves the product id and forwards the review.
// A product id that cannot be resolved is sent as null; Judge.me decides.
func (s *SubmissionService) SubmitReview(ctx context.Context, in domain.SubmitInput) (domain.SubmitResult, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Handle = strings.TrimSpace(in.Handle)
	if err := validateInput(in); err != nil {
		return domain.SubmitResult{}, err
	}

	pictureURLs, uploaded := s.uploadAll(ctx, in.Pictures)

	var productID *int64
	if s.resolve != nil {
		if id, ok := s.resolve(ctx, in.Handle); ok {
			productID = &id
		} else {
			log.Warn().Str("handle", in.Handle).Msg("product id unresolved; submitting without it")
		}
	}

	payload := domain.SubmissionPayload{
		ShopDomain:  s.shopDomain,
		Platform:    platform,
		Name:        in.Name,
		Email:       in.Email,
		Rating:      in.Rating,
		Body:        in.Body,
		Title:       in.Title,
		ProductID:   productID,
		PictureURLs: pictureURLs,
		IPAddr:      SanitizeIP(in.ClientIP, ""),
	}

	ack, err := s.submitter.SubmitReview(ctx, payload)
	if err != nil {
		var se *domain.UpstreamSubmitError
		if errors.As(err, &se) {
			se.UploadedImages = uploaded
			return domain.SubmitResult{}, se
		}
		return domain.SubmitResult{}, &domain.UpstreamSubmitError{Status: 502, Detail: err.Error(), UploadedImages: uploaded, Err: err}
	}
	if s.onAccepted != nil {
		s.onAccepted(ctx)
	}

	msg, _ := ack["message"].(string)
	if msg == "" {
		msg = "Review submitted successfully"
	}
	return domain.SubmitResult{
		Status:         "success",
		Message:        msg,
		Review:         ack,
		UploadedImages: uploaded,
		AsyncMedia:     len(uploaded) > 0,
	}, nil
}

// uploadAll uploads every picture concurrently. Failed uploads are logged and
// left out; the rest keep the order they were given in.
func (s *SubmissionService) uploadAll(ctx context.Context, pictures []string) (map[string]string, []string) {
	mapping := map[string]string{}
	uploaded := []string{}
	if len(pictures) == 0 {
		return mapping, uploaded
	}
	if s.uploader == nil {
		log.Warn().Int("pictures", len(pictures)).Msg("no image uploader configured; pictures dropped")
		return mapping, uploaded
	}

	type result struct{ name, url string }
	results := make([]*result, len(pictures))

	var eg errgroup.Group
	for i, src := range pictures {
		src = strings.TrimSpace(src)
		if src == "" {
			continue
		}
		eg.Go(func() error {
			id := s.newName()
			u, err := s.uploader.UploadFromURL(ctx, src, id)
			if err != nil {
				log.Warn().Err(err).Int("index", i).Msg("image upload failed; skipping")
				return nil
			}
			results[i] = &result{name: id + imageExt(src), url: u}
			return nil
		})
	}
	_ = eg.Wait()

	for _, r := range results {
		if r == nil {
			continue
		}
		mapping[r.name] = r.url
		uploaded = append(uploaded, r.url)
	}
	return mapping, uploaded
}

// imageExt guesses a file extension from a URL or data URI, defaulting to .jpg.
func imageExt(src string) string {
	if rest, ok := strings.CutPrefix(src, "data:image/"); ok {
		sub, _, _ := strings.Cut(rest, ";")
		if ext := "." + strings.ToLower(sub); isImageExt(ext) {
			return ext
		}
		return ".jpg"
	}
	if u, err := url.Parse(src); err == nil {
		if ext := strings.ToLower(path.Ext(u.Path)); isImageExt(ext) {
			return ext
		}
	}
	return ".jpg"
}

func isImageExt(ext string) bool {
	_, ok := imageExts[ext]
	return ok
}

func validateInput(in domain.SubmitInput) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return domain.NewValidationError("", err.Error())
	}
	fe := verrs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return domain.NewValidationError(field, "is required")
	case "email":
		return domain.NewValidationError(field, "must be a valid email address")
	case "min", "max":
		return domain.NewValidationError(field, "must be between 1 and 5")
	default:
		return domain.NewValidationError(field, "is invalid")
	}
}
