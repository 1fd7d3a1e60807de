package cloudinary

import (
	"context"
	"errors"
	"fmt"
	"time"

	cld "github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"

	"review_proxy/internal/adapters/observability"
)

// Uploader copies remote images into a Cloudinary folder. Cloudinary fetches the
// source URL itself, so nothing is streamed through this process.
type Uploader struct {
	c      *cld.Cloudinary
	folder string
}

func New(cloud, key, secret, folder string) (*Uploader, error) {
	if cloud == "" || key == "" || secret == "" {
		return nil, errors.New("cloudinary credentials are required")
	}
	c, err := cld.NewFromParams(cloud, key, secret)
	if err != nil {
		return nil, fmt.Errorf("cloudinary client: %w", err)
	}
	return &Uploader{c: c, folder: folder}, nil
}

func (u *Uploader) UploadFromURL(ctx context.Context, src, publicID string) (url string, err error) {
	defer func() { observability.ObserveUpload(err == nil) }()
	start := time.Now()
	res, err := u.c.Upload.Upload(ctx, src, uploader.UploadParams{
		Folder:   u.folder,
		PublicID: publicID,
	})
	if err != nil {
		observability.ObserveExternal("cloudinary", "upload", 0, time.Since(start))
		return "", fmt.Errorf("cloudinary upload: %w", err)
	}
	if res.Error.Message != "" {
		observability.ObserveExternal("cloudinary", "upload", 400, time.Since(start))
		return "", fmt.Errorf("cloudinary upload: %s", res.Error.Message)
	}
	observability.ObserveExternal("cloudinary", "upload", 200, time.Since(start))
	if res.SecureURL == "" {
		return "", errors.New("cloudinary upload: empty secure_url")
	}
	return res.SecureURL, nil
}
