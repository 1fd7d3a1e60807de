package domain

type SubmitInput struct {
	Name     string   `json:"name" validate:"required"`
	Email    string   `json:"email" validate:"required,email"`
	Rating   int      `json:"rating" validate:"required,min=1,max=5"`
	Title    string   `json:"title"`
	Body     string   `json:"body"`
	Handle   string   `json:"handle" validate:"required"`
	Pictures []string `json:"pictures"`
	ClientIP string   `json:"-"`
}

// SubmissionPayload follows the Judge.me "create review" schema.
type SubmissionPayload struct {
	ShopDomain  string            `json:"shop_domain"`
	Platform    string            `json:"platform"`
	Name        string            `json:"name"`
	Email       string            `json:"email"`
	Rating      int               `json:"rating"`
	Body        string            `json:"body"`
	Title       string            `json:"title"`
	ProductID   *int64            `json:"id"`
	PictureURLs map[string]string `json:"picture_urls"`
	IPAddr      string            `json:"ip_addr,omitempty"`
}

type SubmitResult struct {
	Status         string         `json:"status"`
	Message        string         `json:"message"`
	Review         map[string]any `json:"review,omitempty"`
	UploadedImages []string       `json:"uploaded_images"`
	AsyncMedia     bool           `json:"async_media"`
}
