package domain

// RawReview is a review object exactly as Judge.me returns it. Field shapes drift
// between API versions, so it is read through alias lookups rather than a struct.
type RawReview = map[string]any

type ReviewView struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Body      string   `json:"body"`
	Rating    int      `json:"rating"`
	Author    string   `json:"author"`
	Verified  bool     `json:"verified"`
	Pinned    bool     `json:"pinned"`
	Handle    string   `json:"product_handle"`
	CreatedAt string   `json:"created_at,omitempty"`
	Media     []string `json:"media"`
	AvatarURL string   `json:"avatar_url"`
	Avatar    Avatar   `json:"avatar"`
}

// Avatar describes a generated DiceBear "avataaars" illustration.
type Avatar struct {
	Gender                string `json:"gender"`
	Top                   string `json:"top"`
	FacialHairProbability int    `json:"facial_hair_probability"`
	SkinColor             string `json:"skin_color"`
	BackgroundColor       string `json:"background_color"`
	Mouth                 string `json:"mouth"`
	Eyes                  string `json:"eyes"`
	Eyebrows              string `json:"eyebrows"`
	Seed                  string `json:"seed"`
	URL                   string `json:"url"`
}

type Stats struct {
	Average      string         `json:"average"`
	Count        int            `json:"count"`
	Distribution map[string]int `json:"distribution"` // keys "1".."5"
}

// Meta is diagnostic only.
type Meta struct {
	Handle        string   `json:"handle"`
	TotalFetched  int      `json:"total_fetched"`
	Matched       int      `json:"matched"`
	SampleHandles []string `json:"sample_handles,omitempty"`
}

type ProductReviews struct {
	Stats   Stats        `json:"stats"`
	Reviews []ReviewView `json:"reviews"`
	Meta    Meta         `json:"meta"`
}
