package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"review_proxy/internal/app"
	"review_proxy/internal/domain"
)

const maxBodyBytes = 1 << 20

type Handlers struct {
	Reviews *app.ReviewService
	Pins    *app.PinService
	Submit  *app.SubmissionService
	Auth    *app.AuthService
}

// errorBody is the JSON shape of every non-2xx response.
type errorBody struct {
	Error          string   `json:"error"`
	Details        any      `json:"details,omitempty"`
	UploadedImages []string `json:"uploaded_images,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

	s.mux.Route("/api", func(r chi.Router) {
		r.Post("/login", h.login)
		r.Get("/product-reviews", h.productReviews)
		r.Post("/toggle-pin", h.togglePin)
		r.Post("/submit-review", h.submitReview)

		r.Group(func(r chi.Router) {
			r.Use(RequireAuth(h.Auth))
			r.Get("/admin/pins", h.listPins)
			r.Post("/admin/password", h.changePassword)
		})
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

// writeError maps domain errors to a status code and the JSON error body.
func writeError(w http.ResponseWriter, err error) {
	var (
		ve *domain.ValidationError
		ae *domain.AuthError
		fe *domain.UpstreamFetchError
		se *domain.UpstreamSubmitError
	)
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: ve.Error()})
	case errors.As(err, &ae):
		status := http.StatusUnauthorized
		if ae.Reason == domain.AuthInvalidToken {
			status = http.StatusForbidden
		}
		writeJSON(w, status, errorBody{Error: ae.Error()})
	case errors.As(err, &fe):
		log.Error().Err(err).Msg("review fetch failed")
		writeJSON(w, http.StatusBadGateway, errorBody{Error: "Failed to fetch reviews", Details: fe.Payload})
	case errors.As(err, &se):
		log.Error().Err(err).Strs("uploaded_images", se.UploadedImages).Msg("review submission rejected")
		writeJSON(w, http.StatusBadGateway, errorBody{
			Error:          "Failed to submit review",
			Details:        se.Detail,
			UploadedImages: se.UploadedImages,
		})
	default:
		log.Error().Err(err).Msg("unhandled error")
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Internal server error"})
	}
}

// decodeJSON reads a bounded JSON body; numbers stay json.Number.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		return domain.NewValidationError("", "invalid JSON body")
	}
	return nil
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	return `W/"` + hex.EncodeToString(sum[:]) + `"`, body
}

func (h *Handlers) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	token, err := h.Auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (h *Handlers) productReviews(w http.ResponseWriter, r *http.Request) {
	handle := strings.TrimSpace(r.URL.Query().Get("handle"))
	if handle == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Product handle is required"})
		return
	}
	out, err := h.Reviews.GetReviewsForHandle(r.Context(), handle)
	if err != nil {
		writeError(w, err)
		return
	}

	etag, body := calcETagAndBody(out)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write product reviews body")
	}
}

func (h *Handlers) togglePin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID     any    `json:"id"`
		Action string `json:"action"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	ids, err := h.Pins.Toggle(r.Context(), idString(req.ID), req.Action)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "pinned_ids": ids})
}

func (h *Handlers) listPins(w http.ResponseWriter, r *http.Request) {
	ids, err := h.Pins.Load(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"pinned_ids": ids, "admin": AdminFrom(r.Context())})
}

func (h *Handlers) changePassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.Auth.SetPassword(r.Context(), req.Password); err != nil {
		writeError(w, err)
		return
	}
	log.Info().Str("admin", AdminFrom(r.Context())).Msg("admin password changed")
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

type submitRequest struct {
	Name          string      `json:"name"`
	Email         string      `json:"email"`
	Rating        json.Number `json:"rating"`
	Title         string      `json:"title"`
	Body          string      `json:"body"`
	Handle        string      `json:"handle"`
	ProductHandle string      `json:"product_handle"`
	Pictures      []string    `json:"pictures"`
}

func (h *Handlers) submitReview(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	rating := 0
	if req.Rating != "" {
		n, err := req.Rating.Int64()
		if err != nil {
			writeError(w, domain.NewValidationError("rating", "must be between 1 and 5"))
			return
		}
		rating = int(n)
	}
	handle := req.Handle
	if strings.TrimSpace(handle) == "" {
		handle = req.ProductHandle
	}
	ip := app.SanitizeIP(r.Header.Get("X-Forwarded-For"), r.RemoteAddr)

	res, err := h.Submit.SubmitReview(r.Context(), domain.SubmitInput{
		Name:     req.Name,
		Email:    req.Email,
		Rating:   rating,
		Title:    req.Title,
		Body:     req.Body,
		Handle:   handle,
		Pictures: req.Pictures,
		ClientIP: ip,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// idString accepts review ids sent either as JSON numbers or strings.
func idString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}
