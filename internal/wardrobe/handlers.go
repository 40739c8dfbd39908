package wardrobe

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"scentMateAi/internal/auth"
	"scentMateAi/internal/discovery"
	"scentMateAi/internal/events"
	"scentMateAi/internal/identify"
	"scentMateAi/internal/layering"
	"scentMateAi/internal/media"
	"scentMateAi/internal/profile"
	"scentMateAi/internal/recommend"
	"scentMateAi/internal/storage"
	"scentMateAi/internal/weather"
)

// Handler bundles dependencies for wardrobe and assistant endpoints.
type Handler struct {
	Store       storage.Store
	Uploader    media.Uploader
	Identifier  *identify.Identifier
	Analyzer    *profile.Analyzer
	Recommender *recommend.Engine
	Planner     *layering.Planner
	Discovery   *discovery.Engine
	Weather     weather.Provider
	Events      *events.Broker
}

// CreateFragranceRequest describes inbound payload for cataloguing a fragrance.
type CreateFragranceRequest struct {
	Brand        string   `json:"brand"`
	Name         string   `json:"name"`
	ImageURL     string   `json:"image_url,omitempty"`
	Analogy      string   `json:"analogy"`
	CoreFeeling  string   `json:"core_feeling"`
	LocalContext string   `json:"local_context"`
	TopNotes     []string `json:"top_notes"`
	MiddleNotes  []string `json:"middle_notes"`
	BaseNotes    []string `json:"base_notes"`
	Wishlist     bool     `json:"wishlist"`
}

type uploadPayload struct {
	data        []byte
	filename    string
	contentType string
}

// CreateFragrance handles POST /api/fragrances. Multipart requests may carry a
// bottle photo; when brand or name is missing the photo is run through the
// identifier to fill them in.
func (h Handler) CreateFragrance(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var (
		req    CreateFragranceRequest
		upload *uploadPayload
		err    error
	)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		req, upload, err = parseMultipartRequest(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	} else {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		trimCreateRequest(&req)
	}

	imageURL := req.ImageURL
	if upload != nil {
		if (req.Brand == "" || req.Name == "") && h.Identifier != nil {
			ident, err := h.Identifier.Identify(r.Context(), upload.data, upload.contentType)
			if err != nil {
				log.Printf("identify failed: %v", err)
			} else {
				if req.Brand == "" {
					req.Brand = ident.Brand
				}
				if req.Name == "" {
					req.Name = ident.Name
				}
			}
		}

		if h.Uploader == nil {
			http.Error(w, "photo upload not configured", http.StatusInternalServerError)
			return
		}
		result, err := h.Uploader.Upload(r.Context(), media.UploadInput{
			Filename:    upload.filename,
			ContentType: upload.contentType,
			Body:        bytes.NewReader(upload.data),
			Size:        int64(len(upload.data)),
		})
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, media.ErrUploaderDisabled) {
				status = http.StatusBadRequest
			} else {
				log.Printf("upload failed: %v", err)
			}
			http.Error(w, "could not store photo", status)
			return
		}
		imageURL = result.URL
	}

	if req.Brand == "" && req.Name == "" {
		http.Error(w, "brand or name is required", http.StatusBadRequest)
		return
	}
	if req.Brand == "" {
		req.Brand = identify.UnknownBrand
	}
	if req.Name == "" {
		req.Name = identify.UnknownName
	}

	item, err := h.Store.CreateFragrance(r.Context(), storage.Fragrance{
		UserID:       user.ID,
		Brand:        req.Brand,
		Name:         req.Name,
		ImageURL:     imageURL,
		Analogy:      req.Analogy,
		CoreFeeling:  req.CoreFeeling,
		LocalContext: req.LocalContext,
		TopNotes:     storage.JoinNotes(req.TopNotes),
		MiddleNotes:  storage.JoinNotes(req.MiddleNotes),
		BaseNotes:    storage.JoinNotes(req.BaseNotes),
		Wishlist:     req.Wishlist,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if !item.Wishlist {
		h.refreshProfileAsync(r.Context(), user.ID)
	}

	writeJSON(w, http.StatusCreated, toFragranceView(item))
}

// ListFragrances handles GET /api/fragrances with an optional ?filter= of
// wardrobe, wishlist or favorites.
func (h Handler) ListFragrances(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	filter := storage.FragranceFilter(strings.TrimSpace(r.URL.Query().Get("filter")))
	switch filter {
	case storage.FilterAll, storage.FilterWardrobe, storage.FilterWishlist, storage.FilterFavorites:
	default:
		http.Error(w, "unknown filter", http.StatusBadRequest)
		return
	}

	items, err := h.Store.ListFragrances(r.Context(), user.ID, filter)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	views := make([]fragranceView, 0, len(items))
	for _, item := range items {
		views = append(views, toFragranceView(item))
	}

	writeJSON(w, http.StatusOK, views)
}

// GetFragrance handles GET /api/fragrances/{id}.
func (h Handler) GetFragrance(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	item, err := h.Store.GetFragrance(r.Context(), user.ID, chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.Error(w, "fragrance not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, toFragranceView(item))
}

// SetFavorite handles PATCH /api/fragrances/{id}/favorite.
func (h Handler) SetFavorite(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req struct {
		Favorite bool `json:"favorite"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	item, err := h.Store.SetFavorite(r.Context(), user.ID, chi.URLParam(r, "id"), req.Favorite)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.Error(w, "fragrance not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	// Favorites weigh into the taste profile, so a toggle is a mutation too.
	h.refreshProfileAsync(r.Context(), user.ID)

	writeJSON(w, http.StatusOK, toFragranceView(item))
}

// DeleteFragrance handles DELETE /api/fragrances/{id}. Saved layerings that
// reference the fragrance are removed with it.
func (h Handler) DeleteFragrance(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	if err := h.Store.DeleteFragrance(r.Context(), user.ID, chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.Error(w, "fragrance not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.refreshProfileAsync(r.Context(), user.ID)

	w.WriteHeader(http.StatusNoContent)
}

// Identify handles POST /api/identify: a standalone bottle-photo lookup that
// does not catalogue anything.
func (h Handler) Identify(w http.ResponseWriter, r *http.Request) {
	if h.Identifier == nil {
		http.Error(w, "assistant not configured", http.StatusServiceUnavailable)
		return
	}

	_, upload, err := parseMultipartRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if upload == nil {
		http.Error(w, "photo is required", http.StatusBadRequest)
		return
	}

	ident, err := h.Identifier.Identify(r.Context(), upload.data, upload.contentType)
	if err != nil {
		writeAssistantError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ident)
}

func parseMultipartRequest(r *http.Request) (CreateFragranceRequest, *uploadPayload, error) {
	const maxFormMemory = identify.MaxImageBytes + (1 << 20)
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		return CreateFragranceRequest{}, nil, fmt.Errorf("invalid multipart payload: %w", err)
	}

	req := CreateFragranceRequest{
		Brand:        strings.TrimSpace(r.FormValue("brand")),
		Name:         strings.TrimSpace(r.FormValue("name")),
		ImageURL:     strings.TrimSpace(r.FormValue("image_url")),
		Analogy:      strings.TrimSpace(r.FormValue("analogy")),
		CoreFeeling:  strings.TrimSpace(r.FormValue("core_feeling")),
		LocalContext: strings.TrimSpace(r.FormValue("local_context")),
		TopNotes:     storage.SplitNotes(r.FormValue("top_notes")),
		MiddleNotes:  storage.SplitNotes(r.FormValue("middle_notes")),
		BaseNotes:    storage.SplitNotes(r.FormValue("base_notes")),
	}

	if wishlistRaw := strings.TrimSpace(r.FormValue("wishlist")); wishlistRaw != "" {
		req.Wishlist = wishlistRaw == "true" || wishlistRaw == "1"
	}

	file, header, err := r.FormFile("photo")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return req, nil, nil
		}
		return req, nil, fmt.Errorf("could not read photo: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, identify.MaxImageBytes+1))
	if err != nil {
		return req, nil, fmt.Errorf("read photo: %w", err)
	}
	if len(data) > identify.MaxImageBytes {
		return req, nil, fmt.Errorf("photo is too large (max %d MB)", identify.MaxImageBytes/(1024*1024))
	}
	if len(data) == 0 {
		return req, nil, nil
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	return req, &uploadPayload{
		data:        data,
		filename:    header.Filename,
		contentType: contentType,
	}, nil
}

func trimCreateRequest(req *CreateFragranceRequest) {
	req.Brand = strings.TrimSpace(req.Brand)
	req.Name = strings.TrimSpace(req.Name)
	req.ImageURL = strings.TrimSpace(req.ImageURL)
	req.Analogy = strings.TrimSpace(req.Analogy)
	req.CoreFeeling = strings.TrimSpace(req.CoreFeeling)
	req.LocalContext = strings.TrimSpace(req.LocalContext)
}
