package wardrobe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"scentMateAi/internal/auth"
	"scentMateAi/internal/events"
	"scentMateAi/internal/storage"
	"scentMateAi/internal/weather"
)

const profileRefreshTimeout = 2 * time.Minute

// GetTasteProfile handles GET /api/profile. A user without a computed profile
// gets a JSON null, not an error.
func (h Handler) GetTasteProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	prof, err := h.Store.GetTasteProfile(r.Context(), user.ID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeJSON(w, http.StatusOK, nil)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, prof)
}

// RefreshTasteProfile handles POST /api/profile/refresh and recomputes the
// profile synchronously.
func (h Handler) RefreshTasteProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	prof, err := h.computeProfile(r.Context(), user.ID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if prof == nil {
		writeJSON(w, http.StatusOK, nil)
		return
	}

	writeJSON(w, http.StatusOK, prof)
}

// computeProfile rebuilds the taste profile from the wardrobe and replaces the
// stored document. Wishlist entries do not count; the profile reflects what
// the user actually owns, and it is removed entirely once the wardrobe
// empties. AI analysis falls back to the heuristic on any failure, so
// recomputation never fails because the model does.
func (h Handler) computeProfile(ctx context.Context, userID string) (*storage.TasteProfile, error) {
	collection, err := h.Store.ListFragrances(ctx, userID, storage.FilterWardrobe)
	if err != nil {
		return nil, fmt.Errorf("list wardrobe: %w", err)
	}

	if len(collection) == 0 {
		if err := h.Store.DeleteTasteProfile(ctx, userID); err != nil && !errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("delete taste profile: %w", err)
		}
		return nil, nil
	}

	prof := h.Analyzer.Analyze(ctx, userID, collection)

	stored, err := h.Store.ReplaceTasteProfile(ctx, prof)
	if err != nil {
		return nil, fmt.Errorf("replace taste profile: %w", err)
	}

	return &stored, nil
}

// refreshProfileAsync recomputes the taste profile in the background after a
// wardrobe mutation. The request context is detached so the work survives the
// response, and subscribers learn the outcome over SSE.
func (h Handler) refreshProfileAsync(ctx context.Context, userID string) {
	bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), profileRefreshTimeout)

	go func() {
		defer cancel()

		h.publish(events.Event{
			UserID: userID,
			Kind:   events.KindPersonalization,
			Status: events.StatusPending,
		})

		if _, err := h.computeProfile(bg, userID); err != nil {
			log.Printf("profile refresh for user %s failed: %v", userID, err)
			h.publish(events.Event{
				UserID: userID,
				Kind:   events.KindPersonalization,
				Status: events.StatusFailed,
				Detail: "taste profile could not be updated",
			})
			return
		}

		h.publish(events.Event{
			UserID: userID,
			Kind:   events.KindPersonalization,
			Status: events.StatusReady,
		})
	}()
}

func (h Handler) publish(evt events.Event) {
	if h.Events != nil {
		h.Events.Publish(evt)
	}
}

// RecommendRequest carries the context for a daily recommendation.
type RecommendRequest struct {
	City     string `json:"city"`
	Occasion string `json:"occasion"`
}

// Recommend handles POST /api/recommend. An empty wardrobe yields a JSON null.
func (h Handler) Recommend(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if h.Recommender == nil {
		http.Error(w, "assistant not configured", http.StatusServiceUnavailable)
		return
	}

	var req RecommendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	candidates, err := h.Store.ListFragrances(r.Context(), user.ID, storage.FilterWardrobe)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	prof := h.loadProfile(r.Context(), user.ID)

	report := weather.DefaultReport()
	if h.Weather != nil {
		live, err := h.Weather.Current(r.Context(), req.City)
		if err != nil {
			// Weather is flavor, not a dependency. Recommend with the
			// mild-day assumption rather than a zeroed report.
			log.Printf("weather lookup failed: %v", err)
		} else {
			report = live
		}
	}

	result, err := h.Recommender.Recommend(r.Context(), candidates, prof, report, req.Occasion)
	if err != nil {
		writeAssistantError(w, err)
		return
	}
	if result == nil {
		writeJSON(w, http.StatusOK, nil)
		return
	}

	writeJSON(w, http.StatusOK, toRecommendationView(*result))
}

// PlanLayerings handles POST /api/layerings/plan. Fewer than two owned
// fragrances yields an empty list.
func (h Handler) PlanLayerings(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if h.Planner == nil {
		http.Error(w, "assistant not configured", http.StatusServiceUnavailable)
		return
	}

	candidates, err := h.Store.ListFragrances(r.Context(), user.ID, storage.FilterWardrobe)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	combos, err := h.Planner.Plan(r.Context(), candidates, h.loadProfile(r.Context(), user.ID))
	if err != nil {
		writeAssistantError(w, err)
		return
	}

	views := make([]combinationView, 0, len(combos))
	for _, combo := range combos {
		views = append(views, toCombinationView(combo))
	}

	writeJSON(w, http.StatusOK, views)
}

// SaveLayeringRequest bookmarks a layering pair from the wardrobe.
type SaveLayeringRequest struct {
	BaseID       string `json:"base_id"`
	LayerID      string `json:"layer_id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	Occasion     string `json:"occasion"`
	HarmonyScore int    `json:"harmony_score"`
}

// SaveLayering handles POST /api/layerings. Both halves of the pair must be
// distinct fragrances the user owns.
func (h Handler) SaveLayering(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req SaveLayeringRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	req.BaseID = strings.TrimSpace(req.BaseID)
	req.LayerID = strings.TrimSpace(req.LayerID)
	if req.BaseID == "" || req.LayerID == "" {
		http.Error(w, "base_id and layer_id are required", http.StatusBadRequest)
		return
	}
	if req.BaseID == req.LayerID {
		http.Error(w, "a fragrance cannot be layered with itself", http.StatusBadRequest)
		return
	}

	for _, id := range []string{req.BaseID, req.LayerID} {
		if _, err := h.Store.GetFragrance(r.Context(), user.ID, id); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				http.Error(w, "fragrance not found", http.StatusNotFound)
				return
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}

	score := req.HarmonyScore
	if score <= 0 {
		score = 80
	} else if score > 100 {
		score = 100
	}

	saved, err := h.Store.SaveLayering(r.Context(), storage.SavedLayering{
		UserID:       user.ID,
		BaseID:       req.BaseID,
		LayerID:      req.LayerID,
		Name:         strings.TrimSpace(req.Name),
		Description:  strings.TrimSpace(req.Description),
		Occasion:     strings.TrimSpace(req.Occasion),
		HarmonyScore: score,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, saved)
}

// ListSavedLayerings handles GET /api/layerings.
func (h Handler) ListSavedLayerings(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	saved, err := h.Store.ListSavedLayerings(r.Context(), user.ID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, saved)
}

// DeleteSavedLayering handles DELETE /api/layerings/{baseID}/{layerID}.
func (h Handler) DeleteSavedLayering(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	err := h.Store.DeleteSavedLayering(r.Context(), user.ID, chi.URLParam(r, "baseID"), chi.URLParam(r, "layerID"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.Error(w, "saved layering not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DiscoverRequest carries the free-text intent for fragrance discovery.
type DiscoverRequest struct {
	Query string `json:"query"`
}

// Discover handles POST /api/discover. A blank query yields an empty list
// without consulting the assistant.
func (h Handler) Discover(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if h.Discovery == nil {
		http.Error(w, "assistant not configured", http.StatusServiceUnavailable)
		return
	}

	var req DiscoverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	profiles, err := h.Discovery.Discover(r.Context(), req.Query, h.loadProfile(r.Context(), user.ID))
	if err != nil {
		writeAssistantError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, profiles)
}

// loadProfile fetches the taste profile if one exists. Personalization is
// optional everywhere, so a missing or failing lookup degrades to nil.
func (h Handler) loadProfile(ctx context.Context, userID string) *storage.TasteProfile {
	prof, err := h.Store.GetTasteProfile(ctx, userID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			log.Printf("load taste profile failed: %v", err)
		}
		return nil
	}
	return &prof
}

// StreamEvents handles GET /api/events as an SSE stream of the current user's
// background updates.
func (h Handler) StreamEvents(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if h.Events == nil {
		http.Error(w, "events not configured", http.StatusServiceUnavailable)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := h.Events.Subscribe()
	defer h.Events.Unsubscribe(ch)

	for {
		select {
		case <-r.Context().Done():
			return
		case evt := <-ch:
			if evt.UserID != user.ID {
				continue
			}
			data, err := json.Marshal(evt)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}
