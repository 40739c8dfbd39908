package wardrobe

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"scentMateAi/internal/layering"
	"scentMateAi/internal/llm"
	"scentMateAi/internal/recommend"
	"scentMateAi/internal/storage"
)

// fragranceView is the API shape of a catalogued fragrance. Note layers are
// real lists here; the comma-joined form never leaves the storage package.
type fragranceView struct {
	ID           string    `json:"id"`
	Brand        string    `json:"brand"`
	Name         string    `json:"name"`
	ImageURL     string    `json:"image_url,omitempty"`
	Analogy      string    `json:"analogy,omitempty"`
	CoreFeeling  string    `json:"core_feeling,omitempty"`
	LocalContext string    `json:"local_context,omitempty"`
	TopNotes     []string  `json:"top_notes"`
	MiddleNotes  []string  `json:"middle_notes"`
	BaseNotes    []string  `json:"base_notes"`
	Wishlist     bool      `json:"wishlist"`
	Favorite     bool      `json:"favorite"`
	CreatedAt    time.Time `json:"created_at"`
}

func toFragranceView(item storage.Fragrance) fragranceView {
	return fragranceView{
		ID:           item.ID,
		Brand:        item.Brand,
		Name:         item.Name,
		ImageURL:     item.ImageURL,
		Analogy:      item.Analogy,
		CoreFeeling:  item.CoreFeeling,
		LocalContext: item.LocalContext,
		TopNotes:     storage.SplitNotes(item.TopNotes),
		MiddleNotes:  storage.SplitNotes(item.MiddleNotes),
		BaseNotes:    storage.SplitNotes(item.BaseNotes),
		Wishlist:     item.Wishlist,
		Favorite:     item.Favorite,
		CreatedAt:    item.CreatedAt,
	}
}

type recommendationView struct {
	Record   fragranceView `json:"record"`
	Reason   string        `json:"reason"`
	Layering string        `json:"layering"`
}

func toRecommendationView(result recommend.Result) recommendationView {
	return recommendationView{
		Record:   toFragranceView(result.Record),
		Reason:   result.Reason,
		Layering: result.Layering,
	}
}

type combinationView struct {
	Base         fragranceView `json:"base"`
	Layer        fragranceView `json:"layer"`
	Name         string        `json:"name"`
	Description  string        `json:"description"`
	Occasion     string        `json:"occasion,omitempty"`
	HarmonyScore int           `json:"harmony_score"`
}

func toCombinationView(combo layering.Combination) combinationView {
	return combinationView{
		Base:         toFragranceView(combo.Base),
		Layer:        toFragranceView(combo.Layer),
		Name:         combo.Name,
		Description:  combo.Description,
		Occasion:     combo.Occasion,
		HarmonyScore: combo.HarmonyScore,
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeAssistantError maps generation failures to a 502. An unusable answer
// and an unreachable model look the same to the caller; the distinction only
// matters in the logs.
func writeAssistantError(w http.ResponseWriter, err error) {
	if errors.Is(err, llm.ErrBadResponse) {
		log.Printf("assistant returned an unusable answer: %v", err)
		http.Error(w, "assistant returned an unusable answer", http.StatusBadGateway)
		return
	}

	log.Printf("assistant request failed: %v", err)
	http.Error(w, "assistant unavailable", http.StatusBadGateway)
}
