package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"scentMateAi/internal/llm"
	"scentMateAi/internal/storage"
)

// Profile describes a suggested fragrance that the user does not necessarily
// own. It carries no id; one is assigned only when the suggestion is
// committed to the wishlist.
type Profile struct {
	Brand        string   `json:"brand"`
	Name         string   `json:"name"`
	Analogy      string   `json:"analogy"`
	CoreFeeling  string   `json:"core_feeling"`
	LocalContext string   `json:"local_context"`
	TopNotes     []string `json:"top_notes"`
	MiddleNotes  []string `json:"middle_notes"`
	BaseNotes    []string `json:"base_notes"`
}

// Engine proposes fragrances matching a free-text intent.
type Engine struct {
	client llm.Client
}

// NewEngine constructs an engine backed by the given generation client.
func NewEngine(client llm.Client) *Engine {
	return &Engine{client: client}
}

const discoverSystemPrompt = `You are a fragrance discovery assistant. You suggest real, well-known perfumes matching the user's intent. Respond ONLY with a JSON array, no commentary.`

type discoverEntry struct {
	Brand        string   `json:"brand"`
	Name         string   `json:"name"`
	Analogy      string   `json:"analogy"`
	CoreFeeling  string   `json:"coreFeeling"`
	LocalContext string   `json:"localContext"`
	TopNotes     []string `json:"topNotes"`
	MiddleNotes  []string `json:"middleNotes"`
	BaseNotes    []string `json:"baseNotes"`
}

// Discover returns suggested fragrances for the query. Array elements are
// parsed independently; a broken element is skipped and logged while the
// rest of the batch survives. The result is an empty slice, never nil, on a
// totally unusable response.
func (e *Engine) Discover(ctx context.Context, query string, profile *storage.TasteProfile) ([]Profile, error) {
	if strings.TrimSpace(query) == "" {
		return []Profile{}, nil
	}

	raw, err := e.client.Generate(ctx, llm.Request{
		System:      discoverSystemPrompt,
		Prompt:      buildDiscoverPrompt(query, profile),
		Temperature: 0.7,
	})
	if err != nil {
		return []Profile{}, fmt.Errorf("discovery: generate: %w", err)
	}

	var elements []json.RawMessage
	if err := json.Unmarshal([]byte(llm.ExtractJSON(raw)), &elements); err != nil {
		log.Printf("discovery: unparsable response: %q", raw)
		return []Profile{}, fmt.Errorf("discovery: parse response: %w: %v", llm.ErrBadResponse, err)
	}

	profiles := make([]Profile, 0, len(elements))
	for idx, element := range elements {
		var entry discoverEntry
		if err := json.Unmarshal(element, &entry); err != nil {
			log.Printf("discovery: dropping malformed suggestion %d: %v", idx, err)
			continue
		}
		if strings.TrimSpace(entry.Brand) == "" || strings.TrimSpace(entry.Name) == "" {
			log.Printf("discovery: dropping unnamed suggestion %d", idx)
			continue
		}

		profiles = append(profiles, Profile{
			Brand:        strings.TrimSpace(entry.Brand),
			Name:         strings.TrimSpace(entry.Name),
			Analogy:      strings.TrimSpace(entry.Analogy),
			CoreFeeling:  strings.TrimSpace(entry.CoreFeeling),
			LocalContext: strings.TrimSpace(entry.LocalContext),
			TopNotes:     cleanNotes(entry.TopNotes),
			MiddleNotes:  cleanNotes(entry.MiddleNotes),
			BaseNotes:    cleanNotes(entry.BaseNotes),
		})
	}

	return profiles, nil
}

func cleanNotes(notes []string) []string {
	kept := make([]string, 0, len(notes))
	for _, n := range notes {
		if trimmed := strings.TrimSpace(n); trimmed != "" {
			kept = append(kept, trimmed)
		}
	}
	return kept
}

func buildDiscoverPrompt(query string, profile *storage.TasteProfile) string {
	var b strings.Builder

	fmt.Fprintf(&b, "The user is looking for: %s\n", strings.TrimSpace(query))

	if profile != nil {
		b.WriteString("\nKnown preferences, favor suggestions that match them:\n")
		if len(profile.PreferredBrands) > 0 {
			fmt.Fprintf(&b, "- brands: %s\n", strings.Join(profile.PreferredBrands, ", "))
		}
		if len(profile.PreferredNotes) > 0 {
			fmt.Fprintf(&b, "- notes: %s\n", strings.Join(profile.PreferredNotes, ", "))
		}
		fmt.Fprintf(&b, "- style: %s\n- intensity: %s\n", profile.Style, profile.Intensity)
	}

	b.WriteString(`
Suggest 3-5 real fragrances.
Return a JSON array exactly in this shape:
[{"brand":"...","name":"...","analogy":"evocative one-line description","coreFeeling":"2-4 word mood","localContext":"climate/occasion suitability","topNotes":["..."],"middleNotes":["..."],"baseNotes":["..."]}]`)

	return b.String()
}
