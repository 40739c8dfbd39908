package recommend

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"scentMateAi/internal/llm"
	"scentMateAi/internal/storage"
	"scentMateAi/internal/weather"
)

// NoLayering is the fixed sentinel used when no layering partner is suggested.
const NoLayering = "No layering recommended"

// Result is the engine's pick: one fragrance from the candidate set, a
// natural-language reason and a layering suggestion (or the NoLayering
// sentinel). Results are ephemeral; nothing is persisted unless the caller
// saves it.
type Result struct {
	Record   storage.Fragrance `json:"record"`
	Reason   string            `json:"reason"`
	Layering string            `json:"layering"`
}

// Engine selects the best fragrance for the current context.
type Engine struct {
	client llm.Client
}

// NewEngine constructs an engine backed by the given generation client.
func NewEngine(client llm.Client) *Engine {
	return &Engine{client: client}
}

const recommendSystemPrompt = `You are a fragrance advisor. You pick exactly one perfume from the user's own collection for the given context. Respond ONLY with JSON, no commentary.`

const defaultOccasion = "general daily wear"

type recommendResponse struct {
	PerfumeID      string `json:"perfumeId"`
	Reason         string `json:"reason"`
	LayeringID     string `json:"layeringId"`
	LayeringReason string `json:"layeringReason"`
}

// Recommend returns the model's pick with its rationale, or (nil, nil) when
// there is nothing to choose from. The returned id is validated against the
// candidate set; an unknown id fails the call rather than being substituted.
// The engine never retries; that decision belongs to the caller.
func (e *Engine) Recommend(ctx context.Context, candidates []storage.Fragrance, profile *storage.TasteProfile, report weather.Report, occasion string) (*Result, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	raw, err := e.client.Generate(ctx, llm.Request{
		System:      recommendSystemPrompt,
		Prompt:      buildRecommendPrompt(candidates, profile, report, occasion),
		Temperature: 0.4,
	})
	if err != nil {
		return nil, fmt.Errorf("recommend: generate: %w", err)
	}

	var resp recommendResponse
	if err := json.Unmarshal([]byte(llm.ExtractJSON(raw)), &resp); err != nil {
		log.Printf("recommend: unparsable response: %q", raw)
		return nil, fmt.Errorf("recommend: parse response: %w: %v", llm.ErrBadResponse, err)
	}
	if strings.TrimSpace(resp.PerfumeID) == "" || strings.TrimSpace(resp.Reason) == "" {
		log.Printf("recommend: response missing perfumeId or reason: %q", raw)
		return nil, fmt.Errorf("recommend: incomplete response: %w", llm.ErrBadResponse)
	}

	byID := make(map[string]storage.Fragrance, len(candidates))
	for _, c := range candidates {
		byID[c.ID] = c
	}

	picked, ok := byID[resp.PerfumeID]
	if !ok {
		log.Printf("recommend: model named unknown candidate %q", resp.PerfumeID)
		return nil, fmt.Errorf("recommend: unknown perfume id %q: %w", resp.PerfumeID, llm.ErrBadResponse)
	}

	return &Result{
		Record:   picked,
		Reason:   strings.TrimSpace(resp.Reason),
		Layering: layeringText(resp, picked.ID, byID),
	}, nil
}

// layeringText resolves the optional layering partner. An unknown or missing
// partner id degrades to the sentinel instead of failing the recommendation.
func layeringText(resp recommendResponse, pickedID string, byID map[string]storage.Fragrance) string {
	id := strings.TrimSpace(resp.LayeringID)
	if id == "" || strings.EqualFold(id, "none") || id == pickedID {
		return NoLayering
	}
	partner, ok := byID[id]
	if !ok {
		return NoLayering
	}

	text := fmt.Sprintf("Layer with %s %s", partner.Brand, partner.Name)
	if reason := strings.TrimSpace(resp.LayeringReason); reason != "" {
		text = fmt.Sprintf("%s: %s", text, reason)
	}
	return text
}

func buildRecommendPrompt(candidates []storage.Fragrance, profile *storage.TasteProfile, report weather.Report, occasion string) string {
	var b strings.Builder

	b.WriteString("Candidates:\n")
	for _, c := range candidates {
		writeCandidateLine(&b, c)
	}

	b.WriteString("\n")
	if profile != nil {
		fmt.Fprintf(&b, "Taste profile: style %s, intensity %s", profile.Style, profile.Intensity)
		if len(profile.PreferredBrands) > 0 {
			fmt.Fprintf(&b, "; favorite brands: %s", strings.Join(profile.PreferredBrands, ", "))
		}
		if len(profile.PreferredNotes) > 0 {
			fmt.Fprintf(&b, "; favorite notes: %s", strings.Join(profile.PreferredNotes, ", "))
		}
		b.WriteString("\n")
	} else {
		b.WriteString("Taste profile: none, no personalization available.\n")
	}

	fmt.Fprintf(&b, "Weather: %.0f°C, %d%% humidity, %s\n", report.TemperatureC, report.Humidity, report.Description)

	if strings.TrimSpace(occasion) == "" {
		occasion = defaultOccasion
	}
	fmt.Fprintf(&b, "Occasion: %s\n", occasion)

	b.WriteString(`
Pick the single best candidate for this context.
Return JSON exactly in this shape:
{"perfumeId":"id of the chosen candidate","reason":"2-3 sentences explaining the choice","layeringId":"id of a second candidate that layers well, or \"none\"","layeringReason":"one sentence, empty when layeringId is none"}`)

	return b.String()
}

func writeCandidateLine(b *strings.Builder, c storage.Fragrance) {
	fmt.Fprintf(b, "- id=%s | %s %s", c.ID, c.Brand, c.Name)
	if c.Analogy != "" {
		fmt.Fprintf(b, " | analogy: %s", c.Analogy)
	}
	if c.CoreFeeling != "" {
		fmt.Fprintf(b, " | feeling: %s", c.CoreFeeling)
	}
	fmt.Fprintf(b, " | top: %s | middle: %s | base: %s\n",
		strings.Join(storage.SplitNotes(c.TopNotes), ", "),
		strings.Join(storage.SplitNotes(c.MiddleNotes), ", "),
		strings.Join(storage.SplitNotes(c.BaseNotes), ", "))
}
