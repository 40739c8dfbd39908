package layering

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"scentMateAi/internal/llm"
	"scentMateAi/internal/storage"
)

const defaultHarmonyScore = 80

// Combination is one proposed base+layer pairing. Base and Layer always
// resolve to distinct members of the candidate set the planner was given.
type Combination struct {
	Base         storage.Fragrance `json:"base"`
	Layer        storage.Fragrance `json:"layer"`
	Name         string            `json:"name"`
	Description  string            `json:"description"`
	Occasion     string            `json:"occasion"`
	HarmonyScore int               `json:"harmony_score"`
}

// Planner proposes compatible layering pairs from a candidate set.
type Planner struct {
	client llm.Client
}

// NewPlanner constructs a planner backed by the given generation client.
func NewPlanner(client llm.Client) *Planner {
	return &Planner{client: client}
}

const planSystemPrompt = `You are a fragrance layering expert. You combine perfumes from the user's own collection into harmonious pairs. Respond ONLY with a JSON array, no commentary.`

type planEntry struct {
	BaseID       string `json:"baseId"`
	LayerID      string `json:"layerId"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	Occasion     string `json:"occasion"`
	HarmonyScore *int   `json:"harmonyScore"`
}

// Plan returns layering combinations in the model's order. Individual array
// entries that fail to parse, reference unknown ids or pair a fragrance with
// itself are dropped; the rest of the batch survives. Fewer than two
// candidates yields an empty plan without a model call.
func (p *Planner) Plan(ctx context.Context, candidates []storage.Fragrance, profile *storage.TasteProfile) ([]Combination, error) {
	if len(candidates) < 2 {
		return []Combination{}, nil
	}

	raw, err := p.client.Generate(ctx, llm.Request{
		System:      planSystemPrompt,
		Prompt:      buildPlanPrompt(candidates, profile),
		Temperature: 0.5,
	})
	if err != nil {
		return nil, fmt.Errorf("layering: generate: %w", err)
	}

	var elements []json.RawMessage
	if err := json.Unmarshal([]byte(llm.ExtractJSON(raw)), &elements); err != nil {
		log.Printf("layering: unparsable response: %q", raw)
		return nil, fmt.Errorf("layering: parse response: %w: %v", llm.ErrBadResponse, err)
	}

	byID := make(map[string]storage.Fragrance, len(candidates))
	for _, c := range candidates {
		byID[c.ID] = c
	}

	combinations := make([]Combination, 0, len(elements))
	for idx, element := range elements {
		var entry planEntry
		if err := json.Unmarshal(element, &entry); err != nil {
			log.Printf("layering: dropping malformed entry %d: %v", idx, err)
			continue
		}

		base, baseOK := byID[entry.BaseID]
		layer, layerOK := byID[entry.LayerID]
		if !baseOK || !layerOK || entry.BaseID == entry.LayerID {
			log.Printf("layering: dropping entry %d with unresolved pair %q/%q", idx, entry.BaseID, entry.LayerID)
			continue
		}

		combinations = append(combinations, Combination{
			Base:         base,
			Layer:        layer,
			Name:         strings.TrimSpace(entry.Name),
			Description:  strings.TrimSpace(entry.Description),
			Occasion:     strings.TrimSpace(entry.Occasion),
			HarmonyScore: clampHarmony(entry.HarmonyScore),
		})
	}

	return combinations, nil
}

// clampHarmony applies the planner's score contract: a missing score defaults
// to 80, out-of-range values are clamped into 0-100. An explicit zero is a
// valid (if damning) verdict and is kept.
func clampHarmony(score *int) int {
	if score == nil {
		return defaultHarmonyScore
	}
	if *score < 0 {
		return 0
	}
	if *score > 100 {
		return 100
	}
	return *score
}

func buildPlanPrompt(candidates []storage.Fragrance, profile *storage.TasteProfile) string {
	var b strings.Builder

	b.WriteString("Collection:\n")
	for _, c := range candidates {
		fmt.Fprintf(&b, "- id=%s | %s %s | top: %s | middle: %s | base: %s\n",
			c.ID, c.Brand, c.Name,
			strings.Join(storage.SplitNotes(c.TopNotes), ", "),
			strings.Join(storage.SplitNotes(c.MiddleNotes), ", "),
			strings.Join(storage.SplitNotes(c.BaseNotes), ", "))
	}

	if profile != nil {
		fmt.Fprintf(&b, "\nOwner preference: %s style, %s intensity", profile.Style, profile.Intensity)
		if len(profile.PreferredNotes) > 0 {
			fmt.Fprintf(&b, ", leans toward %s", strings.Join(profile.PreferredNotes, ", "))
		}
		b.WriteString("\n")
	}

	b.WriteString(`
Propose 2-4 layering pairs using distinct perfumes from the collection.
Return a JSON array exactly in this shape:
[{"baseId":"id","layerId":"id","name":"evocative combination name","description":"why the pair works","occasion":"best occasion","harmonyScore":0-100}]`)

	return b.String()
}
