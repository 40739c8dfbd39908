package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"scentMateAi/internal/llm"
	"scentMateAi/internal/storage"
)

// Style and intensity vocabulary for heuristic analysis. The AI path may
// return a free-text combination ("Woody Oriental") which is kept verbatim.
const (
	StyleBalanced     = "Balanced"
	IntensityModerate = "Moderate"
)

const (
	maxPreferredBrands = 5
	maxPreferredNotes  = 10
)

// styleKeywords maps each heuristic style label to the note keywords that
// vote for it. Matching is case-insensitive substring containment, so
// "sicilian bergamot" still counts toward Fresh. Order is the tie-break.
var styleKeywords = []struct {
	Label    string
	Keywords []string
}{
	{"Fresh", []string{"citrus", "bergamot", "lemon", "orange", "mint", "aquatic"}},
	{"Floral", []string{"rose", "jasmine", "peony", "lily", "violet", "lavender"}},
	{"Woody", []string{"sandalwood", "cedar", "vetiver", "oud", "patchouli", "moss"}},
	{"Oriental", []string{"amber", "vanilla", "musk", "incense", "resin", "tonka"}},
	{"Fruity", []string{"apple", "peach", "berry", "pear", "plum", "blackcurrant"}},
}

// AnalyzeHeuristically derives a taste profile from the collection without
// any external call. It is deterministic and always succeeds, which makes it
// the safety net whenever the AI analysis path fails.
func AnalyzeHeuristically(userID string, collection []storage.Fragrance) storage.TasteProfile {
	brands := newCounter()
	notes := newCounter()

	for _, item := range collection {
		if brand := strings.TrimSpace(item.Brand); brand != "" {
			brands.add(brand)
		}
		for _, layer := range []string{item.TopNotes, item.MiddleNotes, item.BaseNotes} {
			for _, note := range storage.SplitNotes(layer) {
				notes.add(note)
			}
		}
	}

	return storage.TasteProfile{
		UserID:          userID,
		PreferredBrands: brands.top(maxPreferredBrands),
		PreferredNotes:  notes.top(maxPreferredNotes),
		Style:           dominantStyle(notes),
		Intensity:       IntensityModerate,
		Occasions:       map[string]int{},
		UpdatedAt:       time.Now(),
	}
}

func dominantStyle(notes *counter) string {
	best := StyleBalanced
	bestScore := 0
	for _, style := range styleKeywords {
		score := 0
		for _, term := range notes.keys {
			lower := strings.ToLower(term)
			for _, keyword := range style.Keywords {
				if strings.Contains(lower, keyword) {
					score += notes.counts[term]
					break
				}
			}
		}
		if score > bestScore {
			best = style.Label
			bestScore = score
		}
	}
	return best
}

// counter tallies case-sensitive terms while remembering first-seen order,
// so equal frequencies rank deterministically regardless of map iteration.
type counter struct {
	counts map[string]int
	keys   []string
}

func newCounter() *counter {
	return &counter{counts: make(map[string]int)}
}

func (c *counter) add(term string) {
	if _, seen := c.counts[term]; !seen {
		c.keys = append(c.keys, term)
	}
	c.counts[term]++
}

func (c *counter) top(limit int) []string {
	ranked := make([]string, len(c.keys))
	copy(ranked, c.keys)
	sort.SliceStable(ranked, func(i, j int) bool {
		return c.counts[ranked[i]] > c.counts[ranked[j]]
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// Analyzer runs the AI-driven preference analysis.
type Analyzer struct {
	client llm.Client
}

// NewAnalyzer constructs an analyzer backed by the given generation client.
func NewAnalyzer(client llm.Client) *Analyzer {
	return &Analyzer{client: client}
}

// Analyze produces a taste profile, preferring the model and falling back to
// the heuristic when it is unavailable or answers badly. Safe on a nil
// receiver, which means no generation client was configured.
func (a *Analyzer) Analyze(ctx context.Context, userID string, collection []storage.Fragrance) storage.TasteProfile {
	if a == nil || len(collection) == 0 {
		return AnalyzeHeuristically(userID, collection)
	}

	prof, err := a.AnalyzeWithAI(ctx, userID, collection)
	if err != nil {
		log.Printf("profile: ai analysis failed, using heuristic: %v", err)
		return AnalyzeHeuristically(userID, collection)
	}

	return prof
}

const analyzeSystemPrompt = `You are a fragrance preference analyst. You study a user's perfume collection and summarize their taste. Respond ONLY with JSON, no commentary.`

type analyzeResponse struct {
	PreferredBrands []string       `json:"preferredBrands"`
	PreferredNotes  []string       `json:"preferredNotes"`
	Style           string         `json:"style"`
	Intensity       string         `json:"intensity"`
	Occasions       map[string]int `json:"occasions"`
}

// AnalyzeWithAI asks the model for a structured taste profile. Any parse or
// shape failure is reported as llm.ErrBadResponse; the caller decides whether
// to fall back to AnalyzeHeuristically.
func (a *Analyzer) AnalyzeWithAI(ctx context.Context, userID string, collection []storage.Fragrance) (storage.TasteProfile, error) {
	if len(collection) == 0 {
		return storage.TasteProfile{}, fmt.Errorf("profile: empty collection")
	}

	prompt, err := buildAnalyzePrompt(collection)
	if err != nil {
		return storage.TasteProfile{}, err
	}

	raw, err := a.client.Generate(ctx, llm.Request{
		System:      analyzeSystemPrompt,
		Prompt:      prompt,
		Temperature: 0.3,
	})
	if err != nil {
		return storage.TasteProfile{}, fmt.Errorf("profile: generate: %w", err)
	}

	var resp analyzeResponse
	if err := json.Unmarshal([]byte(llm.ExtractJSON(raw)), &resp); err != nil {
		log.Printf("profile: unparsable analysis response: %q", raw)
		return storage.TasteProfile{}, fmt.Errorf("profile: parse analysis: %w: %v", llm.ErrBadResponse, err)
	}
	if strings.TrimSpace(resp.Style) == "" || strings.TrimSpace(resp.Intensity) == "" {
		log.Printf("profile: analysis response missing style or intensity: %q", raw)
		return storage.TasteProfile{}, fmt.Errorf("profile: incomplete analysis: %w", llm.ErrBadResponse)
	}

	if len(resp.PreferredBrands) > maxPreferredBrands {
		resp.PreferredBrands = resp.PreferredBrands[:maxPreferredBrands]
	}
	if len(resp.PreferredNotes) > maxPreferredNotes {
		resp.PreferredNotes = resp.PreferredNotes[:maxPreferredNotes]
	}
	if resp.Occasions == nil {
		resp.Occasions = map[string]int{}
	}

	return storage.TasteProfile{
		UserID:          userID,
		PreferredBrands: resp.PreferredBrands,
		PreferredNotes:  resp.PreferredNotes,
		Style:           strings.TrimSpace(resp.Style),
		Intensity:       strings.TrimSpace(resp.Intensity),
		Occasions:       resp.Occasions,
		UpdatedAt:       time.Now(),
	}, nil
}

func buildAnalyzePrompt(collection []storage.Fragrance) (string, error) {
	type promptItem struct {
		Brand       string   `json:"brand"`
		Name        string   `json:"name"`
		Analogy     string   `json:"analogy,omitempty"`
		CoreFeeling string   `json:"coreFeeling,omitempty"`
		TopNotes    []string `json:"topNotes"`
		MiddleNotes []string `json:"middleNotes"`
		BaseNotes   []string `json:"baseNotes"`
		Favorite    bool     `json:"favorite"`
	}

	items := make([]promptItem, 0, len(collection))
	for _, f := range collection {
		items = append(items, promptItem{
			Brand:       f.Brand,
			Name:        f.Name,
			Analogy:     f.Analogy,
			CoreFeeling: f.CoreFeeling,
			TopNotes:    storage.SplitNotes(f.TopNotes),
			MiddleNotes: storage.SplitNotes(f.MiddleNotes),
			BaseNotes:   storage.SplitNotes(f.BaseNotes),
			Favorite:    f.Favorite,
		})
	}

	payload, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("profile: marshal collection: %w", err)
	}

	return fmt.Sprintf(`Analyze this perfume collection and derive the owner's taste profile.
Return JSON exactly in this shape:
{"preferredBrands":["up to 5 brands, most preferred first"],"preferredNotes":["up to 10 notes, most preferred first"],"style":"one of Fresh, Floral, Woody, Oriental, Fruity, Spicy, Aquatic, Gourmand, Balanced, or a short combination","intensity":"Light, Moderate or Strong","occasions":{"occasion label":count}}
Weigh favorites more heavily. Base the occasion counts on climate/occasion hints in the data; use an empty object when nothing is evident.

Collection:
%s`, payload), nil
}
