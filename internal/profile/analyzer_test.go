package profile

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scentMateAi/internal/llm"
	"scentMateAi/internal/storage"
)

type fakeClient struct {
	response string
	err      error
	calls    int
}

func (f *fakeClient) Generate(_ context.Context, _ llm.Request) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func record(brand string, top, middle, base string) storage.Fragrance {
	return storage.Fragrance{
		Brand:       brand,
		Name:        brand + " Test",
		TopNotes:    top,
		MiddleNotes: middle,
		BaseNotes:   base,
	}
}

func TestAnalyzeHeuristicallyEmptyCollection(t *testing.T) {
	got := AnalyzeHeuristically("u1", nil)

	assert.Equal(t, "u1", got.UserID)
	assert.Empty(t, got.PreferredBrands)
	assert.Empty(t, got.PreferredNotes)
	assert.Equal(t, StyleBalanced, got.Style)
	assert.Equal(t, IntensityModerate, got.Intensity)
	assert.Empty(t, got.Occasions)
}

func TestAnalyzeHeuristicallyBrandRanking(t *testing.T) {
	collection := []storage.Fragrance{
		record("Dior", "", "", ""),
		record("Chanel", "", "", ""),
		record("Dior", "", "", ""),
		record("Creed", "", "", ""),
		record("Guerlain", "", "", ""),
		record("Armani", "", "", ""),
		record("Hermes", "", "", ""),
	}

	got := AnalyzeHeuristically("u1", collection)

	require.Len(t, got.PreferredBrands, 5)
	assert.Equal(t, "Dior", got.PreferredBrands[0])
	// Equal-frequency brands keep first-seen order.
	assert.Equal(t, []string{"Dior", "Chanel", "Creed", "Guerlain", "Armani"}, got.PreferredBrands)
}

func TestAnalyzeHeuristicallyNoteRanking(t *testing.T) {
	collection := []storage.Fragrance{
		record("A", "bergamot,citrus", "rose", "musk"),
		record("B", "citrus", "rose,jasmine", ""),
		record("C", "citrus", "", "musk"),
	}

	got := AnalyzeHeuristically("u1", collection)

	require.NotEmpty(t, got.PreferredNotes)
	assert.Equal(t, "citrus", got.PreferredNotes[0])
	for _, note := range got.PreferredNotes {
		assert.Contains(t, []string{"bergamot", "citrus", "rose", "musk", "jasmine"}, note)
	}
	assert.LessOrEqual(t, len(got.PreferredNotes), 10)
}

func TestAnalyzeHeuristicallyFloralStyle(t *testing.T) {
	collection := []storage.Fragrance{
		record("A", "rose,jasmine", "peony", ""),
		record("B", "rose", "jasmine", "peony"),
		record("C", "peony,rose", "", "jasmine"),
	}

	got := AnalyzeHeuristically("u1", collection)
	assert.Equal(t, "Floral", got.Style)
}

func TestAnalyzeHeuristicallyBalancedFallback(t *testing.T) {
	collection := []storage.Fragrance{
		record("A", "leather,tobacco", "", ""),
	}

	got := AnalyzeHeuristically("u1", collection)
	assert.Equal(t, StyleBalanced, got.Style)
}

func TestAnalyzeWithAIParsesProfile(t *testing.T) {
	client := &fakeClient{response: "```json\n" +
		`{"preferredBrands":["Dior","Chanel"],"preferredNotes":["bergamot","rose"],"style":"Fresh Floral","intensity":"Light","occasions":{"office":4}}` +
		"\n```"}
	analyzer := NewAnalyzer(client)

	got, err := analyzer.AnalyzeWithAI(context.Background(), "u1", []storage.Fragrance{record("Dior", "bergamot", "", "")})
	require.NoError(t, err)
	assert.Equal(t, 1, client.calls)
	assert.Equal(t, []string{"Dior", "Chanel"}, got.PreferredBrands)
	assert.Equal(t, "Fresh Floral", got.Style)
	assert.Equal(t, "Light", got.Intensity)
	assert.Equal(t, map[string]int{"office": 4}, got.Occasions)
}

func TestAnalyzeWithAIBadResponse(t *testing.T) {
	client := &fakeClient{response: "I'm sorry, I can't analyze that."}
	analyzer := NewAnalyzer(client)

	_, err := analyzer.AnalyzeWithAI(context.Background(), "u1", []storage.Fragrance{record("Dior", "", "", "")})
	assert.ErrorIs(t, err, llm.ErrBadResponse)
}

func TestAnalyzeWithAIMissingFields(t *testing.T) {
	client := &fakeClient{response: `{"preferredBrands":["Dior"]}`}
	analyzer := NewAnalyzer(client)

	_, err := analyzer.AnalyzeWithAI(context.Background(), "u1", []storage.Fragrance{record("Dior", "", "", "")})
	assert.ErrorIs(t, err, llm.ErrBadResponse)
}

func TestAnalyzeWithAITransportFailure(t *testing.T) {
	transportErr := errors.New("quota exceeded")
	client := &fakeClient{err: transportErr}
	analyzer := NewAnalyzer(client)

	_, err := analyzer.AnalyzeWithAI(context.Background(), "u1", []storage.Fragrance{record("Dior", "", "", "")})
	assert.ErrorIs(t, err, transportErr)
	assert.NotErrorIs(t, err, llm.ErrBadResponse)
}
