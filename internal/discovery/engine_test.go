package discovery

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
	response   string
	err        error
	calls      int
	lastPrompt string
}

func (f *fakeClient) Generate(_ context.Context, req llm.Request) (string, error) {
	f.calls++
	f.lastPrompt = req.Prompt
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func TestDiscoverEmptyQuery(t *testing.T) {
	client := &fakeClient{}
	engine := NewEngine(client)

	profiles, err := engine.Discover(context.Background(), "   ", nil)
	require.NoError(t, err)
	assert.NotNil(t, profiles)
	assert.Empty(t, profiles)
	assert.Equal(t, 0, client.calls)
}

func TestDiscoverParsesSuggestions(t *testing.T) {
	client := &fakeClient{response: "Here you go:\n" + `[
		{"brand":"Acqua di Parma","name":"Colonia","analogy":"A linen shirt in Portofino","coreFeeling":"crisp effortless ease","localContext":"hot humid days","topNotes":["citrus"," bergamot"],"middleNotes":["rose"],"baseNotes":["vetiver"]},
		{"brand":"Le Labo","name":"Santal 33","analogy":"Smoke over cedar","coreFeeling":"quiet confidence","localContext":"cool evenings","topNotes":["cardamom"],"middleNotes":["iris"],"baseNotes":["sandalwood"]}
	]`}
	engine := NewEngine(client)

	profiles, err := engine.Discover(context.Background(), "something for a beach holiday", nil)
	require.NoError(t, err)
	require.Len(t, profiles, 2)

	assert.Equal(t, "Acqua di Parma", profiles[0].Brand)
	assert.Equal(t, []string{"citrus", "bergamot"}, profiles[0].TopNotes)
	assert.Equal(t, "Santal 33", profiles[1].Name)
}

func TestDiscoverSkipsBrokenElements(t *testing.T) {
	client := &fakeClient{response: `[
		{"brand":"Dior","name":"Homme"},
		{"brand":"","name":"Nameless"},
		{"brand":"Chanel","name":"Bleu"}
	]`}
	engine := NewEngine(client)

	profiles, err := engine.Discover(context.Background(), "office scent", nil)
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	assert.Equal(t, "Homme", profiles[0].Name)
	assert.Equal(t, "Bleu", profiles[1].Name)
}

func TestDiscoverTotalFailureYieldsEmptySlice(t *testing.T) {
	client := &fakeClient{response: "I have no suggestions."}
	engine := NewEngine(client)

	profiles, err := engine.Discover(context.Background(), "anything", nil)
	assert.ErrorIs(t, err, llm.ErrBadResponse)
	assert.NotNil(t, profiles)
	assert.Empty(t, profiles)
}

func TestDiscoverTransportFailureYieldsEmptySlice(t *testing.T) {
	client := &fakeClient{err: errors.New("unavailable")}
	engine := NewEngine(client)

	profiles, err := engine.Discover(context.Background(), "anything", nil)
	assert.Error(t, err)
	assert.NotNil(t, profiles)
	assert.Empty(t, profiles)
}

func TestDiscoverProfilePriming(t *testing.T) {
	client := &fakeClient{response: `[{"brand":"Dior","name":"Homme"}]`}
	engine := NewEngine(client)

	profile := &storage.TasteProfile{
		PreferredBrands: []string{"Dior", "Chanel"},
		PreferredNotes:  []string{"iris"},
		Style:           "Woody",
		Intensity:       "Moderate",
	}
	_, err := engine.Discover(context.Background(), "date night", profile)
	require.NoError(t, err)

	assert.Contains(t, client.lastPrompt, "Dior, Chanel")
	assert.Contains(t, client.lastPrompt, "iris")
	assert.Contains(t, client.lastPrompt, "Woody")
	assert.Contains(t, client.lastPrompt, "date night")
}
