package layering

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

var testCandidates = []storage.Fragrance{
	{ID: "a", Brand: "Dior", Name: "Sauvage", TopNotes: "bergamot"},
	{ID: "b", Brand: "Chanel", Name: "No 5", TopNotes: "rose"},
	{ID: "c", Brand: "Creed", Name: "Aventus", TopNotes: "pineapple"},
}

func TestPlanTooFewCandidates(t *testing.T) {
	client := &fakeClient{}
	planner := NewPlanner(client)

	combos, err := planner.Plan(context.Background(), testCandidates[:1], nil)
	require.NoError(t, err)
	assert.Empty(t, combos)
	assert.Equal(t, 0, client.calls, "no model call may be issued below two candidates")
}

func TestPlanParsesCombinations(t *testing.T) {
	client := &fakeClient{response: "```json\n" + `[
		{"baseId":"a","layerId":"b","name":"Citrus Silk","description":"Bright over soft.","occasion":"office","harmonyScore":91},
		{"baseId":"c","layerId":"a","name":"Summit","description":"Fruit meets zest.","occasion":"evening"}
	]` + "\n```"}
	planner := NewPlanner(client)

	combos, err := planner.Plan(context.Background(), testCandidates, nil)
	require.NoError(t, err)
	require.Len(t, combos, 2)

	assert.Equal(t, "a", combos[0].Base.ID)
	assert.Equal(t, "b", combos[0].Layer.ID)
	assert.Equal(t, 91, combos[0].HarmonyScore)
	// Missing score falls back to the default.
	assert.Equal(t, 80, combos[1].HarmonyScore)
	// Output keeps the model's array order.
	assert.Equal(t, "Citrus Silk", combos[0].Name)
	assert.Equal(t, "Summit", combos[1].Name)
}

func TestPlanDropsBadEntriesIndividually(t *testing.T) {
	client := &fakeClient{response: `[
		{"baseId":"a","layerId":"b","name":"One"},
		{"layerId":"c","name":"Missing base"},
		{"baseId":"a","layerId":"c","name":"Three"},
		{"baseId":"b","layerId":"c","name":"Four"}
	]`}
	planner := NewPlanner(client)

	combos, err := planner.Plan(context.Background(), testCandidates, nil)
	require.NoError(t, err)
	require.Len(t, combos, 3)
	assert.Equal(t, "One", combos[0].Name)
	assert.Equal(t, "Three", combos[1].Name)
	assert.Equal(t, "Four", combos[2].Name)
}

func TestPlanDropsSelfPairAndUnknownIDs(t *testing.T) {
	client := &fakeClient{response: `[
		{"baseId":"a","layerId":"a","name":"Self"},
		{"baseId":"zzz","layerId":"b","name":"Ghost"},
		{"baseId":"b","layerId":"a","name":"Valid"}
	]`}
	planner := NewPlanner(client)

	combos, err := planner.Plan(context.Background(), testCandidates, nil)
	require.NoError(t, err)
	require.Len(t, combos, 1)
	assert.Equal(t, "Valid", combos[0].Name)
}

func TestPlanClampsHarmonyScore(t *testing.T) {
	client := &fakeClient{response: `[
		{"baseId":"a","layerId":"b","harmonyScore":250},
		{"baseId":"b","layerId":"c","harmonyScore":-5},
		{"baseId":"c","layerId":"a","harmonyScore":0}
	]`}
	planner := NewPlanner(client)

	combos, err := planner.Plan(context.Background(), testCandidates, nil)
	require.NoError(t, err)
	require.Len(t, combos, 3)
	assert.Equal(t, 100, combos[0].HarmonyScore)
	assert.Equal(t, 0, combos[1].HarmonyScore)
	// An explicit zero is in range and must not be rewritten to the default.
	assert.Equal(t, 0, combos[2].HarmonyScore)
}

func TestPlanMalformedTopLevel(t *testing.T) {
	client := &fakeClient{response: "no pairs today"}
	planner := NewPlanner(client)

	combos, err := planner.Plan(context.Background(), testCandidates, nil)
	assert.Nil(t, combos)
	assert.ErrorIs(t, err, llm.ErrBadResponse)
}

func TestPlanTransportFailure(t *testing.T) {
	transportErr := errors.New("timeout")
	client := &fakeClient{err: transportErr}
	planner := NewPlanner(client)

	_, err := planner.Plan(context.Background(), testCandidates, nil)
	assert.ErrorIs(t, err, transportErr)
}
