package recommend

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scentMateAi/internal/llm"
	"scentMateAi/internal/storage"
	"scentMateAi/internal/weather"
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

var testCandidates = []storage.Fragrance{
	{ID: "a", Brand: "Dior", Name: "Sauvage", TopNotes: "bergamot,citrus", MiddleNotes: "pepper", BaseNotes: "ambroxan"},
	{ID: "b", Brand: "Chanel", Name: "No 5", TopNotes: "rose,jasmine", MiddleNotes: "ylang", BaseNotes: "vanilla"},
}

var hotWeather = weather.Report{TemperatureC: 30, Humidity: 80, Description: "clear"}

func TestRecommendEmptyCandidates(t *testing.T) {
	client := &fakeClient{}
	engine := NewEngine(client)

	result, err := engine.Recommend(context.Background(), nil, nil, hotWeather, "")
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.Equal(t, 0, client.calls, "no model call may be issued for an empty candidate set")
}

func TestRecommendEndToEnd(t *testing.T) {
	client := &fakeClient{response: `{"perfumeId":"a","reason":"Light citrus suits the heat.","layeringId":"none"}`}
	engine := NewEngine(client)

	result, err := engine.Recommend(context.Background(), testCandidates, nil, hotWeather, "")
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, testCandidates[0], result.Record)
	assert.Equal(t, "Light citrus suits the heat.", result.Reason)
	assert.Equal(t, NoLayering, result.Layering)
	assert.Equal(t, 1, client.calls)
}

func TestRecommendUnknownIDFails(t *testing.T) {
	client := &fakeClient{response: `{"perfumeId":"zzz","reason":"Sounds nice."}`}
	engine := NewEngine(client)

	result, err := engine.Recommend(context.Background(), testCandidates, nil, hotWeather, "")
	assert.Nil(t, result)
	assert.ErrorIs(t, err, llm.ErrBadResponse)
}

func TestRecommendLayeringPartnerResolved(t *testing.T) {
	client := &fakeClient{response: `{"perfumeId":"a","reason":"Fits the weather.","layeringId":"b","layeringReason":"Vanilla rounds off the citrus."}`}
	engine := NewEngine(client)

	result, err := engine.Recommend(context.Background(), testCandidates, nil, hotWeather, "date night")
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Contains(t, result.Layering, "Chanel No 5")
	assert.Contains(t, result.Layering, "Vanilla rounds off the citrus.")
}

func TestRecommendUnknownLayeringDegradesToSentinel(t *testing.T) {
	client := &fakeClient{response: `{"perfumeId":"a","reason":"Fits the weather.","layeringId":"ghost"}`}
	engine := NewEngine(client)

	result, err := engine.Recommend(context.Background(), testCandidates, nil, hotWeather, "")
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, NoLayering, result.Layering)
}

func TestRecommendMalformedResponse(t *testing.T) {
	client := &fakeClient{response: "The best choice is clearly Sauvage!"}
	engine := NewEngine(client)

	result, err := engine.Recommend(context.Background(), testCandidates, nil, hotWeather, "")
	assert.Nil(t, result)
	assert.ErrorIs(t, err, llm.ErrBadResponse)
}

func TestRecommendTransportFailure(t *testing.T) {
	transportErr := errors.New("connection reset")
	client := &fakeClient{err: transportErr}
	engine := NewEngine(client)

	result, err := engine.Recommend(context.Background(), testCandidates, nil, hotWeather, "")
	assert.Nil(t, result)
	assert.ErrorIs(t, err, transportErr)
	assert.Equal(t, 1, client.calls, "the engine must not retry on its own")
}

func TestRecommendPromptContents(t *testing.T) {
	client := &fakeClient{response: `{"perfumeId":"a","reason":"ok ok ok","layeringId":"none"}`}
	engine := NewEngine(client)

	profile := &storage.TasteProfile{
		Style:           "Fresh",
		Intensity:       "Light",
		PreferredBrands: []string{"Dior"},
		PreferredNotes:  []string{"bergamot"},
	}
	_, err := engine.Recommend(context.Background(), testCandidates, profile, hotWeather, "")
	require.NoError(t, err)

	prompt := client.lastPrompt
	for _, want := range []string{"id=a", "id=b", "Dior", "bergamot", "30°C", "80% humidity", "general daily wear"} {
		assert.True(t, strings.Contains(prompt, want), "prompt missing %q:\n%s", want, prompt)
	}
}

func TestRecommendPromptWithoutProfile(t *testing.T) {
	client := &fakeClient{response: `{"perfumeId":"a","reason":"ok ok ok","layeringId":"none"}`}
	engine := NewEngine(client)

	_, err := engine.Recommend(context.Background(), testCandidates, nil, hotWeather, "wedding")
	require.NoError(t, err)
	assert.Contains(t, client.lastPrompt, "no personalization")
	assert.Contains(t, client.lastPrompt, "wedding")
}
