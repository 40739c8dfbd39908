package identify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scentMateAi/internal/llm"
)

type fakeClient struct {
	response string
	err      error
	lastReq  llm.Request
}

func (f *fakeClient) Generate(_ context.Context, req llm.Request) (string, error) {
	f.lastReq = req
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

// Minimal JPEG magic bytes so MIME sniffing has something to chew on.
var jpegBytes = append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, make([]byte, 64)...)

func TestIdentifyParsesBrandAndName(t *testing.T) {
	client := &fakeClient{response: "```json\n{\"brand\":\"Dior\",\"name\":\"Sauvage\"}\n```"}
	identifier := NewIdentifier(client)

	got, err := identifier.Identify(context.Background(), jpegBytes, "image/jpeg")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Dior", got.Brand)
	assert.Equal(t, "Sauvage", got.Name)
	assert.False(t, got.IsUnknown())

	assert.Equal(t, jpegBytes, client.lastReq.Image)
	assert.Equal(t, "image/jpeg", client.lastReq.ImageMIME)
}

func TestIdentifyUnknownPassesThrough(t *testing.T) {
	client := &fakeClient{response: `{"brand":"Unknown","name":"Perfume"}`}
	identifier := NewIdentifier(client)

	got, err := identifier.Identify(context.Background(), jpegBytes, "")
	require.NoError(t, err)
	require.NotNil(t, got, "an Unknown answer is a valid result")
	assert.True(t, got.IsUnknown())
}

func TestIdentifyTransportFailure(t *testing.T) {
	client := &fakeClient{err: errors.New("deadline exceeded")}
	identifier := NewIdentifier(client)

	got, err := identifier.Identify(context.Background(), jpegBytes, "")
	assert.Nil(t, got)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, llm.ErrBadResponse)
}

func TestIdentifyUnparsableResponse(t *testing.T) {
	client := &fakeClient{response: "That looks like a nice bottle!"}
	identifier := NewIdentifier(client)

	got, err := identifier.Identify(context.Background(), jpegBytes, "")
	assert.Nil(t, got)
	assert.ErrorIs(t, err, llm.ErrBadResponse)
}

func TestIdentifyRejectsEmptyAndOversizedImages(t *testing.T) {
	client := &fakeClient{response: `{"brand":"Dior","name":"Sauvage"}`}
	identifier := NewIdentifier(client)

	_, err := identifier.Identify(context.Background(), nil, "")
	assert.Error(t, err)

	_, err = identifier.Identify(context.Background(), make([]byte, MaxImageBytes+1), "")
	assert.Error(t, err)
}

func TestDetectMime(t *testing.T) {
	assert.Equal(t, "image/png", detectMime(jpegBytes, "image/png"))
	assert.Equal(t, "image/jpeg", detectMime(jpegBytes, ""))
	assert.Equal(t, "image/jpeg", detectMime(jpegBytes, "application/json"))
}
