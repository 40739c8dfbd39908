package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"
)

// GenAIClient implements Client on top of the official genai SDK. It covers
// the same contract as GeminiClient and exists for deployments that prefer
// SDK-managed credentials over raw API calls.
type GenAIClient struct {
	apiKey  string
	model   string
	timeout time.Duration
}

// NewGenAIClient constructs an SDK-backed Gemini client.
func NewGenAIClient(apiKey, model string, timeout time.Duration) *GenAIClient {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &GenAIClient{
		apiKey:  apiKey,
		model:   normalizeModel(model),
		timeout: timeout,
	}
}

// Generate runs a single generation call and returns the concatenated text parts.
func (c *GenAIClient) Generate(ctx context.Context, req Request) (string, error) {
	if c == nil || strings.TrimSpace(c.apiKey) == "" {
		return "", fmt.Errorf("genai: client unavailable")
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return "", fmt.Errorf("genai: empty prompt")
	}

	childCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	client, err := genai.NewClient(childCtx, &genai.ClientConfig{
		APIKey: c.apiKey,
	})
	if err != nil {
		return "", fmt.Errorf("genai: create client: %w", err)
	}

	parts := []*genai.Part{genai.NewPartFromText(req.Prompt)}
	if len(req.Image) > 0 {
		mime := strings.TrimSpace(req.ImageMIME)
		if mime == "" {
			mime = http.DetectContentType(req.Image)
		}
		parts = append(parts, genai.NewPartFromBytes(req.Image, mime))
	}

	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	var config *genai.GenerateContentConfig
	if strings.TrimSpace(req.System) != "" {
		config = &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(req.System, genai.RoleUser),
		}
	}

	resp, err := client.Models.GenerateContent(childCtx, c.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("genai: generate: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("genai: no candidates returned")
	}

	var texts []string
	for _, part := range resp.Candidates[0].Content.Parts {
		if trimmed := strings.TrimSpace(part.Text); trimmed != "" {
			texts = append(texts, trimmed)
		}
	}
	if len(texts) == 0 {
		return "", fmt.Errorf("genai: candidate missing text")
	}
	return strings.Join(texts, "\n\n"), nil
}
