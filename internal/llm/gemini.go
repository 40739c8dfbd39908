package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// GeminiClient wraps the Google Generative Language API. One client serves
// both plain text prompts and prompts carrying an inline bottle photo.
type GeminiClient struct {
	apiKey      string
	model       string
	visionModel string
	client      *http.Client
	tokenSource oauth2.TokenSource
}

const (
	defaultGeminiModel = "gemini-1.5-pro-latest"
	defaultVisionModel = "gemini-1.5-flash-001"
)

// NewGeminiClient constructs a Gemini client for the desired models. The
// vision model is used whenever a request carries image bytes.
func NewGeminiClient(apiKey, model, visionModel string, timeout time.Duration, tokenSource oauth2.TokenSource) *GeminiClient {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if strings.TrimSpace(visionModel) == "" {
		visionModel = defaultVisionModel
	}
	return &GeminiClient{
		apiKey:      apiKey,
		model:       normalizeModel(model),
		visionModel: normalizeModel(visionModel),
		client:      &http.Client{Timeout: timeout},
		tokenSource: tokenSource,
	}
}

// Generate sends the request to Gemini and returns the first candidate text.
func (c *GeminiClient) Generate(ctx context.Context, req Request) (string, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return "", fmt.Errorf("gemini: empty prompt")
	}

	parts := []map[string]any{
		{"text": req.Prompt},
	}
	if len(req.Image) > 0 {
		mime := strings.TrimSpace(req.ImageMIME)
		if mime == "" {
			mime = http.DetectContentType(req.Image)
		}
		parts = append(parts, map[string]any{
			"inline_data": map[string]string{
				"mime_type": mime,
				"data":      base64.StdEncoding.EncodeToString(req.Image),
			},
		})
	}

	payload := map[string]any{
		"contents": []map[string]any{
			{"role": "user", "parts": parts},
		},
		"generationConfig": map[string]any{
			"temperature": req.Temperature,
		},
	}
	if strings.TrimSpace(req.System) != "" {
		payload["systemInstruction"] = map[string]any{
			"parts": []map[string]string{
				{"text": req.System},
			},
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal gemini payload: %w", err)
	}

	model := c.model
	if len(req.Image) > 0 {
		model = c.visionModel
	}

	endpoint := fmt.Sprintf(
		"https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent",
		url.PathEscape(model),
	)
	if c.tokenSource == nil {
		if strings.TrimSpace(c.apiKey) == "" {
			return "", fmt.Errorf("gemini: missing API key or service account credentials")
		}
		endpoint = fmt.Sprintf("%s?key=%s", endpoint, url.QueryEscape(c.apiKey))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("gemini request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	if c.tokenSource != nil {
		token, err := c.tokenSource.Token()
		if err != nil {
			return "", fmt.Errorf("gemini: fetch oauth token: %w", err)
		}
		httpReq.Header.Set("Authorization", "Bearer "+token.AccessToken)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("gemini perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var failure struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&failure)
		return "", fmt.Errorf("gemini status %d: %s", resp.StatusCode, failure.Error.Message)
	}

	var completion struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return "", fmt.Errorf("gemini decode response: %w", err)
	}

	if len(completion.Candidates) == 0 || len(completion.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini returned no candidates")
	}

	var texts []string
	for _, part := range completion.Candidates[0].Content.Parts {
		if trimmed := strings.TrimSpace(part.Text); trimmed != "" {
			texts = append(texts, trimmed)
		}
	}
	if len(texts) == 0 {
		return "", fmt.Errorf("gemini candidate missing text")
	}
	return strings.Join(texts, "\n\n"), nil
}

func normalizeModel(model string) string {
	clean := strings.TrimSpace(model)
	clean = strings.TrimPrefix(clean, "models/")
	if clean == "" {
		return defaultGeminiModel
	}
	return clean
}
