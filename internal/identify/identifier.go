package identify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"scentMateAi/internal/llm"
)

// MaxImageBytes caps the accepted bottle photo size.
const MaxImageBytes = 7 * 1024 * 1024

// Fallback values the model is instructed to emit when it cannot identify
// the bottle. An "Unknown" answer is a valid result, not a failure; whether
// to accept it is the caller's decision.
const (
	UnknownBrand = "Unknown"
	UnknownName  = "Perfume"
)

// Identification is the (brand, name) guess extracted from a bottle photo.
type Identification struct {
	Brand string `json:"brand"`
	Name  string `json:"name"`
}

// Identifier extracts a fragrance identity from an image.
type Identifier struct {
	client llm.Client
}

// NewIdentifier constructs an identifier backed by the given generation client.
func NewIdentifier(client llm.Client) *Identifier {
	return &Identifier{client: client}
}

const identifyPrompt = `Look at this perfume bottle photo and identify the fragrance.
Return ONLY JSON in this exact shape: {"brand":"...","name":"..."}
If you cannot identify it with confidence, return {"brand":"Unknown","name":"Perfume"}.`

// Identify runs a single vision call against the photo. It returns nil only
// on transport failure or a totally unparsable answer.
func (i *Identifier) Identify(ctx context.Context, image []byte, mimeType string) (*Identification, error) {
	if len(image) == 0 {
		return nil, fmt.Errorf("identify: empty image data")
	}
	if len(image) > MaxImageBytes {
		return nil, fmt.Errorf("identify: image exceeds %d bytes", MaxImageBytes)
	}

	raw, err := i.client.Generate(ctx, llm.Request{
		Prompt:      identifyPrompt,
		Image:       image,
		ImageMIME:   detectMime(image, mimeType),
		Temperature: 0.1,
	})
	if err != nil {
		return nil, fmt.Errorf("identify: generate: %w", err)
	}

	var result Identification
	if err := json.Unmarshal([]byte(llm.ExtractJSON(raw)), &result); err != nil {
		log.Printf("identify: unparsable response: %q", raw)
		return nil, fmt.Errorf("identify: parse response: %w: %v", llm.ErrBadResponse, err)
	}

	result.Brand = strings.TrimSpace(result.Brand)
	result.Name = strings.TrimSpace(result.Name)
	if result.Brand == "" && result.Name == "" {
		log.Printf("identify: empty identification: %q", raw)
		return nil, fmt.Errorf("identify: empty identification: %w", llm.ErrBadResponse)
	}
	if result.Brand == "" {
		result.Brand = UnknownBrand
	}
	if result.Name == "" {
		result.Name = UnknownName
	}

	return &result, nil
}

// IsUnknown reports whether the identification is the model's fallback pair.
func (id Identification) IsUnknown() bool {
	return id.Brand == UnknownBrand && id.Name == UnknownName
}

func detectMime(data []byte, provided string) string {
	mime := strings.TrimSpace(provided)
	if mime == "" {
		mime = http.DetectContentType(data)
	}
	if !strings.Contains(mime, "image/") {
		return "image/jpeg"
	}
	return mime
}
