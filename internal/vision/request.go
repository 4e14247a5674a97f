package vision

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/png"

	apperrors "github.com/anime-shed/table-inspector-go/internal/errors"
)

// Message is a single chat message. Content is either a string or a list of parts.
type Message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// TextContent is a text part of a multimodal message
type TextContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ImageContent is an image part of a multimodal message
type ImageContent struct {
	Type     string   `json:"type"`
	ImageURL ImageURL `json:"image_url"`
}

// ImageURL carries an inline data URL
type ImageURL struct {
	URL string `json:"url"`
}

// ChatRequest is the chat completion payload (the AnalysisRequest of the pipeline)
type ChatRequest struct {
	Model     string    `json:"model"`
	Messages  []Message `json:"messages"`
	MaxTokens int       `json:"max_tokens"`
}

// ChatResponse is the subset of the chat completion envelope the client reads
type ChatResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content any    `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// BuildAnalysisRequest embeds img and the table instruction into a chat request.
// A missing or placeholder API key fails before the image is encoded.
func BuildAnalysisRequest(img image.Image, s Settings) (*ChatRequest, error) {
	if err := s.checkCredential(); err != nil {
		return nil, err
	}
	if img == nil {
		return nil, apperrors.NewPreprocessingError("preprocessing failed", nil)
	}

	dataURL, err := EncodePNGDataURL(img)
	if err != nil {
		return nil, err
	}

	return &ChatRequest{
		Model: s.Model,
		Messages: []Message{
			{
				Role: "user",
				Content: []any{
					TextContent{Type: "text", Text: TableInstruction},
					ImageContent{Type: "image_url", ImageURL: ImageURL{URL: dataURL}},
				},
			},
		},
		MaxTokens: s.MaxTokens,
	}, nil
}

// BuildProbeRequest returns the minimal connectivity probe payload
func BuildProbeRequest(s Settings) *ChatRequest {
	return &ChatRequest{
		Model:     s.Model,
		Messages:  []Message{{Role: "user", Content: ProbeText}},
		MaxTokens: probeMaxTokens,
	}
}

// EncodePNGDataURL serializes img as PNG inside a base64 data URL
func EncodePNGDataURL(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", apperrors.NewPreprocessingError("failed to encode image as PNG", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
