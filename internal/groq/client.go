// Package groq calls the Groq chat completions API with one or more images
// and returns the model's raw text response.
package groq

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// DefaultBaseURL is the OpenAI-compatible Groq endpoint.
	DefaultBaseURL = "https://api.groq.com/openai/v1"

	requestTimeout = 60 * time.Second
)

// Client is a minimal chat-completions client for vision extraction.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Groq client for the given model. An empty baseURL
// selects the default endpoint.
func NewClient(apiKey, model, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		apiKey:  apiKey,
		model:   model,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
	}
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// ExtractFromImages sends the instruction together with the given images and
// returns the model's text payload. The model is asked for a JSON object
// response.
func (c *Client) ExtractFromImages(ctx context.Context, images [][]byte, instruction string) (string, error) {
	if len(images) == 0 {
		return "", fmt.Errorf("at least one image is required")
	}

	content := []contentPart{
		{Type: "text", Text: instruction},
	}
	for _, img := range images {
		content = append(content, contentPart{
			Type: "image_url",
			ImageURL: &imageURL{
				URL: dataURI(img),
			},
		})
	}

	payload, err := json.Marshal(chatRequest{
		Model:          c.model,
		Messages:       []chatMessage{{Role: "user", Content: content}},
		ResponseFormat: &responseFormat{Type: "json_object"},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewBuffer(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("unable to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("request failed with status code %d: %s", resp.StatusCode, string(body))
	}

	var response chatResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("response contained no choices")
	}

	return response.Choices[0].Message.Content, nil
}

// dataURI encodes an image as a base64 data URI, sniffing the media type from
// the image bytes.
func dataURI(img []byte) string {
	mimeType := http.DetectContentType(img)
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(img))
}
