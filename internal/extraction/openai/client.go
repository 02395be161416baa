// Package openai reads onboarding documents with OpenAI chat completions.
package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"onboarding-backend/internal/extract"
	"onboarding-backend/internal/extraction"
	"onboarding-backend/internal/shared/telemetry"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	maxPDFChars    = 20000
)

// Client implements extraction.Provider using OpenAI Chat Completions.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a new OpenAI client. baseURL may be empty.
func NewClient(apiKey, model, baseURL string) (*Client, error) {
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("EXTRACTION_MODEL is required for OpenAI")
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("EXTRACTION_API_KEY is required for OpenAI")
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		apiKey:  apiKey,
		model:   model,
		baseURL: strings.TrimRight(baseURL, "/"),
		// Per-attempt deadlines come from the caller's context.
		httpClient: &http.Client{},
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    *float32       `json:"temperature,omitempty"`
	ResponseFormat responseFormat `json:"response_format"`
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
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage,omitempty"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error,omitempty"`
}

// Name implements extraction.Provider.
func (c *Client) Name() string { return "openai" }

// Extract implements extraction.Provider.
func (c *Client) Extract(ctx context.Context, in extraction.Input) (json.RawMessage, error) {
	userContent, err := c.userContent(ctx, in)
	if err != nil {
		return nil, err
	}

	temp := float32(0)
	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: extraction.Prompt(in.DocumentType)},
			{Role: "user", Content: userContent},
		},
		ResponseFormat: responseFormat{Type: "json_object"},
	}
	if !isGPT5(c.model) {
		reqBody.Temperature = &temp
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: openai request: %v", extraction.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: openai read body: %v", extraction.ErrUnavailable, err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: openai http status %d: unparseable body", extraction.ErrUnavailable, resp.StatusCode)
	}
	if resp.StatusCode >= 300 || parsed.Error != nil {
		return nil, classifyError(resp.StatusCode, parsed)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("%w: openai response missing choices", extraction.ErrUnavailable)
	}
	if parsed.Usage != nil {
		telemetry.Info("extraction.usage", map[string]any{
			"request_id":        telemetry.RequestID(ctx),
			"document_id":       in.DocumentID,
			"provider":          "openai",
			"model":             c.model,
			"prompt_tokens":     parsed.Usage.PromptTokens,
			"completion_tokens": parsed.Usage.CompletionTokens,
			"total_tokens":      parsed.Usage.TotalTokens,
		})
	}

	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return nil, fmt.Errorf("%w: openai response empty content", extraction.ErrUnavailable)
	}
	return json.RawMessage(content), nil
}

// userContent sends images inline and PDFs as their text layer.
func (c *Client) userContent(ctx context.Context, in extraction.Input) (any, error) {
	if extract.IsPDF(in.Data, in.MimeType) {
		text, err := extract.PDFText(ctx, in.Data, maxPDFChars)
		switch {
		case errors.Is(err, extract.ErrNoTextLayer):
			return nil, extraction.Reject("scanned pdf without a text layer; upload an image instead")
		case err != nil:
			return nil, extraction.Reject("unreadable pdf")
		}
		return "Document text:\n" + text, nil
	}

	mimeType := strings.TrimSpace(in.MimeType)
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, extraction.Reject(fmt.Sprintf("unsupported content type %q", mimeType))
	}
	dataURL := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(in.Data)
	return []contentPart{
		{Type: "text", Text: "Extract the fields from this document image."},
		{Type: "image_url", ImageURL: &imageURL{URL: dataURL}},
	}, nil
}

func classifyError(status int, parsed chatResponse) error {
	msg := fmt.Sprintf("openai http status %d", status)
	if parsed.Error != nil {
		msg = fmt.Sprintf("%s: %s (%s)", msg, parsed.Error.Message, parsed.Error.Type)
	}
	switch status {
	case http.StatusBadRequest, http.StatusUnsupportedMediaType, http.StatusUnprocessableEntity:
		if parsed.Error != nil && strings.Contains(strings.ToLower(parsed.Error.Code+parsed.Error.Message), "image") {
			return extraction.Reject(msg)
		}
	}
	return fmt.Errorf("%w: %s", extraction.ErrUnavailable, msg)
}

func isGPT5(model string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(model)), "gpt-5")
}

var _ extraction.Provider = (*Client)(nil)
