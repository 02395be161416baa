// Package gemini reads onboarding documents with Google Gemini.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"onboarding-backend/internal/extraction"
)

const defaultModel = "gemini-2.5-flash"

// Client implements extraction.Provider on top of the genai SDK.
type Client struct {
	client *genai.Client
	model  string
}

// NewClient builds a Gemini API client. baseURL is only set in tests.
func NewClient(ctx context.Context, apiKey, model, baseURL string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("EXTRACTION_API_KEY is required for Gemini")
	}
	if strings.TrimSpace(model) == "" {
		model = defaultModel
	}
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &Client{client: client, model: model}, nil
}

// Name implements extraction.Provider.
func (c *Client) Name() string { return "gemini" }

// Extract implements extraction.Provider. Both images and PDFs are sent inline.
func (c *Client) Extract(ctx context.Context, in extraction.Input) (json.RawMessage, error) {
	mimeType := strings.TrimSpace(in.MimeType)
	if mimeType == "" {
		return nil, extraction.Reject("missing content type")
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText("Extract the fields from this document."),
			genai.NewPartFromBytes(in.Data, mimeType),
		}, genai.RoleUser),
	}
	config := &genai.GenerateContentConfig{
		Temperature:       genai.Ptr[float32](0),
		ResponseMIMEType:  "application/json",
		SystemInstruction: genai.NewContentFromText(extraction.Prompt(in.DocumentType), genai.RoleUser),
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return nil, classifyError(err)
	}
	if resp == nil {
		return nil, fmt.Errorf("%w: gemini returned nil response", extraction.ErrUnavailable)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return nil, fmt.Errorf("%w: gemini response has no text", extraction.ErrUnavailable)
	}
	return json.RawMessage(text), nil
}

func classifyError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusBadRequest, http.StatusUnsupportedMediaType, http.StatusUnprocessableEntity:
			return extraction.Reject(fmt.Sprintf("gemini %d: %s", apiErr.Code, apiErr.Message))
		}
		return fmt.Errorf("%w: gemini %d: %s", extraction.ErrUnavailable, apiErr.Code, apiErr.Message)
	}
	return fmt.Errorf("%w: gemini: %v", extraction.ErrUnavailable, err)
}

var _ extraction.Provider = (*Client)(nil)
