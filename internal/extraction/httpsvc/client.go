// Package httpsvc calls a standalone document extraction service over HTTP.
// The service accepts a multipart upload at POST /v1/extract and answers
// with the extraction JSON document.
package httpsvc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"golang.org/x/oauth2/clientcredentials"

	"onboarding-backend/internal/extraction"
	"onboarding-backend/internal/shared/telemetry"
)

// Config locates and authenticates the extraction service.
type Config struct {
	BaseURL      string
	APIKey       string
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
}

// Client implements extraction.Provider.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient builds the client. When TokenURL is set, requests carry OAuth2
// client-credentials tokens that are fetched and refreshed automatically.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("EXTRACTION_BASE_URL is required for the http provider")
	}
	httpClient := &http.Client{}
	if strings.TrimSpace(cfg.TokenURL) != "" {
		cc := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
			Scopes:       cfg.Scopes,
		}
		httpClient = cc.Client(ctx)
	}
	return &Client{baseURL: base, apiKey: strings.TrimSpace(cfg.APIKey), httpClient: httpClient}, nil
}

// Name implements extraction.Provider.
func (c *Client) Name() string { return "http" }

// Extract implements extraction.Provider.
func (c *Client) Extract(ctx context.Context, in extraction.Input) (json.RawMessage, error) {
	body, contentType, err := encode(in)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/extract", body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}
	if id := telemetry.RequestID(ctx); id != "" {
		req.Header.Set("X-Request-Id", id)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: extraction service: %v", extraction.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", extraction.ErrUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return json.RawMessage(payload), nil
	case resp.StatusCode == http.StatusBadRequest,
		resp.StatusCode == http.StatusUnsupportedMediaType,
		resp.StatusCode == http.StatusUnprocessableEntity:
		return nil, extraction.Reject(errorMessage(payload, resp.StatusCode))
	default:
		return nil, fmt.Errorf("%w: extraction service http status %d: %s", extraction.ErrUnavailable, resp.StatusCode, errorMessage(payload, resp.StatusCode))
	}
}

func encode(in extraction.Input) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("document_type", string(in.DocumentType)); err != nil {
		return nil, "", err
	}
	if in.DocumentID != "" {
		if err := w.WriteField("document_id", in.DocumentID); err != nil {
			return nil, "", err
		}
	}
	header := make(textproto.MIMEHeader)
	fileName := in.FileName
	if fileName == "" {
		fileName = "document"
	}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, fileName))
	if in.MimeType != "" {
		header.Set("Content-Type", in.MimeType)
	}
	part, err := w.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(in.Data); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

func errorMessage(payload []byte, status int) string {
	var body struct {
		Error   any    `json:"error"`
		Message string `json:"message"`
		Reason  string `json:"reason"`
	}
	if err := json.Unmarshal(payload, &body); err == nil {
		switch {
		case body.Reason != "":
			return body.Reason
		case body.Message != "":
			return body.Message
		case body.Error != nil:
			if s, ok := body.Error.(string); ok {
				return s
			}
		}
	}
	if text := strings.TrimSpace(string(payload)); text != "" && len(text) < 200 {
		return text
	}
	return http.StatusText(status)
}

var _ extraction.Provider = (*Client)(nil)
