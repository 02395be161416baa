package gemini

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"google.golang.org/genai"

	"onboarding-backend/internal/doctypes"
	"onboarding-backend/internal/extraction"
)

func TestClassifyError(t *testing.T) {
	if err := classifyError(genai.APIError{Code: 400, Message: "bad image"}); !errors.Is(err, extraction.ErrRejected) {
		t.Fatalf("expected ErrRejected for 400, got %v", err)
	}
	if err := classifyError(genai.APIError{Code: 503, Message: "overloaded"}); !errors.Is(err, extraction.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable for 503, got %v", err)
	}
	if err := classifyError(errors.New("dial tcp: refused")); !errors.Is(err, extraction.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable for network error, got %v", err)
	}
}

func TestExtractReturnsModelText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, ":generateContent") {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), "inlineData") {
			t.Fatalf("expected inline document bytes, got %s", body)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"{\"fields\":{\"pan_number\":\"ABCDE1234F\"},\"confidence\":0.7}"}]}}]}`)
	}))
	defer srv.Close()

	client, err := NewClient(context.Background(), "key", "", srv.URL)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	raw, err := client.Extract(context.Background(), extraction.Input{
		DocumentType: doctypes.PAN,
		Data:         []byte("\x89PNG\r\n\x1a\n"),
		MimeType:     "image/png",
	})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	res, err := extraction.Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if res.Fields["pan_number"] != "ABCDE1234F" {
		t.Fatalf("unexpected fields: %v", res.Fields)
	}
}
