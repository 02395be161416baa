package main

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/gin-gonic/gin"
)

func TestHandlerBuildsOnceAndProxies(t *testing.T) {
	gin.SetMode(gin.TestMode)
	builds := 0
	handler := newHandler(func() (*gin.Engine, error) {
		builds++
		r := gin.New()
		r.GET("/api/v1/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
		return r, nil
	})

	req := events.APIGatewayV2HTTPRequest{
		RawPath: "/api/v1/health",
		RequestContext: events.APIGatewayV2HTTPRequestContext{
			HTTP: events.APIGatewayV2HTTPRequestContextHTTPDescription{Method: http.MethodGet, Path: "/api/v1/health"},
		},
	}
	for range 2 {
		resp, err := handler(context.Background(), req)
		if err != nil {
			t.Fatalf("proxy: %v", err)
		}
		if resp.StatusCode != http.StatusOK || !strings.Contains(resp.Body, `"ok":true`) {
			t.Fatalf("unexpected response %d %s", resp.StatusCode, resp.Body)
		}
	}
	if builds != 1 {
		t.Fatalf("expected one build, got %d", builds)
	}
}

func TestHandlerReportsBootstrapFailure(t *testing.T) {
	handler := newHandler(func() (*gin.Engine, error) { return nil, errors.New("no database") })
	resp, err := handler(context.Background(), events.APIGatewayV2HTTPRequest{})
	if err != nil {
		t.Fatalf("expected error envelope, got %v", err)
	}
	if resp.StatusCode != http.StatusServiceUnavailable || !strings.Contains(resp.Body, `"code":"bootstrap_failed"`) {
		t.Fatalf("unexpected response %d %s", resp.StatusCode, resp.Body)
	}
	if strings.Contains(resp.Body, "no database") {
		t.Fatalf("internal error leaked: %s", resp.Body)
	}
}

func TestBuildRouterRequiresQueue(t *testing.T) {
	t.Setenv("EXTRACTION_QUEUE_URL", "")
	if _, err := buildRouter(); err == nil || !strings.Contains(err.Error(), "EXTRACTION_QUEUE_URL") {
		t.Fatalf("expected queue requirement error, got %v", err)
	}
}
