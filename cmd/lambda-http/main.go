// Command lambda-http serves the API from API Gateway (HTTP API, payload v2).
//
//	GOOS=linux GOARCH=arm64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-http
package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"

	"onboarding-backend/internal/bootstrap"
	"onboarding-backend/internal/shared/config"
	"onboarding-backend/internal/shared/telemetry"
)

type proxyFunc func(context.Context, events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error)

func buildRouter() (*gin.Engine, error) {
	cfg := config.Load()
	// The runtime freezes once the response is sent, so extraction must be
	// handed to SQS instead of the in-process pool.
	if cfg.Extraction.QueueURL == "" {
		return nil, errors.New("EXTRACTION_QUEUE_URL is required in lambda")
	}
	app, err := bootstrap.Build(cfg)
	if err != nil {
		return nil, err
	}
	return app.Router, nil
}

// newHandler builds the router on the first invocation and reuses it while
// the execution environment stays warm. A failed build is reported on every
// invocation.
func newHandler(build func() (*gin.Engine, error)) proxyFunc {
	setup := sync.OnceValues(func() (*ginadapter.GinLambdaV2, error) {
		router, err := build()
		if err != nil {
			return nil, err
		}
		return ginadapter.NewV2(router), nil
	})
	return func(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
		adapter, err := setup()
		if err != nil {
			telemetry.Error("lambda_http.bootstrap_failed", map[string]any{"error": err.Error()})
			return errorResponse("bootstrap_failed", "service unavailable"), nil
		}
		return adapter.ProxyWithContext(ctx, req)
	}
}

func errorResponse(code, message string) events.APIGatewayV2HTTPResponse {
	body, _ := json.Marshal(gin.H{"error": gin.H{"code": code, "message": message}})
	return events.APIGatewayV2HTTPResponse{
		StatusCode: http.StatusServiceUnavailable,
		Body:       string(body),
		Headers:    map[string]string{"Content-Type": "application/json"},
	}
}

func main() {
	lambda.Start(newHandler(buildRouter))
}
