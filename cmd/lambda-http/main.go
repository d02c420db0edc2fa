package main

// Build the Lambda handler binary:
//   GOOS=linux GOARCH=arm64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-http

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"

	"esign-backend/internal/bootstrap"
	"esign-backend/internal/shared/config"
)

// The app is built once per execution environment and reused across
// invocations.
var (
	setupOnce sync.Once
	setupErr  error
	adapter   *ginadapter.GinLambdaV2
)

func setup() {
	app, err := bootstrap.Build(config.Load())
	if err != nil {
		setupErr = err
		return
	}
	adapter = ginadapter.NewV2(app.Router)
}

func handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	setupOnce.Do(setup)
	if setupErr != nil {
		log.Printf("bootstrap error: %v", setupErr)
		return errorResponse(http.StatusInternalServerError, "bootstrap failed"), setupErr
	}
	if adapter == nil {
		return errorResponse(http.StatusInternalServerError, "router not initialized"), nil
	}
	return adapter.ProxyWithContext(ctx, req)
}

func errorResponse(status int, msg string) events.APIGatewayV2HTTPResponse {
	body, _ := json.Marshal(map[string]string{"error": msg})
	return events.APIGatewayV2HTTPResponse{
		StatusCode: status,
		Body:       string(body),
		Headers:    map[string]string{"Content-Type": "application/json"},
	}
}

func main() {
	lambda.Start(handler)
}
