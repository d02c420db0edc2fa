package main

// Build the Lambda handler binary:
//   GOOS=linux GOARCH=amd64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-worker

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"esign-backend/internal/bootstrap"
	"esign-backend/internal/shared/config"
	"esign-backend/internal/shared/metrics"
	"esign-backend/internal/shared/telemetry"
	"esign-backend/internal/workerproc"
)

var (
	initOnce sync.Once
	initErr  error
	app      *bootstrap.App
)

func initApp() {
	cfg := config.Load()
	built, err := bootstrap.Build(cfg)
	if err != nil {
		initErr = err
		return
	}
	app = built
}

func handler(ctx context.Context, event events.SQSEvent) (events.SQSEventResponse, error) {
	initOnce.Do(initApp)
	if initErr != nil {
		log.Printf("bootstrap error: %v", initErr)
		failures := make([]events.SQSBatchItemFailure, 0, len(event.Records))
		for _, record := range event.Records {
			failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
		}
		return events.SQSEventResponse{BatchItemFailures: failures}, initErr
	}

	failures := make([]events.SQSBatchItemFailure, 0)
	for _, record := range event.Records {
		metrics.IncNotifyJobsReceived()
		err := workerproc.HandleMessage(ctx, app, record.Body)
		if err == nil {
			metrics.IncNotifyJobsCompleted()
			continue
		}
		// Reporting a malformed message as a failure would recycle it
		// until the redrive policy gives up; drop it instead.
		if unrecoverable(err) {
			telemetry.Error("worker.notify.dropped", map[string]any{
				"sqs_message_id": record.MessageId,
				"error":          err.Error(),
			})
			metrics.IncNotifyJobsDeletedUnrecoverable()
			continue
		}
		metrics.IncNotifyJobsFailed()
		failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
	}

	return events.SQSEventResponse{BatchItemFailures: failures}, nil
}

func unrecoverable(err error) bool {
	var (
		emptyErr   workerproc.ErrEmptyBody
		decodeErr  workerproc.ErrDecode
		invalidErr workerproc.ErrInvalidMessage
	)
	return errors.As(err, &emptyErr) || errors.As(err, &decodeErr) || errors.As(err, &invalidErr)
}

func main() {
	lambda.Start(handler)
}
