package main

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"esign-backend/internal/bootstrap"
	"esign-backend/internal/notify"
	"esign-backend/internal/queue"
	"esign-backend/internal/shared/config"
)

type fakeSQS struct {
	deleted []string
}

func (f *fakeSQS) ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	_ = ctx
	_ = params
	_ = optFns
	return &sqs.ReceiveMessageOutput{}, nil
}

func (f *fakeSQS) DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	_ = ctx
	_ = optFns
	f.deleted = append(f.deleted, aws.ToString(params.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

type stubMailer struct {
	err      error
	requests []notify.SigningRequest
	signed   []notify.SignedNotice
	rejected []notify.RejectionNotice
}

func (s *stubMailer) SendSigningRequest(ctx context.Context, req notify.SigningRequest) error {
	_ = ctx
	s.requests = append(s.requests, req)
	return s.err
}

func (s *stubMailer) SendSignedNotice(ctx context.Context, notice notify.SignedNotice) error {
	_ = ctx
	s.signed = append(s.signed, notice)
	return s.err
}

func (s *stubMailer) SendRejectionNotice(ctx context.Context, notice notify.RejectionNotice) error {
	_ = ctx
	s.rejected = append(s.rejected, notice)
	return s.err
}

func newTestApp(t *testing.T, mailer notify.Notifier) *bootstrap.App {
	t.Helper()
	app, err := bootstrap.Build(config.Config{Env: "dev", LocalStoreDir: t.TempDir()})
	if err != nil {
		t.Fatalf("bootstrap build: %v", err)
	}
	app.Mailer = mailer
	return app
}

func sqsMessage(id, receipt string, body []byte) sqstypes.Message {
	return sqstypes.Message{
		MessageId:     aws.String(id),
		ReceiptHandle: aws.String(receipt),
		Body:          aws.String(string(body)),
		Attributes:    map[string]string{"ApproximateReceiveCount": "1"},
	}
}

func TestWorkerDeliversAndDeletesOnSuccess(t *testing.T) {
	client := &fakeSQS{}
	mailer := &stubMailer{}
	app := newTestApp(t, mailer)

	body, _ := queue.EncodeMessage(queue.Message{
		Kind:          queue.KindSigningRequest,
		DocumentID:    "doc-1",
		RequestID:     "req-1",
		To:            "ann@example.com",
		DocumentTitle: "NDA",
		SignerName:    "Ann",
		SigningURL:    "https://esign.test/sign/tok",
		SenderName:    "Acme eSign",
	})

	handleMessage(context.Background(), app, client, "queue", sqsMessage("m1", "r1", body))

	if len(mailer.requests) != 1 {
		t.Fatalf("expected 1 signing request, got %d", len(mailer.requests))
	}
	if mailer.requests[0].To != "ann@example.com" || mailer.requests[0].SigningURL != "https://esign.test/sign/tok" {
		t.Fatalf("unexpected request: %+v", mailer.requests[0])
	}
	if len(client.deleted) != 1 || client.deleted[0] != "r1" {
		t.Fatalf("expected delete of r1, got %v", client.deleted)
	}
}

func TestWorkerKeepsMessageOnDeliveryFailure(t *testing.T) {
	client := &fakeSQS{}
	mailer := &stubMailer{err: errors.New("smtp down")}
	app := newTestApp(t, mailer)

	body, _ := queue.EncodeMessage(queue.Message{
		Kind:          queue.KindSigned,
		DocumentID:    "doc-2",
		RequestID:     "req-2",
		To:            "owner@example.com",
		DocumentTitle: "NDA",
		SignedBy:      "bob@example.com",
	})

	handleMessage(context.Background(), app, client, "queue", sqsMessage("m2", "r2", body))

	if len(mailer.signed) != 1 {
		t.Fatalf("expected delivery attempt, got %d", len(mailer.signed))
	}
	if len(client.deleted) != 0 {
		t.Fatalf("expected no delete, got %v", client.deleted)
	}
}

func TestWorkerDeletesOnInvalidJSON(t *testing.T) {
	client := &fakeSQS{}
	mailer := &stubMailer{}
	app := newTestApp(t, mailer)

	handleMessage(context.Background(), app, client, "queue", sqsMessage("m3", "r3", []byte("{not json")))

	if len(client.deleted) != 1 {
		t.Fatalf("expected delete, got %v", client.deleted)
	}
	if len(mailer.requests)+len(mailer.signed)+len(mailer.rejected) != 0 {
		t.Fatalf("expected no delivery attempts")
	}
}

func TestWorkerDeletesUnknownKind(t *testing.T) {
	client := &fakeSQS{}
	mailer := &stubMailer{}
	app := newTestApp(t, mailer)

	body, _ := queue.EncodeMessage(queue.Message{
		Kind:       "reminder",
		DocumentID: "doc-4",
		RequestID:  "req-4",
		To:         "ann@example.com",
	})

	handleMessage(context.Background(), app, client, "queue", sqsMessage("m4", "r4", body))

	if len(client.deleted) != 1 {
		t.Fatalf("expected delete, got %v", client.deleted)
	}
	if len(mailer.requests)+len(mailer.signed)+len(mailer.rejected) != 0 {
		t.Fatalf("expected no delivery attempts")
	}
}

func TestWorkerDeletesMissingRecipient(t *testing.T) {
	client := &fakeSQS{}
	mailer := &stubMailer{}
	app := newTestApp(t, mailer)

	body, _ := queue.EncodeMessage(queue.Message{
		Kind:       queue.KindRejected,
		DocumentID: "doc-5",
		RequestID:  "req-5",
	})

	handleMessage(context.Background(), app, client, "queue", sqsMessage("m5", "r5", body))

	if len(client.deleted) != 1 {
		t.Fatalf("expected delete, got %v", client.deleted)
	}
	if len(mailer.rejected) != 0 {
		t.Fatalf("expected no delivery attempts")
	}
}
