package workerproc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"

	"esign-backend/internal/bootstrap"
	"esign-backend/internal/documents"
	"esign-backend/internal/notify"
	"esign-backend/internal/queue"
)

// MessageMeta captures details useful for logging and diagnostics.
type MessageMeta struct {
	BodyLen int
	BodySHA string
}

// ComputeMeta returns the body length and SHA-256 hash.
func ComputeMeta(body string) MessageMeta {
	if body == "" {
		return MessageMeta{BodyLen: 0, BodySHA: ""}
	}
	sum := sha256.Sum256([]byte(body))
	return MessageMeta{BodyLen: len(body), BodySHA: hex.EncodeToString(sum[:])}
}

// ErrEmptyBody indicates an empty queue payload.
type ErrEmptyBody struct {
	Meta MessageMeta
}

func (e ErrEmptyBody) Error() string { return "empty message body" }

// ErrDecode indicates a JSON decode failure.
type ErrDecode struct {
	Meta MessageMeta
	Err  error
}

func (e ErrDecode) Error() string {
	if e.Err == nil {
		return "decode message"
	}
	return "decode message: " + e.Err.Error()
}

// ErrInvalidMessage indicates a decoded message the worker cannot act
// on: unknown kind or no recipient. Such messages are unrecoverable
// and should be dropped, not retried.
type ErrInvalidMessage struct {
	Meta      MessageMeta
	Kind      string
	RequestID string
	Reason    string
}

func (e ErrInvalidMessage) Error() string { return "invalid message: " + e.Reason }

// ErrDeliver indicates delivery failed after successful parsing.
// Retryable: the message stays on the queue.
type ErrDeliver struct {
	Kind       string
	DocumentID string
	RequestID  string
	Err        error
}

func (e ErrDeliver) Error() string {
	if e.Err == nil {
		return "deliver notification"
	}
	return "deliver notification: " + e.Err.Error()
}

// ParseMessage validates and decodes the queue payload.
func ParseMessage(body string) (queue.Message, MessageMeta, error) {
	meta := ComputeMeta(body)
	if strings.TrimSpace(body) == "" {
		return queue.Message{}, meta, ErrEmptyBody{Meta: meta}
	}

	msg, err := queue.DecodeMessage([]byte(body))
	if err != nil {
		return queue.Message{}, meta, ErrDecode{Meta: meta, Err: err}
	}
	switch msg.Kind {
	case queue.KindSigningRequest, queue.KindSigned, queue.KindRejected:
	default:
		return msg, meta, ErrInvalidMessage{Meta: meta, Kind: msg.Kind, RequestID: msg.RequestID, Reason: "unknown kind " + strconv.Quote(msg.Kind)}
	}
	if strings.TrimSpace(msg.To) == "" {
		return msg, meta, ErrInvalidMessage{Meta: meta, Kind: msg.Kind, RequestID: msg.RequestID, Reason: "missing recipient"}
	}
	return msg, meta, nil
}

type parsedMessageKey struct{}

// WithParsedMessage stores a decoded message in the context for reuse.
func WithParsedMessage(ctx context.Context, msg queue.Message) context.Context {
	return context.WithValue(ctx, parsedMessageKey{}, msg)
}

func parsedMessageFromContext(ctx context.Context) (queue.Message, bool) {
	if ctx == nil {
		return queue.Message{}, false
	}
	msg, ok := ctx.Value(parsedMessageKey{}).(queue.Message)
	return msg, ok
}

// HandleMessage parses a queued notification job and delivers it
// through the app's mailer.
func HandleMessage(ctx context.Context, app *bootstrap.App, body string) error {
	if app == nil || app.Mailer == nil {
		return errors.New("mailer not configured")
	}

	msg, ok := parsedMessageFromContext(ctx)
	if !ok {
		var err error
		msg, _, err = ParseMessage(body)
		if err != nil {
			return err
		}
	}

	ctxWithRequest := documents.WithRequestID(ctx, msg.RequestID)
	if err := deliver(ctxWithRequest, app.Mailer, msg); err != nil {
		return ErrDeliver{Kind: msg.Kind, DocumentID: msg.DocumentID, RequestID: msg.RequestID, Err: err}
	}
	return nil
}

func deliver(ctx context.Context, mailer notify.Notifier, msg queue.Message) error {
	switch msg.Kind {
	case queue.KindSigningRequest:
		return mailer.SendSigningRequest(ctx, notify.SigningRequest{
			DocumentID:    msg.DocumentID,
			RequestID:     msg.RequestID,
			To:            msg.To,
			SignerName:    msg.SignerName,
			DocumentTitle: msg.DocumentTitle,
			SenderName:    msg.SenderName,
			SigningURL:    msg.SigningURL,
		})
	case queue.KindSigned:
		return mailer.SendSignedNotice(ctx, notify.SignedNotice{
			DocumentID:    msg.DocumentID,
			RequestID:     msg.RequestID,
			To:            msg.To,
			DocumentTitle: msg.DocumentTitle,
			SignedBy:      msg.SignedBy,
		})
	case queue.KindRejected:
		return mailer.SendRejectionNotice(ctx, notify.RejectionNotice{
			DocumentID:    msg.DocumentID,
			RequestID:     msg.RequestID,
			To:            msg.To,
			DocumentTitle: msg.DocumentTitle,
			Reason:        msg.Reason,
			RejectedBy:    msg.RejectedBy,
		})
	default:
		return ErrInvalidMessage{Kind: msg.Kind, Reason: "unknown kind " + strconv.Quote(msg.Kind)}
	}
}
