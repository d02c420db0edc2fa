package notify

import (
	"context"
	"time"

	"esign-backend/internal/queue"
)

// QueueNotifier hands notifications to a queue for the worker to
// deliver, keeping mail latency out of request handlers.
type QueueNotifier struct {
	Client queue.Client
}

var _ Notifier = (*QueueNotifier)(nil)

func (n *QueueNotifier) SendSigningRequest(ctx context.Context, req SigningRequest) error {
	return n.Client.Send(ctx, stamp(queue.Message{
		Kind:          queue.KindSigningRequest,
		DocumentID:    req.DocumentID,
		RequestID:     req.RequestID,
		To:            req.To,
		DocumentTitle: req.DocumentTitle,
		SignerName:    req.SignerName,
		SigningURL:    req.SigningURL,
		SenderName:    req.SenderName,
	}))
}

func (n *QueueNotifier) SendSignedNotice(ctx context.Context, notice SignedNotice) error {
	return n.Client.Send(ctx, stamp(queue.Message{
		Kind:          queue.KindSigned,
		DocumentID:    notice.DocumentID,
		RequestID:     notice.RequestID,
		To:            notice.To,
		DocumentTitle: notice.DocumentTitle,
		SignedBy:      notice.SignedBy,
	}))
}

func (n *QueueNotifier) SendRejectionNotice(ctx context.Context, notice RejectionNotice) error {
	return n.Client.Send(ctx, stamp(queue.Message{
		Kind:          queue.KindRejected,
		DocumentID:    notice.DocumentID,
		RequestID:     notice.RequestID,
		To:            notice.To,
		DocumentTitle: notice.DocumentTitle,
		Reason:        notice.Reason,
		RejectedBy:    notice.RejectedBy,
	}))
}

func stamp(msg queue.Message) queue.Message {
	msg.EnqueuedAt = time.Now().UTC().Format(time.RFC3339)
	msg.Version = 1
	return msg
}
