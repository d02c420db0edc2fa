package notify

import (
	"context"

	"esign-backend/internal/shared/telemetry"
)

// LogNotifier writes notifications to the log instead of sending
// mail. Used when no SMTP host is configured.
type LogNotifier struct{}

var _ Notifier = (*LogNotifier)(nil)

func (LogNotifier) SendSigningRequest(ctx context.Context, req SigningRequest) error {
	telemetry.Info("notify.signing_request", map[string]any{
		"to":          req.To,
		"title":       req.DocumentTitle,
		"signing_url": req.SigningURL,
	})
	return nil
}

func (LogNotifier) SendSignedNotice(ctx context.Context, notice SignedNotice) error {
	telemetry.Info("notify.signed", map[string]any{
		"to":    notice.To,
		"title": notice.DocumentTitle,
	})
	return nil
}

func (LogNotifier) SendRejectionNotice(ctx context.Context, notice RejectionNotice) error {
	telemetry.Info("notify.rejected", map[string]any{
		"to":          notice.To,
		"title":       notice.DocumentTitle,
		"rejected_by": notice.RejectedBy,
	})
	return nil
}
